// internal/storage/prefs.go
package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Prefs is an in-memory view of the stored values. Inside Edit, setters
// record which keys changed so only those rows are written back.
type Prefs struct {
	values  map[string]string
	changed map[string]bool
}

func newPrefs(values map[string]string) *Prefs {
	return &Prefs{values: values, changed: make(map[string]bool)}
}

func (p *Prefs) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

func (p *Prefs) String(key, def string) string {
	if v, ok := p.values[key]; ok {
		return v
	}
	return def
}

// Int returns def when key is missing or does not hold an integer.
func (p *Prefs) Int(key string, def int) int {
	v, ok := p.values[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (p *Prefs) Float(key string, def float64) float64 {
	v, ok := p.values[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func (p *Prefs) Bool(key string, def bool) bool {
	v, ok := p.values[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// JSON decodes the value stored under key into v. It reports false when the
// key is missing; a stored value that is not valid JSON is an error.
func (p *Prefs) JSON(key string, v any) (bool, error) {
	raw, ok := p.values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("corrupt value for %q: %w", key, err)
	}
	return true, nil
}

func (p *Prefs) Set(key, value string) {
	if old, ok := p.values[key]; ok && old == value {
		return
	}
	p.values[key] = value
	p.changed[key] = true
}

func (p *Prefs) SetInt(key string, n int) {
	p.Set(key, strconv.Itoa(n))
}

func (p *Prefs) SetFloat(key string, f float64) {
	p.Set(key, strconv.FormatFloat(f, 'f', -1, 64))
}

func (p *Prefs) SetBool(key string, b bool) {
	p.Set(key, strconv.FormatBool(b))
}

func (p *Prefs) SetJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", key, err)
	}
	p.Set(key, string(data))
	return nil
}

func (p *Prefs) Delete(key string) {
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	p.changed[key] = true
}

func (p *Prefs) changedKeys() []string {
	return sortedKeys(p.changed)
}
