// internal/models/food.go
package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type FoodEntry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Calories  int       `json:"calories"`
	Protein   int       `json:"protein"`
	CreatedAt time.Time `json:"created_at"`
}

// DayRecord is the archived summary of one past day. Totals and targets are
// captured when the day is archived and never recomputed.
type DayRecord struct {
	Date           string      `json:"date"`
	Entries        []FoodEntry `json:"entries"`
	TotalCalories  int         `json:"total_calories"`
	TotalProtein   int         `json:"total_protein"`
	TargetCalories int         `json:"target_calories"`
	TargetProtein  int         `json:"target_protein"`
}

type Gender string

const (
	Male   Gender = "MALE"
	Female Gender = "FEMALE"
)

func ParseGender(s string) (Gender, error) {
	switch g := Gender(strings.ToUpper(strings.TrimSpace(s))); g {
	case Male, Female:
		return g, nil
	default:
		return "", fmt.Errorf("unknown gender %q (want MALE or FEMALE)", s)
	}
}

const DefaultModel = "openai/gpt-4o-mini"

type UserProfile struct {
	Gender         Gender  `json:"gender"`
	HeightCm       int     `json:"height_cm"`
	WeightKg       float64 `json:"weight_kg"`
	TargetCalories int     `json:"target_calories"`
	TargetProtein  int     `json:"target_protein"`
	APIKey         string  `json:"api_key,omitempty"`
	Model          string  `json:"model"`
}

// DefaultProfile is the profile used before the user saves any settings.
func DefaultProfile() UserProfile {
	return UserProfile{
		Gender:         Male,
		HeightCm:       170,
		WeightKg:       70.0,
		TargetCalories: 2000,
		TargetProtein:  70,
		Model:          DefaultModel,
	}
}

// ProteinTarget derives the daily protein target in grams from body weight.
func ProteinTarget(weightKg float64) int {
	return int(math.Round(weightKg))
}

func (p UserProfile) Validate() error {
	if p.Gender != Male && p.Gender != Female {
		return fmt.Errorf("invalid gender %q", p.Gender)
	}
	if p.HeightCm <= 0 {
		return fmt.Errorf("height must be positive, got %d", p.HeightCm)
	}
	if p.WeightKg <= 0 || math.IsNaN(p.WeightKg) || math.IsInf(p.WeightKg, 0) {
		return fmt.Errorf("weight must be positive, got %v", p.WeightKg)
	}
	if p.TargetCalories <= 0 {
		return fmt.Errorf("target calories must be positive, got %d", p.TargetCalories)
	}
	return nil
}

// HasAPIKey reports whether an estimation credential has been entered.
func (p UserProfile) HasAPIKey() bool {
	return strings.TrimSpace(p.APIKey) != ""
}

func Totals(entries []FoodEntry) (calories, protein int) {
	for _, e := range entries {
		calories += e.Calories
		protein += e.Protein
	}
	return calories, protein
}

// NewDayRecord freezes entries under date together with the given targets.
func NewDayRecord(date string, entries []FoodEntry, targetCalories, targetProtein int) DayRecord {
	frozen := make([]FoodEntry, len(entries))
	copy(frozen, entries)
	cal, prot := Totals(frozen)
	return DayRecord{
		Date:           date,
		Entries:        frozen,
		TotalCalories:  cal,
		TotalProtein:   prot,
		TargetCalories: targetCalories,
		TargetProtein:  targetProtein,
	}
}

type DaySummary struct {
	Date              string      `json:"date"`
	Entries           []FoodEntry `json:"entries"`
	TotalCalories     int         `json:"total_calories"`
	TotalProtein      int         `json:"total_protein"`
	TargetCalories    int         `json:"target_calories"`
	TargetProtein     int         `json:"target_protein"`
	RemainingCalories int         `json:"remaining_calories"`
	RemainingProtein  int         `json:"remaining_protein"`
}

func NewDaySummary(date string, entries []FoodEntry, profile UserProfile) DaySummary {
	cal, prot := Totals(entries)
	if entries == nil {
		entries = []FoodEntry{}
	}
	return DaySummary{
		Date:              date,
		Entries:           entries,
		TotalCalories:     cal,
		TotalProtein:      prot,
		TargetCalories:    profile.TargetCalories,
		TargetProtein:     profile.TargetProtein,
		RemainingCalories: max(profile.TargetCalories-cal, 0),
		RemainingProtein:  max(profile.TargetProtein-prot, 0),
	}
}
