// internal/server/rollover.go
package server

import (
	"context"
	"log"
	"time"
)

// RunRolloverLoop calls check once immediately and then on every tick until
// ctx is done. check must be safe to call at any time; rollover is
// idempotent so extra ticks are harmless.
func RunRolloverLoop(ctx context.Context, interval time.Duration, check func() bool) {
	if interval <= 0 {
		interval = time.Hour
	}
	if check() {
		log.Printf("server: rolled over to a new day on start")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if check() {
				log.Printf("server: rolled over to a new day")
			}
		}
	}
}
