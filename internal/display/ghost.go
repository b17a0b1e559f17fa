package display

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/devices/v3/ssd1306/image1bit"

	"PaperTicker/internal/render"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the Sleeper used outside tests.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GhostFix alternates full black and full white frames to wash out residual
// images. It runs at most iterations cycles, dwelling after every frame, and
// returns how many cycles completed. onCycle, if set, is called after each one.
func GhostFix(ctx context.Context, d Display, iterations int, dwell time.Duration, sleep Sleeper, onCycle func(n int)) (int, error) {
	if sleep == nil {
		sleep = SleepContext
	}
	black := render.Fill(d.Bounds(), image1bit.Off)
	white := render.Fill(d.Bounds(), image1bit.On)

	done := 0
	for done < iterations {
		for _, frame := range []*image1bit.VerticalLSB{black, white} {
			if err := d.Init(); err != nil {
				return done, fmt.Errorf("ghost fix cycle %d: %w", done+1, err)
			}
			if err := d.Show(frame); err != nil {
				return done, fmt.Errorf("ghost fix cycle %d: %w", done+1, err)
			}
			if err := sleep(ctx, dwell); err != nil {
				return done, err
			}
		}
		done++
		if onCycle != nil {
			onCycle(done)
		}
	}
	return done, nil
}
