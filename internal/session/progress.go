package session

import (
	"time"

	"rezscan/internal/config"
)

// nextProgress advances p by one step without passing ceiling
func nextProgress(p int, cfg config.ProgressConfig) int {
	if p >= cfg.Ceiling {
		return cfg.Ceiling
	}
	return min(p+cfg.Step, cfg.Ceiling)
}

// startProgress ticks the cosmetic progress value until the returned stop
// function is called. stop waits for the ticker goroutine to exit.
func (c *Controller) startProgress() (stop func()) {
	ticker := time.NewTicker(c.progressCfg.Interval)
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.mu.Lock()
				if c.state == StateSubmitting {
					c.progress = nextProgress(c.progress, c.progressCfg)
				}
				c.mu.Unlock()
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}
