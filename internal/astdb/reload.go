package astdb

import (
	"context"
	"time"
)

// StartAutoReload reloads the index every interval until ctx is done.
// A non-positive interval disables the loop.
func (idx *Index) StartAutoReload(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				idx.Reload()
			}
		}
	}()
}
