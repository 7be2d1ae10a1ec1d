// Package reaper purges tasks whose retention window has lapsed.
package reaper

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/rowanvale/questboard/internal/models"
	"gorm.io/gorm"
)

// DefaultInterval is how often the background sweep runs.
const DefaultInterval = 15 * time.Minute

// Sweep deletes every task whose delete_at is set and in the past, together
// with its subtasks. Tasks with a null or future delete_at are never touched.
// It returns the number of tasks purged.
func Sweep(gdb *gorm.DB, now time.Time) (int, error) {
	var ids []string
	if err := gdb.Model(&models.Task{}).
		Where("delete_at IS NOT NULL AND delete_at <= ?", now).
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("reaper: find expired: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := gdb.Where("task_id IN ?", ids).Delete(&models.Subtask{}).Error; err != nil {
		return 0, fmt.Errorf("reaper: purge subtasks: %w", err)
	}
	if err := gdb.Where("id IN ?", ids).Delete(&models.Task{}).Error; err != nil {
		return 0, fmt.Errorf("reaper: purge tasks: %w", err)
	}
	return len(ids), nil
}

// Run sweeps on a fixed interval until ctx is cancelled. Sweep errors are
// logged and the loop continues.
func Run(ctx context.Context, gdb *gorm.DB, interval time.Duration, out io.Writer) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if out == nil {
		out = io.Discard
	}
	fmt.Fprintf(out, "Reaper starting (sweep every %s)...\n", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(out, "Reaper stopped.\n")
			return
		case <-ticker.C:
			n, err := Sweep(gdb, time.Now())
			if err != nil {
				log.Printf("reaper: sweep: %v", err)
				continue
			}
			if n > 0 {
				fmt.Fprintf(out, "Reaper purged %d expired task(s)\n", n)
			}
		}
	}
}
