package task

import (
	"fmt"
	"time"

	"github.com/rowanvale/questboard/internal/models"
	"gorm.io/gorm"
)

// One-shot notification marker columns.
const (
	MarkerDueSoon          = "due_soon_notified_at"
	MarkerOverdue          = "overdue_notified_at"
	MarkerChallengeExpired = "challenge_expired_notified_at"
)

// MarkNotified stamps a one-shot marker with a single conditional write: the
// column is set only if it is still null. It returns true when this call won
// the stamp, false when another sweep (or a concurrent tick) got there first.
func MarkNotified(gdb *gorm.DB, taskID, marker string, at time.Time) (bool, error) {
	switch marker {
	case MarkerDueSoon, MarkerOverdue, MarkerChallengeExpired:
	default:
		return false, fmt.Errorf("task: unknown marker %q", marker)
	}
	res := gdb.Model(&models.Task{}).
		Where("id = ? AND "+marker+" IS NULL", taskID).
		Update(marker, at)
	if res.Error != nil {
		return false, fmt.Errorf("task: mark %s on %s: %w", marker, taskID, res.Error)
	}
	return res.RowsAffected == 1, nil
}
