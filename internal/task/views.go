package task

import (
	"fmt"
	"sort"
	"time"

	"github.com/rowanvale/questboard/internal/models"
	"gorm.io/gorm"
)

// The three client-facing projections. All are read-only; none mutates the
// store. Superseded rework ancestors (tasks referenced by some other task's
// previous_task_id) are hidden from the active views.

// Mission returns the tasks identity is working on: assigned to them and in
// an active status.
func Mission(gdb *gorm.DB, identity string) ([]models.Task, error) {
	var tasks []models.Task
	err := gdb.Model(&models.Task{}).
		Where("assignee_id = ?", identity).
		Where("status IN ?", []string{StatusInProgress, StatusReviewPending, StatusPendingConfirmation}).
		Where("id NOT IN (?)", supersededIDs(gdb)).
		Preload("Subtasks", func(gdb *gorm.DB) *gorm.DB {
			return gdb.Order("position ASC")
		}).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("task: mission view for %s: %w", identity, err)
	}
	Sort(tasks)
	return tasks, nil
}

// Collaboration returns the tasks identity created that are still live: not
// completed or superseded, and closed ones only while their retention window
// (carried in due_at after close) has not lapsed.
func Collaboration(gdb *gorm.DB, identity string, now time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := gdb.Model(&models.Task{}).
		Where("creator_id = ?", identity).
		Where("status NOT IN ?", []string{StatusCompleted, StatusRefactored}).
		Where("(status <> ? OR due_at >= ?)", StatusClosed, now).
		Where("id NOT IN (?)", supersededIDs(gdb)).
		Preload("Subtasks", func(gdb *gorm.DB) *gorm.DB {
			return gdb.Order("position ASC")
		}).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("task: collaboration view for %s: %w", identity, err)
	}
	Sort(tasks)
	return tasks, nil
}

// Archive returns the completed tasks visible to identity.
func Archive(gdb *gorm.DB, identity string) ([]models.Task, error) {
	var tasks []models.Task
	err := visibleQuery(gdb, identity).
		Where("status = ?", StatusCompleted).
		Preload("Subtasks", func(gdb *gorm.DB) *gorm.DB {
			return gdb.Order("position ASC")
		}).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("task: archive view for %s: %w", identity, err)
	}
	Sort(tasks)
	return tasks, nil
}

// supersededIDs is a subquery of task IDs referenced as someone's ancestor.
func supersededIDs(gdb *gorm.DB) *gorm.DB {
	return gdb.Model(&models.Task{}).
		Select("previous_task_id").
		Where("previous_task_id IS NOT NULL")
}

// Sort orders tasks in place for display: completed last, then ascending due
// date with undated tasks at the end, then ascending creation time. The order
// is stable, so identical inputs always project identically.
func Sort(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		ac, bc := a.Status == StatusCompleted, b.Status == StatusCompleted
		if ac != bc {
			return bc
		}
		switch {
		case a.DueAt == nil && b.DueAt == nil:
		case a.DueAt == nil:
			return false
		case b.DueAt == nil:
			return true
		case !a.DueAt.Equal(*b.DueAt):
			return a.DueAt.Before(*b.DueAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
