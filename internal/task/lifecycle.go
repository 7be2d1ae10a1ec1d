package task

import (
	"fmt"
	"time"

	"github.com/rowanvale/questboard/internal/models"
	"gorm.io/gorm"
)

// Assign attaches the caller as assignee of a pending task and starts it.
// Any identity holding the task ID may take an unassigned task; once taken
// the task enters the assignee's visible set.
func Assign(gdb *gorm.DB, id, caller string) (*models.Task, error) {
	t, err := Get(gdb, id)
	if err != nil {
		return nil, err
	}
	if t.Assignee != nil {
		return nil, &ConflictError{Reason: "task already has an assignee"}
	}
	if t.Status != StatusPending {
		return nil, &ConflictError{Reason: fmt.Sprintf("cannot take a task in status %q", t.Status)}
	}

	now := time.Now()
	updates := map[string]interface{}{
		"assignee_id": caller,
		"status":      StatusInProgress,
		"start_at":    now,
	}
	if err := applyUpdates(gdb, t.ID, updates); err != nil {
		return nil, err
	}
	t.Assignee = &caller
	t.Status = StatusInProgress
	t.StartAt = &now
	return t, nil
}

// Close closes an unassigned task. Only the creator may close; a task with an
// assignee must be abandoned first. Closing an already-closed task is a no-op
// that returns the current state. The original status, start, and due values
// are snapshotted so Restart can undo the close, and the due date is rewritten
// to the retention deadline.
func Close(gdb *gorm.DB, id, caller string) (*models.Task, error) {
	t, err := Get(gdb, id)
	if err != nil {
		return nil, err
	}
	if t.Creator != caller {
		return nil, &ForbiddenError{Reason: "only the creator can close a task"}
	}
	if t.Status == StatusClosed {
		return t, nil
	}
	if t.Status == StatusCompleted || t.Status == StatusRefactored {
		return nil, &ConflictError{Reason: fmt.Sprintf("cannot close a task in status %q", t.Status)}
	}
	if t.Assignee != nil {
		return nil, &ConflictError{Reason: "ask the assignee to abandon the task before closing it"}
	}

	now := time.Now()
	deadline := now.Add(RetentionWindow)
	updates := map[string]interface{}{
		"original_status":   t.Status,
		"original_start_at": t.StartAt,
		"original_due_at":   t.DueAt,
		"status":            StatusClosed,
		"closed_at":         now,
		"due_at":            deadline,
		"delete_at":         deadline,
	}
	if err := applyUpdates(gdb, t.ID, updates); err != nil {
		return nil, err
	}
	return Get(gdb, t.ID)
}

// Restart reopens a closed task by restoring the pre-close snapshot. It
// requires a stored original due date; a closed task whose snapshot was
// never captured cannot be restarted.
func Restart(gdb *gorm.DB, id, caller string) (*models.Task, error) {
	t, err := Get(gdb, id)
	if err != nil {
		return nil, err
	}
	if t.Creator != caller {
		return nil, &ForbiddenError{Reason: "only the creator can restart a task"}
	}
	if t.Status != StatusClosed {
		return nil, &ConflictError{Reason: fmt.Sprintf("cannot restart a task in status %q", t.Status)}
	}
	if t.OriginalDueAt == nil {
		return nil, &ConflictError{Reason: "task has no snapshot to restart from"}
	}

	status := StatusPending
	if t.OriginalStatus != nil {
		status = *t.OriginalStatus
	}
	updates := map[string]interface{}{
		"status":            status,
		"due_at":            t.OriginalDueAt,
		"start_at":          t.OriginalStartAt,
		"closed_at":         nil,
		"delete_at":         nil,
		"original_status":   nil,
		"original_start_at": nil,
		"original_due_at":   nil,
	}
	if err := applyUpdates(gdb, t.ID, updates); err != nil {
		return nil, err
	}
	return Get(gdb, t.ID)
}

// UpdateProgress sets one subtask's current value, clamped into [0, total].
// Allowed only while the task is in progress, by the creator or assignee.
func UpdateProgress(gdb *gorm.DB, id, caller string, index, current int) (*models.Task, error) {
	t, err := Get(gdb, id)
	if err != nil {
		return nil, err
	}
	if !isParticipant(t, caller) {
		return nil, &ForbiddenError{Reason: "only the creator or assignee can update progress"}
	}
	if t.Status != StatusInProgress {
		return nil, &ConflictError{Reason: fmt.Sprintf("cannot update progress in status %q", t.Status)}
	}
	if index < 0 || index >= len(t.Subtasks) {
		return nil, &ValidationError{Reason: fmt.Sprintf("subtask index %d out of range", index)}
	}

	st := t.Subtasks[index]
	if current < 0 {
		current = 0
	}
	if current > st.Total {
		current = st.Total
	}
	if err := gdb.Model(&models.Subtask{}).Where("id = ?", st.ID).
		Update("current", current).Error; err != nil {
		return nil, fmt.Errorf("task: update progress %s[%d]: %w", id, index, err)
	}
	t.Subtasks[index].Current = current
	return t, nil
}

// SubmitReview moves an in-progress task to review, awaiting the creator's
// confirmation. Assignee only.
func SubmitReview(gdb *gorm.DB, id, caller string) (*models.Task, error) {
	t, err := Get(gdb, id)
	if err != nil {
		return nil, err
	}
	if t.Assignee == nil || *t.Assignee != caller {
		return nil, &ForbiddenError{Reason: "only the assignee can submit a task for review"}
	}
	if t.Status != StatusInProgress {
		return nil, &ConflictError{Reason: fmt.Sprintf("cannot submit for review in status %q", t.Status)}
	}
	if err := applyUpdates(gdb, t.ID, map[string]interface{}{"status": StatusReviewPending}); err != nil {
		return nil, err
	}
	t.Status = StatusReviewPending
	return t, nil
}

// Complete finishes a task: every subtask is forced to full progress and the
// status becomes completed. The retention deadline starts ticking so the
// archive entry expires eventually.
func Complete(gdb *gorm.DB, id, caller string) (*models.Task, error) {
	t, err := Get(gdb, id)
	if err != nil {
		return nil, err
	}
	if !isParticipant(t, caller) {
		return nil, &ForbiddenError{Reason: "only the creator or assignee can complete a task"}
	}
	if t.Status != StatusInProgress && t.Status != StatusReviewPending {
		return nil, &ConflictError{Reason: fmt.Sprintf("cannot complete a task in status %q", t.Status)}
	}

	now := time.Now()
	if err := gdb.Model(&models.Subtask{}).Where("task_id = ?", t.ID).
		Update("current", gorm.Expr("total")).Error; err != nil {
		return nil, fmt.Errorf("task: complete subtasks %s: %w", id, err)
	}
	updates := map[string]interface{}{
		"status":    StatusCompleted,
		"delete_at": now.Add(RetentionWindow),
	}
	if err := applyUpdates(gdb, t.ID, updates); err != nil {
		return nil, err
	}
	return Get(gdb, t.ID)
}

// Abandon detaches the assignee and returns the task to pending.
func Abandon(gdb *gorm.DB, id, caller string) (*models.Task, error) {
	t, err := Get(gdb, id)
	if err != nil {
		return nil, err
	}
	if t.Assignee == nil || *t.Assignee != caller {
		return nil, &ForbiddenError{Reason: "only the assignee can abandon a task"}
	}
	if t.Status != StatusInProgress && t.Status != StatusReviewPending {
		return nil, &ConflictError{Reason: fmt.Sprintf("cannot abandon a task in status %q", t.Status)}
	}

	updates := map[string]interface{}{
		"assignee_id": nil,
		"status":      StatusPending,
	}
	if err := applyUpdates(gdb, t.ID, updates); err != nil {
		return nil, err
	}
	t.Assignee = nil
	t.Status = StatusPending
	return t, nil
}

// isParticipant reports whether caller is the creator or current assignee.
func isParticipant(t *models.Task, caller string) bool {
	if t.Creator == caller {
		return true
	}
	return t.Assignee != nil && *t.Assignee == caller
}

// applyUpdates writes a column map to one task row.
func applyUpdates(gdb *gorm.DB, id string, updates map[string]interface{}) error {
	if err := gdb.Model(&models.Task{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("task: update %s: %w", id, err)
	}
	return nil
}
