package task

import (
	"fmt"
	"time"

	"github.com/rowanvale/questboard/internal/models"
	"gorm.io/gorm"
)

// Rework outcomes.
const (
	// ReworkCreated: the task was superseded and a replacement was created.
	ReworkCreated = "created"
	// ReworkConfirmRequired: the task already has a superseded ancestor that
	// would be purged; the caller must re-submit with confirmation.
	ReworkConfirmRequired = "confirm_required"
	// ReworkUnchanged: the submitted fields are structurally identical to the
	// current ones; nothing was mutated.
	ReworkUnchanged = "unchanged"
)

// ReworkOpts holds the redefined task content.
type ReworkOpts struct {
	Title                 string
	Detail                string
	DueAt                 time.Time
	Subtasks              []SubtaskInput
	Reward                models.AttributeReward
	ConfirmDeletePrevious bool
}

// ReworkResult reports what a rework call did.
type ReworkResult struct {
	Outcome        string
	Task           *models.Task // the replacement task (created), or the untouched task (unchanged)
	PreviousTaskID string       // the ancestor needing confirmation (confirm_required)
}

// Rework redefines an active task. The original is marked refactored with an
// undo snapshot and a replacement task is created pointing back at it; the
// replacement awaits the assignee's confirmation when one exists. The ancestor
// is mutated before the replacement is written so a crash mid-sequence leaves
// an explicit refactored task rather than silent loss.
func Rework(gdb *gorm.DB, id, caller string, opts ReworkOpts) (*ReworkResult, error) {
	t, err := Get(gdb, id)
	if err != nil {
		return nil, err
	}
	if t.Creator != caller {
		return nil, &ForbiddenError{Reason: "only the creator can rework a task"}
	}
	switch t.Status {
	case StatusPending, StatusInProgress, StatusReviewPending:
	case StatusPendingConfirmation:
		return nil, &ConflictError{Reason: "task is already awaiting rework confirmation"}
	default:
		return nil, &ConflictError{Reason: fmt.Sprintf("cannot rework a task in status %q", t.Status)}
	}

	if t.PreviousTaskID != nil && !opts.ConfirmDeletePrevious {
		return &ReworkResult{Outcome: ReworkConfirmRequired, PreviousTaskID: *t.PreviousTaskID}, nil
	}

	if unchangedBy(t, opts) {
		return &ReworkResult{Outcome: ReworkUnchanged, Task: t}, nil
	}

	if opts.DueAt.IsZero() {
		return nil, &ValidationError{Reason: "dueAt is required"}
	}
	if err := validateContent(opts.Title, opts.Subtasks, opts.Reward); err != nil {
		return nil, err
	}

	newID, err := generateUniqueID(gdb)
	if err != nil {
		return nil, err
	}

	// Step 1: supersede the original, keeping its snapshot for cancel.
	supersede := map[string]interface{}{
		"original_status":   t.Status,
		"original_start_at": t.StartAt,
		"original_due_at":   t.DueAt,
		"status":            StatusRefactored,
	}
	if err := applyUpdates(gdb, t.ID, supersede); err != nil {
		return nil, err
	}

	// Step 2: create the replacement carrying the back-pointer.
	status := StatusPending
	if t.Assignee != nil {
		status = StatusPendingConfirmation
	}
	due := opts.DueAt
	replacement := models.Task{
		ID:             newID,
		Title:          opts.Title,
		Detail:         opts.Detail,
		Icon:           t.Icon,
		Status:         status,
		Creator:        t.Creator,
		Assignee:       t.Assignee,
		DueAt:          &due,
		StartAt:        t.StartAt,
		PreviousTaskID: &t.ID,
		Reward:         opts.Reward,
		SeedKey:        t.SeedKey,
	}
	for i, st := range opts.Subtasks {
		replacement.Subtasks = append(replacement.Subtasks, models.Subtask{
			Position: i,
			Title:    st.Title,
			Total:    st.Total,
		})
	}
	if err := gdb.Create(&replacement).Error; err != nil {
		return nil, fmt.Errorf("task: create rework of %s: %w", id, err)
	}

	// Step 3: prune the grandparent so the visible chain stays one hop. The
	// replacement of an unassigned task needs no confirmation step, so the
	// pruning happens here; assigned tasks prune on accept/reject instead.
	if t.Assignee == nil && t.PreviousTaskID != nil {
		if err := pruneAncestor(gdb, t); err != nil {
			return nil, err
		}
	}

	return &ReworkResult{Outcome: ReworkCreated, Task: &replacement}, nil
}

// AcceptRework confirms a redefined task: it starts, and the superseded
// grandparent (if any) is purged so the chain depth stays at one.
func AcceptRework(gdb *gorm.DB, id, caller string) (*models.Task, error) {
	t, err := Get(gdb, id)
	if err != nil {
		return nil, err
	}
	if t.Assignee == nil || *t.Assignee != caller {
		return nil, &ForbiddenError{Reason: "only the assignee can accept a rework"}
	}
	if t.Status != StatusPendingConfirmation {
		return nil, &ConflictError{Reason: fmt.Sprintf("cannot accept a task in status %q", t.Status)}
	}

	if err := applyUpdates(gdb, t.ID, map[string]interface{}{"status": StatusInProgress}); err != nil {
		return nil, err
	}
	t.Status = StatusInProgress

	if err := pruneGrandparent(gdb, t); err != nil {
		return nil, err
	}
	return t, nil
}

// RejectRework declines a redefined task: the task itself is closed with the
// assignee cleared and the retention window applied, and the superseded
// grandparent is purged.
func RejectRework(gdb *gorm.DB, id, caller string) (*models.Task, error) {
	t, err := Get(gdb, id)
	if err != nil {
		return nil, err
	}
	if t.Assignee == nil || *t.Assignee != caller {
		return nil, &ForbiddenError{Reason: "only the assignee can reject a rework"}
	}
	if t.Status != StatusPendingConfirmation {
		return nil, &ConflictError{Reason: fmt.Sprintf("cannot reject a task in status %q", t.Status)}
	}

	now := time.Now()
	deadline := now.Add(RetentionWindow)
	updates := map[string]interface{}{
		"assignee_id":       nil,
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

	if err := pruneGrandparent(gdb, t); err != nil {
		return nil, err
	}
	return Get(gdb, t.ID)
}

// CancelRework withdraws a pending-confirmation task: the replacement is
// deleted outright and the superseded ancestor is restored from its snapshot.
func CancelRework(gdb *gorm.DB, id, caller string) error {
	t, err := Get(gdb, id)
	if err != nil {
		return err
	}
	if t.Creator != caller {
		return &ForbiddenError{Reason: "only the creator can cancel a rework"}
	}
	if t.Status != StatusPendingConfirmation {
		return &ConflictError{Reason: fmt.Sprintf("cannot cancel a task in status %q", t.Status)}
	}

	if err := purge(gdb, t.ID); err != nil {
		return err
	}

	if t.PreviousTaskID == nil {
		return nil
	}
	ancestor, err := Get(gdb, *t.PreviousTaskID)
	if err != nil {
		if _, ok := err.(*NotFoundError); ok {
			return nil
		}
		return err
	}
	if ancestor.Status != StatusRefactored {
		return nil
	}
	status := StatusInProgress
	if ancestor.OriginalStatus != nil {
		status = *ancestor.OriginalStatus
	}
	restore := map[string]interface{}{
		"status":            status,
		"start_at":          ancestor.OriginalStartAt,
		"due_at":            ancestor.OriginalDueAt,
		"original_status":   nil,
		"original_start_at": nil,
		"original_due_at":   nil,
	}
	return applyUpdates(gdb, ancestor.ID, restore)
}

// Delete removes a task outright. Creator only. A refactored ancestor is
// purged with it so no superseded orphan survives.
func Delete(gdb *gorm.DB, id, caller string) error {
	t, err := Get(gdb, id)
	if err != nil {
		return err
	}
	if t.Creator != caller {
		return &ForbiddenError{Reason: "only the creator can delete a task"}
	}

	if t.PreviousTaskID != nil {
		if ancestor, err := Get(gdb, *t.PreviousTaskID); err == nil && ancestor.Status == StatusRefactored {
			if err := purge(gdb, ancestor.ID); err != nil {
				return err
			}
		}
	}
	return purge(gdb, t.ID)
}

// pruneGrandparent purges the superseded ancestor one hop behind the task's
// immediate parent and detaches the parent's back-pointer.
func pruneGrandparent(gdb *gorm.DB, t *models.Task) error {
	if t.PreviousTaskID == nil {
		return nil
	}
	parent, err := Get(gdb, *t.PreviousTaskID)
	if err != nil {
		if _, ok := err.(*NotFoundError); ok {
			return nil
		}
		return err
	}
	return pruneAncestor(gdb, parent)
}

// pruneAncestor purges t's own superseded ancestor and clears t's pointer.
// The ancestor is marked refactored before deletion so a crash between the
// two writes leaves a recoverable explicit state.
func pruneAncestor(gdb *gorm.DB, t *models.Task) error {
	if t.PreviousTaskID == nil {
		return nil
	}
	ancestorID := *t.PreviousTaskID
	if err := applyUpdates(gdb, ancestorID, map[string]interface{}{"status": StatusRefactored}); err != nil {
		return err
	}
	if err := purge(gdb, ancestorID); err != nil {
		return err
	}
	return applyUpdates(gdb, t.ID, map[string]interface{}{"previous_task_id": nil})
}

// purge physically deletes a task row and its subtasks.
func purge(gdb *gorm.DB, id string) error {
	if err := gdb.Where("task_id = ?", id).Delete(&models.Subtask{}).Error; err != nil {
		return fmt.Errorf("task: purge subtasks of %s: %w", id, err)
	}
	if err := gdb.Where("id = ?", id).Delete(&models.Task{}).Error; err != nil {
		return fmt.Errorf("task: purge %s: %w", id, err)
	}
	return nil
}

// unchangedBy reports structural equality between the task's current content
// and the submitted rework fields: title, detail, due date, reward, and the
// subtask list compared by title and total in order.
func unchangedBy(t *models.Task, opts ReworkOpts) bool {
	if t.Title != opts.Title || t.Detail != opts.Detail {
		return false
	}
	if t.DueAt == nil || !t.DueAt.Equal(opts.DueAt) {
		return false
	}
	if t.Reward.Type != opts.Reward.Type || t.Reward.Value != opts.Reward.Value {
		return false
	}
	if len(t.Subtasks) != len(opts.Subtasks) {
		return false
	}
	for i, st := range t.Subtasks {
		if st.Title != opts.Subtasks[i].Title || st.Total != opts.Subtasks[i].Total {
			return false
		}
	}
	return true
}
