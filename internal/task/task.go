// Package task provides task lifecycle operations, the view projections,
// and the retention bookkeeping around the rework chain.
package task

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rowanvale/questboard/internal/models"
	"gorm.io/gorm"
)

// Task statuses.
const (
	StatusPending             = "pending"
	StatusInProgress          = "in_progress"
	StatusReviewPending       = "review_pending"
	StatusPendingConfirmation = "pending_confirmation"
	StatusCompleted           = "completed"
	StatusClosed              = "closed"
	StatusRefactored          = "refactored"
)

// Attribute reward categories.
const (
	RewardStrength  = "strength"
	RewardIntellect = "intellect"
	RewardVitality  = "vitality"
)

// SystemIdentity is the creator identity of system-seeded challenge tasks.
// Tasks created by it are visible to every caller.
const SystemIdentity = "system"

// RetentionWindow is how long a closed or completed task stays visible and
// restorable before the reaper purges it.
const RetentionWindow = 7 * 24 * time.Hour

// DefaultIcon is the placeholder glyph assigned when a task has no icon.
const DefaultIcon = "📌"

// validStatuses is the closed set accepted by list filters.
var validStatuses = map[string]bool{
	StatusPending:             true,
	StatusInProgress:          true,
	StatusReviewPending:       true,
	StatusPendingConfirmation: true,
	StatusCompleted:           true,
	StatusClosed:              true,
	StatusRefactored:          true,
}

// SubtaskInput describes one subtask at creation or rework time.
type SubtaskInput struct {
	Title string
	Total int
}

// CreateOpts holds parameters for creating a new task.
type CreateOpts struct {
	Creator    string
	Title      string
	Detail     string
	Icon       string
	DueAt      time.Time
	Subtasks   []SubtaskInput
	Reward     models.AttributeReward
	SelfAssign bool
	SeedKey    string // set only by the challenge seeder
}

// GenerateID creates a unique task ID in task-xxxxxxxx format (8-char hex).
func GenerateID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("task: generate ID: %w", err)
	}
	return "task-" + hex.EncodeToString(b), nil
}

// generateUniqueID retries GenerateID until the ID is unused.
func generateUniqueID(gdb *gorm.DB) (string, error) {
	for i := 0; i < 10; i++ {
		id, err := GenerateID()
		if err != nil {
			return "", err
		}
		var count int64
		if err := gdb.Model(&models.Task{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return "", fmt.Errorf("task: check ID %s: %w", id, err)
		}
		if count == 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("task: could not generate a unique ID")
}

// validateContent checks the fields shared by create and rework.
func validateContent(title string, subtasks []SubtaskInput, reward models.AttributeReward) error {
	if title == "" {
		return &ValidationError{Reason: "title is required"}
	}
	if len(subtasks) == 0 {
		return &ValidationError{Reason: "at least one subtask is required"}
	}
	for i, st := range subtasks {
		if st.Title == "" {
			return &ValidationError{Reason: fmt.Sprintf("subtasks[%d].title is required", i)}
		}
		if st.Total < 1 {
			return &ValidationError{Reason: fmt.Sprintf("subtasks[%d].total must be at least 1", i)}
		}
	}
	switch reward.Type {
	case RewardStrength, RewardIntellect, RewardVitality:
	default:
		return &ValidationError{Reason: fmt.Sprintf("unknown reward type %q", reward.Type)}
	}
	if reward.Value <= 0 {
		return &ValidationError{Reason: "reward value must be positive"}
	}
	return nil
}

// Create creates a new task in status pending, or directly assigned to the
// creator when SelfAssign is set.
func Create(gdb *gorm.DB, opts CreateOpts) (*models.Task, error) {
	if opts.Creator == "" {
		return nil, &ValidationError{Reason: "creator is required"}
	}
	if opts.DueAt.IsZero() {
		return nil, &ValidationError{Reason: "dueAt is required"}
	}
	if err := validateContent(opts.Title, opts.Subtasks, opts.Reward); err != nil {
		return nil, err
	}

	id, err := generateUniqueID(gdb)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	due := opts.DueAt
	icon := opts.Icon
	if icon == "" {
		icon = DefaultIcon
	}

	t := models.Task{
		ID:      id,
		Title:   opts.Title,
		Detail:  opts.Detail,
		Icon:    icon,
		Status:  StatusPending,
		Creator: opts.Creator,
		DueAt:   &due,
		StartAt: &now,
		Reward:  opts.Reward,
	}
	if opts.SeedKey != "" {
		t.SeedKey = &opts.SeedKey
	}
	if opts.SelfAssign {
		assignee := opts.Creator
		t.Assignee = &assignee
		t.Status = StatusInProgress
	}
	for i, st := range opts.Subtasks {
		t.Subtasks = append(t.Subtasks, models.Subtask{
			Position: i,
			Title:    st.Title,
			Total:    st.Total,
		})
	}

	if err := gdb.Create(&t).Error; err != nil {
		return nil, fmt.Errorf("task: create: %w", err)
	}
	return &t, nil
}

// Get retrieves a task by ID with its subtasks in creation order.
func Get(gdb *gorm.DB, id string) (*models.Task, error) {
	var t models.Task
	err := gdb.Preload("Subtasks", func(gdb *gorm.DB) *gorm.DB {
		return gdb.Order("position ASC")
	}).Where("id = ?", id).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("task: get %s: %w", id, err)
	}
	return &t, nil
}

// GetFor retrieves a task and enforces visibility for the caller: the caller
// must be the creator or assignee, or the task must be system-seeded.
func GetFor(gdb *gorm.DB, id, identity string) (*models.Task, error) {
	t, err := Get(gdb, id)
	if err != nil {
		return nil, err
	}
	if !VisibleTo(t, identity) {
		return nil, &ForbiddenError{Reason: "task is not visible to caller"}
	}
	return t, nil
}

// VisibleTo reports whether identity may see the task.
func VisibleTo(t *models.Task, identity string) bool {
	if t.Creator == identity || t.Creator == SystemIdentity {
		return true
	}
	return t.Assignee != nil && *t.Assignee == identity
}

// List returns all tasks visible to identity, optionally filtered by status,
// in the deterministic view order.
func List(gdb *gorm.DB, identity, status string) ([]models.Task, error) {
	if status != "" && !validStatuses[status] {
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown status %q", status)}
	}
	q := visibleQuery(gdb, identity)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var tasks []models.Task
	if err := q.Preload("Subtasks", func(gdb *gorm.DB) *gorm.DB {
		return gdb.Order("position ASC")
	}).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("task: list for %s: %w", identity, err)
	}
	Sort(tasks)
	return tasks, nil
}

// visibleQuery scopes a query to the tasks identity may see.
func visibleQuery(gdb *gorm.DB, identity string) *gorm.DB {
	return gdb.Model(&models.Task{}).
		Where("(creator_id = ? OR assignee_id = ? OR creator_id = ?)", identity, identity, SystemIdentity)
}

// Progress sums subtask progress into (current, total) counts.
func Progress(t *models.Task) (current, total int) {
	for _, st := range t.Subtasks {
		current += st.Current
		total += st.Total
	}
	return current, total
}

// AffectedIdentities returns the identities that should be notified when the
// task changes: the creator plus the assignee, deduplicated.
func AffectedIdentities(t *models.Task) []string {
	ids := []string{t.Creator}
	if t.Assignee != nil && *t.Assignee != t.Creator {
		ids = append(ids, *t.Assignee)
	}
	return ids
}
