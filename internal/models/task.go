package models

import "time"

// Task is the core work item in Questboard. It carries the rework chain
// back-pointer, the pre-close undo snapshot, and the one-shot notification
// markers inline; there is no separate audit table.
type Task struct {
	ID      string  `gorm:"primaryKey;size:32" json:"id"`
	Title   string  `gorm:"not null" json:"title"`
	Detail  string  `gorm:"type:text" json:"detail"`
	Icon    string  `gorm:"size:16" json:"icon"`
	Status  string  `gorm:"size:24;default:pending;index" json:"status"`
	Creator string  `gorm:"column:creator_id;size:64;not null;index" json:"creatorId"`
	Assignee *string `gorm:"column:assignee_id;size:64;index" json:"assigneeId"`

	DueAt     *time.Time `json:"dueAt"`
	StartAt   *time.Time `json:"startAt"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"-"`
	ClosedAt  *time.Time `json:"closedAt"`
	DeleteAt  *time.Time `gorm:"index" json:"deleteAt"`

	// Rework chain back-pointer. Singly linked, acyclic; chain pruning keeps
	// the visible depth at one hop.
	PreviousTaskID *string `gorm:"size:32;index" json:"previousTaskId"`

	// Undo snapshot captured before close/rework so restart and cancel-rework
	// can restore the task.
	OriginalStatus  *string    `gorm:"size:24" json:"originalStatus,omitempty"`
	OriginalStartAt *time.Time `json:"originalStartAt,omitempty"`
	OriginalDueAt   *time.Time `json:"originalDueAt,omitempty"`

	Reward   AttributeReward `gorm:"embedded;embeddedPrefix:reward_" json:"attributeReward"`
	Subtasks []Subtask       `gorm:"foreignKey:TaskID" json:"subtasks"`

	// SeedKey identifies system-generated challenge tasks; nil for user tasks.
	SeedKey *string `gorm:"size:64;index" json:"seedKey,omitempty"`

	// One-shot scheduler markers. Written with a guarded set-if-null update.
	DueSoonNotifiedAt          *time.Time `json:"-"`
	OverdueNotifiedAt          *time.Time `json:"-"`
	ChallengeExpiredNotifiedAt *time.Time `json:"-"`
}

// AttributeReward is the immutable gameplay payload attached at creation.
type AttributeReward struct {
	Type  string `gorm:"size:16" json:"type"`
	Value int    `json:"value"`
}

// Subtask is one checklist entry of a task. Position preserves the order
// the creator defined; Current is clamped into [0, Total] on every write.
type Subtask struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	TaskID   string `gorm:"size:32;index;not null" json:"-"`
	Position int    `gorm:"not null" json:"-"`
	Title    string `gorm:"not null" json:"title"`
	Current  int    `gorm:"default:0" json:"current"`
	Total    int    `gorm:"not null" json:"total"`
}
