package task

import (
	"testing"
	"time"

	"github.com/rowanvale/questboard/internal/models"
	"gorm.io/gorm"
)

func reworkOptsFrom(tk *models.Task) ReworkOpts {
	opts := ReworkOpts{
		Title:  tk.Title,
		Detail: tk.Detail,
		Reward: tk.Reward,
	}
	if tk.DueAt != nil {
		opts.DueAt = *tk.DueAt
	}
	for _, st := range tk.Subtasks {
		opts.Subtasks = append(opts.Subtasks, SubtaskInput{Title: st.Title, Total: st.Total})
	}
	return opts
}

func countTasks(t *testing.T, gdb *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := gdb.Model(&models.Task{}).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func TestRework_UnchangedIsNoOp(t *testing.T) {
	gdb := openTestDB(t)
	tk := mustCreate(t, gdb, validOpts("alice"))

	res, err := Rework(gdb, tk.ID, "alice", reworkOptsFrom(tk))
	if err != nil {
		t.Fatalf("Rework() error: %v", err)
	}
	if res.Outcome != ReworkUnchanged {
		t.Fatalf("outcome = %q, want %q", res.Outcome, ReworkUnchanged)
	}
	if n := countTasks(t, gdb); n != 1 {
		t.Errorf("task count = %d, want 1 (no new task)", n)
	}
	reloaded, _ := Get(gdb, tk.ID)
	if reloaded.Status != StatusPending {
		t.Errorf("status mutated to %q", reloaded.Status)
	}
}

func TestRework_CreatorOnly(t *testing.T) {
	gdb := openTestDB(t)
	tk := mustCreate(t, gdb, validOpts("alice"))

	opts := reworkOptsFrom(tk)
	opts.Title = "Something else"
	if _, err := Rework(gdb, tk.ID, "bob", opts); err == nil {
		t.Error("non-creator reworked the task")
	} else if _, ok := err.(*ForbiddenError); !ok {
		t.Errorf("error = %v, want *ForbiddenError", err)
	}
}

func TestRework_AssignedCreatesPendingConfirmation(t *testing.T) {
	gdb := openTestDB(t)
	tk := mustCreate(t, gdb, validOpts("alice"))
	if _, err := Assign(gdb, tk.ID, "bob"); err != nil {
		t.Fatal(err)
	}

	opts := reworkOptsFrom(tk)
	opts.Title = "Water the plants twice"
	res, err := Rework(gdb, tk.ID, "alice", opts)
	if err != nil {
		t.Fatalf("Rework() error: %v", err)
	}
	if res.Outcome != ReworkCreated {
		t.Fatalf("outcome = %q, want %q", res.Outcome, ReworkCreated)
	}

	replacement := res.Task
	if replacement.Status != StatusPendingConfirmation {
		t.Errorf("status = %q, want %q", replacement.Status, StatusPendingConfirmation)
	}
	if replacement.Assignee == nil || *replacement.Assignee != "bob" {
		t.Errorf("assignee = %v, want inherited bob", replacement.Assignee)
	}
	if replacement.Creator != "alice" {
		t.Errorf("creator = %q, want alice", replacement.Creator)
	}
	if replacement.PreviousTaskID == nil || *replacement.PreviousTaskID != tk.ID {
		t.Errorf("previousTaskId = %v, want %s", replacement.PreviousTaskID, tk.ID)
	}

	ancestor, err := Get(gdb, tk.ID)
	if err != nil {
		t.Fatalf("ancestor gone: %v", err)
	}
	if ancestor.Status != StatusRefactored {
		t.Errorf("ancestor status = %q, want %q", ancestor.Status, StatusRefactored)
	}
	if ancestor.OriginalStatus == nil || *ancestor.OriginalStatus != StatusInProgress {
		t.Errorf("ancestor snapshot status = %v, want in_progress", ancestor.OriginalStatus)
	}
}

func TestRework_UnassignedCreatesPending(t *testing.T) {
	gdb := openTestDB(t)
	tk := mustCreate(t, gdb, validOpts("alice"))

	opts := reworkOptsFrom(tk)
	opts.Detail = "Skip the cactus"
	res, err := Rework(gdb, tk.ID, "alice", opts)
	if err != nil {
		t.Fatalf("Rework() error: %v", err)
	}
	if res.Task.Status != StatusPending {
		t.Errorf("status = %q, want %q", res.Task.Status, StatusPending)
	}
}

func TestRework_ConfirmationFlow(t *testing.T) {
	gdb := openTestDB(t)
	tk := mustCreate(t, gdb, validOpts("alice"))

	// First rework: no ancestor yet, no confirmation needed.
	opts := reworkOptsFrom(tk)
	opts.Title = "v2"
	res1, err := Rework(gdb, tk.ID, "alice", opts)
	if err != nil || res1.Outcome != ReworkCreated {
		t.Fatalf("first rework: outcome=%v err=%v", res1, err)
	}
	mid := res1.Task

	// Second rework without confirmation: signalled, nothing mutated.
	opts2 := reworkOptsFrom(mid)
	opts2.Title = "v3"
	res2, err := Rework(gdb, mid.ID, "alice", opts2)
	if err != nil {
		t.Fatalf("second rework error: %v", err)
	}
	if res2.Outcome != ReworkConfirmRequired {
		t.Fatalf("outcome = %q, want %q", res2.Outcome, ReworkConfirmRequired)
	}
	if res2.PreviousTaskID != tk.ID {
		t.Errorf("confirmation carries ancestor %q, want %q", res2.PreviousTaskID, tk.ID)
	}
	if n := countTasks(t, gdb); n != 2 {
		t.Errorf("task count = %d, want 2 (no mutation without confirmation)", n)
	}
	if reloaded, _ := Get(gdb, mid.ID); reloaded.Status != StatusPending {
		t.Errorf("status mutated to %q without confirmation", reloaded.Status)
	}

	// Re-submitting with confirmation prunes the grandparent.
	opts2.ConfirmDeletePrevious = true
	res3, err := Rework(gdb, mid.ID, "alice", opts2)
	if err != nil {
		t.Fatalf("confirmed rework error: %v", err)
	}
	if res3.Outcome != ReworkCreated {
		t.Fatalf("outcome = %q, want %q", res3.Outcome, ReworkCreated)
	}
	if _, err := Get(gdb, tk.ID); err == nil {
		t.Error("grandparent survived the confirmed rework")
	}
	parent, err := Get(gdb, mid.ID)
	if err != nil {
		t.Fatalf("parent gone: %v", err)
	}
	if parent.PreviousTaskID != nil {
		t.Errorf("parent still points at pruned grandparent %v", *parent.PreviousTaskID)
	}
	if res3.Task.PreviousTaskID == nil || *res3.Task.PreviousTaskID != mid.ID {
		t.Errorf("new task points at %v, want immediate parent %s", res3.Task.PreviousTaskID, mid.ID)
	}
}

func TestAcceptRework_PrunesChain(t *testing.T) {
	gdb := openTestDB(t)
	tk := mustCreate(t, gdb, validOpts("alice"))
	if _, err := Assign(gdb, tk.ID, "bob"); err != nil {
		t.Fatal(err)
	}

	opts := reworkOptsFrom(tk)
	opts.Title = "v2"
	res1, err := Rework(gdb, tk.ID, "alice", opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := AcceptRework(gdb, res1.Task.ID, "bob"); err != nil {
		t.Fatalf("AcceptRework() error: %v", err)
	}

	// Rework again and accept: the chain must stay one hop deep.
	opts2 := reworkOptsFrom(res1.Task)
	opts2.Title = "v3"
	opts2.ConfirmDeletePrevious = true
	res2, err := Rework(gdb, res1.Task.ID, "alice", opts2)
	if err != nil {
		t.Fatal(err)
	}
	accepted, err := AcceptRework(gdb, res2.Task.ID, "bob")
	if err != nil {
		t.Fatalf("second AcceptRework() error: %v", err)
	}
	if accepted.Status != StatusInProgress {
		t.Errorf("status = %q, want %q", accepted.Status, StatusInProgress)
	}
	if accepted.PreviousTaskID == nil {
		t.Fatal("accepted task lost its parent pointer")
	}
	parent, err := Get(gdb, *accepted.PreviousTaskID)
	if err != nil {
		t.Fatalf("parent gone: %v", err)
	}
	if parent.PreviousTaskID != nil {
		t.Errorf("chain depth exceeds one hop: parent still points at %v", *parent.PreviousTaskID)
	}
	if _, err := Get(gdb, tk.ID); err == nil {
		t.Error("grandparent survived accept")
	}
}

func TestRejectRework_ClosesTask(t *testing.T) {
	gdb := openTestDB(t)
	tk := mustCreate(t, gdb, validOpts("alice"))
	if _, err := Assign(gdb, tk.ID, "bob"); err != nil {
		t.Fatal(err)
	}
	opts := reworkOptsFrom(tk)
	opts.Title = "v2"
	res, err := Rework(gdb, tk.ID, "alice", opts)
	if err != nil {
		t.Fatal(err)
	}

	rejected, err := RejectRework(gdb, res.Task.ID, "bob")
	if err != nil {
		t.Fatalf("RejectRework() error: %v", err)
	}
	if rejected.Status != StatusClosed {
		t.Errorf("status = %q, want %q", rejected.Status, StatusClosed)
	}
	if rejected.Assignee != nil {
		t.Errorf("assignee = %v, want cleared", *rejected.Assignee)
	}
	if rejected.DeleteAt == nil {
		t.Error("retention window not applied")
	}
}

func TestCancelRework_RestoresAncestor(t *testing.T) {
	gdb := openTestDB(t)
	tk := mustCreate(t, gdb, validOpts("alice"))
	if _, err := Assign(gdb, tk.ID, "bob"); err != nil {
		t.Fatal(err)
	}
	wantDue := *tk.DueAt

	opts := reworkOptsFrom(tk)
	opts.Title = "v2"
	res, err := Rework(gdb, tk.ID, "alice", opts)
	if err != nil {
		t.Fatal(err)
	}

	if err := CancelRework(gdb, res.Task.ID, "bob"); err == nil {
		t.Error("non-creator cancelled the rework")
	}
	if err := CancelRework(gdb, res.Task.ID, "alice"); err != nil {
		t.Fatalf("CancelRework() error: %v", err)
	}

	if _, err := Get(gdb, res.Task.ID); err == nil {
		t.Error("cancelled replacement still exists")
	}
	ancestor, err := Get(gdb, tk.ID)
	if err != nil {
		t.Fatalf("ancestor gone: %v", err)
	}
	if ancestor.Status != StatusInProgress {
		t.Errorf("ancestor status = %q, want restored %q", ancestor.Status, StatusInProgress)
	}
	if ancestor.DueAt == nil || !ancestor.DueAt.Equal(wantDue) {
		t.Errorf("ancestor dueAt = %v, want restored %v", ancestor.DueAt, wantDue)
	}
	if ancestor.OriginalStatus != nil {
		t.Error("ancestor snapshot not cleared")
	}
}

func TestRework_PendingConfirmationConflicts(t *testing.T) {
	gdb := openTestDB(t)
	tk := mustCreate(t, gdb, validOpts("alice"))
	if _, err := Assign(gdb, tk.ID, "bob"); err != nil {
		t.Fatal(err)
	}
	opts := reworkOptsFrom(tk)
	opts.Title = "v2"
	res, err := Rework(gdb, tk.ID, "alice", opts)
	if err != nil {
		t.Fatal(err)
	}

	opts2 := reworkOptsFrom(res.Task)
	opts2.Title = "v3"
	opts2.ConfirmDeletePrevious = true
	if _, err := Rework(gdb, res.Task.ID, "alice", opts2); err == nil {
		t.Error("reworked a task already awaiting confirmation")
	} else if _, ok := err.(*ConflictError); !ok {
		t.Errorf("error = %v, want *ConflictError", err)
	}
}

func TestDelete_PrunesRefactoredAncestor(t *testing.T) {
	gdb := openTestDB(t)
	tk := mustCreate(t, gdb, validOpts("alice"))
	opts := reworkOptsFrom(tk)
	opts.Title = "v2"
	res, err := Rework(gdb, tk.ID, "alice", opts)
	if err != nil {
		t.Fatal(err)
	}

	if err := Delete(gdb, res.Task.ID, "bob"); err == nil {
		t.Error("non-creator deleted the task")
	}
	if err := Delete(gdb, res.Task.ID, "alice"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if n := countTasks(t, gdb); n != 0 {
		t.Errorf("task count = %d, want 0 (ancestor pruned with task)", n)
	}
	var subtasks int64
	gdb.Model(&models.Subtask{}).Count(&subtasks)
	if subtasks != 0 {
		t.Errorf("orphaned subtasks = %d", subtasks)
	}
}

// A crash between superseding the ancestor and pruning leaves the ancestor in
// an explicit refactored state; the structural-equality check keeps a replayed
// identical rework from stacking a second replacement.
func TestRework_ReplayAfterCreate(t *testing.T) {
	gdb := openTestDB(t)
	tk := mustCreate(t, gdb, validOpts("alice"))
	opts := reworkOptsFrom(tk)
	opts.Title = "v2"
	opts.DueAt = time.Now().Add(48 * time.Hour)
	res, err := Rework(gdb, tk.ID, "alice", opts)
	if err != nil {
		t.Fatal(err)
	}

	replayOpts := reworkOptsFrom(mustGet(t, gdb, res.Task.ID))
	replayOpts.ConfirmDeletePrevious = true
	replay, err := Rework(gdb, res.Task.ID, "alice", replayOpts)
	if err != nil {
		t.Fatalf("replay error: %v", err)
	}
	if replay.Outcome != ReworkUnchanged {
		t.Errorf("replay outcome = %q, want %q", replay.Outcome, ReworkUnchanged)
	}
}

func mustGet(t *testing.T, gdb *gorm.DB, id string) *models.Task {
	t.Helper()
	tk, err := Get(gdb, id)
	if err != nil {
		t.Fatal(err)
	}
	return tk
}
