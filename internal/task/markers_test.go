package task

import (
	"testing"
	"time"
)

func TestMarkNotified_WinsOnce(t *testing.T) {
	gdb := openTestDB(t)
	tk := mustCreate(t, gdb, validOpts("alice"))

	now := time.Now()
	won, err := MarkNotified(gdb, tk.ID, MarkerDueSoon, now)
	if err != nil {
		t.Fatalf("MarkNotified() error: %v", err)
	}
	if !won {
		t.Fatal("first mark did not win")
	}

	// The second attempt finds the field set and loses silently.
	won, err = MarkNotified(gdb, tk.ID, MarkerDueSoon, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("second MarkNotified() error: %v", err)
	}
	if won {
		t.Error("second mark won; double notification possible")
	}

	reloaded := mustGet(t, gdb, tk.ID)
	if reloaded.DueSoonNotifiedAt == nil || !reloaded.DueSoonNotifiedAt.Equal(now) {
		t.Errorf("marker = %v, want first writer's %v", reloaded.DueSoonNotifiedAt, now)
	}
}

func TestMarkNotified_IndependentMarkers(t *testing.T) {
	gdb := openTestDB(t)
	tk := mustCreate(t, gdb, validOpts("alice"))
	now := time.Now()

	for _, marker := range []string{MarkerDueSoon, MarkerOverdue, MarkerChallengeExpired} {
		won, err := MarkNotified(gdb, tk.ID, marker, now)
		if err != nil {
			t.Fatalf("MarkNotified(%s) error: %v", marker, err)
		}
		if !won {
			t.Errorf("marker %s lost despite being unset", marker)
		}
	}
}

func TestMarkNotified_UnknownMarker(t *testing.T) {
	gdb := openTestDB(t)
	if _, err := MarkNotified(gdb, "task-00000000", "closed_at", time.Now()); err == nil {
		t.Error("arbitrary column accepted as marker")
	}
}
