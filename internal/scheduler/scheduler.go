// Package scheduler drives the recurring notification sweeps: an hourly pass
// for due-soon and overdue tasks, with an embedded daily pass for challenge
// seeding and expiry. Every notification is guarded by a one-shot marker so
// concurrent ticks never double-send.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rowanvale/questboard/internal/challenge"
	"github.com/rowanvale/questboard/internal/config"
	"github.com/rowanvale/questboard/internal/models"
	"github.com/rowanvale/questboard/internal/notify"
	"github.com/rowanvale/questboard/internal/task"
	"gorm.io/gorm"
)

// DueSoonWindow is how far ahead the hourly sweep looks for due dates.
const DueSoonWindow = time.Hour

// Scheduler owns the recurring sweeps against the task store.
type Scheduler struct {
	db         *gorm.DB
	gateway    notify.Gateway
	challenges []config.ChallengeConfig
	out        io.Writer
	lastDaily  time.Time
}

// Opts holds parameters for creating a Scheduler.
type Opts struct {
	DB         *gorm.DB
	Gateway    notify.Gateway
	Challenges []config.ChallengeConfig
	Out        io.Writer
}

// New creates a Scheduler.
func New(opts Opts) (*Scheduler, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("scheduler: db is required")
	}
	gw := opts.Gateway
	if gw == nil {
		gw = notify.Discard{}
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Scheduler{db: opts.DB, gateway: gw, challenges: opts.Challenges, out: out}, nil
}

// Run registers the hourly tick with cron and blocks until ctx is cancelled.
// One tick fires immediately at startup so a restarted process does not wait
// an hour to catch up.
func (s *Scheduler) Run(ctx context.Context) error {
	fmt.Fprintf(s.out, "Scheduler starting (hourly tick, embedded daily check)...\n")
	s.Tick(time.Now())

	c := cron.New()
	if _, err := c.AddFunc("@hourly", func() { s.Tick(time.Now()) }); err != nil {
		return fmt.Errorf("scheduler: register hourly tick: %w", err)
	}
	c.Start()
	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	fmt.Fprintf(s.out, "Scheduler stopped.\n")
	return nil
}

// Tick runs one hourly pass, plus the daily pass when the local day has
// changed since the previous tick.
func (s *Scheduler) Tick(now time.Time) {
	s.SweepDueSoon(now)
	s.SweepOverdue(now)

	if s.lastDaily.IsZero() || !sameDay(s.lastDaily, now) {
		s.lastDaily = now
		s.SeedChallenges(now)
		s.SweepChallengeExpired(now)
	}
}

// SweepDueSoon notifies, once, the participants of every assigned in-progress
// task whose due date falls within the next hour.
func (s *Scheduler) SweepDueSoon(now time.Time) {
	var tasks []models.Task
	err := s.db.Where("status = ? AND assignee_id IS NOT NULL", task.StatusInProgress).
		Where("due_at > ? AND due_at <= ?", now, now.Add(DueSoonWindow)).
		Where("due_soon_notified_at IS NULL").
		Find(&tasks).Error
	if err != nil {
		log.Printf("scheduler: due-soon query: %v", err)
		return
	}
	s.notifyOnce(tasks, task.MarkerDueSoon, now)
}

// SweepOverdue notifies, once, the participants of every assigned in-progress
// task already past its due date.
func (s *Scheduler) SweepOverdue(now time.Time) {
	var tasks []models.Task
	err := s.db.Where("status = ? AND assignee_id IS NOT NULL", task.StatusInProgress).
		Where("due_at <= ?", now).
		Where("overdue_notified_at IS NULL").
		Find(&tasks).Error
	if err != nil {
		log.Printf("scheduler: overdue query: %v", err)
		return
	}
	s.notifyOnce(tasks, task.MarkerOverdue, now)
}

// SweepChallengeExpired notifies, once, the assignees of system-seeded
// challenge tasks that lapsed unfinished.
func (s *Scheduler) SweepChallengeExpired(now time.Time) {
	var tasks []models.Task
	err := s.db.Where("seed_key IS NOT NULL AND assignee_id IS NOT NULL").
		Where("status = ? AND due_at < ?", task.StatusInProgress, now).
		Where("challenge_expired_notified_at IS NULL").
		Find(&tasks).Error
	if err != nil {
		log.Printf("scheduler: challenge-expired query: %v", err)
		return
	}
	s.notifyOnce(tasks, task.MarkerChallengeExpired, now)
}

// SeedChallenges creates today's system challenge tasks from config.
func (s *Scheduler) SeedChallenges(now time.Time) {
	if len(s.challenges) == 0 {
		return
	}
	n, err := challenge.SeedDaily(s.db, s.challenges, now)
	if err != nil {
		log.Printf("scheduler: seed challenges: %v", err)
		return
	}
	if n > 0 {
		fmt.Fprintf(s.out, "Scheduler seeded %d challenge task(s)\n", n)
	}
}

// notifyOnce stamps each task's marker with a guarded set-if-null write and
// notifies only when this tick won the stamp. A marker already set is
// silently skipped. One bad task never halts the sweep.
func (s *Scheduler) notifyOnce(tasks []models.Task, marker string, now time.Time) {
	for i := range tasks {
		t := &tasks[i]
		won, err := task.MarkNotified(s.db, t.ID, marker, now)
		if err != nil {
			log.Printf("scheduler: mark %s on %s: %v", marker, t.ID, err)
			continue
		}
		if !won {
			continue
		}
		s.gateway.TaskChanged(task.AffectedIdentities(t), t.ID)
	}
}

// sameDay reports whether two instants fall on the same local calendar day.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
