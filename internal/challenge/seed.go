// Package challenge seeds the daily system-generated challenge tasks.
package challenge

import (
	"fmt"
	"time"

	"github.com/rowanvale/questboard/internal/config"
	"github.com/rowanvale/questboard/internal/models"
	"github.com/rowanvale/questboard/internal/task"
	"gorm.io/gorm"
)

// DatedKey builds the per-day seed key for a template, so seeding stays
// idempotent across repeated daily ticks.
func DatedKey(key string, day time.Time) string {
	return fmt.Sprintf("%s:%s", key, day.Format("2006-01-02"))
}

// SeedDaily creates one task per template for the given day, skipping
// templates already seeded. Challenge tasks are created by the system
// identity, due at the end of the local day, and are visible to everyone.
// It returns the number of tasks created.
func SeedDaily(gdb *gorm.DB, templates []config.ChallengeConfig, now time.Time) (int, error) {
	seeded := 0
	for _, tpl := range templates {
		key := DatedKey(tpl.Key, now)

		var count int64
		if err := gdb.Model(&models.Task{}).Where("seed_key = ?", key).Count(&count).Error; err != nil {
			return seeded, fmt.Errorf("challenge: check seed %s: %w", key, err)
		}
		if count > 0 {
			continue
		}

		subtasks := make([]task.SubtaskInput, 0, len(tpl.Subtasks))
		for _, st := range tpl.Subtasks {
			subtasks = append(subtasks, task.SubtaskInput{Title: st.Title, Total: st.Total})
		}
		if len(subtasks) == 0 {
			subtasks = []task.SubtaskInput{{Title: tpl.Title, Total: 1}}
		}

		rewardType := tpl.RewardType
		if rewardType == "" {
			rewardType = task.RewardVitality
		}

		_, err := task.Create(gdb, task.CreateOpts{
			Creator: task.SystemIdentity,
			Title:   tpl.Title,
			Detail:  tpl.Detail,
			Icon:    tpl.Icon,
			DueAt:   endOfDay(now),
			Subtasks: subtasks,
			Reward: models.AttributeReward{
				Type:  rewardType,
				Value: tpl.RewardValue,
			},
			SeedKey: key,
		})
		if err != nil {
			return seeded, fmt.Errorf("challenge: seed %s: %w", key, err)
		}
		seeded++
	}
	return seeded, nil
}

// endOfDay returns 23:59:59 of the given day in its location.
func endOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, now.Location())
}
