package main

import (
	"fmt"
	"time"

	"github.com/rowanvale/questboard/internal/reaper"
	"github.com/rowanvale/questboard/internal/scheduler"
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	var (
		configPath string
		reap       bool
		hourly     bool
		daily      bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one-off maintenance sweeps",
		Long:  "Runs the retention reaper and/or the notification sweeps once and exits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !reap && !hourly && !daily {
				return fmt.Errorf("nothing to do: pass --reap, --hourly, or --daily")
			}
			cfg, gdb, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			now := time.Now()

			if reap {
				n, err := reaper.Sweep(gdb, now)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired task(s)\n", n)
			}

			if hourly || daily {
				sched, err := scheduler.New(scheduler.Opts{
					DB:         gdb,
					Gateway:    pushGateways(cfg),
					Challenges: cfg.Challenges,
					Out:        cmd.OutOrStdout(),
				})
				if err != nil {
					return err
				}
				if hourly {
					sched.SweepDueSoon(now)
					sched.SweepOverdue(now)
				}
				if daily {
					sched.SeedChallenges(now)
					sched.SweepChallengeExpired(now)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "questboard.yaml", "path to Questboard config file")
	cmd.Flags().BoolVar(&reap, "reap", false, "purge tasks past their retention deadline")
	cmd.Flags().BoolVar(&hourly, "hourly", false, "run the due-soon and overdue notification sweeps")
	cmd.Flags().BoolVar(&daily, "daily", false, "seed today's challenges and sweep expired ones")
	return cmd
}
