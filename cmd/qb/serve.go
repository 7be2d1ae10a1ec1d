package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rowanvale/questboard/internal/db"
	"github.com/rowanvale/questboard/internal/notify"
	"github.com/rowanvale/questboard/internal/reaper"
	"github.com/rowanvale/questboard/internal/scheduler"
	"github.com/rowanvale/questboard/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Questboard API server",
		Long:  "Runs the REST API, the real-time channel, the notification scheduler, and the retention reaper in one process.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "questboard.yaml", "path to Questboard config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, gdb, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gdb); err != nil {
		return err
	}
	if port <= 0 {
		port = cfg.Server.Port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	hub := notify.NewHub()
	gateway := append(notify.Fanout{hub}, pushGateways(cfg)...)

	sched, err := scheduler.New(scheduler.Opts{
		DB:         gdb,
		Gateway:    gateway,
		Challenges: cfg.Challenges,
		Out:        cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}
	go func() {
		if err := sched.Run(ctx); err != nil {
			log.Printf("scheduler: %v", err)
		}
	}()

	go reaper.Run(ctx, gdb, reaper.DefaultInterval, cmd.OutOrStdout())

	return server.Start(ctx, server.StartOpts{
		DB:       gdb,
		Port:     port,
		Resolver: server.StaticResolver(cfg.Auth.Tokens),
		Hub:      hub,
		Gateway:  gateway,
		Out:      cmd.OutOrStdout(),
	})
}
