package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestSweepCmd_Flags(t *testing.T) {
	cmd := newSweepCmd()
	if cmd.Use != "sweep" {
		t.Errorf("Use = %q, want %q", cmd.Use, "sweep")
	}
	for _, flag := range []string{"config", "reap", "hourly", "daily"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("expected --%s flag", flag)
		}
	}
}

func TestSweepCmd_RequiresAction(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"sweep", "--config", writeTestConfig(t)})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error when no sweep flag is passed")
	}
	if !strings.Contains(err.Error(), "nothing to do") {
		t.Errorf("error = %v", err)
	}
}

func TestSweepCmd_Reap(t *testing.T) {
	cfgPath := writeTestConfig(t)

	// Create the schema first; sweep assumes a migrated database.
	migrate := newRootCmd()
	migrate.SetOut(new(bytes.Buffer))
	migrate.SetArgs([]string{"migrate", "--config", cfgPath})
	if err := migrate.Execute(); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"sweep", "--reap", "--config", cfgPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("sweep --reap failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Purged 0 expired task(s)") {
		t.Errorf("expected reap summary, got: %s", buf.String())
	}
}
