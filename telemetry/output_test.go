package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/sprout/config"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("expected nil manager, got %v, %v", om, err)
	}
	// Nil manager is a no-op
	if err := om.WriteTick(TickRecord{}); err != nil {
		t.Errorf("nil WriteTick: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}

func TestOutputManagerHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	for i := int64(1); i <= 3; i++ {
		if err := om.WriteTick(TickRecord{Tick: i, Elapsed: 1}); err != nil {
			t.Fatalf("WriteTick: %v", err)
		}
	}
	if err := om.WriteSync(SyncRecord{Seq: 1, ID: "a"}); err != nil {
		t.Fatalf("WriteSync: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "ticks.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "tick,") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if strings.Count(string(data), "tick,sim_time") != 1 {
		t.Error("header written more than once")
	}

	syncData, err := os.ReadFile(filepath.Join(dir, "sync.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(syncData), "seq,id,") {
		t.Errorf("unexpected sync.csv header: %q", string(syncData))
	}
}

func TestOutputManagerWriteConfig(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer om.Close()

	if err := om.WriteConfig(cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config.yaml missing: %v", err)
	}
}
