package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"voxelbot.ai/internal/voxel"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.URL == "" || cfg.Executor.MaxOutstanding != 32 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Executor.Gas.Mode != "fixed" {
		t.Fatalf("gas mode = %q", cfg.Executor.Gas.Mode)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeConfig(t, `
server:
  url: ws://game.example:9000/ws
  agent_name: miner-7
  entity_id: ent-42
executor:
  gas:
    mode: estimate
    margin: 0.25
retry:
  max_attempts: 5
  base_delay_ms: 100
  max_delay_ms: 2000
  multiplier: 3
planner:
  passable_blocks: [0, 31]
modes:
  harvest:
    targets: [4, 7]
    chest: [10, 64, 10]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.URL != "ws://game.example:9000/ws" || cfg.Server.EntityID != "ent-42" {
		t.Fatalf("server = %+v", cfg.Server)
	}

	gas := cfg.GasProfile()
	if gas.Margin != 0.25 {
		t.Fatalf("gas = %+v", gas)
	}

	p := cfg.RetryPolicy()
	if p.MaxAttempts != 5 || p.BaseDelay != 100*time.Millisecond || p.Multiplier != 3 {
		t.Fatalf("retry = %+v", p)
	}

	passable := cfg.Passable()
	if !passable(voxel.Block{Type: 31}) || passable(voxel.Block{Type: 1}) {
		t.Fatal("passable predicate ignores configured set")
	}

	if cfg.Modes.Harvest.Chest == nil || *cfg.Modes.Harvest.Chest != [3]int{10, 64, 10} {
		t.Fatalf("chest = %v", cfg.Modes.Harvest.Chest)
	}
	// Untouched sections keep their defaults.
	if cfg.Movement.BatchSize != 8 {
		t.Fatalf("batch size = %d", cfg.Movement.BatchSize)
	}
}

func TestHarvestChestDistinguishesOriginFromAbsent(t *testing.T) {
	cfg, err := Load(writeConfig(t, "modes:\n  harvest:\n    targets: [4]\n    chest: [0, 0, 0]\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Modes.Harvest.Chest == nil || *cfg.Modes.Harvest.Chest != [3]int{} {
		t.Fatalf("chest at origin = %v, want present", cfg.Modes.Harvest.Chest)
	}

	cfg, err = Load(writeConfig(t, "modes:\n  harvest:\n    targets: [4]\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Modes.Harvest.Chest != nil {
		t.Fatalf("chest = %v, want absent", cfg.Modes.Harvest.Chest)
	}
}

func TestValidateRejectsBadGasMode(t *testing.T) {
	path := writeConfig(t, "executor:\n  gas:\n    mode: banana\n")
	if _, err := Load(path); err == nil {
		t.Fatal("want error for bad gas mode")
	}
}

func TestValidateRejectsEmptyHarvestTargets(t *testing.T) {
	cfg := Defaults()
	cfg.Modes.Harvest.Targets = nil
	cfg.Normalize()
	if err := cfg.Validate(); err == nil {
		t.Fatal("want error for empty targets")
	}
}

func TestCostModelRoundTrip(t *testing.T) {
	cfg := Defaults()
	m := cfg.CostModel()
	if m.UpPenaltyPerUnit != 5.0 || m.DownPenaltyPerUnit != 0.5 || m.MaxExpansions != 16384 {
		t.Fatalf("model = %+v", m)
	}
}
