// Package config loads the agent configuration from YAML, layering the file
// over built-in defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"voxelbot.ai/internal/bot/nav"
	"voxelbot.ai/internal/bot/txn"
	"voxelbot.ai/internal/voxel"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Executor ExecutorConfig `yaml:"executor"`
	Retry    RetryConfig    `yaml:"retry"`
	Planner  PlannerConfig  `yaml:"planner"`
	Movement MovementConfig `yaml:"movement"`
	Journal  JournalConfig  `yaml:"journal"`
	CycleLog CycleLogConfig `yaml:"cycle_log"`
	Modes    ModesConfig    `yaml:"modes"`
}

type ServerConfig struct {
	URL       string `yaml:"url"`
	AgentName string `yaml:"agent_name"`
	EntityID  string `yaml:"entity_id"`
}

type ExecutorConfig struct {
	MaxOutstanding int       `yaml:"max_outstanding"`
	Gas            GasConfig `yaml:"gas"`
}

type GasConfig struct {
	Mode   string  `yaml:"mode"` // "fixed" | "estimate"
	Limit  uint64  `yaml:"limit"`
	Price  uint64  `yaml:"price"`
	Margin float64 `yaml:"margin"`
}

type RetryConfig struct {
	MaxAttempts    int     `yaml:"max_attempts"`
	BaseDelayMs    int     `yaml:"base_delay_ms"`
	MaxDelayMs     int     `yaml:"max_delay_ms"`
	Multiplier     float64 `yaml:"multiplier"`
	JitterFraction float64 `yaml:"jitter_fraction"`
}

type PlannerConfig struct {
	UpPenaltyPerUnit   float64  `yaml:"up_penalty_per_unit"`
	DownPenaltyPerUnit float64  `yaml:"down_penalty_per_unit"`
	JumpChainPenalty   float64  `yaml:"jump_chain_penalty"`
	GoalDistance       float64  `yaml:"goal_distance"`
	MaxExpansions      int      `yaml:"max_expansions"`
	PreloadMargin      int      `yaml:"preload_margin"`
	PassableBlocks     []uint16 `yaml:"passable_blocks"`
}

type MovementConfig struct {
	BatchSize    int `yaml:"batch_size"`
	BatchDelayMs int `yaml:"batch_delay_ms"`
}

type JournalConfig struct {
	Path string `yaml:"path"`
}

type CycleLogConfig struct {
	Dir string `yaml:"dir"`
}

type ModesConfig struct {
	Survival SurvivalConfig `yaml:"survival"`
	Harvest  HarvestConfig  `yaml:"harvest"`
}

type SurvivalConfig struct {
	EnergyThreshold int64  `yaml:"energy_threshold"`
	FoodItem        uint16 `yaml:"food_item"`
}

type HarvestConfig struct {
	Targets []uint16 `yaml:"targets"`
	// Chest enables stash deposits when set; absent means no chest, so the
	// origin is a legal chest coordinate.
	Chest *[3]int `yaml:"chest"`
	// SearchRadius bounds the scan for the nearest target block.
	SearchRadius int `yaml:"search_radius"`
}

func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("agent config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("agent config: %w", err)
	}
	return cfg, nil
}

func Defaults() Config {
	model := nav.DefaultCostModel()
	retry := txn.DefaultRetryPolicy()
	return Config{
		Server: ServerConfig{
			URL:       "ws://127.0.0.1:8080/ws",
			AgentName: "voxelbot",
		},
		Executor: ExecutorConfig{
			MaxOutstanding: 32,
			Gas:            GasConfig{Mode: "fixed", Limit: 500_000, Price: 1},
		},
		Retry: RetryConfig{
			MaxAttempts:    retry.MaxAttempts,
			BaseDelayMs:    int(retry.BaseDelay / time.Millisecond),
			MaxDelayMs:     int(retry.MaxDelay / time.Millisecond),
			Multiplier:     retry.Multiplier,
			JitterFraction: retry.JitterFraction,
		},
		Planner: PlannerConfig{
			UpPenaltyPerUnit:   model.UpPenaltyPerUnit,
			DownPenaltyPerUnit: model.DownPenaltyPerUnit,
			JumpChainPenalty:   model.JumpChainPenalty,
			GoalDistance:       model.GoalDistance,
			MaxExpansions:      model.MaxExpansions,
			PreloadMargin:      model.PreloadMargin,
			PassableBlocks:     []uint16{0}, // air
		},
		Movement: MovementConfig{
			BatchSize:    8,
			BatchDelayMs: 250,
		},
		Journal:  JournalConfig{Path: "data/journal.db"},
		CycleLog: CycleLogConfig{Dir: "data/cycles"},
		Modes: ModesConfig{
			Survival: SurvivalConfig{EnergyThreshold: 30, FoodItem: 5},
			Harvest:  HarvestConfig{Targets: []uint16{4}, SearchRadius: 24},
		},
	}
}

// Normalize fills zero-valued fields where zero is never a meaningful
// setting.
func (c *Config) Normalize() {
	c.Server.URL = strings.TrimSpace(c.Server.URL)
	c.Server.AgentName = strings.TrimSpace(c.Server.AgentName)
	c.Server.EntityID = strings.TrimSpace(c.Server.EntityID)
	if c.Executor.MaxOutstanding <= 0 {
		c.Executor.MaxOutstanding = 32
	}
	c.Executor.Gas.Mode = strings.ToLower(strings.TrimSpace(c.Executor.Gas.Mode))
	if c.Executor.Gas.Mode == "" {
		c.Executor.Gas.Mode = "fixed"
	}
	if c.Retry.Multiplier <= 0 {
		c.Retry.Multiplier = 2
	}
	if c.Movement.BatchSize <= 0 {
		c.Movement.BatchSize = 8
	}
	if len(c.Planner.PassableBlocks) == 0 {
		c.Planner.PassableBlocks = []uint16{0}
	}
	if c.Modes.Harvest.SearchRadius <= 0 {
		c.Modes.Harvest.SearchRadius = 24
	}
}

func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url is required")
	}
	if c.Server.AgentName == "" {
		return fmt.Errorf("server.agent_name is required")
	}
	switch c.Executor.Gas.Mode {
	case "fixed", "estimate":
	default:
		return fmt.Errorf("executor.gas.mode %q: want fixed or estimate", c.Executor.Gas.Mode)
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts must be >= 0")
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("retry.multiplier must be >= 1")
	}
	if c.Planner.GoalDistance < 0 {
		return fmt.Errorf("planner.goal_distance must be >= 0")
	}
	if len(c.Modes.Harvest.Targets) == 0 {
		return fmt.Errorf("modes.harvest.targets must not be empty")
	}
	return nil
}

// RetryPolicy converts the wire-friendly milliseconds into the executor's
// policy.
func (c *Config) RetryPolicy() txn.RetryPolicy {
	return txn.RetryPolicy{
		MaxAttempts:    c.Retry.MaxAttempts,
		BaseDelay:      time.Duration(c.Retry.BaseDelayMs) * time.Millisecond,
		MaxDelay:       time.Duration(c.Retry.MaxDelayMs) * time.Millisecond,
		Multiplier:     c.Retry.Multiplier,
		JitterFraction: c.Retry.JitterFraction,
	}
}

func (c *Config) CostModel() nav.CostModel {
	return nav.CostModel{
		UpPenaltyPerUnit:   c.Planner.UpPenaltyPerUnit,
		DownPenaltyPerUnit: c.Planner.DownPenaltyPerUnit,
		JumpChainPenalty:   c.Planner.JumpChainPenalty,
		GoalDistance:       c.Planner.GoalDistance,
		MaxExpansions:      c.Planner.MaxExpansions,
		PreloadMargin:      c.Planner.PreloadMargin,
	}
}

func (c *Config) GasProfile() txn.GasProfile {
	if c.Executor.Gas.Mode == "estimate" {
		return txn.EstimateGas(c.Executor.Gas.Margin)
	}
	return txn.FixedGas(c.Executor.Gas.Limit, c.Executor.Gas.Price)
}

// Passable builds the planner predicate from the configured block type set.
func (c *Config) Passable() nav.Passable {
	set := make(map[uint16]bool, len(c.Planner.PassableBlocks))
	for _, id := range c.Planner.PassableBlocks {
		set[id] = true
	}
	return func(b voxel.Block) bool { return set[b.Type] }
}

func (c *Config) BatchDelay() time.Duration {
	return time.Duration(c.Movement.BatchDelayMs) * time.Millisecond
}
