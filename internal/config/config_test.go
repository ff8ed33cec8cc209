package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("SIM_SPEED", "")

	cfg, err := load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ArchiveEnabled() {
		t.Error("archive should be disabled without a DSN")
	}
	if cfg.Sim.TickRate != 60 || cfg.Sim.HalfMinutes != 45 || cfg.Sim.PreMatchWindow != 20 || cfg.Sim.HalftimeWindow != 15 {
		t.Errorf("sim defaults = %+v", cfg.Sim)
	}
	if cfg.Sim.GoalPauseMin != 500*time.Millisecond || cfg.Sim.GoalPauseMax != time.Second {
		t.Errorf("goal pause = %s..%s", cfg.Sim.GoalPauseMin, cfg.Sim.GoalPauseMax)
	}
	if cfg.Odds.Margin != 0.05 || cfg.Odds.Ceiling != 1000 || cfg.Odds.MaxGoals != 8 {
		t.Errorf("odds defaults = %+v", cfg.Odds)
	}
	if cfg.TickInterval() != time.Second/60 {
		t.Errorf("TickInterval = %s", cfg.TickInterval())
	}
}

func TestLoad_ParsesOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SIM_AUTO_START", "false")
	t.Setenv("SIM_SEED", "42")
	t.Setenv("DB_HOST", "db.local")

	cfg, err := load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("brokers = %q", cfg.Kafka.Brokers)
	}
	if cfg.Sim.AutoStart || cfg.Sim.Seed != 42 {
		t.Errorf("sim = %+v", cfg.Sim)
	}
	if !strings.Contains(cfg.DB.DSN, "host=db.local") {
		t.Errorf("DSN = %q", cfg.DB.DSN)
	}
}

func TestLoad_RejectsMalformedNumbers(t *testing.T) {
	t.Setenv("SIM_TICK_RATE", "fast")
	if _, err := load(); err == nil || !strings.Contains(err.Error(), "SIM_TICK_RATE") {
		t.Errorf("load error = %v, want SIM_TICK_RATE failure", err)
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Setenv("OPERATOR_JWT_SECRET", "")
	cfg, err := load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Sim.Speed = 20
	cfg.Ledger.StartingBalance = 0

	err = cfg.Validate()
	if err == nil {
		t.Fatal("Validate should fail")
	}
	for _, want := range []string{"OPERATOR_JWT_SECRET", "SIM_SPEED", "LEDGER_STARTING_BALANCE"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate error %q is missing %s", err, want)
		}
	}

	cfg.Operator.JWTSecret = "s3cret"
	cfg.Sim.Speed = 1
	cfg.Ledger.StartingBalance = 1000
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate after fixes: %v", err)
	}
}
