// Package config provides application configuration loaded from environment variables.
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port                 string        // e.g. "8080"
	BackofficePort       string        // e.g. "8081"
	Env                  string        // "development" | "production"
	ReadTimeout          time.Duration // default 10s
	WriteTimeout         time.Duration // default 10s
	AllowedOrigins       []string      // CORS origins; empty = "*"
	BackofficeAllowedIPs string        // comma-separated IPs; "" = allow all
}

// DBConfig holds PostgreSQL connection settings.  An empty DSN disables the
// match/bet archive.
type DBConfig struct {
	DSN             string
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
	MigrationsDir   string        // default "migrations"
}

// RedisConfig holds the odds cache / fan-out settings.  An empty Addr
// disables Redis.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	OddsChannel string        // pub/sub channel for board updates
	OddsTTL     time.Duration // TTL of the cached board
	SimTTL      time.Duration // TTL of cached fast-simulation results
}

// KafkaConfig holds the lifecycle event stream settings.  No brokers
// disables the stream.
type KafkaConfig struct {
	Brokers    []string
	Topic      string
	BufferSize int // events queued before the publisher starts dropping
}

// OperatorConfig holds control-plane authentication settings.
type OperatorConfig struct {
	JWTSecret    string        // must be set
	TokenTTL     time.Duration // default 1h
	Username     string        // default "operator"
	PasswordHash string        // bcrypt hash; empty disables login
}

// SimConfig holds the match simulation settings.
type SimConfig struct {
	TickRate          int           // ticks per second, default 60
	BroadcastInterval time.Duration // snapshot push interval, default 50ms
	Speed             float64       // initial speed multiplier
	TotalMatches      int           // matches per series
	HalfMinutes       float64       // regulation length of one half
	PreMatchWindow    int           // seconds
	HalftimeWindow    int           // seconds
	CountdownWarning  int           // seconds left at which the countdown warns
	GoalPauseMin      time.Duration
	GoalPauseMax      time.Duration
	NextMatchDelay    time.Duration // between matches of a series
	SingleModeDelay   time.Duration // before the replay in single mode
	AutoStart         bool          // start a series at boot
	Seed              uint64        // 0 = seeded from the clock
}

// OddsConfig holds pricing settings.
type OddsConfig struct {
	Margin   float64 // bookmaker over-round
	Ceiling  float64 // odds above this are withdrawn
	MaxGoals int     // Poisson grid bound per side
}

// LedgerConfig holds bet ledger settings.
type LedgerConfig struct {
	StartingBalance float64
	MaxStake        float64 // 0 = balance is the only limit
}

// FormationsConfig points at an optional YAML catalog.
type FormationsConfig struct {
	File string
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Operator   OperatorConfig
	Sim        SimConfig
	Odds       OddsConfig
	Ledger     LedgerConfig
	Formations FormationsConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// ArchiveEnabled reports whether a Postgres archive is configured.
func (c *Config) ArchiveEnabled() bool { return c.DB.DSN != "" }

// TickInterval returns the wall-clock period of one simulation tick.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.Sim.TickRate)
}

// Validate checks that all required configuration values are present and valid.
// Every problem found is reported.
func (c *Config) Validate() error {
	var errs []error

	if c.Operator.JWTSecret == "" {
		errs = append(errs, errors.New("OPERATOR_JWT_SECRET must be set"))
	}
	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}

	if c.Sim.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("SIM_TICK_RATE must be positive, got %d", c.Sim.TickRate))
	}
	if c.Sim.Speed < 0.25 || c.Sim.Speed > 10 {
		errs = append(errs, fmt.Errorf("SIM_SPEED must be within [0.25, 10], got %.2f", c.Sim.Speed))
	}
	if c.Sim.TotalMatches < 1 {
		errs = append(errs, fmt.Errorf("SIM_TOTAL_MATCHES must be >= 1, got %d", c.Sim.TotalMatches))
	}
	if c.Sim.HalfMinutes <= 0 {
		errs = append(errs, fmt.Errorf("SIM_HALF_MINUTES must be positive, got %.2f", c.Sim.HalfMinutes))
	}
	if c.Sim.PreMatchWindow < 1 || c.Sim.HalftimeWindow < 1 {
		errs = append(errs, fmt.Errorf("betting windows must be >= 1s, got %d/%d",
			c.Sim.PreMatchWindow, c.Sim.HalftimeWindow))
	}
	if c.Sim.GoalPauseMin <= 0 || c.Sim.GoalPauseMax < c.Sim.GoalPauseMin {
		errs = append(errs, fmt.Errorf("goal pause range is invalid: [%s, %s]",
			c.Sim.GoalPauseMin, c.Sim.GoalPauseMax))
	}

	if c.Odds.Margin < 0 || c.Odds.Margin >= 1 {
		errs = append(errs, fmt.Errorf("ODDS_MARGIN must be within [0, 1), got %.4f", c.Odds.Margin))
	}
	if c.Odds.Ceiling <= 1.01 {
		errs = append(errs, fmt.Errorf("ODDS_CEILING must exceed 1.01, got %.2f", c.Odds.Ceiling))
	}
	if c.Odds.MaxGoals < 1 {
		errs = append(errs, fmt.Errorf("ODDS_MAX_GOALS must be >= 1, got %d", c.Odds.MaxGoals))
	}

	if c.Ledger.StartingBalance <= 0 {
		errs = append(errs, fmt.Errorf("LEDGER_STARTING_BALANCE must be positive, got %.2f",
			c.Ledger.StartingBalance))
	}
	if c.Ledger.MaxStake < 0 {
		errs = append(errs, fmt.Errorf("LEDGER_MAX_STAKE must not be negative, got %.2f", c.Ledger.MaxStake))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails: call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		// A missing .env file is fine; the process environment still applies.
		_ = godotenv.Load()
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:                 getEnv("SERVER_PORT", "8080"),
		BackofficePort:       getEnv("BACKOFFICE_PORT", "8081"),
		Env:                  getEnv("ENVIRONMENT", "development"),
		ReadTimeout:          getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:         getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		AllowedOrigins:       getList("SERVER_ALLOWED_ORIGINS"),
		BackofficeAllowedIPs: getEnv("BACKOFFICE_ALLOWED_IPS", ""),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" && os.Getenv("DB_HOST") != "" {
		// Build DSN from individual components for convenience in dev
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "matchsim"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		MigrationsDir:   getEnv("DB_MIGRATIONS_DIR", "migrations"),
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}
	cfg.Redis = RedisConfig{
		Addr:        getEnv("REDIS_ADDR", ""),
		Password:    getEnv("REDIS_PASSWORD", ""),
		DB:          redisDB,
		OddsChannel: getEnv("REDIS_ODDS_CHANNEL", "odds_updates_broadcast"),
		OddsTTL:     getDuration("REDIS_ODDS_TTL", 10*time.Minute),
		SimTTL:      getDuration("REDIS_SIM_TTL", 24*time.Hour),
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	kafkaBuf, err := getInt("KAFKA_BUFFER_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("KAFKA_BUFFER_SIZE: %w", err)
	}
	cfg.Kafka = KafkaConfig{
		Brokers:    getList("KAFKA_BROKERS"),
		Topic:      getEnv("KAFKA_TOPIC", "match-events"),
		BufferSize: kafkaBuf,
	}

	// ── Operator ──────────────────────────────────────────────────────────────
	cfg.Operator = OperatorConfig{
		JWTSecret:    getEnv("OPERATOR_JWT_SECRET", ""),
		TokenTTL:     getDuration("OPERATOR_TOKEN_TTL", time.Hour),
		Username:     getEnv("OPERATOR_USERNAME", "operator"),
		PasswordHash: getEnv("OPERATOR_PASSWORD_HASH", ""),
	}

	// ── Simulation ────────────────────────────────────────────────────────────
	tickRate, err := getInt("SIM_TICK_RATE", 60)
	if err != nil {
		return nil, fmt.Errorf("SIM_TICK_RATE: %w", err)
	}
	speed, err := getFloat("SIM_SPEED", 1)
	if err != nil {
		return nil, fmt.Errorf("SIM_SPEED: %w", err)
	}
	total, err := getInt("SIM_TOTAL_MATCHES", 1)
	if err != nil {
		return nil, fmt.Errorf("SIM_TOTAL_MATCHES: %w", err)
	}
	halfMinutes, err := getFloat("SIM_HALF_MINUTES", 45)
	if err != nil {
		return nil, fmt.Errorf("SIM_HALF_MINUTES: %w", err)
	}
	preMatch, err := getInt("SIM_PREMATCH_WINDOW", 20)
	if err != nil {
		return nil, fmt.Errorf("SIM_PREMATCH_WINDOW: %w", err)
	}
	halftime, err := getInt("SIM_HALFTIME_WINDOW", 15)
	if err != nil {
		return nil, fmt.Errorf("SIM_HALFTIME_WINDOW: %w", err)
	}
	warning, err := getInt("SIM_COUNTDOWN_WARNING", 10)
	if err != nil {
		return nil, fmt.Errorf("SIM_COUNTDOWN_WARNING: %w", err)
	}
	seed, err := getUint("SIM_SEED", 0)
	if err != nil {
		return nil, fmt.Errorf("SIM_SEED: %w", err)
	}
	cfg.Sim = SimConfig{
		TickRate:          tickRate,
		BroadcastInterval: getDuration("SIM_BROADCAST_INTERVAL", 50*time.Millisecond),
		Speed:             speed,
		TotalMatches:      total,
		HalfMinutes:       halfMinutes,
		PreMatchWindow:    preMatch,
		HalftimeWindow:    halftime,
		CountdownWarning:  warning,
		GoalPauseMin:      getDuration("SIM_GOAL_PAUSE_MIN", 500*time.Millisecond),
		GoalPauseMax:      getDuration("SIM_GOAL_PAUSE_MAX", 1000*time.Millisecond),
		NextMatchDelay:    getDuration("SIM_NEXT_MATCH_DELAY", time.Second),
		SingleModeDelay:   getDuration("SIM_SINGLE_MODE_DELAY", 3*time.Second),
		AutoStart:         getBool("SIM_AUTO_START", true),
		Seed:              seed,
	}

	// ── Odds ──────────────────────────────────────────────────────────────────
	margin, err := getFloat("ODDS_MARGIN", 0.05)
	if err != nil {
		return nil, fmt.Errorf("ODDS_MARGIN: %w", err)
	}
	ceiling, err := getFloat("ODDS_CEILING", 1000)
	if err != nil {
		return nil, fmt.Errorf("ODDS_CEILING: %w", err)
	}
	maxGoals, err := getInt("ODDS_MAX_GOALS", 8)
	if err != nil {
		return nil, fmt.Errorf("ODDS_MAX_GOALS: %w", err)
	}
	cfg.Odds = OddsConfig{Margin: margin, Ceiling: ceiling, MaxGoals: maxGoals}

	// ── Ledger ────────────────────────────────────────────────────────────────
	balance, err := getFloat("LEDGER_STARTING_BALANCE", 1000)
	if err != nil {
		return nil, fmt.Errorf("LEDGER_STARTING_BALANCE: %w", err)
	}
	maxStake, err := getFloat("LEDGER_MAX_STAKE", 0)
	if err != nil {
		return nil, fmt.Errorf("LEDGER_MAX_STAKE: %w", err)
	}
	cfg.Ledger = LedgerConfig{StartingBalance: balance, MaxStake: maxStake}

	// ── Formations ────────────────────────────────────────────────────────────
	cfg.Formations = FormationsConfig{File: getEnv("FORMATIONS_FILE", "")}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func getUint(key string, defaultVal uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid unsigned integer %q", v)
	}
	return n, nil
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float %q", v)
	}
	return f, nil
}

// getBool accepts the strconv.ParseBool spellings and falls back to
// defaultVal on anything else.
func getBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// getList splits a comma-separated variable, dropping empty items.
func getList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Log warning and fall back to default; do not crash on parse error
		return defaultVal
	}
	return d
}
