package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"SavingsDAO/internal/governance"
	"SavingsDAO/internal/model"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Owner      string     `yaml:"owner" env:"SAVINGS_OWNER"`
	Pool       string     `yaml:"pool" env:"SAVINGS_POOL"`
	Governance Governance `yaml:"governance"`
	Tokens     Tokens     `yaml:"tokens"`
	State      struct {
		SnapshotFile string `yaml:"snapshot_file" env:"SAVINGS_SNAPSHOT_FILE"`
	} `yaml:"state"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	} `yaml:"database"`
	HTTP struct {
		Addr            string        `yaml:"addr" env:"SAVINGS_HTTP_ADDR"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SAVINGS_HTTP_SHUTDOWN_TIMEOUT"`
		// AdminToken is the bearer credential for owner-only routes.
		AdminToken string `yaml:"admin_token" env:"SAVINGS_ADMIN_TOKEN"`
		// GatewayToken is the shared secret of the authenticating proxy
		// that sets X-Caller-Address. Required unless Addr is loopback.
		GatewayToken string `yaml:"gateway_token" env:"SAVINGS_GATEWAY_TOKEN"`
	} `yaml:"http"`
	Schedule Schedule `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
		ChatID   string `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
	} `yaml:"telegram"`
	Proxy string `yaml:"proxy" env:"HTTPS_PROXY"`
}

// Governance holds the numeric constants of the DAO.
type Governance struct {
	// Unit is the number of whole stable tokens per tier weight.
	Unit                uint64        `yaml:"unit" env:"SAVINGS_UNIT"`
	MembershipLock      time.Duration `yaml:"membership_lock" env:"SAVINGS_MEMBERSHIP_LOCK"`
	MembershipWindow    time.Duration `yaml:"membership_window" env:"SAVINGS_MEMBERSHIP_WINDOW"`
	MinActivityDuration time.Duration `yaml:"min_activity_duration" env:"SAVINGS_MIN_ACTIVITY_DURATION"`
}

// Tokens describes the two pooled assets.
type Tokens struct {
	StableSymbol   string `yaml:"stable_symbol" env:"SAVINGS_STABLE_SYMBOL"`
	StableDecimals uint8  `yaml:"stable_decimals" env:"SAVINGS_STABLE_DECIMALS"`
	RewardSymbol   string `yaml:"reward_symbol" env:"SAVINGS_REWARD_SYMBOL"`
	RewardDecimals uint8  `yaml:"reward_decimals" env:"SAVINGS_REWARD_DECIMALS"`
}

// Schedule holds cron specs with a seconds field.
type Schedule struct {
	SweepCron    string `yaml:"sweep_cron" env:"CRON_SWEEP"`
	SnapshotCron string `yaml:"snapshot_cron" env:"CRON_SNAPSHOT"`
	ReportCron   string `yaml:"report_cron" env:"CRON_REPORT"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	defaults := governance.DefaultParams()
	if c.Pool == "" {
		c.Pool = "savings-pool"
	}
	if c.Governance.Unit == 0 {
		c.Governance.Unit = 3000
	}
	if c.Governance.MembershipLock == 0 {
		c.Governance.MembershipLock = defaults.MembershipLock
	}
	if c.Governance.MembershipWindow == 0 {
		c.Governance.MembershipWindow = defaults.MembershipWindow
	}
	if c.Governance.MinActivityDuration == 0 {
		c.Governance.MinActivityDuration = defaults.MinActivityDuration
	}
	if c.Tokens.StableSymbol == "" {
		c.Tokens.StableSymbol = "USDT"
		c.Tokens.StableDecimals = 6
	}
	if c.Tokens.RewardSymbol == "" {
		c.Tokens.RewardSymbol = "BLZ"
		c.Tokens.RewardDecimals = 18
	}
	if c.State.SnapshotFile == "" {
		c.State.SnapshotFile = "data/savings_state.cbor"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/savings.db"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = "127.0.0.1:8080"
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.Schedule.SweepCron == "" {
		c.Schedule.SweepCron = "0 0 * * * *"
	}
	if c.Schedule.SnapshotCron == "" {
		c.Schedule.SnapshotCron = "0 0 0 * * *"
	}
	if c.Schedule.ReportCron == "" {
		c.Schedule.ReportCron = "0 0 8 * * 1"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Owner == "" {
		return fmt.Errorf("owner is required")
	}
	if c.Owner == c.Pool {
		return fmt.Errorf("owner and pool must differ")
	}
	if c.Governance.Unit == 0 {
		return fmt.Errorf("governance.unit must be positive")
	}
	if c.Governance.MembershipLock <= 0 || c.Governance.MembershipWindow <= 0 || c.Governance.MinActivityDuration <= 0 {
		return fmt.Errorf("governance durations must be positive")
	}
	if c.HTTP.GatewayToken == "" && !isLoopback(c.HTTP.Addr) {
		return fmt.Errorf("http.gateway_token is required when listening on %q", c.HTTP.Addr)
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	return nil
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// UnitAmount is the tier unit in the stable asset's smallest denomination.
func (c *Config) UnitAmount() model.Amount {
	return model.Scaled(c.Governance.Unit, c.Tokens.StableDecimals)
}

func (c *Config) GovernanceParams() governance.Params {
	return governance.Params{
		MembershipLock:      c.Governance.MembershipLock,
		MembershipWindow:    c.Governance.MembershipWindow,
		MinActivityDuration: c.Governance.MinActivityDuration,
	}
}
