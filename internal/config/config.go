package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"Stackstarter/internal/clarity"
	"Stackstarter/internal/wallet"
)

// Config holds all application configuration.
type Config struct {
	Node struct {
		URL     string `yaml:"url"`
		Network string `yaml:"network"`
	} `yaml:"node"`
	Contract struct {
		Address string `yaml:"address"`
		Name    string `yaml:"name"`
		Source  string `yaml:"source"`
	} `yaml:"contract"`
	Account struct {
		SecretKey string `yaml:"secret_key"`
	} `yaml:"account"`
	Timing struct {
		BlockTime          time.Duration `yaml:"block_time"`
		BlockPollInterval  time.Duration `yaml:"block_poll_interval"`
		DeployPollInterval time.Duration `yaml:"deploy_poll_interval"`
		DeployTimeout      time.Duration `yaml:"deploy_timeout"`
	} `yaml:"timing"`
	Watch struct {
		Cron        string   `yaml:"cron"`
		Campaigns   []uint64 `yaml:"campaigns"`
		Concurrency int      `yaml:"concurrency"`
	} `yaml:"watch"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
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

	// Environment variable overrides
	if v := os.Getenv("STACKS_NODE_URL"); v != "" {
		cfg.Node.URL = v
	}
	if v := os.Getenv("STACKS_NETWORK"); v != "" {
		cfg.Node.Network = v
	}
	if v := os.Getenv("STACKSTARTER_CONTRACT_ADDRESS"); v != "" {
		cfg.Contract.Address = v
	}
	if v := os.Getenv("STACKSTARTER_SECRET_KEY"); v != "" {
		cfg.Account.SecretKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("WATCH_CRON"); v != "" {
		cfg.Watch.Cron = v
	}
	if v := os.Getenv("WATCH_CAMPAIGNS"); v != "" {
		ids, err := ParseCampaignIDs(v)
		if err != nil {
			return nil, fmt.Errorf("WATCH_CAMPAIGNS: %w", err)
		}
		cfg.Watch.Campaigns = ids
	}

	// Defaults
	if cfg.Node.URL == "" {
		cfg.Node.URL = "http://127.0.0.1:20443"
	}
	if cfg.Node.Network == "" {
		cfg.Node.Network = "testnet"
	}
	if cfg.Contract.Name == "" {
		cfg.Contract.Name = "stackstarter"
	}
	if cfg.Timing.BlockTime == 0 {
		cfg.Timing.BlockTime = 5 * time.Second
	}
	if cfg.Timing.BlockPollInterval == 0 {
		cfg.Timing.BlockPollInterval = 500 * time.Millisecond
	}
	if cfg.Timing.DeployPollInterval == 0 {
		cfg.Timing.DeployPollInterval = 250 * time.Millisecond
	}
	if cfg.Timing.DeployTimeout == 0 {
		cfg.Timing.DeployTimeout = 20 * time.Second
	}
	if cfg.Watch.Cron == "" {
		cfg.Watch.Cron = "0 * * * * *"
	}
	if cfg.Watch.Concurrency == 0 {
		cfg.Watch.Concurrency = 4
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/stackstarter.db"
	}

	return cfg, nil
}

// ParseCampaignIDs reads a comma separated list of campaign ids.
func ParseCampaignIDs(s string) ([]uint64, error) {
	var ids []uint64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid campaign id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Network resolves the configured network name.
func (c *Config) Network() (wallet.Network, error) {
	return wallet.NetworkByName(c.Node.Network)
}

// Validate checks that the configured values are usable.
func (c *Config) Validate() error {
	if c.Node.URL == "" {
		return fmt.Errorf("node.url is required")
	}
	if _, err := c.Network(); err != nil {
		return fmt.Errorf("node.network: %w", err)
	}
	if c.Contract.Address != "" {
		if _, err := clarity.ParsePrincipal(c.Contract.Address); err != nil {
			return fmt.Errorf("contract.address: %w", err)
		}
		if strings.Contains(c.Contract.Address, ".") {
			return fmt.Errorf("contract.address must be the deployer address, not a contract id")
		}
	}
	if c.Timing.BlockTime < 0 || c.Timing.BlockPollInterval < 0 ||
		c.Timing.DeployPollInterval < 0 || c.Timing.DeployTimeout < 0 {
		return fmt.Errorf("timing values must not be negative")
	}
	if c.Watch.Concurrency < 1 {
		return fmt.Errorf("watch.concurrency must be positive")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether notifications can be sent.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
