package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

func LoadConfigFromFile(path string) (*Config, error) {
	if path == "" {
		path = "./config/config.yaml"
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	dec := yaml.NewDecoder(file)
	err = dec.Decode(&config)
	if err != nil {
		return nil, err
	}
	config.applyDefaults()
	if err = config.Validate(); err != nil {
		return nil, err
	}
	AppConfig = &config
	return &config, nil
}

type Config struct {
	BotToken         string   `yaml:"bot_token"`
	AdminIDs         []int64  `yaml:"admin_ids"`
	RequiredChannels []string `yaml:"required_channels"`
	ChannelLinks     []string `yaml:"channel_links"`
	TempDir          string   `yaml:"temp_dir"`
	Port             int      `yaml:"port"`
	WebhookPath      string   `yaml:"webhook_path"`
	WebhookSecret    string   `yaml:"webhook_secret"`
	WebhookBaseURL   string   `yaml:"webhook_base_url"`

	SessionTTLMinutes      int `yaml:"session_ttl_minutes"`
	MaxConcurrentTransfers int `yaml:"max_concurrent_transfers"`
	ResolveTimeoutSeconds  int `yaml:"resolve_timeout_seconds"`
	TransferTimeoutMinutes int `yaml:"transfer_timeout_minutes"`
}

func (c *Config) applyDefaults() {
	if c.TempDir == "" {
		c.TempDir = "./temp"
	}
	if c.Port == 0 {
		c.Port = 10000
	}
	if c.WebhookPath == "" {
		c.WebhookPath = "/webhook"
	}
	if c.SessionTTLMinutes == 0 {
		c.SessionTTLMinutes = 30
	}
	if c.MaxConcurrentTransfers == 0 {
		c.MaxConcurrentTransfers = 2
	}
	if c.ResolveTimeoutSeconds == 0 {
		c.ResolveTimeoutSeconds = 60
	}
	if c.TransferTimeoutMinutes == 0 {
		c.TransferTimeoutMinutes = 30
	}
}

// Validate rejects configurations the bot cannot run with. Required
// channels and their join links are order-paired and must line up.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("bot_token is required")
	}
	if len(c.RequiredChannels) != len(c.ChannelLinks) {
		return fmt.Errorf("required_channels (%d) and channel_links (%d) must have the same length",
			len(c.RequiredChannels), len(c.ChannelLinks))
	}
	return nil
}

var AppConfig *Config
