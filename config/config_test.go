package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
bot_token: "123:abc"
required_channels:
  - megahubbots
channel_links:
  - https://t.me/megahubbots
temp_dir: /tmp/ytgrab
port: 9000
`)
	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromFile failed: %v", err)
	}
	if cfg.BotToken != "123:abc" {
		t.Errorf("BotToken = %q", cfg.BotToken)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, expected 9000", cfg.Port)
	}
	if cfg.SessionTTLMinutes != 30 {
		t.Errorf("SessionTTLMinutes = %d, expected default 30", cfg.SessionTTLMinutes)
	}
	if cfg.MaxConcurrentTransfers != 2 {
		t.Errorf("MaxConcurrentTransfers = %d, expected default 2", cfg.MaxConcurrentTransfers)
	}
	if cfg.WebhookPath != "/webhook" {
		t.Errorf("WebhookPath = %q, expected default /webhook", cfg.WebhookPath)
	}
}

func TestLoadConfigFromFile_MissingToken(t *testing.T) {
	path := writeConfig(t, `temp_dir: /tmp/x`)
	if _, err := LoadConfigFromFile(path); err == nil {
		t.Fatal("expected error for missing bot_token")
	}
}

func TestLoadConfigFromFile_MismatchedChannels(t *testing.T) {
	path := writeConfig(t, `
bot_token: "123:abc"
required_channels:
  - a
  - b
channel_links:
  - https://t.me/a
`)
	if _, err := LoadConfigFromFile(path); err == nil {
		t.Fatal("expected error for mismatched channel list lengths")
	}
}
