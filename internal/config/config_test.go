package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Telegram.BotToken = "123:abc"
	cfg.Telegram.ChatID = "@signals"
	cfg.Telegram.RetryAttempts = 3
	cfg.Server.Port = 8000
	cfg.Dedup.TTL = 300 * time.Second
	return cfg
}

func TestValidateRequiresCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.BotToken = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing bot token should fail validation")
	}

	cfg = validConfig()
	cfg.Telegram.ChatID = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing chat id should fail validation")
	}
}

func TestValidateChatIDFormat(t *testing.T) {
	for _, id := range []string{"@signals", "12345", "-1001234567890"} {
		cfg := validConfig()
		cfg.Telegram.ChatID = id
		if err := cfg.Validate(); err != nil {
			t.Errorf("chat id %q should be valid: %v", id, err)
		}
	}
	cfg := validConfig()
	cfg.Telegram.ChatID = "signals"
	if err := cfg.Validate(); err == nil {
		t.Error("bare username without @ should fail validation")
	}
}

func TestValidateRanges(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RetryAttempts = 11
	if err := cfg.Validate(); err == nil {
		t.Error("retry_attempts above 10 should fail")
	}

	cfg = validConfig()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("port 0 should fail")
	}

	cfg = validConfig()
	cfg.Dedup.TTL = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero dedup ttl should fail")
	}
}

func TestValidateSignatureRequiresSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Webhook.VerifySignature = true
	if err := cfg.Validate(); err == nil {
		t.Error("verify_signature without secret should fail")
	}
	cfg.Webhook.Secret = "s3cret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("verify_signature with secret should pass: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TWSIGNALS_TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TWSIGNALS_TELEGRAM_CHAT_ID", "@signals")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.App.Name != "twsignals" {
		t.Errorf("app.name default = %q", cfg.App.Name)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("server.port default = %d", cfg.Server.Port)
	}
	if cfg.Server.ResponseBudget != 150*time.Millisecond {
		t.Errorf("server.response_budget default = %s", cfg.Server.ResponseBudget)
	}
	if cfg.Telegram.RetryAttempts != 3 || cfg.Telegram.RetryBackoff != 2.0 {
		t.Errorf("telegram retry defaults = %d/%v", cfg.Telegram.RetryAttempts, cfg.Telegram.RetryBackoff)
	}
	if cfg.Telegram.MessagesPerSec != 30 {
		t.Errorf("telegram.messages_per_sec default = %d", cfg.Telegram.MessagesPerSec)
	}
	if cfg.Dedup.TTL != 300*time.Second || cfg.Dedup.CleanupThreshold != 100 {
		t.Errorf("dedup defaults = %s/%d", cfg.Dedup.TTL, cfg.Dedup.CleanupThreshold)
	}
	if cfg.Webhook.VerifySignature {
		t.Error("verify_signature should default to false")
	}
}

func TestLoadSecretsFromEnvironment(t *testing.T) {
	t.Setenv("TWSIGNALS_TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TWSIGNALS_TELEGRAM_CHAT_ID", "-1001234567890")
	t.Setenv("TWSIGNALS_WEBHOOK_SECRET", "s3cret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with env-provided secrets failed: %v", err)
	}

	if cfg.Telegram.BotToken != "123:abc" {
		t.Errorf("bot_token = %q, want env value", cfg.Telegram.BotToken)
	}
	if cfg.Telegram.ChatID != "-1001234567890" {
		t.Errorf("chat_id = %q, want env value", cfg.Telegram.ChatID)
	}
	if cfg.Webhook.Secret != "s3cret" {
		t.Errorf("webhook.secret = %q, want env value", cfg.Webhook.Secret)
	}
}

func TestLoadFailsWithoutSecrets(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("Load without credentials should fail startup")
	}
}
