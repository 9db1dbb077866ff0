package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "SERVER_PORT")
	unsetEnvWithCleanup(t, "PORT")
	unsetEnvWithCleanup(t, "LOCAL_CURRENCY")
	unsetEnvWithCleanup(t, "FEE_PERCENT")
	unsetEnvWithCleanup(t, "FEE_FLAT")
	unsetEnvWithCleanup(t, "RATE_REFRESH_SCHEDULE")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default ServerPort 8080, got %q", cfg.ServerPort)
	}
	if cfg.LocalCurrency != "ZAR" {
		t.Fatalf("expected default LocalCurrency ZAR, got %q", cfg.LocalCurrency)
	}
	if cfg.FeePercent != 0.01 {
		t.Fatalf("expected default FeePercent 0.01, got %f", cfg.FeePercent)
	}
	if cfg.FeeFlat != 10.0 {
		t.Fatalf("expected default FeeFlat 10.0, got %f", cfg.FeeFlat)
	}
	if cfg.RateRefreshSchedule != "0 * * * *" {
		t.Fatalf("expected hourly default refresh schedule, got %q", cfg.RateRefreshSchedule)
	}
	if cfg.RateHistoryKeep != 100 {
		t.Fatalf("expected default RateHistoryKeep 100, got %d", cfg.RateHistoryKeep)
	}
}

func TestLoadConfig_PortAliasOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "9000")
	setEnvWithCleanup(t, "PORT", "9001")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9001" {
		t.Fatalf("expected PORT to win over SERVER_PORT, got %q", cfg.ServerPort)
	}
}

func TestLoadConfig_InvalidLocalCurrencyFallsBack(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "LOCAL_CURRENCY", "RAND")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.LocalCurrency != "ZAR" {
		t.Fatalf("expected fallback LocalCurrency ZAR, got %q", cfg.LocalCurrency)
	}
}

func TestLoadConfig_NegativeFeesCoercedToZero(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "FEE_PERCENT", "-0.5")
	setEnvWithCleanup(t, "FEE_FLAT", "-10")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.FeePercent != 0 {
		t.Fatalf("expected negative FeePercent coerced to 0, got %f", cfg.FeePercent)
	}
	if cfg.FeeFlat != 0 {
		t.Fatalf("expected negative FeeFlat coerced to 0, got %f", cfg.FeeFlat)
	}
}

func TestLoadConfig_ClickSendKeyAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "CLICKSEND_API_KEY")
	setEnvWithCleanup(t, "CLICKSEND_KEY", "alias-only-key")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ClickSendAPIKey != "alias-only-key" {
		t.Fatalf("expected ClickSendAPIKey from alias env var, got %q", cfg.ClickSendAPIKey)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
		}
	})
}
