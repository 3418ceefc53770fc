package config

import (
	"testing"
	"time"

	"newsrelay/internal/language"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load with empty environment should succeed: %v", err)
	}

	if cfg.MinRating != 7 {
		t.Errorf("MinRating = %d, want 7", cfg.MinRating)
	}
	if cfg.MaxArticles != 1 {
		t.Errorf("MaxArticles = %d, want 1", cfg.MaxArticles)
	}
	if cfg.FeedWindowTTL != 3*time.Hour {
		t.Errorf("FeedWindowTTL = %v, want 3h", cfg.FeedWindowTTL)
	}
	if cfg.RealtimeWindowTTL != 24*time.Hour {
		t.Errorf("RealtimeWindowTTL = %v, want 24h", cfg.RealtimeWindowTTL)
	}
	if cfg.DeliveryWindowTTL != 30*time.Minute {
		t.Errorf("DeliveryWindowTTL = %v, want 30m", cfg.DeliveryWindowTTL)
	}
	if cfg.AlertLang != language.Hebrew {
		t.Errorf("AlertLang = %s, want he", cfg.AlertLang)
	}
	if len(cfg.Models) == 0 {
		t.Error("default model list must not be empty")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MIN_RATING", "9")
	t.Setenv("MODELS", "model/a, model/b ,")
	t.Setenv("TELEGRAM_CHAT_ID_SPANISH", "-100555")
	t.Setenv("SOURCE_NEWS_LANG", "en")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MinRating != 9 {
		t.Errorf("MIN_RATING override lost, got %d", cfg.MinRating)
	}
	if len(cfg.Models) != 2 || cfg.Models[1] != "model/b" {
		t.Errorf("MODELS parsing wrong: %v", cfg.Models)
	}
	if cfg.LanguageChatIDs[language.Spanish] != "-100555" {
		t.Errorf("chat id mapping wrong: %v", cfg.LanguageChatIDs)
	}
	if cfg.NewsChannelLang != language.English {
		t.Errorf("NewsChannelLang = %s, want en", cfg.NewsChannelLang)
	}
}

func TestLoadRejectsUnsupportedNewsLang(t *testing.T) {
	t.Setenv("SOURCE_NEWS_LANG", "fr")
	if _, err := Load(); err == nil {
		t.Fatal("unsupported SOURCE_NEWS_LANG must fail the load")
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	cfg.MinRating = 11
	if err := cfg.Validate(); err == nil {
		t.Error("MinRating above 10 must be rejected")
	}

	cfg.MinRating = 7
	cfg.MaxArticles = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero MaxArticles must be rejected")
	}
}

func TestWarningsOnMissingCredentials(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	cfg.OpenRouterAPIKey = ""
	cfg.TelegramToken = ""

	warnings := cfg.Warnings()
	if len(warnings) == 0 {
		t.Fatal("missing credentials should warn")
	}

	// Dev mode silences the delivery warnings, credentials are not needed.
	cfg.DevMode = true
	devWarnings := cfg.Warnings()
	if len(devWarnings) >= len(warnings) {
		t.Errorf("dev mode should reduce warnings: %v", devWarnings)
	}
}
