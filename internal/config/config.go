package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"newsrelay/internal/language"
)

type Config struct {
	// OpenRouter settings
	OpenRouterAPIKey string
	SiteURL          string // HTTP-Referer attribution header
	SiteName         string // X-Title attribution header
	Models           []string
	MaxModelRequests int // daily budget, 0 = unlimited

	// Telegram settings
	TelegramToken   string
	LanguageChatIDs map[language.Code]string

	// Realtime channel settings
	RealtimeURL     string // websocket endpoint of the channel-event stream
	AlertChannel    string
	NewsChannel     string
	AlertLang       language.Code
	NewsChannelLang language.Code

	// Webhook settings
	WebhookAddr string

	// Feed settings
	FeedsConfigPath string
	FeedItemLimit   int

	// Selection policy
	MinRating   int
	MaxArticles int

	// Dedupe windows
	FeedWindowTTL     time.Duration
	RealtimeWindowTTL time.Duration
	DeliveryWindowTTL time.Duration

	// Delivery settings
	SendTimeout time.Duration
	AlertPace   time.Duration
	FeedPace    time.Duration

	// Realtime reconnect policy
	ReconnectBase     time.Duration
	ReconnectMax      time.Duration
	ReconnectAttempts int

	// App settings (set from command line, fixed for the process lifetime)
	DevMode bool
	Debug   bool
}

// Load reads configuration from the environment. Missing credentials do not
// fail the load; the dependent paths degrade to disabled with a warning at
// wiring time.
func Load() (*Config, error) {
	cfg := &Config{
		SiteURL:           "https://newsrelay.local",
		SiteName:          "newsrelay",
		Models:            defaultModels(),
		MaxModelRequests:  500,
		AlertLang:         language.Hebrew,
		NewsChannelLang:   language.Spanish,
		WebhookAddr:       ":8080",
		FeedsConfigPath:   "configs/feeds.yaml",
		FeedItemLimit:     10,
		MinRating:         7,
		MaxArticles:       1,
		FeedWindowTTL:     3 * time.Hour,
		RealtimeWindowTTL: 24 * time.Hour,
		DeliveryWindowTTL: 30 * time.Minute,
		SendTimeout:       10 * time.Second,
		AlertPace:         1 * time.Second,
		FeedPace:          5 * time.Second,
		ReconnectBase:     2 * time.Second,
		ReconnectMax:      60 * time.Second,
		ReconnectAttempts: 8,
	}

	cfg.OpenRouterAPIKey = os.Getenv("OPENROUTER_API_KEY")
	cfg.SiteURL = getEnvOrDefault("SITE_URL", cfg.SiteURL)
	cfg.SiteName = getEnvOrDefault("SITE_NAME", cfg.SiteName)
	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	if models := os.Getenv("MODELS"); models != "" {
		cfg.Models = splitList(models)
	}

	cfg.LanguageChatIDs = make(map[language.Code]string)
	for code, envKey := range map[language.Code]string{
		language.Hebrew:  "TELEGRAM_CHAT_ID_HEBREW",
		language.English: "TELEGRAM_CHAT_ID_ENGLISH",
		language.Spanish: "TELEGRAM_CHAT_ID_SPANISH",
	} {
		if id := os.Getenv(envKey); id != "" {
			cfg.LanguageChatIDs[code] = id
		}
	}

	cfg.RealtimeURL = os.Getenv("REALTIME_URL")
	cfg.AlertChannel = getEnvOrDefault("SOURCE_ALERT_CHANNEL", "alerts")
	cfg.NewsChannel = os.Getenv("SOURCE_NEWS_CHANNEL")
	if lang := language.Code(os.Getenv("SOURCE_NEWS_LANG")); lang != "" {
		if !language.Valid(lang) {
			return nil, fmt.Errorf("SOURCE_NEWS_LANG %q is not a supported language", lang)
		}
		cfg.NewsChannelLang = lang
	}

	cfg.WebhookAddr = getEnvOrDefault("WEBHOOK_ADDR", cfg.WebhookAddr)
	cfg.FeedsConfigPath = getEnvOrDefault("FEEDS_CONFIG_PATH", cfg.FeedsConfigPath)
	cfg.FeedItemLimit = getEnvIntOrDefault("FEED_ITEM_LIMIT", cfg.FeedItemLimit)
	cfg.MinRating = getEnvIntOrDefault("MIN_RATING", cfg.MinRating)
	cfg.MaxArticles = getEnvIntOrDefault("MAX_ARTICLES", cfg.MaxArticles)
	cfg.MaxModelRequests = getEnvIntOrDefault("MAX_MODEL_REQUESTS", cfg.MaxModelRequests)

	return cfg, cfg.Validate()
}

func defaultModels() []string {
	return []string{
		"deepseek/deepseek-r1-0528:free",
		"deepseek/deepseek-chat-v3-0324:free",
		"meta-llama/llama-3.3-70b-instruct:free",
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if len(c.Models) == 0 {
		return fmt.Errorf("at least one model identifier is required")
	}
	if c.MinRating < 0 || c.MinRating > 10 {
		return fmt.Errorf("MIN_RATING must be within 0..10, got %d", c.MinRating)
	}
	if c.MaxArticles < 1 {
		return fmt.Errorf("MAX_ARTICLES must be positive, got %d", c.MaxArticles)
	}
	if c.FeedItemLimit < 1 {
		return fmt.Errorf("FEED_ITEM_LIMIT must be positive, got %d", c.FeedItemLimit)
	}
	return nil
}

// Warnings lists degraded paths caused by missing credentials or endpoints.
// These are logged once at startup; none of them are fatal.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.OpenRouterAPIKey == "" {
		warnings = append(warnings, "OPENROUTER_API_KEY not set: model calls will fail with an auth hint")
	}
	if c.TelegramToken == "" && !c.DevMode {
		warnings = append(warnings, "TELEGRAM_BOT_TOKEN not set: delivery disabled, sends will report failure")
	}
	if len(c.LanguageChatIDs) == 0 && !c.DevMode {
		warnings = append(warnings, "no TELEGRAM_CHAT_ID_* configured: every language will be skipped at delivery")
	}
	if c.RealtimeURL == "" && !c.DevMode {
		warnings = append(warnings, "REALTIME_URL not set: realtime listener disabled")
	}
	if c.NewsChannel == "" {
		warnings = append(warnings, "SOURCE_NEWS_CHANNEL not set: realtime news routing disabled")
	}
	return warnings
}
