package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"

	pkgcfg "github.com/Skotchmaster/storefront/pkg/config"
)

type Config struct {
	Port        string
	LogLevel    string
	DatabaseURL string

	JWTSecret     []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SecureCookies bool
	CSRFEnabled   bool

	PublicURL string
	LoginPath string
	UploadDir string

	Inactivity    time.Duration
	PurgeInterval time.Duration

	KafkaBrokers     []string
	NotifyTopic      string
	NotifyGroupID    string
	ChatTopic        string
	NotifyBufferSize int

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	OTLPEndpoint string
	OTLPInsecure bool
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := &Config{
		Port:        pkgcfg.EnvDefault("SERVER_PORT", "8080"),
		LogLevel:    pkgcfg.EnvDefault("LOG_LEVEL", "info"),
		DatabaseURL: pkgcfg.EnvDefault("DATABASE_URL", ""),

		JWTSecret:     []byte(pkgcfg.EnvDefault("JWT_SECRET", "")),
		RefreshSecret: []byte(pkgcfg.EnvDefault("REFRESH_SECRET", "")),
		AccessTTL:     pkgcfg.EnvDurationDefault("ACCESS_TTL", 15*time.Minute),
		RefreshTTL:    pkgcfg.EnvDurationDefault("REFRESH_TTL", 7*24*time.Hour),
		SecureCookies: pkgcfg.EnvBoolDefault("SECURE_COOKIES", false),
		CSRFEnabled:   pkgcfg.EnvBoolDefault("CSRF_ENABLED", true),

		PublicURL: pkgcfg.EnvDefault("PUBLIC_URL", "http://localhost:8080"),
		LoginPath: pkgcfg.EnvDefault("LOGIN_PATH", "/login"),
		UploadDir: pkgcfg.EnvDefault("UPLOAD_DIR", "uploads"),

		Inactivity:    pkgcfg.EnvDurationDefault("INACTIVITY", 48*time.Hour),
		PurgeInterval: pkgcfg.EnvDurationDefault("PURGE_INTERVAL", 0),

		KafkaBrokers:     pkgcfg.CSV(pkgcfg.EnvDefault("KAFKA_BROKERS", "")),
		NotifyTopic:      pkgcfg.EnvDefault("NOTIFY_TOPIC", "notification_events"),
		NotifyGroupID:    pkgcfg.EnvDefault("NOTIFY_GROUP_ID", "storefront-notifier"),
		ChatTopic:        pkgcfg.EnvDefault("CHAT_TOPIC", "chat_messages"),
		NotifyBufferSize: pkgcfg.EnvIntDefault("NOTIFY_BUFFER", 256),

		ESURL:      pkgcfg.EnvDefault("ES_URL", ""),
		ESUser:     pkgcfg.EnvDefault("ES_USER", ""),
		ESPassword: pkgcfg.EnvDefault("ES_PASSWORD", ""),
		ESIndex:    pkgcfg.EnvDefault("ES_INDEX", "products"),

		SMTPHost:     pkgcfg.EnvDefault("SMTP_HOST", ""),
		SMTPPort:     pkgcfg.EnvIntDefault("SMTP_PORT", 587),
		SMTPUser:     pkgcfg.EnvDefault("SMTP_USER", ""),
		SMTPPassword: pkgcfg.EnvDefault("SMTP_PASSWORD", ""),
		SMTPFrom:     pkgcfg.EnvDefault("SMTP_FROM", "no-reply@storefront.local"),

		GitHubClientID:     pkgcfg.EnvDefault("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: pkgcfg.EnvDefault("GITHUB_CLIENT_SECRET", ""),
		GitHubCallbackURL:  pkgcfg.EnvDefault("GITHUB_CALLBACK_URL", ""),

		OTLPEndpoint: pkgcfg.EnvDefault("OTLP_ENDPOINT", ""),
		OTLPInsecure: pkgcfg.EnvBoolDefault("OTLP_INSECURE", true),
	}

	if err := pkgcfg.Check(
		pkgcfg.Required{Env: "DATABASE_URL", Value: cfg.DatabaseURL},
		pkgcfg.Required{Env: "JWT_SECRET", Value: string(cfg.JWTSecret)},
		pkgcfg.Required{Env: "REFRESH_SECRET", Value: string(cfg.RefreshSecret)},
	); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}
