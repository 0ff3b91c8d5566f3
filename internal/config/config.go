package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type MailerSendConfig struct {
	APIToken      string
	DomainID      string
	WebhookSecret string
	BaseURL       string // override for tests
}

type SMTP2GOConfig struct {
	APIKey  string
	BaseURL string
}

type PorkbunConfig struct {
	APIKey    string
	SecretKey string
	Domain    string // root sending domain, subdomains are carved per owner
	BaseURL   string
}

type AppConfig struct {
	HTTPAddr    string
	DatabaseURL string

	RedisAddr string
	RedisPass string
	RedisDB   int
	QueueKey  string

	WorkerCount     int
	SendMaxAttempts int
	SendRetryDelay  time.Duration

	MailerSend MailerSendConfig
	SMTP2GO    SMTP2GOConfig
	Porkbun    PorkbunConfig
}

func Load() AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("email-platform: no .env file found, relying on system env vars")
	}
	return AppConfig{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8013"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASS", ""),
		RedisDB:   getEnvInt("REDIS_DB", 0),
		QueueKey:  getEnv("QUEUE_KEY", "email:jobs"),

		WorkerCount:     getEnvInt("WORKER_COUNT", 4),
		SendMaxAttempts: getEnvInt("SEND_MAX_ATTEMPTS", 3),
		SendRetryDelay:  getEnvDuration("SEND_RETRY_DELAY", 10*time.Second),

		MailerSend: MailerSendConfig{
			APIToken:      getEnv("MAILERSEND_API_TOKEN", ""),
			DomainID:      getEnv("MAILERSEND_DOMAIN_ID", ""),
			WebhookSecret: getEnv("MAILERSEND_WEBHOOK_SIGNING_SECRET", ""),
			BaseURL:       getEnv("MAILERSEND_BASE_URL", "https://api.mailersend.com"),
		},
		SMTP2GO: SMTP2GOConfig{
			APIKey:  getEnv("SMTP2GO_API_KEY", ""),
			BaseURL: getEnv("SMTP2GO_BASE_URL", "https://api.smtp2go.com"),
		},
		Porkbun: PorkbunConfig{
			APIKey:    getEnv("DOMAIN_API_KEY", ""),
			SecretKey: getEnv("DOMAIN_API_SECRET_KEY", ""),
			Domain:    getEnv("DOMAIN_NAME", ""),
			BaseURL:   getEnv("DOMAIN_API_BASE_URL", "https://api.porkbun.com"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
