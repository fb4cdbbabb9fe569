package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration grouped by concern.
type Config struct {
	ServiceName string
	HTTP        HTTPConfig
	Upstream    UpstreamConfig
	Polling     PollingConfig
	Kafka       KafkaConfig
	Session     SessionConfig
}

type HTTPConfig struct {
	Addr string
}

// UpstreamConfig locates the storefront REST backend.
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PollingConfig carries the reconciliation cadences. PaymentMaxChecks and
// PaymentMaxDuration of zero leave pending polls unbounded.
type PollingConfig struct {
	PaymentInterval    time.Duration
	OrdersInterval     time.Duration
	PaymentMaxChecks   int
	PaymentMaxDuration time.Duration
}

type KafkaConfig struct {
	Brokers       []string
	PaymentsTopic string
}

// SessionConfig seeds the backend session when the gateway runs headless
// with a pre-issued token.
type SessionConfig struct {
	Token string
}

// Load reads configuration from environment variables, applying sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		ServiceName: getEnv("SERVICE_NAME", "storefront-gateway"),
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_LISTEN_ADDR", ":3000"),
		},
		Upstream: UpstreamConfig{
			BaseURL: getEnv("STOREFRONT_API_BASE", "http://localhost:5000/api"),
		},
		Kafka: KafkaConfig{
			Brokers:       splitAndTrim(getEnv("KAFKA_BROKERS", "localhost:9092")),
			PaymentsTopic: getEnv("KAFKA_PAYMENTS_TOPIC", "payments.v1"),
		},
		Session: SessionConfig{
			Token: getEnv("STOREFRONT_TOKEN", ""),
		},
	}

	var err error
	if cfg.Upstream.Timeout, err = getDuration("STOREFRONT_API_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Polling.PaymentInterval, err = getDuration("PAYMENT_POLL_INTERVAL", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Polling.OrdersInterval, err = getDuration("ORDERS_REFRESH_INTERVAL", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Polling.PaymentMaxDuration, err = getDuration("PAYMENT_POLL_MAX_DURATION", 0); err != nil {
		return Config{}, err
	}

	maxChecksStr := getEnv("PAYMENT_POLL_MAX_CHECKS", "0")
	maxChecks, err := strconv.Atoi(maxChecksStr)
	if err != nil {
		return Config{}, fmt.Errorf("parse PAYMENT_POLL_MAX_CHECKS: %w", err)
	}
	cfg.Polling.PaymentMaxChecks = maxChecks

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
