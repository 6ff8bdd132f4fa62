package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"fulfillment/internal/adapters/out/postgres"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/tracing"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	BrokerKafka    = "kafka"
	BrokerRabbitMQ = "rabbitmq"
	BrokerLog      = "log"
)

type Config struct {
	HTTPPort string
	LogLevel slog.Level
	// TraceExporter is none or stdout; spans are recorded either way.
	TraceExporter string

	Storage    string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	EventBroker      string
	KafkaBrokers     []string
	KafkaTopic       string
	RabbitMQURL      string
	RabbitMQExchange string

	// RedisAddr enables Idempotency-Key support when set.
	RedisAddr      string
	IdempotencyTTL time.Duration

	// HandoverCodeTTL of zero leaves handover codes valid until used.
	HandoverCodeTTL        time.Duration
	HandoverExpirySchedule string
	OutboxRelaySchedule    string
	OutboxBatchSize        int
	RequireOTPByDefault    bool
}

// NewConfig reads the configuration through getenv, usually os.Getenv, and
// reports every invalid variable at once.
func NewConfig(getenv func(string) string) (Config, error) {
	env := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	config := Config{
		HTTPPort:               env("HTTP_PORT", "8080"),
		TraceExporter:          env("TRACE_EXPORTER", tracing.ExporterNone),
		Storage:                env("STORAGE", StoragePostgres),
		DBHost:                 env("DB_HOST", "localhost"),
		DBPort:                 env("DB_PORT", "5432"),
		DBUser:                 env("DB_USER", ""),
		DBPassword:             env("DB_PASSWORD", ""),
		DBName:                 env("DB_NAME", "fulfillment"),
		DBSslMode:              env("DB_SSLMODE", "disable"),
		EventBroker:            env("EVENT_BROKER", BrokerLog),
		KafkaBrokers:           splitList(env("KAFKA_BROKERS", "")),
		KafkaTopic:             env("KAFKA_TOPIC", "fulfillment.orders"),
		RabbitMQURL:            env("RABBITMQ_URL", ""),
		RabbitMQExchange:       env("RABBITMQ_EXCHANGE", "fulfillment"),
		RedisAddr:              env("REDIS_ADDR", ""),
		HandoverExpirySchedule: env("HANDOVER_EXPIRY_SCHEDULE", "0 * * * * *"),
		OutboxRelaySchedule:    env("OUTBOX_RELAY_SCHEDULE", "*/2 * * * * *"),
	}

	var err, parseErr error
	config.IdempotencyTTL, parseErr = parseDuration("IDEMPOTENCY_TTL", env("IDEMPOTENCY_TTL", "24h"))
	err = errors.Join(err, parseErr)
	config.HandoverCodeTTL, parseErr = parseDuration("HANDOVER_CODE_TTL", env("HANDOVER_CODE_TTL", "0"))
	err = errors.Join(err, parseErr)
	config.OutboxBatchSize, parseErr = parsePositiveInt("OUTBOX_BATCH_SIZE", env("OUTBOX_BATCH_SIZE", "100"))
	err = errors.Join(err, parseErr)
	config.RequireOTPByDefault, parseErr = parseBool("REQUIRE_OTP_BY_DEFAULT", env("REQUIRE_OTP_BY_DEFAULT", "true"))
	err = errors.Join(err, parseErr)
	config.LogLevel, parseErr = parseLevel(env("LOG_LEVEL", "info"))
	err = errors.Join(err, parseErr)

	if err = errors.Join(err, config.validate()); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) validate() error {
	var err error

	switch c.Storage {
	case StoragePostgres:
		if c.DBUser == "" {
			err = errors.Join(err, errs.NewValueIsRequiredError("DB_USER"))
		}
	case StorageMemory:
	default:
		err = errors.Join(err, errs.NewValueIsInvalidErrorWithCause("STORAGE",
			fmt.Errorf("%q is not one of %s, %s", c.Storage, StoragePostgres, StorageMemory)))
	}

	switch c.EventBroker {
	case BrokerKafka:
		if len(c.KafkaBrokers) == 0 {
			err = errors.Join(err, errs.NewValueIsRequiredError("KAFKA_BROKERS"))
		}
	case BrokerRabbitMQ:
		if c.RabbitMQURL == "" {
			err = errors.Join(err, errs.NewValueIsRequiredError("RABBITMQ_URL"))
		}
	case BrokerLog:
	default:
		err = errors.Join(err, errs.NewValueIsInvalidErrorWithCause("EVENT_BROKER",
			fmt.Errorf("%q is not one of %s, %s, %s", c.EventBroker, BrokerKafka, BrokerRabbitMQ, BrokerLog)))
	}

	switch c.TraceExporter {
	case tracing.ExporterNone, tracing.ExporterStdout:
	default:
		err = errors.Join(err, errs.NewValueIsInvalidErrorWithCause("TRACE_EXPORTER",
			fmt.Errorf("%q is not one of %s, %s", c.TraceExporter, tracing.ExporterNone, tracing.ExporterStdout)))
	}

	return err
}

// DSN is the Postgres connection string.
func (c Config) DSN() string {
	return postgres.DSN(c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDuration(key, s string) (time.Duration, error) {
	if s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errs.NewValueIsInvalidErrorWithCause(key, err)
	}
	if d < 0 {
		return 0, errs.NewValueIsInvalidErrorWithCause(key, fmt.Errorf("%s is negative", d))
	}
	return d, nil
}

func parsePositiveInt(key, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errs.NewValueIsInvalidErrorWithCause(key, err)
	}
	if n <= 0 {
		return 0, errs.NewValueIsInvalidErrorWithCause(key, fmt.Errorf("%d is not greater than 0", n))
	}
	return n, nil
}

func parseBool(key, s string) (bool, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, errs.NewValueIsInvalidErrorWithCause(key, err)
	}
	return b, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, errs.NewValueIsInvalidErrorWithCause("LOG_LEVEL", err)
	}
	return level, nil
}
