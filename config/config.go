// Package config loads the service configuration from the environment,
// resolving encrypted values through the Decrypter collaborator at cold
// start. A decrypt failure is fatal before any side effect.
package config

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

var ErrDecrypt = errors.New("config decrypt failed", j.C("ERR_8f41d5b9263a07ce"))

// Decrypter obtains plaintext configuration from a stored ciphertext using a
// managed key. The encryption context must match the one used to encrypt.
type Decrypter interface {
	Decrypt(ctx context.Context, ciphertext string, encContext map[string]string) (string, error)
}

type Config struct {
	// Service is the name bound into the encryption context.
	Service string

	ServerAddress string

	// TableName and BucketName identify the record table and template
	// bucket; QueueName the delivery queue. Each can be supplied encrypted
	// via its *_CIPHERTEXT variable.
	TableName  string
	BucketName string
	QueueName  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MySQLDSN string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroup   string

	SMTPAddr string

	SeedTemplates bool

	ScheduleSpec   string
	ScheduleSource string
	ScheduleAPIKey string
	SchedulePrefix string

	ConsumerParallelism int
	ConsumerErrBackOff  time.Duration
}

// Load reads .env (when present) and the environment. dec may be nil when no
// *_CIPHERTEXT variables are set.
func Load(ctx context.Context, dec Decrypter) (*Config, error) {
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		Service:             getEnv("SERVICE_NAME", "notifier"),
		ServerAddress:       getEnv("SERVER_ADDRESS", ":8080"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		MySQLDSN:            os.Getenv("MYSQL_DSN"),
		KafkaTopic:          getEnv("KAFKA_TOPIC", "notifier-delivery"),
		KafkaGroup:          getEnv("KAFKA_GROUP", "notifier"),
		SMTPAddr:            os.Getenv("SMTP_ADDR"),
		SeedTemplates:       getEnvBool("SEED_TEMPLATES", false),
		ScheduleSpec:        os.Getenv("SCHEDULE_SPEC"),
		ScheduleSource:      os.Getenv("SCHEDULE_SOURCE_URL"),
		ScheduleAPIKey:      os.Getenv("SCHEDULE_API_KEY"),
		SchedulePrefix:      getEnv("SCHEDULE_PREFIX", "scheduled"),
		ConsumerParallelism: getEnvInt("CONSUMER_PARALLELISM", 1),
		ConsumerErrBackOff:  time.Duration(getEnvInt("CONSUMER_ERR_BACKOFF_MS", 1000)) * time.Millisecond,
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	encContext := map[string]string{"service": cfg.Service}

	var err error
	cfg.TableName, err = resolve(ctx, dec, "TABLE_NAME", "notifier_records", encContext)
	if err != nil {
		return nil, err
	}

	cfg.BucketName, err = resolve(ctx, dec, "BUCKET_NAME", "notifier-templates", encContext)
	if err != nil {
		return nil, err
	}

	cfg.QueueName, err = resolve(ctx, dec, "QUEUE_NAME", "notifier-delivery", encContext)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolve prefers the encrypted form of the variable. A present ciphertext
// that cannot be decrypted is fatal; it never falls through to plaintext.
func resolve(ctx context.Context, dec Decrypter, name, def string, encContext map[string]string) (string, error) {
	ciphertext := os.Getenv(name + "_CIPHERTEXT")
	if ciphertext != "" {
		if dec == nil {
			return "", errors.Wrap(ErrDecrypt, "no decrypter configured", j.KV("var", name))
		}

		plaintext, err := dec.Decrypt(ctx, ciphertext, encContext)
		if err != nil {
			return "", errors.Wrap(ErrDecrypt, err.Error(), j.KV("var", name))
		}

		return plaintext, nil
	}

	return getEnv(name, def), nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return i
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}

	return b
}
