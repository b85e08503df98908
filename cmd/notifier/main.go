package main

import (
	"context"
	"database/sql"
	"encoding/hex"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
	"github.com/redis/go-redis/v9"

	"github.com/andrewwormald/notifier"
	"github.com/andrewwormald/notifier/adapters/kafkaqueue"
	"github.com/andrewwormald/notifier/adapters/memqueue"
	"github.com/andrewwormald/notifier/adapters/memstore"
	"github.com/andrewwormald/notifier/adapters/redisstore"
	"github.com/andrewwormald/notifier/adapters/smtpmail"
	"github.com/andrewwormald/notifier/adapters/sqlstore"
	"github.com/andrewwormald/notifier/api"
	"github.com/andrewwormald/notifier/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := run(ctx)
	if err != nil {
		log.Error(ctx, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var dec config.Decrypter
	if keyHex := os.Getenv("ENVELOPE_KEY"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return errors.Wrap(err, "decode envelope key")
		}

		dec, err = config.NewEnvelope(key)
		if err != nil {
			return err
		}
	}

	cfg, err := config.Load(ctx, dec)
	if err != nil {
		return err
	}

	store, templates, err := buildStores(cfg)
	if err != nil {
		return err
	}

	queue := buildQueue(cfg)

	var mailer notifier.Mailer
	if cfg.SMTPAddr != "" {
		mailer = smtpmail.New(cfg.SMTPAddr, nil)
	} else {
		mailer = logMailer{}
	}

	if cfg.SeedTemplates {
		err = notifier.NewTemplateSeeder(templates).SeedAll(ctx)
		if err != nil {
			return err
		}
	}

	engine, err := notifier.NewDeliveryWorkflow(notifier.Deps{
		Store:     store,
		Templates: templates,
		Mailer:    mailer,
	})
	if err != nil {
		return err
	}

	consumer := notifier.NewConsumer(queue, engine,
		notifier.WithParallelCount(cfg.ConsumerParallelism),
		notifier.WithErrBackOff(cfg.ConsumerErrBackOff),
	)
	consumer.Run(ctx)
	defer consumer.Stop()

	ingester := notifier.NewIngester(store, queue)

	scheduler := notifier.NewScheduler(ingester)
	if cfg.ScheduleSpec != "" && cfg.ScheduleSource != "" {
		err = scheduler.Register(cfg.ScheduleSpec, cfg.SchedulePrefix,
			notifier.HTTPSource(cfg.ScheduleSource, cfg.ScheduleAPIKey))
		if err != nil {
			return err
		}

		scheduler.Start()
		defer scheduler.Stop()
	}

	srv := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: api.Router(api.NewHandler(ingester, store)),
	}

	go func() {
		log.Info(ctx, "notifier listening", j.KV("address", cfg.ServerAddress))

		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}

func buildStores(cfg *config.Config) (notifier.RecordStore, notifier.TemplateStore, error) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		return redisstore.New(client), redisstore.NewTemplateStore(client), nil
	}

	if cfg.MySQLDSN != "" {
		dbc, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open mysql")
		}

		// Template bodies stay in memory next to a SQL record store until a
		// blob backend is configured.
		return sqlstore.New(dbc, dbc, cfg.TableName), memstore.NewTemplateStore(), nil
	}

	return memstore.New(), memstore.NewTemplateStore(), nil
}

func buildQueue(cfg *config.Config) notifier.Queue {
	if len(cfg.KafkaBrokers) > 0 {
		return kafkaqueue.New(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroup)
	}

	return memqueue.New()
}

// logMailer stands in for a real mail provider in local development.
type logMailer struct{}

func (logMailer) Send(ctx context.Context, e notifier.Email) (string, error) {
	log.Info(ctx, "email (no SMTP configured)", j.MKV{
		"to":      e.To,
		"subject": e.Subject,
	})

	return "local", nil
}
