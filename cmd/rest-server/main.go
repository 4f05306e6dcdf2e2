package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/didip/tollbooth/v6"
	"github.com/didip/tollbooth/v6/limiter"
	esv7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riandyrn/otelchi"
	"go.uber.org/zap"

	"github.com/taskcalendar/calendar-api/cmd/internal"
	internaldomain "github.com/taskcalendar/calendar-api/internal"
	"github.com/taskcalendar/calendar-api/internal/elasticsearch"
	"github.com/taskcalendar/calendar-api/internal/envar"
	"github.com/taskcalendar/calendar-api/internal/isdayoff"
	"github.com/taskcalendar/calendar-api/internal/kafka"
	"github.com/taskcalendar/calendar-api/internal/memcached"
	"github.com/taskcalendar/calendar-api/internal/postgresql"
	"github.com/taskcalendar/calendar-api/internal/rabbitmq"
	"github.com/taskcalendar/calendar-api/internal/rest"
	"github.com/taskcalendar/calendar-api/internal/service"
)

func main() {
	var env, address string

	flag.StringVar(&env, "env", "", "Environment Variables filename")
	flag.StringVar(&address, "address", ":8000", "HTTP Server Address")
	flag.Parse()

	errC, err := run(env, address)
	if err != nil {
		log.Fatalf("Couldn't run: %s", err)
	}

	if err := <-errC; err != nil {
		log.Fatalf("Error while running: %s", err)
	}
}

func run(env, address string) (<-chan error, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "zap.NewProduction")
	}

	if err := envar.Load(env); err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "envar.Load")
	}

	vault, err := internal.NewVaultProvider()
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewVaultProvider")
	}

	conf := envar.New(vault)

	pool, err := internal.NewPostgreSQL(conf)
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewPostgreSQL")
	}

	es, err := internal.NewElasticSearch(conf)
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewElasticSearch")
	}

	memcachedClient, err := internal.NewMemcached(conf)
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewMemcached")
	}

	dayTypes, err := internal.NewDayTypeClient(conf, logger)
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewDayTypeClient")
	}

	promExporter, err := internal.NewOTExporter(conf)
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewOTExporter")
	}

	config := serverConfig{
		Address:       address,
		DB:            pool,
		ElasticSearch: es,
		Memcached:     memcachedClient,
		DayTypes:      dayTypes,
		Metrics:       promExporter,
		Logger:        logger,
	}

	// MESSAGE_BROKER selects the publisher; kafka unless rabbitmq is asked for.
	broker, _ := conf.Get("MESSAGE_BROKER")
	if broker == "rabbitmq" {
		rmq, err := internal.NewRabbitMQ(conf)
		if err != nil {
			return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewRabbitMQ")
		}

		config.RabbitMQ = rmq
	} else {
		kafkaProducer, err := internal.NewKafkaProducer(conf)
		if err != nil {
			return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewKafkaProducer")
		}

		config.Kafka = kafkaProducer
	}

	logging := func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Info(r.Method,
				zap.Time("time", time.Now()),
				zap.String("url", r.URL.String()),
			)

			h.ServeHTTP(w, r)
		})
	}

	config.Middlewares = []func(next http.Handler) http.Handler{otelchi.Middleware("calendar-api-server"), logging}

	srv, err := newServer(config)
	if err != nil {
		return nil, fmt.Errorf("newServer %w", err)
	}

	errC := make(chan error, 1)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		defer func() {
			logger.Sync()
			pool.Close()
			if config.RabbitMQ != nil {
				config.RabbitMQ.Close()
			}
			stop()
			cancel()
			close(errC)
		}()

		srv.SetKeepAlivesEnabled(false)

		if err := srv.Shutdown(ctxTimeout); err != nil {
			errC <- err
		}

		logger.Info("Shutdown completed")
	}()

	go func() {
		logger.Info("Listening and serving", zap.String("address", address))

		// "ListenAndServe always returns a non-nil error. After Shutdown or
		// Close, the returned error is ErrServerClosed."
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errC <- err
		}
	}()

	return errC, nil
}

type serverConfig struct {
	Address       string
	DB            *pgxpool.Pool
	ElasticSearch *esv7.Client
	Kafka         *internal.KafkaProducer
	RabbitMQ      *internal.RabbitMQ
	Memcached     *memcache.Client
	DayTypes      *isdayoff.Client
	Metrics       http.Handler
	Middlewares   []func(next http.Handler) http.Handler
	Logger        *zap.Logger
}

func newServer(conf serverConfig) (*http.Server, error) {
	router := chi.NewRouter()
	router.Use(render.SetContentType(render.ContentTypeJSON))

	for _, mw := range conf.Middlewares {
		router.Use(mw)
	}

	repo := memcached.NewTask(conf.Memcached, postgresql.NewTask(conf.DB), conf.Logger)
	search := elasticsearch.NewTask(conf.ElasticSearch)

	var msgBroker service.TaskMessageBrokerRepository

	if conf.RabbitMQ != nil {
		var err error

		msgBroker, err = rabbitmq.NewTask(conf.RabbitMQ.Channel)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq.NewTask %w", err)
		}
	} else {
		msgBroker = kafka.NewTask(conf.Kafka.Producer, conf.Kafka.Topic)
	}

	svc := service.NewDay(conf.Logger, repo, search, msgBroker, conf.DayTypes)

	rest.RegisterOpenAPI(router)
	rest.NewDayHandler(svc, conf.Logger).Register(router)

	router.Handle("/metrics", conf.Metrics)

	lmt := tollbooth.NewLimiter(3, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Second})
	lmtmw := tollbooth.LimitHandler(lmt, router)

	return &http.Server{
		Handler:           lmtmw,
		Addr:              conf.Address,
		ReadTimeout:       1 * time.Second,
		ReadHeaderTimeout: 1 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       1 * time.Second,
	}, nil
}
