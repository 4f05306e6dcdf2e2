package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/taskcalendar/calendar-api/cmd/internal"
	internaldomain "github.com/taskcalendar/calendar-api/internal"
	"github.com/taskcalendar/calendar-api/internal/elasticsearch"
	"github.com/taskcalendar/calendar-api/internal/envar"
)

func main() {
	var env, healthAddress string

	flag.StringVar(&env, "env", "", "Environment Variables filename")
	flag.StringVar(&healthAddress, "health-address", ":9010", "Health HTTP Server Address")
	flag.Parse()

	errC, err := run(env, healthAddress)
	if err != nil {
		log.Fatalf("Couldn't run: %s", err)
	}

	if err := <-errC; err != nil {
		log.Fatalf("Error while running: %s", err)
	}
}

func run(env, healthAddress string) (<-chan error, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("zap.NewProduction %w", err)
	}

	if err := envar.Load(env); err != nil {
		return nil, fmt.Errorf("envar.Load %w", err)
	}

	vault, err := internal.NewVaultProvider()
	if err != nil {
		return nil, fmt.Errorf("internal.NewVaultProvider %w", err)
	}

	conf := envar.New(vault)

	es, err := internal.NewElasticSearch(conf)
	if err != nil {
		return nil, fmt.Errorf("internal.NewElasticSearch %w", err)
	}

	consumer, err := internal.NewKafkaConsumer(conf, "elasticsearch-indexer")
	if err != nil {
		return nil, fmt.Errorf("internal.NewKafkaConsumer %w", err)
	}

	if _, err = internal.NewOTExporter(conf); err != nil {
		return nil, fmt.Errorf("internal.NewOTExporter %w", err)
	}

	srv := &Server{
		logger: logger,
		kafka:  consumer,
		task:   elasticsearch.NewTask(es),
		health: newHealthServer(healthAddress),
		doneC:  make(chan struct{}),
		closeC: make(chan struct{}),
	}

	errC := make(chan error, 1)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		ctxTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)

		defer func() {
			logger.Sync()
			consumer.Consumer.Unsubscribe()
			stop()
			cancel()
			close(errC)
		}()

		if err := srv.Shutdown(ctxTimeout); err != nil {
			errC <- err
		}

		logger.Info("Shutdown completed")
	}()

	go func() {
		logger.Info("Listening and serving")

		if err := srv.ListenAndServe(); err != nil {
			errC <- err
		}
	}()

	return errC, nil
}

// Server consumes task events and keeps the search index in sync.
type Server struct {
	logger *zap.Logger
	kafka  *internal.KafkaConsumer
	task   *elasticsearch.Task
	health *http.Server
	doneC  chan struct{}
	closeC chan struct{}
}

// ListenAndServe starts the health endpoint and the consume loop.
func (s *Server) ListenAndServe() error {
	go func() {
		if err := s.health.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("health server failed", zap.Error(err))
		}
	}()

	commit := func(msg *kafka.Message) {
		if _, err := s.kafka.Consumer.CommitMessage(msg); err != nil {
			s.logger.Error("commit failed", zap.Error(err))
		}
	}

	go func() {
		run := true

		for run {
			select {
			case <-s.closeC:
				run = false
			default:
				msg, ok := s.kafka.Consumer.Poll(150).(*kafka.Message)
				if !ok {
					continue
				}

				var evt struct {
					ID    string
					Type  string
					Value internaldomain.Task
				}

				if err := json.NewDecoder(bytes.NewReader(msg.Value)).Decode(&evt); err != nil {
					s.logger.Info("Ignoring invalid message", zap.Error(err))
					commit(msg)
					continue
				}

				ok = false

				switch evt.Type {
				case "tasks.event.created":
					if err := s.task.Index(context.Background(), evt.Value); err == nil {
						ok = true
					}
				case "tasks.event.deleted":
					if err := s.task.Delete(context.Background(), evt.Value.ID); err == nil {
						ok = true
					}
				case "tasks.event.cleaned":
					if err := s.task.DeleteByDate(context.Background(), evt.Value.Date); err == nil {
						ok = true
					}
				}

				if ok {
					s.logger.Info("Consumed", zap.String("id", evt.ID), zap.String("type", evt.Type))
					commit(msg)
				}
			}
		}

		s.logger.Info("No more messages to consume, exiting.")
		s.doneC <- struct{}{}
	}()

	return nil
}

// Shutdown stops the consume loop and the health endpoint.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	close(s.closeC)

	_ = s.health.Shutdown(ctx)

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context.Done: %w", ctx.Err())
		case <-s.doneC:
			return nil
		}
	}
}

func newHealthServer(address string) *http.Server {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	return &http.Server{
		Handler: router,
		Addr:    address,
	}
}
