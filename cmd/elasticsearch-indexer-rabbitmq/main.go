package main

import (
	"bytes"
	"context"
	"encoding/gob"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/taskcalendar/calendar-api/cmd/internal"
	internaldomain "github.com/taskcalendar/calendar-api/internal"
	"github.com/taskcalendar/calendar-api/internal/elasticsearch"
	"github.com/taskcalendar/calendar-api/internal/envar"
)

const rabbitMQConsumerName = "elasticsearch-indexer"

func main() {
	var env, healthAddress string

	flag.StringVar(&env, "env", "", "Environment Variables filename")
	flag.StringVar(&healthAddress, "health-address", ":9011", "Health HTTP Server Address")
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

	es, err := internal.NewElasticSearch(conf)
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewElasticSearch")
	}

	rmq, err := internal.NewRabbitMQ(conf)
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewRabbitMQ")
	}

	if _, err = internal.NewOTExporter(conf); err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "internal.NewOTExporter")
	}

	srv := &Server{
		logger: logger,
		rmq:    rmq,
		task:   elasticsearch.NewTask(es),
		health: newHealthServer(healthAddress),
		done:   make(chan struct{}),
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
			rmq.Close()
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
	rmq    *internal.RabbitMQ
	task   *elasticsearch.Task
	health *http.Server
	done   chan struct{}
}

// ListenAndServe starts the health endpoint and the consume loop.
func (s *Server) ListenAndServe() error {
	queue, err := s.rmq.Channel.QueueDeclare(
		"",    // name
		false, // durable
		false, // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "ch.QueueDeclare")
	}

	if err := s.rmq.Channel.QueueBind(
		queue.Name,     // queue name
		"tasks.event*", // routing key
		"tasks",        // exchange
		false,          // no-wait
		nil,            // arguments
	); err != nil {
		return internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "ch.QueueBind")
	}

	msgs, err := s.rmq.Channel.Consume(
		queue.Name,           // queue
		rabbitMQConsumerName, // consumer
		false,                // auto-ack
		false,                // exclusive
		false,                // no-local
		false,                // no-wait
		nil,                  // args
	)
	if err != nil {
		return internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "ch.Consume")
	}

	go func() {
		if err := s.health.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("health server failed", zap.Error(err))
		}
	}()

	go func() {
		for msg := range msgs {
			s.logger.Info("Received message", zap.String("routing_key", msg.RoutingKey))

			var nack bool

			var task internaldomain.Task
			if err := gob.NewDecoder(bytes.NewReader(msg.Body)).Decode(&task); err != nil {
				s.logger.Info("Ignoring invalid message", zap.Error(err))
				_ = msg.Ack(false)
				continue
			}

			switch msg.RoutingKey {
			case "tasks.event.created":
				if err := s.task.Index(context.Background(), task); err != nil {
					nack = true
				}
			case "tasks.event.deleted":
				if err := s.task.Delete(context.Background(), task.ID); err != nil {
					nack = true
				}
			case "tasks.event.cleaned":
				if err := s.task.DeleteByDate(context.Background(), task.Date); err != nil {
					nack = true
				}
			}

			if nack {
				s.logger.Info("NAcking")
				_ = msg.Nack(false, nack)
			} else {
				s.logger.Info("Acking")
				_ = msg.Ack(false)
			}
		}

		s.logger.Info("No more messages to consume, exiting.")
		s.done <- struct{}{}
	}()

	return nil
}

// Shutdown stops the consume loop and the health endpoint.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	_ = s.rmq.Channel.Cancel(rabbitMQConsumerName, false)
	_ = s.health.Shutdown(ctx)

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context.Done: %w", ctx.Err())
		case <-s.done:
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
