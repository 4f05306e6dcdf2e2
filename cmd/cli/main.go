package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/taskcalendar/calendar-api/pkg/calendar"
)

func main() {
	initTracer()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Couldn't initialize logger: %s", err)
	}
	defer logger.Sync()

	client := calendar.NewClient("http://0.0.0.0:8000", logger)

	ctx := context.Background()

	date := time.Now().Format("2006-01-02")

	// Create
	if err := client.Create(ctx, date, "Sleep early"); err != nil {
		log.Fatalf("Couldn't create task: %s", err)
	}

	if err := client.Create(ctx, date, "Buy groceries"); err != nil {
		log.Fatalf("Couldn't create task: %s", err)
	}

	// List
	day, err := client.List(ctx, date)
	if err != nil {
		log.Fatalf("Couldn't list tasks: %s", err)
	}

	fmt.Printf("Day %s\n\tType: %s\n", date, day.Type)

	for _, task := range day.Tasks {
		fmt.Printf("\tTask %d: %s (position %d)\n", task.ID, task.Text, task.Position)
	}

	// Search
	found, err := client.Search(ctx, "groceries")
	if err != nil {
		log.Fatalf("Couldn't search tasks: %s", err)
	}

	fmt.Printf("Search matched %d task(s)\n", len(found))

	// Delete the first task, then remove the rest of the day.
	if len(day.Tasks) > 0 {
		if err := client.Delete(ctx, date, day.Tasks[0].Position); err != nil {
			log.Fatalf("Couldn't delete task: %s", err)
		}
	}

	if err := client.Clean(ctx, date); err != nil {
		log.Fatalf("Couldn't clean date: %s", err)
	}

	time.Sleep(10 * time.Second)
}

// initTracer wires Jaeger and stdout exporters into the global trace provider.
func initTracer() {
	jaegerEndpoint := "http://localhost:14268/api/traces"

	jaegerExporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)))
	if err != nil {
		log.Fatalf("Couldn't initialize jaeger exporter: %s", err)
	}

	stdoutExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		log.Fatalf("Couldn't initialize stdout exporter: %s", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(stdoutExporter),
		sdktrace.WithBatcher(jaegerExporter),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
}
