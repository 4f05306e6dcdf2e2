package internal

import (
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/taskcalendar/calendar-api/internal/envar"
)

// KafkaProducer bundles the producer with the topic task events go to.
type KafkaProducer struct {
	Producer *kafka.Producer
	Topic    string
}

// NewKafkaProducer instantiates the Kafka producer using configuration
// defined in environment variables.
func NewKafkaProducer(conf *envar.Configuration) (*KafkaProducer, error) {
	host, err := conf.Get("KAFKA_HOST")
	if err != nil {
		return nil, fmt.Errorf("conf.Get KAFKA_HOST %w", err)
	}

	topic, err := conf.Get("KAFKA_TOPIC")
	if err != nil {
		return nil, fmt.Errorf("conf.Get KAFKA_TOPIC %w", err)
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": host,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka.NewProducer %w", err)
	}

	return &KafkaProducer{
		Producer: producer,
		Topic:    topic,
	}, nil
}

// KafkaConsumer bundles the consumer subscribed to the task events topic.
type KafkaConsumer struct {
	Consumer *kafka.Consumer
}

// NewKafkaConsumer instantiates the Kafka consumer using configuration
// defined in environment variables.
func NewKafkaConsumer(conf *envar.Configuration, groupID string) (*KafkaConsumer, error) {
	host, err := conf.Get("KAFKA_HOST")
	if err != nil {
		return nil, fmt.Errorf("conf.Get KAFKA_HOST %w", err)
	}

	topic, err := conf.Get("KAFKA_TOPIC")
	if err != nil {
		return nil, fmt.Errorf("conf.Get KAFKA_TOPIC %w", err)
	}

	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  host,
		"group.id":           groupID,
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": false,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka.NewConsumer %w", err)
	}

	if err := consumer.Subscribe(topic, nil); err != nil {
		return nil, fmt.Errorf("consumer.Subscribe %w", err)
	}

	return &KafkaConsumer{
		Consumer: consumer,
	}, nil
}
