package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ds124wfegd/ktx2converter/internal/entity"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const DefaultTopic = "ktx2-conversions"

type Producer interface {
	Publish(ctx context.Context, event entity.ConversionEvent) error
	Close() error
}

type kafkaProducer struct {
	writer *kafka.Writer
}

// NewProducer returns a kafka-backed producer, or a log-only producer when no brokers
// are configured or the brokers cannot be reached.
func NewProducer(brokers []string, topic string) Producer {
	if len(brokers) == 0 {
		logrus.Info("No Kafka brokers configured, conversion events go to the log")
		return &logProducer{}
	}
	if topic == "" {
		topic = DefaultTopic
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		logrus.Warnf("Kafka connection failed: %v, using log producer instead", err)
		return &logProducer{}
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		logrus.Debugf("Could not create topic %s (might already exist): %v", topic, err)
	}

	logrus.WithField("brokers", brokers).Info("Connected to Kafka")
	return &kafkaProducer{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}}
}

func (p *kafkaProducer) Publish(ctx context.Context, event entity.ConversionEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.JobID),
		Value: value,
		Time:  event.Time,
	})
}

func (p *kafkaProducer) Close() error {
	return p.writer.Close()
}

// logProducer writes events to the application log when Kafka is not available.
type logProducer struct{}

func (logProducer) Publish(_ context.Context, event entity.ConversionEvent) error {
	logrus.WithFields(logrus.Fields{
		"job_id":       event.JobID,
		"outcome":      event.Outcome,
		"input_bytes":  event.InputBytes,
		"output_bytes": event.OutputBytes,
		"cached":       event.Cached,
		"duration_ms":  event.DurationMS,
	}).Info("conversion event")
	return nil
}

func (logProducer) Close() error { return nil }
