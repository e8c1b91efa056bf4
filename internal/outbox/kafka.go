package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

const headerEventType = "event_type"

// KafkaProducer publishes outbox entries with franz-go. Records are keyed by
// process identifier so one identifier maps to one partition.
type KafkaProducer struct {
	client *kgo.Client
	topic  string
}

var _ Producer = (*KafkaProducer)(nil)

func NewKafkaProducer(brokers []string, topic string, opts ...kgo.Opt) (*KafkaProducer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: at least one broker required")
	}
	if topic == "" {
		return nil, errors.New("kafka: topic required")
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &KafkaProducer{client: client, topic: topic}, nil
}

func (p *KafkaProducer) Publish(ctx context.Context, key, value []byte, eventType string) error {
	record := &kgo.Record{
		Key:   key,
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: headerEventType, Value: []byte(eventType)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("kafka produce: %w", err)
	}
	return nil
}

// EnsureTopic creates the topic if it does not exist yet.
func (p *KafkaProducer) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopics(ctx, partitions, replicationFactor, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	for _, t := range resp {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}

// Ping checks that at least one broker answers.
func (p *KafkaProducer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func (p *KafkaProducer) Close() error {
	p.client.Close()
	return nil
}
