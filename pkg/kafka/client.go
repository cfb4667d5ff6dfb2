package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/angelmondragon/foodhall-backend/pkg/config"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
)

var errNoBrokers = errors.New("kafka brokers are required")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type dialFunc func(ctx context.Context, network, address string) (*kafka.Conn, error)

// Client publishes domain events to Kafka. Topics are set per message so a single
// writer serves every topic.
type Client struct {
	writer  messageWriter
	brokers []string
	dial    dialFunc
}

// NewClient builds a writer for the configured brokers. No connection is opened until the first write.
func NewClient(ctx context.Context, cfg config.KafkaConfig, logg *logger.Logger) (*Client, error) {
	brokers := cfg.BrokerList()
	if len(brokers) == 0 {
		return nil, errNoBrokers
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           writeTimeout,
		AllowAutoTopicCreation: true,
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "brokers", brokers), "kafka writer initialized")
	}
	return &Client{writer: writer, brokers: brokers, dial: kafka.DialContext}, nil
}

// Publish writes a single message. Messages sharing a key land on the same partition.
func (c *Client) Publish(ctx context.Context, topic string, key string, value []byte, headers map[string]string) error {
	if c == nil || c.writer == nil {
		return errors.New("kafka client not initialized")
	}
	if topic == "" {
		return errors.New("topic is required")
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	if err := c.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to %s: %w", topic, err)
	}
	return nil
}

// Ping dials the first reachable broker.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dial == nil {
		return errors.New("kafka client not initialized")
	}
	var lastErr error
	for _, broker := range c.brokers {
		conn, err := c.dial(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	if lastErr == nil {
		lastErr = errNoBrokers
	}
	return fmt.Errorf("dial kafka: %w", lastErr)
}

// Close flushes pending writes.
func (c *Client) Close() error {
	if c == nil || c.writer == nil {
		return nil
	}
	return c.writer.Close()
}
