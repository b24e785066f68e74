// Package notification publishes wallet events for the messaging
// subsystem. Without a broker the events are only logged.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"coursepay/internal/clock"
	"coursepay/internal/logger"
	"coursepay/internal/models"

	"github.com/IBM/sarama"
)

// Event types
const (
	EventPurchase = "wallet.purchase"
	EventRefund   = "wallet.refund"
	EventRecharge = "wallet.recharge"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "wallet.events"

// Event is the message body published for every notification.
type Event struct {
	Type          string    `json:"type"`
	StudentID     uint      `json:"student_id"`
	CourseID      uint      `json:"course_id,omitempty"`
	Amount        string    `json:"amount"`
	TransactionID uint      `json:"transaction_id"`
	Reference     string    `json:"reference"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Dispatcher struct {
	producer sarama.SyncProducer
	topic    string
	clock    clock.Clock
}

// NewDispatcher returns a dispatcher publishing to topic. A nil producer
// makes it log events instead.
func NewDispatcher(producer sarama.SyncProducer, topic string, clk clock.Clock) *Dispatcher {
	if topic == "" {
		topic = DefaultTopic
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Dispatcher{producer: producer, topic: topic, clock: clk}
}

// NewKafkaProducer connects a synchronous producer that waits for all
// in-sync replicas.
func NewKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	logger.Infof("Kafka producer connected to %v", brokers)
	return producer, nil
}

func (d *Dispatcher) SendPurchaseNotification(ctx context.Context, studentID, courseID uint, txn *models.Transaction) error {
	return d.publish(ctx, EventPurchase, studentID, courseID, txn)
}

func (d *Dispatcher) SendRefundNotification(ctx context.Context, studentID, courseID uint, txn *models.Transaction) error {
	return d.publish(ctx, EventRefund, studentID, courseID, txn)
}

func (d *Dispatcher) SendRechargeNotification(ctx context.Context, studentID uint, txn *models.Transaction) error {
	return d.publish(ctx, EventRecharge, studentID, 0, txn)
}

// Close releases the producer.
func (d *Dispatcher) Close() error {
	if d.producer == nil {
		return nil
	}
	return d.producer.Close()
}

func (d *Dispatcher) publish(ctx context.Context, eventType string, studentID, courseID uint, txn *models.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	event := Event{
		Type:          eventType,
		StudentID:     studentID,
		CourseID:      courseID,
		Amount:        txn.Amount.Abs().StringFixed(2),
		TransactionID: txn.ID,
		Reference:     txn.Reference,
		OccurredAt:    d.clock.Now(),
	}

	if d.producer == nil {
		logger.Infof("Notify student %d: %s of %s (ref %s)", studentID, eventType, event.Amount, txn.Reference)
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}
	msg := &sarama.ProducerMessage{
		Topic: d.topic,
		// keyed by student so one student's events stay ordered
		Key:   sarama.StringEncoder(strconv.FormatUint(uint64(studentID), 10)),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(eventType)},
		},
	}
	partition, offset, err := d.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	logger.Debugf("Published %s event for student %d (partition %d, offset %d)", eventType, studentID, partition, offset)
	return nil
}
