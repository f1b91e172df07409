package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"storefront_pay/internal/models"
)

const (
	TopicPaymentSucceeded       = "payment.succeeded"
	TopicPaymentFailed          = "payment.failed"
	TopicPaymentRefundInitiated = "payment.refund_initiated"
)

// PaymentEvent is the JSON body of every payment topic.
type PaymentEvent struct {
	Event                string    `json:"event"`
	TransactionID        string    `json:"transactionId"`
	OrderID              string    `json:"orderId"`
	UserID               *uint     `json:"userId,omitempty"`
	Provider             string    `json:"provider"`
	GatewayTransactionID string    `json:"gatewayTransactionId"`
	Status               string    `json:"status"`
	Amount               string    `json:"amount"`
	Currency             string    `json:"currency"`
	FailureReason        string    `json:"failureReason,omitempty"`
	RefundID             string    `json:"refundId,omitempty"`
	RefundAmount         string    `json:"refundAmount,omitempty"`
	OccurredAt           time.Time `json:"occurredAt"`
}

// KafkaPublisher implements payments.Listener by publishing each event to
// its topic, keyed by order id so one order's events stay ordered.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	log      *zap.Logger
}

func NewKafkaPublisher(brokers []string, log *zap.Logger) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	var (
		producer sarama.SyncProducer
		err      error
	)
	for i := 1; i <= 5; i++ {
		producer, err = sarama.NewSyncProducer(brokers, config)
		if err == nil {
			log.Info("kafka producer initialized", zap.Strings("brokers", brokers))
			return NewKafkaPublisherWithProducer(producer, log), nil
		}
		log.Warn("waiting for kafka", zap.Int("attempt", i), zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("start kafka producer: %w", err)
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, log: log}
}

func transactionEvent(event string, tx models.Transaction) PaymentEvent {
	e := PaymentEvent{
		Event:                event,
		TransactionID:        tx.ID,
		OrderID:              tx.OrderID,
		UserID:               tx.UserID,
		Provider:             string(tx.Provider),
		GatewayTransactionID: tx.GatewayTransactionID,
		Status:               string(tx.Status),
		Amount:               tx.Amount.StringFixed(2),
		Currency:             tx.Currency,
		OccurredAt:           time.Now().UTC(),
	}
	if tx.FailureReason != nil {
		e.FailureReason = *tx.FailureReason
	}
	return e
}

func (p *KafkaPublisher) publish(topic, key string, event PaymentEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("send %s event: %w", topic, err)
	}

	p.log.Debug("published payment event",
		zap.String("topic", topic),
		zap.String("transaction_id", event.TransactionID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (p *KafkaPublisher) PaymentSucceeded(ctx context.Context, tx models.Transaction) error {
	return p.publish(TopicPaymentSucceeded, tx.OrderID, transactionEvent(TopicPaymentSucceeded, tx))
}

func (p *KafkaPublisher) PaymentFailed(ctx context.Context, tx models.Transaction) error {
	return p.publish(TopicPaymentFailed, tx.OrderID, transactionEvent(TopicPaymentFailed, tx))
}

func (p *KafkaPublisher) RefundInitiated(ctx context.Context, tx models.Transaction, refund models.Refund) error {
	e := transactionEvent(TopicPaymentRefundInitiated, tx)
	e.RefundID = refund.GatewayRefundID
	e.RefundAmount = refund.Amount.StringFixed(2)
	return p.publish(TopicPaymentRefundInitiated, tx.OrderID, e)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
