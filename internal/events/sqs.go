// Package events delivers analysis completion events to the engine.
//
// The production transport is an SQS queue the analysis backend posts
// completion notifications to; the HTTP webhook endpoint is an
// alternative ingress for backends that push instead.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"

	"github.com/intakehq/intake/internal/analysis"
)

// Handler consumes one completion event. Implementations must be
// idempotent; the queue delivers at least once.
type Handler interface {
	HandleEvent(ctx context.Context, ev analysis.CompletionEvent) error
}

// SQSConfig configures an SQSConsumer.
type SQSConfig struct {
	QueueURL string
	Region   string
	// WaitTime is the long-poll duration (default 20s, the SQS maximum).
	WaitTime time.Duration
	// BatchSize caps messages per receive (default 10).
	BatchSize int
}

// SQSConsumer long-polls an SQS queue for completion events.
type SQSConsumer struct {
	client    sqsiface.SQSAPI
	queueURL  string
	waitTime  time.Duration
	batchSize int
	handler   Handler
	logger    *slog.Logger
}

// NewSQSConsumer creates a consumer backed by a real SQS client.
func NewSQSConsumer(cfg SQSConfig, handler Handler, logger *slog.Logger) (*SQSConsumer, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.Region)})
	if err != nil {
		return nil, err
	}
	return newSQSConsumer(sqs.New(sess), cfg, handler, logger), nil
}

func newSQSConsumer(client sqsiface.SQSAPI, cfg SQSConfig, handler Handler, logger *slog.Logger) *SQSConsumer {
	waitTime := cfg.WaitTime
	if waitTime <= 0 || waitTime > 20*time.Second {
		waitTime = 20 * time.Second
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 || batchSize > 10 {
		batchSize = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQSConsumer{
		client:    client,
		queueURL:  cfg.QueueURL,
		waitTime:  waitTime,
		batchSize: batchSize,
		handler:   handler,
		logger:    logger,
	}
}

// Run polls until ctx is cancelled.
func (c *SQSConsumer) Run(ctx context.Context) error {
	c.logger.Info("starting completion event consumer", "queue_url", c.queueURL)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("completion event consumer stopped")
			return ctx.Err()
		default:
		}

		if err := c.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("receive failed, backing off", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
			}
		}
	}
}

func (c *SQSConsumer) poll(ctx context.Context) error {
	out, err := c.client.ReceiveMessageWithContext(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: aws.Int64(int64(c.batchSize)),
		WaitTimeSeconds:     aws.Int64(int64(c.waitTime / time.Second)),
	})
	if err != nil {
		return err
	}

	for _, msg := range out.Messages {
		c.handleMessage(ctx, msg)
	}
	return nil
}

// handleMessage decodes and dispatches one message. Undecodable
// messages are deleted so they do not poison the queue; handler errors
// leave the message in flight for redelivery.
func (c *SQSConsumer) handleMessage(ctx context.Context, msg *sqs.Message) {
	var ev analysis.CompletionEvent
	if err := json.Unmarshal([]byte(aws.StringValue(msg.Body)), &ev); err != nil {
		c.logger.Warn("dropping undecodable completion event",
			"message_id", aws.StringValue(msg.MessageId), "error", err)
		c.delete(ctx, msg)
		return
	}

	if err := c.handler.HandleEvent(ctx, ev); err != nil {
		c.logger.Error("completion event handling failed, leaving for redelivery",
			"correlation_handle", ev.CorrelationHandle, "error", err)
		return
	}
	c.delete(ctx, msg)
}

func (c *SQSConsumer) delete(ctx context.Context, msg *sqs.Message) {
	_, err := c.client.DeleteMessageWithContext(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		c.logger.Error("failed to delete message",
			"message_id", aws.StringValue(msg.MessageId), "error", err)
	}
}
