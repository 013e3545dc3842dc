package judge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/klauspost/compress/zstd"
	"github.com/profound-academy/backend/logger"
	"github.com/profound-academy/backend/submdomain"
	"golang.org/x/sync/errgroup"
)

// ResultMessage is one judge result delivered through the queue.
type ResultMessage struct {
	UserID       string                  `json:"userId"`
	SubmissionID string                  `json:"submissionId"`
	Result       *submdomain.JudgeResult `json:"result"`
}

// DecodeMessage accepts plain JSON or base64 encoded zstd compressed JSON.
func DecodeMessage(body string) (*ResultMessage, error) {
	raw := []byte(body)
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		compressed, err := base64.StdEncoding.DecodeString(string(trimmed))
		if err != nil {
			return nil, fmt.Errorf("message is neither JSON nor base64: %w", err)
		}
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer decoder.Close()
		raw, err = decoder.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress message: %w", err)
		}
	}

	var msg ResultMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if msg.UserID == "" || msg.SubmissionID == "" {
		return nil, errors.New("message lacks userId or submissionId")
	}
	return &msg, nil
}

// EncodeMessage is the compressed form accepted by DecodeMessage.
func EncodeMessage(msg ResultMessage) (string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer encoder.Close()
	compressed := encoder.EncodeAll(data, make([]byte, 0, len(data)))
	return base64.StdEncoding.EncodeToString(compressed), nil
}

type ResultProcessor interface {
	ProcessResult(ctx context.Context, res *submdomain.JudgeResult, userID, submissionID string) error
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Consumer long-polls the results queue. A message is deleted only after
// it was processed successfully, failed ones reappear after the queue's
// visibility timeout.
type Consumer struct {
	logger    *slog.Logger
	client    sqsAPI
	queueURL  string
	processor ResultProcessor
	// messages handled at once
	concurrency int
}

func NewConsumer(client sqsAPI, queueURL string, processor ResultProcessor, concurrency int) *Consumer {
	if concurrency <= 0 {
		concurrency = 20
	}
	return &Consumer{
		logger:    slog.Default().With("module", "judge-consumer"),
		client:    client,
		queueURL:  queueURL,
		processor: processor,

		concurrency: concurrency,
	}
}

// Run receives until ctx is cancelled, then waits for the messages already
// received. Those are finished on a context that is not cancelled, so
// their results are stored and acknowledged.
func (c *Consumer) Run(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	handleCtx := context.WithoutCancel(ctx)

	for {
		if ctx.Err() != nil {
			break
		}

		output, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     5,
		})
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			c.logger.Error("failed to receive messages", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		for _, msg := range output.Messages {
			g.Go(func() error {
				c.Handle(handleCtx, msg)
				return nil
			})
		}
	}

	c.logger.Info("stopped receiving, waiting for in-flight messages")
	_ = g.Wait()
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

// Handle processes one queue message and acknowledges it on success.
// It reports whether the message was deleted.
func (c *Consumer) Handle(ctx context.Context, msg types.Message) bool {
	if msg.Body == nil || msg.ReceiptHandle == nil {
		c.logger.Error("message without body or receipt handle", "message_id", aws.ToString(msg.MessageId))
		return false
	}
	decoded, err := DecodeMessage(*msg.Body)
	if err != nil {
		c.logger.Error("failed to decode result message", "message_id", aws.ToString(msg.MessageId), "error", err)
		return false
	}

	log := c.logger.With("message_id", aws.ToString(msg.MessageId))
	err = c.processor.ProcessResult(logger.WithLogger(ctx, log), decoded.Result, decoded.UserID, decoded.SubmissionID)
	if err != nil {
		log.Error("failed to process judge result", "error", err,
			"user_id", decoded.UserID, "submission_id", decoded.SubmissionID)
		return false
	}

	_, err = c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		log.Error("failed to ack message", "error", err)
		return false
	}
	return true
}
