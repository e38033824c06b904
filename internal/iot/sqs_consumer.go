// Package iot bridges camera-side recognizers to the intake: gate cameras
// publish recognition results to an SQS queue and this consumer feeds them
// through the same validation path as the HTTP endpoint.
package iot

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"parking_billing/internal/domain"
	"parking_billing/internal/repository"
	"parking_billing/internal/service"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// recognitionMessage is the queue payload produced by the camera pipeline.
type recognitionMessage struct {
	LotID      int      `json:"lot_id"`
	Plate      string   `json:"plate"`
	ObservedAt string   `json:"observed_at"`
	Confidence *float64 `json:"confidence"`
}

type SQSConsumer struct {
	sqsClient *sqs.Client
	queueURL  string
	intake    *service.RecognitionIntake
}

func NewSQSConsumer(client *sqs.Client, queueURL string, intake *service.RecognitionIntake) *SQSConsumer {
	return &SQSConsumer{
		sqsClient: client,
		queueURL:  queueURL,
		intake:    intake,
	}
}

func (c *SQSConsumer) Start(ctx context.Context) {
	log.Printf("SQS Consumer: listening on queue %s", c.queueURL)
	for {
		select {
		case <-ctx.Done():
			log.Println("SQS Consumer: context cancelled, stopping.")
			return
		default:
			receiveInput := &sqs.ReceiveMessageInput{
				QueueUrl:            &c.queueURL,
				MaxNumberOfMessages: 10,
				WaitTimeSeconds:     20,
				VisibilityTimeout:   60,
			}

			result, err := c.sqsClient.ReceiveMessage(ctx, receiveInput)
			if err != nil {
				log.Printf("SQS Consumer: receive failed: %v", err)
				select {
				case <-time.After(5 * time.Second):
				case <-ctx.Done():
					return
				}
				continue
			}

			for _, message := range result.Messages {
				if message.Body == nil {
					c.deleteMessage(ctx, message.ReceiptHandle)
					continue
				}
				if err := c.handleMessage(ctx, *message.Body); err != nil {
					if errors.Is(err, repository.ErrStorageUnavailable) {
						// Transient: leave the message for redelivery
						// after the visibility timeout.
						log.Printf("SQS Consumer: transient failure for message %s: %v", orEmpty(message.MessageId), err)
						continue
					}
					// Permanent rejections (bad plate, unknown lot,
					// clock violation) would fail identically on every
					// redelivery; drop them after logging.
					log.Printf("SQS Consumer: rejected message %s: %v", orEmpty(message.MessageId), err)
				}
				c.deleteMessage(ctx, message.ReceiptHandle)
			}
		}
	}
}

func (c *SQSConsumer) handleMessage(ctx context.Context, body string) error {
	var msg recognitionMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return err
	}

	_, err := c.intake.Submit(ctx, msg.LotID, domain.PlateObservationDTO{
		Plate:      msg.Plate,
		ObservedAt: msg.ObservedAt,
		Confidence: msg.Confidence,
	})
	return err
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		return
	}
	_, err := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &c.queueURL,
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		log.Printf("SQS Consumer: delete failed: %v", err)
	}
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
