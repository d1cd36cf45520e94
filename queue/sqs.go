// The SQS back-end: batch send of up to MaxBatch, receive one message
// at a time, delete by receipt handle.
package queue

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/pkg/errors"
	"github.com/teris-io/shortid"
)

// SqsQueue is the cloud-queue back-end. InFlight, when non-nil, is
// consulted to suppress re-enqueueing a coord already being processed
// (left nil entirely during seeding, where there is nothing in flight
// yet to suppress).
type SqsQueue struct {
	Client      *sqs.Client
	QueueURL    string
	WaitSeconds int32 // long-poll duration, up to the provider's maximum
	InFlight    *InFlightTracker

	// SuppressInFlightCheck disables the InFlight lookup, for the
	// seed command where re-delivery races don't apply.
	SuppressInFlightCheck bool
}

func NewSqsQueue(client *sqs.Client, queueURL string, waitSeconds int32) *SqsQueue {
	return &SqsQueue{Client: client, QueueURL: queueURL, WaitSeconds: waitSeconds}
}

func (q *SqsQueue) Enqueue(payloads [][]byte) (EnqueueResult, error) {
	if len(payloads) > MaxBatch {
		return EnqueueResult{}, errors.Errorf("queue: batch of %d exceeds max %d", len(payloads), MaxBatch)
	}

	entries := make([]types.SendMessageBatchRequestEntry, 0, len(payloads))
	toMark := make([]string, 0, len(payloads))
	for _, p := range payloads {
		body := string(p)
		if !q.SuppressInFlightCheck && q.InFlight != nil && q.InFlight.InFlight(body) {
			continue
		}
		id, _ := shortid.Generate()
		entries = append(entries, types.SendMessageBatchRequestEntry{
			Id:          aws.String(id),
			MessageBody: aws.String(body),
		})
		toMark = append(toMark, body)
	}
	if len(entries) == 0 {
		return EnqueueResult{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	resp, err := q.Client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
		QueueUrl: aws.String(q.QueueURL),
		Entries:  entries,
	})
	if err != nil {
		// atomic w.r.t. partial failure: nothing is marked in-flight.
		return EnqueueResult{}, errors.Wrap(err, "queue: sqs send_message_batch")
	}
	if len(resp.Failed) > 0 {
		return EnqueueResult{}, errors.Errorf("queue: %d messages failed to send to sqs", len(resp.Failed))
	}

	if q.InFlight != nil && !q.SuppressInFlightCheck {
		for _, body := range toMark {
			_ = q.InFlight.Mark(body)
		}
	}

	inFlight := 0
	if q.InFlight != nil {
		inFlight = q.InFlight.Count()
	}
	return EnqueueResult{Queued: len(entries), InFlight: inFlight}, nil
}

func (q *SqsQueue) Read() (Handle, error) {
	ctx := context.Background()
	resp, err := q.Client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:                    aws.String(q.QueueURL),
		MaxNumberOfMessages:         1,
		WaitTimeSeconds:             q.WaitSeconds,
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{types.MessageSystemAttributeNameSentTimestamp},
	})
	if err != nil {
		return Handle{}, errors.Wrap(err, "queue: sqs receive_message")
	}
	if len(resp.Messages) == 0 {
		return Handle{}, errNoMessage
	}
	msg := resp.Messages[0]
	var sentAt time.Time
	if ts, ok := msg.Attributes[string(types.MessageSystemAttributeNameSentTimestamp)]; ok {
		if ms, perr := parseUnixMillis(ts); perr == nil {
			sentAt = ms
		}
	}
	return Handle{
		ProviderHandle: aws.ToString(msg.ReceiptHandle),
		Payload:        []byte(aws.ToString(msg.Body)),
		SentAt:         sentAt,
	}, nil
}

func (q *SqsQueue) Done(h Handle) error {
	ctx := context.Background()
	_, err := q.Client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.QueueURL),
		ReceiptHandle: aws.String(h.ProviderHandle),
	})
	if err != nil {
		return errors.Wrap(err, "queue: sqs delete_message")
	}
	if q.InFlight != nil {
		_ = q.InFlight.Clear(string(h.Payload))
	}
	return nil
}

func (q *SqsQueue) Clear() (int, error) {
	n := 0
	for {
		h, err := q.Read()
		if err == errNoMessage {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := q.Done(h); err != nil {
			return n, err
		}
		n++
	}
}

// errNoMessage signals an idle long-poll (0 messages); callers should
// treat this as normal and retry, not as a hard failure.
var errNoMessage = errors.New("queue: no message available")

func IsNoMessage(err error) bool { return errors.Is(err, errNoMessage) }

var _ Queue = (*SqsQueue)(nil)
