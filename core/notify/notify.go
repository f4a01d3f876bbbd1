// Package notify publishes change notifications of the drinks service.
//
// Every successful create, update or delete results in one message on a
// Kafka topic. The message key is the id of the affected resource, so all
// changes to one drink land in the same partition in order. Operation,
// resource and request id travel as message headers, the payload is the JSON
// representation of the resource after the operation.
package notify

import (
	"context"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/relabs-tech/drinks/core"
	"github.com/relabs-tech/drinks/core/logger"
)

// message headers
const (
	HeaderOperation = "operation"
	HeaderResource  = "resource"
	HeaderRequestID = "request_id"
	HeaderMessageID = "message_id"
)

const defaultWriteTimeout = 10 * time.Second

// messageWriter is the part of *kafka.Writer the notifier needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaBuilder is a builder helper for the Kafka notifier
type KafkaBuilder struct {
	// Brokers are the kafka broker addresses. Mandatory.
	Brokers []string
	// Topic is the notification topic. Mandatory.
	Topic string
	// WriteTimeout limits a single write. Defaults to 10 seconds.
	WriteTimeout time.Duration
}

// Kafka is a core.Notifier which writes to a kafka topic
type Kafka struct {
	writer       messageWriter
	topic        string
	writeTimeout time.Duration
}

// NewKafka returns a new kafka notifier. It panics if the builder misses mandatory fields.
func NewKafka(kb *KafkaBuilder) *Kafka {
	if len(kb.Brokers) == 0 {
		panic("Brokers are missing")
	}
	if kb.Topic == "" {
		panic("Topic is missing")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(kb.Brokers...),
		Topic:                  kb.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           kb.WriteTimeout,
		Async:                  true,
	}
	k := newKafka(writer, kb.Topic, kb.WriteTimeout)
	writer.Completion = k.completed
	return k
}

func newKafka(writer messageWriter, topic string, writeTimeout time.Duration) *Kafka {
	if writeTimeout == 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Kafka{writer: writer, topic: topic, writeTimeout: writeTimeout}
}

// Notify implements core.Notifier. The message is queued and the call does not
// wait for the broker. Write errors are logged and not returned.
func (k *Kafka) Notify(ctx context.Context, resource string, operation core.Operation, payload []byte) {
	rlog := logger.FromContext(ctx)
	msg := message(ctx, resource, operation, payload)

	// detached from the request, a disconnecting client must not cancel the write
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), k.writeTimeout)
	defer cancel()
	if err := k.writer.WriteMessages(wctx, msg); err != nil {
		rlog.WithError(err).Errorf("Error 4740: cannot notify %s %s to topic %s", operation, resource, k.topic)
		return
	}
	rlog.Debugf("queued %s %s key=%s", operation, resource, msg.Key)
}

// completed is called by the async writer once a batch is delivered or failed.
// The request is long gone, so the request id comes from the message headers.
func (k *Kafka) completed(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, msg := range messages {
		rlog := logger.Default()
		if requestID := header(msg, HeaderRequestID); requestID != "" {
			rlog = rlog.WithField("requestID", requestID)
		}
		rlog.WithError(err).Errorf("Error 4740: cannot notify %s %s key=%s to topic %s",
			header(msg, HeaderOperation), header(msg, HeaderResource), msg.Key, k.topic)
	}
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Close flushes pending messages and closes the writer
func (k *Kafka) Close() error {
	return k.writer.Close()
}

// message builds the kafka message for a notification. The key is the "id"
// property of the payload, if there is one.
func message(ctx context.Context, resource string, operation core.Operation, payload []byte) kafka.Message {
	var identified struct {
		ID json.Number `json:"id"`
	}
	var key []byte
	if err := json.Unmarshal(payload, &identified); err == nil && identified.ID != "" {
		key = []byte(identified.ID.String())
	}

	headers := []kafka.Header{
		{Key: HeaderOperation, Value: []byte(operation)},
		{Key: HeaderResource, Value: []byte(resource)},
		{Key: HeaderMessageID, Value: []byte(uuid.New().String())},
	}
	if requestID := logger.RequestIDFromContext(ctx); requestID != "" {
		headers = append(headers, kafka.Header{Key: HeaderRequestID, Value: []byte(requestID)})
	}
	return kafka.Message{
		Key:     key,
		Value:   payload,
		Headers: headers,
	}
}

// IDPayload returns the notification payload for a deleted resource
func IDPayload(id int64) []byte {
	return []byte(`{"id":` + strconv.FormatInt(id, 10) + `}`)
}

// Nop is a core.Notifier which drops all notifications
type Nop struct{}

// Notify implements core.Notifier
func (Nop) Notify(ctx context.Context, resource string, operation core.Operation, payload []byte) {
	logger.FromContext(ctx).Debugf("notification %s %s dropped", operation, resource)
}
