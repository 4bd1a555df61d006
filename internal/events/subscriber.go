// Package events feeds upload events published on NATS into the receipt pipeline.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/zombor/fuel-tracker/internal/pipeline"
)

const (
	// DefaultSubject carries storage upload-completed events
	DefaultSubject = "storage.files.create"
	// DefaultQueueGroup spreads events over replicas so each is processed once
	DefaultQueueGroup = "fuel-tracker"
)

// Processor runs an upload event through the receipt pipeline
type Processor interface {
	Process(ctx context.Context, payload any) pipeline.Result
}

// Options tune the NATS connection
type Options struct {
	Subject        string
	QueueGroup     string
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
}

// Subscriber processes every message on a subject and answers requests with the result
type Subscriber struct {
	conn       *nats.Conn
	subject    string
	queueGroup string
	processor  Processor
	publish    func(subject string, data []byte) error
}

// NewSubscriber connects to the NATS server at url
func NewSubscriber(url string, processor Processor, options Options) (*Subscriber, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}

	conn, err := nats.Connect(
		url,
		nats.Name("fuel-tracker"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	s := NewSubscriberWithPublisher(processor, options, conn.Publish)
	s.conn = conn
	return s, nil
}

// NewSubscriberWithPublisher creates a Subscriber without a connection, replies
// go through publish. Used by tests.
func NewSubscriberWithPublisher(processor Processor, options Options, publish func(subject string, data []byte) error) *Subscriber {
	if options.Subject == "" {
		options.Subject = DefaultSubject
	}
	if options.QueueGroup == "" {
		options.QueueGroup = DefaultQueueGroup
	}
	return &Subscriber{
		subject:    options.Subject,
		queueGroup: options.QueueGroup,
		processor:  processor,
		publish:    publish,
	}
}

// Run subscribes and blocks until ctx is cancelled, then drains the subscription
func (s *Subscriber) Run(ctx context.Context) error {
	if s.conn == nil {
		return errors.New("nats subscriber has no connection")
	}

	sub, err := s.conn.QueueSubscribe(s.subject, s.queueGroup, s.handler(ctx))
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := s.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	slog.Info("Listening for upload events", "subject", s.subject, "queue_group", s.queueGroup)

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := s.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// handler processes messages until the subscription is drained. Messages the
// drain delivers after ctx is cancelled are still processed to completion.
func (s *Subscriber) handler(ctx context.Context) nats.MsgHandler {
	ctx = context.WithoutCancel(ctx)
	return func(msg *nats.Msg) {
		s.Handle(ctx, msg)
	}
}

// Handle processes one message. The result is published to the reply
// subject when the sender asked for one.
func (s *Subscriber) Handle(ctx context.Context, msg *nats.Msg) pipeline.Result {
	result := s.processor.Process(ctx, json.RawMessage(msg.Data))
	slog.Info("Processed upload event", "subject", msg.Subject, "outcome", result.Outcome())

	if msg.Reply == "" {
		return result
	}
	data, err := json.Marshal(result)
	if err != nil {
		slog.Error("Error encoding event result", "error", err)
		return result
	}
	if err := s.publish(msg.Reply, data); err != nil {
		slog.Error("Error replying to event", "reply", msg.Reply, "error", err)
	}
	return result
}

// Close closes the NATS connection
func (s *Subscriber) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}
