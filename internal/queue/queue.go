// Package queue carries joke lifecycle events from writers (API, generator)
// to background consumers.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"txtforge/internal/config"
	"txtforge/pkg/logger"

	"github.com/nats-io/nats.go"
)

const (
	JokeSubject   = "jokes.events"
	ConsumerGroup = "txtforge-indexer"
)

var (
	ErrQueueFull   = errors.New("event queue is full")
	ErrQueueClosed = errors.New("event queue is closed")
)

type EventType string

const (
	JokeCreated EventType = "joke.created"
	JokeUpdated EventType = "joke.updated"
	JokeDeleted EventType = "joke.deleted"
)

type JokeEvent struct {
	Type      EventType `json:"type"`
	JokeID    int64     `json:"joke_id"`
	SectionID int64     `json:"section_id"`
	Generated bool      `json:"generated"`
	At        time.Time `json:"at"`
}

// Queue is implemented by the JetStream-backed NATS queue and by Local.
type Queue interface {
	PublishJokeEvent(ctx context.Context, event *JokeEvent) error
	ConsumeJokeEvents(ctx context.Context, handler func(*JokeEvent) error) error
	Close()
}

type NATS struct {
	conn      *nats.Conn
	jetstream nats.JetStreamContext
	cfg       config.NATSConfig
}

func New(cfg config.NATSConfig) (*NATS, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name("txtforge"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to get JetStream: %w", err)
	}

	n := &NATS{
		conn:      conn,
		jetstream: js,
		cfg:       cfg,
	}

	if err := n.ensureStream(); err != nil {
		conn.Close()
		return nil, err
	}

	return n, nil
}

func (n *NATS) ensureStream() error {
	_, err := n.jetstream.StreamInfo(n.cfg.StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", n.cfg.StreamName, err)
	}

	_, err = n.jetstream.AddStream(&nats.StreamConfig{
		Name:     n.cfg.StreamName,
		Subjects: []string{JokeSubject},
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", n.cfg.StreamName, err)
	}

	logger.Info("JetStream stream created", logger.String("stream", n.cfg.StreamName))
	return nil
}

func (n *NATS) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}

func (n *NATS) PublishJokeEvent(ctx context.Context, event *JokeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal joke event: %w", err)
	}

	_, err = n.jetstream.Publish(JokeSubject, data, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("failed to publish joke event: %w", err)
	}

	logger.Debug("Joke event published",
		logger.String("type", string(event.Type)),
		logger.Int64("joke_id", event.JokeID),
	)

	return nil
}

func (n *NATS) ConsumeJokeEvents(ctx context.Context, handler func(*JokeEvent) error) error {
	sub, err := n.jetstream.PullSubscribe(
		JokeSubject,
		ConsumerGroup,
		nats.BindStream(n.cfg.StreamName),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to joke events: %w", err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msgs, err := sub.Fetch(10, nats.MaxWait(500*time.Millisecond))
			if err != nil {
				if errors.Is(err, nats.ErrTimeout) {
					continue
				}
				return fmt.Errorf("failed to fetch messages: %w", err)
			}

			for _, msg := range msgs {
				var event JokeEvent
				if err := json.Unmarshal(msg.Data, &event); err != nil {
					logger.Error("Failed to unmarshal joke event",
						logger.Err(err),
					)
					msg.Term()
					continue
				}

				if err := handler(&event); err != nil {
					logger.Error("Failed to process joke event",
						logger.String("type", string(event.Type)),
						logger.Int64("joke_id", event.JokeID),
						logger.Err(err),
					)
					msg.Nak()
					continue
				}

				msg.Ack()
			}
		}
	}
}

// Local is an in-process queue used when NATS is disabled. Events published
// while no consumer runs stay buffered up to the channel capacity.
type Local struct {
	events chan *JokeEvent
	done   chan struct{}
}

func NewLocal(size int) *Local {
	return &Local{
		events: make(chan *JokeEvent, size),
		done:   make(chan struct{}),
	}
}

func (l *Local) PublishJokeEvent(_ context.Context, event *JokeEvent) error {
	select {
	case <-l.done:
		return ErrQueueClosed
	default:
	}

	select {
	case l.events <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

func (l *Local) ConsumeJokeEvents(ctx context.Context, handler func(*JokeEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return ErrQueueClosed
		case event := <-l.events:
			if err := handler(event); err != nil {
				logger.Error("Failed to process joke event",
					logger.String("type", string(event.Type)),
					logger.Int64("joke_id", event.JokeID),
					logger.Err(err),
				)
			}
		}
	}
}

func (l *Local) Close() {
	select {
	case <-l.done:
	default:
		close(l.done)
	}
}
