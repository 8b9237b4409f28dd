// Package events publishes lead lifecycle events to Kafka so downstream
// consumers (reporting, notification fan-out) can react without coupling
// to the CRM's request path.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"tripdesk/pkg/logger"
)

const (
	TypeLeadCreated    = "lead.created"
	TypeStageChanged   = "lead.stage_changed"
	TypeAgentAssigned  = "lead.agent_assigned"
	TypeLeadStale      = "lead.stale"
	TypeLeadDeleted    = "lead.deleted"
)

// LeadEvent is the wire payload for the lead-events topic. Messages are
// keyed by LeadID so per-lead ordering is preserved across partitions.
type LeadEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	LeadID     string    `json:"leadId"`
	ActorID    string    `json:"actorId,omitempty"`
	AgentID    string    `json:"agentId,omitempty"`
	FromStage  string    `json:"fromStage,omitempty"`
	ToStage    string    `json:"toStage,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher emits lead events. Publishing is best effort: a broker
// outage must never fail the mutation that triggered the event.
type Publisher interface {
	Publish(ctx context.Context, event LeadEvent)
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
	log    *logger.Logger
	closed bool
	mu     sync.RWMutex
}

// NewKafkaPublisher builds a publisher over the given brokers. Returns
// nil when brokers is empty so callers can treat eventing as optional.
func NewKafkaPublisher(brokers []string, topic string, log *logger.Logger) Publisher {
	if len(brokers) == 0 {
		return nil
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Logger:       kafka.LoggerFunc(func(msg string, args ...any) {}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error("Kafka writer error", "detail", msg)
		}),
	}

	return &kafkaPublisher{
		writer: writer,
		log:    log,
	}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event LeadEvent) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return
	}
	p.mu.RUnlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		p.log.Error("Failed to encode lead event", "type", event.Type, "lead_id", event.LeadID, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.LeadID),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("Failed to publish lead event", "type", event.Type, "lead_id", event.LeadID, "error", err)
	}
}

func (p *kafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	return p.writer.Close()
}
