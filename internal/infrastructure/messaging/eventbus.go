// Package messaging implements the event bus for SkillPath Progression.
// It provides an in-memory bus for single-instance deployments and tests,
// and a Redis Pub/Sub bus for distributed deployments.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/skillpath-hub/skillpath-progression/internal/domain/shared"
	"github.com/skillpath-hub/skillpath-progression/pkg/logger"
)

var (
	// ErrEventBusClosed is returned when operations are attempted on a closed bus.
	ErrEventBusClosed = errors.New("event bus is closed")

	// ErrNilHandler is returned when a nil handler is subscribed.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrNilEvent is returned when a nil event is published.
	ErrNilEvent = errors.New("event cannot be nil")
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBus is a simple in-memory implementation of shared.EventBus.
// Suitable for single-instance deployments and testing.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]shared.EventHandler
	allHandlers []shared.EventHandler
	asyncMode   bool
	workerPool  chan struct{}
	log         *logger.Logger
	metrics     *BusMetrics
	closed      bool
	closeCh     chan struct{}
	wg          sync.WaitGroup
}

// InMemoryConfig contains configuration for InMemoryEventBus.
type InMemoryConfig struct {
	// AsyncMode runs handlers on a worker pool instead of the publisher
	// goroutine. Command handlers publish after the aggregate is saved,
	// so async delivery never races with persistence.
	AsyncMode bool

	// WorkerPoolSize limits concurrent handler executions in async mode.
	WorkerPoolSize int

	// Logger for structured logging.
	Logger *logger.Logger
}

// DefaultInMemoryConfig returns sensible defaults.
func DefaultInMemoryConfig() InMemoryConfig {
	return InMemoryConfig{
		AsyncMode:      true,
		WorkerPoolSize: 8,
	}
}

// NewInMemoryEventBus creates a new in-memory event bus.
func NewInMemoryEventBus(config InMemoryConfig) *InMemoryEventBus {
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 8
	}

	return &InMemoryEventBus{
		handlers:   make(map[shared.EventType][]shared.EventHandler),
		asyncMode:  config.AsyncMode,
		workerPool: make(chan struct{}, config.WorkerPoolSize),
		log:        config.Logger.With(logger.Component("eventbus")),
		metrics:    NewBusMetrics(),
		closeCh:    make(chan struct{}),
	}
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// SubscribeAll registers a handler for all events.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}
	b.allHandlers = append(b.allHandlers, handler)
	return nil
}

// Publish sends an event to all subscribed handlers.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return ErrNilEvent
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	handlers := make([]shared.EventHandler, 0, len(b.handlers[event.EventType()])+len(b.allHandlers))
	handlers = append(handlers, b.handlers[event.EventType()]...)
	handlers = append(handlers, b.allHandlers...)
	b.mu.RUnlock()

	b.metrics.RecordPublish(event.EventType())

	for _, handler := range handlers {
		if b.asyncMode {
			b.executeAsync(event, handler)
		} else if err := b.execute(event, handler); err != nil {
			b.log.Error("handler error",
				logger.String("event_type", string(event.EventType())),
				logger.Err(err))
		}
	}
	return nil
}

func (b *InMemoryEventBus) executeAsync(event shared.Event, handler shared.EventHandler) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		select {
		case b.workerPool <- struct{}{}:
			defer func() { <-b.workerPool }()
		case <-b.closeCh:
			return
		}

		if err := b.execute(event, handler); err != nil {
			b.log.Error("async handler error",
				logger.String("event_type", string(event.EventType())),
				logger.Err(err))
		}
	}()
}

func (b *InMemoryEventBus) execute(event shared.Event, handler shared.EventHandler) error {
	start := time.Now()
	err := handler(event)
	b.metrics.RecordExecution(event.EventType(), time.Since(start), err == nil)
	return err
}

// Close waits for pending handlers and shuts the bus down.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.closeCh)
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

// Metrics returns the bus metrics.
func (b *InMemoryEventBus) Metrics() *BusMetrics {
	return b.metrics
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// DefaultChannel is the Redis Pub/Sub channel for progression events.
const DefaultChannel = "skillpath:events"

// RedisEventBus distributes events across instances through Redis Pub/Sub.
// Local handlers run through an embedded in-memory bus; remote instances
// receive a serialized envelope and replay it on their local handlers.
type RedisEventBus struct {
	client     *redis.Client
	localBus   *InMemoryEventBus
	channel    string
	instanceID string
	log        *logger.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.RWMutex
	closed     bool
}

// RedisConfig contains configuration for RedisEventBus.
type RedisConfig struct {
	// Client is the Redis client to use.
	Client *redis.Client

	// Channel is the Pub/Sub channel name (default: skillpath:events).
	Channel string

	// InstanceID identifies this instance so self-published envelopes
	// are not replayed twice.
	InstanceID string

	// Local configures the embedded in-memory bus.
	Local InMemoryConfig

	// Logger for structured logging.
	Logger *logger.Logger
}

// NewRedisEventBus creates a new Redis-backed event bus.
func NewRedisEventBus(config RedisConfig) (*RedisEventBus, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.Channel == "" {
		config.Channel = DefaultChannel
	}
	if config.InstanceID == "" {
		config.InstanceID = uuid.NewString()
	}
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	config.Local.Logger = config.Logger

	ctx, cancel := context.WithCancel(context.Background())
	bus := &RedisEventBus{
		client:     config.Client,
		localBus:   NewInMemoryEventBus(config.Local),
		channel:    config.Channel,
		instanceID: config.InstanceID,
		log:        config.Logger.With(logger.Component("eventbus.redis")),
		ctx:        ctx,
		cancel:     cancel,
	}

	sub := bus.client.Subscribe(ctx, bus.channel)
	bus.wg.Add(1)
	go bus.subscriptionLoop(sub)

	return bus, nil
}

// Subscribe registers a handler for a specific event type.
func (b *RedisEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.localBus.Subscribe(eventType, handler)
}

// SubscribeAll registers a handler for all events.
func (b *RedisEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.localBus.SubscribeAll(handler)
}

// Publish sends an event to Redis and to local handlers.
func (b *RedisEventBus) Publish(event shared.Event) error {
	if event == nil {
		return ErrNilEvent
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	b.mu.RUnlock()

	envelope := wireEnvelope{
		InstanceID:  b.instanceID,
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// Redis failures do not block local delivery.
	if err := b.client.Publish(b.ctx, b.channel, data).Err(); err != nil {
		b.log.Error("redis publish failed", logger.Err(err))
	}

	return b.localBus.Publish(event)
}

func (b *RedisEventBus) subscriptionLoop(sub *redis.PubSub) {
	defer b.wg.Done()
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.handleRemote(msg.Payload)
		}
	}
}

func (b *RedisEventBus) handleRemote(payload string) {
	var envelope wireEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		b.log.Error("unmarshal remote event failed", logger.Err(err))
		return
	}
	if envelope.InstanceID == b.instanceID {
		return
	}

	event := &remoteEvent{
		eventType:   envelope.EventType,
		aggregateID: envelope.AggregateID,
		occurredAt:  envelope.OccurredAt,
		payload:     envelope.Payload,
	}
	if err := b.localBus.Publish(event); err != nil {
		b.log.Error("replay remote event failed", logger.Err(err))
	}
}

// Close stops the subscription and drains local handlers.
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()
	return b.localBus.Close()
}

// Metrics returns metrics from the local bus.
func (b *RedisEventBus) Metrics() *BusMetrics {
	return b.localBus.Metrics()
}

// wireEnvelope is the serialized form of an event on the Redis channel.
type wireEnvelope struct {
	InstanceID  string                 `json:"instance_id"`
	EventType   shared.EventType       `json:"event_type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

// remoteEvent reconstructs an event received from another instance.
// Typed event structs do not survive the wire; handlers that need the
// concrete type only see locally published events.
type remoteEvent struct {
	eventType   shared.EventType
	aggregateID string
	occurredAt  time.Time
	payload     map[string]interface{}
}

func (e *remoteEvent) EventType() shared.EventType     { return e.eventType }
func (e *remoteEvent) AggregateID() string             { return e.aggregateID }
func (e *remoteEvent) OccurredAt() time.Time           { return e.occurredAt }
func (e *remoteEvent) Payload() map[string]interface{} { return e.payload }

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// BusMetrics tracks event bus activity.
type BusMetrics struct {
	mu sync.RWMutex

	published  map[shared.EventType]int64
	executions int64
	successes  int64
	failures   int64
	totalTime  time.Duration
}

// NewBusMetrics creates a new metrics tracker.
func NewBusMetrics() *BusMetrics {
	return &BusMetrics{published: make(map[shared.EventType]int64)}
}

// RecordPublish records a published event.
func (m *BusMetrics) RecordPublish(eventType shared.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[eventType]++
}

// RecordExecution records a handler execution.
func (m *BusMetrics) RecordExecution(_ shared.EventType, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.executions++
	m.totalTime += duration
	if success {
		m.successes++
	} else {
		m.failures++
	}
}

// Snapshot returns a point-in-time copy of the metrics.
func (m *BusMetrics) Snapshot() BusMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var totalPublished int64
	for _, n := range m.published {
		totalPublished += n
	}

	avg := time.Duration(0)
	if m.executions > 0 {
		avg = m.totalTime / time.Duration(m.executions)
	}

	return BusMetricsSnapshot{
		Published:       totalPublished,
		Executions:      m.executions,
		Failures:        m.failures,
		AverageDuration: avg,
	}
}

// BusMetricsSnapshot is a point-in-time view of bus activity.
type BusMetricsSnapshot struct {
	Published       int64
	Executions      int64
	Failures        int64
	AverageDuration time.Duration
}
