package channels

import (
	"container/list"
	"context"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/goclaw/internal/bus"
)

// DeliveryState is the lifecycle state of a queued delivery.
type DeliveryState string

const (
	DeliveryPending    DeliveryState = "pending"
	DeliveryInProgress DeliveryState = "in_progress"
	DeliveryDelivered  DeliveryState = "delivered"
	DeliveryFailed     DeliveryState = "failed"
	DeliveryDropped    DeliveryState = "dropped"
	DeliveryCancelled  DeliveryState = "cancelled"
)

// DeliveryConfig governs retry/backoff/TTL/batch behavior for the queue.
type DeliveryConfig struct {
	MaxRetries         int
	InitialRetryDelay  time.Duration
	MaxRetryDelay      time.Duration
	RetryMultiplier    float64
	MaxQueueSize       int
	MessageTTL         time.Duration
	BatchSize          int
}

// DefaultDeliveryConfig mirrors the reference defaults: 3 retries
// starting at 1s doubling to a 60s ceiling, a 10000-message queue, a 1 hour
// TTL, and 100-message batches.
func DefaultDeliveryConfig() DeliveryConfig {
	return DeliveryConfig{
		MaxRetries:        3,
		InitialRetryDelay: time.Second,
		MaxRetryDelay:     60 * time.Second,
		RetryMultiplier:   2.0,
		MaxQueueSize:      10000,
		MessageTTL:        time.Hour,
		BatchSize:         100,
	}
}

// DeliveryStatus is the externally visible state of a queued delivery.
type DeliveryStatus struct {
	ID        string
	Status    DeliveryState
	Attempts  int
	MessageID string
	Error     string
	UpdatedAt time.Time
}

// DeliveryResult is the outcome of one delivery attempt.
type DeliveryResult struct {
	ID        string
	Success   bool
	MessageID string
	Err       error
	Attempts  int
}

// QueueStats summarizes delivery counts by state.
type QueueStats struct {
	Pending    int
	InProgress int
	Delivered  int
	Failed     int
	Dropped    int
	Cancelled  int
}

type queuedMessage struct {
	id        string
	message   bus.OutboundMessage
	channelID string
	attempts  int
	queuedAt  time.Time
	nextRetry *time.Time
	lastError string
}

// DeliveryQueue is an in-memory FIFO of pending outbound deliveries with
// exponential backoff retry and TTL-based expiry. One mutex guards the
// queue deque; a separate lock guards the status table and the send map,
// matching the concurrency model of processing a batch under the queue
// lock and sending without holding it.
type DeliveryQueue struct {
	config DeliveryConfig

	queueMu sync.Mutex
	queue   *list.List // of *queuedMessage

	mu       sync.RWMutex
	channels map[string]Channel
	status   map[string]*DeliveryStatus
}

func NewDeliveryQueue(config DeliveryConfig) *DeliveryQueue {
	return &DeliveryQueue{
		config:   config,
		queue:    list.New(),
		channels: make(map[string]Channel),
		status:   make(map[string]*DeliveryStatus),
	}
}

// RegisterChannel makes a channel available as a delivery target.
func (q *DeliveryQueue) RegisterChannel(id string, channel Channel) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.channels[id] = channel
}

// UnregisterChannel removes a delivery target.
func (q *DeliveryQueue) UnregisterChannel(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.channels, id)
}

// Enqueue appends a message for delivery to channelID, returning its
// delivery id. Fails with a Delivery error when the queue is at capacity.
func (q *DeliveryQueue) Enqueue(channelID string, message bus.OutboundMessage) (string, error) {
	q.queueMu.Lock()
	if q.queue.Len() >= q.config.MaxQueueSize {
		q.queueMu.Unlock()
		return "", NewDeliveryError("Queue is full")
	}

	id := uuid.NewString()
	q.queue.PushBack(&queuedMessage{
		id:        id,
		message:   message,
		channelID: channelID,
		queuedAt:  time.Now(),
	})
	q.queueMu.Unlock()

	q.mu.Lock()
	q.status[id] = &DeliveryStatus{ID: id, Status: DeliveryPending, UpdatedAt: time.Now()}
	q.mu.Unlock()

	return id, nil
}

// GetStatus returns the current status of a delivery id.
func (q *DeliveryQueue) GetStatus(id string) (DeliveryStatus, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	s, ok := q.status[id]
	if !ok {
		return DeliveryStatus{}, false
	}
	return *s, true
}

// Cancel removes a pending delivery from the queue and marks it Cancelled.
// It is a no-op on an already-terminal status and fails with NotFound for
// an unknown id.
func (q *DeliveryQueue) Cancel(id string) error {
	q.queueMu.Lock()
	for e := q.queue.Front(); e != nil; e = e.Next() {
		if e.Value.(*queuedMessage).id == id {
			q.queue.Remove(e)
			break
		}
	}
	q.queueMu.Unlock()

	q.mu.Lock()
	defer q.mu.Unlock()
	status, ok := q.status[id]
	if !ok {
		return NewNotFoundError(id)
	}
	if isTerminal(status.Status) {
		return nil
	}
	status.Status = DeliveryCancelled
	status.UpdatedAt = time.Now()
	return nil
}

func isTerminal(s DeliveryState) bool {
	switch s {
	case DeliveryDelivered, DeliveryDropped, DeliveryCancelled:
		return true
	default:
		return false
	}
}

// Process drains up to BatchSize ready messages from the front of the
// queue and attempts delivery for each, applying TTL expiry and retry
// back-off as described by the package's delivery algorithm.
func (q *DeliveryQueue) Process(ctx context.Context) []DeliveryResult {
	var results []DeliveryResult
	now := time.Now()

	q.queueMu.Lock()
	var ready []*queuedMessage
	for q.queue.Len() > 0 {
		front := q.queue.Remove(q.queue.Front()).(*queuedMessage)

		if now.Sub(front.queuedAt) > q.config.MessageTTL {
			results = append(results, DeliveryResult{
				ID: front.id, Success: false,
				Err: NewDeliveryError("Message TTL expired"), Attempts: front.attempts,
			})
			q.markTerminal(front.id, DeliveryDropped, "Message TTL expired")
			cleanupMedia(front.message)
			continue
		}

		if front.nextRetry != nil && now.Before(*front.nextRetry) {
			q.queue.PushBack(front)
			continue
		}

		ready = append(ready, front)
		if len(ready) >= q.config.BatchSize {
			break
		}
	}
	q.queueMu.Unlock()

	for _, msg := range ready {
		results = append(results, q.deliver(ctx, msg))
	}
	return results
}

func (q *DeliveryQueue) deliver(ctx context.Context, msg *queuedMessage) DeliveryResult {
	msg.attempts++
	q.setStatus(msg.id, func(s *DeliveryStatus) {
		s.Status = DeliveryInProgress
		s.Attempts = msg.attempts
	})

	q.mu.RLock()
	channel, ok := q.channels[msg.channelID]
	q.mu.RUnlock()

	if !ok {
		return q.handleFailure(msg, NewNotFoundError(msg.channelID), false)
	}

	messageID, err := sendToChannel(ctx, channel, msg.message)
	if err != nil {
		return q.handleFailure(msg, err, IsRetriableErr(err))
	}
	return q.handleSuccess(msg, messageID)
}

// resultSender is an optional extension of Channel for implementations that
// can report a channel-assigned message id back to the caller. Most
// channels only satisfy the base Channel interface, in which case the
// delivery's own id stands in for the message id.
type resultSender interface {
	SendWithResult(ctx context.Context, msg bus.OutboundMessage) (string, error)
}

func sendToChannel(ctx context.Context, ch Channel, msg bus.OutboundMessage) (string, error) {
	if rs, ok := ch.(resultSender); ok {
		return rs.SendWithResult(ctx, msg)
	}
	if err := ch.Send(ctx, msg); err != nil {
		return "", err
	}
	return "", nil
}

func (q *DeliveryQueue) handleSuccess(msg *queuedMessage, messageID string) DeliveryResult {
	q.setStatus(msg.id, func(s *DeliveryStatus) {
		s.Status = DeliveryDelivered
		s.MessageID = messageID
	})
	cleanupMedia(msg.message)
	return DeliveryResult{ID: msg.id, Success: true, MessageID: messageID, Attempts: msg.attempts}
}

// cleanupMedia removes temporary media files (create_image/tts output) once
// a message reaches a terminal delivery state. Called only from terminal
// transitions so a file a pending retry still needs is never removed early.
func cleanupMedia(msg bus.OutboundMessage) {
	for _, media := range msg.Media {
		if media.URL == "" {
			continue
		}
		if err := os.Remove(media.URL); err != nil && !os.IsNotExist(err) {
			slog.Debug("failed to clean up media file", "path", media.URL, "error", err)
		}
	}
}

func (q *DeliveryQueue) handleFailure(msg *queuedMessage, err error, retriable bool) DeliveryResult {
	shouldRetry := retriable && msg.attempts < q.config.MaxRetries

	if shouldRetry {
		delay := time.Duration(float64(q.config.InitialRetryDelay) * math.Pow(q.config.RetryMultiplier, float64(msg.attempts-1)))
		if delay > q.config.MaxRetryDelay {
			delay = q.config.MaxRetryDelay
		}
		next := time.Now().Add(delay)
		msg.nextRetry = &next
		msg.lastError = err.Error()

		q.queueMu.Lock()
		q.queue.PushBack(msg)
		q.queueMu.Unlock()

		q.setStatus(msg.id, func(s *DeliveryStatus) {
			s.Status = DeliveryFailed
			s.Error = err.Error()
		})
	} else {
		q.markTerminal(msg.id, DeliveryDropped, err.Error())
		cleanupMedia(msg.message)
	}

	return DeliveryResult{ID: msg.id, Success: false, Err: err, Attempts: msg.attempts}
}

func (q *DeliveryQueue) setStatus(id string, mutate func(*DeliveryStatus)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, ok := q.status[id]
	if !ok {
		return
	}
	mutate(s)
	s.UpdatedAt = time.Now()
}

func (q *DeliveryQueue) markTerminal(id string, state DeliveryState, errMsg string) {
	q.setStatus(id, func(s *DeliveryStatus) {
		s.Status = state
		s.Error = errMsg
	})
}

// Stats summarizes the queue's pending length and the status table's
// terminal/in-flight counts.
func (q *DeliveryQueue) Stats() QueueStats {
	q.queueMu.Lock()
	pending := q.queue.Len()
	q.queueMu.Unlock()

	q.mu.RLock()
	defer q.mu.RUnlock()

	stats := QueueStats{Pending: pending}
	for _, s := range q.status {
		switch s.Status {
		case DeliveryInProgress:
			stats.InProgress++
		case DeliveryDelivered:
			stats.Delivered++
		case DeliveryFailed:
			stats.Failed++
		case DeliveryDropped:
			stats.Dropped++
		case DeliveryCancelled:
			stats.Cancelled++
		}
	}
	return stats
}
