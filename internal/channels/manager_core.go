package channels

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nextlevelbuilder/goclaw/internal/bus"
)

// CoreMessageHandler is invoked once per routed inbound message.
type CoreMessageHandler interface {
	HandleMessage(msg bus.InboundMessage, route RouteMatch) error
}

// CoreManagerStatus is a point-in-time snapshot of the manager's state.
type CoreManagerStatus struct {
	Running           bool
	ChannelsTotal     int
	ChannelsConnected int
	ChannelsEnabled   int
	QueuePending      int
	QueueDelivered    int
}

// CoreManager orchestrates a Registry, Router, and DeliveryQueue the way
// spec.md's channel manager does: factory/lifecycle wrappers over the
// registry, routing configuration, a direct send path, and a queued send
// path, plus the two cooperative background loops (inbound receive and
// delivery processing) described in section 4.6.
type CoreManager struct {
	registry *Registry
	router   *Router
	delivery *DeliveryQueue

	inboundSubs sync.Map // subscriber id -> chan bus.InboundMessage

	handlerMu sync.RWMutex
	handler   CoreMessageHandler

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewCoreManager builds a manager with a fresh registry, router, and the
// given delivery config (use DefaultDeliveryConfig() for the stock
// defaults).
func NewCoreManager(deliveryConfig DeliveryConfig) *CoreManager {
	return &CoreManager{
		registry: NewRegistry(),
		router:   NewRouter(),
		delivery: NewDeliveryQueue(deliveryConfig),
	}
}

func (m *CoreManager) Registry() *Registry           { return m.registry }
func (m *CoreManager) DeliveryQueue() *DeliveryQueue { return m.delivery }

// RegisterFactory registers a channel-type constructor with the registry.
func (m *CoreManager) RegisterFactory(typeTag string, factory Factory) {
	m.registry.RegisterFactory(typeTag, factory)
}

// CreateChannel builds and registers a channel via its factory, and makes
// it available to the delivery queue under the same instance id.
func (m *CoreManager) CreateChannel(cfg InstanceConfig) (Channel, error) {
	ch, err := m.registry.CreateChannel(cfg)
	if err != nil {
		return nil, err
	}
	m.delivery.RegisterChannel(cfg.ID, ch)
	return ch, nil
}

// RegisterChannel registers an already-constructed channel.
func (m *CoreManager) RegisterChannel(cfg InstanceConfig, ch Channel) error {
	if err := m.registry.Register(cfg, ch); err != nil {
		return err
	}
	m.delivery.RegisterChannel(cfg.ID, ch)
	return nil
}

// RemoveChannel unregisters a channel from both the registry and the
// delivery queue's send map.
func (m *CoreManager) RemoveChannel(id string) error {
	if err := m.registry.Unregister(id); err != nil {
		return err
	}
	m.delivery.UnregisterChannel(id)
	return nil
}

// SetDefaultAgent sets the router's fallback agent.
func (m *CoreManager) SetDefaultAgent(agentID string) {
	m.router.WithDefaultAgent(agentID)
}

// AddRoute adds a routing rule.
func (m *CoreManager) AddRoute(rule RouteRule) { m.router.AddRule(rule) }

// RemoveRoute removes a routing rule by id.
func (m *CoreManager) RemoveRoute(ruleID string) { m.router.RemoveRule(ruleID) }

// RouteMessage resolves the target agent for an inbound message.
func (m *CoreManager) RouteMessage(msg *bus.InboundMessage) (RouteMatch, error) {
	return m.router.Route(msg)
}

// SetMessageHandler installs the handler invoked once per routed inbound
// message.
func (m *CoreManager) SetMessageHandler(handler CoreMessageHandler) {
	m.handlerMu.Lock()
	defer m.handlerMu.Unlock()
	m.handler = handler
}

// Subscribe returns a channel of future inbound messages and an unsubscribe
// function. Delivery is best-effort: a slow or absent subscriber never
// blocks the inbound loop.
func (m *CoreManager) Subscribe() (<-chan bus.InboundMessage, func()) {
	id := time.Now().UnixNano()
	ch := make(chan bus.InboundMessage, 64)
	m.inboundSubs.Store(id, ch)
	return ch, func() {
		m.inboundSubs.Delete(id)
		close(ch)
	}
}

func (m *CoreManager) broadcastInbound(msg bus.InboundMessage) {
	m.inboundSubs.Range(func(_, v interface{}) bool {
		ch := v.(chan bus.InboundMessage)
		select {
		case ch <- msg:
		default:
		}
		return true
	})
}

// Send delivers a message through a specific channel instance directly,
// bypassing the queue.
func (m *CoreManager) Send(ctx context.Context, channelID string, msg bus.OutboundMessage) (string, error) {
	ch, ok := m.registry.Get(channelID)
	if !ok {
		return "", NewNotFoundError(channelID)
	}
	return sendToChannel(ctx, ch, msg)
}

// SendTo finds any connected channel of the requested type and sends
// through it directly.
func (m *CoreManager) SendTo(ctx context.Context, channelType string, msg bus.OutboundMessage) (string, error) {
	for _, id := range m.registry.ListByType(channelType) {
		ch, ok := m.registry.Get(id)
		if ok && ch.IsRunning() {
			return sendToChannel(ctx, ch, msg)
		}
	}
	return "", NewNotFoundError("no connected channel of type '" + channelType + "'")
}

// QueueMessage enqueues a message for delivery via the queue's retry/TTL
// machinery.
func (m *CoreManager) QueueMessage(channelID string, msg bus.OutboundMessage) (string, error) {
	return m.delivery.Enqueue(channelID, msg)
}

// Start is idempotent: it connects every registered channel and spawns the
// inbound-receive and delivery-processing loops.
func (m *CoreManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	for _, res := range m.registry.ConnectAll(ctx) {
		if res.Err != nil {
			slog.Error("channel failed to connect", "channel", res.ID, "error", res.Err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	go m.inboundLoop(runCtx)
	go m.deliveryLoop(runCtx)

	return nil
}

// Stop is idempotent: it signals both loops to exit and disconnects every
// registered channel.
func (m *CoreManager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return nil
	}
	m.cancel()
	m.running = false
	m.registry.DisconnectAll(ctx)
	return nil
}

func (m *CoreManager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Status reports a snapshot of registry and queue state.
func (m *CoreManager) Status() CoreManagerStatus {
	stats := m.registry.Stats()
	queueStats := m.delivery.Stats()
	return CoreManagerStatus{
		Running:           m.IsRunning(),
		ChannelsTotal:     stats.Total,
		ChannelsConnected: stats.Connected,
		ChannelsEnabled:   stats.Enabled,
		QueuePending:      queueStats.Pending,
		QueueDelivered:    queueStats.Delivered,
	}
}

// inboundLoop polls every registered connected channel roughly every
// 100ms via try-receive, broadcasting and routing each message it finds.
func (m *CoreManager) inboundLoop(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range m.registry.List() {
				ch, ok := m.registry.Get(id)
				if !ok || !ch.IsRunning() {
					continue
				}
				receiver, ok := ch.(InboundReceiver)
				if !ok {
					continue
				}
				msg, hasMsg := receiver.TryReceive()
				if !hasMsg {
					continue
				}

				m.broadcastInbound(msg)

				route, err := m.router.Route(&msg)
				if err != nil {
					slog.Warn("routing error for inbound message", "channel", msg.Channel, "error", err)
					continue
				}

				m.handlerMu.RLock()
				handler := m.handler
				m.handlerMu.RUnlock()
				if handler != nil {
					if err := handler.HandleMessage(msg, route); err != nil {
						slog.Warn("message handler error", "channel", msg.Channel, "error", err)
					}
				}
			}
		}
	}
}

// deliveryLoop examines queue stats roughly every 50ms and processes one
// batch whenever there is pending work.
func (m *CoreManager) deliveryLoop(ctx context.Context) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.delivery.Stats().Pending > 0 {
				m.delivery.Process(ctx)
			}
		}
	}
}

// InboundReceiver is an optional Channel extension for cooperative polling
// channels that buffer received messages rather than pushing them directly
// onto the bus (the vendor channel implementations push onto the bus
// themselves via HandleMessage, so most never need this).
type InboundReceiver interface {
	TryReceive() (bus.InboundMessage, bool)
}
