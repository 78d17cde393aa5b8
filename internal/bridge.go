package internal

import "sync"

// AgentState is the kind of work an agent task is doing right now
type AgentState string

const (
	AgentThinking  AgentState = "thinking"
	AgentUsingTool AgentState = "using_tool"
)

// AgentStatus is the transient, never-persisted status of an in-flight
// agent task. ToolName is set only for AgentUsingTool.
type AgentStatus struct {
	State    AgentState `json:"state"`
	ToolName string     `json:"tool_name,omitempty"`
}

// NotificationKind discriminates bridge notifications
type NotificationKind int

const (
	// ServerStatusNotification carries no payload: the source system
	// intentionally does not say which server changed, forcing a full
	// status re-query.
	ServerStatusNotification NotificationKind = iota
	// AgentStatusNotification carries the new agent status, or nil when
	// the status cleared.
	AgentStatusNotification
)

// Notification is one normalized event delivered to bridge subscribers
type Notification struct {
	Kind        NotificationKind
	AgentStatus *AgentStatus
}

// subscriberBuffer bounds per-subscriber queueing. A subscriber that
// falls this far behind loses notifications rather than blocking the
// producing channel.
const subscriberBuffer = 16

// EventBridge fans two backend push channels out to subscribers as one
// normalized notification stream. Delivery order is preserved per source
// channel; there is no ordering guarantee across the two channels. The
// bridge performs no transport retries and no replay: a subscriber only
// sees notifications published while its subscription is live.
type EventBridge struct {
	mu     sync.Mutex
	subs   map[int]chan Notification
	nextID int
	closed bool
}

// NewEventBridge returns a bridge with no subscribers
func NewEventBridge() *EventBridge {
	return &EventBridge{subs: make(map[int]chan Notification)}
}

// Subscribe registers a new subscriber. The returned cancel func
// detaches it; after cancel returns, the channel is closed and no
// further notifications are delivered.
func (b *EventBridge) Subscribe() (<-chan Notification, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Notification, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Run consumes the two backend push channels until both are closed.
// It blocks, so callers run it in its own goroutine. Each source channel
// is drained by a dedicated goroutine, which preserves per-channel order.
func (b *EventBridge) Run(serverCh <-chan struct{}, agentCh <-chan *AgentStatus) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for range serverCh {
			b.publish(Notification{Kind: ServerStatusNotification})
		}
	}()
	go func() {
		defer wg.Done()
		for status := range agentCh {
			b.publish(Notification{Kind: AgentStatusNotification, AgentStatus: status})
		}
	}()

	wg.Wait()
	b.Close()
}

// Close detaches and closes every subscriber
func (b *EventBridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

func (b *EventBridge) publish(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- n:
		default:
			LogWarn("event bridge: subscriber %d is not keeping up, dropping notification", id)
		}
	}
}
