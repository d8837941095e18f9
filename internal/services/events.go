package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AnshRaj112/ecoscan-backend/internal/coordinator"
	"github.com/AnshRaj112/ecoscan-backend/internal/models"
)

const (
	EventNotice    = "notice"
	EventCommunity = "community"

	eventsChannelPrefix = "events:"
	communityChannel    = eventsChannelPrefix + "community"
	callerChannelPrefix = eventsChannelPrefix + "caller:"
)

// Event is the payload broadcast over Redis and WebSocket.
type Event struct {
	Type      string                 `json:"type"`
	Caller    string                 `json:"-"`
	Notice    *coordinator.Notice    `json:"notice,omitempty"`
	Community *models.CommunityStats `json:"community,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// EventConn is the minimal interface our WebSocket implementation must satisfy.
type EventConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type hubConn struct {
	conn EventConn
	mu   sync.Mutex
}

func (c *hubConn) write(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// EventHub fans events out to local WebSocket connections, keyed by caller
// ("user:<id>" or "device:<id>"). With a Redis client, events are published
// so every instance delivers them; without one they are delivered locally.
type EventHub struct {
	client *redis.Client
	log    *zap.SugaredLogger

	mu    sync.RWMutex
	conns map[string]map[*hubConn]struct{}

	started sync.Once
}

func NewEventHub(client *redis.Client, log *zap.SugaredLogger) *EventHub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &EventHub{client: client, log: log, conns: make(map[string]map[*hubConn]struct{})}
}

// Register adds conn for caller and returns the function that removes it.
func (h *EventHub) Register(caller string, conn EventConn) (unregister func()) {
	hc := &hubConn{conn: conn}
	h.mu.Lock()
	set, ok := h.conns[caller]
	if !ok {
		set = make(map[*hubConn]struct{})
		h.conns[caller] = set
	}
	set[hc] = struct{}{}
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.conns[caller]; ok {
			delete(set, hc)
			if len(set) == 0 {
				delete(h.conns, caller)
			}
		}
	}
}

// Connections reports how many connections caller holds on this instance.
func (h *EventHub) Connections(caller string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[caller])
}

// Notifier returns a coordinator.Notifier delivering notices to caller.
func (h *EventHub) Notifier(caller string) coordinator.Notifier {
	return coordinator.NotifierFunc(func(n coordinator.Notice) {
		h.publish(Event{Type: EventNotice, Caller: caller, Notice: &n})
	})
}

// PublishCommunity broadcasts new community totals to every connection.
func (h *EventHub) PublishCommunity(stats models.CommunityStats) {
	h.publish(Event{Type: EventCommunity, Community: &stats})
}

func (h *EventHub) publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if h.client == nil {
		h.fanOut(ev)
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Warnw("failed to encode event", "type", ev.Type, "error", err)
		return
	}
	channel := communityChannel
	if ev.Caller != "" {
		channel = callerChannelPrefix + ev.Caller
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.client.Publish(ctx, channel, data).Err(); err != nil {
		h.log.Warnw("failed to publish event, delivering locally", "channel", channel, "error", err)
		h.fanOut(ev)
	}
}

// fanOut writes ev to the matching local connections. Community events go to
// everyone.
func (h *EventHub) fanOut(ev Event) {
	h.mu.RLock()
	var targets []*hubConn
	if ev.Caller == "" {
		for _, set := range h.conns {
			for c := range set {
				targets = append(targets, c)
			}
		}
	} else {
		for c := range h.conns[ev.Caller] {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		go func(c *hubConn) {
			if err := c.write(ev); err != nil {
				h.log.Debugw("error writing event to websocket", "type", ev.Type, "error", err)
			}
		}(c)
	}
}

// Start runs the shared Redis subscriber once per instance.
func (h *EventHub) Start(ctx context.Context) {
	if h.client == nil {
		return
	}
	h.started.Do(func() {
		go h.runSubscriber(ctx)
	})
}

func (h *EventHub) runSubscriber(ctx context.Context) {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := h.client.PSubscribe(ctx, eventsChannelPrefix+"*")
			defer pubsub.Close()

			h.log.Infow("events subscriber started", "pattern", eventsChannelPrefix+"*")

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					h.log.Warnw("events subscriber error", "error", err, "retry_in", backoff)
					time.Sleep(backoff)
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}

				backoff = time.Second

				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					h.log.Warnw("failed to decode event", "error", err)
					continue
				}
				ev.Caller = strings.TrimPrefix(msg.Channel, callerChannelPrefix)
				if msg.Channel == communityChannel {
					ev.Caller = ""
				}
				h.fanOut(ev)
			}
		}()
	}
}
