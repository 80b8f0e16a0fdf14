package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
	"github.com/shuyossy/ai-notebook-sub000/internal/infrastructure/resilience"
)

// Relay forwards broker events across the process boundary. Each
// subscription gets its own relay subject scoped by logical channel and
// subscription id, so events are delivered to exactly one session and
// never broadcast cross-session.
type Relay struct {
	broker   *Broker
	conn     *nats.Conn
	prefix   string
	executor *resilience.Executor
	logger   *slog.Logger

	teardown *teardownRegistry
}

type RelayOptions struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func NewRelay(broker *Broker, url, prefix string, options RelayOptions) (*Relay, error) {
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
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("ai-notebook-notify"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats reconnected: %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Relay{
		broker:   broker,
		conn:     conn,
		prefix:   prefix,
		executor: options.ResilienceExecutor,
		logger:   logger,
		teardown: newTeardownRegistry(),
	}, nil
}

// Subscribe attaches a relay sink for one subscriber session and returns
// its opaque subscription id.
func (r *Relay) Subscribe(channel string) (string, error) {
	subID := uuid.NewString()
	subject := relaySubject(r.prefix, channel, subID)

	sink := SinkFunc(func(event domain.PushEvent) error {
		raw, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		return r.publishRaw(subject, raw)
	})
	detach := r.broker.Attach(channel, sink)
	r.teardown.put(teardownKey(channel, subID), detach)

	r.logger.Debug("relay subscription created", "channel", channel, "sub_id", subID)
	return subID, nil
}

// Publish broadcasts an event across the process boundary. Every process
// whose relay bridges the broadcast subject (see StartBridge) re-delivers
// it into its own in-process broker, so a completion published by the
// worker reaches sinks attached in the api. Delivery stays at-most-once;
// publish failures are logged, and the polling backstop absorbs drops.
func (r *Relay) Publish(channel string, payload any) {
	event := domain.NewPushEvent(channel, payload, time.Time{})
	raw, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("marshal broadcast event", "channel", channel, "error", err)
		return
	}
	if err := r.publishRaw(broadcastSubject(r.prefix, channel), raw); err != nil {
		r.logger.Error("broadcast publish failed", "channel", channel, "error", err)
	}
}

// StartBridge subscribes to the broadcast subjects and republishes
// incoming events into the local broker. Both binaries run the bridge;
// a process with no attached sinks just drops what it receives.
func (r *Relay) StartBridge() error {
	subject := fmt.Sprintf("%s.%s.>", r.prefix, broadcastSegment)
	_, err := r.conn.Subscribe(subject, func(msg *nats.Msg) {
		event, err := decodeBroadcastEvent(msg.Data)
		if err != nil {
			r.logger.Warn("dropping malformed broadcast event", "subject", msg.Subject, "error", err)
			return
		}
		r.broker.PublishEvent(event)
	})
	if err != nil {
		return fmt.Errorf("subscribe broadcast subject: %w", err)
	}
	return nil
}

// Unsubscribe tears a subscription down. Unknown or already-removed ids
// are a no-op, never an error.
func (r *Relay) Unsubscribe(channel, subID string) {
	if detach, ok := r.teardown.take(teardownKey(channel, subID)); ok {
		detach()
	}
}

func (r *Relay) publishRaw(subject string, raw []byte) error {
	call := func(_ context.Context) error {
		if err := r.conn.Publish(subject, raw); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}
	if r.executor != nil {
		return r.executor.Execute(context.Background(), "notify.relay", call, classifyNATSError)
	}
	return call(context.Background())
}

func (r *Relay) Close() {
	if r.conn != nil {
		r.conn.Close()
	}
}

// relaySubject namespaces the wire subject by both logical channel and
// subscription id to avoid cross-talk between sessions.
func relaySubject(prefix, channel, subID string) string {
	return fmt.Sprintf("%s.%s.%s", prefix, channel, subID)
}

func teardownKey(channel, subID string) string {
	return channel + "/" + subID
}

// broadcastSegment keeps cross-process event fan-out in its own subject
// namespace, away from the per-subscription relay subjects.
const broadcastSegment = "broadcast"

func broadcastSubject(prefix, channel string) string {
	return fmt.Sprintf("%s.%s.%s", prefix, broadcastSegment, channel)
}

// decodeBroadcastEvent rebuilds a typed PushEvent from its wire form.
// A plain JSON round-trip leaves the payload as map[string]any, which
// breaks the type assertions downstream sinks rely on, so known channels
// re-decode into their concrete payload types.
func decodeBroadcastEvent(raw []byte) (domain.PushEvent, error) {
	var wire struct {
		Channel string          `json:"channel"`
		Payload json.RawMessage `json:"payload"`
		TS      time.Time       `json:"ts"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return domain.PushEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if wire.Channel == "" {
		return domain.PushEvent{}, fmt.Errorf("event channel is empty")
	}
	event := domain.PushEvent{Channel: wire.Channel, TS: wire.TS}
	switch wire.Channel {
	case domain.ChannelReviewCompleted:
		var completion domain.ReviewCompletion
		if err := json.Unmarshal(wire.Payload, &completion); err != nil {
			return domain.PushEvent{}, fmt.Errorf("unmarshal completion payload: %w", err)
		}
		event.Payload = completion
	default:
		if len(wire.Payload) > 0 {
			var payload any
			if err := json.Unmarshal(wire.Payload, &payload); err != nil {
				return domain.PushEvent{}, fmt.Errorf("unmarshal payload: %w", err)
			}
			event.Payload = payload
		}
	}
	return event, nil
}
