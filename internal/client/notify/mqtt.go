// Package notify tells a family's other devices that a session record
// changed. It carries no state of its own: receivers re-read the shared
// record through Refresh.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/logging"
	"github.com/dmitrijs2005/gophfocus/internal/timex"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const qos = 1

// DefaultPublishTimeout bounds how long Publish waits for the broker's ack.
const DefaultPublishTimeout = 5 * time.Second

// Event is the payload published on <prefix>/sessions/<profileId>.
type Event struct {
	ProfileID      string    `json:"profileId"`
	DeviceID       string    `json:"deviceId"`
	IsActive       bool      `json:"isActive"`
	SequenceNumber int64     `json:"sequenceNumber"`
	At             time.Time `json:"at"`
}

// Refresher re-reads the remote record of a profile.
type Refresher interface {
	Refresh(ctx context.Context, profileID string) error
}

type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// Connect dials the broker with auto reconnect enabled.
func Connect(o Options) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(o.Broker)
	opts.SetClientID(o.ClientID)
	if o.Username != "" {
		opts.SetUsername(o.Username)
	}
	if o.Password != "" {
		opts.SetPassword(o.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(false)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker: %w", token.Error())
	}
	return client, nil
}

// MQTT publishes session events and turns received ones into refreshes.
// Received events are queued per profile and refreshed by one worker, so
// the client's message handler never waits on a refresh.
type MQTT struct {
	client         mqtt.Client
	prefix         string
	deviceID       string
	clock          timex.Clock
	log            logging.Logger
	publishTimeout time.Duration

	mu      sync.Mutex
	pending map[string]struct{}
	wake    chan struct{}
	stop    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func New(client mqtt.Client, prefix, deviceID string, clock timex.Clock, log logging.Logger) *MQTT {
	if clock == nil {
		clock = timex.SystemClock{}
	}
	return &MQTT{
		client:         client,
		prefix:         strings.TrimSuffix(prefix, "/"),
		deviceID:       deviceID,
		clock:          clock,
		log:            logging.OrNop(log).With("module", "notify"),
		publishTimeout: DefaultPublishTimeout,
		pending:        make(map[string]struct{}),
		wake:           make(chan struct{}, 1),
		stop:           make(chan struct{}),
	}
}

func (m *MQTT) topic(profileID string) string {
	return m.prefix + "/sessions/" + profileID
}

// Publish implements orchestrator.Notifier.
func (m *MQTT) Publish(ctx context.Context, rec models.SessionSyncRecord) error {
	b, err := json.Marshal(Event{
		ProfileID:      rec.ProfileID,
		DeviceID:       m.deviceID,
		IsActive:       rec.IsActive,
		SequenceNumber: rec.SequenceNumber,
		At:             m.clock.Now().UTC(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.publishTimeout)
	defer cancel()

	topic := m.topic(rec.ProfileID)
	token := m.client.Publish(topic, qos, false, b)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe routes foreign session events to r until Close or until ctx
// is done.
func (m *MQTT) Subscribe(ctx context.Context, r Refresher) error {
	topic := m.prefix + "/sessions/+"
	token := m.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		if id, ok := m.profileOf(ctx, msg.Topic(), msg.Payload()); ok {
			m.enqueue(id)
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, token.Error())
	}

	m.wg.Add(1)
	go m.run(ctx, r)
	return nil
}

// Handle processes one received message synchronously.
func (m *MQTT) Handle(ctx context.Context, r Refresher, topic string, payload []byte) {
	if id, ok := m.profileOf(ctx, topic, payload); ok {
		m.refresh(ctx, r, id)
	}
}

// profileOf decodes an event and returns the profile to refresh. Own and
// malformed events are skipped.
func (m *MQTT) profileOf(ctx context.Context, topic string, payload []byte) (string, bool) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		m.log.Warn(ctx, "dropping malformed session event", "topic", topic, "error", err)
		return "", false
	}
	if ev.DeviceID == m.deviceID {
		return "", false
	}
	if ev.ProfileID == "" {
		ev.ProfileID = topic[strings.LastIndex(topic, "/")+1:]
	}

	m.log.Debug(ctx, "session event", "profile_id", ev.ProfileID, "device_id", ev.DeviceID, "seq", ev.SequenceNumber)
	return ev.ProfileID, true
}

func (m *MQTT) refresh(ctx context.Context, r Refresher, profileID string) {
	if err := r.Refresh(ctx, profileID); err != nil {
		m.log.Warn(ctx, "refresh after session event failed", "profile_id", profileID, "error", err)
	}
}

// enqueue marks profileID for refresh. Repeated events for a profile that
// is already pending collapse into one refresh.
func (m *MQTT) enqueue(profileID string) {
	m.mu.Lock()
	m.pending[profileID] = struct{}{}
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *MQTT) drain() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.pending))
	for id := range m.pending {
		ids = append(ids, id)
	}
	clear(m.pending)
	sort.Strings(ids)
	return ids
}

func (m *MQTT) run(ctx context.Context, r Refresher) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-m.wake:
		}
		for _, id := range m.drain() {
			m.refresh(ctx, r, id)
		}
	}
}

// Close unsubscribes, waits for an in-flight refresh and disconnects.
func (m *MQTT) Close() {
	m.client.Unsubscribe(m.prefix + "/sessions/+").WaitTimeout(m.publishTimeout)
	m.once.Do(func() { close(m.stop) })
	m.wg.Wait()
	m.client.Disconnect(250)
}
