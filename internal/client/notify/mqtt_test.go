package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/timex"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }

func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// hangingToken never completes, like a publish whose ack was lost.
type hangingToken struct{}

func (hangingToken) Wait() bool                     { select {} }
func (hangingToken) WaitTimeout(time.Duration) bool { return false }
func (hangingToken) Error() error                   { return nil }
func (hangingToken) Done() <-chan struct{}          { return make(chan struct{}) }

type published struct {
	topic   string
	payload []byte
}

// fakeClient embeds mqtt.Client so only the methods under test need bodies.
type fakeClient struct {
	mqtt.Client
	pubErr       error
	hang         bool
	published    []published
	handlers     map[string]mqtt.MessageHandler
	unsubscribed []string
	disconnected bool
}

func (f *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	f.published = append(f.published, published{topic: topic, payload: payload.([]byte)})
	if f.hang {
		return hangingToken{}
	}
	return doneToken{err: f.pubErr}
}

func (f *fakeClient) Unsubscribe(topics ...string) mqtt.Token {
	f.unsubscribed = append(f.unsubscribed, topics...)
	return doneToken{}
}

func (f *fakeClient) Disconnect(uint) { f.disconnected = true }

func (f *fakeClient) Subscribe(topic string, _ byte, cb mqtt.MessageHandler) mqtt.Token {
	if f.handlers == nil {
		f.handlers = map[string]mqtt.MessageHandler{}
	}
	f.handlers[topic] = cb
	return doneToken{}
}

type refresher struct {
	mu  sync.Mutex
	ids []string
	err error

	// when set, each Refresh reports on entered and waits for release
	entered chan string
	release chan struct{}
}

func (r *refresher) Refresh(ctx context.Context, id string) error {
	r.mu.Lock()
	r.ids = append(r.ids, id)
	entered, release := r.entered, r.release
	r.mu.Unlock()

	if entered != nil {
		entered <- id
		select {
		case <-release:
		case <-ctx.Done():
		}
	}
	return r.err
}

func (r *refresher) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

var at = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func TestPublish_TopicAndPayload(t *testing.T) {
	c := &fakeClient{}
	m := New(c, "fam1/", "dev-a", timex.NewManualClock(at), nil)

	err := m.Publish(context.Background(), models.SessionSyncRecord{ProfileID: "p1", IsActive: true, SequenceNumber: 5, DeviceID: "dev-a"})
	require.NoError(t, err)
	require.Len(t, c.published, 1)
	assert.Equal(t, "fam1/sessions/p1", c.published[0].topic)

	var ev Event
	require.NoError(t, json.Unmarshal(c.published[0].payload, &ev))
	assert.Equal(t, Event{ProfileID: "p1", DeviceID: "dev-a", IsActive: true, SequenceNumber: 5, At: at}, ev)
}

func TestPublish_Error(t *testing.T) {
	c := &fakeClient{pubErr: errors.New("not connected")}
	m := New(c, "fam1", "dev-a", nil, nil)
	err := m.Publish(context.Background(), models.SessionSyncRecord{ProfileID: "p1"})
	assert.ErrorContains(t, err, "not connected")
}

func TestPublish_UnackedTimesOut(t *testing.T) {
	c := &fakeClient{hang: true}
	m := New(c, "fam1", "dev-a", nil, nil)
	m.publishTimeout = 20 * time.Millisecond

	done := make(chan error, 1)
	go func() {
		done <- m.Publish(context.Background(), models.SessionSyncRecord{ProfileID: "p1"})
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.ErrorContains(t, err, "publish to fam1/sessions/p1")
	case <-time.After(2 * time.Second):
		t.Fatal("Publish did not give up on a missing ack")
	}
}

func TestHandle(t *testing.T) {
	m := New(&fakeClient{}, "fam1", "dev-a", nil, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		topic   string
		payload string
		want    []string
	}{
		{"foreign device", "fam1/sessions/p1", `{"profileId":"p1","deviceId":"dev-b"}`, []string{"p1"}},
		{"own device", "fam1/sessions/p1", `{"profileId":"p1","deviceId":"dev-a"}`, nil},
		{"malformed", "fam1/sessions/p1", `{`, nil},
		{"profile from topic", "fam1/sessions/p9", `{"deviceId":"dev-b"}`, []string{"p9"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &refresher{}
			m.Handle(ctx, r, tt.topic, []byte(tt.payload))
			assert.Equal(t, tt.want, r.seen())
		})
	}
}

type message struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m message) Topic() string   { return m.topic }
func (m message) Payload() []byte { return m.payload }

func event(profileID, deviceID string) message {
	return message{
		topic:   "fam1/sessions/" + profileID,
		payload: []byte(`{"profileId":"` + profileID + `","deviceId":"` + deviceID + `"}`),
	}
}

func TestSubscribe_RoutesToRefresher(t *testing.T) {
	c := &fakeClient{}
	m := New(c, "fam1", "dev-a", nil, nil)
	r := &refresher{err: errors.New("offline")}

	require.NoError(t, m.Subscribe(context.Background(), r))
	t.Cleanup(m.Close)
	cb, ok := c.handlers["fam1/sessions/+"]
	require.True(t, ok)

	cb(c, event("p2", "dev-b"))
	cb(c, event("p3", "dev-a"))
	assert.Eventually(t, func() bool { return len(r.seen()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"p2"}, r.seen())
}

func TestSubscribe_HandlerDoesNotWaitForRefresh(t *testing.T) {
	c := &fakeClient{}
	m := New(c, "fam1", "dev-a", nil, nil)
	r := &refresher{entered: make(chan string, 4), release: make(chan struct{})}

	require.NoError(t, m.Subscribe(context.Background(), r))
	cb := c.handlers["fam1/sessions/+"]

	cb(c, event("p1", "dev-b"))
	require.Equal(t, "p1", <-r.entered)

	// the worker is stuck in Refresh; the handler must still return
	returned := make(chan struct{})
	go func() {
		cb(c, event("p2", "dev-b"))
		cb(c, event("p2", "dev-b"))
		cb(c, event("p1", "dev-b"))
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("message handler blocked behind a refresh")
	}

	close(r.release)
	assert.Eventually(t, func() bool { return len(r.seen()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"p1", "p1", "p2"}, r.seen(), "queued events collapse per profile")

	m.Close()
	assert.Equal(t, []string{"fam1/sessions/+"}, c.unsubscribed)
	assert.True(t, c.disconnected)
}
