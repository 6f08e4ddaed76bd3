package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mimico/internal/app/api"
	"mimico/internal/app/realtime"
)

// fakeAPI is an in-memory API implementation with scriptable failures.
type fakeAPI struct {
	mu sync.Mutex

	token string

	loginErr    error
	registerErr error
	meErr       error
	createErr   error

	meProfile *api.Profile
}

func (f *fakeAPI) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeAPI) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeAPI) Login(_ context.Context, email, password string) (*api.LoginResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &api.LoginResponse{Token: "tok-ana", UserID: "u-ana", Nickname: "Ana"}, nil
}

func (f *fakeAPI) Register(_ context.Context, nickname, email, password string) error {
	return f.registerErr
}

func (f *fakeAPI) Me(_ context.Context) (*api.Profile, error) {
	if f.meErr != nil {
		return nil, f.meErr
	}
	if f.meProfile != nil {
		return f.meProfile, nil
	}
	return &api.Profile{UserID: "u-ana", Nickname: "Ana", Email: "ana@example.com"}, nil
}

func (f *fakeAPI) CreateTable(_ context.Context, name string) (*api.CreatedTable, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &api.CreatedTable{ID: "t-1", Name: name, HostID: "u-ana", Status: "waiting"}, nil
}

// published records one outbound frame captured by the fake broker.
type published struct {
	topic   string
	payload any
}

// fakeBroker is an in-memory Broker that records subscriptions and published
// frames and lets tests push inbound envelopes synchronously.
type fakeBroker struct {
	mu sync.Mutex

	token       string
	connected   bool
	subs        map[string]realtime.Callback
	subCounts   map[string]int
	publishes   []published
	onConnected func()
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		subs:      make(map[string]realtime.Callback),
		subCounts: make(map[string]int),
	}
}

func (b *fakeBroker) SetToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
}

func (b *fakeBroker) Connect(onConnected func(), onError func(error)) {
	b.mu.Lock()
	b.connected = true
	b.onConnected = onConnected
	b.mu.Unlock()

	if onConnected != nil {
		onConnected()
	}
}

func (b *fakeBroker) Disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	b.subs = make(map[string]realtime.Callback)
}

func (b *fakeBroker) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBroker) Subscribe(topic string, callback realtime.Callback) *realtime.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = callback
	b.subCounts[topic]++
	return &realtime.Subscription{Topic: topic}
}

// subscribeCount returns how many times Subscribe was called for the topic.
func (b *fakeBroker) subscribeCount(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subCounts[topic]
}

func (b *fakeBroker) Unsubscribe(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, topic)
}

func (b *fakeBroker) Publish(topic string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.publishes = append(b.publishes, published{topic: topic, payload: payload})
}

// publishedTo returns the payloads published to one topic, in order.
func (b *fakeBroker) publishedTo(topic string) []any {
	b.mu.Lock()
	defer b.mu.Unlock()

	var payloads []any
	for _, p := range b.publishes {
		if p.topic == topic {
			payloads = append(payloads, p.payload)
		}
	}
	return payloads
}

// subscribedTo reports whether a callback is registered for the topic.
func (b *fakeBroker) subscribedTo(topic string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.subs[topic]
	return ok
}

// push delivers an inbound broadcast to the subscribed callback, encoding the
// payload the way the wire would.
func (b *fakeBroker) push(t *testing.T, topic string, payload any) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	b.mu.Lock()
	callback, ok := b.subs[topic]
	b.mu.Unlock()

	require.True(t, ok, "no subscription for topic %s", topic)
	callback(realtime.Envelope{Topic: topic, Body: body})
}

// pushError delivers an error-shaped envelope, as the broker does for bodies
// that failed normalization.
func (b *fakeBroker) pushError(t *testing.T, topic string, parseErr error, raw []byte) {
	t.Helper()

	b.mu.Lock()
	callback, ok := b.subs[topic]
	b.mu.Unlock()

	require.True(t, ok, "no subscription for topic %s", topic)
	callback(realtime.Envelope{Topic: topic, Err: parseErr, Raw: raw})
}

// fakeTokens is an in-memory TokenStore.
type fakeTokens struct {
	mu    sync.Mutex
	token string
}

func (f *fakeTokens) Save(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
	return nil
}

func (f *fakeTokens) Load() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, nil
}

func (f *fakeTokens) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	return nil
}

// newTestStore wires a Store to fresh fakes with a chat rate limit high
// enough to stay out of the way.
func newTestStore(t *testing.T) (*Store, *fakeAPI, *fakeBroker, *fakeTokens) {
	t.Helper()

	apiClient := &fakeAPI{}
	broker := newFakeBroker()
	tokens := &fakeTokens{}

	return NewStore(apiClient, broker, tokens, 100, 100), apiClient, broker, tokens
}

// signIn logs the default test user in and opens the realtime connection.
func signIn(t *testing.T, s *Store) {
	t.Helper()

	require.NoError(t, s.Login(context.Background(), "ana@example.com", "segredo1"))
	require.NoError(t, s.ConnectRealtime())
}

// atTime pins the store's clock for the duration of the test.
func atTime(t *testing.T, now time.Time) {
	t.Helper()

	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = time.Now })
}
