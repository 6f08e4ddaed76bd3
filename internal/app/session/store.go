/*
Package session owns the client's in-memory state and the actions that mutate it.

The Store is the single source of truth for everything the UI renders: the
authenticated user, the lobby roster and chat, the current table with its
player slots, the pending invite, and the last surfaced error. All state lives
behind one mutex; server broadcasts and user actions are serialized through it.
*/
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"mimico/internal/app/api"
	"mimico/internal/app/chat"
	"mimico/internal/app/realtime"
	"mimico/internal/app/table"
	"mimico/internal/app/user"
	"mimico/internal/pkg/errs"
	"mimico/internal/pkg/limiter"
	"mimico/internal/pkg/logx"
)

// API is the request/response surface the session needs from the HTTP client.
type API interface {
	SetToken(token string)
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
	Register(ctx context.Context, nickname, email, password string) error
	Me(ctx context.Context) (*api.Profile, error)
	CreateTable(ctx context.Context, name string) (*api.CreatedTable, error)
}

// Broker is the realtime surface the session needs from the connection.
type Broker interface {
	SetToken(token string)
	Connect(onConnected func(), onError func(error))
	Disconnect()
	IsConnected() bool
	Subscribe(topic string, callback realtime.Callback) *realtime.Subscription
	Unsubscribe(topic string)
	Publish(topic string, payload any)
}

// TokenStore persists the auth token across restarts.
type TokenStore interface {
	Save(token string) error
	Load() (string, error)
	Clear() error
}

// Store holds the full client session state. All methods are safe for
// concurrent use; snapshot accessors return copies, never internal slices.
type Store struct {
	apiClient API
	broker    Broker
	tokens    TokenStore

	// chatLimiter throttles outbound chat per destination topic.
	chatLimiter *limiter.TopicRateLimiter

	logger zerolog.Logger

	mu sync.RWMutex

	// authenticated user identity; zero value while logged out.
	user          user.User
	token         string
	authenticated bool

	// lobby state.
	onlineUsers  []user.User
	chatMessages []chat.Message

	// table state.
	currentTable      *table.GameTable
	tableSlots        []table.PlayerSlot
	tableChatMessages []chat.Message
	tableCancelled    bool
	pendingInvite     *table.Invite

	// subscribedTables guards against duplicate topic subscriptions for the
	// same table, and drives re-subscription after a reconnect.
	subscribedTables map[string]bool

	// lastError is the most recent error worth surfacing to the UI.
	lastError *errs.CustomError

	// matchStarted is invoked (outside the lock) when a match-start broadcast
	// arrives for the current table.
	matchStarted func(tableID string)
}

// NewStore constructs a Store wired to the given API client, realtime broker,
// and token store. chatRate and chatBurst bound outbound chat messages per
// destination.
func NewStore(apiClient API, broker Broker, tokens TokenStore, chatRate float64, chatBurst int) *Store {
	storeLogger := logx.Logger().With().
		Str("component", "session").
		Logger()

	return &Store{
		apiClient:        apiClient,
		broker:           broker,
		tokens:           tokens,
		chatLimiter:      limiter.NewTopicRateLimiter(rate.Limit(chatRate), chatBurst),
		logger:           storeLogger,
		subscribedTables: make(map[string]bool),
	}
}

// SetMatchStartedHandler registers a hook invoked when the current table's
// match starts. Intended for the UI to switch screens.
func (s *Store) SetMatchStartedHandler(fn func(tableID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.matchStarted = fn
}

// CurrentUser returns the authenticated user and whether one is signed in.
func (s *Store) CurrentUser() (user.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.user, s.authenticated
}

// IsAuthenticated reports whether a user is signed in.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.authenticated
}

// OnlineUsers returns a copy of the lobby roster.
func (s *Store) OnlineUsers() []user.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]user.User, len(s.onlineUsers))
	copy(users, s.onlineUsers)
	return users
}

// ChatMessages returns a copy of the lobby chat history, in arrival order.
func (s *Store) ChatMessages() []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := make([]chat.Message, len(s.chatMessages))
	copy(messages, s.chatMessages)
	return messages
}

// TableChatMessages returns a copy of the current table's chat history.
func (s *Store) TableChatMessages() []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := make([]chat.Message, len(s.tableChatMessages))
	copy(messages, s.tableChatMessages)
	return messages
}

// CurrentTable returns a copy of the current table, or nil when not at one.
func (s *Store) CurrentTable() *table.GameTable {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentTable == nil {
		return nil
	}

	t := *s.currentTable
	t.Players = make([]user.User, len(s.currentTable.Players))
	copy(t.Players, s.currentTable.Players)
	return &t
}

// TableSlots returns a copy of the current table's player slots.
func (s *Store) TableSlots() []table.PlayerSlot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slots := make([]table.PlayerSlot, len(s.tableSlots))
	copy(slots, s.tableSlots)
	return slots
}

// PendingInvite returns a copy of the pending invite, or nil when none.
func (s *Store) PendingInvite() *table.Invite {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.pendingInvite == nil {
		return nil
	}

	invite := *s.pendingInvite
	return &invite
}

// InviteExpired reports whether a pending invite exists and has lapsed at the
// given moment.
func (s *Store) InviteExpired(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.pendingInvite != nil && s.pendingInvite.Expired(now)
}

// TableCancelled reports whether the last table the user was at got cancelled
// out from under them. Cleared when a new table is entered.
func (s *Store) TableCancelled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tableCancelled
}

// IsReady reports whether the given player has toggled ready at the current
// table.
func (s *Store) IsReady(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, slot := range s.tableSlots {
		if slot.UserID == userID {
			return slot.Status == table.SlotReady
		}
	}
	return false
}

// AllReady reports whether the current table is full and every slot is ready.
// Derived from the slots; never stored.
func (s *Store) AllReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentTable == nil || len(s.tableSlots) != table.MaxPlayers {
		return false
	}

	for _, slot := range s.tableSlots {
		if slot.Status != table.SlotReady {
			return false
		}
	}
	return true
}

// LastError returns the most recent surfaced error, or nil.
func (s *Store) LastError() *errs.CustomError {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastError
}

// ClearLastError discards the surfaced error after the UI has shown it.
func (s *Store) ClearLastError() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastError = nil
}

// ClearChat discards the lobby chat history. Table chat is unaffected.
func (s *Store) ClearChat() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chatMessages = nil
}

// ClearTableChat discards the table chat history. Lobby chat is unaffected.
func (s *Store) ClearTableChat() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tableChatMessages = nil
}

// setLastError records an error for the UI under the lock.
func (s *Store) setLastError(err *errs.CustomError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastError = err
}

// resetLocked clears all session state. Caller must hold s.mu.
func (s *Store) resetLocked() {
	s.user = user.User{}
	s.token = ""
	s.authenticated = false
	s.onlineUsers = nil
	s.chatMessages = nil
	s.currentTable = nil
	s.tableSlots = nil
	s.tableChatMessages = nil
	s.tableCancelled = false
	s.pendingInvite = nil
	s.subscribedTables = make(map[string]bool)
	s.lastError = nil
}

// clearTableLocked clears the current-table state while keeping the lobby and
// auth state intact. Caller must hold s.mu.
func (s *Store) clearTableLocked() {
	s.currentTable = nil
	s.tableSlots = nil
	s.tableChatMessages = nil
}

// nowFunc is replaceable in tests.
var nowFunc = time.Now
