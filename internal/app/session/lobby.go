/*
Package session owns the client's in-memory state and the actions that mutate it.

This file covers the lobby: opening the realtime connection, registering the
standing subscriptions, announcing presence, and lobby chat.
*/
package session

import (
	"mimico/internal/app/chat"
	"mimico/internal/pkg/errs"
)

// joinPayload announces presence on the lobby after connecting.
type joinPayload struct {
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
}

// ConnectRealtime opens the realtime connection and registers the lobby
// subscriptions. It requires an authenticated session. The registration
// callback also runs after every automatic reconnect, restoring lobby and
// table subscriptions alike.
func (s *Store) ConnectRealtime() error {
	if !s.IsAuthenticated() {
		return errs.NewError(errs.ErrUnauthorized)
	}

	s.broker.Connect(s.registerSubscriptions, s.handleConnectionError)
	return nil
}

// DisconnectRealtime closes the realtime connection without touching the
// authenticated state.
func (s *Store) DisconnectRealtime() {
	s.broker.Disconnect()
}

// registerSubscriptions subscribes to the lobby streams, the personal queues,
// and the topics of any table the user is at, then announces presence. Runs
// on every successful handshake, including reconnects, because the broker
// drops all subscriptions on connection loss.
func (s *Store) registerSubscriptions() {
	s.broker.Subscribe(TopicLobbyUsers, s.handleOnlineUsers)
	s.broker.Subscribe(TopicLobbyChat, s.handleLobbyChat)
	s.broker.Subscribe(TopicUserInvite, s.handleInvite)
	s.broker.Subscribe(TopicUserErrors, s.handleServerError)

	s.mu.RLock()
	current := s.user
	tables := make([]string, 0, len(s.subscribedTables))
	for tableID := range s.subscribedTables {
		tables = append(tables, tableID)
	}
	s.mu.RUnlock()

	for _, tableID := range tables {
		s.subscribeTableTopics(tableID)
	}

	s.broker.Publish(DestLobbyJoin, joinPayload{UserID: current.ID, Nickname: current.Nickname})

	s.logger.Info().Int("tables", len(tables)).Msg("Lobby subscriptions registered.")
}

// handleConnectionError surfaces a failed handshake. The broker keeps
// retrying on its own; this only informs the UI.
func (s *Store) handleConnectionError(err error) {
	s.logger.Warn().Err(err).Msg("Realtime connection attempt failed.")
	s.setLastError(errs.NewError(errs.ErrNotConnected))
}

// SendChatMessage publishes a lobby chat message. The message is not appended
// locally; it shows up when the server echoes it back on the lobby stream.
// Sending while signed out is a no-op.
func (s *Store) SendChatMessage(text string) error {
	s.mu.RLock()
	current := s.user
	authenticated := s.authenticated
	s.mu.RUnlock()

	if !authenticated {
		s.logger.Debug().Msg("Chat message while signed out, nothing to send.")
		return nil
	}

	if err := chat.ValidateContent(text); err != nil {
		return err
	}

	if !s.chatLimiter.Allow(DestLobbyChat) {
		return errs.NewError(errs.ErrRateLimitExceeded)
	}

	s.broker.Publish(DestLobbyChat, chat.NewMessage(current.ID, current.Nickname, text))
	return nil
}
