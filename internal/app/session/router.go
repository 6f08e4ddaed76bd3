/*
Package session owns the client's in-memory state and the actions that mutate it.

This file is the inbound side: the topic names, the wire payload shapes, and
the handlers that fold server broadcasts into the store. Each handler decodes
one payload type and applies it under the lock; a malformed payload surfaces
an error and leaves the previous state untouched.
*/
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"mimico/internal/app/chat"
	"mimico/internal/app/realtime"
	"mimico/internal/app/table"
	"mimico/internal/app/user"
	"mimico/internal/pkg/errs"
)

// Lobby-wide and personal topics.
const (
	// TopicLobbyUsers streams full snapshots of the online roster.
	TopicLobbyUsers = "/topic/lobby/users"

	// TopicLobbyChat streams lobby chat messages.
	TopicLobbyChat = "/topic/lobby/chat"

	// TopicUserInvite is the personal queue for table invites.
	TopicUserInvite = "/user/queue/invite"

	// TopicUserErrors is the personal queue for server-pushed errors.
	TopicUserErrors = "/user/queue/errors"
)

// Outbound destinations.
const (
	// DestLobbyJoin announces presence after connecting.
	DestLobbyJoin = "/app/lobby/join"

	// DestLobbyChat sends a lobby chat message.
	DestLobbyChat = "/app/lobby/chat"

	// DestTableInvite sends a table invite to another user.
	DestTableInvite = "/app/table/invite"

	// DestInviteAccept accepts the pending invite.
	DestInviteAccept = "/app/table/invite/accept"

	// DestInviteReject declines the pending invite.
	DestInviteReject = "/app/table/invite/reject"

	// DestTableReady toggles the ready flag at the current table.
	DestTableReady = "/app/table/ready"

	// DestTableChat sends a table chat message.
	DestTableChat = "/app/table/chat"

	// DestTableLeave leaves the current table's waiting room.
	DestTableLeave = "/app/table/leave"

	// DestMatchAbandon abandons a running match.
	DestMatchAbandon = "/app/match/abandon"
)

// TablePlayersTopic returns the per-table topic streaming player snapshots.
func TablePlayersTopic(tableID string) string {
	return fmt.Sprintf("/topic/table/%s/players", tableID)
}

// TableReadyTopic returns the per-table topic streaming ready-state updates.
func TableReadyTopic(tableID string) string {
	return fmt.Sprintf("/topic/table/%s/ready", tableID)
}

// TableChatTopic returns the per-table chat topic.
func TableChatTopic(tableID string) string {
	return fmt.Sprintf("/topic/table/%s/chat", tableID)
}

// TableStartTopic returns the per-table topic announcing match start.
func TableStartTopic(tableID string) string {
	return fmt.Sprintf("/topic/table/%s/start", tableID)
}

// TableCancelledTopic returns the per-table topic announcing cancellation.
func TableCancelledTopic(tableID string) string {
	return fmt.Sprintf("/topic/table/%s/cancelled", tableID)
}

// defaultInviteTTL applies when an invite arrives without a server TTL.
const defaultInviteTTL = 30 * time.Second

// invitePayload is the wire shape of an invite pushed on the personal queue.
// The server sends a relative TTL; the client pins it to a wall-clock expiry
// on receipt.
type invitePayload struct {
	ID            string `json:"id"`
	TableID       string `json:"tableId"`
	TableName     string `json:"tableName"`
	HostID        string `json:"hostId"`
	HostName      string `json:"hostName"`
	InvitedUserID string `json:"invitedUserId"`
	TTLSeconds    int    `json:"ttlSeconds"`
}

// readyPayload is the wire shape of a ready-state broadcast: the full set of
// ready player ids at the table.
type readyPayload struct {
	TableID      string   `json:"tableId"`
	ReadyUserIDs []string `json:"readyUserIds"`
}

// startPayload is the wire shape of a match-start broadcast.
type startPayload struct {
	TableID string `json:"tableId"`
}

// cancelledPayload is the wire shape of a table-cancellation broadcast.
type cancelledPayload struct {
	TableID string `json:"tableId"`
	Reason  string `json:"reason"`
}

// serverErrorPayload is the wire shape of an error pushed on the personal
// error queue.
type serverErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// decodeEnvelope unpacks one inbound envelope into out. It returns false,
// surfacing the parse error, when the envelope is error-shaped or the body
// does not match the expected payload.
func (s *Store) decodeEnvelope(env realtime.Envelope, out any) bool {
	if env.Err != nil {
		s.logger.Warn().Str("topic", env.Topic).Msg("Dropping malformed broadcast.")
		s.setLastError(errs.NewError(errs.ErrMessageParseFailed))
		return false
	}

	if err := json.Unmarshal(env.Body, out); err != nil {
		s.logger.Warn().Err(err).Str("topic", env.Topic).Msg("Broadcast body has unexpected shape.")
		s.setLastError(errs.NewError(errs.ErrMessageParseFailed))
		return false
	}

	return true
}

// handleOnlineUsers replaces the lobby roster with the broadcast snapshot.
func (s *Store) handleOnlineUsers(env realtime.Envelope) {
	var users []user.User
	if !s.decodeEnvelope(env, &users) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.onlineUsers = users
}

// handleLobbyChat appends one lobby chat message in arrival order.
func (s *Store) handleLobbyChat(env realtime.Envelope) {
	var message chat.Message
	if !s.decodeEnvelope(env, &message) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.chatMessages = append(s.chatMessages, message)
}

// handleInvite stores an incoming invite, pinning its expiry to the local
// clock. A newer invite replaces any unanswered one; last write wins.
func (s *Store) handleInvite(env realtime.Envelope) {
	var payload invitePayload
	if !s.decodeEnvelope(env, &payload) {
		return
	}

	ttl := time.Duration(payload.TTLSeconds) * time.Second
	if payload.TTLSeconds <= 0 {
		ttl = defaultInviteTTL
	}

	invite := table.Invite{
		ID:            payload.ID,
		TableID:       payload.TableID,
		TableName:     payload.TableName,
		HostID:        payload.HostID,
		HostName:      payload.HostName,
		InvitedUserID: payload.InvitedUserID,
		ExpiresAt:     nowFunc().Add(ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingInvite != nil {
		s.logger.Info().
			Str("replaced_invite", s.pendingInvite.ID).
			Str("invite", invite.ID).
			Msg("New invite replaces unanswered one.")
	}
	s.pendingInvite = &invite
}

// handleTablePlayers replaces the current table's player list with the
// broadcast snapshot and folds it into the slots, preserving known slot
// statuses and keeping still-pending invitees visible.
func (s *Store) handleTablePlayers(tableID string, env realtime.Envelope) {
	var players []user.User
	if !s.decodeEnvelope(env, &players) {
		return
	}

	if len(players) > table.MaxPlayers {
		s.logger.Warn().
			Str("table_id", tableID).
			Int("players", len(players)).
			Msg("Player snapshot exceeds table capacity, truncating.")
		players = players[:table.MaxPlayers]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentTable == nil || s.currentTable.ID != tableID {
		s.logger.Debug().Str("table_id", tableID).Msg("Player snapshot for a table we are not at.")
		return
	}

	s.currentTable.Players = players

	previous := make(map[string]table.SlotStatus, len(s.tableSlots))
	for _, slot := range s.tableSlots {
		previous[slot.UserID] = slot.Status
	}

	slots := make([]table.PlayerSlot, 0, len(players))
	seen := make(map[string]bool, len(players))
	for _, p := range players {
		status := table.SlotAccepted
		if prev, ok := previous[p.ID]; ok && prev != table.SlotPending {
			status = prev
		}
		slots = append(slots, table.PlayerSlot{UserID: p.ID, Nickname: p.Nickname, Status: status})
		seen[p.ID] = true
	}

	// Invitees who have not answered yet are absent from the snapshot but
	// still occupy a visible slot.
	for _, slot := range s.tableSlots {
		if slot.Status == table.SlotPending && !seen[slot.UserID] {
			slots = append(slots, slot)
		}
	}

	s.tableSlots = slots
}

// handleTableReady folds a ready-state broadcast into the slots: listed
// players become ready (a pending slot included, since the server only
// reports seated players), previously ready players not listed drop back to
// accepted. Unlisted pending slots are untouched.
func (s *Store) handleTableReady(tableID string, env realtime.Envelope) {
	var payload readyPayload
	if !s.decodeEnvelope(env, &payload) {
		return
	}

	ready := make(map[string]bool, len(payload.ReadyUserIDs))
	for _, id := range payload.ReadyUserIDs {
		ready[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentTable == nil || s.currentTable.ID != tableID {
		return
	}

	for i, slot := range s.tableSlots {
		switch {
		case ready[slot.UserID]:
			s.tableSlots[i].Status = table.SlotReady
		case slot.Status == table.SlotReady:
			s.tableSlots[i].Status = table.SlotAccepted
		}
	}
}

// handleTableChat appends one table chat message in arrival order.
func (s *Store) handleTableChat(tableID string, env realtime.Envelope) {
	var message chat.Message
	if !s.decodeEnvelope(env, &message) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentTable == nil || s.currentTable.ID != tableID {
		return
	}

	s.tableChatMessages = append(s.tableChatMessages, message)
}

// handleMatchStarted flips the current table into a running match and invokes
// the registered hook.
func (s *Store) handleMatchStarted(tableID string, env realtime.Envelope) {
	var payload startPayload
	if !s.decodeEnvelope(env, &payload) {
		return
	}

	s.mu.Lock()

	if s.currentTable == nil || s.currentTable.ID != tableID {
		s.mu.Unlock()
		return
	}

	s.currentTable.Status = table.StatusInProgress
	started := s.matchStarted
	s.mu.Unlock()

	s.logger.Info().Str("table_id", tableID).Msg("Match started.")

	if started != nil {
		started(tableID)
	}
}

// handleTableCancelled clears the table state when the server cancels the
// table the user is at, and flags the cancellation for the UI.
func (s *Store) handleTableCancelled(tableID string, env realtime.Envelope) {
	var payload cancelledPayload
	if !s.decodeEnvelope(env, &payload) {
		return
	}

	s.mu.Lock()

	if s.currentTable == nil || s.currentTable.ID != tableID {
		s.mu.Unlock()
		return
	}

	s.clearTableLocked()
	s.tableCancelled = true
	s.mu.Unlock()

	s.logger.Info().
		Str("table_id", tableID).
		Str("reason", payload.Reason).
		Msg("Table cancelled by server.")

	s.unsubscribeTable(tableID)
}

// handleServerError surfaces an error pushed on the personal queue.
func (s *Store) handleServerError(env realtime.Envelope) {
	var payload serverErrorPayload
	if !s.decodeEnvelope(env, &payload) {
		return
	}

	s.logger.Warn().
		Int("server_code", payload.Code).
		Str("message", payload.Message).
		Msg("Server pushed an error.")

	s.setLastError(errs.FromServer(payload.Code, payload.Message, 0))
}
