/*
Package session owns the client's in-memory state and the actions that mutate it.

This file covers the table lifecycle: creating a table and inviting players,
answering invites, the waiting-room ready flow, table chat, and leaving or
abandoning. Tables are shown optimistically and corrected by server
broadcasts.
*/
package session

import (
	"context"

	"mimico/internal/app/chat"
	"mimico/internal/app/realtime"
	"mimico/internal/app/table"
	"mimico/internal/app/user"
	"mimico/internal/pkg/errs"
)

// invitePublishPayload is the outbound shape of a table invite.
type invitePublishPayload struct {
	TableID       string `json:"tableId"`
	InvitedUserID string `json:"invitedUserId"`
}

// inviteAnswerPayload is the outbound shape of an invite accept or reject.
type inviteAnswerPayload struct {
	InviteID string `json:"inviteId"`
	TableID  string `json:"tableId"`
}

// readyPublishPayload is the outbound shape of a ready toggle.
type readyPublishPayload struct {
	TableID string `json:"tableId"`
	UserID  string `json:"userId"`
	Ready   bool   `json:"ready"`
}

// tableActionPayload is the outbound shape of leave and abandon actions.
type tableActionPayload struct {
	TableID string `json:"tableId"`
	UserID  string `json:"userId"`
}

// tableChatPublishPayload is the outbound shape of a table chat message.
type tableChatPublishPayload struct {
	TableID string       `json:"tableId"`
	Message chat.Message `json:"message"`
}

// CreateTable allocates a table on the server, subscribes to its topics, and
// invites the given users. At most MaxPlayers-1 invitees fit alongside the
// host. The table appears immediately with the host seated; the authoritative
// roster arrives on the players stream.
func (s *Store) CreateTable(ctx context.Context, name string, inviteeIDs []string) error {
	s.mu.RLock()
	current := s.user
	authenticated := s.authenticated
	onlineUsers := s.onlineUsers
	s.mu.RUnlock()

	if !authenticated {
		return errs.NewError(errs.ErrUnauthorized)
	}

	if len(inviteeIDs) > table.MaxPlayers-1 {
		return errs.NewError(errs.ErrTooManyInvites, table.MaxPlayers)
	}

	created, err := s.apiClient.CreateTable(ctx, name)
	if err != nil {
		return err
	}

	s.subscribeTable(created.ID)

	nicknames := make(map[string]string, len(onlineUsers))
	for _, u := range onlineUsers {
		nicknames[u.ID] = u.Nickname
	}

	slots := make([]table.PlayerSlot, 0, len(inviteeIDs)+1)
	slots = append(slots, table.PlayerSlot{
		UserID:   current.ID,
		Nickname: current.Nickname,
		Status:   table.SlotAccepted,
	})
	for _, inviteeID := range inviteeIDs {
		slots = append(slots, table.PlayerSlot{
			UserID:   inviteeID,
			Nickname: nicknames[inviteeID],
			Status:   table.SlotPending,
		})
	}

	s.mu.Lock()
	s.currentTable = &table.GameTable{
		ID:        created.ID,
		Name:      created.Name,
		HostID:    created.HostID,
		Players:   []user.User{current},
		Status:    table.StatusWaiting,
		CreatedAt: nowFunc(),
	}
	s.tableSlots = slots
	s.tableChatMessages = nil
	s.tableCancelled = false
	s.mu.Unlock()

	for _, inviteeID := range inviteeIDs {
		s.broker.Publish(DestTableInvite, invitePublishPayload{
			TableID:       created.ID,
			InvitedUserID: inviteeID,
		})
	}

	s.logger.Info().
		Str("table_id", created.ID).
		Int("invites", len(inviteeIDs)).
		Msg("Table created.")
	return nil
}

// AcceptInvite joins the invited table: it subscribes to the table's topics,
// seats the user optimistically, and announces the acceptance. An invite that
// expired while unanswered is rejected on the user's behalf instead. With no
// pending invite this is a no-op.
func (s *Store) AcceptInvite() error {
	s.mu.Lock()
	invite := s.pendingInvite
	current := s.user
	s.pendingInvite = nil
	s.mu.Unlock()

	if invite == nil {
		s.logger.Debug().Msg("AcceptInvite with no pending invite.")
		return nil
	}

	if invite.Expired(nowFunc()) {
		s.logger.Info().Str("invite", invite.ID).Msg("Invite expired before it was answered.")
		s.broker.Publish(DestInviteReject, inviteAnswerPayload{InviteID: invite.ID, TableID: invite.TableID})
		return errs.NewError(errs.ErrNoPendingInvite)
	}

	s.subscribeTable(invite.TableID)

	s.mu.Lock()
	s.currentTable = &table.GameTable{
		ID:        invite.TableID,
		Name:      invite.TableName,
		HostID:    invite.HostID,
		Players:   []user.User{current},
		Status:    table.StatusWaiting,
		CreatedAt: nowFunc(),
	}
	s.tableSlots = []table.PlayerSlot{{
		UserID:   current.ID,
		Nickname: current.Nickname,
		Status:   table.SlotAccepted,
	}}
	s.tableChatMessages = nil
	s.tableCancelled = false
	s.mu.Unlock()

	s.broker.Publish(DestInviteAccept, inviteAnswerPayload{InviteID: invite.ID, TableID: invite.TableID})

	s.logger.Info().Str("table_id", invite.TableID).Msg("Invite accepted.")
	return nil
}

// RejectInvite declines the pending invite. With no pending invite this is a
// no-op; an expired invite is still rejected so the host's slot frees up.
func (s *Store) RejectInvite() error {
	s.mu.Lock()
	invite := s.pendingInvite
	s.pendingInvite = nil
	s.mu.Unlock()

	if invite == nil {
		s.logger.Debug().Msg("RejectInvite with no pending invite.")
		return nil
	}

	s.broker.Publish(DestInviteReject, inviteAnswerPayload{InviteID: invite.ID, TableID: invite.TableID})

	s.logger.Info().Str("invite", invite.ID).Msg("Invite rejected.")
	return nil
}

// ToggleReady flips the user's ready flag at the current table. The flip is
// applied optimistically; the ready broadcast corrects it if they diverge.
// Not being at a table is a no-op.
func (s *Store) ToggleReady() error {
	s.mu.Lock()

	if s.currentTable == nil {
		s.mu.Unlock()
		s.logger.Debug().Msg("ToggleReady with no active table.")
		return nil
	}

	tableID := s.currentTable.ID
	current := s.user

	ready := false
	for i, slot := range s.tableSlots {
		if slot.UserID != current.ID {
			continue
		}
		ready = slot.Status == table.SlotReady
		if ready {
			s.tableSlots[i].Status = table.SlotAccepted
		} else {
			s.tableSlots[i].Status = table.SlotReady
		}
		break
	}
	s.mu.Unlock()

	s.broker.Publish(DestTableReady, readyPublishPayload{
		TableID: tableID,
		UserID:  current.ID,
		Ready:   !ready,
	})
	return nil
}

// SendTableChatMessage publishes a chat message to the current table. Like
// lobby chat, the message shows up when the server echoes it back. Not being
// at a table is a no-op.
func (s *Store) SendTableChatMessage(text string) error {
	s.mu.RLock()
	current := s.user
	var tableID string
	if s.currentTable != nil {
		tableID = s.currentTable.ID
	}
	s.mu.RUnlock()

	if tableID == "" {
		s.logger.Debug().Msg("Table chat message with no active table.")
		return nil
	}

	if err := chat.ValidateContent(text); err != nil {
		return err
	}

	if !s.chatLimiter.Allow(TableChatTopic(tableID)) {
		return errs.NewError(errs.ErrRateLimitExceeded)
	}

	s.broker.Publish(DestTableChat, tableChatPublishPayload{
		TableID: tableID,
		Message: chat.NewMessage(current.ID, current.Nickname, text),
	})
	return nil
}

// LeaveTable leaves the current table's waiting room, drops its topic
// subscriptions so stale broadcasts stop arriving, and clears the table
// state. Not being at a table is a no-op.
func (s *Store) LeaveTable() error {
	s.mu.Lock()

	if s.currentTable == nil {
		s.mu.Unlock()
		return nil
	}

	tableID := s.currentTable.ID
	current := s.user
	s.clearTableLocked()
	s.tableCancelled = false
	s.mu.Unlock()

	s.broker.Publish(DestTableLeave, tableActionPayload{TableID: tableID, UserID: current.ID})
	s.unsubscribeTable(tableID)

	s.logger.Info().Str("table_id", tableID).Msg("Left table.")
	return nil
}

// AbandonMatch walks out of a running match. The server cancels the table for
// the remaining players; locally the state clears the same way as a leave.
// Not being at a table is a no-op.
func (s *Store) AbandonMatch() error {
	s.mu.Lock()

	if s.currentTable == nil {
		s.mu.Unlock()
		s.logger.Debug().Msg("AbandonMatch with no active table.")
		return nil
	}

	tableID := s.currentTable.ID
	current := s.user
	s.clearTableLocked()
	s.tableCancelled = false
	s.mu.Unlock()

	s.broker.Publish(DestMatchAbandon, tableActionPayload{TableID: tableID, UserID: current.ID})
	s.unsubscribeTable(tableID)

	s.logger.Info().Str("table_id", tableID).Msg("Match abandoned.")
	return nil
}

// ConnectToTable subscribes to a table's broadcast topics so its updates and
// chat start flowing. Safe to call more than once for the same table.
func (s *Store) ConnectToTable(tableID string) {
	s.subscribeTable(tableID)
}

// subscribeTable registers the per-table topic subscriptions exactly once per
// table. A second call for the same table is a no-op, so duplicate broadcasts
// never stack.
func (s *Store) subscribeTable(tableID string) {
	s.mu.Lock()
	if s.subscribedTables[tableID] {
		s.mu.Unlock()
		s.logger.Debug().Str("table_id", tableID).Msg("Already subscribed to table.")
		return
	}
	s.subscribedTables[tableID] = true
	s.mu.Unlock()

	s.subscribeTableTopics(tableID)
}

// subscribeTableTopics performs the broker subscriptions for one table. Split
// from subscribeTable so reconnect handling can re-register without touching
// the bookkeeping.
func (s *Store) subscribeTableTopics(tableID string) {
	s.broker.Subscribe(TablePlayersTopic(tableID), func(env realtime.Envelope) {
		s.handleTablePlayers(tableID, env)
	})
	s.broker.Subscribe(TableReadyTopic(tableID), func(env realtime.Envelope) {
		s.handleTableReady(tableID, env)
	})
	s.broker.Subscribe(TableChatTopic(tableID), func(env realtime.Envelope) {
		s.handleTableChat(tableID, env)
	})
	s.broker.Subscribe(TableStartTopic(tableID), func(env realtime.Envelope) {
		s.handleMatchStarted(tableID, env)
	})
	s.broker.Subscribe(TableCancelledTopic(tableID), func(env realtime.Envelope) {
		s.handleTableCancelled(tableID, env)
	})
}

// unsubscribeTable drops the per-table subscriptions and bookkeeping.
func (s *Store) unsubscribeTable(tableID string) {
	s.mu.Lock()
	delete(s.subscribedTables, tableID)
	s.mu.Unlock()

	s.broker.Unsubscribe(TablePlayersTopic(tableID))
	s.broker.Unsubscribe(TableReadyTopic(tableID))
	s.broker.Unsubscribe(TableChatTopic(tableID))
	s.broker.Unsubscribe(TableStartTopic(tableID))
	s.broker.Unsubscribe(TableCancelledTopic(tableID))
}
