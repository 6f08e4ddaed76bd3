package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mimico/internal/app/table"
	"mimico/internal/app/user"
	"mimico/internal/pkg/errs"
)

func TestCreateTable(t *testing.T) {
	s, _, broker, _ := newTestStore(t)
	signIn(t, s)

	broker.push(t, TopicLobbyUsers, []user.User{
		{ID: "u-ana", Nickname: "Ana", IsOnline: true},
		{ID: "u-bia", Nickname: "Bia", IsOnline: true},
		{ID: "u-caio", Nickname: "Caio", IsOnline: true},
		{ID: "u-duda", Nickname: "Duda", IsOnline: true},
	})

	require.NoError(t, s.CreateTable(context.Background(), "Mesa da Ana", []string{"u-bia", "u-caio", "u-duda"}))

	current := s.CurrentTable()
	require.NotNil(t, current)
	assert.Equal(t, "t-1", current.ID)
	assert.Equal(t, "Mesa da Ana", current.Name)
	assert.Equal(t, "u-ana", current.HostID)
	assert.Equal(t, table.StatusWaiting, current.Status)

	// The host is seated; the invitees hold pending slots with their lobby
	// nicknames.
	slots := s.TableSlots()
	require.Len(t, slots, 4)
	assert.Equal(t, table.PlayerSlot{UserID: "u-ana", Nickname: "Ana", Status: table.SlotAccepted}, slots[0])
	assert.Equal(t, table.PlayerSlot{UserID: "u-bia", Nickname: "Bia", Status: table.SlotPending}, slots[1])

	invites := broker.publishedTo(DestTableInvite)
	require.Len(t, invites, 3)
	assert.Equal(t, invitePublishPayload{TableID: "t-1", InvitedUserID: "u-bia"}, invites[0])

	assert.True(t, broker.subscribedTo(TablePlayersTopic("t-1")))
	assert.True(t, broker.subscribedTo(TableReadyTopic("t-1")))
	assert.True(t, broker.subscribedTo(TableChatTopic("t-1")))
	assert.True(t, broker.subscribedTo(TableStartTopic("t-1")))
	assert.True(t, broker.subscribedTo(TableCancelledTopic("t-1")))
}

func TestCreateTableTooManyInvites(t *testing.T) {
	s, _, broker, _ := newTestStore(t)
	signIn(t, s)

	err := s.CreateTable(context.Background(), "Mesa", []string{"u-1", "u-2", "u-3", "u-4"})

	var customErr *errs.CustomError
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, errs.ErrTooManyInvites, customErr.Code)
	assert.Nil(t, s.CurrentTable())
	assert.Empty(t, broker.publishedTo(DestTableInvite))
}

func TestAcceptInvite(t *testing.T) {
	s, _, broker, _ := newTestStore(t)
	signIn(t, s)

	broker.push(t, TopicUserInvite, invitePayload{
		ID: "i-1", TableID: "t-9", TableName: "Mesa da Bia",
		HostID: "u-bia", HostName: "Bia", InvitedUserID: "u-ana", TTLSeconds: 30,
	})
	require.NotNil(t, s.PendingInvite())

	require.NoError(t, s.AcceptInvite())

	assert.Nil(t, s.PendingInvite())

	current := s.CurrentTable()
	require.NotNil(t, current)
	assert.Equal(t, "t-9", current.ID)
	assert.Equal(t, "Mesa da Bia", current.Name)
	assert.Equal(t, "u-bia", current.HostID)

	answers := broker.publishedTo(DestInviteAccept)
	require.Len(t, answers, 1)
	assert.Equal(t, inviteAnswerPayload{InviteID: "i-1", TableID: "t-9"}, answers[0])

	assert.True(t, broker.subscribedTo(TablePlayersTopic("t-9")))
}

func TestAcceptInviteWithoutInviteIsNoop(t *testing.T) {
	s, _, broker, _ := newTestStore(t)
	signIn(t, s)

	require.NoError(t, s.AcceptInvite())
	assert.Empty(t, broker.publishedTo(DestInviteAccept))
	assert.Nil(t, s.CurrentTable())
}

func TestAcceptExpiredInviteRejectsInstead(t *testing.T) {
	s, _, broker, _ := newTestStore(t)
	signIn(t, s)

	received := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	atTime(t, received)

	broker.push(t, TopicUserInvite, invitePayload{ID: "i-1", TableID: "t-9", TTLSeconds: 30})

	// The user answers after the invite lapsed.
	nowFunc = func() time.Time { return received.Add(31 * time.Second) }

	err := s.AcceptInvite()
	var customErr *errs.CustomError
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, errs.ErrNoPendingInvite, customErr.Code)

	assert.Nil(t, s.PendingInvite())
	assert.Nil(t, s.CurrentTable())
	assert.Empty(t, broker.publishedTo(DestInviteAccept))
	assert.Len(t, broker.publishedTo(DestInviteReject), 1)
}

func TestRejectInvite(t *testing.T) {
	s, _, broker, _ := newTestStore(t)
	signIn(t, s)

	broker.push(t, TopicUserInvite, invitePayload{ID: "i-1", TableID: "t-9", TTLSeconds: 30})

	require.NoError(t, s.RejectInvite())

	assert.Nil(t, s.PendingInvite())
	rejects := broker.publishedTo(DestInviteReject)
	require.Len(t, rejects, 1)
	assert.Equal(t, inviteAnswerPayload{InviteID: "i-1", TableID: "t-9"}, rejects[0])

	// A second reject has nothing to answer.
	require.NoError(t, s.RejectInvite())
	assert.Len(t, broker.publishedTo(DestInviteReject), 1)
}

func TestSecondInviteReplacesFirst(t *testing.T) {
	s, _, broker, _ := newTestStore(t)
	signIn(t, s)

	broker.push(t, TopicUserInvite, invitePayload{ID: "i-1", TableID: "t-1", TTLSeconds: 30})
	broker.push(t, TopicUserInvite, invitePayload{ID: "i-2", TableID: "t-2", TTLSeconds: 30})

	invite := s.PendingInvite()
	require.NotNil(t, invite)
	assert.Equal(t, "i-2", invite.ID)
}

func TestToggleReady(t *testing.T) {
	s, _, broker, _ := newTestStore(t)
	signIn(t, s)
	require.NoError(t, s.CreateTable(context.Background(), "Mesa", nil))

	require.NoError(t, s.ToggleReady())
	assert.True(t, s.IsReady("u-ana"))

	toggles := broker.publishedTo(DestTableReady)
	require.Len(t, toggles, 1)
	assert.Equal(t, readyPublishPayload{TableID: "t-1", UserID: "u-ana", Ready: true}, toggles[0])

	// Toggling again flips back.
	require.NoError(t, s.ToggleReady())
	assert.False(t, s.IsReady("u-ana"))

	toggles = broker.publishedTo(DestTableReady)
	require.Len(t, toggles, 2)
	assert.Equal(t, readyPublishPayload{TableID: "t-1", UserID: "u-ana", Ready: false}, toggles[1])
}

func TestToggleReadyWithoutTableIsNoop(t *testing.T) {
	s, _, broker, _ := newTestStore(t)
	signIn(t, s)

	// Not being at a table means there is nothing to toggle: no publish, no
	// state change, no error.
	require.NoError(t, s.ToggleReady())
	assert.Empty(t, broker.publishedTo(DestTableReady))
	assert.False(t, s.IsReady("u-ana"))
}

func TestAbandonMatchWithoutTableIsNoop(t *testing.T) {
	s, _, broker, _ := newTestStore(t)
	signIn(t, s)

	require.NoError(t, s.AbandonMatch())
	assert.Empty(t, broker.publishedTo(DestMatchAbandon))
}

func TestSendTableChatMessage(t *testing.T) {
	s, _, broker, _ := newTestStore(t)
	signIn(t, s)

	// Without a table there is no one to talk to; nothing is sent.
	require.NoError(t, s.SendTableChatMessage("oi mesa"))
	assert.Empty(t, broker.publishedTo(DestTableChat))

	require.NoError(t, s.CreateTable(context.Background(), "Mesa", nil))
	require.NoError(t, s.SendTableChatMessage("oi mesa"))

	sent := broker.publishedTo(DestTableChat)
	require.Len(t, sent, 1)

	payload, ok := sent[0].(tableChatPublishPayload)
	require.True(t, ok)
	assert.Equal(t, "t-1", payload.TableID)
	assert.Equal(t, "oi mesa", payload.Message.Message)
}

func TestLeaveTable(t *testing.T) {
	s, _, broker, _ := newTestStore(t)
	signIn(t, s)
	require.NoError(t, s.CreateTable(context.Background(), "Mesa", nil))

	require.NoError(t, s.LeaveTable())

	assert.Nil(t, s.CurrentTable())
	assert.Empty(t, s.TableSlots())
	assert.Empty(t, s.TableChatMessages())

	leaves := broker.publishedTo(DestTableLeave)
	require.Len(t, leaves, 1)
	assert.Equal(t, tableActionPayload{TableID: "t-1", UserID: "u-ana"}, leaves[0])

	// Stale broadcasts stop arriving.
	assert.False(t, broker.subscribedTo(TablePlayersTopic("t-1")))
	assert.False(t, broker.subscribedTo(TableChatTopic("t-1")))

	// Leaving again is a no-op.
	require.NoError(t, s.LeaveTable())
	assert.Len(t, broker.publishedTo(DestTableLeave), 1)
}

func TestAbandonMatch(t *testing.T) {
	s, _, broker, _ := newTestStore(t)
	signIn(t, s)
	require.NoError(t, s.CreateTable(context.Background(), "Mesa", nil))
	broker.push(t, TableStartTopic("t-1"), startPayload{TableID: "t-1"})

	require.NoError(t, s.AbandonMatch())

	assert.Nil(t, s.CurrentTable())
	abandons := broker.publishedTo(DestMatchAbandon)
	require.Len(t, abandons, 1)
	assert.Equal(t, tableActionPayload{TableID: "t-1", UserID: "u-ana"}, abandons[0])
}

func TestConnectToTableIsIdempotent(t *testing.T) {
	s, _, broker, _ := newTestStore(t)
	signIn(t, s)
	require.NoError(t, s.CreateTable(context.Background(), "Mesa", nil))

	// A duplicate subscription would double-apply broadcasts; the second
	// call must not touch the broker again.
	s.ConnectToTable("t-1")
	assert.Equal(t, 1, broker.subscribeCount(TableChatTopic("t-1")))

	broker.push(t, TableChatTopic("t-1"), map[string]string{"id": "m-1", "message": "oi"})
	assert.Len(t, s.TableChatMessages(), 1)
}
