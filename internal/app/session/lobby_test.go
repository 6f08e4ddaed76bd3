package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mimico/internal/app/chat"
	"mimico/internal/app/user"
	"mimico/internal/pkg/errs"
)

func TestConnectRealtimeRequiresAuth(t *testing.T) {
	s, _, broker, _ := newTestStore(t)

	err := s.ConnectRealtime()
	require.Error(t, err)

	var customErr *errs.CustomError
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, errs.ErrUnauthorized, customErr.Code)
	assert.False(t, broker.IsConnected())
}

func TestConnectRealtimeRegistersSubscriptionsAndAnnounces(t *testing.T) {
	s, _, broker, _ := newTestStore(t)
	signIn(t, s)

	assert.True(t, broker.subscribedTo(TopicLobbyUsers))
	assert.True(t, broker.subscribedTo(TopicLobbyChat))
	assert.True(t, broker.subscribedTo(TopicUserInvite))
	assert.True(t, broker.subscribedTo(TopicUserErrors))

	joins := broker.publishedTo(DestLobbyJoin)
	require.Len(t, joins, 1)
	assert.Equal(t, joinPayload{UserID: "u-ana", Nickname: "Ana"}, joins[0])
}

func TestOnlineUsersSnapshotReplaces(t *testing.T) {
	s, _, broker, _ := newTestStore(t)
	signIn(t, s)

	broker.push(t, TopicLobbyUsers, []user.User{
		{ID: "u-ana", Nickname: "Ana", IsOnline: true},
		{ID: "u-bia", Nickname: "Bia", IsOnline: true},
	})
	require.Len(t, s.OnlineUsers(), 2)

	// The next snapshot replaces, never merges.
	broker.push(t, TopicLobbyUsers, []user.User{
		{ID: "u-ana", Nickname: "Ana", IsOnline: true},
	})

	users := s.OnlineUsers()
	require.Len(t, users, 1)
	assert.Equal(t, "u-ana", users[0].ID)
}

func TestLobbyChatArrivalOrder(t *testing.T) {
	s, _, broker, _ := newTestStore(t)
	signIn(t, s)

	broker.push(t, TopicLobbyChat, chat.Message{ID: "m-1", UserID: "u-bia", Message: "oi"})
	broker.push(t, TopicLobbyChat, chat.Message{ID: "m-2", UserID: "u-ana", Message: "olá"})

	messages := s.ChatMessages()
	require.Len(t, messages, 2)
	assert.Equal(t, "m-1", messages[0].ID)
	assert.Equal(t, "m-2", messages[1].ID)
}

func TestSendChatMessagePublishesWithoutLocalAppend(t *testing.T) {
	s, _, broker, _ := newTestStore(t)
	signIn(t, s)

	require.NoError(t, s.SendChatMessage("bora jogar?"))

	sent := broker.publishedTo(DestLobbyChat)
	require.Len(t, sent, 1)

	message, ok := sent[0].(chat.Message)
	require.True(t, ok)
	assert.Equal(t, "u-ana", message.UserID)
	assert.Equal(t, "bora jogar?", message.Message)
	assert.NotEmpty(t, message.ID)

	// The local history only grows when the server echoes it back.
	assert.Empty(t, s.ChatMessages())
}

func TestSendChatMessageWhileSignedOutIsNoop(t *testing.T) {
	s, _, broker, _ := newTestStore(t)

	// Signed out there is no author to attribute; nothing is sent and no
	// error is raised.
	require.NoError(t, s.SendChatMessage("oi"))
	assert.Empty(t, broker.publishedTo(DestLobbyChat))
}

func TestSendChatMessageContentGuards(t *testing.T) {
	s, _, _, _ := newTestStore(t)
	signIn(t, s)

	err := s.SendChatMessage("")
	var customErr *errs.CustomError
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, errs.ErrInvalidParams, customErr.Code)

	long := make([]byte, 0, chat.MaxContentRunes+1)
	for i := 0; i <= chat.MaxContentRunes; i++ {
		long = append(long, 'a')
	}
	err = s.SendChatMessage(string(long))
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, errs.ErrMessageContentTooLong, customErr.Code)
}

func TestSendChatMessageRateLimited(t *testing.T) {
	apiClient := &fakeAPI{}
	broker := newFakeBroker()
	s := NewStore(apiClient, broker, &fakeTokens{}, 1, 2)
	signIn(t, s)

	require.NoError(t, s.SendChatMessage("um"))
	require.NoError(t, s.SendChatMessage("dois"))

	err := s.SendChatMessage("três")
	var customErr *errs.CustomError
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, errs.ErrRateLimitExceeded, customErr.Code)

	assert.Len(t, broker.publishedTo(DestLobbyChat), 2)
}

func TestClearChatLeavesTableChatAlone(t *testing.T) {
	s, _, broker, _ := newTestStore(t)
	signIn(t, s)
	require.NoError(t, s.CreateTable(context.Background(), "Mesa", nil))

	broker.push(t, TopicLobbyChat, chat.Message{ID: "m-1", Message: "lobby"})
	broker.push(t, TableChatTopic("t-1"), chat.Message{ID: "m-2", Message: "mesa"})

	s.ClearChat()

	assert.Empty(t, s.ChatMessages())
	require.Len(t, s.TableChatMessages(), 1)

	s.ClearTableChat()
	assert.Empty(t, s.TableChatMessages())
}

func TestConnectionErrorSurfaces(t *testing.T) {
	s, _, _, _ := newTestStore(t)
	signIn(t, s)

	s.handleConnectionError(assert.AnError)

	lastErr := s.LastError()
	require.NotNil(t, lastErr)
	assert.Equal(t, errs.ErrNotConnected, lastErr.Code)

	s.ClearLastError()
	assert.Nil(t, s.LastError())
}
