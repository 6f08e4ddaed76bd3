/*
Package chat contains the data structures for lobby and table chat messages.

Messages are immutable once created and appended to ordered, scope-local lists
(lobby chat and table chat) in arrival order.
*/
package chat

import (
	"time"
	"unicode/utf8"

	"mimico/internal/pkg/errs"
	"mimico/internal/pkg/randx"
)

// MaxContentRunes is the maximum allowed length of a chat message, in runes.
const MaxContentRunes = 500

// Message represents a single chat message in the lobby or at a table.
type Message struct {
	// ID is the message identifier. Outbound messages carry a
	// client-generated UUID; the server may replace it on broadcast.
	ID string `json:"id"`

	// UserID is the id of the author.
	UserID string `json:"userId"`

	// UserName is the author's nickname at send time.
	UserName string `json:"userName"`

	// Message is the text content.
	Message string `json:"message"`

	// Timestamp records when the message was created.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage builds an outbound chat message authored by the given user.
func NewMessage(userID, userName, text string) Message {
	return Message{
		ID:        randx.MessageID(),
		UserID:    userID,
		UserName:  userName,
		Message:   text,
		Timestamp: time.Now().UTC(),
	}
}

// ValidateContent checks that a message text is non-empty and within the
// maximum length.
func ValidateContent(text string) *errs.CustomError {
	if text == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if utf8.RuneCountInString(text) > MaxContentRunes {
		return errs.NewError(errs.ErrMessageContentTooLong)
	}

	return nil
}
