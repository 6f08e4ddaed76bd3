/*
Package table contains the data structures for game tables, player slots, and invites.

A table is a game room hosting up to MaxPlayers players. Slot statuses are
driven by server broadcasts; the client only guesses optimistically for its
own ready flag and for the table it just created or joined.
*/
package table

import (
	"time"

	"mimico/internal/app/user"
)

// MaxPlayers is the number of player slots at a table (two teams of two).
const MaxPlayers = 4

// Status is the lifecycle state of a table.
type Status string

const (
	// StatusWaiting marks a table gathering players in the waiting room.
	StatusWaiting Status = "waiting"

	// StatusStarting marks a table whose match is about to begin.
	StatusStarting Status = "starting"

	// StatusInProgress marks a table whose match is running.
	StatusInProgress Status = "in_progress"

	// StatusFinished marks a table whose match has ended.
	StatusFinished Status = "finished"
)

// SlotStatus is the invitation/ready lifecycle state of a player slot.
type SlotStatus string

const (
	// SlotPending marks an invited player who has not responded yet.
	SlotPending SlotStatus = "pending"

	// SlotAccepted marks a player who joined but is not ready yet.
	SlotAccepted SlotStatus = "accepted"

	// SlotRejected marks a player who declined the invite.
	SlotRejected SlotStatus = "rejected"

	// SlotReady marks a player who toggled ready in the waiting room.
	SlotReady SlotStatus = "ready"
)

// GameTable represents a game room. Created optimistically on the client when
// a table is created or an invite accepted; authoritative once confirmed by
// server broadcasts.
type GameTable struct {
	// ID is the table identifier assigned by the server.
	ID string `json:"id"`

	// Name is the display name chosen by the host.
	Name string `json:"name"`

	// HostID is the id of the user who created the table.
	HostID string `json:"hostId"`

	// Players lists the users at the table, when provided by the server.
	Players []user.User `json:"players,omitempty"`

	// Status is the table lifecycle state.
	Status Status `json:"status"`

	// CreatedAt records when the table was created.
	CreatedAt time.Time `json:"createdAt"`
}

// PlayerSlot is a table's per-player record tracking the invitation/ready
// lifecycle, independent of the player's global online identity.
type PlayerSlot struct {
	// UserID is the id of the player occupying the slot.
	UserID string `json:"userId"`

	// Nickname is the player's display name.
	Nickname string `json:"nickname"`

	// Status is the slot's lifecycle state.
	Status SlotStatus `json:"status"`
}

// Invite is a time-boxed offer for a specific user to join a specific table.
type Invite struct {
	// ID is the invite identifier.
	ID string `json:"id"`

	// TableID identifies the table the invite is for.
	TableID string `json:"tableId"`

	// TableName is the table's display name, for rendering.
	TableName string `json:"tableName"`

	// HostID is the id of the inviting host.
	HostID string `json:"hostId"`

	// HostName is the host's nickname, for rendering.
	HostName string `json:"hostName"`

	// InvitedUserID is the id of the invited user.
	InvitedUserID string `json:"invitedUserId"`

	// ExpiresAt is the wall-clock moment the invite lapses, computed on
	// receipt from the server-provided TTL.
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the invite's expiry has passed at the given moment.
func (i Invite) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}
