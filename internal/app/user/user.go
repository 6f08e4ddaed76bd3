/*
Package user contains the core data structure for player identity.

It defines the basic representation of a player within the game (the User
struct), used both for the authenticated session owner and for the lobby
presence list.
*/
package user

// User represents the identity of a player. Identity is server-assigned; the
// client only builds User values from login responses, profile fetches, and
// lobby presence broadcasts.
type User struct {

	// ID is the unique identifier for the user, assigned by the server.
	ID string `json:"id"`

	// Nickname is the display name of the user in the lobby and at tables.
	Nickname string `json:"nickname"`

	// Email is the user's email address; only populated for the session owner.
	Email string `json:"email,omitempty"`

	// Avatar is the URL for the user's avatar, when one is set.
	Avatar string `json:"avatar,omitempty"`

	// IsOnline reports whether the user is currently present in the lobby.
	IsOnline bool `json:"isOnline"`
}
