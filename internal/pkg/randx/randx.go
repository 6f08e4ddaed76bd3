/*
Package randx provides functions for generating random identifiers on the client.

The client never invents identifiers the server owns; the only client-generated
ids are the UUID message ids attached to outbound chat messages.
*/
package randx

import "github.com/google/uuid"

// MessageID generates a UUID string used as the id of an outbound chat message.
func MessageID() string {
	return uuid.NewString()
}
