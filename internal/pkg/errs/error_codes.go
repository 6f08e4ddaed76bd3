/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific transport, session, and API failures both in
logs and in the lastError value surfaced to the UI.
*/
package errs

// 1xxx: Transport and Message Handling Errors
const (
	// ErrNotConnected indicates an operation that requires an active realtime connection.
	ErrNotConnected = 1001

	// ErrMessageParseFailed indicates that an inbound message body was not valid JSON.
	ErrMessageParseFailed = 1002

	// ErrSendQueueFull indicates that an outbound frame was dropped because the send queue was full.
	ErrSendQueueFull = 1003

	// ErrRateLimitExceeded indicates that an outbound publish was dropped by the client-side rate limiter.
	ErrRateLimitExceeded = 1004
)

// 2xxx: Table, Invite, and Chat Errors
const (
	// ErrNoActiveTable indicates a table-scoped action without a current table.
	ErrNoActiveTable = 2001

	// ErrNoPendingInvite indicates an invite response without a pending invite.
	ErrNoPendingInvite = 2002

	// ErrTooManyInvites indicates a table creation inviting more players than a table holds.
	ErrTooManyInvites = 2003

	// ErrMessageContentTooLong indicates a chat message exceeding the maximum length.
	ErrMessageContentTooLong = 2004
)

// 3xxx: Authentication Errors
const (
	// ErrInvalidCredentials indicates a login with a wrong email or password.
	ErrInvalidCredentials = 3001

	// ErrUnauthorized indicates a request the server rejected for a missing or invalid token.
	ErrUnauthorized = 3002

	// ErrTokenExpired indicates a persisted token whose expiry has already passed.
	ErrTokenExpired = 3003

	// ErrUserAlreadyExists indicates a registration with an email already in use.
	ErrUserAlreadyExists = 3004

	// ErrInvalidParams indicates that the server rejected request parameters.
	ErrInvalidParams = 3005
)

// 5xxx: Internal Errors
const (
	// ErrUnknown represents an unclassified error.
	ErrUnknown = 5000
)
