/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct used to
standardize error construction across the client.
*/
package errs

import "net/http"

// errorMap stores the CustomError template corresponding to every client error code.
var errorMap = map[int]CustomError{
	// 1xxx: Transport and Message Handling Errors
	ErrNotConnected:       {Code: ErrNotConnected, Message: "Not connected to the game server."},
	ErrMessageParseFailed: {Code: ErrMessageParseFailed, Message: "Received a malformed message from the server."},
	ErrSendQueueFull:      {Code: ErrSendQueueFull, Message: "Too many outgoing messages. Message dropped."},
	ErrRateLimitExceeded:  {Code: ErrRateLimitExceeded, Message: "You are sending messages too fast."},

	// 2xxx: Table, Invite, and Chat Errors
	ErrNoActiveTable:         {Code: ErrNoActiveTable, Message: "You are not at a table."},
	ErrNoPendingInvite:       {Code: ErrNoPendingInvite, Message: "There is no invite to respond to."},
	ErrTooManyInvites:        {Code: ErrTooManyInvites, Message: "A table holds at most %d players."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},

	// 3xxx: Authentication Errors
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Incorrect email or password.", Status: http.StatusUnauthorized},
	ErrUnauthorized:       {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrTokenExpired:       {Code: ErrTokenExpired, Message: "Your session has expired. Please sign in again."},
	ErrUserAlreadyExists:  {Code: ErrUserAlreadyExists, Message: "This email is already registered.", Status: http.StatusConflict},
	ErrInvalidParams:      {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},

	// 5xxx: Internal Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again."},
}
