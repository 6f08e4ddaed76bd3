/*
Package session owns the client's in-memory state and the actions that mutate it.

This file covers the authentication lifecycle: sign in, account creation,
restoring a persisted session on startup, and the full state reset on logout.
*/
package session

import (
	"context"
	"errors"
	"net/http"

	"mimico/internal/app/user"
	"mimico/internal/pkg/errs"
	"mimico/internal/pkg/jwtx"
)

// Login exchanges credentials for a session. On success the token is
// persisted and attached to both the HTTP client and the realtime broker.
func (s *Store) Login(ctx context.Context, email, password string) error {
	res, err := s.apiClient.Login(ctx, email, password)
	if err != nil {
		return err
	}

	s.adoptSession(res.Token, user.User{ID: res.UserID, Nickname: res.Nickname, IsOnline: true})

	s.logger.Info().Str("user_id", res.UserID).Msg("User signed in.")
	return nil
}

// Register creates an account and signs it in with the same credentials.
func (s *Store) Register(ctx context.Context, nickname, email, password string) error {
	if err := s.apiClient.Register(ctx, nickname, email, password); err != nil {
		return err
	}

	return s.Login(ctx, email, password)
}

// RestoreAuth attempts to resume the session persisted by a previous run.
// It reports whether a session was restored. An absent, expired, or rejected
// token yields a clean logged-out state and a nil error; only transport
// failures are returned, so the caller can distinguish "sign in again" from
// "the server is unreachable".
func (s *Store) RestoreAuth(ctx context.Context) (bool, error) {
	token, err := s.tokens.Load()
	if err != nil {
		return false, err
	}
	if token == "" {
		return false, nil
	}

	// An expired token is doomed; skip the round trip.
	if jwtx.Expired(token, nowFunc()) {
		s.logger.Info().Msg("Persisted token has expired, discarding.")
		s.discardToken()
		return false, nil
	}

	s.apiClient.SetToken(token)

	profile, err := s.apiClient.Me(ctx)
	if err != nil {
		var customErr *errs.CustomError
		if errors.As(err, &customErr) && customErr.Status == http.StatusUnauthorized {
			s.logger.Info().Msg("Persisted token rejected by server, discarding.")
			s.discardToken()
			s.apiClient.SetToken("")
			return false, nil
		}
		return false, err
	}

	s.adoptSession(token, profile.User())

	s.logger.Info().Str("user_id", profile.UserID).Msg("Session restored.")
	return true, nil
}

// Logout tears the session down: the realtime connection is closed, the
// persisted token removed, and all state reset atomically.
func (s *Store) Logout() {
	s.broker.Disconnect()

	if err := s.tokens.Clear(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to clear persisted token.")
	}

	s.apiClient.SetToken("")
	s.broker.SetToken("")

	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()

	s.logger.Info().Msg("User signed out.")
}

// adoptSession installs an authenticated identity and propagates the token to
// the HTTP client, the realtime broker, and the persistent store.
func (s *Store) adoptSession(token string, identity user.User) {
	if err := s.tokens.Save(token); err != nil {
		// Losing persistence degrades restart behavior, not this session.
		s.logger.Warn().Err(err).Msg("Failed to persist token.")
	}

	s.apiClient.SetToken(token)
	s.broker.SetToken(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.user = identity
	s.authenticated = true
}

// discardToken removes the persisted token, logging rather than failing.
func (s *Store) discardToken() {
	if err := s.tokens.Clear(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to clear persisted token.")
	}
}
