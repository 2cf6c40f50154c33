// Package session maps browser sessions to users. The cookie holds an HS256
// JWT whose jti names a server-side session record; the record is what
// makes logout take effect immediately.
package session

import (
	"context"
	"strconv"
	"time"

	"restaurant-menu/apperr"
	"restaurant-menu/models"
	"restaurant-menu/statemachine"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const msgNoSession = "authentication required"

type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	log    *zap.Logger
	now    func() time.Time
}

// NewManager returns a manager issuing sessions that last ttl.
func NewManager(store Store, secret []byte, ttl time.Duration, log *zap.Logger) *Manager {
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store:  store,
		secret: secret,
		ttl:    ttl,
		log:    log,
		now:    time.Now,
	}
}

// TTL is the lifetime of new sessions.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Start authenticates userID on event (login or signup). An existing
// session behind prevToken is ended once the event is accepted. It returns the new session and
// the token to store in the cookie.
func (m *Manager) Start(ctx context.Context, prevToken string, userID uint, event statemachine.Event) (*models.Session, string, error) {
	const op = "session.Start"

	prev, err := m.Resolve(ctx, prevToken)
	from := statemachine.StateOf(err == nil)
	to, err := statemachine.Next(from, event)
	if err != nil {
		return nil, "", apperr.Internal(op, err)
	}
	if to != statemachine.Authenticated {
		return nil, "", apperr.Internal(op, errors.Errorf("event %q does not authenticate a session", event))
	}
	if prev != nil {
		if err := m.store.DeleteSession(ctx, prev.ID); err != nil {
			return nil, "", err
		}
	}

	now := m.now()
	sess := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return nil, "", err
	}

	token, err := m.sign(sess)
	if err != nil {
		return nil, "", apperr.Internal(op, err)
	}

	m.log.Info("Session started",
		zap.Uint("user_id", userID),
		zap.String("event", string(event)),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return sess, token, nil
}

// Resolve returns the live session behind token. Anything else (bad
// signature, unknown or expired record, mismatched user) is EUnauthorized.
func (m *Manager) Resolve(ctx context.Context, token string) (*models.Session, error) {
	const op = "session.Resolve"
	if token == "" {
		return nil, apperr.Unauthorized(op, msgNoSession)
	}

	claims, err := m.parse(token)
	if err != nil {
		return nil, &apperr.Error{Code: apperr.EUnauthorized, Op: op, Msg: msgNoSession, Err: err}
	}

	sess, err := m.store.FindSession(ctx, claims.ID)
	if err != nil {
		if apperr.Is(err, apperr.ENotFound) {
			return nil, apperr.Unauthorized(op, msgNoSession)
		}
		return nil, err
	}
	if sess.Expired(m.now()) {
		if err := m.store.DeleteSession(ctx, sess.ID); err != nil {
			m.log.Warn("Failed to delete expired session", zap.String("session_id", sess.ID), zap.Error(err))
		}
		return nil, apperr.Unauthorized(op, msgNoSession)
	}
	if strconv.FormatUint(uint64(sess.UserID), 10) != claims.Subject {
		return nil, apperr.Unauthorized(op, msgNoSession)
	}
	return sess, nil
}

// End logs out whatever session token refers to. Unknown or malformed
// tokens are not an error: logout is unconditional.
func (m *Manager) End(ctx context.Context, token string) error {
	sess, err := m.Resolve(ctx, token)
	from := statemachine.StateOf(err == nil)
	var userID uint
	if sess != nil {
		userID = sess.UserID
		if err := m.store.DeleteSession(ctx, sess.ID); err != nil {
			return err
		}
	}
	to, err := statemachine.Next(from, statemachine.EventLogout)
	if err != nil {
		return apperr.Internal("session.End", err)
	}
	m.log.Info("Session ended",
		zap.Uint("user_id", userID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return nil
}

func (m *Manager) sign(sess *models.Session) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   strconv.FormatUint(uint64(sess.UserID), 10),
		IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *Manager) parse(tokenStr string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.ID == "" {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying sess.
func NewContext(ctx context.Context, sess *models.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session carried by ctx, if any.
func FromContext(ctx context.Context) (*models.Session, bool) {
	sess, ok := ctx.Value(contextKey{}).(*models.Session)
	return sess, ok && sess != nil
}

// UserIDFromContext returns the authenticated user id carried by ctx.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	sess, ok := FromContext(ctx)
	if !ok {
		return 0, false
	}
	return sess.UserID, true
}
