package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/wallet-relay-go/internal/config"
	apperrors "github.com/openclaw/wallet-relay-go/internal/errors"
)

// Role identifies which side of a pairing a connection plays.
type Role string

const (
	RoleDapp   Role = "dapp"
	RoleMobile Role = "mobile"
)

// ParseRole validates a role string from the wire.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleDapp, RoleMobile:
		return Role(s), true
	}
	return "", false
}

// Status is the session pairing state.
type Status string

const (
	StatusPending      Status = "pending"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// WebSocket close codes emitted by the store and its callers.
const (
	CloseNormal      = 1000
	CloseGoingAway   = 1001
	ClosePolicyError = 1008
)

// Conn is the store's view of an attached WebSocket. The store borrows
// handles for routing; the WS surface owns their lifecycle. Implementations
// must serialize writes internally, and both methods must be safe to call
// without holding the store lock.
type Conn interface {
	Send(frame []byte) error
	Close(code int, reason string)
}

// Metadata is advisory DApp identity shown by the wallet. The relay never
// verifies it.
type Metadata struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Icon string `json:"icon,omitempty"`
}

type record struct {
	id           string
	secret       string
	createdAt    time.Time
	expiresAt    time.Time
	status       Status
	dapp         Conn
	mobile       Conn
	mobileLocked bool
	metadata     *Metadata
	terminated   bool
}

func (r *record) conn(role Role) Conn {
	if role == RoleDapp {
		return r.dapp
	}
	return r.mobile
}

func (r *record) setConn(role Role, c Conn) {
	if role == RoleDapp {
		r.dapp = c
	} else {
		r.mobile = c
	}
}

// Created is returned by Create. The secret appears here and nowhere else.
type Created struct {
	ID        string
	Secret    string
	ExpiresAt time.Time
}

// Info is a read-only snapshot for the query endpoints; no secret.
type Info struct {
	ID         string
	Status     Status
	Metadata   *Metadata
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Terminated bool
}

// Attach is returned by Register. Peer is the opposite-role connection that
// was already attached at register time, if any.
type Attach struct {
	Peer Conn
}

// Stats is the shape served by /metrics.
type Stats struct {
	TotalSessions     int   `json:"totalSessions"`
	PendingSessions   int   `json:"pendingSessions"`
	ConnectedSessions int   `json:"connectedSessions"`
	MaxSessions       int   `json:"maxSessions"`
	Uptime            int64 `json:"uptime"`
}

// Store is the process-wide session registry. One mutex guards the whole
// map; no socket I/O happens under the lock. Handles are captured while
// locked and written to or closed after release.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*record
	maxSessions int
	startedAt   time.Time
}

func NewStore(maxSessions int) *Store {
	return &Store{
		sessions:    make(map[string]*record),
		maxSessions: maxSessions,
		startedAt:   time.Now(),
	}
}

// Create registers a new pending session with a unique id. Ids are drawn by
// rejection sampling against the live map; secrets are not checked for
// collision (they are not a uniqueness concern).
func (s *Store) Create(metadata *Metadata) (*Created, error) {
	secret, err := NewSecret()
	if err != nil {
		return nil, apperrors.Internal("failed to generate secret").WithCause(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.maxSessions {
		return nil, apperrors.AtCapacity()
	}

	var id string
	for {
		id, err = NewID()
		if err != nil {
			return nil, apperrors.Internal("failed to generate session id").WithCause(err)
		}
		if _, taken := s.sessions[id]; !taken {
			break
		}
	}

	now := time.Now()
	rec := &record{
		id:        id,
		secret:    secret,
		createdAt: now,
		expiresAt: now.Add(config.PendingSessionTTL),
		status:    StatusPending,
		metadata:  metadata,
	}
	s.sessions[id] = rec

	log.Info().
		Str("sessionId", id).
		Time("expiresAt", rec.expiresAt).
		Msg("session created")

	return &Created{ID: id, Secret: secret, ExpiresAt: rec.expiresAt}, nil
}

// Get returns a snapshot of the session, or false if unknown.
func (s *Store) Get(id string) (*Info, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return &Info{
		ID:         rec.id,
		Status:     rec.status,
		Metadata:   rec.metadata,
		CreatedAt:  rec.createdAt,
		ExpiresAt:  rec.expiresAt,
		Terminated: rec.terminated,
	}, true
}

// Delete removes a session without closing its connections.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// VerifySecret compares in constant time. Unknown ids report false.
func (s *Store) VerifySecret(id, secret string) bool {
	s.mu.Lock()
	rec, ok := s.sessions[id]
	var stored string
	if ok {
		stored = rec.secret
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	return secretEqual(stored, secret)
}

// IsMobileLocked reports whether a mobile peer currently holds the session.
func (s *Store) IsMobileLocked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	return ok && rec.mobileLocked
}

// Register attaches conn to the session slot for role. It fails (nil,
// false) if the session is unknown or terminated, or if a mobile is already
// attached under the lock. A dapp may replace its own slot (reconnect);
// the caller is expected to notify an attached mobile via Attach.Peer.
// When both sides are attached the session becomes connected and its
// lifetime is extended.
func (s *Store) Register(id string, role Role, conn Conn) (*Attach, bool) {
	s.mu.Lock()

	rec, ok := s.sessions[id]
	if !ok || rec.terminated {
		s.mu.Unlock()
		return nil, false
	}
	if role == RoleMobile && rec.mobileLocked && rec.mobile != nil {
		s.mu.Unlock()
		return nil, false
	}

	var peer Conn
	if role == RoleDapp {
		peer = rec.mobile
	} else {
		peer = rec.dapp
	}

	rec.setConn(role, conn)
	if role == RoleMobile {
		rec.mobileLocked = true
	}
	if rec.dapp != nil && rec.mobile != nil {
		rec.status = StatusConnected
		rec.expiresAt = time.Now().Add(config.ConnectedSessionTTL)
	}
	status := rec.status
	s.mu.Unlock()

	log.Info().
		Str("sessionId", id).
		Str("role", string(role)).
		Str("status", string(status)).
		Msg("peer attached")

	return &Attach{Peer: peer}, true
}

// Unregister clears the role's slot if it still holds conn (a reconnect may
// have replaced it) and reports whether it did. A mobile detach releases
// the lock. Unknown sessions and stale conns return false; callers must
// not announce a disconnect the session did not actually suffer.
func (s *Store) Unregister(id string, role Role, conn Conn) bool {
	s.mu.Lock()

	rec, ok := s.sessions[id]
	if !ok || (conn != nil && rec.conn(role) != conn) {
		s.mu.Unlock()
		return false
	}

	rec.setConn(role, nil)
	if role == RoleMobile {
		rec.mobileLocked = false
	}
	rec.status = StatusDisconnected
	s.mu.Unlock()

	log.Info().
		Str("sessionId", id).
		Str("role", string(role)).
		Msg("peer detached")
	return true
}

// Terminate marks the session dead and closes both attachments. No further
// registrations succeed.
func (s *Store) Terminate(id string) {
	s.mu.Lock()
	rec, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	rec.terminated = true
	rec.status = StatusDisconnected
	dapp, mobile := rec.dapp, rec.mobile
	rec.dapp = nil
	rec.mobile = nil
	rec.mobileLocked = false
	s.mu.Unlock()

	if dapp != nil {
		dapp.Close(CloseNormal, "Session terminated")
	}
	if mobile != nil {
		mobile.Close(CloseNormal, "Session terminated")
	}

	log.Info().Str("sessionId", id).Msg("session terminated")
}

// Peer returns the opposite-role attachment, or nil.
func (s *Store) Peer(id string, myRole Role) Conn {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok {
		return nil
	}
	if myRole == RoleDapp {
		return rec.mobile
	}
	return rec.dapp
}

// CleanupExpired removes every session past its deadline, closing still-
// attached peers with a normal-closure code. Returns the number removed.
func (s *Store) CleanupExpired() int {
	now := time.Now()

	s.mu.Lock()
	var closing []Conn
	removed := 0
	for id, rec := range s.sessions {
		if now.Before(rec.expiresAt) {
			continue
		}
		if rec.dapp != nil {
			closing = append(closing, rec.dapp)
		}
		if rec.mobile != nil {
			closing = append(closing, rec.mobile)
		}
		delete(s.sessions, id)
		removed++
	}
	s.mu.Unlock()

	for _, c := range closing {
		c.Close(CloseNormal, "Session expired")
	}
	return removed
}

// CloseAll closes every attached connection; used at shutdown.
func (s *Store) CloseAll(code int, reason string) {
	s.mu.Lock()
	var closing []Conn
	for _, rec := range s.sessions {
		if rec.dapp != nil {
			closing = append(closing, rec.dapp)
		}
		if rec.mobile != nil {
			closing = append(closing, rec.mobile)
		}
	}
	s.mu.Unlock()

	for _, c := range closing {
		c.Close(code, reason)
	}
}

// AtCapacity reports whether Create would be refused. Admission control
// checks this before rate limiting so capacity pressure is visible even to
// throttled clients.
func (s *Store) AtCapacity() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions) >= s.maxSessions
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		TotalSessions: len(s.sessions),
		MaxSessions:   s.maxSessions,
		Uptime:        int64(time.Since(s.startedAt).Seconds()),
	}
	for _, rec := range s.sessions {
		switch rec.status {
		case StatusPending:
			st.PendingSessions++
		case StatusConnected:
			st.ConnectedSessions++
		}
	}
	return st
}

// ExpireNow forces a session's deadline into the past so the next sweep
// collects it. Test hook.
func (s *Store) ExpireNow(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.sessions[id]; ok {
		rec.expiresAt = time.Now().Add(-time.Millisecond)
	}
}
