// Package transport implements the transport sender/receiver boundary
// (§4.9/§4.10): RTP over UDP/TCP, an RTMP server, and a WHIP/WHEP server.
// It has no raw in-process PCM/texture channel transport.
//
// Session admission grounded on bridge/service.go's allowCall
// (CompareAndSwap admission-count loop) adapted from "cap concurrent SIP
// calls" to "cap concurrent WHIP/WHEP sessions"; bearer-token comparison
// follows §4.10's constant-time-plus-jitter requirement, which the teacher
// has no equivalent of (its auth is SIP digest via diago.DigestAuthServer,
// out of scope once SIP is dropped — see the design ledger).
package transport

import (
	"crypto/subtle"
	"errors"
	"math/rand/v2"
	"sync"
	"time"
)

// ErrUnauthorized is returned by Session.CheckToken on a bearer-token
// mismatch.
var ErrUnauthorized = errors.New("transport: unauthorized")

// SessionKey identifies one WHIP/WHEP session (§4.10: "identified by
// (endpoint_id, session_id)").
type SessionKey struct {
	EndpointId string
	SessionId  string
}

// Session is one negotiated WHIP/WHEP peer connection's bookkeeping.
type Session struct {
	Key         SessionKey
	BearerToken string
}

// CheckToken compares token against the session's bearer token in constant
// time and, on mismatch, sleeps a small random delay before returning
// ErrUnauthorized (§4.10: "token comparison is constant-time with a small
// random delay on mismatch"), so a timing side channel can't distinguish
// "wrong token" from "right token, failed later".
func (s *Session) CheckToken(token string) error {
	match := subtle.ConstantTimeCompare([]byte(s.BearerToken), []byte(token)) == 1
	if match {
		return nil
	}
	time.Sleep(time.Duration(rand.IntN(20)+5) * time.Millisecond)
	return ErrUnauthorized
}

// SessionRegistry holds active sessions keyed by (endpoint_id, session_id),
// with an admission cap mirroring the teacher's allowCall pattern.
type SessionRegistry struct {
	maxSessions int32

	mu       sync.Mutex
	sessions map[SessionKey]*Session
	count    int32
}

// NewSessionRegistry constructs a registry. maxSessions <= 0 means
// unbounded.
func NewSessionRegistry(maxSessions int32) *SessionRegistry {
	return &SessionRegistry{maxSessions: maxSessions, sessions: map[SessionKey]*Session{}}
}

// Admit registers a new session if under the concurrency cap.
func (r *SessionRegistry) Admit(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.maxSessions > 0 && r.count >= r.maxSessions {
		return errors.New("transport: session limit reached")
	}
	r.sessions[s.Key] = s
	r.count++
	return nil
}

// Get looks up a session by key.
func (r *SessionRegistry) Get(key SessionKey) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	return s, ok
}

// Remove drops a session, freeing its admission slot.
func (r *SessionRegistry) Remove(key SessionKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[key]; ok {
		delete(r.sessions, key)
		r.count--
	}
}
