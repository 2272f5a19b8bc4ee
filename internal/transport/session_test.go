package transport

import (
	"testing"
)

func TestSessionCheckTokenAcceptsMatch(t *testing.T) {
	s := &Session{BearerToken: "secret"}
	if err := s.CheckToken("secret"); err != nil {
		t.Fatalf("expected matching token to be accepted, got %v", err)
	}
}

func TestSessionCheckTokenRejectsMismatch(t *testing.T) {
	s := &Session{BearerToken: "secret"}
	if err := s.CheckToken("wrong"); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSessionRegistryAdmitsUpToCap(t *testing.T) {
	r := NewSessionRegistry(1)
	first := &Session{Key: SessionKey{EndpointId: "e", SessionId: "1"}}
	second := &Session{Key: SessionKey{EndpointId: "e", SessionId: "2"}}
	if err := r.Admit(first); err != nil {
		t.Fatalf("expected first session admitted: %v", err)
	}
	if err := r.Admit(second); err == nil {
		t.Fatalf("expected second session to be rejected at cap 1")
	}
}

func TestSessionRegistryRemoveFreesSlot(t *testing.T) {
	r := NewSessionRegistry(1)
	first := &Session{Key: SessionKey{EndpointId: "e", SessionId: "1"}}
	r.Admit(first)
	r.Remove(first.Key)

	second := &Session{Key: SessionKey{EndpointId: "e", SessionId: "2"}}
	if err := r.Admit(second); err != nil {
		t.Fatalf("expected a slot to be free after removal: %v", err)
	}
	if _, ok := r.Get(first.Key); ok {
		t.Fatalf("expected the removed session to no longer be retrievable")
	}
}
