package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession() *Session {
	return NewSession(uuid.NewString(), 1, 1, nil, nil)
}

// drain reads everything currently buffered for the session.
func drain(s *Session) []string {
	var out []string
	for {
		select {
		case msg, ok := <-s.send:
			if !ok {
				return out
			}
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestJoinDeliversSnapshot(t *testing.T) {
	reg := NewRegistry()
	s := newTestSession()
	reg.Join(s, 1, []byte(`{"type":"snapshot"}`))

	msgs := drain(s)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "snapshot")
	assert.Equal(t, 1, reg.Count(1))
}

func TestBroadcastIsScopedToRound(t *testing.T) {
	reg := NewRegistry()
	a := newTestSession()
	b := newTestSession()
	other := newTestSession()
	reg.Join(a, 1, nil)
	reg.Join(b, 1, nil)
	reg.Join(other, 2, nil)
	drain(a)
	drain(b)
	drain(other)

	reg.Broadcast(1, []byte(`{"type":"number_drawn","number":"07"}`))

	assert.Len(t, drain(a), 1)
	assert.Len(t, drain(b), 1)
	assert.Empty(t, drain(other), "sessions on other rounds never receive it")
}

func TestBroadcastPreservesOrder(t *testing.T) {
	reg := NewRegistry()
	s := newTestSession()
	reg.Join(s, 1, nil)
	drain(s)

	reg.Broadcast(1, []byte("first"))
	reg.Broadcast(1, []byte("second"))
	reg.Broadcast(1, []byte("third"))

	assert.Equal(t, []string{"first", "second", "third"}, drain(s))
}

func TestLeaveIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	s := newTestSession()
	reg.Join(s, 1, nil)
	require.Equal(t, 1, reg.Count(1))

	reg.Leave(s.ID, 1)
	assert.Equal(t, 0, reg.Count(1))
	reg.Leave(s.ID, 1) // second leave is a no-op
	assert.Equal(t, 0, reg.Count(1))
}

func TestBroadcastAfterLeaveDoesNotPanic(t *testing.T) {
	reg := NewRegistry()
	s := newTestSession()
	reg.Join(s, 1, nil)
	reg.Leave(s.ID, 1)

	// The closed session must not take the round down with it.
	reg.Broadcast(1, []byte("late"))
	assert.Equal(t, 0, reg.Count(1))
}

func TestRejoinReplacesOldSession(t *testing.T) {
	reg := NewRegistry()
	first := NewSession("fixed-id", 1, 1, nil, nil)
	second := NewSession("fixed-id", 1, 1, nil, nil)

	reg.Join(first, 1, nil)
	reg.Join(second, 1, nil)
	assert.Equal(t, 1, reg.Count(1))

	reg.Broadcast(1, []byte("hello"))
	assert.Len(t, drain(second), 1)
}

func TestDeliverDropsWhenBufferFull(t *testing.T) {
	s := newTestSession()
	for i := 0; i < cap(s.send); i++ {
		require.True(t, s.Deliver([]byte("x")))
	}
	assert.False(t, s.Deliver([]byte("overflow")))
}
