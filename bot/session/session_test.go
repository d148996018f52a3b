package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/postbot/services/posts"
)

func TestSelectionToggle(t *testing.T) {
	sel := NewSelection(1)

	assert.True(t, sel.Toggle("-1001"))
	assert.True(t, sel.Has("-1001"))
	assert.False(t, sel.Toggle("-1001"))
	assert.False(t, sel.Has("-1001"))
	assert.Equal(t, 0, sel.Len())

	// odd number of toggles leaves the channel selected
	for i := 0; i < 5; i++ {
		sel.Toggle("-1002")
	}
	assert.True(t, sel.Has("-1002"))
}

func TestSelectionIDsSorted(t *testing.T) {
	sel := NewSelection(1)
	sel.Toggle("-1003")
	sel.Toggle("-1001")
	sel.Toggle("-1002")
	assert.Equal(t, []string{"-1001", "-1002", "-1003"}, sel.IDs())
}

func TestManagerUpdateLifecycle(t *testing.T) {
	m := NewManager()

	// fn leaving the session idle means no session is kept
	require.NoError(t, m.Update(1, func(s *Session) error {
		assert.Equal(t, StateIdle, s.State)
		return nil
	}))
	assert.False(t, m.InProgress(1))

	require.NoError(t, m.Update(1, func(s *Session) error {
		s.State = StateComposingPost
		s.Draft = &Draft{}
		return nil
	}))
	assert.True(t, m.InProgress(1))

	got, ok := m.Peek(1)
	require.True(t, ok)
	assert.Equal(t, StateComposingPost, got.State)
	require.NotNil(t, got.Draft)

	// a reset inside Update drops the session
	require.NoError(t, m.Update(1, func(s *Session) error {
		s.Reset()
		return nil
	}))
	assert.False(t, m.InProgress(1))
}

func TestManagerClear(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Update(7, func(s *Session) error {
		s.State = StateAwaitingSearchQuery
		return nil
	}))
	m.Clear(7)
	assert.False(t, m.InProgress(7))

	// clearing an unknown user is a no-op
	m.Clear(99)
}

func TestManagerIsolatesUsers(t *testing.T) {
	m := NewManager()

	var wg sync.WaitGroup
	for u := int64(1); u <= 8; u++ {
		wg.Add(1)
		go func(u int64) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = m.Update(u, func(s *Session) error {
					s.State = StateComposingPost
					if s.Draft == nil {
						s.Draft = &Draft{}
					}
					s.Draft.Buttons = append(s.Draft.Buttons, posts.Button{})
					return nil
				})
			}
		}(u)
	}
	wg.Wait()

	for u := int64(1); u <= 8; u++ {
		got, ok := m.Peek(u)
		require.True(t, ok)
		assert.Len(t, got.Draft.Buttons, 50)
	}
}
