package publisher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/postbot/services/posts"
)

type fakeStore struct {
	post *posts.Post
	err  error
}

func (s *fakeStore) Get(_ context.Context, id int64) (*posts.Post, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.post, nil
}

type fakeGateway struct {
	mu      sync.Mutex
	seen    map[string]Payload
	failing map[string]bool
}

func newFakeGateway(failing ...string) *fakeGateway {
	g := &fakeGateway{seen: map[string]Payload{}, failing: map[string]bool{}}
	for _, d := range failing {
		g.failing[d] = true
	}
	return g
}

func (g *fakeGateway) Deliver(_ context.Context, dest string, payload Payload) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen[dest] = payload
	if g.failing[dest] {
		return fmt.Errorf("send to %s: forbidden", dest)
	}
	return nil
}

func TestPublishFanOut(t *testing.T) {
	store := &fakeStore{post: &posts.Post{
		ID:      7,
		Content: "hello",
		Buttons: posts.Buttons{{Label: "Go", URL: "http://x"}},
	}}
	gw := newFakeGateway()

	dests := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		dests = append(dests, fmt.Sprintf("-100%d", i))
	}

	pub := New(store, gw, 0)
	report, err := pub.Publish(context.Background(), 7, dests)
	require.NoError(t, err)
	assert.Equal(t, Report{Attempted: 12, Succeeded: 12}, report)

	require.Len(t, gw.seen, 12)
	for _, payload := range gw.seen {
		assert.Equal(t, "hello", payload.Body)
		require.Len(t, payload.Buttons, 1)
	}
}

func TestPublishCountsFailures(t *testing.T) {
	store := &fakeStore{post: &posts.Post{ID: 1, Content: "x"}}
	gw := newFakeGateway("-1002", "-1004")

	pub := New(store, gw, 0)
	report, err := pub.Publish(context.Background(), 1,
		[]string{"-1001", "-1002", "-1003", "-1004", "-1005"})
	require.NoError(t, err)
	assert.Equal(t, Report{Attempted: 5, Succeeded: 3}, report)
}

func TestPublishMissingPost(t *testing.T) {
	store := &fakeStore{err: posts.ErrNotFound}
	pub := New(store, newFakeGateway(), 0)

	_, err := pub.Publish(context.Background(), 42, []string{"-1001"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, posts.ErrNotFound))
}

func TestBuildPayload(t *testing.T) {
	p := &posts.Post{
		MediaKind: posts.MediaPhoto,
		MediaRef:  "file-id",
		Content:   "caption",
	}
	payload := BuildPayload(p)
	assert.Equal(t, posts.MediaPhoto, payload.Kind)
	assert.Equal(t, "file-id", payload.MediaRef)
	assert.Equal(t, "caption", payload.Body)
}
