package session

import (
	"sort"

	"github.com/m3rciful/postbot/services/posts"
)

// State enumerates the conversational states a user session can hold.
// StateIdle means no session: the manager drops idle sessions.
type State int

const (
	StateIdle State = iota
	StateAwaitingSearchQuery
	StateAwaitingChannelRegistration
	StateComposingPost
	StateEditingPost
	StateSelectingDestinations
)

// Draft is an in-progress post during composition or editing.
// ContentCaptured gates input interpretation: the first message sets
// the body, every later message is parsed as button lines.
type Draft struct {
	Content         string
	MediaKind       string
	MediaRef        string
	Buttons         []posts.Button
	ContentCaptured bool
}

// Selection tracks the chosen destination subset for one publish.
type Selection struct {
	PostID   int64
	selected map[string]struct{}
}

// NewSelection starts an empty selection for the given post.
func NewSelection(postID int64) *Selection {
	return &Selection{PostID: postID, selected: make(map[string]struct{})}
}

// Toggle flips membership of channelID and reports whether it is now selected.
func (s *Selection) Toggle(channelID string) bool {
	if _, ok := s.selected[channelID]; ok {
		delete(s.selected, channelID)
		return false
	}
	s.selected[channelID] = struct{}{}
	return true
}

// Has reports whether channelID is currently selected.
func (s *Selection) Has(channelID string) bool {
	_, ok := s.selected[channelID]
	return ok
}

// Len returns the number of selected channels.
func (s *Selection) Len() int {
	return len(s.selected)
}

// IDs returns the selected channel ids in stable order.
func (s *Selection) IDs() []string {
	out := make([]string, 0, len(s.selected))
	for id := range s.selected {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Session is per-user transient conversational state. Exactly one
// session exists per user; fields beyond State are populated only by
// the states that use them.
type Session struct {
	State         State
	Draft         *Draft
	EditingPostID int64
	Selection     *Selection
}

// Reset returns the session to idle, dropping all flow data.
func (s *Session) Reset() {
	*s = Session{}
}
