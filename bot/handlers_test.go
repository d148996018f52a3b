package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/postbot/bot/session"
	tg "github.com/m3rciful/postbot/core/telegram"
	"github.com/m3rciful/postbot/services/channels"
	"github.com/m3rciful/postbot/services/posts"
	"github.com/m3rciful/postbot/services/publisher"
)

type sentMsg struct {
	text   string
	markup *tele.ReplyMarkup
}

// fakeCtx implements the slice of tele.Context the handlers touch.
// Unoverridden methods panic, which is fine: a test reaching one is a bug.
type fakeCtx struct {
	tele.Context
	user  *tele.User
	chat  *tele.Chat
	msg   *tele.Message
	cb    *tele.Callback
	store map[string]any

	sent  []sentMsg
	edits []sentMsg
}

func newFakeCtx(userID int64) *fakeCtx {
	return &fakeCtx{
		user:  &tele.User{ID: userID},
		chat:  &tele.Chat{ID: userID},
		store: map[string]any{},
	}
}

func (c *fakeCtx) Update() tele.Update      { return tele.Update{} }
func (c *fakeCtx) Sender() *tele.User       { return c.user }
func (c *fakeCtx) Chat() *tele.Chat         { return c.chat }
func (c *fakeCtx) Message() *tele.Message   { return c.msg }
func (c *fakeCtx) Callback() *tele.Callback { return c.cb }
func (c *fakeCtx) Get(key string) any       { return c.store[key] }
func (c *fakeCtx) Set(key string, val any)  { c.store[key] = val }

func (c *fakeCtx) Text() string {
	if c.msg == nil {
		return ""
	}
	return c.msg.Text
}

func record(what interface{}, opts ...interface{}) sentMsg {
	m := sentMsg{text: fmt.Sprint(what)}
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			m.markup = so.ReplyMarkup
		}
		if rm, ok := o.(*tele.ReplyMarkup); ok {
			m.markup = rm
		}
	}
	return m
}

func (c *fakeCtx) Send(what interface{}, opts ...interface{}) error {
	c.sent = append(c.sent, record(what, opts...))
	return nil
}

func (c *fakeCtx) Edit(what interface{}, opts ...interface{}) error {
	c.edits = append(c.edits, record(what, opts...))
	return nil
}

func (c *fakeCtx) EditOrSend(what interface{}, opts ...interface{}) error {
	return c.Edit(what, opts...)
}

func (c *fakeCtx) lastSent(t *testing.T) sentMsg {
	t.Helper()
	require.NotEmpty(t, c.sent)
	return c.sent[len(c.sent)-1]
}

func (c *fakeCtx) withText(text string) *fakeCtx {
	c.msg = &tele.Message{Text: text}
	return c
}

func (c *fakeCtx) withCallback(unique, payload string) *fakeCtx {
	c.cb = &tele.Callback{Data: "\\f" + unique + "|" + payload}
	return c
}

type memPosts struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*posts.Post
}

func newMemPosts() *memPosts {
	return &memPosts{nextID: 1, byID: map[int64]*posts.Post{}}
}

func (s *memPosts) Create(_ context.Context, p *posts.Post) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	cp.ID = s.nextID
	s.nextID++
	s.byID[cp.ID] = &cp
	return cp.ID, nil
}

func (s *memPosts) Update(_ context.Context, p *posts.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[p.ID]; !ok {
		return nil
	}
	cp := *p
	s.byID[p.ID] = &cp
	return nil
}

func (s *memPosts) Get(_ context.Context, id int64) (*posts.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, posts.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memPosts) List(_ context.Context) ([]posts.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]posts.Post, 0, len(s.byID))
	for id := int64(1); id < s.nextID; id++ {
		if p, ok := s.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *memPosts) Search(_ context.Context, query string) ([]posts.Post, error) {
	all, _ := s.List(context.Background())
	out := make([]posts.Post, 0, len(all))
	q := strings.ToLower(query)
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Content), q) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memPosts) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	return nil
}

type memChannels struct {
	mu   sync.Mutex
	list []channels.Channel
}

func (s *memChannels) Upsert(_ context.Context, channelID, channelName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.list {
		if s.list[i].ChannelID == channelID {
			s.list[i].ChannelName = channelName
			return nil
		}
	}
	s.list = append(s.list, channels.Channel{ChannelID: channelID, ChannelName: channelName})
	return nil
}

func (s *memChannels) List(_ context.Context) ([]channels.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]channels.Channel(nil), s.list...), nil
}

func (s *memChannels) Remove(_ context.Context, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.list {
		if s.list[i].ChannelID == channelID {
			s.list = append(s.list[:i], s.list[i+1:]...)
			return nil
		}
	}
	return nil
}

type recordingPublisher struct {
	postID int64
	dests  []string
	report publisher.Report
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, postID int64, dests []string) (publisher.Report, error) {
	p.postID = postID
	p.dests = dests
	return p.report, p.err
}

type recordingGateway struct {
	dests    []string
	payloads []publisher.Payload
	err      error
}

func (g *recordingGateway) Deliver(_ context.Context, dest string, payload publisher.Payload) error {
	g.dests = append(g.dests, dest)
	g.payloads = append(g.payloads, payload)
	return g.err
}

type fixture struct {
	h        *Handlers
	posts    *memPosts
	channels *memChannels
	pub      *recordingPublisher
	gw       *recordingGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		posts:    newMemPosts(),
		channels: &memChannels{},
		pub:      &recordingPublisher{},
		gw:       &recordingGateway{},
	}
	f.h = New(Options{
		Admins:    []int64{10},
		Posts:     f.posts,
		Channels:  f.channels,
		Publisher: f.pub,
		Gateway:   f.gw,
		ResolveChat: func(_ tele.Context, chatID int64) (string, error) {
			if chatID == -100500 {
				return "Resolved Channel", nil
			}
			return "", fmt.Errorf("chat %d not found", chatID)
		},
		BotUsername: func() string { return "postbot" },
	})
	return f
}

func TestRegisterWiresCommands(t *testing.T) {
	f := newFixture(t)
	reg := tg.NewRegistry()
	f.h.Register(reg)

	for _, name := range []string{"/start", "/help", "/search", "/newpost", "/editpost",
		"/listposts", "/deletepost", "/repost", "/done", "/addchannel", "/listchannels", "/removechannel"} {
		_, _, ok := reg.LookupCommand(name)
		assert.True(t, ok, "command %s not registered", name)
	}

	// admin-only and hidden commands stay out of the visible list
	visible := reg.ListCommands(true)
	require.Len(t, visible, 3)
	for _, it := range visible {
		assert.Contains(t, []string{"/start", "/help", "/search"}, it.Text)
	}
}

func TestHelpSplitsByRole(t *testing.T) {
	f := newFixture(t)

	admin := newFakeCtx(10)
	require.NoError(t, f.h.onHelp(admin))
	assert.Contains(t, admin.lastSent(t).text, "Welcome Admin")

	user := newFakeCtx(20)
	require.NoError(t, f.h.onHelp(user))
	assert.Contains(t, user.lastSent(t).text, "Welcome to the Bot")
}

func TestStartDeepLink(t *testing.T) {
	f := newFixture(t)
	id, err := f.posts.Create(context.Background(), &posts.Post{Title: "Hi", Content: "Hi there"})
	require.NoError(t, err)

	c := newFakeCtx(20)
	c.msg = &tele.Message{Payload: fmt.Sprintf("post_%d", id)}
	require.NoError(t, f.h.onStart(c))

	require.Len(t, f.gw.dests, 1)
	assert.Equal(t, "20", f.gw.dests[0])
	assert.Equal(t, "Hi there", f.gw.payloads[0].Body)
}

func TestStartDeepLinkMissingPost(t *testing.T) {
	f := newFixture(t)

	c := newFakeCtx(20)
	c.msg = &tele.Message{Payload: "post_999"}
	require.NoError(t, f.h.onStart(c))
	assert.Equal(t, msgPostNotFound, c.lastSent(t).text)

	bad := newFakeCtx(20)
	bad.msg = &tele.Message{Payload: "post_abc"}
	require.NoError(t, f.h.onStart(bad))
	assert.Equal(t, msgPostNotFound, bad.lastSent(t).text)
}

func TestComposeFlow(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.h.onNewPost(newFakeCtx(10).withText("/newpost")))
	require.True(t, f.h.InProgress(10))

	// first message becomes the body
	require.NoError(t, f.h.ManagerHandler(newFakeCtx(10).withText("Hello")))

	// second message becomes buttons, malformed lines skipped
	c := newFakeCtx(10).withText("Site|http://a.com\nnot a button")
	require.NoError(t, f.h.ManagerHandler(c))
	assert.Contains(t, c.lastSent(t).text, "Added 1 button(s)")

	done := newFakeCtx(10)
	require.NoError(t, f.h.onDone(done))
	assert.Contains(t, done.lastSent(t).text, "Post saved as *Post #1*")
	assert.Contains(t, done.lastSent(t).text, "https://t.me/postbot?start=post_1")
	require.NotNil(t, done.lastSent(t).markup)
	assert.False(t, f.h.InProgress(10))

	p, err := f.posts.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Hello", p.Title)
	assert.Equal(t, "Hello", p.Content)
	require.Len(t, p.Buttons, 1)
	assert.Equal(t, posts.Button{Label: "Site", URL: "http://a.com"}, p.Buttons[0])
}

func TestComposeCapturesMedia(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.h.onNewPost(newFakeCtx(10)))

	c := newFakeCtx(10)
	c.msg = &tele.Message{
		Caption: "look at this",
		Photo:   &tele.Photo{File: tele.File{FileID: "photo-123"}},
	}
	require.NoError(t, f.h.ManagerHandler(c))

	require.NoError(t, f.h.onDone(newFakeCtx(10)))
	p, err := f.posts.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, posts.MediaPhoto, p.MediaKind)
	assert.Equal(t, "photo-123", p.MediaRef)
	assert.Equal(t, "look at this", p.Content)
}

func TestDoneWithoutSession(t *testing.T) {
	f := newFixture(t)

	c := newFakeCtx(10)
	require.NoError(t, f.h.onDone(c))
	assert.Equal(t, msgNothingToDo, c.lastSent(t).text)
}

func TestDoneWithoutContent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.h.onNewPost(newFakeCtx(10)))

	c := newFakeCtx(10)
	require.NoError(t, f.h.onDone(c))
	assert.Equal(t, msgNothingCapture, c.lastSent(t).text)

	// session survives so the admin can still send content
	assert.True(t, f.h.InProgress(10))
}

func TestSearchFlow(t *testing.T) {
	f := newFixture(t)
	_, err := f.posts.Create(context.Background(), &posts.Post{Title: "Go Weekly", Content: "issue 1"})
	require.NoError(t, err)
	_, err = f.posts.Create(context.Background(), &posts.Post{Title: "Rust Weekly", Content: "issue 1"})
	require.NoError(t, err)

	require.NoError(t, f.h.onSearch(newFakeCtx(20)))
	require.True(t, f.h.InProgress(20))

	c := newFakeCtx(20).withText("go")
	require.NoError(t, f.h.ManagerHandler(c))
	last := c.lastSent(t)
	assert.Equal(t, msgSearchResults, last.text)
	require.NotNil(t, last.markup)
	require.Len(t, last.markup.InlineKeyboard, 1)
	assert.Equal(t, "Go Weekly", last.markup.InlineKeyboard[0][0].Text)

	// query consumed the session
	assert.False(t, f.h.InProgress(20))
}

func TestSearchNoMatch(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.h.onSearch(newFakeCtx(20)))

	c := newFakeCtx(20).withText("nothing here")
	require.NoError(t, f.h.ManagerHandler(c))
	assert.Equal(t, msgSearchNoMatch, c.lastSent(t).text)
}

func TestRegisterChannelByForward(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.h.onAddChannel(newFakeCtx(10)))

	c := newFakeCtx(10)
	c.msg = &tele.Message{Origin: &tele.MessageOrigin{
		Chat: &tele.Chat{ID: -100123, Title: "My Channel"},
	}}
	require.NoError(t, f.h.ManagerHandler(c))
	assert.Contains(t, c.lastSent(t).text, "My Channel")

	list, err := f.channels.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "-100123", list[0].ChannelID)
	assert.Equal(t, "My Channel", list[0].ChannelName)
}

func TestRegisterChannelByID(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.h.onAddChannel(newFakeCtx(10)))

	c := newFakeCtx(10).withText("-100500")
	require.NoError(t, f.h.ManagerHandler(c))
	assert.Contains(t, c.lastSent(t).text, "Resolved Channel")
	assert.False(t, f.h.InProgress(10))
}

func TestRegisterChannelRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	for _, input := range []string{"not a number", "-100999"} {
		require.NoError(t, f.h.onAddChannel(newFakeCtx(10)))
		c := newFakeCtx(10).withText(input)
		require.NoError(t, f.h.ManagerHandler(c))
		assert.Contains(t, c.lastSent(t).text, "Invalid channel ID")

		// the flow ends either way
		assert.False(t, f.h.InProgress(10), "input %q", input)
	}
}

func TestRegisterChannelReRegisterUpdatesName(t *testing.T) {
	f := newFixture(t)

	for _, title := range []string{"Old Name", "New Name"} {
		require.NoError(t, f.h.onAddChannel(newFakeCtx(10)))
		c := newFakeCtx(10)
		c.msg = &tele.Message{Origin: &tele.MessageOrigin{
			Chat: &tele.Chat{ID: -100123, Title: title},
		}}
		require.NoError(t, f.h.ManagerHandler(c))
	}

	list, err := f.channels.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "New Name", list[0].ChannelName)
}

func TestUnexpectedMessageDropsSession(t *testing.T) {
	f := newFixture(t)

	// selection state does not expect free-form text
	require.NoError(t, f.h.sessions.Update(10, func(s *session.Session) error {
		s.State = session.StateSelectingDestinations
		s.Selection = session.NewSelection(1)
		return nil
	}))

	c := newFakeCtx(10).withText("stray message")
	require.NoError(t, f.h.ManagerHandler(c))
	assert.Empty(t, c.sent)
	assert.False(t, f.h.InProgress(10))
}

func TestSelectAndPublish(t *testing.T) {
	f := newFixture(t)
	id, err := f.posts.Create(context.Background(), &posts.Post{Title: "Hi", Content: "Hi"})
	require.NoError(t, err)
	require.NoError(t, f.channels.Upsert(context.Background(), "-1001", "One"))
	require.NoError(t, f.channels.Upsert(context.Background(), "-1002", "Two"))

	sel := newFakeCtx(10).withCallback(cbPublish, fmt.Sprintf("%d", id))
	require.NoError(t, f.h.cbSelectDestinations(sel))
	require.NotEmpty(t, sel.edits)
	require.NotNil(t, sel.edits[0].markup)
	// two channel rows plus the confirm row
	assert.Len(t, sel.edits[0].markup.InlineKeyboard, 3)

	toggle := newFakeCtx(10).withCallback(cbToggleChannel, "-1002")
	require.NoError(t, f.h.cbToggleChannel(toggle))
	require.NotEmpty(t, toggle.edits)

	f.pub.report = publisher.Report{Attempted: 1, Succeeded: 1}
	confirm := newFakeCtx(10).withCallback(cbConfirmPublish, "")
	require.NoError(t, f.h.cbConfirmPublish(confirm))

	assert.Equal(t, id, f.pub.postID)
	assert.Equal(t, []string{"-1002"}, f.pub.dests)
	last := confirm.edits[len(confirm.edits)-1]
	assert.Contains(t, last.text, "Posted to 1/1 selected channels")
	assert.False(t, f.h.InProgress(10))
}

func TestConfirmPublishRequiresSelection(t *testing.T) {
	f := newFixture(t)
	id, err := f.posts.Create(context.Background(), &posts.Post{Title: "Hi", Content: "Hi"})
	require.NoError(t, err)
	require.NoError(t, f.channels.Upsert(context.Background(), "-1001", "One"))

	require.NoError(t, f.h.cbSelectDestinations(newFakeCtx(10).withCallback(cbPublish, fmt.Sprintf("%d", id))))

	confirm := newFakeCtx(10).withCallback(cbConfirmPublish, "")
	require.NoError(t, f.h.cbConfirmPublish(confirm))
	assert.Contains(t, confirm.lastSent(t).text, "select at least one channel")

	// selection keeps waiting
	assert.True(t, f.h.InProgress(10))
	assert.Equal(t, int64(0), f.pub.postID)
}

func TestCallbackAdminGate(t *testing.T) {
	f := newFixture(t)
	gated := f.h.adminCallback(func(tele.Context) error {
		t.Fatal("handler must not run for non-admins")
		return nil
	})

	c := newFakeCtx(20).withCallback(cbDeletePost, "1")
	require.NoError(t, gated(c))
	assert.Equal(t, msgNotAuthorized, c.lastSent(t).text)
}

func TestEditPostFlow(t *testing.T) {
	f := newFixture(t)
	id, err := f.posts.Create(context.Background(), &posts.Post{
		Title:   "Original",
		Content: "Original body",
		Buttons: posts.Buttons{{Label: "Old", URL: "http://old"}},
	})
	require.NoError(t, err)

	c := newFakeCtx(10).withCallback(cbEditPost, fmt.Sprintf("%d", id))
	require.NoError(t, f.h.cbEditPost(c))
	require.NotEmpty(t, c.edits)
	assert.Contains(t, c.edits[0].text, fmt.Sprintf("Editing Post #%d", id))

	// replacement content, then save
	require.NoError(t, f.h.ManagerHandler(newFakeCtx(10).withText("Updated body")))
	done := newFakeCtx(10)
	require.NoError(t, f.h.onDone(done))
	assert.Contains(t, done.lastSent(t).text, "updated successfully")

	p, err := f.posts.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Updated body", p.Content)
	assert.Equal(t, "Updated body", p.Title)
	// untouched buttons carry over from the pre-filled draft
	require.Len(t, p.Buttons, 1)
	assert.Equal(t, "Old", p.Buttons[0].Label)
}

func TestDeleteAndRemoveCallbacks(t *testing.T) {
	f := newFixture(t)
	id, err := f.posts.Create(context.Background(), &posts.Post{Title: "Hi", Content: "Hi"})
	require.NoError(t, err)
	require.NoError(t, f.channels.Upsert(context.Background(), "-1001", "One"))

	del := newFakeCtx(10).withCallback(cbDeletePost, fmt.Sprintf("%d", id))
	require.NoError(t, f.h.cbDeletePost(del))
	_, err = f.posts.Get(context.Background(), id)
	assert.ErrorIs(t, err, posts.ErrNotFound)

	rm := newFakeCtx(10).withCallback(cbRemoveChannel, "-1001")
	require.NoError(t, f.h.cbRemoveChannel(rm))
	list, err := f.channels.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}
