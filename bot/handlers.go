package bot

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/postbot/bot/session"
	"github.com/m3rciful/postbot/core/telegram/commands"
	tg "github.com/m3rciful/postbot/core/telegram"
	"github.com/m3rciful/postbot/core/telegram/format"
	tghelpers "github.com/m3rciful/postbot/core/telegram/helpers"
	"github.com/m3rciful/postbot/services/channels"
	"github.com/m3rciful/postbot/services/posts"
	"github.com/m3rciful/postbot/services/publisher"
)

// PostStore is the persistence surface the bot consumes for posts.
type PostStore interface {
	Create(ctx context.Context, p *posts.Post) (int64, error)
	Update(ctx context.Context, p *posts.Post) error
	Get(ctx context.Context, id int64) (*posts.Post, error)
	List(ctx context.Context) ([]posts.Post, error)
	Search(ctx context.Context, query string) ([]posts.Post, error)
	Delete(ctx context.Context, id int64) error
}

// ChannelStore is the persistence surface for channel registrations.
type ChannelStore interface {
	Upsert(ctx context.Context, channelID, channelName string) error
	List(ctx context.Context) ([]channels.Channel, error)
	Remove(ctx context.Context, channelID string) error
}

// Publisher fans a post out to destinations.
type Publisher interface {
	Publish(ctx context.Context, postID int64, destinations []string) (publisher.Report, error)
}

// ChatResolver looks up a chat title by its raw id, used when a
// channel is registered by id instead of a forwarded message.
type ChatResolver func(c tele.Context, chatID int64) (string, error)

// Options wires the handler dependencies.
type Options struct {
	Admins      []int64
	Posts       PostStore
	Channels    ChannelStore
	Publisher   Publisher
	Shorten     posts.ShortenFunc
	Gateway     publisher.Gateway
	Sessions    *session.Manager
	ResolveChat ChatResolver
	BotUsername func() string
}

// Handlers owns every command, flow, and callback of the bot.
type Handlers struct {
	admins      map[int64]struct{}
	posts       PostStore
	channels    ChannelStore
	publisher   Publisher
	shorten     posts.ShortenFunc
	gateway     publisher.Gateway
	sessions    *session.Manager
	resolveChat ChatResolver
	botUsername func() string
}

// New builds the handler set.
func New(opts Options) *Handlers {
	admins := make(map[int64]struct{}, len(opts.Admins))
	for _, id := range opts.Admins {
		admins[id] = struct{}{}
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewManager()
	}
	resolve := opts.ResolveChat
	if resolve == nil {
		resolve = func(c tele.Context, chatID int64) (string, error) {
			chat, err := c.Bot().ChatByID(chatID)
			if err != nil {
				return "", err
			}
			return chat.Title, nil
		}
	}
	name := opts.BotUsername
	if name == nil {
		name = func() string { return "" }
	}
	return &Handlers{
		admins:      admins,
		posts:       opts.Posts,
		channels:    opts.Channels,
		publisher:   opts.Publisher,
		shorten:     opts.Shorten,
		gateway:     opts.Gateway,
		sessions:    sessions,
		resolveChat: resolve,
		botUsername: name,
	}
}

// mdEscape escapes stored titles and names before Markdown interpolation.
func mdEscape(s string) string {
	out, err := format.EscapeMarkdown(s, format.MarkdownV1)
	if err != nil {
		return s
	}
	return out
}

func (h *Handlers) isAdmin(userID int64) bool {
	_, ok := h.admins[userID]
	return ok
}

// Sessions exposes the session manager for FSM routing.
func (h *Handlers) Sessions() *session.Manager {
	return h.sessions
}

// InProgress implements router.FSM.
func (h *Handlers) InProgress(userID int64) bool {
	return h.sessions.InProgress(userID)
}

// Register wires commands and callbacks into the registry.
func (h *Handlers) Register(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{Handler: h.onStart, Description: "Open the bot"})
	reg.RegisterCommand("/help", commands.Command{Handler: h.onHelp, Description: "Show available commands"})
	reg.RegisterCommand("/search", commands.Command{Handler: h.onSearch, Description: "Search saved posts"})

	reg.RegisterCommand("/newpost", commands.Command{Handler: h.onNewPost, Description: "Create a new post", AdminOnly: true})
	reg.RegisterCommand("/editpost", commands.Command{Handler: h.onEditPost, Description: "Edit an existing post", AdminOnly: true})
	reg.RegisterCommand("/listposts", commands.Command{Handler: h.onListPosts, Description: "View all saved posts", AdminOnly: true})
	reg.RegisterCommand("/deletepost", commands.Command{Handler: h.onDeletePost, Description: "Delete a post", AdminOnly: true})
	reg.RegisterCommand("/repost", commands.Command{Handler: h.onRepost, Description: "Repost from saved posts", AdminOnly: true})
	reg.RegisterCommand("/done", commands.Command{Handler: h.onDone, Description: "Finish the current post", AdminOnly: true, Hidden: true})

	reg.RegisterCommand("/addchannel", commands.Command{Handler: h.onAddChannel, Description: "Add a channel/group", AdminOnly: true})
	reg.RegisterCommand("/listchannels", commands.Command{Handler: h.onListChannels, Description: "View all channels", AdminOnly: true})
	reg.RegisterCommand("/removechannel", commands.Command{Handler: h.onRemoveChannel, Description: "Remove a channel", AdminOnly: true})

	_ = reg.RegisterCallback(cbViewPost, h.cbViewPost)
	_ = reg.RegisterCallback(cbRemoveChannel, h.adminCallback(h.cbRemoveChannel))
	_ = reg.RegisterCallback(cbDeletePost, h.adminCallback(h.cbDeletePost))
	_ = reg.RegisterCallback(cbEditPost, h.adminCallback(h.cbEditPost))
	_ = reg.RegisterCallback(cbPublish, h.adminCallback(h.cbSelectDestinations))
	_ = reg.RegisterCallback(cbRepost, h.adminCallback(h.cbSelectDestinations))
	_ = reg.RegisterCallback(cbToggleChannel, h.adminCallback(h.cbToggleChannel))
	_ = reg.RegisterCallback(cbConfirmPublish, h.adminCallback(h.cbConfirmPublish))
	_ = reg.RegisterCallback(cbSaveOnly, h.adminCallback(h.cbSaveOnly))
}

// OnAdminReject replies to non-admins invoking admin commands.
func (h *Handlers) OnAdminReject(c tele.Context) error {
	return tghelpers.SendMD(c, msgNotAuthorized)
}

func (h *Handlers) onStart(c tele.Context) error {
	if msg := c.Message(); msg != nil && msg.Payload != "" {
		raw := strings.TrimPrefix(strings.TrimSpace(msg.Payload), "post_")
		var id int64
		if _, err := fmt.Sscanf(raw, "%d", &id); err == nil {
			return h.sendPost(c, id)
		}
		return tghelpers.SendMD(c, msgPostNotFound)
	}
	return h.onHelp(c)
}

func (h *Handlers) onHelp(c tele.Context) error {
	if h.isAdmin(c.Sender().ID) {
		return tghelpers.SendMD(c, msgAdminWelcome)
	}
	return tghelpers.SendMD(c, msgUserWelcome)
}

func (h *Handlers) onSearch(c tele.Context) error {
	err := h.sessions.Update(c.Sender().ID, func(s *session.Session) error {
		s.Reset()
		s.State = session.StateAwaitingSearchQuery
		return nil
	})
	if err != nil {
		return err
	}
	return tghelpers.SendMD(c, msgSearchPrompt)
}

func (h *Handlers) onAddChannel(c tele.Context) error {
	err := h.sessions.Update(c.Sender().ID, func(s *session.Session) error {
		s.Reset()
		s.State = session.StateAwaitingChannelRegistration
		return nil
	})
	if err != nil {
		return err
	}
	return tghelpers.SendMD(c, msgChannelPrompt)
}

func (h *Handlers) onListChannels(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	list, err := h.channels.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return tghelpers.SendMD(c, msgNoChannels)
	}
	var b strings.Builder
	b.WriteString("📢 *Your Channels:*\n\n")
	for _, ch := range list {
		fmt.Fprintf(&b, "• %s (`%s`)\n", mdEscape(ch.ChannelName), ch.ChannelID)
	}
	return tghelpers.SendMD(c, b.String())
}

func (h *Handlers) onRemoveChannel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	list, err := h.channels.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return tghelpers.SendMD(c, msgNoChannelsRm)
	}
	return tghelpers.SendMD(c, "Select a channel to remove:", channelRemoveMarkup(list))
}

func (h *Handlers) onNewPost(c tele.Context) error {
	err := h.sessions.Update(c.Sender().ID, func(s *session.Session) error {
		s.Reset()
		s.State = session.StateComposingPost
		s.Draft = &session.Draft{}
		return nil
	})
	if err != nil {
		return err
	}
	return tghelpers.SendMD(c, msgNewPostPrompt)
}

func (h *Handlers) onListPosts(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	list, err := h.posts.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return tghelpers.SendMD(c, msgNoPosts)
	}
	var b strings.Builder
	b.WriteString("📝 *Your Saved Posts:*\n\n")
	for _, p := range list {
		fmt.Fprintf(&b, "• *Post #%d*: %s\n  _Created_: %s\n\n", p.ID, mdEscape(p.Title), p.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tghelpers.SendMD(c, b.String())
}

func (h *Handlers) onDeletePost(c tele.Context) error {
	return h.postPicker(c, msgNoPostsDelete, cbDeletePost, "🗑 ", "Select a post to delete:")
}

func (h *Handlers) onRepost(c tele.Context) error {
	return h.postPicker(c, msgNoPostsRepost, cbRepost, "📤 ", "Select a post to repost:")
}

func (h *Handlers) onEditPost(c tele.Context) error {
	return h.postPicker(c, msgNoPostsEdit, cbEditPost, "✏️ ", "Select a post to edit:")
}

func (h *Handlers) postPicker(c tele.Context, emptyMsg, unique, prefix, prompt string) error {
	ctx := tghelpers.BuildContext(c)
	list, err := h.posts.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return tghelpers.SendMD(c, emptyMsg)
	}
	return tghelpers.SendMD(c, prompt, postListMarkup(list, unique, prefix))
}

func (h *Handlers) onDone(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	var reply func() error

	err := h.sessions.Update(c.Sender().ID, func(s *session.Session) error {
		switch s.State {
		case session.StateComposingPost, session.StateEditingPost:
		default:
			reply = func() error { return tghelpers.SendMD(c, msgNothingToDo) }
			return nil
		}

		if s.Draft == nil || !s.Draft.ContentCaptured {
			reply = func() error { return tghelpers.SendMD(c, msgNothingCapture) }
			return nil
		}

		p := &posts.Post{
			Title:     posts.DeriveTitle(s.Draft.Content),
			Content:   s.Draft.Content,
			MediaKind: s.Draft.MediaKind,
			MediaRef:  s.Draft.MediaRef,
			Buttons:   s.Draft.Buttons,
		}

		if s.State == session.StateEditingPost {
			p.ID = s.EditingPostID
			if err := h.posts.Update(ctx, p); err != nil {
				return err
			}
			postID := p.ID
			reply = func() error {
				return tghelpers.SendMD(c,
					fmt.Sprintf("✅ Post #%d updated successfully!", postID),
					postUpdatedMarkup(postID),
				)
			}
			s.Reset()
			return nil
		}

		id, err := h.posts.Create(ctx, p)
		if err != nil {
			return err
		}
		link := fmt.Sprintf("https://t.me/%s?start=post_%d", h.botUsername(), id)
		reply = func() error {
			return tghelpers.SendMD(c,
				fmt.Sprintf("✅ Post saved as *Post #%d*!\n\n🔗 *Shareable Link:*\n`%s`\n\nWhat would you like to do next?", id, link),
				postSavedMarkup(id),
			)
		}
		s.Reset()
		return nil
	})
	if err != nil {
		return err
	}
	if reply != nil {
		return reply()
	}
	return nil
}

// sendPost delivers a stored post straight to the current chat.
func (h *Handlers) sendPost(c tele.Context, postID int64) error {
	ctx := tghelpers.BuildContext(c)
	p, err := h.posts.Get(ctx, postID)
	if err != nil {
		return tghelpers.SendMD(c, msgPostNotFound)
	}
	dest := fmt.Sprintf("%d", c.Chat().ID)
	if err := h.gateway.Deliver(ctx, dest, publisher.BuildPayload(p)); err != nil {
		return tghelpers.SendMD(c, "❌ An error occurred while fetching the post.")
	}
	return nil
}
