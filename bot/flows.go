package bot

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/postbot/bot/session"
	"github.com/m3rciful/postbot/core/telegram/keyboard"
	tghelpers "github.com/m3rciful/postbot/core/telegram/helpers"
	"github.com/m3rciful/postbot/services/posts"
)

// ManagerHandler implements router.FSM: it interprets a free-form
// message against the sender's session state. Events that do not
// match the expected shape drop the session silently.
func (h *Handlers) ManagerHandler(c tele.Context) error {
	return h.sessions.Update(c.Sender().ID, func(s *session.Session) error {
		switch s.State {
		case session.StateAwaitingSearchQuery:
			return h.flowSearch(c, s)
		case session.StateAwaitingChannelRegistration:
			return h.flowRegisterChannel(c, s)
		case session.StateComposingPost, session.StateEditingPost:
			return h.flowCompose(c, s)
		default:
			s.Reset()
			return nil
		}
	})
}

func (h *Handlers) flowSearch(c tele.Context, s *session.Session) error {
	ctx := tghelpers.BuildContext(c)
	query := strings.TrimSpace(c.Text())
	s.Reset()
	if query == "" {
		return nil
	}

	results, err := h.posts.Search(ctx, query)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return tghelpers.SendMD(c, msgSearchNoMatch)
	}

	btns := make([]keyboard.InlineBtn, 0, len(results))
	for _, p := range results {
		btns = append(btns, keyboard.InlineBtn{
			Text:   p.Title,
			Unique: cbViewPost,
			Data:   strconv.FormatInt(p.ID, 10),
		})
	}
	return tghelpers.SendMD(c, msgSearchResults, keyboard.InlineButtons(btns))
}

func (h *Handlers) flowRegisterChannel(c tele.Context, s *session.Session) error {
	ctx := tghelpers.BuildContext(c)
	s.Reset()

	var channelID, channelName string
	if chat := forwardedChannel(c.Message()); chat != nil {
		channelID = strconv.FormatInt(chat.ID, 10)
		channelName = chat.Title
	} else {
		raw := strings.TrimSpace(c.Text())
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return tghelpers.SendMD(c, "❌ Invalid channel ID or I don't have access.")
		}
		name, err := h.resolveChat(c, id)
		if err != nil {
			return tghelpers.SendMD(c, "❌ Invalid channel ID or I don't have access.")
		}
		channelID = raw
		channelName = name
	}

	if err := h.channels.Upsert(ctx, channelID, channelName); err != nil {
		return err
	}
	return tghelpers.SendMD(c, fmt.Sprintf("✅ Channel *%s* (`%s`) added successfully!", mdEscape(channelName), channelID))
}

func (h *Handlers) flowCompose(c tele.Context, s *session.Session) error {
	ctx := tghelpers.BuildContext(c)
	msg := c.Message()
	if msg == nil {
		s.Reset()
		return nil
	}
	if s.Draft == nil {
		s.Draft = &session.Draft{}
	}

	// First message sets the body; later ones only add buttons.
	if !s.Draft.ContentCaptured {
		content := msg.Text
		if content == "" {
			content = msg.Caption
		}
		s.Draft.Content = content
		switch {
		case msg.Photo != nil:
			s.Draft.MediaKind = posts.MediaPhoto
			s.Draft.MediaRef = msg.Photo.FileID
		case msg.Video != nil:
			s.Draft.MediaKind = posts.MediaVideo
			s.Draft.MediaRef = msg.Video.FileID
		}
		s.Draft.ContentCaptured = true
		return tghelpers.SendMD(c, msgContentSaved)
	}

	if msg.Text == "" {
		s.Reset()
		return nil
	}
	added := posts.ParseButtonLines(ctx, msg.Text, h.shorten)
	s.Draft.Buttons = append(s.Draft.Buttons, added...)
	return tghelpers.SendMD(c, fmt.Sprintf("✅ Added %d button(s)! Send more or use /done.", len(added)))
}

func forwardedChannel(m *tele.Message) *tele.Chat {
	if m == nil || m.Origin == nil {
		return nil
	}
	return m.Origin.Chat
}
