package bot

import (
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/postbot/bot/session"
	"github.com/m3rciful/postbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/postbot/core/telegram/helpers"
	"github.com/m3rciful/postbot/services/posts"
)

// adminCallback gates admin-only callback actions.
func (h *Handlers) adminCallback(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if !h.isAdmin(c.Sender().ID) {
			return tghelpers.SendMD(c, msgNotAuthorized)
		}
		return next(c)
	}
}

func (h *Handlers) cbViewPost(c tele.Context) error {
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return nil
	}
	return h.sendPost(c, id)
}

func (h *Handlers) cbRemoveChannel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	channelID := callbacks.CallbackPayload(c)
	if channelID == "" {
		return nil
	}
	if err := h.channels.Remove(ctx, channelID); err != nil {
		return err
	}
	return tghelpers.EditOrSendMD(c, msgChannelRemoved)
}

func (h *Handlers) cbDeletePost(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return nil
	}
	if err := h.posts.Delete(ctx, id); err != nil {
		return err
	}
	return tghelpers.EditOrSendMD(c, msgPostDeleted)
}

func (h *Handlers) cbEditPost(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return nil
	}
	p, err := h.posts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, posts.ErrNotFound) {
			return tghelpers.EditOrSendMD(c, msgPostNotFound)
		}
		return err
	}

	err = h.sessions.Update(c.Sender().ID, func(s *session.Session) error {
		s.Reset()
		s.State = session.StateEditingPost
		s.EditingPostID = p.ID
		s.Draft = &session.Draft{
			Content:   p.Content,
			MediaKind: p.MediaKind,
			MediaRef:  p.MediaRef,
			Buttons:   p.Buttons,
		}
		return nil
	})
	if err != nil {
		return err
	}
	return tghelpers.EditOrSendMD(c, fmt.Sprintf(
		"✏️ *Editing Post #%d*\n\nSend the new content/media. The current content is pre-filled.\nThen, send new buttons or /done to keep the old ones and save.",
		p.ID,
	))
}

// cbSelectDestinations serves both publish and repost selections.
func (h *Handlers) cbSelectDestinations(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return nil
	}
	list, err := h.channels.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return tghelpers.EditOrSendMD(c, msgNoChannels)
	}

	var sel *session.Selection
	err = h.sessions.Update(c.Sender().ID, func(s *session.Session) error {
		s.Reset()
		s.State = session.StateSelectingDestinations
		s.Selection = session.NewSelection(id)
		sel = s.Selection
		return nil
	})
	if err != nil {
		return err
	}
	return tghelpers.EditOrSendMD(c,
		fmt.Sprintf("*Select channels to publish Post #%d to:*", id),
		selectionMarkup(list, sel),
	)
}

func (h *Handlers) cbToggleChannel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	channelID := callbacks.CallbackPayload(c)
	if channelID == "" {
		return nil
	}

	toggled := false
	var sel *session.Selection
	err := h.sessions.Update(c.Sender().ID, func(s *session.Session) error {
		if s.State != session.StateSelectingDestinations || s.Selection == nil {
			s.Reset()
			return nil
		}
		s.Selection.Toggle(channelID)
		sel = s.Selection
		toggled = true
		return nil
	})
	if err != nil || !toggled {
		return err
	}

	list, err := h.channels.List(ctx)
	if err != nil {
		return err
	}
	return c.Edit(selectionMarkup(list, sel))
}

func (h *Handlers) cbConfirmPublish(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)

	var (
		postID       int64
		destinations []string
		active       bool
		empty        bool
	)
	err := h.sessions.Update(c.Sender().ID, func(s *session.Session) error {
		if s.State != session.StateSelectingDestinations || s.Selection == nil {
			s.Reset()
			return nil
		}
		active = true
		if s.Selection.Len() == 0 {
			empty = true
			return nil
		}
		postID = s.Selection.PostID
		destinations = s.Selection.IDs()
		s.Reset()
		return nil
	})
	if err != nil || !active {
		return err
	}
	if empty {
		return tghelpers.SendMD(c, "⚠️ Please select at least one channel!")
	}

	_ = tghelpers.EditOrSendMD(c, "🚀 *Publishing...*")

	report, err := h.publisher.Publish(ctx, postID, destinations)
	if err != nil {
		if errors.Is(err, posts.ErrNotFound) {
			return tghelpers.EditOrSendMD(c, msgPostNotFound)
		}
		return err
	}
	return tghelpers.EditOrSendMD(c, fmt.Sprintf(
		"✅ *Published!*\n\nPosted to %d/%d selected channels.",
		report.Succeeded, report.Attempted,
	))
}

func (h *Handlers) cbSaveOnly(c tele.Context) error {
	return tghelpers.EditOrSendMD(c, msgSavedOnly)
}
