package bot

import (
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/postbot/core/telegram/keyboard"
	"github.com/m3rciful/postbot/services/channels"
	"github.com/m3rciful/postbot/services/posts"
	"github.com/m3rciful/postbot/bot/session"
)

// Callback keys routed through the registry.
const (
	cbViewPost       = "view_post"
	cbRemoveChannel  = "remove_ch"
	cbDeletePost     = "delete_post"
	cbEditPost       = "edit_post"
	cbPublish        = "publish"
	cbRepost         = "repost"
	cbToggleChannel  = "toggle_ch"
	cbConfirmPublish = "confirm_publish"
	cbSaveOnly       = "save_only"
)

// postListMarkup lists posts one per row, each bound to the given
// callback key with the post id as payload.
func postListMarkup(list []posts.Post, unique, prefix string) *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, len(list))
	for _, p := range list {
		btns = append(btns, keyboard.InlineBtn{
			Text:   prefix + p.Title,
			Unique: unique,
			Data:   strconv.FormatInt(p.ID, 10),
		})
	}
	return keyboard.InlineButtons(btns)
}

func channelRemoveMarkup(list []channels.Channel) *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, len(list))
	for _, ch := range list {
		btns = append(btns, keyboard.InlineBtn{
			Text:   "❌ " + ch.ChannelName,
			Unique: cbRemoveChannel,
			Data:   ch.ChannelID,
		})
	}
	return keyboard.InlineButtons(btns)
}

// selectionMarkup renders the destination picker with membership marks
// and a trailing confirm row.
func selectionMarkup(list []channels.Channel, sel *session.Selection) *tele.ReplyMarkup {
	rows := make([][]keyboard.InlineBtn, 0, len(list)+1)
	for _, ch := range list {
		mark := "🔲"
		if sel != nil && sel.Has(ch.ChannelID) {
			mark = "✅"
		}
		rows = append(rows, []keyboard.InlineBtn{{
			Text:   mark + " " + ch.ChannelName,
			Unique: cbToggleChannel,
			Data:   ch.ChannelID,
		}})
	}
	rows = append(rows, []keyboard.InlineBtn{{
		Text:   "✅ Publish to Selected",
		Unique: cbConfirmPublish,
	}})
	return keyboard.InlineButtonsRows(rows...)
}

func postSavedMarkup(postID int64) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "📤 Publish Now", Unique: cbPublish, Data: strconv.FormatInt(postID, 10)}},
		[]keyboard.InlineBtn{{Text: "💾 Save Only", Unique: cbSaveOnly}},
	)
}

func postUpdatedMarkup(postID int64) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "📤 Repost Now", Unique: cbRepost, Data: strconv.FormatInt(postID, 10)}},
	)
}
