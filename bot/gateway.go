package bot

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/postbot/core/telegram/keyboard"
	"github.com/m3rciful/postbot/services/posts"
	"github.com/m3rciful/postbot/services/publisher"
)

// ErrGatewayUnbound is returned when delivery is attempted before the
// bot instance is available.
var ErrGatewayUnbound = errors.New("gateway: bot not bound")

// Gateway delivers rendered payloads over Telegram. The bot instance
// is bound after startup, so the gateway can be wired into the
// publisher before the transport exists.
type Gateway struct {
	bot atomic.Pointer[tele.Bot]
}

// NewGateway returns an unbound gateway.
func NewGateway() *Gateway {
	return &Gateway{}
}

// Bind attaches the running bot instance.
func (g *Gateway) Bind(b *tele.Bot) {
	g.bot.Store(b)
}

// Deliver sends the payload to one destination chat id.
func (g *Gateway) Deliver(ctx context.Context, destination string, payload publisher.Payload) error {
	b := g.bot.Load()
	if b == nil {
		return ErrGatewayUnbound
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	chatID, err := strconv.ParseInt(destination, 10, 64)
	if err != nil {
		return errors.New("gateway: bad destination " + destination)
	}
	to := tele.ChatID(chatID)

	opts := &tele.SendOptions{
		ParseMode:   tele.ModeMarkdown,
		ReplyMarkup: payloadMarkup(payload.Buttons),
	}

	switch payload.Kind {
	case posts.MediaPhoto:
		_, err = b.Send(to, &tele.Photo{
			File:    tele.File{FileID: payload.MediaRef},
			Caption: payload.Body,
		}, opts)
	case posts.MediaVideo:
		_, err = b.Send(to, &tele.Video{
			File:    tele.File{FileID: payload.MediaRef},
			Caption: payload.Body,
		}, opts)
	default:
		opts.DisableWebPagePreview = true
		_, err = b.Send(to, payload.Body, opts)
	}
	return err
}

// payloadMarkup renders post buttons as one URL button per row.
func payloadMarkup(buttons []posts.Button) *tele.ReplyMarkup {
	if len(buttons) == 0 {
		return nil
	}
	rows := make([][]keyboard.URLBtn, 0, len(buttons))
	for _, btn := range buttons {
		rows = append(rows, []keyboard.URLBtn{{Text: btn.Label, URL: btn.URL}})
	}
	return keyboard.URLButtons(rows...)
}
