package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/ratelimit"

	"github.com/m3rciful/postbot/core/logger"
	"github.com/m3rciful/postbot/services/posts"
)

// Payload is a post rendered once for delivery to every destination.
type Payload struct {
	Kind     string
	Body     string
	MediaRef string
	Buttons  []posts.Button
}

// Gateway sends one rendered payload to one destination.
type Gateway interface {
	Deliver(ctx context.Context, destination string, payload Payload) error
}

// PostSource loads stored posts for rendering.
type PostSource interface {
	Get(ctx context.Context, id int64) (*posts.Post, error)
}

// Report aggregates the outcome of one publish fan-out.
type Report struct {
	Attempted int
	Succeeded int
}

// Publisher fans a stored post out to selected destinations.
type Publisher struct {
	store   PostSource
	gateway Gateway
	limiter ratelimit.Limiter
}

// New builds a Publisher pacing deliveries at perSecond sends per
// second; perSecond <= 0 disables pacing.
func New(store PostSource, gateway Gateway, perSecond int) *Publisher {
	limiter := ratelimit.NewUnlimited()
	if perSecond > 0 {
		limiter = ratelimit.New(perSecond)
	}
	return &Publisher{
		store:   store,
		gateway: gateway,
		limiter: limiter,
	}
}

// BuildPayload renders a post into its delivery payload.
func BuildPayload(p *posts.Post) Payload {
	return Payload{
		Kind:     p.MediaKind,
		Body:     p.Content,
		MediaRef: p.MediaRef,
		Buttons:  p.Buttons,
	}
}

// Publish loads the post, renders it once, and delivers it to every
// destination concurrently. Failures are logged and counted, never
// retried, and never abort the remaining destinations.
func (p *Publisher) Publish(ctx context.Context, postID int64, destinations []string) (Report, error) {
	post, err := p.store.Get(ctx, postID)
	if err != nil {
		return Report{}, fmt.Errorf("load post %d: %w", postID, err)
	}

	payload := BuildPayload(post)
	report := Report{Attempted: len(destinations)}

	start := time.Now()
	var succeeded atomic.Int64
	var wg sync.WaitGroup
	for _, dest := range destinations {
		wg.Add(1)
		go func(dest string) {
			defer wg.Done()
			p.limiter.Take()
			if err := p.gateway.Deliver(ctx, dest, payload); err != nil {
				logger.SVCPublish.Warn("delivery failed",
					slog.String("event", "publish.deliver"),
					slog.Int64("post_id", postID),
					slog.String("channel_id", dest),
					slog.String("err", err.Error()),
				)
				return
			}
			succeeded.Add(1)
		}(dest)
	}
	wg.Wait()

	report.Succeeded = int(succeeded.Load())
	logger.SVCPublish.Info("publish complete",
		slog.String("event", "publish.summary"),
		slog.Int64("post_id", postID),
		slog.Int("attempted", report.Attempted),
		slog.Int("succeeded", report.Succeeded),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return report, nil
}
