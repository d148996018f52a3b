package channels

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/postbot/core/logger"
)

// Channel is a registered broadcast destination. ChannelID keeps the
// transport chat identifier as text to avoid precision loss.
type Channel struct {
	ID          int64     `db:"id"`
	ChannelID   string    `db:"channel_id"`
	ChannelName string    `db:"channel_name"`
	AddedAt     time.Time `db:"added_at"`
}

// Repository persists channel registrations in Postgres.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps the shared database handle.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Upsert registers a channel. Re-registering the same channel_id
// overwrites the display name and keeps added_at.
func (r *Repository) Upsert(ctx context.Context, channelID, channelName string) error {
	const q = `
		INSERT INTO channels (channel_id, channel_name)
		VALUES ($1, $2)
		ON CONFLICT (channel_id) DO UPDATE SET channel_name = EXCLUDED.channel_name`
	if _, err := r.db.ExecContext(ctx, q, channelID, channelName); err != nil {
		return fmt.Errorf("upsert channel %s: %w", channelID, err)
	}
	logger.SVCChannels.Debug("channel registered",
		slog.String("event", "channel.upsert"),
		slog.String("channel_id", channelID),
	)
	return nil
}

// List returns all registered channels.
func (r *Repository) List(ctx context.Context) ([]Channel, error) {
	var out []Channel
	if err := r.db.SelectContext(ctx, &out, `SELECT * FROM channels ORDER BY added_at`); err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return out, nil
}

// Remove deletes a channel registration by its channel_id.
func (r *Repository) Remove(ctx context.Context, channelID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM channels WHERE channel_id = $1`, channelID); err != nil {
		return fmt.Errorf("remove channel %s: %w", channelID, err)
	}
	logger.SVCChannels.Debug("channel removed",
		slog.String("event", "channel.remove"),
		slog.String("channel_id", channelID),
	)
	return nil
}
