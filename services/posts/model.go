package posts

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a post id does not exist.
var ErrNotFound = errors.New("post not found")

// Media kinds stored in posts.media_kind. Empty means text-only.
const (
	MediaNone  = ""
	MediaPhoto = "photo"
	MediaVideo = "video"
)

const (
	titleMaxRunes = 50
	untitledTitle = "Untitled Post"
)

// Button is a single inline URL button attached to a post.
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Buttons is the ordered button list persisted as JSON text.
// An empty list serializes as [], never as null; unparseable stored
// JSON reads back as no buttons.
type Buttons []Button

// Value implements driver.Valuer.
func (b Buttons) Value() (driver.Value, error) {
	if len(b) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal buttons: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (b *Buttons) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*b = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported buttons source %T", src)
	}
	var out []Button
	if err := json.Unmarshal(raw, &out); err != nil {
		*b = nil
		return nil
	}
	*b = out
	return nil
}

// Post is a stored unit of shareable content.
type Post struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	MediaKind string    `db:"media_kind"`
	MediaRef  string    `db:"media_ref"`
	Buttons   Buttons   `db:"buttons"`
	CreatedAt time.Time `db:"created_at"`
}

// DeriveTitle builds a post title from its content: the first 50 runes,
// or a placeholder when the content is empty.
func DeriveTitle(content string) string {
	if content == "" {
		return untitledTitle
	}
	runes := []rune(content)
	if len(runes) > titleMaxRunes {
		runes = runes[:titleMaxRunes]
	}
	return string(runes)
}
