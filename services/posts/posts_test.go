package posts

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, "Untitled Post", DeriveTitle(""))
	assert.Equal(t, "Hello", DeriveTitle("Hello"))

	long := strings.Repeat("x", 80)
	assert.Equal(t, strings.Repeat("x", 50), DeriveTitle(long))

	// rune-safe truncation
	cyr := strings.Repeat("ж", 60)
	assert.Equal(t, strings.Repeat("ж", 50), DeriveTitle(cyr))
}

func TestParseButtonLines(t *testing.T) {
	ctx := context.Background()

	t.Run("well formed", func(t *testing.T) {
		got := ParseButtonLines(ctx, "Go | http://x", nil)
		require.Len(t, got, 1)
		assert.Equal(t, Button{Label: "Go", URL: "http://x"}, got[0])
	})

	t.Run("malformed lines skipped", func(t *testing.T) {
		got := ParseButtonLines(ctx, "no separator here\nSite|http://a.com\nanother bad line", nil)
		require.Len(t, got, 1)
		assert.Equal(t, "Site", got[0].Label)
		assert.Equal(t, "http://a.com", got[0].URL)
	})

	t.Run("shortener applied", func(t *testing.T) {
		shorten := func(_ context.Context, u string) string { return "short:" + u }
		got := ParseButtonLines(ctx, "A | http://a\nB | http://b", shorten)
		require.Len(t, got, 2)
		assert.Equal(t, "short:http://a", got[0].URL)
		assert.Equal(t, "short:http://b", got[1].URL)
	})

	t.Run("only first separator splits", func(t *testing.T) {
		got := ParseButtonLines(ctx, "Label | http://x?a=1|2", nil)
		require.Len(t, got, 1)
		assert.Equal(t, "http://x?a=1|2", got[0].URL)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, ParseButtonLines(ctx, "", nil))
	})
}

func TestButtonsValue(t *testing.T) {
	v, err := Buttons(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	v, err = Buttons{{Label: "Go", URL: "http://x"}}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"label":"Go","url":"http://x"}]`, v.(string))
}

func TestButtonsScan(t *testing.T) {
	var b Buttons
	require.NoError(t, b.Scan([]byte(`[{"label":"Go","url":"http://x"}]`)))
	require.Len(t, b, 1)
	assert.Equal(t, "Go", b[0].Label)

	// corrupt stored JSON reads back as no buttons
	var corrupt Buttons
	require.NoError(t, corrupt.Scan([]byte(`{not json`)))
	assert.Empty(t, corrupt)

	var null Buttons
	require.NoError(t, null.Scan(nil))
	assert.Empty(t, null)
}
