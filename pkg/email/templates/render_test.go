package templates_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/familykit/pkg/email/templates"
)

func TestRender(t *testing.T) {
	t.Parallel()

	t.Run("layout with content", func(t *testing.T) {
		t.Parallel()
		html, err := templates.Render(context.Background(), templates.Layout("Welcome back",
			templates.Heading("Welcome back"),
			templates.Paragraph("Your Premium subscription will renew as usual."),
			templates.Footnote(""),
		))
		require.NoError(t, err)
		assert.Contains(t, html, "<title>Welcome back</title>")
		assert.Contains(t, html, "<h2>Welcome back</h2>")
		assert.Contains(t, html, "<p>Your Premium subscription will renew as usual.</p>")
		assert.NotContains(t, html, "color:#666")
		assert.True(t, strings.HasSuffix(html, "</html>"))
	})

	t.Run("text is escaped", func(t *testing.T) {
		t.Parallel()
		html, err := templates.Render(context.Background(), templates.Paragraph(`<script>alert("x")</script>`))
		require.NoError(t, err)
		assert.NotContains(t, html, "<script>")
		assert.Contains(t, html, "&lt;script&gt;")
	})

	t.Run("component error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("render failed")
		failing := templ.ComponentFunc(func(context.Context, io.Writer) error { return boom })

		html, err := templates.Render(context.Background(), templates.Layout("x", failing))
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, html)
	})
}
