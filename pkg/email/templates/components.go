package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Layout wraps the content components in a minimal HTML document that
// renders consistently across mail clients.
func Layout(title string, content ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!doctype html><html><head><meta charset="utf-8"><title>`+
			templ.EscapeString(title)+
			`</title></head><body style="font-family:sans-serif;color:#222">`); err != nil {
			return err
		}
		for _, c := range content {
			if c == nil {
				continue
			}
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// Heading renders an escaped h2.
func Heading(text string) templ.Component {
	return element(`<h2>`, text, `</h2>`)
}

// Paragraph renders an escaped paragraph.
func Paragraph(text string) templ.Component {
	return element(`<p>`, text, `</p>`)
}

// Footnote renders a muted paragraph; empty text renders nothing.
func Footnote(text string) templ.Component {
	if text == "" {
		return nil
	}
	return element(`<p style="color:#666">`, text, `</p>`)
}

func element(open, text, closing string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, open+templ.EscapeString(text)+closing)
		return err
	})
}
