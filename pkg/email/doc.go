// Package email sends transactional email.
//
// NewPostmarkSender delivers through Postmark; NewDevSender writes each
// message to a directory as .html and .json files for local inspection.
// Both validate the Message before doing any work.
//
// HTML bodies are templ components rendered with the templates subpackage:
//
//	html, err := templates.Render(ctx, templates.Layout("Welcome",
//		templates.Heading("Welcome"),
//		templates.Paragraph("Thanks for subscribing."),
//	))
package email
