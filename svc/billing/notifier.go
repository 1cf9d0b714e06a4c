package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/familykit/pkg/email"
	"github.com/dmitrymomot/familykit/pkg/email/templates"
	"github.com/dmitrymomot/familykit/pkg/logger"
	"github.com/dmitrymomot/familykit/pkg/subscription"
)

type emailContent struct {
	Subject  string
	Headline string
	Body     string
	Footer   string
	Tag      string
}

func (c emailContent) component() templ.Component {
	return templates.Layout(c.Subject,
		templates.Heading(c.Headline),
		templates.Paragraph(c.Body),
		templates.Footnote(c.Footer),
	)
}

// EmailNotifier emails the account owner about committed subscription changes.
type EmailNotifier struct {
	sender email.Sender
	users  subscription.UserStore
	plans  subscription.PlanRegistry
	log    *slog.Logger
}

var _ subscription.Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(sender email.Sender, users subscription.UserStore, plans subscription.PlanRegistry, log *slog.Logger) *EmailNotifier {
	if sender == nil || users == nil || plans == nil {
		panic("billing: sender, users and plans are required")
	}
	if log == nil {
		log = logger.Discard()
	}
	return &EmailNotifier{sender: sender, users: users, plans: plans, log: log}
}

func (n *EmailNotifier) SubscriptionChanged(ctx context.Context, change subscription.Change) error {
	sub := change.Subscription
	if sub == nil {
		return nil
	}

	planName := sub.PlanID
	if p, err := n.plans.Get(ctx, sub.PlanID); err == nil {
		planName = p.Name
	}

	content, ok := contentFor(change.Op, sub, planName)
	if !ok {
		return nil
	}

	user, err := n.users.GetUser(ctx, sub.UserID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}

	html, err := templates.Render(ctx, content.component())
	if err != nil {
		return errors.Join(email.ErrFailedToSendEmail, err)
	}

	msg := email.Message{
		To:      user.Email,
		Subject: content.Subject,
		HTML:    html,
		Text:    content.Headline + "\n\n" + content.Body,
		Tag:     content.Tag,
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return err
	}
	n.log.DebugContext(ctx, "subscription email sent",
		logger.UserID(sub.UserID),
		slog.String("tag", content.Tag),
	)
	return nil
}

// contentFor returns false for changes that do not warrant an email.
func contentFor(op subscription.Op, sub *subscription.Subscription, planName string) (emailContent, bool) {
	switch op {
	case subscription.OpCancel:
		body := fmt.Sprintf("Your %s subscription has been canceled.", planName)
		if sub.CurrentPeriodEnd != nil {
			body = fmt.Sprintf("Your %s subscription will end on %s. You keep full access until then.",
				planName, sub.CurrentPeriodEnd.Format(time.DateOnly))
		}
		return emailContent{
			Subject:  "Your subscription will not renew",
			Headline: "Cancellation scheduled",
			Body:     body,
			Footer:   "Changed your mind? You can reactivate any time before the period ends.",
			Tag:      "subscription-cancel",
		}, true
	case subscription.OpReactivate:
		return emailContent{
			Subject:  "Your subscription is active again",
			Headline: "Welcome back",
			Body:     fmt.Sprintf("Your %s subscription will renew as usual.", planName),
			Tag:      "subscription-reactivate",
		}, true
	case subscription.OpConfirm:
		switch sub.Status {
		case subscription.StatusPastDue:
			return emailContent{
				Subject:  "Payment failed",
				Headline: "We could not process your payment",
				Body:     "Please update your payment method. Until then your account is limited to the free plan.",
				Tag:      "subscription-past-due",
			}, true
		case subscription.StatusCanceled:
			return emailContent{
				Subject:  "Your subscription has ended",
				Headline: "Subscription ended",
				Body:     fmt.Sprintf("Your %s subscription has ended and your account is now on the free plan.", planName),
				Tag:      "subscription-ended",
			}, true
		case subscription.StatusActive, subscription.StatusTrialing:
			if !sub.CreatedAt.Equal(sub.UpdatedAt) {
				return emailContent{}, false
			}
			return emailContent{
				Subject:  "Thanks for subscribing",
				Headline: "Subscription confirmed",
				Body:     fmt.Sprintf("You are now on the %s plan.", planName),
				Tag:      "subscription-confirmed",
			}, true
		}
	}
	return emailContent{}, false
}
