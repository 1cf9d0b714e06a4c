package email

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
)

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is one outbound email. At least one of HTML or Text is required.
type Message struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	HTML    string `json:"-" validate:"required_without=Text"`
	Text    string `json:"-" validate:"required_without=HTML"`
	Tag     string `json:"tag,omitempty" validate:"omitempty,max=100"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (m Message) Validate() error {
	if err := validate.Struct(m); err != nil {
		return errors.Join(ErrInvalidMessage, err)
	}
	return nil
}
