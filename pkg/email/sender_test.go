package email_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/familykit/pkg/email"
)

func TestMessage_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		msg   email.Message
		valid bool
	}{
		{"html only", email.Message{To: "a@example.com", Subject: "Hi", HTML: "<p>hi</p>"}, true},
		{"text only", email.Message{To: "a@example.com", Subject: "Hi", Text: "hi"}, true},
		{"missing body", email.Message{To: "a@example.com", Subject: "Hi"}, false},
		{"bad recipient", email.Message{To: "nope", Subject: "Hi", Text: "hi"}, false},
		{"missing subject", email.Message{To: "a@example.com", Text: "hi"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.msg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, email.ErrInvalidMessage)
			}
		})
	}
}

func TestNewPostmarkSender(t *testing.T) {
	t.Parallel()

	_, err := email.NewPostmarkSender(email.Config{SenderEmail: "a@example.com", SupportEmail: "b@example.com"})
	assert.ErrorIs(t, err, email.ErrInvalidConfig)

	_, err = email.NewPostmarkSender(email.Config{PostmarkServerToken: "tok", SenderEmail: "bad", SupportEmail: "b@example.com"})
	assert.ErrorIs(t, err, email.ErrInvalidConfig)

	s, err := email.NewPostmarkSender(email.Config{PostmarkServerToken: "tok", SenderEmail: "a@example.com", SupportEmail: "b@example.com"})
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestDevSender(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := email.NewDevSender(dir)

	err := s.Send(context.Background(), email.Message{
		To:      "parent@example.com",
		Subject: "Your plan changed",
		HTML:    "<p>Premium</p>",
		Text:    "Premium",
		Tag:     "subscription cancel",
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var jsonFile string
	for _, e := range entries {
		assert.Contains(t, e.Name(), "subscription_cancel")
		if strings.HasSuffix(e.Name(), ".json") {
			jsonFile = filepath.Join(dir, e.Name())
		}
	}
	require.NotEmpty(t, jsonFile)

	raw, err := os.ReadFile(jsonFile)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(raw, &rec))
	assert.Equal(t, "parent@example.com", rec["to"])
	assert.Equal(t, "Premium", rec["text"])

	err = s.Send(context.Background(), email.Message{To: "x"})
	assert.ErrorIs(t, err, email.ErrInvalidMessage)
}
