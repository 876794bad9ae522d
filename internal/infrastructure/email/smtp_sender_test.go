package email

import (
	"context"
	"testing"
	"time"

	"github.com/pressmarket/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("no-reply@pressmarket.io", "owner@example.com", "Publication approved", "<p>Approved.</p>"))

	assert.Contains(t, msg, "From: no-reply@pressmarket.io\r\n")
	assert.Contains(t, msg, "To: owner@example.com\r\n")
	assert.Contains(t, msg, "Subject: Publication approved\r\n")
	assert.Contains(t, msg, "Content-Type: text/html")
	assert.Contains(t, msg, "<p>Approved.</p>")

	// Headers before body, blank line in between.
	assert.Contains(t, msg, "\r\n\r\n<p>Approved.</p>")
}

func TestSanitizeHeader(t *testing.T) {
	assert.Equal(t, "a b c", sanitizeHeader("a\rb\nc"))
	assert.Equal(t, "plain", sanitizeHeader("plain"))
}

func TestSend_DialFailureRespectsContext(t *testing.T) {
	// Reserved TEST-NET address; nothing listens there.
	sender := NewSMTPSender(config.EmailConfig{
		Host: "192.0.2.1",
		Port: 2525,
		From: "no-reply@pressmarket.io",
	}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := sender.Send(ctx, "owner@example.com", "subject", "<p>body</p>")

	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
