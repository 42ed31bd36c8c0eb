package mail

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSender(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *Config
		expected string
	}{
		{
			name:     "mailgun when credentials are set",
			cfg:      &Config{Enabled: true, MailgunDomain: "mg.example.com", MailgunAPIKey: "key-abc123"},
			expected: "mailgun",
		},
		{
			name:     "log sender without domain",
			cfg:      &Config{Enabled: true, MailgunAPIKey: "key-abc123"},
			expected: "log",
		},
		{
			name:     "log sender without api key",
			cfg:      &Config{Enabled: true, MailgunDomain: "mg.example.com"},
			expected: "log",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := NewSender(tt.cfg, discardLogger())
			assert.Equal(t, tt.expected, sender.Name())
		})
	}
}

func TestMailgunSender_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *Config
		wantError string
	}{
		{
			name:      "all fields valid",
			cfg:       &Config{MailgunDomain: "mg.example.com", MailgunAPIKey: "key-abc123", FromEmail: "noreply@example.com", FromName: "Property Management"},
			wantError: "",
		},
		{
			name:      "missing FromEmail",
			cfg:       &Config{MailgunDomain: "mg.example.com", MailgunAPIKey: "key-abc123", FromName: "Property Management"},
			wantError: "MAIL_FROM_ADDRESS is required",
		},
		{
			name:      "missing FromName",
			cfg:       &Config{MailgunDomain: "mg.example.com", MailgunAPIKey: "key-abc123", FromEmail: "noreply@example.com"},
			wantError: "MAIL_FROM_NAME is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := NewMailgunSender(tt.cfg, discardLogger())
			require.NotNil(t, sender)

			err := sender.validate()
			if tt.wantError == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantError)
			}
		})
	}
}

func TestMailgunSender_NotConfigured(t *testing.T) {
	assert.Nil(t, NewMailgunSender(&Config{Enabled: true}, discardLogger()))
}

func TestSenders_Disabled(t *testing.T) {
	cfg := &Config{Enabled: false, MailgunDomain: "mg.example.com", MailgunAPIKey: "key-abc123"}
	msg := Message{To: Recipient{Email: "agent@example.com"}, Subject: "Hi", Text: "Hi"}

	for _, sender := range []Sender{NewMailgunSender(cfg, discardLogger()), NewLogSender(cfg, discardLogger())} {
		t.Run(sender.Name(), func(t *testing.T) {
			result, err := sender.Send(context.Background(), msg)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, ErrSenderDisabled)
		})
	}
}

func TestMailgunSender_Send(t *testing.T) {
	var form map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/messages") {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			form = r.MultipartForm.Value
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"<20250304.1@mg.example.com>","message":"Queued. Thank you."}`)
	}))
	defer server.Close()

	sender := NewMailgunSender(&Config{
		Enabled:        true,
		MailgunDomain:  "mg.example.com",
		MailgunAPIKey:  "key-abc123",
		MailgunAPIBase: server.URL + "/v3",
		FromEmail:      "noreply@example.com",
		FromName:       "Property Management",
	}, discardLogger())

	result, err := sender.Send(context.Background(), Message{
		To:      Recipient{Email: "agent@example.com", Name: "Jane Agent"},
		Subject: "Property Created Successfully - Lake House",
		HTML:    "<p>Hello</p>",
		Text:    "Hello",
		Tags:    []string{"email", "type:property_created"},
	})

	require.NoError(t, err)
	assert.Equal(t, "<20250304.1@mg.example.com>", result.MessageID)
	if form != nil {
		assert.Equal(t, []string{"Property Management <noreply@example.com>"}, form["from"])
		assert.Equal(t, []string{"Jane Agent <agent@example.com>"}, form["to"])
	}
}

func TestLogSender_Send(t *testing.T) {
	sender := NewLogSender(&Config{Enabled: true}, discardLogger())

	result, err := sender.Send(context.Background(), Message{To: Recipient{Email: "agent@example.com"}, Subject: "Hi"})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.MessageID, "log-"))
}
