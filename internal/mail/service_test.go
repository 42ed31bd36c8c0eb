package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/cuongbtq/property-be/internal/api/domain"
	"github.com/cuongbtq/property-be/internal/api/model"
	"github.com/cuongbtq/property-be/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSubmitter struct{ mock.Mock }

func (m *MockSubmitter) SubmitKind(ctx context.Context, queueName, kind string, data any, policy queue.RetryPolicy, tags ...string) (string, error) {
	args := m.Called(ctx, queueName, kind, data, policy, tags)
	return args.String(0), args.Error(1)
}

type MockSender struct{ mock.Mock }

func (m *MockSender) Send(ctx context.Context, msg Message) (*SendResult, error) {
	args := m.Called(ctx, msg)
	result, _ := args.Get(0).(*SendResult)
	return result, args.Error(1)
}

func (m *MockSender) Name() string { return "mock" }

type MockPropertyLookup struct{ mock.Mock }

func (m *MockPropertyLookup) GetProperty(ctx context.Context, id string) (*model.Property, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*model.Property)
	return p, args.Error(1)
}

func newTestService(submitter JobSubmitter, sender Sender) *EmailService {
	return NewEmailService(submitter, sender, NewTemplateService(testTemplateDir, discardLogger()), queue.DefaultRetryPolicy(), discardLogger())
}

func TestEmailService_SendPropertyCreatedEmail(t *testing.T) {
	recipient := Recipient{Email: "jane@example.com", Name: "Jane Agent"}

	t.Run("Queued", func(t *testing.T) {
		submitter := &MockSubmitter{}
		submitter.On("SubmitKind", mock.Anything, queue.QueueEmails, KindPropertyCreated,
			PropertyCreatedPayload{PropertyID: testProperty().ID, Recipient: recipient},
			queue.DefaultRetryPolicy(),
			[]string{"email", "type:property_created", "recipient:jane@example.com"},
		).Return("job-1", nil)

		n := newTestService(submitter, &MockSender{}).SendPropertyCreatedEmail(context.Background(), testProperty(), recipient)

		assert.True(t, n.Queued)
		assert.Equal(t, "job-1", n.JobID)
		assert.NoError(t, n.Err)
		submitter.AssertExpectations(t)
	})

	t.Run("Submission failure is reported, not raised", func(t *testing.T) {
		submitter := &MockSubmitter{}
		subErr := &queue.SubmissionError{Queue: queue.QueueEmails, Err: errors.New("connection refused")}
		submitter.On("SubmitKind", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", subErr)

		n := newTestService(submitter, &MockSender{}).SendPropertyCreatedEmail(context.Background(), testProperty(), recipient)

		assert.False(t, n.Queued)
		assert.Empty(t, n.JobID)
		var target *queue.SubmissionError
		assert.ErrorAs(t, n.Err, &target)
	})
}

func TestEmailService_SendEmail(t *testing.T) {
	submitter := &MockSubmitter{}
	submitter.On("SubmitKind", mock.Anything, queue.QueueEmails, KindSendEmail,
		mock.MatchedBy(func(p EmailPayload) bool {
			return p.EmailType == "welcome" && p.Message.To.Email == "bob@example.com" && p.Message.Subject == "Welcome"
		}),
		queue.DefaultRetryPolicy(),
		[]string{"email", "type:welcome", "recipient:bob@example.com"},
	).Return("job-2", nil)

	n := newTestService(submitter, &MockSender{}).SendEmail(context.Background(),
		Message{Subject: "Welcome", Text: "Hi Bob"}, Recipient{Email: "bob@example.com"}, "welcome")

	assert.True(t, n.Queued)
	assert.Equal(t, "job-2", n.JobID)
	submitter.AssertExpectations(t)
}

func TestEmailService_SendBatchEmails(t *testing.T) {
	output := &bytes.Buffer{}
	submitter := &MockSubmitter{}
	submitter.On("SubmitKind", mock.Anything, queue.QueueEmails, KindSendEmail, mock.Anything, mock.Anything, mock.Anything).
		Return("job-x", nil)

	service := NewEmailService(submitter, &MockSender{}, nil, queue.DefaultRetryPolicy(),
		slog.New(slog.NewJSONHandler(output, nil)))

	notifications := service.SendBatchEmails(context.Background(), []BatchEmail{
		{Message: &Message{Subject: "One"}, Recipient: Recipient{Email: "a@example.com"}},
		{Message: nil, Recipient: Recipient{Email: "b@example.com"}},
		{Message: &Message{Subject: "Three"}, Recipient: Recipient{}},
		{Message: &Message{Subject: "Four"}, Recipient: Recipient{Email: "d@example.com"}, Type: "digest"},
	})

	require.Len(t, notifications, 2)
	submitter.AssertNumberOfCalls(t, "SubmitKind", 2)

	first := submitter.Calls[0].Arguments.Get(3).(EmailPayload)
	assert.Equal(t, "batch", first.EmailType)
	second := submitter.Calls[1].Arguments.Get(3).(EmailPayload)
	assert.Equal(t, "digest", second.EmailType)

	assert.Equal(t, 2, bytes.Count(output.Bytes(), []byte("Invalid email data in batch")))
}

func TestEmailService_IsAvailable(t *testing.T) {
	assert.True(t, newTestService(&MockSubmitter{}, &MockSender{}).IsAvailable(context.Background()))
	assert.False(t, newTestService(nil, &MockSender{}).IsAvailable(context.Background()))
}

func TestEmailService_SendDirect(t *testing.T) {
	sender := &MockSender{}
	sender.On("Send", mock.Anything, mock.MatchedBy(func(m Message) bool {
		return m.To.Email == "jane@example.com" && m.Subject == "Property Created Successfully - Lake House" && m.HTML != ""
	})).Return(&SendResult{MessageID: "msg-1"}, nil)

	result, err := newTestService(&MockSubmitter{}, sender).SendDirect(context.Background(), testProperty(), Recipient{Email: "jane@example.com"})

	require.NoError(t, err)
	assert.Equal(t, "msg-1", result.MessageID)
	sender.AssertExpectations(t)
}

func propertyCreatedJob(t *testing.T) *queue.Job {
	t.Helper()
	payload, err := queue.NewPayload(KindPropertyCreated, PropertyCreatedPayload{
		PropertyID: testProperty().ID,
		Recipient:  Recipient{Email: "jane@example.com", Name: "Jane Agent"},
	})
	require.NoError(t, err)
	return &queue.Job{ID: "job-1", Queue: queue.QueueEmails, Payload: payload, MaxAttempts: 3, MaxExceptions: 2, TimeoutSeconds: 60, BackoffSeconds: 30}
}

func TestPropertyCreatedHandler_Handle(t *testing.T) {
	tests := []struct {
		name      string
		lookupErr error
		sendErr   error
		check     func(t *testing.T, err error)
	}{
		{
			name: "Sends email",
			check: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name:      "Deleted property fails permanently",
			lookupErr: domain.ErrPropertyNotFound,
			check: func(t *testing.T, err error) {
				var permanent *queue.PermanentError
				assert.ErrorAs(t, err, &permanent)
			},
		},
		{
			name:    "Disabled sender releases the job",
			sendErr: ErrSenderDisabled,
			check: func(t *testing.T, err error) {
				var release *queue.ReleaseError
				require.ErrorAs(t, err, &release)
				assert.Equal(t, 2*time.Minute, release.Delay)
			},
		},
		{
			name:    "Transport error is returned for retry",
			sendErr: errors.New("mailgun: 502 Bad Gateway"),
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "mailgun: 502 Bad Gateway")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &MockPropertyLookup{}
			if tt.lookupErr != nil {
				lookup.On("GetProperty", mock.Anything, testProperty().ID).Return(nil, tt.lookupErr)
			} else {
				lookup.On("GetProperty", mock.Anything, testProperty().ID).Return(testProperty(), nil)
			}

			sender := &MockSender{}
			if tt.sendErr != nil {
				sender.On("Send", mock.Anything, mock.Anything).Return(nil, tt.sendErr)
			} else {
				sender.On("Send", mock.Anything, mock.Anything).Return(&SendResult{MessageID: "msg-1"}, nil)
			}

			handler := NewPropertyCreatedHandler(lookup, sender, NewTemplateService(testTemplateDir, discardLogger()), 2*time.Minute, discardLogger())
			err := handler.Handle(context.Background(), propertyCreatedJob(t))

			tt.check(t, err)
			lookup.AssertExpectations(t)
		})
	}
}

func TestPropertyCreatedHandler_Failed(t *testing.T) {
	output := &bytes.Buffer{}
	handler := NewPropertyCreatedHandler(&MockPropertyLookup{}, &MockSender{}, nil, 0, slog.New(slog.NewJSONHandler(output, nil)))

	job := propertyCreatedJob(t)
	job.Attempts = 2
	err := handler.Failed(context.Background(), job, errors.New("mailgun: 401 Unauthorized"))
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(output.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "Property created email job failed permanently", entry["msg"])
	assert.Equal(t, "jane@example.com", entry["recipient"])
	assert.Equal(t, float64(3), entry["attempts"])
	assert.Equal(t, "mailgun: 401 Unauthorized", entry["error"])
}

func TestGenericEmailHandler_Handle(t *testing.T) {
	newJob := func(t *testing.T, to string) *queue.Job {
		payload, err := queue.NewPayload(KindSendEmail, EmailPayload{
			Message:   Message{To: Recipient{Email: to}, Subject: "Welcome", Text: "Hi"},
			EmailType: "welcome",
		})
		require.NoError(t, err)
		return &queue.Job{ID: "job-2", Queue: queue.QueueEmails, Payload: payload}
	}

	t.Run("Sends message", func(t *testing.T) {
		sender := &MockSender{}
		sender.On("Send", mock.Anything, mock.MatchedBy(func(m Message) bool { return m.To.Email == "bob@example.com" })).
			Return(&SendResult{MessageID: "msg-2"}, nil)

		err := NewGenericEmailHandler(sender, 0, discardLogger()).Handle(context.Background(), newJob(t, "bob@example.com"))

		assert.NoError(t, err)
		sender.AssertExpectations(t)
	})

	t.Run("Missing recipient fails permanently", func(t *testing.T) {
		sender := &MockSender{}

		err := NewGenericEmailHandler(sender, 0, discardLogger()).Handle(context.Background(), newJob(t, ""))

		var permanent *queue.PermanentError
		assert.ErrorAs(t, err, &permanent)
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("Disabled sender releases with default delay", func(t *testing.T) {
		sender := &MockSender{}
		sender.On("Send", mock.Anything, mock.Anything).Return(nil, ErrSenderDisabled)

		err := NewGenericEmailHandler(sender, 0, discardLogger()).Handle(context.Background(), newJob(t, "bob@example.com"))

		var release *queue.ReleaseError
		require.ErrorAs(t, err, &release)
		assert.Equal(t, time.Minute, release.Delay)
	})

	t.Run("Malformed payload", func(t *testing.T) {
		job := &queue.Job{ID: "job-3", Payload: queue.Payload{Kind: KindSendEmail}}

		err := NewGenericEmailHandler(&MockSender{}, 0, discardLogger()).Handle(context.Background(), job)

		assert.ErrorIs(t, err, queue.ErrInvalidPayload)
	})
}
