package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prosaude/scheduling-platform/pkg/logging"
)

func testLogger() *logging.Logger {
	return logging.NewWithWriter("error", io.Discard)
}

func TestWhatsAppSendTemplate(t *testing.T) {
	var captured waTemplatePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"messages": [{"id": "wamid.abc"}]}`))
	}))
	defer srv.Close()

	s := NewWhatsAppSender("tok", "12345", srv.URL, RetryPolicy{}, testLogger())
	result, err := s.SendTemplate(context.Background(), OutboundTemplate{
		OrgID:    "org-1",
		To:       "+5511987654321",
		Template: "lembrete_24h",
		Params:   []string{"Maria", "Dr(a). Ana Souza", "02/03/2026", "10:00"},
	})
	require.NoError(t, err)
	assert.Equal(t, "wamid.abc", result.MessageID)
	assert.Equal(t, "whatsapp", result.Provider)

	assert.Equal(t, "whatsapp", captured.MessagingProduct)
	assert.Equal(t, "lembrete_24h", captured.Template.Name)
	assert.Equal(t, "pt_BR", captured.Template.Language.Code)
	require.Len(t, captured.Template.Components, 1)
	assert.Len(t, captured.Template.Components[0].Parameters, 4)
}

func TestWhatsAppRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"messages": [{"id": "wamid.retry"}]}`))
	}))
	defer srv.Close()

	s := NewWhatsAppSender("tok", "12345", srv.URL, RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond}, testLogger())
	result, err := s.SendText(context.Background(), OutboundText{To: "+5511987654321", Body: "oi"})
	require.NoError(t, err)
	assert.Equal(t, "wamid.retry", result.MessageID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWhatsAppDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "template not found", "code": 132001}}`))
	}))
	defer srv.Close()

	s := NewWhatsAppSender("tok", "12345", srv.URL, RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}, testLogger())
	_, err := s.SendTemplate(context.Background(), OutboundTemplate{To: "+5511987654321", Template: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template not found")
	assert.Equal(t, int32(1), calls.Load())
}

type stubMessenger struct {
	result SendResult
	err    error
	calls  int
}

func (s *stubMessenger) SendTemplate(ctx context.Context, msg OutboundTemplate) (SendResult, error) {
	s.calls++
	return s.result, s.err
}

func (s *stubMessenger) SendText(ctx context.Context, msg OutboundText) (SendResult, error) {
	s.calls++
	return s.result, s.err
}

func TestFailoverFallsBackOnPrimaryError(t *testing.T) {
	primary := &stubMessenger{err: errors.New("down")}
	secondary := &stubMessenger{result: SendResult{MessageID: "SM123", Provider: "twilio"}}

	f := NewFailoverMessenger(primary, "whatsapp", secondary, "twilio", testLogger())
	result, err := f.SendTemplate(context.Background(), OutboundTemplate{To: "+55", Template: "x", FallbackBody: "oi"})
	require.NoError(t, err)
	assert.Equal(t, "SM123", result.MessageID)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestFailoverSkipsSecondaryOnSuccess(t *testing.T) {
	primary := &stubMessenger{result: SendResult{MessageID: "wamid.ok"}}
	secondary := &stubMessenger{}

	f := NewFailoverMessenger(primary, "whatsapp", secondary, "twilio", testLogger())
	result, err := f.SendText(context.Background(), OutboundText{To: "+55", Body: "oi"})
	require.NoError(t, err)
	assert.Equal(t, "wamid.ok", result.MessageID)
	assert.Zero(t, secondary.calls)
}

func TestBuildMessengerSelection(t *testing.T) {
	m, name, reason := BuildMessenger(ProviderSelectionConfig{
		WhatsAppToken:   "tok",
		WhatsAppPhoneID: "12345",
	}, testLogger())
	require.NotNil(t, m)
	assert.Equal(t, ProviderWhatsApp, name)
	assert.Empty(t, reason)

	m, name, reason = BuildMessenger(ProviderSelectionConfig{
		WhatsAppToken:    "tok",
		WhatsAppPhoneID:  "12345",
		TwilioAccountSID: "AC1",
		TwilioAuthToken:  "secret",
		TwilioFromNumber: "+14155238886",
	}, testLogger())
	require.NotNil(t, m)
	assert.IsType(t, &FailoverMessenger{}, m)
	assert.Equal(t, "whatsapp+twilio", name)
	assert.Empty(t, reason)

	m, _, reason = BuildMessenger(ProviderSelectionConfig{}, testLogger())
	assert.Nil(t, m)
	assert.NotEmpty(t, reason)
}
