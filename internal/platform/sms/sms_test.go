package sms

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carepulse/carepulse/internal/platform"
	"github.com/carepulse/carepulse/internal/platform/memory"
)

func TestTelnyxSenderPostsMessage(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"data":{"id":"msg-1","to":[{"status":"queued"}]}}`))
	}))
	defer srv.Close()

	sender, err := NewTelnyxSender(TelnyxConfig{BaseURL: srv.URL, APIKey: "key", MessagingProfileID: "prof"})
	require.NoError(t, err)

	receipt, err := sender.Send(context.Background(), Outbound{To: "+15550001111", From: "+15559990000", Body: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", receipt.ProviderMessageID)
	assert.Equal(t, "queued", receipt.Status)
	assert.Equal(t, "hi", got["text"])
	assert.Equal(t, "prof", got["messaging_profile_id"])
}

func TestTelnyxSenderSingleAttemptOnServerError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"errors":[{"title":"Service unavailable"}]}`))
	}))
	defer srv.Close()

	sender, err := NewTelnyxSender(TelnyxConfig{BaseURL: srv.URL, APIKey: "key"})
	require.NoError(t, err)

	_, err = sender.Send(context.Background(), Outbound{To: "+1", From: "+2", Body: "hi"})
	var apiErr *TelnyxError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestTwilioSenderPostsForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Accounts/AC1/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC1", user)
		assert.Equal(t, "tok", pass)
		body, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(body))
		assert.Equal(t, "+15550001111", form.Get("To"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	}))
	defer srv.Close()

	sender := NewTwilioSender("AC1", "tok", nil)
	sender.baseURL = srv.URL
	receipt, err := sender.Send(context.Background(), Outbound{To: "+15550001111", From: "+15559990000", Body: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "SM1", receipt.ProviderMessageID)
}

func TestTwilioSenderReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))
	defer srv.Close()

	sender := NewTwilioSender("AC1", "tok", nil)
	sender.baseURL = srv.URL
	_, err := sender.Send(context.Background(), Outbound{To: "bad", From: "+1", Body: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code 21211")
}

func TestBuildSender(t *testing.T) {
	both := ProviderConfig{
		TelnyxAPIKey: "k", TelnyxProfileID: "p",
		TwilioAccountSID: "AC", TwilioAuthToken: "t",
	}

	sender, provider, reason := BuildSender(both, nil)
	assert.NotNil(t, sender)
	assert.Equal(t, ProviderTelnyx, provider)
	assert.Empty(t, reason)

	both.Preference = "twilio"
	_, provider, _ = BuildSender(both, nil)
	assert.Equal(t, ProviderTwilio, provider)

	sender, provider, reason = BuildSender(ProviderConfig{Preference: "telnyx"}, nil)
	assert.Nil(t, sender)
	assert.Empty(t, provider)
	assert.Contains(t, reason, "TELNYX_API_KEY missing")

	_, _, reason = BuildSender(ProviderConfig{Preference: "pigeon"}, nil)
	assert.Contains(t, reason, "unknown SMS provider")
}

type fakeSender struct {
	sent []Outbound
	fail map[string]error
}

func (f *fakeSender) Send(_ context.Context, msg Outbound) (*Receipt, error) {
	if err := f.fail[msg.To]; err != nil {
		return nil, err
	}
	f.sent = append(f.sent, msg)
	return &Receipt{ProviderMessageID: "p-" + msg.To, Status: "queued"}, nil
}

func newTestLog(t *testing.T) *MessageLog {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewMessageLog(client, time.Hour, 2)
}

func TestServiceCreateSMS(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUsers()
	_, err := users.CreateUser(ctx, platform.NewUser{ID: "u1", Email: "a@example.com", Phone: "+15550001111"})
	require.NoError(t, err)
	_, err = users.CreateUser(ctx, platform.NewUser{ID: "u2", Email: "b@example.com"})
	require.NoError(t, err)

	sender := &fakeSender{}
	log := newTestLog(t)
	svc := NewService(users, sender, "fake", "+15559990000", log, nil)

	msg, err := svc.CreateSMS(ctx, "", "Your appointment is confirmed", nil, []string{"u1", "u2"})
	require.NoError(t, err)
	assert.Len(t, msg.ID, 32)
	assert.Equal(t, platform.MessageStatusSent, msg.Status)
	assert.Equal(t, 1, msg.DeliveredTotal)
	assert.Len(t, msg.DeliveryErrors, 1)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "+15550001111", sender.sent[0].To)
	assert.Equal(t, "+15559990000", sender.sent[0].From)

	recent, err := svc.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, msg.ID, recent[0].ID)
}

func TestServiceCreateSMSNothingDelivered(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUsers()
	_, err := users.CreateUser(ctx, platform.NewUser{ID: "u1", Email: "a@example.com", Phone: "+1"})
	require.NoError(t, err)

	sender := &fakeSender{fail: map[string]error{"+1": errors.New("carrier rejected")}}
	log := newTestLog(t)
	svc := NewService(users, sender, "fake", "+2", log, nil)

	_, err = svc.CreateSMS(ctx, "m1", "hello", nil, []string{"u1"})
	require.ErrorIs(t, err, ErrNotDelivered)
	assert.Contains(t, err.Error(), "carrier rejected")

	recent, err := log.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, platform.MessageStatusFailed, recent[0].Status)
}

func TestServiceValidatesInput(t *testing.T) {
	svc := NewService(memory.NewUsers(), &fakeSender{}, "fake", "+2", nil, nil)
	_, err := svc.CreateSMS(context.Background(), "", " ", nil, []string{"u1"})
	assert.Error(t, err)
	_, err = svc.CreateSMS(context.Background(), "", "hi", nil, nil)
	assert.Error(t, err)
}

func TestMessageLogCapsLength(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, log.Append(ctx, &platform.Message{ID: id}))
	}
	all, err := log.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)
	assert.Equal(t, "c", all[1].ID)

	var nilLog *MessageLog
	assert.NoError(t, nilLog.Append(ctx, &platform.Message{ID: "x"}))
}
