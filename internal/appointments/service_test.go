package appointments

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carepulse/carepulse/internal/config"
	"github.com/carepulse/carepulse/internal/observability/metrics"
	"github.com/carepulse/carepulse/internal/platform"
	"github.com/carepulse/carepulse/internal/platform/memory"
)

func testPlatform() config.Platform {
	return config.Platform{
		DatabaseID:              "db",
		PatientCollectionID:     "patients",
		AppointmentCollectionID: "appointments",
		BucketID:                "ids",
		ProjectID:               "proj",
		Endpoint:                "https://platform.test/v1",
	}
}

type smsCall struct {
	userID  string
	content string
}

type fakeNotifier struct {
	calls []smsCall
	err   error
}

func (f *fakeNotifier) SendSMS(_ context.Context, userID, content string) (*platform.Message, error) {
	f.calls = append(f.calls, smsCall{userID: userID, content: content})
	if f.err != nil {
		return nil, f.err
	}
	return &platform.Message{ID: "m1", Content: content, Users: []string{userID}, Status: "sent"}, nil
}

type fixture struct {
	svc      *Service
	docs     *memory.Documents
	notifier *fakeNotifier
}

func newFixture(t *testing.T, cfg config.Platform, cache *SummaryCache) fixture {
	t.Helper()
	f := fixture{docs: memory.NewDocuments(), notifier: &fakeNotifier{}}
	f.svc = NewService(f.docs, cfg, f.notifier, cache, nil, nil)
	_, err := f.docs.CreateDocument(context.Background(), "db", "patients", "p1", map[string]any{
		"userId":           "u1",
		"name":             "Jane Doe",
		"email":            "jane@example.com",
		"phone":            "+15551234567",
		"gender":           "female",
		"primaryPhysician": "Green",
		"privacyConsent":   true,
	})
	require.NoError(t, err)
	return f
}

var schedule = time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC)

func newAppointment(status Status) CreateAppointmentParams {
	return CreateAppointmentParams{
		UserID:           "u1",
		Patient:          "p1",
		PrimaryPhysician: "Green",
		Schedule:         schedule,
		Reason:           "checkup",
		Status:           status,
	}
}

func TestCreateAppointmentExpandsPatient(t *testing.T) {
	f := newFixture(t, testPlatform(), nil)

	appt, err := f.svc.CreateAppointment(context.Background(), newAppointment(""))
	require.NoError(t, err)

	assert.Len(t, appt.ID, 32)
	assert.Equal(t, StatusPending, appt.Status)
	assert.True(t, appt.Schedule.Equal(schedule))
	assert.Nil(t, appt.CancellationReason)
	require.NotNil(t, appt.Patient)
	assert.Equal(t, "Jane Doe", appt.Patient.Name)
}

func TestCreateAppointmentRequiresConfig(t *testing.T) {
	cfg := testPlatform()
	cfg.AppointmentCollectionID = ""
	f := newFixture(t, cfg, nil)

	_, err := f.svc.CreateAppointment(context.Background(), newAppointment(StatusScheduled))
	assert.ErrorIs(t, err, config.ErrMissingConfig)
}

func TestCreateAppointmentRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t, testPlatform(), nil)
	_, err := f.svc.CreateAppointment(context.Background(), newAppointment("rescheduled"))
	assert.ErrorIs(t, err, ErrInvalidAppointment)
}

func TestListRecentAppointmentsCounts(t *testing.T) {
	f := newFixture(t, testPlatform(), nil)
	ctx := context.Background()
	for _, status := range []Status{StatusScheduled, StatusPending, StatusPending, StatusCancelled} {
		_, err := f.svc.CreateAppointment(ctx, newAppointment(status))
		require.NoError(t, err)
	}
	// written around the service so the status is not validated
	_, err := f.docs.CreateDocument(ctx, "db", "appointments", "legacy", map[string]any{
		"userId":   "u1",
		"patient":  "p1",
		"schedule": schedule.Format(time.RFC3339),
		"status":   "rescheduled",
	})
	require.NoError(t, err)

	list, err := f.svc.ListRecentAppointments(ctx)
	require.NoError(t, err)

	assert.Equal(t, 5, list.TotalCount)
	assert.Equal(t, 1, list.ScheduledCount)
	assert.Equal(t, 2, list.PendingCount)
	assert.Equal(t, 1, list.CancelledCount)
	require.Len(t, list.Documents, 5)
	for i := 1; i < len(list.Documents); i++ {
		assert.False(t, list.Documents[i].CreatedAt.After(list.Documents[i-1].CreatedAt), "not newest first")
	}
	for _, appt := range list.Documents {
		require.NotNil(t, appt.Patient)
		assert.Equal(t, "p1", appt.Patient.ID)
	}
}

func TestCountsNeverExceedTotal(t *testing.T) {
	statuses := []Status{StatusScheduled, StatusPending, StatusCancelled, "", "archived"}
	for n := 0; n < 50; n++ {
		var list []*Appointment
		allKnown := true
		for i := 0; i <= n%7; i++ {
			s := statuses[(n*3+i)%len(statuses)]
			allKnown = allKnown && s.Valid()
			list = append(list, &Appointment{Status: s})
		}
		scheduled, pending, cancelled := Counts(list)
		sum := scheduled + pending + cancelled
		if sum > len(list) {
			t.Fatalf("counts %d exceed total %d", sum, len(list))
		}
		if (sum == len(list)) != allKnown {
			t.Fatalf("equality should hold iff every status is known: sum=%d total=%d known=%v", sum, len(list), allKnown)
		}
	}
}

func TestUpdateAppointmentCancelSendsReason(t *testing.T) {
	f := newFixture(t, testPlatform(), nil)
	ctx := context.Background()
	created, err := f.svc.CreateAppointment(ctx, newAppointment(StatusScheduled))
	require.NoError(t, err)

	status := StatusCancelled
	reason := "physician unavailable"
	updated, err := f.svc.UpdateAppointment(ctx, UpdateAppointmentParams{
		AppointmentID: created.ID,
		UserID:        "u1",
		TimeZone:      "America/New_York",
		Type:          UpdateTypeCancel,
		Appointment:   Patch{Status: &status, CancellationReason: &reason},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, updated.Status)
	require.NotNil(t, updated.CancellationReason)
	assert.Equal(t, reason, *updated.CancellationReason)

	require.Len(t, f.notifier.calls, 1)
	call := f.notifier.calls[0]
	assert.Equal(t, "u1", call.userID)
	assert.Equal(t,
		"Greetings from carepulse. We regret to inform you that your appointment for Mar 5, 2024, 9:30 AM is cancelled. Reason: physician unavailable.",
		call.content)
}

func TestUpdateAppointmentScheduleSendsConfirmation(t *testing.T) {
	f := newFixture(t, testPlatform(), nil)
	ctx := context.Background()
	created, err := f.svc.CreateAppointment(ctx, newAppointment(StatusPending))
	require.NoError(t, err)

	status := StatusScheduled
	physician := "Cruz"
	next := schedule.Add(48 * time.Hour)
	_, err = f.svc.UpdateAppointment(ctx, UpdateAppointmentParams{
		AppointmentID: created.ID,
		UserID:        "u1",
		TimeZone:      "UTC",
		Type:          UpdateTypeSchedule,
		Appointment:   Patch{Status: &status, PrimaryPhysician: &physician, Schedule: &next},
	})
	require.NoError(t, err)

	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, "Greetings from carepulse. Your appointment is confirmed for Mar 7, 2024, 2:30 PM with Dr. Cruz.", f.notifier.calls[0].content)

	got, err := f.svc.GetAppointment(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, got.Status)
	assert.Equal(t, "Cruz", got.PrimaryPhysician)
	assert.Equal(t, "checkup", got.Reason)
}

func TestUpdateAppointmentUnknownZoneWritesNothing(t *testing.T) {
	f := newFixture(t, testPlatform(), nil)
	ctx := context.Background()
	created, err := f.svc.CreateAppointment(ctx, newAppointment(StatusPending))
	require.NoError(t, err)

	status := StatusScheduled
	_, err = f.svc.UpdateAppointment(ctx, UpdateAppointmentParams{
		AppointmentID: created.ID,
		UserID:        "u1",
		TimeZone:      "Mars/Olympus_Mons",
		Type:          UpdateTypeSchedule,
		Appointment:   Patch{Status: &status},
	})
	assert.ErrorIs(t, err, ErrInvalidAppointment)
	assert.Empty(t, f.notifier.calls)

	got, err := f.svc.GetAppointment(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestUpdateAppointmentMissingDocument(t *testing.T) {
	f := newFixture(t, testPlatform(), nil)
	_, err := f.svc.UpdateAppointment(context.Background(), UpdateAppointmentParams{
		AppointmentID: "missing",
		UserID:        "u1",
		Type:          UpdateTypeCancel,
	})
	assert.ErrorIs(t, err, platform.ErrNotFound)
	assert.Empty(t, f.notifier.calls)
}

type nilUpdateDocs struct{ *memory.Documents }

func (nilUpdateDocs) UpdateDocument(context.Context, string, string, string, map[string]any) (*platform.Document, error) {
	return nil, nil
}

func TestUpdateAppointmentEmptyResultFails(t *testing.T) {
	docs := nilUpdateDocs{memory.NewDocuments()}
	notifier := &fakeNotifier{}
	svc := NewService(docs, testPlatform(), notifier, nil, nil, nil)

	_, err := svc.UpdateAppointment(context.Background(), UpdateAppointmentParams{
		AppointmentID: "a1",
		UserID:        "u1",
		Type:          UpdateTypeSchedule,
	})
	assert.ErrorIs(t, err, ErrUpdateFailed)
	assert.EqualError(t, err, "failed to update appointment")
	assert.Empty(t, notifier.calls)
}

func TestUpdateAppointmentPropagatesNotifierFailure(t *testing.T) {
	f := newFixture(t, testPlatform(), nil)
	ctx := context.Background()
	created, err := f.svc.CreateAppointment(ctx, newAppointment(StatusPending))
	require.NoError(t, err)

	f.notifier.err = errors.New("provider down")
	_, err = f.svc.UpdateAppointment(ctx, UpdateAppointmentParams{
		AppointmentID: created.ID,
		UserID:        "u1",
		Type:          UpdateTypeSchedule,
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "provider down"))
}

func TestCreateAppointmentUnknownPatientLeavesNil(t *testing.T) {
	f := newFixture(t, testPlatform(), nil)
	params := newAppointment(StatusPending)
	params.Patient = "gone"
	created, err := f.svc.CreateAppointment(context.Background(), params)
	require.NoError(t, err)
	assert.Nil(t, created.Patient)
}

func TestSendSMSNotification(t *testing.T) {
	f := newFixture(t, testPlatform(), nil)
	msg, err := f.svc.SendSMSNotification(context.Background(), "u1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
	require.Len(t, f.notifier.calls, 1)

	f.notifier.err = errors.New("boom")
	_, err = f.svc.SendSMSNotification(context.Background(), "u1", "again")
	assert.Error(t, err)
}

func TestSendSMSNotificationRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newFixture(t, testPlatform(), nil)
	f.svc.metrics = metrics.New(reg)

	_, err := f.svc.SendSMSNotification(context.Background(), "u1", "hello")
	require.NoError(t, err)
	f.notifier.err = errors.New("boom")
	_, err = f.svc.SendSMSNotification(context.Background(), "u1", "again")
	require.Error(t, err)

	assert.Equal(t, 1.0, actionCount(t, reg, "send_sms_notification", metrics.OutcomeSuccess))
	assert.Equal(t, 1.0, actionCount(t, reg, "send_sms_notification", metrics.OutcomeError))
}

func actionCount(t *testing.T, reg *prometheus.Registry, action, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "carepulse_actions_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["action"] == action && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
