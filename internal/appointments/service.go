package appointments

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carepulse/carepulse/internal/config"
	"github.com/carepulse/carepulse/internal/observability/metrics"
	"github.com/carepulse/carepulse/internal/patients"
	"github.com/carepulse/carepulse/internal/platform"
	"github.com/carepulse/carepulse/pkg/datetime"
	"github.com/carepulse/carepulse/pkg/jsonutil"
	"github.com/carepulse/carepulse/pkg/logging"
)

var tracer = otel.Tracer("carepulse.internal.appointments")

// Notifier sends a text message to one platform user.
type Notifier interface {
	SendSMS(ctx context.Context, userID, content string) (*platform.Message, error)
}

// Service implements the appointment actions on top of the platform.
type Service struct {
	docs     platform.Documents
	cfg      config.Platform
	notifier Notifier
	cache    *SummaryCache
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// NewService wires the appointment actions. cache and m may be nil.
func NewService(docs platform.Documents, cfg config.Platform, notifier Notifier, cache *SummaryCache, m *metrics.Metrics, logger *logging.Logger) *Service {
	if docs == nil {
		panic("appointments: documents required")
	}
	if notifier == nil {
		panic("appointments: notifier required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		docs:     docs,
		cfg:      cfg,
		notifier: notifier,
		cache:    cache,
		metrics:  m,
		logger:   logger,
	}
}

// CreateAppointment stores a new appointment under a fresh id.
func (s *Service) CreateAppointment(ctx context.Context, params CreateAppointmentParams) (appt *Appointment, err error) {
	defer s.observe("create_appointment", time.Now(), &err)
	if err := s.cfg.RequireAppointments(); err != nil {
		s.logger.Error("cannot create appointment", "error", err)
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "appointments.create")
	defer span.End()
	span.SetAttributes(attribute.String("carepulse.user_id", params.UserID))

	data, err := jsonutil.Decode[map[string]any](params)
	if err != nil {
		return nil, fmt.Errorf("appointments: encode appointment: %w", err)
	}
	doc, err := s.docs.CreateDocument(ctx, s.cfg.DatabaseID, s.cfg.AppointmentCollectionID, platform.UniqueID(), data)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("failed to create appointment", "error", err, "user_id", params.UserID)
		return nil, fmt.Errorf("appointments: create appointment: %w", err)
	}
	s.invalidateSummary(ctx)
	s.logger.Info("appointment created", "appointment_id", doc.ID, "status", params.Status)
	return s.decodeOne(ctx, doc)
}

// ListRecentAppointments returns every appointment newest first with status counts.
func (s *Service) ListRecentAppointments(ctx context.Context) (list *AppointmentList, err error) {
	defer s.observe("list_recent_appointments", time.Now(), &err)
	if err := s.cfg.RequireAppointments(); err != nil {
		s.logger.Error("cannot list appointments", "error", err)
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "appointments.list_recent")
	defer span.End()

	cached, generation, ok, cacheErr := s.cache.Get(ctx)
	switch {
	case cacheErr != nil:
		s.metrics.ObserveSummaryCache("error")
		s.logger.Warn("summary cache read failed", "error", cacheErr)
	case ok:
		s.metrics.ObserveSummaryCache("hit")
		return cached, nil
	case s.cache != nil:
		s.metrics.ObserveSummaryCache("miss")
	}

	result, err := s.docs.ListDocuments(ctx, s.cfg.DatabaseID, s.cfg.AppointmentCollectionID, platform.OrderDesc(platform.AttrCreatedAt))
	if err != nil {
		span.RecordError(err)
		s.logger.Error("failed to retrieve recent appointments", "error", err)
		return nil, fmt.Errorf("appointments: list appointments: %w", err)
	}
	docs, err := s.decode(ctx, result.Documents)
	if err != nil {
		return nil, err
	}

	scheduled, pending, cancelled := Counts(docs)
	if known := scheduled + pending + cancelled; known != len(docs) {
		s.logger.Warn("appointments with unknown status excluded from counts", "unclassified", len(docs)-known)
	}
	list = &AppointmentList{
		TotalCount:     result.Total,
		ScheduledCount: scheduled,
		PendingCount:   pending,
		CancelledCount: cancelled,
		Documents:      docs,
	}
	span.SetAttributes(attribute.Int("carepulse.appointments.total", list.TotalCount))
	if cacheErr == nil {
		if err := s.cache.Set(ctx, generation, list); err != nil {
			s.logger.Warn("summary cache write failed", "error", err)
		}
	}
	return list, nil
}

// UpdateAppointment applies a partial update and texts the owning user a
// confirmation or cancellation notice.
func (s *Service) UpdateAppointment(ctx context.Context, params UpdateAppointmentParams) (appt *Appointment, err error) {
	defer s.observe("update_appointment", time.Now(), &err)
	if err := s.cfg.RequireAppointments(); err != nil {
		s.logger.Error("cannot update appointment", "error", err)
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	// an unknown zone must fail before anything is written
	if _, err := datetime.Format(time.Now(), params.TimeZone); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAppointment, err)
	}
	ctx, span := tracer.Start(ctx, "appointments.update")
	defer span.End()
	span.SetAttributes(
		attribute.String("carepulse.appointment_id", params.AppointmentID),
		attribute.String("carepulse.update_type", params.Type),
	)

	patch, err := jsonutil.Decode[map[string]any](params.Appointment)
	if err != nil {
		return nil, fmt.Errorf("appointments: encode patch: %w", err)
	}
	doc, err := s.docs.UpdateDocument(ctx, s.cfg.DatabaseID, s.cfg.AppointmentCollectionID, params.AppointmentID, patch)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("failed to update appointment", "error", err, "appointment_id", params.AppointmentID)
		return nil, fmt.Errorf("appointments: update appointment: %w", err)
	}
	if doc == nil {
		s.logger.Error("failed to update appointment", "error", ErrUpdateFailed, "appointment_id", params.AppointmentID)
		return nil, ErrUpdateFailed
	}
	s.invalidateSummary(ctx)

	appt, err = s.decodeOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	formatted, err := datetime.Format(appt.Schedule, params.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("appointments: format schedule: %w", err)
	}
	text := notificationText(params, appt, formatted.DateTime)
	if _, err := s.notifier.SendSMS(ctx, params.UserID, text); err != nil {
		span.RecordError(err)
		s.logger.Error("failed to notify patient of appointment update", "error", err, "appointment_id", appt.ID)
		return nil, fmt.Errorf("appointments: notify user: %w", err)
	}
	s.logger.Info("appointment updated", "appointment_id", appt.ID, "type", params.Type, "status", appt.Status)
	return appt, nil
}

// GetAppointment fetches one appointment with its patient expanded.
func (s *Service) GetAppointment(ctx context.Context, appointmentID string) (appt *Appointment, err error) {
	defer s.observe("get_appointment", time.Now(), &err)
	if err := s.cfg.RequireAppointments(); err != nil {
		s.logger.Error("cannot get appointment", "error", err)
		return nil, err
	}
	doc, err := s.docs.GetDocument(ctx, s.cfg.DatabaseID, s.cfg.AppointmentCollectionID, appointmentID)
	if err != nil {
		s.logger.Error("failed to retrieve appointment", "error", err, "appointment_id", appointmentID)
		return nil, fmt.Errorf("appointments: get appointment: %w", err)
	}
	return s.decodeOne(ctx, doc)
}

// SendSMSNotification sends a one-off text to a single user.
func (s *Service) SendSMSNotification(ctx context.Context, userID, content string) (msg *platform.Message, err error) {
	defer s.observe("send_sms_notification", time.Now(), &err)
	ctx, span := tracer.Start(ctx, "appointments.send_sms")
	defer span.End()
	span.SetAttributes(attribute.String("carepulse.user_id", userID))

	msg, err = s.notifier.SendSMS(ctx, userID, content)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("failed to send sms", "error", err, "user_id", userID)
		return nil, err
	}
	return jsonutil.Clone(msg)
}

func notificationText(params UpdateAppointmentParams, appt *Appointment, when string) string {
	physician := appt.PrimaryPhysician
	if p := params.Appointment.PrimaryPhysician; p != nil {
		physician = *p
	}
	if params.Type == UpdateTypeSchedule {
		return fmt.Sprintf("Greetings from carepulse. Your appointment is confirmed for %s with Dr. %s.", when, physician)
	}
	var reason string
	switch {
	case params.Appointment.CancellationReason != nil:
		reason = *params.Appointment.CancellationReason
	case appt.CancellationReason != nil:
		reason = *appt.CancellationReason
	}
	return fmt.Sprintf("Greetings from carepulse. We regret to inform you that your appointment for %s is cancelled. Reason: %s.", when, reason)
}

func (s *Service) invalidateSummary(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("summary cache invalidation failed", "error", err)
	}
}

func (s *Service) observe(action string, start time.Time, err *error) {
	s.metrics.ObserveAction(action, start, *err)
}

func (s *Service) decodeOne(ctx context.Context, doc *platform.Document) (*Appointment, error) {
	out, err := s.decode(ctx, []*platform.Document{doc})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// decode turns stored documents into appointments and expands their patients
// with one extra list call.
func (s *Service) decode(ctx context.Context, docs []*platform.Document) ([]*Appointment, error) {
	records := make([]record, 0, len(docs))
	var ids []string
	seen := map[string]bool{}
	for _, doc := range docs {
		rec, err := jsonutil.Decode[record](doc)
		if err != nil {
			return nil, fmt.Errorf("appointments: decode appointment %s: %w", doc.ID, err)
		}
		records = append(records, rec)
		if rec.Patient != "" && !seen[rec.Patient] {
			seen[rec.Patient] = true
			ids = append(ids, rec.Patient)
		}
	}

	byID := map[string]*patients.Patient{}
	if len(ids) > 0 && s.cfg.RequirePatients() == nil {
		list, err := s.docs.ListDocuments(ctx, s.cfg.DatabaseID, s.cfg.PatientCollectionID, platform.Equal(platform.AttrID, ids...))
		if err != nil {
			s.logger.Error("failed to expand appointment patients", "error", err)
			return nil, fmt.Errorf("appointments: expand patients: %w", err)
		}
		for _, doc := range list.Documents {
			p, err := patients.DecodePatient(doc)
			if err != nil {
				return nil, err
			}
			byID[p.ID] = p
		}
	}

	out := make([]*Appointment, 0, len(records))
	for _, rec := range records {
		p := byID[rec.Patient]
		if p == nil && rec.Patient != "" {
			s.logger.Warn("appointment patient not found", "appointment_id", rec.ID, "patient_id", rec.Patient)
		}
		out = append(out, rec.appointment(p))
	}
	return out, nil
}
