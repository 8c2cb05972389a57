package patients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carepulse/carepulse/internal/config"
	"github.com/carepulse/carepulse/internal/observability/metrics"
	"github.com/carepulse/carepulse/internal/platform"
	"github.com/carepulse/carepulse/pkg/jsonutil"
	"github.com/carepulse/carepulse/pkg/logging"
)

var tracer = otel.Tracer("carepulse.internal.patients")

// Service implements the patient actions on top of the platform.
type Service struct {
	users   platform.Users
	docs    platform.Documents
	storage platform.Storage
	cfg     config.Platform
	metrics *metrics.Metrics
	logger  *logging.Logger
}

func NewService(users platform.Users, docs platform.Documents, storage platform.Storage, cfg config.Platform, m *metrics.Metrics, logger *logging.Logger) *Service {
	if users == nil || docs == nil || storage == nil {
		panic("patients: users, documents and storage are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		users:   users,
		docs:    docs,
		storage: storage,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
	}
}

// CreateUser creates a platform account. When the email is already taken the
// existing account is returned instead.
func (s *Service) CreateUser(ctx context.Context, params CreateUserParams) (user *platform.User, err error) {
	defer s.observe("create_user", time.Now(), &err)
	if err := params.Validate(); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "patients.create_user")
	defer span.End()

	email := strings.TrimSpace(params.Email)
	created, err := s.users.CreateUser(ctx, platform.NewUser{
		ID:    platform.UniqueID(),
		Name:  strings.TrimSpace(params.Name),
		Email: email,
		Phone: strings.TrimSpace(params.Phone),
	})
	if errors.Is(err, platform.ErrConflict) {
		existing, lookupErr := s.users.ListUsersByEmail(ctx, email)
		if lookupErr != nil {
			s.logger.Error("failed to look up existing user", "error", lookupErr)
			return nil, fmt.Errorf("patients: look up existing user: %w", lookupErr)
		}
		if len(existing) == 0 {
			return nil, fmt.Errorf("patients: create user: %w", err)
		}
		s.logger.Info("user already exists, returning existing account", "user_id", existing[0].ID)
		return jsonutil.Clone(existing[0])
	}
	if err != nil {
		span.RecordError(err)
		s.logger.Error("failed to create user", "error", err)
		return nil, fmt.Errorf("patients: create user: %w", err)
	}
	return jsonutil.Clone(created)
}

// GetUser returns the platform account with userID.
func (s *Service) GetUser(ctx context.Context, userID string) (user *platform.User, err error) {
	defer s.observe("get_user", time.Now(), &err)
	user, err = s.users.GetUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to retrieve user", "error", err, "user_id", userID)
		return nil, fmt.Errorf("patients: get user: %w", err)
	}
	return jsonutil.Clone(user)
}

// RegisterPatient uploads the identification document, if any, then creates the
// patient record. A document uploaded before a failed record creation is left
// in storage.
func (s *Service) RegisterPatient(ctx context.Context, params RegisterPatientParams) (patient *Patient, err error) {
	defer s.observe("register_patient", time.Now(), &err)
	if err := s.cfg.RequireRegistration(); err != nil {
		s.logger.Error("cannot register patient", "error", err)
		return nil, err
	}
	if err := params.Profile.Validate(); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "patients.register")
	defer span.End()
	span.SetAttributes(attribute.String("carepulse.user_id", params.UserID))

	data, err := jsonutil.Decode[map[string]any](params.Profile)
	if err != nil {
		return nil, fmt.Errorf("patients: encode profile: %w", err)
	}
	data["identificationDocumentId"] = nil
	data["identificationDocumentUrl"] = nil

	if doc := params.IdentificationDocument; doc != nil {
		file, err := s.storage.CreateFile(ctx, s.cfg.BucketID, platform.UniqueID(), *doc)
		if err != nil {
			span.RecordError(err)
			s.logger.Error("failed to upload identification document", "error", err, "user_id", params.UserID)
			return nil, fmt.Errorf("patients: upload identification document: %w", err)
		}
		data["identificationDocumentId"] = file.ID
		data["identificationDocumentUrl"] = s.cfg.FileViewURL(file.ID)
	}

	stored, err := s.docs.CreateDocument(ctx, s.cfg.DatabaseID, s.cfg.PatientCollectionID, platform.UniqueID(), data)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("failed to register patient", "error", err, "user_id", params.UserID)
		return nil, fmt.Errorf("patients: create patient: %w", err)
	}
	s.logger.Info("patient registered", "patient_id", stored.ID, "user_id", params.UserID)
	return DecodePatient(stored)
}

// GetPatient returns the first patient record whose userId matches.
func (s *Service) GetPatient(ctx context.Context, userID string) (patient *Patient, err error) {
	defer s.observe("get_patient", time.Now(), &err)
	if err := s.cfg.RequirePatients(); err != nil {
		s.logger.Error("cannot look up patient", "error", err)
		return nil, err
	}
	list, err := s.docs.ListDocuments(ctx, s.cfg.DatabaseID, s.cfg.PatientCollectionID, platform.Equal("userId", userID))
	if err != nil {
		s.logger.Error("failed to retrieve patient", "error", err, "user_id", userID)
		return nil, fmt.Errorf("patients: list patients: %w", err)
	}
	if len(list.Documents) == 0 {
		return nil, ErrPatientNotFound
	}
	return DecodePatient(list.Documents[0])
}

// GetPatientByID loads one patient record by document id.
func (s *Service) GetPatientByID(ctx context.Context, patientID string) (*Patient, error) {
	if err := s.cfg.RequirePatients(); err != nil {
		return nil, err
	}
	doc, err := s.docs.GetDocument(ctx, s.cfg.DatabaseID, s.cfg.PatientCollectionID, patientID)
	if err != nil {
		return nil, fmt.Errorf("patients: get patient: %w", err)
	}
	return DecodePatient(doc)
}

func (s *Service) observe(action string, start time.Time, err *error) {
	s.metrics.ObserveAction(action, start, *err)
}

// DecodePatient converts a stored document into a Patient.
func DecodePatient(doc *platform.Document) (*Patient, error) {
	p, err := jsonutil.Decode[Patient](doc)
	if err != nil {
		return nil, fmt.Errorf("patients: decode patient %s: %w", doc.ID, err)
	}
	return &p, nil
}
