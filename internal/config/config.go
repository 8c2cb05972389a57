package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrMissingConfig is returned when a value required by an operation is unset.
var ErrMissingConfig = errors.New("config: missing required platform configuration")

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string

	// Platform identifiers
	DatabaseID              string
	PatientCollectionID     string
	AppointmentCollectionID string
	BucketID                string
	ProjectID               string
	Endpoint                string

	// Admin gate
	AdminPasskey     string
	AdminJWTSecret   string
	AdminSessionTTL  time.Duration
	SummaryCacheTTL  time.Duration
	DocumentBackend  string
	DocumentsTable   string
	DatabaseURL      string
	RedisAddr        string
	RedisPassword    string
	RedisTLS         bool
	MessageLogTTL    time.Duration
	MessageLogMaxLen int64

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	S3Bucket            string
	UploadMaxBytes      int64

	// SMS
	SMSProvider              string
	SMSFromNumber            string
	TelnyxAPIKey             string
	TelnyxMessagingProfileID string
	TelnyxBaseURL            string
	TwilioAccountSID         string
	TwilioAuthToken          string

	// Email copies of appointment notices
	EmailProvider     string
	SendGridAPIKey    string
	EmailFromAddress  string
	EmailFromName     string
	NotifyEmailCopies bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		DatabaseID:              getEnv("DATABASE_ID", ""),
		PatientCollectionID:     getEnv("PATIENT_COLLECTION_ID", ""),
		AppointmentCollectionID: getEnv("APPOINTMENT_COLLECTION_ID", ""),
		BucketID:                getEnv("BUCKET_ID", ""),
		ProjectID:               getEnv("PROJECT_ID", ""),
		Endpoint:                strings.TrimRight(getEnv("PLATFORM_ENDPOINT", ""), "/"),

		AdminPasskey:     getEnv("ADMIN_PASSKEY", ""),
		AdminJWTSecret:   getEnv("ADMIN_JWT_SECRET", ""),
		AdminSessionTTL:  getEnvAsDuration("ADMIN_SESSION_TTL", 12*time.Hour),
		SummaryCacheTTL:  getEnvAsDuration("SUMMARY_CACHE_TTL", 30*time.Second),
		DocumentBackend:  strings.ToLower(strings.TrimSpace(getEnv("DOCUMENT_BACKEND", "postgres"))),
		DocumentsTable:   getEnv("DOCUMENTS_TABLE", "carepulse_documents"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisTLS:         getEnvAsBool("REDIS_TLS", false),
		MessageLogTTL:    getEnvAsDuration("MESSAGE_LOG_TTL", 30*24*time.Hour),
		MessageLogMaxLen: int64(getEnvAsInt("MESSAGE_LOG_MAX_LEN", 200)),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		UploadMaxBytes:      int64(getEnvAsInt("UPLOAD_MAX_BYTES", 10<<20)),

		SMSProvider:              strings.ToLower(strings.TrimSpace(getEnv("SMS_PROVIDER", "auto"))),
		SMSFromNumber:            getEnv("SMS_FROM_NUMBER", ""),
		TelnyxAPIKey:             getEnv("TELNYX_API_KEY", ""),
		TelnyxMessagingProfileID: getEnv("TELNYX_MESSAGING_PROFILE_ID", ""),
		TelnyxBaseURL:            getEnv("TELNYX_BASE_URL", ""),
		TwilioAccountSID:         getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:          getEnv("TWILIO_AUTH_TOKEN", ""),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", ""))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		EmailFromAddress:  getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:     getEnv("EMAIL_FROM_NAME", "CarePulse"),
		NotifyEmailCopies: getEnvAsBool("NOTIFY_EMAIL_COPIES", false),
	}
}

// IsProduction reports whether the service runs with production semantics.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Platform returns the identifiers the actions need to address the platform.
func (c *Config) Platform() Platform {
	return Platform{
		DatabaseID:              c.DatabaseID,
		PatientCollectionID:     c.PatientCollectionID,
		AppointmentCollectionID: c.AppointmentCollectionID,
		BucketID:                c.BucketID,
		ProjectID:               c.ProjectID,
		Endpoint:                c.Endpoint,
	}
}

// Platform carries the database, collection, bucket and project identifiers.
type Platform struct {
	DatabaseID              string
	PatientCollectionID     string
	AppointmentCollectionID string
	BucketID                string
	ProjectID               string
	Endpoint                string
}

// RequireRegistration checks the five values patient registration depends on.
func (p Platform) RequireRegistration() error {
	return require(map[string]string{
		"BUCKET_ID":             p.BucketID,
		"DATABASE_ID":           p.DatabaseID,
		"PATIENT_COLLECTION_ID": p.PatientCollectionID,
		"PROJECT_ID":            p.ProjectID,
		"PLATFORM_ENDPOINT":     p.Endpoint,
	})
}

// RequirePatients checks the values needed to read patient documents.
func (p Platform) RequirePatients() error {
	return require(map[string]string{
		"DATABASE_ID":           p.DatabaseID,
		"PATIENT_COLLECTION_ID": p.PatientCollectionID,
	})
}

// RequireAppointments checks the values needed to address appointment documents.
func (p Platform) RequireAppointments() error {
	return require(map[string]string{
		"DATABASE_ID":               p.DatabaseID,
		"APPOINTMENT_COLLECTION_ID": p.AppointmentCollectionID,
	})
}

// FileViewURL builds the public view URL of a stored file.
func (p Platform) FileViewURL(fileID string) string {
	return fmt.Sprintf("%s/storage/buckets/%s/files/%s/view?project=%s", p.Endpoint, p.BucketID, fileID, p.ProjectID)
}

func require(values map[string]string) error {
	var missing []string
	for name, value := range values {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
