// Package platform describes the backend services CarePulse delegates to:
// a document database, user accounts, file storage and messaging. Adapters
// live in the sub-packages; the actions only depend on these interfaces.
package platform

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when the addressed document, user or file does not exist.
	ErrNotFound = errors.New("platform: not found")
	// ErrConflict is returned when a create violates a uniqueness constraint.
	ErrConflict = errors.New("platform: conflict")
)

// UniqueID returns a fresh identifier for a new document, user, file or message.
func UniqueID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Documents stores structured records addressed by database, collection and id.
type Documents interface {
	CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (*Document, error)
	GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (*Document, error)
	ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...Query) (*DocumentList, error)
	UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (*Document, error)
}

// Users manages platform accounts. Email addresses are unique.
type Users interface {
	CreateUser(ctx context.Context, user NewUser) (*User, error)
	GetUser(ctx context.Context, userID string) (*User, error)
	ListUsersByEmail(ctx context.Context, email string) ([]*User, error)
}

// Storage keeps binary files in buckets.
type Storage interface {
	CreateFile(ctx context.Context, bucketID, fileID string, in InputFile) (*File, error)
	GetFile(ctx context.Context, bucketID, fileID string) (io.ReadCloser, *File, error)
}

// Messaging delivers text messages to platform users.
type Messaging interface {
	CreateSMS(ctx context.Context, messageID, content string, topics, userIDs []string) (*Message, error)
}

// NewUser is the input for account creation.
type NewUser struct {
	ID    string
	Name  string
	Email string
	Phone string
}

// User is a platform account.
type User struct {
	ID        string    `json:"$id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"$createdAt"`
	UpdatedAt time.Time `json:"$updatedAt"`
}

// InputFile is an upload handed to Storage.CreateFile.
type InputFile struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// File describes a stored file.
type File struct {
	ID           string    `json:"$id"`
	BucketID     string    `json:"bucketId"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mimeType"`
	SizeOriginal int64     `json:"sizeOriginal"`
	CreatedAt    time.Time `json:"$createdAt"`
}

// Message status values.
const (
	MessageStatusSent   = "sent"
	MessageStatusFailed = "failed"
)

// Message is the receipt of a messaging call.
type Message struct {
	ID             string     `json:"$id"`
	ProviderType   string     `json:"providerType"`
	Topics         []string   `json:"topics"`
	Users          []string   `json:"users"`
	Content        string     `json:"content"`
	Status         string     `json:"status"`
	DeliveredTotal int        `json:"deliveredTotal"`
	DeliveryErrors []string   `json:"deliveryErrors"`
	CreatedAt      time.Time  `json:"$createdAt"`
	DeliveredAt    *time.Time `json:"deliveredAt,omitempty"`
}
