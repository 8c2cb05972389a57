// Package memory keeps platform data in process memory. It backs local
// development and tests; nothing survives a restart.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/carepulse/carepulse/internal/platform"
	"github.com/carepulse/carepulse/pkg/jsonutil"
)

type collectionKey struct {
	database   string
	collection string
}

// Documents is an in-memory platform.Documents.
type Documents struct {
	mu   sync.RWMutex
	docs map[collectionKey]map[string]*platform.Document
	now  func() time.Time
}

// NewDocuments returns an empty document store.
func NewDocuments() *Documents {
	return &Documents{
		docs: make(map[collectionKey]map[string]*platform.Document),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// CreateDocument stores a copy of data under documentID.
func (d *Documents) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (*platform.Document, error) {
	clean, err := jsonutil.Clone(platform.StripSystemAttrs(data))
	if err != nil {
		return nil, err
	}
	key := collectionKey{databaseID, collectionID}

	d.mu.Lock()
	defer d.mu.Unlock()
	coll, ok := d.docs[key]
	if !ok {
		coll = make(map[string]*platform.Document)
		d.docs[key] = coll
	}
	if _, exists := coll[documentID]; exists {
		return nil, fmt.Errorf("memory: document %s: %w", documentID, platform.ErrConflict)
	}
	now := d.now()
	doc := &platform.Document{
		ID:           documentID,
		DatabaseID:   databaseID,
		CollectionID: collectionID,
		CreatedAt:    now,
		UpdatedAt:    now,
		Data:         clean,
	}
	coll[documentID] = doc
	return cloneDocument(doc)
}

// GetDocument returns a copy of the stored document.
func (d *Documents) GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (*platform.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	doc, ok := d.docs[collectionKey{databaseID, collectionID}][documentID]
	if !ok {
		return nil, fmt.Errorf("memory: document %s: %w", documentID, platform.ErrNotFound)
	}
	return cloneDocument(doc)
}

// ListDocuments evaluates queries over the collection.
func (d *Documents) ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...platform.Query) (*platform.DocumentList, error) {
	d.mu.RLock()
	coll := d.docs[collectionKey{databaseID, collectionID}]
	all := make([]*platform.Document, 0, len(coll))
	for _, doc := range coll {
		all = append(all, doc)
	}
	d.mu.RUnlock()

	list, err := platform.Apply(all, queries)
	if err != nil {
		return nil, err
	}
	for i, doc := range list.Documents {
		if list.Documents[i], err = cloneDocument(doc); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// UpdateDocument merges data into the stored attributes.
func (d *Documents) UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (*platform.Document, error) {
	patch, err := jsonutil.Clone(platform.StripSystemAttrs(data))
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	doc, ok := d.docs[collectionKey{databaseID, collectionID}][documentID]
	if !ok {
		return nil, fmt.Errorf("memory: document %s: %w", documentID, platform.ErrNotFound)
	}
	if doc.Data == nil {
		doc.Data = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		doc.Data[k] = v
	}
	doc.UpdatedAt = d.now()
	return cloneDocument(doc)
}

func cloneDocument(doc *platform.Document) (*platform.Document, error) {
	data, err := jsonutil.Clone(doc.Data)
	if err != nil {
		return nil, err
	}
	out := *doc
	out.Data = data
	return &out, nil
}

// Users is an in-memory platform.Users. Emails are compared case-insensitively.
type Users struct {
	mu    sync.RWMutex
	users map[string]*platform.User
	now   func() time.Time
}

// NewUsers returns an empty account store.
func NewUsers() *Users {
	return &Users{
		users: make(map[string]*platform.User),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser adds an account, rejecting duplicate ids and emails.
func (u *Users) CreateUser(ctx context.Context, in platform.NewUser) (*platform.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.users[in.ID]; ok {
		return nil, fmt.Errorf("memory: user %s: %w", in.ID, platform.ErrConflict)
	}
	for _, existing := range u.users {
		if strings.EqualFold(existing.Email, in.Email) {
			return nil, fmt.Errorf("memory: email %s: %w", in.Email, platform.ErrConflict)
		}
	}
	now := u.now()
	user := &platform.User{
		ID:        in.ID,
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	u.users[in.ID] = user
	out := *user
	return &out, nil
}

// GetUser returns the account with userID.
func (u *Users) GetUser(ctx context.Context, userID string) (*platform.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	user, ok := u.users[userID]
	if !ok {
		return nil, fmt.Errorf("memory: user %s: %w", userID, platform.ErrNotFound)
	}
	out := *user
	return &out, nil
}

// ListUsersByEmail returns accounts registered with email.
func (u *Users) ListUsersByEmail(ctx context.Context, email string) ([]*platform.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	var out []*platform.User
	for _, user := range u.users {
		if strings.EqualFold(user.Email, email) {
			cp := *user
			out = append(out, &cp)
		}
	}
	return out, nil
}

type storedFile struct {
	meta platform.File
	body []byte
}

// Storage is an in-memory platform.Storage.
type Storage struct {
	mu    sync.RWMutex
	files map[string]storedFile
	now   func() time.Time
}

// NewStorage returns an empty file store.
func NewStorage() *Storage {
	return &Storage{
		files: make(map[string]storedFile),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CreateFile reads the upload fully and keeps it.
func (s *Storage) CreateFile(ctx context.Context, bucketID, fileID string, in platform.InputFile) (*platform.File, error) {
	if in.Body == nil {
		return nil, fmt.Errorf("memory: file %s has no body", fileID)
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, fmt.Errorf("memory: read file: %w", err)
	}
	key := bucketID + "/" + fileID

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[key]; ok {
		return nil, fmt.Errorf("memory: file %s: %w", fileID, platform.ErrConflict)
	}
	meta := platform.File{
		ID:           fileID,
		BucketID:     bucketID,
		Name:         in.Name,
		MimeType:     in.ContentType,
		SizeOriginal: int64(len(body)),
		CreatedAt:    s.now(),
	}
	s.files[key] = storedFile{meta: meta, body: body}
	return &meta, nil
}

// GetFile returns a reader over the stored bytes.
func (s *Storage) GetFile(ctx context.Context, bucketID, fileID string) (io.ReadCloser, *platform.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[bucketID+"/"+fileID]
	if !ok {
		return nil, nil, fmt.Errorf("memory: file %s: %w", fileID, platform.ErrNotFound)
	}
	meta := f.meta
	return io.NopCloser(bytes.NewReader(f.body)), &meta, nil
}
