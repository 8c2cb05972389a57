package platform

import (
	"encoding/json"
	"fmt"
	"time"
)

// System attribute names carried by every document.
const (
	AttrID           = "$id"
	AttrCreatedAt    = "$createdAt"
	AttrUpdatedAt    = "$updatedAt"
	AttrDatabaseID   = "$databaseId"
	AttrCollectionID = "$collectionId"
)

// Document is a stored record. Data holds the user attributes; the system
// attributes are flattened next to them when the document is serialized.
type Document struct {
	ID           string
	DatabaseID   string
	CollectionID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Data         map[string]any
}

// DocumentList is the result of ListDocuments. Total counts every match,
// ignoring any Limit query.
type DocumentList struct {
	Total     int         `json:"total"`
	Documents []*Document `json:"documents"`
}

// Attr returns the value of a system or user attribute.
func (d *Document) Attr(name string) (any, bool) {
	switch name {
	case AttrID:
		return d.ID, true
	case AttrCreatedAt:
		return d.CreatedAt, true
	case AttrUpdatedAt:
		return d.UpdatedAt, true
	case AttrDatabaseID:
		return d.DatabaseID, true
	case AttrCollectionID:
		return d.CollectionID, true
	}
	v, ok := d.Data[name]
	return v, ok
}

// MarshalJSON flattens system and user attributes into one object.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Data)+5)
	for k, v := range d.Data {
		out[k] = v
	}
	out[AttrID] = d.ID
	out[AttrDatabaseID] = d.DatabaseID
	out[AttrCollectionID] = d.CollectionID
	out[AttrCreatedAt] = d.CreatedAt.UTC().Format(time.RFC3339Nano)
	out[AttrUpdatedAt] = d.UpdatedAt.UTC().Format(time.RFC3339Nano)
	return json.Marshal(out)
}

// UnmarshalJSON splits a flattened object back into system and user attributes.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	doc := Document{Data: make(map[string]any, len(raw))}
	for k, v := range raw {
		switch k {
		case AttrID:
			doc.ID, _ = v.(string)
		case AttrDatabaseID:
			doc.DatabaseID, _ = v.(string)
		case AttrCollectionID:
			doc.CollectionID, _ = v.(string)
		case AttrCreatedAt, AttrUpdatedAt:
			s, _ := v.(string)
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return fmt.Errorf("platform: document %s: %w", k, err)
			}
			if k == AttrCreatedAt {
				doc.CreatedAt = t
			} else {
				doc.UpdatedAt = t
			}
		default:
			doc.Data[k] = v
		}
	}
	*d = doc
	return nil
}

// StripSystemAttrs removes system attribute keys from user-supplied data.
func StripSystemAttrs(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch k {
		case AttrID, AttrCreatedAt, AttrUpdatedAt, AttrDatabaseID, AttrCollectionID:
			continue
		}
		out[k] = v
	}
	return out
}
