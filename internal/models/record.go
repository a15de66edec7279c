// Package models defines the persisted entity types shared by the draft,
// remote and settings layers.
package models

import (
	"reflect"
	"time"
)

// Record is a generic persisted entity subject to draft/remote
// reconciliation. Identity and creation metadata (ID, Kind, CreatedBy,
// CreatedAt) are immutable after creation; everything else lives in Fields.
type Record struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	CreatedBy string         `json:"createdBy"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Fields    map[string]any `json:"fields"`
}

// Clone returns a copy of the record with its own Fields map.
// Field values are shared, which is fine for the JSON-scalar payloads
// records carry in practice.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Fields = cloneFields(r.Fields)
	return &out
}

// FieldEqual reports whether two field values are equal. Values round-trip
// through JSON, so deep equality is the right comparison.
func FieldEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

func cloneFields(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// LocalDraft is a locally-cached, not-yet-reconciled snapshot of a Record.
// LastSaved is stamped by the draft store at save time and is distinct from
// Record.UpdatedAt, which reflects application-level edit time.
type LocalDraft struct {
	Record    `json:"record"`
	LastSaved time.Time `json:"lastSaved"`
}
