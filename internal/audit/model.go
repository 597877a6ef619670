// Package audit keeps the append-only, hash-chained trail of workflow
// activity. Entries are never updated or deleted.
package audit

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/nyayasetu/platform/internal/shared/types"
)

// canonicalJSON produces deterministic JSON output with sorted map keys.
// Go maps have random iteration order and PostgreSQL JSONB may reorder
// keys, so hashing needs a canonical form.
func canonicalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}
	return canonicalMarshal(parsed)
}

func canonicalMarshal(v any) ([]byte, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, _ := json.Marshal(k)
			buf.Write(keyBytes)
			buf.WriteByte(':')
			valBytes, err := canonicalMarshal(val[k])
			if err != nil {
				return nil, err
			}
			buf.Write(valBytes)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil

	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			itemBytes, err := canonicalMarshal(item)
			if err != nil {
				return nil, err
			}
			buf.Write(itemBytes)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil

	default:
		return json.Marshal(val)
	}
}

// Entry is an immutable audit record. Sequence is assigned by the store
// on append; Hash covers the entry contents plus PrevHash, chaining each
// entry to its predecessor.
type Entry struct {
	ID        types.ID  `json:"id"`
	Sequence  int64     `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
	Hash      string    `json:"hash"`
	PrevHash  string    `json:"prev_hash,omitempty"`

	ActorID    types.ID       `json:"actor_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   *types.ID      `json:"entity_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	IPAddress  string         `json:"ip_address,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
}

// NewEntry creates an audit entry. The hash is recomputed by the store
// once the predecessor's hash is known.
func NewEntry(actorID types.ID, action, entityType string, entityID *types.ID, details map[string]any) *Entry {
	e := &Entry{
		ID:         types.NewID(),
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	}
	e.Hash = e.computeHash()
	return e
}

// WithRequest attaches request metadata to the entry.
func (e *Entry) WithRequest(ip, userAgent string) *Entry {
	e.IPAddress = ip
	e.UserAgent = userAgent
	return e
}

// computeHash hashes the entry with the timestamp normalized to UTC so
// verification is timezone independent.
func (e *Entry) computeHash() string {
	data := map[string]any{
		"id":          e.ID,
		"created_at":  e.CreatedAt.UTC().Format(time.RFC3339Nano),
		"prev_hash":   e.PrevHash,
		"actor_id":    e.ActorID,
		"action":      e.Action,
		"entity_type": e.EntityType,
	}
	if e.EntityID != nil {
		data["entity_id"] = e.EntityID
	}
	if len(e.Details) > 0 {
		data["details"] = e.Details
	}

	jsonData, _ := canonicalJSON(data)
	hash := sha256.Sum256(jsonData)
	return hex.EncodeToString(hash[:])
}

// VerifyHash reports whether the stored hash matches the entry contents.
func (e *Entry) VerifyHash() bool {
	return e.Hash == e.computeHash()
}

// EntityRef identifies one entity whose trail should be read.
type EntityRef struct {
	EntityType string
	EntityID   types.ID
}
