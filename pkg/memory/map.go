package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ToMap converts the record to a map with JSON-compatible values. Timestamps
// become RFC 3339 strings; optional fields that are unset are omitted so that
// FromMap reproduces them as unset rather than as zero values.
func (r *Record) ToMap() map[string]any {
	m := map[string]any{
		"id":         r.ID,
		"content":    r.Content,
		"kind":       string(r.Kind),
		"created_at": r.CreatedAt.Format(time.RFC3339Nano),
		"importance": r.Importance,
	}
	if r.OwnerID != "" {
		m["owner_id"] = r.OwnerID
	}
	if r.SessionID != "" {
		m["session_id"] = r.SessionID
	}
	if r.Metadata != nil {
		m["metadata"] = r.Metadata
	}
	if r.Embedding != nil {
		m["embedding"] = r.Embedding
	}
	if r.Tags != nil {
		m["tags"] = r.Tags
	}
	if r.LastAccessed != nil {
		m["last_accessed"] = r.LastAccessed.Format(time.RFC3339Nano)
	}
	return m
}

// FromMap reconstructs a record from a map produced by ToMap or decoded from
// JSON. Unknown kind values and malformed timestamps are errors; absent
// optional fields stay absent. An absent or empty id gets a fresh uuid.
func FromMap(m map[string]any) (*Record, error) {
	kind, err := ParseKind(stringAt(m, "kind"))
	if err != nil {
		return nil, err
	}

	createdAt, err := timeAt(m, "created_at")
	if err != nil {
		return nil, err
	}
	if createdAt == nil {
		return nil, &ValidationError{Field: "created_at", Reason: "must be set"}
	}

	id := stringAt(m, "id")
	if id == "" {
		id = uuid.NewString()
	}

	r := &Record{
		ID:         id,
		Content:    stringAt(m, "content"),
		Kind:       kind,
		OwnerID:    stringAt(m, "owner_id"),
		SessionID:  stringAt(m, "session_id"),
		CreatedAt:  *createdAt,
		Importance: DefaultImportance,
	}
	if v, ok := m["importance"]; ok {
		f, err := floatOf(v)
		if err != nil {
			return nil, &ValidationError{Field: "importance", Reason: err.Error()}
		}
		r.Importance = f
	}

	if v, ok := m["metadata"]; ok && v != nil {
		md, ok := v.(map[string]any)
		if !ok {
			return nil, &ValidationError{Field: "metadata", Reason: fmt.Sprintf("expected map, got %T", v)}
		}
		r.Metadata = md
	}

	if v, ok := m["embedding"]; ok && v != nil {
		emb, err := float32SliceOf(v)
		if err != nil {
			return nil, &ValidationError{Field: "embedding", Reason: err.Error()}
		}
		r.Embedding = emb
	}

	if v, ok := m["tags"]; ok && v != nil {
		tags, err := stringSliceOf(v)
		if err != nil {
			return nil, &ValidationError{Field: "tags", Reason: err.Error()}
		}
		r.Tags = tags
	}

	la, err := timeAt(m, "last_accessed")
	if err != nil {
		return nil, err
	}
	r.LastAccessed = la

	return r, nil
}

func stringAt(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func timeAt(m map[string]any, key string) (*time.Time, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case time.Time:
		return &t, nil
	case string:
		if t == "" {
			return nil, nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return nil, &ValidationError{Field: key, Reason: err.Error()}
		}
		return &parsed, nil
	default:
		return nil, &ValidationError{Field: key, Reason: fmt.Sprintf("expected timestamp, got %T", v)}
	}
}

func floatOf(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func float32SliceOf(v any) ([]float32, error) {
	switch vec := v.(type) {
	case []float32:
		out := make([]float32, len(vec))
		copy(out, vec)
		return out, nil
	case []float64:
		out := make([]float32, len(vec))
		for i, f := range vec {
			out[i] = float32(f)
		}
		return out, nil
	case []any:
		out := make([]float32, len(vec))
		for i, raw := range vec {
			f, err := floatOf(raw)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = float32(f)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected float slice, got %T", v)
	}
}

func stringSliceOf(v any) ([]string, error) {
	switch list := v.(type) {
	case []string:
		out := make([]string, len(list))
		copy(out, list)
		return out, nil
	case []any:
		out := make([]string, len(list))
		for i, raw := range list {
			s, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("element %d: expected string, got %T", i, raw)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected string slice, got %T", v)
	}
}
