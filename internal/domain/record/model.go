package record

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Record is a catalog record of a known kind.
// Records are never modified in place; WithData builds an edited copy.
type Record struct {
	ID   string         `json:"id"`
	Kind RecordKind     `json:"kind"`
	Data map[string]any `json:"data"`
}

// New builds a record from a service document.
// Every kind except Type must carry an "id" field in data.
func New(kind RecordKind, data map[string]any) (Record, error) {
	if data == nil {
		return Record{}, fmt.Errorf("%w: %s record without data", ErrInvalidRecord, kind)
	}
	id, _ := data["id"].(string)
	if id == "" && kind != KindType {
		return Record{}, fmt.Errorf("%w: %s record without id", ErrInvalidRecord, kind)
	}
	return Record{ID: id, Kind: kind, Data: data}, nil
}

// NewDraft builds a record that is about to be created. The id may be
// absent, in which case the service assigns one.
func NewDraft(kind RecordKind, data map[string]any) (Record, error) {
	if data == nil {
		return Record{}, fmt.Errorf("%w: %s record without data", ErrInvalidRecord, kind)
	}
	id, _ := data["id"].(string)
	return Record{ID: id, Kind: kind, Data: data}, nil
}

// WithData returns a new record of the same kind built from edited data.
func (r Record) WithData(data map[string]any) (Record, error) {
	rec, err := New(r.Kind, data)
	if err != nil {
		return Record{}, err
	}
	if r.Kind != KindType && rec.ID != r.ID {
		return Record{}, fmt.Errorf("%w: id changed from %s to %s", ErrInvalidRecord, r.ID, rec.ID)
	}
	return rec, nil
}

// Clone returns a deep copy of the record data.
func (r Record) Clone() map[string]any {
	if r.Data == nil {
		return nil
	}
	raw, err := json.Marshal(r.Data)
	if err != nil {
		return nil
	}
	out, err := decodeObject(raw)
	if err != nil {
		return nil
	}
	return out
}

// Name returns the display value of the record's name field.
func (r Record) Name() string {
	return StringField(r.Data, r.Kind.NameField())
}

// String returns the value at a dotted path, e.g. "status.name".
func (r Record) String(path string) string {
	return StringField(r.Data, path)
}

// StringField returns the string value at a dotted path of a document.
// Numbers are rendered without a fractional part when integral.
func StringField(data map[string]any, path string) string {
	v, ok := Lookup(data, path)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Lookup walks a dotted path through nested objects.
func Lookup(data map[string]any, path string) (any, bool) {
	if data == nil || path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	var cur any = data
	for _, part := range parts {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set writes a value at a dotted path, creating intermediate objects.
func Set(data map[string]any, path string, value any) error {
	if data == nil {
		return fmt.Errorf("%w: nil document", ErrInvalidRecord)
	}
	parts := strings.Split(path, ".")
	cur := data
	for _, part := range parts[:len(parts)-1] {
		if part == "" {
			return fmt.Errorf("%w: empty path segment in %q", ErrInvalidRecord, path)
		}
		next, ok := cur[part]
		if !ok || next == nil {
			child := map[string]any{}
			cur[part] = child
			cur = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %q is not an object", ErrInvalidRecord, part)
		}
		cur = child
	}
	last := parts[len(parts)-1]
	if last == "" {
		return fmt.Errorf("%w: empty path segment in %q", ErrInvalidRecord, path)
	}
	if value == nil {
		delete(cur, last)
		return nil
	}
	cur[last] = value
	return nil
}
