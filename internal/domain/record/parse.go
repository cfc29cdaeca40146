package record

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope is the list-endpoint response shape after decoding.
type Envelope struct {
	TotalRecords int
	Records      []Record
}

// ParseSingle decodes a bare object body into a record.
func ParseSingle(kind RecordKind, body []byte) (Record, error) {
	doc, err := decodeObject(body)
	if err != nil {
		return Record{}, err
	}
	return New(kind, doc)
}

// ParseEnvelope decodes a {"totalRecords": n, "<key>": [...]} body.
// An empty key means the key is taken from the body itself.
func ParseEnvelope(kind RecordKind, key string, body []byte) (Envelope, error) {
	doc, err := decodeObject(body)
	if err != nil {
		return Envelope{}, err
	}
	if key == "" {
		key, err = pluralKeyOf(doc)
		if err != nil {
			return Envelope{}, err
		}
	}

	env := Envelope{}
	if total, ok := doc["totalRecords"]; ok {
		n, err := toInt(total)
		if err != nil {
			return Envelope{}, fmt.Errorf("%w: totalRecords: %v", ErrMalformedBody, err)
		}
		env.TotalRecords = n
	}

	raw, ok := doc[key]
	if !ok || raw == nil {
		return env, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return Envelope{}, fmt.Errorf("%w: %q is not a list", ErrMalformedBody, key)
	}
	env.Records = make([]Record, 0, len(list))
	for i, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			return Envelope{}, fmt.Errorf("%w: %s[%d] is not an object", ErrMalformedBody, key, i)
		}
		rec, err := New(kind, obj)
		if err != nil {
			return Envelope{}, err
		}
		env.Records = append(env.Records, rec)
	}
	return env, nil
}

// PluralKey returns the one key of a list body besides totalRecords.
func PluralKey(body []byte) (string, error) {
	doc, err := decodeObject(body)
	if err != nil {
		return "", err
	}
	return pluralKeyOf(doc)
}

func pluralKeyOf(doc map[string]any) (string, error) {
	key := ""
	for k, v := range doc {
		if k == "totalRecords" || k == "resultInfo" {
			continue
		}
		if _, ok := v.([]any); !ok {
			continue
		}
		if key != "" {
			return "", fmt.Errorf("%w: ambiguous list keys %q and %q", ErrMalformedBody, key, k)
		}
		key = k
	}
	if key == "" {
		return "", fmt.Errorf("%w: no list key", ErrMalformedBody)
	}
	return key, nil
}

func decodeObject(body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedBody)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedBody)
	}
	return doc, nil
}

func toInt(v any) (int, error) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		return int(n), err
	case float64:
		return int(t), nil
	case int:
		return t, nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
