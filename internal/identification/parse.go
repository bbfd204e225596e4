package identification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"musicscan/internal/scan"
	"musicscan/internal/services/llm"
)

// RawField is a value as read by the model with the photo it came from.
type RawField struct {
	Value  string
	Source scan.ImageKind
}

// ParsedExtraction is the validated shape of a model reply.
type ParsedExtraction struct {
	Fields      map[scan.Field]RawField
	YearContext string
	Artist      string
	Title       string
}

// Raw returns the raw value read for field, or the empty string.
func (p ParsedExtraction) Raw(field scan.Field) string {
	return p.Fields[field].Value
}

// ParseError reports a reply that does not match the extraction schema.
type ParseError struct {
	Key     string
	Reason  string
	Snippet string
}

func (e *ParseError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("parse extraction: %s (reply: %s)", e.Reason, e.Snippet)
	}
	return fmt.Sprintf("parse extraction: key %q: %s", e.Key, e.Reason)
}

// ParseExtraction validates a model reply. Prose and code fences around the
// first JSON object are tolerated; anything else that does not fit the schema
// is a *ParseError.
func ParseExtraction(reply string) (ParsedExtraction, error) {
	payload := llm.ExtractJSONObject(reply)
	if !strings.HasPrefix(payload, "{") {
		return ParsedExtraction{}, &ParseError{Reason: "no JSON object found", Snippet: snippet(reply)}
	}

	var object map[string]json.RawMessage
	decoder := json.NewDecoder(bytes.NewReader([]byte(payload)))
	decoder.UseNumber()
	if err := decoder.Decode(&object); err != nil {
		return ParsedExtraction{}, &ParseError{Reason: "invalid JSON: " + err.Error(), Snippet: snippet(payload)}
	}

	parsed := ParsedExtraction{Fields: make(map[scan.Field]RawField)}
	for _, field := range scan.Fields() {
		key := string(field)
		value, err := optionalString(object, key, field == scan.FieldYearHint)
		if err != nil {
			return ParsedExtraction{}, err
		}
		if value == "" {
			continue
		}
		source, err := optionalString(object, key+"_source", false)
		if err != nil {
			return ParsedExtraction{}, err
		}
		kind, kindErr := scan.ParseImageKind(source)
		if kindErr != nil {
			kind = scan.ImageOther
		}
		parsed.Fields[field] = RawField{Value: value, Source: kind}
	}

	var err error
	if parsed.YearContext, err = optionalString(object, "year_hint_context", false); err != nil {
		return ParsedExtraction{}, err
	}
	if parsed.Artist, err = optionalString(object, "artist", false); err != nil {
		return ParsedExtraction{}, err
	}
	if parsed.Title, err = optionalString(object, "title", false); err != nil {
		return ParsedExtraction{}, err
	}
	return parsed, nil
}

// optionalString reads key as a string or null. Numbers are accepted only when
// allowNumber is set (models like to return years unquoted).
func optionalString(object map[string]json.RawMessage, key string, allowNumber bool) (string, error) {
	raw, ok := object[key]
	if !ok {
		return "", nil
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	switch trimmed[0] {
	case '"':
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return "", &ParseError{Key: key, Reason: "invalid string"}
		}
		value = strings.TrimSpace(value)
		if isNullWord(value) {
			return "", nil
		}
		return value, nil
	default:
		if allowNumber {
			if n, err := strconv.ParseInt(string(trimmed), 10, 64); err == nil {
				return strconv.FormatInt(n, 10), nil
			}
		}
		return "", &ParseError{Key: key, Reason: "expected string or null, got " + string(trimmed)}
	}
}

// isNullWord catches models that spell null as text.
func isNullWord(value string) bool {
	switch strings.ToLower(value) {
	case "", "null", "none", "n/a", "unknown", "not visible":
		return true
	default:
		return false
	}
}

func snippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	const limit = 120
	if runes := []rune(clean); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	if clean == "" {
		return "<empty>"
	}
	return clean
}
