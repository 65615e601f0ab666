package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/packtrack/internal/validators"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// decodeObject strictly decodes one JSON object and runs struct validation on it.
func decodeObject(raw []byte, dest any) []string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []string{"payload is empty"}
	}
	if trimmed[0] != '{' {
		return []string{"payload must be an object"}
	}
	if err := json.Unmarshal(trimmed, dest); err != nil {
		return []string{describeDecodeError(err)}
	}
	return validators.Reasons(dest)
}

// decodeArray splits a JSON array into elements. A null payload is an empty list.
func decodeArray(raw []byte) ([]json.RawMessage, []string) {
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return []json.RawMessage{}, nil
	}
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, []string{"payload must be an array"}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, []string{describeDecodeError(err)}
	}
	return items, nil
}

func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "payload"
		}
		return fmt.Sprintf("%s must be %s, got %s", field, jsonKind(typeErr.Type.Kind().String()), typeErr.Value)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("malformed json at offset %d", syntaxErr.Offset)
	}
	return err.Error()
}

func jsonKind(goKind string) string {
	switch goKind {
	case "string":
		return "a string"
	case "ptr", "struct", "map":
		return "an object"
	case "slice", "array":
		return "an array"
	case "bool":
		return "a boolean"
	}
	return "a number"
}

// decodeStatus accepts a numeric code, a numeric string or a label and returns it as text.
func decodeStatus(field string, raw json.RawMessage) (string, string) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return "", field + " is malformed"
	}
	switch typed := value.(type) {
	case json.Number:
		code, err := strconv.Atoi(typed.String())
		if err != nil {
			return "", field + " must be an integer code"
		}
		return strconv.Itoa(code), ""
	case string:
		if strings.TrimSpace(typed) == "" {
			return "", field + " is required"
		}
		return strings.TrimSpace(typed), ""
	case nil:
		return "", field + " is required"
	}
	return "", field + " must be a number or string"
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func parseTimestamp(field, value string) (time.Time, string) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.UTC(), ""
		}
	}
	return time.Time{}, field + " must be an ISO-8601 timestamp"
}

func prefixReasons(prefix string, reasons []string) []string {
	out := make([]string, len(reasons))
	for i, reason := range reasons {
		out[i] = prefix + reason
	}
	return out
}
