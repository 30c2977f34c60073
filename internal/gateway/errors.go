package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a failed call.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindAuth       Kind = "auth"
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindServer     Kind = "server"
)

// Error wraps every failed API call.
type Error struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	// Fields holds per-field messages of a validation failure.
	Fields map[string][]string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNetwork:
		return fmt.Sprintf("network error: %v", e.Err)
	case KindValidation:
		if len(e.Fields) > 0 {
			return fmt.Sprintf("%s: %s", e.message(), e.fieldSummary())
		}
	}
	return e.message()
}

func (e *Error) message() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error: status=%d", e.Status)
	}
	return string(e.Kind)
}

func (e *Error) fieldSummary() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], ", ")))
	}
	return strings.Join(parts, "; ")
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or "" when err did not come from the gateway.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

func IsKind(err error, k Kind) bool { return err != nil && KindOf(err) == k }

// FieldErrors returns the field messages of a validation failure.
func FieldErrors(err error) map[string][]string {
	var ge *Error
	if errors.As(err, &ge) && ge.Kind == KindValidation {
		return ge.Fields
	}
	return nil
}

// Message returns the server's message for err, or err's text.
func Message(err error) string {
	var ge *Error
	if errors.As(err, &ge) {
		if ge.Kind == KindNetwork {
			return "the server could not be reached"
		}
		return ge.message()
	}
	return err.Error()
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuth
	case status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 500:
		return KindServer
	default:
		return KindConflict
	}
}

// envelope accepts both the {"error":{...}} shape and the flat
// {"message","errors"} shape.
type envelope struct {
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func decodeError(status int, body []byte) *Error {
	e := &Error{Kind: kindForStatus(status), Status: status}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		e.Message = strings.TrimSpace(string(body))
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
		return e
	}
	if env.Error != nil {
		e.Code = env.Error.Code
		e.Message = env.Error.Message
		e.Fields = fieldsFromDetails(env.Error.Details)
	} else {
		e.Message = env.Message
		e.Fields = env.Errors
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

func fieldsFromDetails(details map[string]any) map[string][]string {
	raw, ok := details["fields"].(map[string]any)
	if !ok {
		return nil
	}
	fields := make(map[string][]string, len(raw))
	for name, v := range raw {
		switch msgs := v.(type) {
		case string:
			fields[name] = []string{msgs}
		case []any:
			for _, m := range msgs {
				if s, ok := m.(string); ok {
					fields[name] = append(fields[name], s)
				}
			}
		}
	}
	return fields
}
