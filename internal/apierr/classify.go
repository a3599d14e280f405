package apierr

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// DuplicateReactionMessage is the backend's error text for a second reaction by the same user.
const DuplicateReactionMessage = "Reaction already exists for this message"

// FromResponse classifies a non-2xx REST response. body is the raw response payload.
func FromResponse(op string, status int, body []byte) *Error {
	e := &Error{Op: op, Status: status}
	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindAuthentication
		e.Message = messageOr(body, "authentication required")
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
		e.Message = messageOr(body, "resource not found")
	case status == http.StatusBadRequest:
		e.Kind = KindValidation
		e.Message = validationMessage(body)
		if e.Message == DuplicateReactionMessage {
			e.Kind = KindDuplicateReaction
		}
	default:
		e.Kind = KindServer
		e.Message = messageOr(body, fmt.Sprintf("failed to %s", op))
	}
	return e
}

func validationMessage(body []byte) string {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "An error occurred"
	}
	if s, ok := stringField(raw, "error"); ok {
		return s
	}
	if s, ok := stringField(raw, "detail"); ok {
		return s
	}
	if v, ok := raw["non_field_errors"]; ok {
		var list []string
		if json.Unmarshal(v, &list) == nil && len(list) > 0 {
			return strings.Join(list, ", ")
		}
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var fields []string
	for _, k := range keys {
		var list []string
		if json.Unmarshal(raw[k], &list) == nil && len(list) > 0 {
			fields = append(fields, k+": "+strings.Join(list, ", "))
		}
	}
	if len(fields) > 0 {
		return strings.Join(fields, " | ")
	}
	return "An error occurred"
}

func messageOr(body []byte, fallback string) string {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return fallback
	}
	if s, ok := stringField(raw, "error"); ok {
		return s
	}
	if s, ok := stringField(raw, "detail"); ok {
		return s
	}
	return fallback
}

func stringField(raw map[string]json.RawMessage, key string) (string, bool) {
	v, ok := raw[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}
