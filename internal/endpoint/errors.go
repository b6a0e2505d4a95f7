package endpoint

import (
	"encoding/json"
	"errors"
	"fmt"
)

// APIError is returned when the device answers with a non-2xx status. Body
// holds the parsed reply, which is the rejection value the caller inspects.
type APIError struct {
	Status int
	Path   string
	Body   json.RawMessage
}

func (e *APIError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.Status, msg)
	}
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Status)
}

// Message extracts the "message" field of the reply body, if any.
func (e *APIError) Message() string {
	var body struct {
		Message string `json:"message"`
	}
	if len(e.Body) == 0 || json.Unmarshal(e.Body, &body) != nil {
		return ""
	}
	return body.Message
}

// Decode unmarshals the reply body into dest.
func (e *APIError) Decode(dest any) error {
	return json.Unmarshal(e.Body, dest)
}

// AsAPIError reports whether err wraps an *APIError and returns it.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
