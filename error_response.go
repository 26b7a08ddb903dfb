package presto

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrorResponse is a non-OK HTTP response from the coordinator.
type ErrorResponse struct {
	// Response is the original HTTP response; its body is already consumed.
	Response *http.Response

	// Message is the response body, trimmed.
	Message string
}

func (e *ErrorResponse) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status code: %d)", http.StatusText(e.Response.StatusCode), e.Response.StatusCode)
	}
	return fmt.Sprintf("%s (status code: %d)", e.Message, e.Response.StatusCode)
}

// StatusCode returns the HTTP status code of the response.
func (e *ErrorResponse) StatusCode() int {
	return e.Response.StatusCode
}

// NewErrorResponse reads and closes the body of resp and wraps it as an
// *ErrorResponse. A failed read is returned as is.
func NewErrorResponse(resp *http.Response) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return &ErrorResponse{
		Response: resp,
		Message:  strings.TrimSpace(string(body)),
	}
}
