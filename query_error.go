package presto

import (
	"fmt"
	"strings"
)

// Error types reported in QueryError.ErrorType.
const (
	ErrorTypeUser                  = "USER_ERROR"
	ErrorTypeInternal              = "INTERNAL_ERROR"
	ErrorTypeInsufficientResources = "INSUFFICIENT_RESOURCES"
	ErrorTypeExternal              = "EXTERNAL"
)

// QueryError is a statement failure reported by the coordinator.
type QueryError struct {
	Message   string `json:"message"`
	SqlState  string `json:"sqlState,omitempty"`
	ErrorCode int    `json:"errorCode"`
	ErrorName string `json:"errorName"`
	ErrorType string `json:"errorType"`
	Retriable bool   `json:"retriable"`

	// ErrorLocation is set for syntax and analysis errors.
	ErrorLocation *ErrorLocation `json:"errorLocation,omitempty"`
	FailureInfo   *FailureInfo   `json:"failureInfo,omitempty"`
}

// String returns "ErrorName: Message", followed by the location when the
// server reported one.
func (q *QueryError) String() string {
	if q == nil {
		return "nil QueryError"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", q.ErrorName, q.Message)
	if q.ErrorLocation != nil {
		fmt.Fprintf(&b, " (%s)", q.ErrorLocation)
	}
	return b.String()
}

func (q *QueryError) Error() string {
	return q.String()
}

// IsUserError reports whether the statement itself was at fault, as opposed
// to the cluster.
func (q *QueryError) IsUserError() bool {
	return q != nil && q.ErrorType == ErrorTypeUser
}

// ErrorLocation is a 1-based position in the statement text.
type ErrorLocation struct {
	LineNumber   int `json:"lineNumber"`
	ColumnNumber int `json:"columnNumber"`
}

func (e *ErrorLocation) String() string {
	return fmt.Sprintf("line %d:%d", e.LineNumber, e.ColumnNumber)
}

// FailureInfo is the server-side exception chain behind a QueryError.
type FailureInfo struct {
	// Type is the Java class name of the exception.
	Type          string         `json:"type"`
	Message       string         `json:"message,omitempty"`
	Cause         *FailureInfo   `json:"cause,omitempty"`
	Suppressed    []FailureInfo  `json:"suppressed"`
	Stack         []string       `json:"stack"`
	ErrorLocation *ErrorLocation `json:"errorLocation,omitempty"`
}

// RootCause follows the Cause chain to its end.
func (f *FailureInfo) RootCause() *FailureInfo {
	for f != nil && f.Cause != nil {
		f = f.Cause
	}
	return f
}
