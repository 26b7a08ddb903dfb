package presto

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryError_Decode(t *testing.T) {
	body := `{
		"message": "line 1:8: Column 'foo' cannot be resolved",
		"errorCode": 1,
		"errorName": "SYNTAX_ERROR",
		"errorType": "USER_ERROR",
		"errorLocation": {"lineNumber": 1, "columnNumber": 8},
		"failureInfo": {
			"type": "com.facebook.presto.sql.analyzer.SemanticException",
			"cause": {"type": "java.lang.IllegalStateException", "message": "root"},
			"suppressed": [],
			"stack": []
		}
	}`

	var qe QueryError
	require.NoError(t, json.Unmarshal([]byte(body), &qe))
	assert.True(t, qe.IsUserError())
	assert.Equal(t, "SYNTAX_ERROR: line 1:8: Column 'foo' cannot be resolved (line 1:8)", qe.Error())
	assert.Equal(t, "root", qe.FailureInfo.RootCause().Message)
}

func TestQueryError_String(t *testing.T) {
	var nilErr *QueryError
	assert.Equal(t, "nil QueryError", nilErr.String())
	assert.False(t, nilErr.IsUserError())

	qe := &QueryError{ErrorName: "EXCEEDED_TIME_LIMIT", ErrorType: ErrorTypeInsufficientResources, Message: "too slow"}
	assert.Equal(t, "EXCEEDED_TIME_LIMIT: too slow", qe.String())
	assert.False(t, qe.IsUserError())

	var err error = qe
	var target *QueryError
	require.True(t, errors.As(err, &target))
	assert.Same(t, qe, target)
}

func TestFailureInfo_RootCause(t *testing.T) {
	var nilInfo *FailureInfo
	assert.Nil(t, nilInfo.RootCause())

	leaf := &FailureInfo{Type: "leaf"}
	assert.Same(t, leaf, leaf.RootCause())
	assert.Same(t, leaf, (&FailureInfo{Cause: &FailureInfo{Cause: leaf}}).RootCause())
}

func TestWarning_String(t *testing.T) {
	w := Warning{WarningCode: WarningCode{Code: 1, Name: "PARSER_WARNING"}, Message: "deprecated syntax"}
	assert.Equal(t, "PARSER_WARNING(1): deprecated syntax", w.String())
}
