package presto

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ilge/presto-go/prestotype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueryResults(t *testing.T) {
	qr, err := NewQueryResults("q1", "http://localhost/v1/query/q1", &StatementStats{State: "RUNNING"})
	require.NoError(t, err)
	assert.Equal(t, "q1", qr.Id)

	_, err = NewQueryResults("", "", nil)
	require.Error(t, err)
	assert.Equal(t, "invalid query results: missing id, infoUri, stats", err.Error())

	var nilResults *QueryResults
	assert.Error(t, nilResults.Validate())
}

func TestQueryResults_DecodeAndValidate(t *testing.T) {
	var qr QueryResults
	require.NoError(t, json.Unmarshal([]byte(`{"id": "q1", "infoUri": "http://x"}`), &qr))
	err := qr.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing stats")

	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "q1",
		"infoUri": "http://x",
		"stats": {"state": "FINISHED", "elapsedTimeMillis": 1500},
		"warnings": [{"warningCode": {"code": 7, "name": "W"}, "message": "m"}]
	}`), &qr))
	require.NoError(t, qr.Validate())
	assert.True(t, qr.Stats.IsFinished())
	assert.Equal(t, "1.5s", qr.Stats.Elapsed().String())
	assert.Len(t, qr.Warnings, 1)
}

func TestQueryResults_Rows(t *testing.T) {
	t.Run("absent data", func(t *testing.T) {
		qr := &QueryResults{Id: "q1", Columns: []Column{{Name: "a", Type: "bigint"}}}
		rows, err := qr.Rows()
		require.NoError(t, err)
		assert.Nil(t, rows)
	})

	t.Run("empty data", func(t *testing.T) {
		qr := &QueryResults{Id: "q1", Columns: []Column{{Name: "a", Type: "bigint"}}, Data: []json.RawMessage{}}
		rows, err := qr.Rows()
		require.NoError(t, err)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	})

	t.Run("normalized", func(t *testing.T) {
		var qr QueryResults
		require.NoError(t, json.Unmarshal([]byte(`{
			"id": "q1",
			"columns": [
				{"name": "id", "type": "bigint"},
				{"name": "tags", "type": "array(varchar)"},
				{"name": "ok", "type": "boolean"}
			],
			"data": [["12", ["x", "y"], "true"], [null, [], false]]
		}`), &qr))

		rows, err := qr.Rows()
		require.NoError(t, err)
		assert.Equal(t, []QueryRow{
			{int64(12), []any{"x", "y"}, true},
			{nil, []any{}, false},
		}, rows)
	})

	t.Run("width mismatch", func(t *testing.T) {
		qr := &QueryResults{
			Id:      "q9",
			Columns: []Column{{Name: "a", Type: "bigint"}},
			Data:    []json.RawMessage{json.RawMessage(`[1, 2]`)},
		}
		_, err := qr.Rows()
		require.Error(t, err)
		assert.ErrorIs(t, err, prestotype.ErrRowWidthMismatch)
		assert.Contains(t, err.Error(), "query q9")
	})

	t.Run("signature only column", func(t *testing.T) {
		qr := &QueryResults{
			Id: "q1",
			Columns: []Column{{Name: "n", TypeSignature: &ClientTypeSignature{
				RawType:   "array",
				Arguments: []ClientTypeSignatureParameter{{Kind: ArgumentKindTypeSignature, Value: json.RawMessage(`{"rawType":"integer"}`)}},
			}}},
			Data: []json.RawMessage{json.RawMessage(`[["1", 2]]`)},
		}
		rows, err := qr.Rows()
		require.NoError(t, err)
		assert.Equal(t, []QueryRow{{[]any{int64(1), int64(2)}}}, rows)
	})

	t.Run("client normalizer", func(t *testing.T) {
		c, _ := NewClient("http://localhost")
		c.Normalizer(prestotype.NewNormalizer(prestotype.WithMaxDepth(1)))
		qr := &QueryResults{
			Id:      "q1",
			Columns: []Column{{Name: "a", Type: "array(array(bigint))"}},
			Data:    []json.RawMessage{json.RawMessage(`[[[1]]]`)},
			session: c.NewSession(),
		}
		_, err := qr.Rows()
		assert.ErrorIs(t, err, prestotype.ErrNestingTooDeep)
	})

	t.Run("deeply nested data", func(t *testing.T) {
		deep := strings.Repeat("[", 100_000) + strings.Repeat("]", 100_000)
		qr := &QueryResults{
			Id:      "q1",
			Columns: []Column{{Name: "a", Type: "json"}},
			Data:    []json.RawMessage{json.RawMessage("[" + deep + "]")},
		}
		_, err := qr.Rows()
		require.Error(t, err)
		assert.ErrorIs(t, err, prestotype.ErrNestingTooDeep)
		assert.Contains(t, err.Error(), "decode rows of query q1")
	})
}

func TestQueryResults_String(t *testing.T) {
	var nilResults *QueryResults
	assert.Equal(t, "QueryResults<nil>", nilResults.String())

	next := "http://x/next"
	updateType := "INSERT"
	qr := &QueryResults{
		Id:         "q1",
		InfoUri:    "http://x",
		NextUri:    &next,
		Data:       []json.RawMessage{},
		Stats:      &StatementStats{State: "RUNNING"},
		UpdateType: &updateType,
	}
	assert.Equal(t,
		"QueryResults{id=q1, infoUri=http://x, nextUri=http://x/next, columns=0, hasData=true, state=RUNNING, updateType=INSERT}",
		qr.String())
}

func TestQueryResults_FetchNextBatchErrors(t *testing.T) {
	var nilResults *QueryResults
	err := nilResults.FetchNextBatch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil QueryResults")

	next := "http://localhost/next"
	err = (&QueryResults{NextUri: &next}).FetchNextBatch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no session associated")
}

func TestQueryResults_DrainWithoutMoreBatches(t *testing.T) {
	var nilResults *QueryResults
	assert.Error(t, nilResults.Drain(context.Background(), nil))

	called := false
	err := (&QueryResults{}).Drain(context.Background(), func(*QueryResults) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}
