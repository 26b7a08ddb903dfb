package oauth2

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	presto "github.com/ilge/presto-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTokenServer(t *testing.T, token string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"` + token + `","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func authorization(opt presto.RequestOption) string {
	req := httptest.NewRequest(http.MethodGet, "http://coordinator/v1/statement", nil)
	opt(req)
	return req.Header.Get("Authorization")
}

func TestNewStaticTokenOption(t *testing.T) {
	assert.Equal(t, "Bearer jwt-1", authorization(NewStaticTokenOption("jwt-1")))
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, (&Config{ClientID: "id", ClientSecret: "s", TokenURL: "http://auth"}).validate())

	err := (&Config{ClientID: "id"}).validate()
	require.Error(t, err)
	assert.Equal(t, "oauth2: ClientSecret, TokenURL is required", err.Error())

	_, err = NewRequestOption(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ClientID")
}

func TestNewRequestOption_CachesToken(t *testing.T) {
	tokenServer, calls := newTokenServer(t, "cc-token")

	opt, err := NewRequestOption(Config{
		ClientID:     "svc",
		ClientSecret: "secret",
		TokenURL:     tokenServer.URL,
		Scopes:       []string{"query"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer cc-token", authorization(opt))
	assert.Equal(t, "Bearer cc-token", authorization(opt))
	assert.EqualValues(t, 1, calls.Load())
}

type failingSource struct{}

func (failingSource) Token() (*oauth2.Token, error) {
	return nil, assert.AnError
}

func TestTokenSource_Failure(t *testing.T) {
	assert.Empty(t, authorization(TokenSource(failingSource{})))
}

func TestOptionFromParams(t *testing.T) {
	tokenServer, _ := newTokenServer(t, "cc-token")

	opt, err := OptionFromParams(url.Values{ParamAccessToken: {"static"}, ParamClientID: {"ignored"}})
	require.NoError(t, err)
	assert.Equal(t, "Bearer static", authorization(opt))

	opt, err = OptionFromParams(url.Values{})
	require.NoError(t, err)
	assert.Nil(t, opt)

	_, err = OptionFromParams(url.Values{ParamTokenURL: {tokenServer.URL}})
	assert.Error(t, err)

	_, err = OptionFromParams(url.Values{ParamClientID: {"svc"}, ParamTokenURL: {tokenServer.URL}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ClientSecret")

	opt, err = OptionFromParams(url.Values{
		ParamClientID:     {"svc"},
		ParamClientSecret: {"secret"},
		ParamTokenURL:     {tokenServer.URL},
		ParamScopes:       {" read, ,write"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer cc-token", authorization(opt))
}

func TestSplitDSN(t *testing.T) {
	params, clean, err := splitDSN("presto://host:8080/hive?access_token=tok&timezone=UTC&oauth2_scopes=a")
	require.NoError(t, err)
	assert.Equal(t, "tok", params.Get(ParamAccessToken))
	assert.Equal(t, "a", params.Get(ParamScopes))
	assert.Equal(t, "presto://host:8080/hive?timezone=UTC", clean)

	_, _, err = splitDSN("://bad")
	assert.Error(t, err)
}

func TestNewConnector_SendsToken(t *testing.T) {
	var auth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		qr, err := presto.NewQueryResults("q1", "http://"+r.Host+"/v1/query/q1", &presto.StatementStats{State: "FINISHED"})
		require.NoError(t, err)
		qr.Columns = []presto.Column{{Name: "n", Type: "bigint"}}
		qr.Data = []json.RawMessage{json.RawMessage(`["7"]`)}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(qr)
	}))
	defer srv.Close()

	connector, err := NewConnector("presto://" + strings.TrimPrefix(srv.URL, "http://") + "/hive?access_token=secret-token")
	require.NoError(t, err)
	db := sql.OpenDB(connector)
	defer db.Close()

	var n int64
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT 7").Scan(&n))
	assert.Equal(t, int64(7), n)
	assert.Equal(t, "Bearer secret-token", auth.Load())
}

func TestNewConnector_Errors(t *testing.T) {
	_, err := NewConnector("://bad")
	assert.Error(t, err)

	_, err = NewConnector("presto://host:8080/hive?oauth2_client_id=svc")
	assert.Error(t, err)

	connector, err := NewConnector("presto://host:8080/hive")
	require.NoError(t, err)
	assert.NotNil(t, connector)
}
