package presto

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ilge/presto-go/prestotype"
	str2duration "github.com/xhit/go-str2duration/v2"
)

func init() {
	sql.Register("presto", &prestoDriver{})
}

// --- DSN Parsing ---

// dsnConfig holds the parsed DSN parameters.
type dsnConfig struct {
	host       string
	port       string
	user       string
	password   string
	catalog    string
	schema     string
	isTrino    bool
	timezone   string
	clientTags []string
	clientInfo string
	source     string
	// maxTypeDepth bounds type nesting; zero keeps the default
	maxTypeDepth int
	// TLS files; any of them switches the connection to https
	sslCert       string
	sslKey        string
	sslCA         string
	sslSkipVerify bool
	// Unrecognized query params become session properties.
	sessionProps map[string]string
}

// parseDSN parses a Presto/Trino DSN string.
//
// Format: presto://[user[:password]@]host[:port][/catalog[/schema]][?key=value&...]
//
//	trino://...
//
// Query params: timezone, client_tags, client_info, source, max_type_depth,
// ssl_cert, ssl_key, ssl_ca, ssl_skip_verify.
// Unrecognized params become session properties.
func parseDSN(dsn string) (*dsnConfig, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid DSN: %w", err)
	}

	cfg := &dsnConfig{
		sessionProps: make(map[string]string),
	}

	switch u.Scheme {
	case "presto":
		cfg.port = "8080"
	case "trino":
		cfg.isTrino = true
		cfg.port = "8080"
	default:
		return nil, fmt.Errorf("unsupported scheme %q: must be presto or trino", u.Scheme)
	}

	// User info
	if u.User != nil {
		cfg.user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			cfg.password = p
		}
	}

	// Host and port
	cfg.host = u.Hostname()
	if cfg.host == "" {
		return nil, fmt.Errorf("missing host in DSN")
	}
	if p := u.Port(); p != "" {
		cfg.port = p
	}

	// Path: /catalog/schema
	path := strings.TrimPrefix(u.Path, "/")
	if path != "" {
		parts := strings.SplitN(path, "/", 2)
		cfg.catalog = parts[0]
		if len(parts) > 1 {
			cfg.schema = parts[1]
		}
	}

	// Query params
	for key, values := range u.Query() {
		val := values[0]
		switch key {
		case "timezone":
			cfg.timezone = val
		case "client_tags":
			cfg.clientTags = strings.Split(val, ",")
		case "client_info":
			cfg.clientInfo = val
		case "source":
			cfg.source = val
		case "max_type_depth":
			depth, err := strconv.Atoi(val)
			if err != nil || depth <= 0 {
				return nil, fmt.Errorf("invalid max_type_depth %q: must be a positive integer", val)
			}
			cfg.maxTypeDepth = depth
		case "ssl_cert":
			cfg.sslCert = val
		case "ssl_key":
			cfg.sslKey = val
		case "ssl_ca":
			cfg.sslCA = val
		case "ssl_skip_verify":
			skip, err := strconv.ParseBool(val)
			if err != nil {
				return nil, fmt.Errorf("invalid ssl_skip_verify %q: %w", val, err)
			}
			cfg.sslSkipVerify = skip
		default:
			cfg.sessionProps[key] = val
		}
	}

	return cfg, nil
}

func (cfg *dsnConfig) hasTLS() bool {
	return cfg.sslCert != "" || cfg.sslKey != "" || cfg.sslCA != "" || cfg.sslSkipVerify
}

// serverURL returns the base URL for the Presto/Trino server.
func (cfg *dsnConfig) serverURL() string {
	scheme := "http"
	if cfg.hasTLS() {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%s", scheme, cfg.host, cfg.port)
}

// buildTLSConfig returns nil when no TLS parameter is set.
func (cfg *dsnConfig) buildTLSConfig() (*tls.Config, error) {
	if !cfg.hasTLS() {
		return nil, nil
	}
	tlsCfg := &tls.Config{InsecureSkipVerify: cfg.sslSkipVerify}

	if cfg.sslCA != "" {
		pem, err := os.ReadFile(cfg.sslCA)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("failed to parse CA certificate %s", cfg.sslCA)
		}
		tlsCfg.RootCAs = pool
	}
	if cfg.sslCert != "" || cfg.sslKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.sslCert, cfg.sslKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}

// --- Parameter Interpolation ---

// valueToSQL converts a Go driver.Value to a SQL literal string.
func valueToSQL(v driver.Value) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case string:
		escaped := strings.ReplaceAll(val, "'", "''")
		return "'" + escaped + "'", nil
	case []byte:
		return "X'" + hex.EncodeToString(val) + "'", nil
	case time.Time:
		return "TIMESTAMP '" + val.Format("2006-01-02 15:04:05.000") + "'", nil
	case time.Duration:
		return "INTERVAL '" + formatIntervalDayToSecond(val) + "' DAY TO SECOND", nil
	default:
		return "", fmt.Errorf("unsupported parameter type: %T", v)
	}
}

// formatIntervalDayToSecond renders d as "D HH:MM:SS.mmm".
func formatIntervalDayToSecond(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	d -= seconds * time.Second
	return fmt.Sprintf("%s%d %02d:%02d:%02d.%03d", sign, days, hours, minutes, seconds, d/time.Millisecond)
}

// interpolateParams replaces ? placeholders in the query with SQL literals.
// It skips ? characters inside single-quoted string literals.
func interpolateParams(query string, args []driver.Value) (string, error) {
	if len(args) == 0 {
		return query, nil
	}

	var buf strings.Builder
	buf.Grow(len(query) + len(args)*8)
	argIdx := 0
	inString := false

	for i := 0; i < len(query); i++ {
		ch := query[i]
		if ch == '\'' {
			if inString && i+1 < len(query) && query[i+1] == '\'' {
				// Escaped quote inside string literal
				buf.WriteByte('\'')
				buf.WriteByte('\'')
				i++
				continue
			}
			inString = !inString
			buf.WriteByte(ch)
			continue
		}
		if ch == '?' && !inString {
			if argIdx >= len(args) {
				return "", fmt.Errorf("not enough arguments: query has more placeholders than the %d provided arguments", len(args))
			}
			s, err := valueToSQL(args[argIdx])
			if err != nil {
				return "", err
			}
			buf.WriteString(s)
			argIdx++
			continue
		}
		buf.WriteByte(ch)
	}

	if argIdx != len(args) {
		return "", fmt.Errorf("too many arguments: %d provided but only %d placeholders in query", len(args), argIdx)
	}
	return buf.String(), nil
}

// --- Type Conversion ---

var (
	scanTypeInt64    = reflect.TypeOf(int64(0))
	scanTypeFloat64  = reflect.TypeOf(float64(0))
	scanTypeBool     = reflect.TypeOf(false)
	scanTypeString   = reflect.TypeOf("")
	scanTypeBytes    = reflect.TypeOf([]byte(nil))
	scanTypeTime     = reflect.TypeOf(time.Time{})
	scanTypeDuration = reflect.TypeOf(time.Duration(0))
)

// scanTypeFor returns the reflect.Type that Scan should use for a column.
func scanTypeFor(sig *prestotype.Signature) reflect.Type {
	if sig == nil {
		return scanTypeString
	}
	kind := sig.Kind()
	switch {
	case kind.IsInteger():
		return scanTypeInt64
	case kind.IsFloat():
		return scanTypeFloat64
	}
	switch kind {
	case prestotype.KindBoolean:
		return scanTypeBool
	case prestotype.KindDate, prestotype.KindTimestamp, prestotype.KindTimestampWithTimeZone,
		prestotype.KindTime, prestotype.KindTimeWithTimeZone:
		return scanTypeTime
	case prestotype.KindIntervalDayToSecond:
		return scanTypeDuration
	case prestotype.KindUnknown:
		return scanTypeBytes
	default:
		// text kinds, decimal, uuid, and containers as JSON
		return scanTypeString
	}
}

// driverValue converts a normalized value to a driver.Value. Containers
// become their JSON text, which NullSlice, NullMap and NullRow scan.
func driverValue(sig *prestotype.Signature, val any) (driver.Value, error) {
	if val == nil {
		return nil, nil
	}

	switch sig.Kind() {
	case prestotype.KindDate:
		if s, ok := val.(string); ok {
			return time.Parse("2006-01-02", s)
		}
	case prestotype.KindTimestamp:
		if s, ok := val.(string); ok {
			return parseTimestamp(s)
		}
	case prestotype.KindTimestampWithTimeZone:
		if s, ok := val.(string); ok {
			return parseTimestampWithTZ(s)
		}
	case prestotype.KindTime:
		if s, ok := val.(string); ok {
			return parseTime(s)
		}
	case prestotype.KindTimeWithTimeZone:
		if s, ok := val.(string); ok {
			return parseTimeWithTZ(s)
		}
	case prestotype.KindIntervalDayToSecond:
		if s, ok := val.(string); ok {
			d, err := parseIntervalDayToSecond(s)
			if err != nil {
				return nil, err
			}
			return int64(d), nil
		}
	case prestotype.KindArray, prestotype.KindMap, prestotype.KindRow:
		return marshalValue(val)
	}

	switch v := val.(type) {
	case int64, float64, bool, string, []byte:
		return v, nil
	default:
		// unknown types whose values passed through unchanged
		return marshalValue(v)
	}
}

func marshalValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("presto: cannot encode %T as JSON: %w", v, err)
	}
	return string(b), nil
}

const (
	timestampLayout = "2006-01-02 15:04:05"
	timeLayout      = "15:04:05"
)

// parseTimestamp parses a Presto timestamp without time zone. Fractional
// seconds of any precision are accepted.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("presto: cannot parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// parseTimestampWithTZ parses a Presto timestamp with time zone.
func parseTimestampWithTZ(s string) (time.Time, error) {
	t, err := parseZoned(s, timestampLayout)
	if err != nil {
		return time.Time{}, fmt.Errorf("presto: cannot parse timestamp with time zone %q: %w", s, err)
	}
	return t, nil
}

// parseTime parses a Presto time of day into a time on January 1, year 0.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("presto: cannot parse time %q: %w", s, err)
	}
	return t, nil
}

// parseTimeWithTZ parses a Presto time with time zone.
func parseTimeWithTZ(s string) (time.Time, error) {
	t, err := parseZoned(s, timeLayout)
	if err != nil {
		return time.Time{}, fmt.Errorf("presto: cannot parse time with time zone %q: %w", s, err)
	}
	return t, nil
}

// parseZoned parses "<layout> <zone>" where zone is a numeric offset
// ("+08:00") or an IANA name ("UTC", "America/Los_Angeles").
func parseZoned(s, layout string) (time.Time, error) {
	idx := strings.LastIndexByte(s, ' ')
	if idx < 0 {
		return time.Time{}, errors.New("missing time zone")
	}
	local, zone := s[:idx], s[idx+1:]

	if zone != "" && (zone[0] == '+' || zone[0] == '-') {
		return time.Parse(layout+" -07:00", s)
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, err
	}
	return time.ParseInLocation(layout, local, loc)
}

// parseIntervalDayToSecond parses the "D HH:MM:SS.mmm" form of an
// interval day to second, with an optional leading minus sign.
func parseIntervalDayToSecond(s string) (time.Duration, error) {
	text := strings.TrimSpace(s)
	sign := ""
	if strings.HasPrefix(text, "-") {
		sign = "-"
		text = text[1:]
	}

	fields := strings.Fields(text)
	if len(fields) != 2 {
		return 0, fmt.Errorf("presto: cannot parse interval day to second %q", s)
	}
	clock := strings.Split(fields[1], ":")
	if len(clock) != 3 {
		return 0, fmt.Errorf("presto: cannot parse interval day to second %q", s)
	}

	d, err := str2duration.ParseDuration(fmt.Sprintf("%s%sd%sh%sm%ss", sign, fields[0], clock[0], clock[1], clock[2]))
	if err != nil {
		return 0, fmt.Errorf("presto: cannot parse interval day to second %q: %w", s, err)
	}
	return d, nil
}

// --- Driver Types ---

// prestoDriver implements driver.Driver and driver.DriverContext.
type prestoDriver struct{}

var _ driver.Driver = (*prestoDriver)(nil)
var _ driver.DriverContext = (*prestoDriver)(nil)

// Open implements driver.Driver. It parses the DSN and returns a new connection.
func (d *prestoDriver) Open(dsn string) (driver.Conn, error) {
	connector, err := NewConnector(dsn)
	if err != nil {
		return nil, err
	}
	return connector.Connect(context.Background())
}

// OpenConnector implements driver.DriverContext.
func (d *prestoDriver) OpenConnector(dsn string) (driver.Connector, error) {
	return NewConnector(dsn)
}

// --- Connector ---

// ConnectorOption configures a prestoConnector.
type ConnectorOption func(*prestoConnector)

// WithSessionSetup registers a hook that is called on every new Session created
// by the connector's Connect method. This allows external modules (e.g., Kerberos
// auth) to configure sessions without modifying the core driver.
func WithSessionSetup(fn func(*Session)) ConnectorOption {
	return func(c *prestoConnector) {
		c.sessionSetup = fn
	}
}

// prestoConnector implements driver.Connector. It creates a shared Client
// (via sync.Once) and produces new Sessions for each Connect call.
type prestoConnector struct {
	cfg          *dsnConfig
	client       *Client
	once         sync.Once
	err          error
	sessionSetup func(*Session)
}

var _ driver.Connector = (*prestoConnector)(nil)

// NewConnector creates a new driver.Connector from a DSN string.
// Use this with sql.OpenDB for connection pool management.
func NewConnector(dsn string, opts ...ConnectorOption) (driver.Connector, error) {
	cfg, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}
	c := &prestoConnector{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Connect implements driver.Connector.
func (c *prestoConnector) Connect(ctx context.Context) (driver.Conn, error) {
	c.once.Do(func() {
		c.client, c.err = NewClient(c.cfg.serverURL())
		if c.err != nil {
			return
		}
		c.client.isTrino = c.cfg.isTrino
		tlsCfg, err := c.cfg.buildTLSConfig()
		if err != nil {
			c.err = err
			return
		}
		if tlsCfg != nil {
			c.client.TLSConfig(tlsCfg)
		}
		if c.cfg.maxTypeDepth > 0 {
			c.client.Normalizer(prestotype.NewNormalizer(prestotype.WithMaxDepth(c.cfg.maxTypeDepth)))
		}
	})
	if c.err != nil {
		return nil, c.err
	}

	session := c.client.NewSession()

	if c.cfg.user != "" {
		if c.cfg.password != "" {
			session.UserPassword(c.cfg.user, c.cfg.password)
		} else {
			session.User(c.cfg.user)
		}
	}
	if c.cfg.catalog != "" {
		session.Catalog(c.cfg.catalog)
	}
	if c.cfg.schema != "" {
		session.Schema(c.cfg.schema)
	}
	if c.cfg.timezone != "" {
		session.TimeZone(c.cfg.timezone)
	}
	if c.cfg.clientInfo != "" {
		session.ClientInfo(c.cfg.clientInfo)
	}
	if c.cfg.source != "" {
		session.Source(c.cfg.source)
	}
	if len(c.cfg.clientTags) > 0 {
		session.ClientTags(c.cfg.clientTags...)
	}
	for k, v := range c.cfg.sessionProps {
		session.SessionParam(k, v)
	}

	if c.sessionSetup != nil {
		c.sessionSetup(session)
	}

	return &prestoConn{session: session}, nil
}

// Driver implements driver.Connector.
func (c *prestoConnector) Driver() driver.Driver {
	return &prestoDriver{}
}

// --- Connection ---

// prestoConn implements driver.Conn, driver.QueryerContext, driver.ExecerContext,
// and driver.ConnBeginTx.
type prestoConn struct {
	session *Session
	closed  bool
}

var _ driver.Conn = (*prestoConn)(nil)
var _ driver.QueryerContext = (*prestoConn)(nil)
var _ driver.ExecerContext = (*prestoConn)(nil)
var _ driver.ConnBeginTx = (*prestoConn)(nil)
var _ driver.NamedValueChecker = (*prestoConn)(nil)

// CheckNamedValue implements driver.NamedValueChecker. Durations are kept
// so they interpolate as intervals; everything else uses the default
// conversion.
func (c *prestoConn) CheckNamedValue(nv *driver.NamedValue) error {
	if _, ok := nv.Value.(time.Duration); ok {
		return nil
	}
	return driver.ErrSkip
}

// Prepare implements driver.Conn.
func (c *prestoConn) Prepare(query string) (driver.Stmt, error) {
	return &prestoStmt{conn: c, query: query}, nil
}

// Close implements driver.Conn.
func (c *prestoConn) Close() error {
	c.closed = true
	return nil
}

// Begin implements driver.Conn. Use BeginTx instead.
func (c *prestoConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// BeginTx implements driver.ConnBeginTx.
func (c *prestoConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	var modes []string
	if sql.IsolationLevel(opts.Isolation) != sql.LevelDefault {
		level, err := prestoIsolationLevel(sql.IsolationLevel(opts.Isolation))
		if err != nil {
			return nil, err
		}
		modes = append(modes, "ISOLATION LEVEL "+level)
	}
	if opts.ReadOnly {
		modes = append(modes, "READ ONLY")
	}

	stmt := "START TRANSACTION"
	if len(modes) > 0 {
		stmt += " " + strings.Join(modes, ", ")
	}
	_, err := c.execDirect(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("presto: failed to start transaction: %w", err)
	}
	return &prestoTx{conn: c}, nil
}

// prestoIsolationLevel maps a database/sql isolation level to its SQL name.
func prestoIsolationLevel(level sql.IsolationLevel) (string, error) {
	switch level {
	case sql.LevelReadUncommitted:
		return "READ UNCOMMITTED", nil
	case sql.LevelReadCommitted:
		return "READ COMMITTED", nil
	case sql.LevelRepeatableRead:
		return "REPEATABLE READ", nil
	case sql.LevelSerializable:
		return "SERIALIZABLE", nil
	default:
		return "", fmt.Errorf("presto: isolation level %s is not supported", level)
	}
}

// QueryContext implements driver.QueryerContext.
func (c *prestoConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	positional, err := namedToPositional(args)
	if err != nil {
		return nil, err
	}
	interpolated, err := interpolateParams(query, positional)
	if err != nil {
		return nil, err
	}

	qr, _, err := c.session.Query(ctx, interpolated)
	if err != nil {
		return nil, err
	}

	// Drain through empty batches to get column metadata + first data
	for len(qr.Data) == 0 && qr.HasMoreBatch() {
		if err := qr.FetchNextBatch(ctx); err != nil {
			return nil, err
		}
	}

	return newPrestoRows(qr, ctx)
}

// ExecContext implements driver.ExecerContext.
func (c *prestoConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	positional, err := namedToPositional(args)
	if err != nil {
		return nil, err
	}
	interpolated, err := interpolateParams(query, positional)
	if err != nil {
		return nil, err
	}

	return c.execDirect(ctx, interpolated)
}

// execDirect executes a query and drains all results, returning the final result.
func (c *prestoConn) execDirect(ctx context.Context, query string) (driver.Result, error) {
	qr, _, err := c.session.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	// Drain all batches
	for qr.HasMoreBatch() {
		if err := qr.FetchNextBatch(ctx); err != nil {
			return nil, err
		}
	}

	return &prestoResult{updateCount: qr.UpdateCount}, nil
}

// namedToPositional converts named values to positional driver.Value slice.
func namedToPositional(args []driver.NamedValue) ([]driver.Value, error) {
	positional := make([]driver.Value, len(args))
	for i, arg := range args {
		positional[i] = arg.Value
	}
	return positional, nil
}

// --- Result ---

// prestoResult implements driver.Result.
type prestoResult struct {
	updateCount *int64
}

var _ driver.Result = (*prestoResult)(nil)

// LastInsertId implements driver.Result. Presto does not support auto-increment IDs.
func (r *prestoResult) LastInsertId() (int64, error) {
	return 0, fmt.Errorf("presto: LastInsertId is not supported")
}

// RowsAffected implements driver.Result.
func (r *prestoResult) RowsAffected() (int64, error) {
	if r.updateCount == nil {
		return 0, nil
	}
	return *r.updateCount, nil
}

// --- Rows ---

// prestoRows implements driver.Rows along with optional column type interfaces.
type prestoRows struct {
	qr      *QueryResults
	ctx     context.Context
	columns []Column
	// sigs holds the parsed type of each column
	sigs []*prestotype.Signature
	// Current batch of normalized rows
	rows []QueryRow
	// Current position within the batch
	pos    int
	closed bool
}

var _ driver.Rows = (*prestoRows)(nil)
var _ driver.RowsColumnTypeScanType = (*prestoRows)(nil)
var _ driver.RowsColumnTypeDatabaseTypeName = (*prestoRows)(nil)

// newPrestoRows creates a prestoRows from a QueryResults, normalizing the initial data batch.
func newPrestoRows(qr *QueryResults, ctx context.Context) (*prestoRows, error) {
	r := &prestoRows{
		qr:  qr,
		ctx: ctx,
	}
	if err := r.parseBatch(); err != nil {
		return nil, err
	}
	return r, nil
}

// parseBatch normalizes the current qr.Data into r.rows. Column metadata
// may arrive after the first response, so it is picked up here.
func (r *prestoRows) parseBatch() error {
	r.pos = 0
	if len(r.columns) == 0 && len(r.qr.Columns) > 0 {
		if err := r.setColumns(r.qr.Columns); err != nil {
			return err
		}
	}

	rows, err := r.qr.Rows()
	if err != nil {
		return fmt.Errorf("presto: %w", err)
	}
	r.rows = rows
	return nil
}

func (r *prestoRows) setColumns(columns []Column) error {
	n := r.qr.normalizer()
	sigs := make([]*prestotype.Signature, len(columns))
	for i, col := range columns {
		text, err := col.typeText()
		if err != nil {
			return fmt.Errorf("presto: column %q: %w", col.Name, err)
		}
		sigs[i], err = n.Signature(text)
		if err != nil {
			return fmt.Errorf("presto: column %q: %w", col.Name, err)
		}
	}
	r.columns = columns
	r.sigs = sigs
	return nil
}

// Columns implements driver.Rows.
func (r *prestoRows) Columns() []string {
	names := make([]string, len(r.columns))
	for i, col := range r.columns {
		names[i] = col.Name
	}
	return names
}

// Close implements driver.Rows.
func (r *prestoRows) Close() error {
	r.closed = true
	return nil
}

// Next implements driver.Rows.
func (r *prestoRows) Next(dest []driver.Value) error {
	if r.closed {
		return io.EOF
	}

	for r.pos >= len(r.rows) {
		// Current batch exhausted; try to fetch the next one
		if !r.qr.HasMoreBatch() {
			return io.EOF
		}
		if err := r.qr.FetchNextBatch(r.ctx); err != nil {
			return err
		}
		if err := r.parseBatch(); err != nil {
			return err
		}
	}

	row := r.rows[r.pos]
	r.pos++

	for i := range dest {
		if i >= len(row) || i >= len(r.sigs) {
			dest[i] = nil
			continue
		}
		val, err := driverValue(r.sigs[i], row[i])
		if err != nil {
			return fmt.Errorf("presto: column %q: %w", r.columns[i].Name, err)
		}
		dest[i] = val
	}
	return nil
}

// ColumnTypeDatabaseTypeName implements driver.RowsColumnTypeDatabaseTypeName.
func (r *prestoRows) ColumnTypeDatabaseTypeName(index int) string {
	if index < 0 || index >= len(r.sigs) {
		return ""
	}
	return strings.ToUpper(r.sigs[index].Base)
}

// ColumnTypeScanType implements driver.RowsColumnTypeScanType.
func (r *prestoRows) ColumnTypeScanType(index int) reflect.Type {
	if index < 0 || index >= len(r.sigs) {
		return scanTypeString
	}
	return scanTypeFor(r.sigs[index])
}

// --- Statement ---

// prestoStmt implements driver.Stmt, driver.StmtQueryContext, and driver.StmtExecContext.
type prestoStmt struct {
	conn  *prestoConn
	query string
}

var _ driver.Stmt = (*prestoStmt)(nil)
var _ driver.StmtQueryContext = (*prestoStmt)(nil)
var _ driver.StmtExecContext = (*prestoStmt)(nil)

// Close implements driver.Stmt.
func (s *prestoStmt) Close() error {
	return nil
}

// NumInput implements driver.Stmt. Returns -1 to disable driver-side validation.
func (s *prestoStmt) NumInput() int {
	return -1
}

// Exec implements driver.Stmt.
func (s *prestoStmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), namedValues(args))
}

// Query implements driver.Stmt.
func (s *prestoStmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), namedValues(args))
}

// ExecContext implements driver.StmtExecContext.
func (s *prestoStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	return s.conn.ExecContext(ctx, s.query, args)
}

// QueryContext implements driver.StmtQueryContext.
func (s *prestoStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return s.conn.QueryContext(ctx, s.query, args)
}

// namedValues converts positional args to NamedValue slice.
func namedValues(args []driver.Value) []driver.NamedValue {
	named := make([]driver.NamedValue, len(args))
	for i, v := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return named
}

// --- Transaction ---

// prestoTx implements driver.Tx.
type prestoTx struct {
	conn *prestoConn
}

var _ driver.Tx = (*prestoTx)(nil)

// Commit implements driver.Tx.
func (tx *prestoTx) Commit() error {
	_, err := tx.conn.execDirect(context.Background(), "COMMIT")
	return err
}

// Rollback implements driver.Tx.
func (tx *prestoTx) Rollback() error {
	_, err := tx.conn.execDirect(context.Background(), "ROLLBACK")
	return err
}
