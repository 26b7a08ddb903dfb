package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ilge/presto-go"
	"github.com/ilge/presto-go/prestotype"
	"github.com/rs/zerolog/log"
)

// ParseCmd prints the tree of each signature.
type ParseCmd struct {
	Signatures []string `arg:"" name:"signature" help:"Type signatures to parse."`
}

// signatureTree is the printed form of a Signature. Row fields carry their
// name; other literal parameters are listed as literals.
type signatureTree struct {
	Type       string          `json:"type" yaml:"type"`
	Kind       prestotype.Kind `json:"kind" yaml:"kind"`
	Name       string          `json:"name,omitempty" yaml:"name,omitempty"`
	Literals   []any           `json:"literals,omitempty" yaml:"literals,omitempty"`
	Parameters []signatureTree `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

func newSignatureTree(sig *prestotype.Signature) signatureTree {
	tree := signatureTree{Type: sig.String(), Kind: sig.Kind()}
	isRow := tree.Kind == prestotype.KindRow
	if !isRow {
		tree.Literals = sig.LiteralParameters
	}
	names := sig.FieldNames()
	for i, param := range sig.Parameters {
		child := newSignatureTree(param)
		if isRow && i < len(names) {
			child.Name = names[i]
		}
		tree.Parameters = append(tree.Parameters, child)
	}
	return tree
}

func (c *ParseCmd) Run(g *Globals, s *streams) error {
	n := prestotype.NewNormalizer(prestotype.WithMaxDepth(g.MaxDepth))
	enc := newEncoder(s.out, g.Output)
	for _, text := range c.Signatures {
		sig, err := n.Signature(text)
		if err != nil {
			return err
		}
		if err := enc.Encode(newSignatureTree(sig)); err != nil {
			return err
		}
	}
	return enc.Close()
}

// NormalizeCmd normalizes one JSON value.
type NormalizeCmd struct {
	Type  string `help:"Type signature of the value." short:"t" required:""`
	Value string `arg:"" optional:"" help:"JSON value. Read from stdin when omitted."`
}

func (c *NormalizeCmd) Run(g *Globals, s *streams) error {
	data := []byte(c.Value)
	if c.Value == "" {
		var err error
		if data, err = io.ReadAll(s.in); err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	}
	n := prestotype.NewNormalizer(prestotype.WithMaxDepth(g.MaxDepth))
	raw, err := n.DecodeRaw(data)
	if err != nil {
		return fmt.Errorf("invalid JSON value: %w", err)
	}

	v, err := n.NormalizeType(c.Type, raw)
	if err != nil {
		return err
	}
	enc := newEncoder(s.out, g.Output)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// QueryCmd runs one statement and prints every row as an object keyed by
// column name.
type QueryCmd struct {
	Server       string        `help:"Coordinator URL." short:"s"`
	Trino        bool          `help:"Speak the Trino dialect of the protocol headers."`
	User         string        `help:"User to run as." short:"u"`
	Catalog      string        `help:"Default catalog."`
	Schema       string        `help:"Default schema."`
	Token        string        `help:"Bearer token." env:"PRESTO_TOKEN"`
	ClientID     string        `help:"OAuth2 client ID for the client credentials flow."`
	ClientSecret string        `help:"OAuth2 client secret." env:"PRESTO_CLIENT_SECRET"`
	TokenURL     string        `help:"OAuth2 token endpoint."`
	Timeout      time.Duration `help:"Give up after this long. Zero waits forever."`

	SQL string `arg:"" name:"sql" help:"Statement to run."`
}

func (c *QueryCmd) config(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	override(&cfg.Server, c.Server)
	override(&cfg.User, c.User)
	override(&cfg.Catalog, c.Catalog)
	override(&cfg.Schema, c.Schema)
	override(&cfg.Token, c.Token)
	override(&cfg.OAuth2.ClientID, c.ClientID)
	override(&cfg.OAuth2.ClientSecret, c.ClientSecret)
	override(&cfg.OAuth2.TokenURL, c.TokenURL)
	cfg.Trino = cfg.Trino || c.Trino
	return cfg, nil
}

func (c *QueryCmd) Run(g *Globals, s *streams) error {
	cfg, err := c.config(g.Config)
	if err != nil {
		return err
	}
	session, closer, err := newSession(cfg, g.MaxDepth)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx := context.Background()
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	results, _, err := session.Query(ctx, c.SQL)
	if err != nil {
		return err
	}
	log.Debug().Str("query_id", results.Id).Str("server", cfg.Server).Msg("query submitted")

	var out []any
	collect := func(qr *presto.QueryResults) error {
		rows, err := qr.Rows()
		if err != nil {
			return err
		}
		for _, row := range rows {
			out = append(out, namedRow(qr.Columns, row))
		}
		return nil
	}
	if err := collect(results); err != nil {
		return err
	}
	if err := results.Drain(ctx, collect); err != nil {
		return err
	}
	log.Debug().Str("query_id", results.Id).Int("rows", len(out)).Dur("elapsed", results.Stats.Elapsed()).Msg("query finished")

	enc := newEncoder(s.out, g.Output)
	if results.UpdateType != nil {
		summary := []prestotype.Field{{Name: "update_type", Value: *results.UpdateType}}
		if results.UpdateCount != nil {
			summary = append(summary, prestotype.Field{Name: "update_count", Value: *results.UpdateCount})
		}
		if err := enc.Encode(prestotype.NewRowValue(summary...)); err != nil {
			return err
		}
		return enc.Close()
	}
	if out == nil {
		out = []any{}
	}
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}

func newSession(cfg *Config, maxDepth int) (*presto.Session, io.Closer, error) {
	client, err := presto.NewClient(cfg.Server)
	if err != nil {
		return nil, nil, err
	}
	client.IsTrino(cfg.Trino).Normalizer(prestotype.NewNormalizer(prestotype.WithMaxDepth(maxDepth)))

	session := client.NewSession().User(cfg.User).Source(cfg.Source).Catalog(cfg.Catalog).Schema(cfg.Schema)
	for k, v := range cfg.Session {
		session.SessionParam(k, v)
	}
	auth, closer, err := cfg.authOption()
	if err != nil {
		return nil, nil, err
	}
	if auth != nil {
		session.RequestOptions(auth)
	}
	return session, closer, nil
}

// namedRow pairs a row with its column names.
func namedRow(columns []presto.Column, row prestotype.Row) *prestotype.RowValue {
	fields := make([]prestotype.Field, len(row))
	for i, v := range row {
		name := fmt.Sprintf("_col%d", i)
		if i < len(columns) && strings.TrimSpace(columns[i].Name) != "" {
			name = columns[i].Name
		}
		fields[i] = prestotype.Field{Name: name, Value: v}
	}
	return prestotype.NewRowValue(fields...)
}
