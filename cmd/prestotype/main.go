// Command prestotype parses Presto type signatures, normalizes JSON values
// against them and runs statements with normalized output.
//
//	prestotype parse 'map(varchar, array(row(a bigint, b double)))'
//	echo '[["1", 2.5]]' | prestotype normalize -t 'array(row(a bigint, b double))'
//	prestotype query --server http://coordinator:8080 'SELECT * FROM t LIMIT 10'
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

// Globals are the flags shared by every command.
type Globals struct {
	Config   string           `help:"YAML file with connection defaults." short:"c" type:"path"`
	Output   string           `help:"Output format (${enum})." short:"o" enum:"json,yaml" default:"json"`
	Debug    bool             `help:"Enable debug logging." short:"d"`
	MaxDepth int              `help:"Nesting limit for types and values." default:"100"`
	Version  kong.VersionFlag `help:"Show version information." short:"v"`
}

// CLI is the command line of prestotype.
type CLI struct {
	Globals `embed:""`

	Parse     ParseCmd     `cmd:"" help:"Parse type signatures and print their trees."`
	Normalize NormalizeCmd `cmd:"" help:"Normalize a JSON value against a type."`
	Query     QueryCmd     `cmd:"" help:"Run a statement and print its rows normalized."`
}

// streams are the standard streams handed to commands.
type streams struct {
	in  io.Reader
	out io.Writer
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "prestotype: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("prestotype"),
		kong.Description("Parse Presto type signatures and normalize values against them."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Vars{"version": version},
	)
	if err != nil {
		return err
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	setupLogging(stderr, cli.Debug)
	return ctx.Run(&cli.Globals, &streams{in: stdin, out: stdout})
}

func setupLogging(w io.Writer, debug bool) {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).With().Timestamp().Logger()
}
