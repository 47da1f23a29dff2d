// Command lemondb runs the LemonDB query engine against a script file or
// standard input, following the CLI-flag-parsing idiom of the teacher's
// cmd/mysqldef/mysqldef.go: a jessevdk/go-flags option struct parsed up
// front, with environment errors (spec.md §7) logged via log.Printf and
// failing fast with os.Exit(-1) before any engine state is constructed.
package main

import (
	"log"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/lemondb/lemondb/internal/config"
	"github.com/lemondb/lemondb/internal/engine"
	"github.com/lemondb/lemondb/internal/lemonlog"
)

type options struct {
	Listen  string `short:"l" long:"listen" description:"Read queries from this file instead of standard input" value-name:"path"`
	Threads int    `short:"t" long:"threads" description:"Worker pool size; 0 auto-detects hardware parallelism" value-name:"N" default:"0"`
	Config  string `long:"config" description:"YAML file of engine tuning knobs (chunk_size, flush_interval_ms)" value-name:"path"`
	Release bool   `long:"release" description:"Release mode: require --listen rather than falling back to standard input"`
}

func main() {
	lemonlog.Init()

	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[options]"
	if _, err := parser.Parse(); err != nil {
		os.Exit(-1)
	}

	if err := engine.ValidateThreadCount(opts.Threads); err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(-1)
	}

	input := os.Stdin
	if opts.Listen != "" {
		f, err := os.Open(opts.Listen)
		if err != nil {
			log.Printf("fatal: cannot open --listen file %q: %v", opts.Listen, err)
			os.Exit(-1)
		}
		defer f.Close()
		input = f
	} else if opts.Release {
		log.Printf("fatal: --listen is required in release mode")
		os.Exit(-1)
	}

	tuning, err := config.LoadTuning(opts.Config)
	if err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(-1)
	}

	e := engine.New(opts.Threads, tuning)
	defer e.Close()

	if err := e.Run(input); err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(-1)
	}
}
