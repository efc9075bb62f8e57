package main

import "flag"

// Options holds CLI options for fastcat. Flags left at their zero value
// defer to the configuration file.
type Options struct {
	ConfigPath string
	Templates  string
	Input      string
	Format     string
	Hex        bool
	Count      int
}

// ParseFlags parses CLI flags from args and returns Options.
func ParseFlags(args []string) Options {
	fs := flag.NewFlagSet("fastcat", flag.ExitOnError)
	var opts Options
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file")
	fs.StringVar(&opts.Templates, "templates", "", "Path to FAST template definition XML")
	fs.StringVar(&opts.Input, "input", "", "Input file path, or - for stdin")
	fs.StringVar(&opts.Format, "format", "", "Output format: text, json, cbor or pb")
	fs.BoolVar(&opts.Hex, "hex", false, "Treat input as hex text")
	fs.IntVar(&opts.Count, "count", 0, "Stop after this many messages (0 = all)")
	_ = fs.Parse(args)
	return opts
}
