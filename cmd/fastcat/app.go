package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"fastcodec/pkg/config"
	"fastcodec/pkg/fast"
	"fastcodec/pkg/fast/codec"
	"fastcodec/pkg/fast/message"
	"fastcodec/pkg/fast/text"
	"fastcodec/pkg/feed"
	"fastcodec/pkg/observability"
)

// run is the main entry point after CLI parsing.
func run(opts Options) int {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}
	applyFlags(cfg, opts)

	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Templates == "" {
		zap.L().Error("no template definition; pass -templates or set templates in the config")
		return 1
	}
	templates, err := os.ReadFile(cfg.Templates)
	if err != nil {
		zap.L().Error("read templates", zap.Error(err))
		return 1
	}
	dec, err := fast.NewDecoderFromXML(templates)
	if err != nil {
		zap.L().Error("compile templates", zap.Error(err))
		return 1
	}

	in, closeIn, err := openInput(cfg)
	if err != nil {
		zap.L().Error("open input", zap.Error(err))
		return 1
	}
	defer closeIn()

	n, err := dump(dec, in, cfg, os.Stdout)
	if err != nil {
		zap.L().Error("decode", zap.Int("messages", n), zap.Error(err))
		return 1
	}
	zap.L().Info("done", zap.Int("messages", n))
	return 0
}

// applyFlags lets explicit CLI flags override the configuration file.
func applyFlags(cfg *config.Config, opts Options) {
	if opts.Templates != "" {
		cfg.Templates = opts.Templates
	}
	if opts.Input != "" {
		cfg.Input = opts.Input
	}
	if opts.Format != "" {
		cfg.Format = opts.Format
	}
	if opts.Hex {
		cfg.Hex = true
	}
	if opts.Count != 0 {
		cfg.Count = opts.Count
	}
}

func openInput(cfg *config.Config) (io.Reader, func(), error) {
	var raw io.Reader
	closeIn := func() {}
	if cfg.Input == "" || cfg.Input == "-" {
		raw = os.Stdin
	} else {
		f, err := os.Open(cfg.Input)
		if err != nil {
			return nil, nil, err
		}
		raw = f
		closeIn = func() { _ = f.Close() }
	}
	if !cfg.Hex {
		return raw, closeIn, nil
	}
	// Hex input: read it all, strip whitespace, decode to raw bytes.
	data, err := io.ReadAll(raw)
	if err != nil {
		closeIn()
		return nil, nil, err
	}
	clean := strings.Join(strings.Fields(string(data)), "")
	bin, err := hex.DecodeString(clean)
	if err != nil {
		closeIn()
		return nil, nil, fmt.Errorf("decode hex input: %w", err)
	}
	return bytes.NewReader(bin), closeIn, nil
}

// dump decodes messages until the stream ends or the count limit is reached,
// rendering each in the configured format.
func dump(dec *fast.Decoder, in io.Reader, cfg *config.Config, out io.Writer) (int, error) {
	scanner := feed.NewScanner(dec, in)

	if cfg.Format == "text" {
		f := text.NewFactory()
		return scanMessages(scanner, cfg.Count, f, func() error {
			_, err := fmt.Fprintln(out, f.Text())
			return err
		})
	}

	reg := codec.NewRegistry()
	if c, err := codec.CBOR(); err == nil {
		reg.Register(c)
	}
	c := reg.Get(cfg.Format)
	if c == nil {
		return 0, fmt.Errorf("unknown output format %q", cfg.Format)
	}
	builder := message.NewBuilder()
	return scanMessages(scanner, cfg.Count, builder, func() error {
		b, err := c.Marshal(builder.Message())
		if err != nil {
			return err
		}
		if _, err := out.Write(b); err != nil {
			return err
		}
		if c.Name() == "json" {
			_, err = io.WriteString(out, "\n")
		}
		return err
	})
}

func scanMessages(s *feed.Scanner, count int, f fast.MessageFactory, emit func() error) (int, error) {
	n := 0
	for count == 0 || n < count {
		if err := s.Scan(f); err != nil {
			if errors.Is(err, fast.ErrEOF) {
				return n, nil
			}
			return n, err
		}
		if err := emit(); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
