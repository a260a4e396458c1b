package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/meigma/car"
	"github.com/meigma/car/internal/config"
)

// app carries state shared by every subcommand.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	logLevel   string
	hash       string
	noVerify   bool

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, errOut: errOut, cfg: config.Default()}

	root := &cobra.Command{
		Use:   "car",
		Short: "Content-addressed row archives",
		Long: `car writes key/value rows into content-addressed archives, reads them
back with integrity checks, and builds indexes for reading single rows
by offset without scanning the archive.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&a.hash, "hash", "", "identifier hash for new archives: sha2-256 or blake3")
	pf.BoolVar(&a.noVerify, "no-verify", false, "skip re-hashing row bytes on read")

	root.AddCommand(
		a.newWriteCmd(),
		a.newReadCmd(),
		a.newIndexCmd(),
		a.newSeekCmd(),
		a.newInspectCmd(),
	)
	return root
}

// setup merges the configuration file with flags and builds the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("hash") {
		cfg.Hash = a.hash
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if a.noVerify {
		cfg.Verify = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(a.errOut, level)
	return nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	color := false
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		w = colorable.NewColorable(f)
		color = true
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !color,
	}))
}

func (a *app) writeOptions() ([]car.Option, error) {
	h, err := a.cfg.HashAlgorithm()
	if err != nil {
		return nil, err
	}
	return []car.Option{car.WithHash(h), car.WithLogger(a.logger)}, nil
}

func (a *app) readOptions() []car.ReadOption {
	return []car.ReadOption{
		car.ReadWithVerify(a.cfg.Verify),
		car.ReadWithConcurrency(a.cfg.Concurrency),
		car.ReadWithLogger(a.logger),
	}
}

// catalogDir returns the flag value when set and the configured directory
// otherwise.
func (a *app) catalogDir(flag string) string {
	if flag != "" {
		return flag
	}
	return a.cfg.CatalogDir
}

func printRow(w io.Writer, r car.Row) {
	fmt.Fprintf(w, "key = '%s', data = '%s'\n", r.Key, displayData(r.Data))
}

func displayData(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
