// Command zwreec compiles a Twee source file into a Z-Machine v8 story
// file, per spec.md §6.1. Flag handling follows SPEC_FULL.md §8's cobra
// layout; logging follows logrus's leveled-logger convention, the way
// the rest of the example pack's CLI tooling (moby-moby's cmd/docker)
// pulls in both spf13/cobra and sirupsen/logrus side by side.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/davetcode/zwreec/internal/compiler"
	"github.com/davetcode/zwreec/internal/diag"
)

// version is overwritten at build time via -ldflags "-X main.version=...".
var version = "dev"

// Exit codes, spec.md §6.1.
const (
	exitOK = iota
	exitCompileError
	exitUsageError
	exitIOError
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	var (
		showVersion bool
		verbosity   int
		quiet       bool
		logFile     string
		output      string
	)

	cmd := &cobra.Command{
		Use:           "zwreec INPUT",
		Short:         "Compile Twee source into a Z-Machine v8 story file",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, posArgs []string) error {
			if showVersion {
				return nil
			}
			return cobra.ExactArgs(1)(cmd, posArgs)
		},
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			if showVersion {
				fmt.Fprintln(cmd.OutOrStdout(), version)
				return nil
			}

			switch {
			case verbosity >= 3:
				log.SetLevel(logrus.TraceLevel)
			case verbosity == 2:
				log.SetLevel(logrus.DebugLevel)
			case verbosity == 1:
				log.SetLevel(logrus.InfoLevel)
			default:
				log.SetLevel(logrus.WarnLevel)
			}

			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
				if err != nil {
					return usageIOError{err}
				}
				defer f.Close()
				log.SetOutput(f)
			}

			input := posArgs[0]
			if output == "" {
				output = defaultOutputPath(input)
			}

			return compileFile(log, input, output, quiet)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&showVersion, "version", "V", false, "print the version and exit")
	flags.CountVarP(&verbosity, "verbose", "v", "increase logging verbosity (repeatable)")
	flags.BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	flags.StringVarP(&logFile, "log", "l", "", "write logs to LOGFILE (default \"zwreec.log\" if given with no value)")
	flags.Lookup("log").NoOptDefVal = "zwreec.log"
	flags.StringVarP(&output, "output", "o", "", "output file (default: INPUT with its extension replaced by .z8)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		switch err.(type) {
		case usageIOError:
			fmt.Fprintln(os.Stderr, err)
			return exitIOError
		case compileFailure:
			// Diagnostics already rendered by compileFile.
			return exitCompileError
		default:
			// Cobra's own arg/flag validation errors land here.
			fmt.Fprintln(os.Stderr, err)
			return exitUsageError
		}
	}
	return exitOK
}

// usageIOError wraps a filesystem error so run can map it to exitIOError.
type usageIOError struct{ err error }

func (e usageIOError) Error() string { return e.err.Error() }
func (e usageIOError) Unwrap() error { return e.err }

// compileFailure marks a diagnostic-reported compilation failure, already
// rendered to stderr, so run maps it to exitCompileError without printing
// it again.
type compileFailure struct{}

func (compileFailure) Error() string { return "compilation failed" }

func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + ".z8"
}

func compileFile(log *logrus.Logger, input, output string, quiet bool) error {
	src, err := os.ReadFile(input)
	if err != nil {
		return usageIOError{fmt.Errorf("reading %s: %w", input, err)}
	}

	log.Debugf("compiling %s -> %s", input, output)

	res, err := compiler.Compile(input, src, compiler.DefaultSerial())
	if err != nil {
		if res != nil && res.Diags != nil {
			diag.RenderAll(os.Stderr, res.Diags)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return compileFailure{}
	}

	if !quiet {
		for _, w := range res.Diags.Warnings() {
			diag.Render(os.Stderr, w)
		}
	}

	if err := writeAtomic(output, res.Image); err != nil {
		return usageIOError{err}
	}

	log.Infof("wrote %s (%d bytes)", output, len(res.Image))
	return nil
}

// writeAtomic writes data to a temp file in path's directory, then
// renames it into place, so a crash or a failing write never leaves a
// truncated story file at the destination (spec.md §7: "no partial
// output is written").
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".zwreec-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
