package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chiru-lang/chiru/internal/config"
	"github.com/chiru-lang/chiru/internal/invariant"
	"github.com/chiru-lang/chiru/internal/lang"
	"github.com/chiru-lang/chiru/internal/report"
	"github.com/chiru-lang/chiru/internal/verify"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"
)

// version is the embedded release version, asserted well-formed at process
// start rather than surfaced as a user-facing feature.
const version = "v0.1.0"

// Exit codes, spec.md §4.5/§6.
const (
	exitSafe                  = 0
	exitSafeIfAssumptionsHold = 1
	exitSemanticViolation     = 2
	exitInputFailure          = 3
)

func main() {
	invariant.Invariant(semver.IsValid(version), "embedded version %q is not a well-formed semver string", version)
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		format   string
		noColor  bool
		watch    bool
		strict   bool
		exitCode = exitSafe
	)

	rootCmd := &cobra.Command{
		Use:           "chiru [file]",
		Short:         "Statically verify ownership, lifetime, and capability safety of a chiru program",
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			path := cmdArgs[0]

			cfg, err := config.Load(".")
			if err != nil {
				return err
			}
			cfg.ApplyFlagOverrides(
				format, cmd.Flags().Changed("format"),
				noColor, cmd.Flags().Changed("no-color"),
				watch, cmd.Flags().Changed("watch"),
				strict, cmd.Flags().Changed("strict"),
			)

			useColor := report.ShouldUseColor(cfg.NoColor)

			if cfg.Watch {
				exitCode = watchAndVerify(path, cfg.Format, cfg.Strict, useColor)
				return nil
			}

			code, err := verifyOnce(os.Stdout, path, cfg.Format, cfg.Strict, useColor)
			exitCode = code
			return err
		},
	}

	rootCmd.Flags().StringVar(&format, "format", "text", `output format: "text", "json", or "cbor"`)
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored text output")
	rootCmd.Flags().BoolVar(&watch, "watch", false, "re-verify whenever the source file changes")
	rootCmd.Flags().BoolVar(&strict, "strict", false, "treat SAFE_IF_ASSUMPTIONS_HOLD as a failure (exit 2)")
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		if exitCode == exitSafe {
			exitCode = exitInputFailure
		}
	}
	return exitCode
}

// verifyOnce runs the full pipeline once: read, parse, interpret, render.
// Returns the process exit code and any error to print to stderr.
func verifyOnce(w io.Writer, path, format string, strict, useColor bool) (int, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return exitInputFailure, fmt.Errorf("failed to read %s: %w", path, err)
	}

	decls, err := lang.Parse(string(src))
	if err != nil {
		return exitInputFailure, err
	}

	it := verify.New()
	if err := it.Run(decls); err != nil {
		var semErr *verify.SemanticError
		if errors.As(err, &semErr) {
			return exitSemanticViolation, semErr
		}
		return exitSemanticViolation, err
	}

	r := verify.BuildReport(it)
	digest, err := report.Digest(r)
	if err != nil {
		return exitInputFailure, err
	}
	r.Digest = digest

	if err := renderReport(w, r, format, useColor); err != nil {
		return exitInputFailure, err
	}

	if r.Verdict == verify.VerdictSafeIfAssumptionsHold && strict {
		return exitSemanticViolation, fmt.Errorf("--strict: refusing SAFE_IF_ASSUMPTIONS_HOLD verdict")
	}
	return r.ExitCode(), nil
}

func renderReport(w io.Writer, r *verify.Report, format string, useColor bool) error {
	switch format {
	case "json":
		data, err := report.EncodeJSON(r)
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case "cbor":
		data, err := report.EncodeCBOR(r)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case "text", "":
		report.WriteText(w, r, useColor)
		return nil
	default:
		return fmt.Errorf("unknown format %q: expected text, json, or cbor", format)
	}
}

// watchAndVerify runs the pipeline once immediately, then again every time
// path changes, until the watcher closes. Each iteration is a fresh
// interpreter (spec.md §5): no state survives across re-verifications.
func watchAndVerify(path, format string, strict, useColor bool) int {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start file watcher: %v\n", err)
		return exitInputFailure
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to watch %s: %v\n", path, err)
		return exitInputFailure
	}

	lastCode, err := verifyOnce(os.Stdout, path, format, strict, useColor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return lastCode
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fmt.Fprintf(os.Stderr, "\n--- re-verifying %s ---\n", path)
			lastCode, err = verifyOnce(os.Stdout, path, format, strict, useColor)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return lastCode
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", watchErr)
		}
	}
}
