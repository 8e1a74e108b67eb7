package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"jarsentry/config"
	"jarsentry/diag"
	"jarsentry/logger"
	"jarsentry/output"
	"jarsentry/scanner"
	"jarsentry/tracing"
	"jarsentry/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "jarsentry",
		Short:         "Static threat scanner for Java archives",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(newScanCmd(), newInfoCmd(), newVersionCmd())
	return root
}

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <archive>",
		Short: "Scan a JAR for URLs, cryptography, web connections and command execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			return runScan(cmd.Context(), cfg, args[0], cmd.ErrOrStderr())
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <archive>",
		Short: "Print the archive summary and entry points without scanning",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			return runInfo(cmd.Context(), cfg, args[0], cmd.OutOrStdout())
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func newVersionCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "jarsentry %s\n", version.Version)
			if !check {
				return nil
			}
			rel, err := version.CheckLatest(cmd.Context(), version.Version)
			if err != nil {
				return fmt.Errorf("check for update: %w", err)
			}
			if !rel.Newer {
				fmt.Fprintln(out, "Up to date.")
				return nil
			}
			if strings.Contains(strings.ToLower(rel.Notes), "security") {
				fmt.Fprintf(out, "Update available: %s (security fixes included)\n", rel.Latest)
			} else {
				fmt.Fprintf(out, "Update available: %s\n", rel.Latest)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Check the release feed for a newer version")
	return cmd
}

func setup(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	logger.Init(cfg.LogLevel)
	logger.SetFormat(cfg.LogFormat)
	if logger.Enabled("debug") {
		logger.WithField("config_file", cfg.ConfigFile).Debugf("Effective configuration: %+v", *cfg)
	}
	return cfg, nil
}

func runScan(parent context.Context, cfg *config.Config, path string, stderr io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	if err := tracing.Start(""); err != nil {
		logger.Warnf("Failed to start trace: %v", err)
	} else {
		defer tracing.Stop()
	}

	flightPath := filepath.Join(cfg.DiagDir, "jarsentry-flight.out")
	if cfg.TraceFlight {
		if err := tracing.StartFlightRecorder(cfg.TraceFlightMaxBytes, cfg.TraceFlightMinAge); err != nil {
			logger.Warnf("Failed to start flight recorder: %v", err)
		} else {
			defer tracing.StopFlightRecorder()
		}
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	ctx, endTask := tracing.StartTask(ctx, "scan")
	defer endTask()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go handleSignalEvent(ctx, cancel, cfg.TraceFlight, flightPath, sigChan)

	start := time.Now()
	report := output.NewReport(version.Version, start)
	report.Checks = append(report.Checks, cfg.Checks...)

	session := scanner.NewSession(cfg.SessionOptions())
	status := &statusLine{}

	wd := diag.NewWatchdog(diag.Options{
		StallTimeout:       cfg.StallTimeout,
		Dir:                cfg.DiagDir,
		ProgressFn:         session.ClassesScanned,
		StatusFn:           status.Get,
		DumpFlightRecorder: flightDumper(cfg.TraceFlight),
	})
	wd.Start(ctx)
	defer wd.Close()

	bar := newProgressBar(stderr, !cfg.NoProgress && progressVisible())
	events := make(chan scanner.ProgressEvent, 64)
	var loadErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			msg := ev.String()
			status.Set(msg)
			bar.Describe(msg)
			_ = bar.Add(1)
			switch ev.Stage {
			case scanner.StageCheckFailed:
				report.AddCheckError(ev.Check.String(), checkCause(ev.Err))
				logger.Warn(msg)
			case scanner.StageFailed:
				loadErr = ev.Err
			case scanner.StageEntryFailed, scanner.StageCompleted, scanner.StageLoadCompleted:
				logger.Debug(msg)
			}
		}
	}()

	findings := session.Scan(ctx, path, cfg.CheckConfig(), scanner.ChannelProgress(events))
	close(events)
	<-done
	_ = bar.Finish()

	if loadErr != nil {
		return fmt.Errorf("scan %s: %w", path, loadErr)
	}
	if ctx.Err() != nil {
		logger.Warn("Scan interrupted; the report is partial.")
	}

	report.Archive = output.DescribeArchive(path, cfg.HashAlgorithms, cfg.FuzzyAlgorithms)
	report.SetContents(session.Contents())
	report.SetFindings(findings, cfg.MinRiskLevel(), cfg.Dedupe)
	report.Metrics.ChecksRun = len(cfg.CheckConfig().Kinds())
	report.Finish(time.Now(), session.ClassesScanned())

	w, err := output.New(cfg)
	if err != nil {
		return err
	}
	if err := w.Write(report); err != nil {
		_ = w.Close()
		return fmt.Errorf("writing report: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	logger.Infof("Analysis complete: %d threats reported (%d before filtering)", report.Metrics.FindingsReported, report.Metrics.FindingsTotal)
	return nil
}

func checkCause(err error) error {
	var cf *scanner.CheckFailure
	if errors.As(err, &cf) {
		return cf.Err
	}
	return err
}

func flightDumper(enabled bool) func(string) error {
	if !enabled {
		return nil
	}
	return tracing.WriteFlightRecorder
}

// handleSignalEvent cancels the scan on the first signal. It returns without
// cancelling when ctx ends first.
func handleSignalEvent(ctx context.Context, cancel context.CancelFunc, traceFlight bool, flightPath string, sigChan <-chan os.Signal) {
	select {
	case <-ctx.Done():
		return
	case <-sigChan:
	}
	logger.Info("Interrupt signal received. Shutting down...")
	if traceFlight {
		if err := tracing.WriteFlightRecorder(flightPath); err != nil {
			logger.Warnf("Failed to write flight recorder: %v", err)
		}
	}
	cancel()
}

type statusLine struct {
	mu  sync.Mutex
	msg string
}

func (s *statusLine) Set(msg string) {
	s.mu.Lock()
	s.msg = msg
	s.mu.Unlock()
}

func (s *statusLine) Get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.msg
}

func newProgressBar(w io.Writer, visible bool) *progressbar.ProgressBar {
	if w == nil {
		w = os.Stderr
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Scanning"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetVisibility(visible),
		progressbar.OptionFullWidth(),
	)
}

func progressVisible() bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv("JARSENTRY_DISABLE_PROGRESS")))
	return value != "1" && value != "true" && value != "yes" && value != "on"
}
