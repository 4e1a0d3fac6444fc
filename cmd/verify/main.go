// Copyright 2026 SiaLedger Authors
//
// Command verify checks an offline audit bundle: manifest integrity followed
// by certificate hash-chain verification.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sialedger/auditbundle/internal/bundle"
	"github.com/sialedger/auditbundle/internal/config"
	"github.com/sialedger/auditbundle/internal/logging"
	"github.com/sialedger/auditbundle/internal/metrics"
	"github.com/sialedger/auditbundle/internal/verifyerr"
)

// exitCode carries the process exit status out of RunE, since cobra itself
// only distinguishes "command error" from "no error": a verification
// failure prints VERIFY: FAIL on stdout and exits 2 without being a command
// error, while usage errors go to stderr (also exit 2).
var exitCode int

func main() {
	os.Exit(run())
}

func run() int {
	v := viper.New()
	v.SetEnvPrefix("AUDITBUNDLE")
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify an offline audit bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doVerify(
				v.GetString("bundle_dir"),
				v.GetString("certs"),
				v.GetString("manifest"),
				v.GetString("config"),
			)
		},
	}

	cmd.Flags().String("bundle_dir", "", "bundle directory containing CERTS.jsonl and MANIFEST.sha256")
	cmd.Flags().String("certs", "", "certificate ledger file name (default CERTS.jsonl)")
	cmd.Flags().String("manifest", "", "manifest file name (default MANIFEST.sha256)")
	cmd.Flags().String("config", "", "optional YAML config file")
	_ = cmd.MarkFlagRequired("bundle_dir")

	for _, name := range []string{"bundle_dir", "certs", "manifest", "config"} {
		_ = v.BindPFlag(name, cmd.Flags().Lookup(name))
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	return exitCode
}

func doVerify(bundleDir, certsName, manifestName, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Logs go to stderr so stdout carries only the VERIFY: line.
	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: "stderr"})
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger = logger.With().Str("run_id", runID).Str("command", "verify").Logger()

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
	}

	if certsName == "" {
		certsName = cfg.Bundle.CertsName
	}
	if manifestName == "" {
		manifestName = cfg.Bundle.ManifestName
	}

	start := time.Now()
	report, err := bundle.Verify(bundle.VerifyOptions{
		BundleDir:    bundleDir,
		CertsName:    certsName,
		ManifestName: manifestName,
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		code := errorCode(err)
		if collector != nil {
			collector.ObserveFail(code, elapsed)
			writeSnapshot(collector, cfg.Metrics.SnapshotPath, logger)
		}
		logger.Error().Err(err).Str("error_code", code).Msg("verification failed")
		fmt.Println("VERIFY: FAIL (" + err.Error() + ")")
		exitCode = 2
		return nil
	}

	if collector != nil {
		collector.ObservePass(elapsed)
		writeSnapshot(collector, cfg.Metrics.SnapshotPath, logger)
	}
	logger.Info().Int("record_count", report.RecordCount).Str("seal_id", report.SealID).Msg("verification passed")
	fmt.Println("VERIFY: PASS")
	exitCode = 0
	return nil
}

func errorCode(err error) string {
	var verr *verifyerr.Error
	if errors.As(err, &verr) {
		return string(verr.Code)
	}
	return "IO_ERROR"
}

func writeSnapshot(c *metrics.Collector, path string, logger zerolog.Logger) {
	if path == "" {
		return
	}
	if err := c.WriteTo(path); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("failed to write metrics snapshot")
	}
}
