// Copyright 2026 SiaLedger Authors
//
// Command build-bundle assembles an offline audit bundle from a certificate
// ledger: copies the ledger in, embeds a verifier executable, writes the
// ruleset and README companions, and emits the manifest covering them.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sialedger/auditbundle/internal/bundle"
	"github.com/sialedger/auditbundle/internal/config"
	"github.com/sialedger/auditbundle/internal/logging"
	"github.com/sialedger/auditbundle/internal/verifyerr"
)

func main() {
	os.Exit(run())
}

func run() int {
	v := viper.New()
	v.SetEnvPrefix("AUDITBUNDLE")
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "build-bundle",
		Short: "Build an offline audit bundle from a certificate ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doBuild(
				v.GetString("in_jsonl"),
				v.GetString("bundle_dir"),
				v.GetString("ruleset_id"),
				v.GetString("verifier_binary"),
				v.GetBool("overwrite"),
				v.GetBool("verify"),
				v.GetString("config"),
			)
		},
	}

	cmd.Flags().String("in_jsonl", "", "input certificate ledger (JSONL)")
	cmd.Flags().String("bundle_dir", "", "output bundle directory")
	cmd.Flags().String("ruleset_id", "", "ruleset identifier recorded in RULESET.txt")
	cmd.Flags().String("verifier_binary", "", "path to the verifier executable to embed (defaults to a sibling 'verify' binary)")
	cmd.Flags().Bool("overwrite", false, "remove an existing bundle_dir before building")
	cmd.Flags().Bool("verify", false, "verify the freshly built bundle and report the result")
	cmd.Flags().String("config", "", "optional YAML config file")
	_ = cmd.MarkFlagRequired("in_jsonl")
	_ = cmd.MarkFlagRequired("bundle_dir")

	for _, name := range []string{"in_jsonl", "bundle_dir", "ruleset_id", "verifier_binary", "overwrite", "verify", "config"} {
		_ = v.BindPFlag(name, cmd.Flags().Lookup(name))
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return exitCode
}

var exitCode int

func doBuild(inJSONL, bundleDir, rulesetID, verifierBinary string, overwrite, verifyNow bool, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger = logger.With().Str("run_id", runID).Str("command", "build-bundle").Logger()

	if rulesetID == "" {
		rulesetID = cfg.Bundle.RulesetID
	}

	report, err := bundle.Build(bundle.BuildOptions{
		InputJSONL:     inJSONL,
		BundleDir:      bundleDir,
		RulesetID:      rulesetID,
		Overwrite:      overwrite,
		VerifierBinary: verifierBinary,
	})
	if err != nil {
		logger.Error().Err(err).Msg("bundle build failed")
		exitCode = 1
		return err
	}

	logger.Info().Int("record_count", report.RecordCount).Str("bundle_dir", report.BundleDir).Msg("bundle built")
	fmt.Printf("BUILD: OK (%s, %d records)\n", report.BundleDir, report.RecordCount)

	if !verifyNow {
		exitCode = 0
		return nil
	}

	verifyReport, verr := bundle.Verify(bundle.VerifyOptions{BundleDir: report.BundleDir})
	if verr != nil {
		logger.Error().Err(verr).Str("error_code", errorCode(verr)).Msg("post-build verification failed")
		fmt.Println("VERIFY: FAIL (" + verr.Error() + ")")
		exitCode = 2
		return nil
	}

	logger.Info().Int("record_count", verifyReport.RecordCount).Str("seal_id", verifyReport.SealID).Msg("post-build verification passed")
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
