// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/toeirei/gitswitch/internal/i18n"
	"github.com/toeirei/gitswitch/internal/model"
)

var withProbe bool

// detectCmd scans the SSH directory and reports how the keys on disk
// relate to the configured profiles.
var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Scan the SSH directory and classify the keys found",
	Long: `Scans the SSH directory for key pairs, fingerprints them and matches
them against the configured profiles. Keys claimed by a profile are
listed as used; the rest are available for import. Unreadable or
malformed files produce warnings, never failures.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		report, err := eng.Detect(withProbe)
		if err != nil {
			return err
		}

		fmt.Println(i18n.T("cli.detect_summary", report.TotalKeys, report.EncryptedCount))
		if len(report.ByAlgorithm) > 0 {
			algos := make([]string, 0, len(report.ByAlgorithm))
			for a := range report.ByAlgorithm {
				algos = append(algos, a)
			}
			sort.Strings(algos)
			for _, a := range algos {
				fmt.Printf("  %s: %d\n", a, report.ByAlgorithm[a])
			}
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		if len(report.Used) > 0 {
			fmt.Println()
			fmt.Println(i18n.T("cli.detect_used"))
			for _, assoc := range report.Used {
				fmt.Fprintf(w, "  %s\t%s\t%s\n", assoc.Profile, assoc.Key.PrivateKeyPath, assoc.Key.Fingerprint)
			}
			w.Flush()
		}
		if len(report.Available) > 0 {
			fmt.Println()
			fmt.Println(i18n.T("cli.detect_available"))
			for _, key := range report.Available {
				comment := key.Comment
				if comment == "" {
					comment = "-"
				}
				fmt.Fprintf(w, "  %s\t%s\t%s\n", key.PrivateKeyPath, comment, key.Fingerprint)
			}
			w.Flush()
		}

		if len(report.AgentFingerprints) > 0 {
			fmt.Println()
			fmt.Println(i18n.T("cli.detect_agent", len(report.AgentFingerprints)))
		}
		if withProbe {
			fmt.Println()
			fmt.Println(i18n.T("cli.detect_probe", appConfig.GitHubHost, report.Connectivity.String()))
		}
		for _, warning := range report.Warnings {
			fmt.Fprintf(os.Stderr, "%s %s\n", i18n.T("cli.warning_prefix"), warning)
		}
		return nil
	},
}

// doctorCmd runs the connection diagnostics pipeline for one profile.
var doctorCmd = &cobra.Command{
	Use:   "doctor <name>",
	Short: "Diagnose why a profile's connection fails",
	Long: `Runs an ordered sequence of checks for one profile: key files on
disk, passphrase protection, agent state, managed SSH config block and a
live authentication probe. The first failing step is the diagnosis; each
failure comes with a concrete suggested fix.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		diag, err := eng.Diagnose(args[0])
		if err != nil {
			return reportError(err)
		}

		for _, step := range diag.Steps {
			mark := "ok  "
			switch {
			case step.Skipped:
				mark = "skip"
			case !step.OK:
				mark = "FAIL"
			}
			fmt.Printf("[%s] %-11s %s\n", mark, step.ID.String(), step.Detail)
		}

		fmt.Println()
		if diag.Healthy() {
			fmt.Println(i18n.T("cli.doctor_healthy", diag.Profile))
			return nil
		}
		first := diag.Steps[diag.FirstFail]
		fmt.Println(i18n.T("cli.doctor_diagnosis", first.ID.String(), first.Detail))
		if remedy := model.Remedy(first.Err, ""); remedy != "" && remedy != first.Detail {
			fmt.Printf("  %s\n", remedy)
		}
		return nil
	},
}

func init() {
	detectCmd.Flags().BoolVar(&withProbe, "probe", false, "Also run a live reachability check")
}
