// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/toeirei/gitswitch/internal/audit"
	"github.com/toeirei/gitswitch/internal/export"
	"github.com/toeirei/gitswitch/internal/i18n"
)

var auditLimit int

// backupCmd writes a compressed snapshot of the profile store.
var backupCmd = &cobra.Command{
	Use:   "backup <file>",
	Short: "Write a compressed snapshot of the profile store",
	Long: `Writes a zstd-compressed JSON snapshot of all profiles to the given
file. Snapshots carry profile metadata only; private key material is
never included and must be backed up separately.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		data, err := eng.Store.Load()
		if err != nil {
			return err
		}
		if err := export.Write(args[0], data); err != nil {
			return err
		}
		fmt.Println(i18n.T("cli.backup_written", len(data.Profiles), args[0]))
		return nil
	},
}

// restoreCmd merges a snapshot back into the profile store.
var restoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Restore profiles from a snapshot",
	Long: `Merges a snapshot into the profile store, replacing records with the
same name and keeping everything else. The merged result goes through
the store's atomic save, so a failed restore leaves the store untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		snap, err := export.Read(args[0])
		if err != nil {
			return err
		}
		data, err := eng.Store.Load()
		if err != nil {
			return err
		}
		export.Apply(snap, data)
		if err := eng.Store.Save(data); err != nil {
			return reportError(err)
		}
		recordAudit(audit.ActionRestore, "", args[0])
		fmt.Println(i18n.T("cli.restore_done", len(snap.Profiles), args[0]))
		return nil
	},
}

// auditCmd prints the local audit trail, newest first.
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the local audit trail",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := auditDBPath()
		if err != nil {
			return err
		}
		trail, err := audit.Open(path)
		if err != nil {
			return err
		}
		defer trail.Close()

		entries, err := trail.Entries(auditLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println(i18n.T("cli.audit_empty"))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tACTION\tPROFILE\tDETAILS")
		for _, e := range entries {
			profile := e.Profile
			if profile == "" {
				profile = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Action, profile, e.Details)
		}
		return w.Flush()
	},
}

func init() {
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", 20, "Maximum number of entries to show (0 for all)")
}
