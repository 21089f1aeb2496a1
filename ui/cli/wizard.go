// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/toeirei/gitswitch/internal/audit"
	"github.com/toeirei/gitswitch/internal/i18n"
	"github.com/toeirei/gitswitch/internal/tui"
)

// wizardCmd launches the interactive profile-creation form.
var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Create a profile interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		program := tea.NewProgram(tui.NewWizard(eng))
		final, err := program.Run()
		if err != nil {
			return fmt.Errorf("could not run wizard: %w", err)
		}
		created, canceled := tui.Result(final)
		if canceled || created == nil {
			fmt.Println(i18n.T("cli.wizard_canceled"))
			return nil
		}
		recordAudit(audit.ActionCreate, created.Name, created.Fingerprint)
		fmt.Println(i18n.T("cli.created", created.Name, created.SSHKeyPath))
		fmt.Println(i18n.T("cli.created_hint", created.Name))
		fmt.Printf("\n%s\n", created.SSHKeyPublic)
		return nil
	},
}
