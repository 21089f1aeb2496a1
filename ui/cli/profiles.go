// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/toeirei/gitswitch/internal/audit"
	"github.com/toeirei/gitswitch/internal/i18n"
)

var fullName string
var email string
var passphrase string
var askPassphrase bool
var forceDelete bool

// listCmd lists all configured profiles.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		data, err := eng.Store.Load()
		if err != nil {
			return err
		}
		if len(data.Profiles) == 0 {
			fmt.Println(i18n.T("cli.no_profiles"))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tIDENTITY\tKEY\tLAST USED")
		for _, name := range data.Names() {
			p := data.Profiles[name]
			marker := " "
			if name == data.ActiveProfile {
				marker = "*"
			}
			lastUsed := "-"
			if p.LastUsed != nil {
				lastUsed = p.LastUsed.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s %s\t%s\t%s\t%s\n", marker, p.Name, p.String(), p.SSHKeyPath, lastUsed)
		}
		return w.Flush()
	},
}

// currentCmd prints the active profile.
var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the active profile",
	RunE:  runCurrent,
}

func runCurrent(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	data, err := eng.Store.Load()
	if err != nil {
		return err
	}
	if data.ActiveProfile == "" {
		fmt.Println(i18n.T("cli.no_active_profile"))
		return nil
	}
	p, ok := data.Profiles[data.ActiveProfile]
	if !ok {
		fmt.Println(i18n.T("cli.no_active_profile"))
		return nil
	}
	fmt.Println(i18n.T("cli.active_profile", p.Name, p.String()))

	// Cross-check the live git identity so a drifted state is visible.
	if gitName, gitEmail, err := eng.Git.Current(); err == nil {
		if gitName != p.FullName || gitEmail != p.Email {
			fmt.Println(i18n.T("cli.identity_drift", gitName, gitEmail))
		}
	}
	return nil
}

// showCmd prints all details of one profile.
var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show profile details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		data, err := eng.Store.Load()
		if err != nil {
			return err
		}
		p, ok := data.Resolve(args[0])
		if !ok {
			return reportError(fmt.Errorf("%s: %q", i18n.T("cli.unknown_profile"), args[0]))
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "Name:\t%s\n", p.Name)
		fmt.Fprintf(w, "Identity:\t%s\n", p.String())
		fmt.Fprintf(w, "Key:\t%s\n", p.SSHKeyPath)
		fmt.Fprintf(w, "Fingerprint:\t%s\n", p.Fingerprint)
		fmt.Fprintf(w, "Host alias:\t%s\n", p.HostAlias())
		encrypted := "no"
		if p.IsEncrypted() {
			encrypted = "yes"
		}
		fmt.Fprintf(w, "Encrypted:\t%s\n", encrypted)
		fmt.Fprintf(w, "Created:\t%s\n", p.CreatedAt.Format("2006-01-02 15:04"))
		if p.LastUsed != nil {
			fmt.Fprintf(w, "Last used:\t%s\n", p.LastUsed.Format("2006-01-02 15:04"))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if p.SSHKeyPublic != "" {
			fmt.Printf("\n%s\n", p.SSHKeyPublic)
		}
		return nil
	},
}

// createCmd generates a new key pair and registers a profile around it.
var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a profile with a fresh ed25519 key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		pass, err := resolvePassphrase()
		if err != nil {
			return err
		}
		p, err := eng.Create(args[0], fullName, email, pass)
		if err != nil {
			return reportError(err)
		}
		recordAudit(audit.ActionCreate, p.Name, p.Fingerprint)
		fmt.Println(i18n.T("cli.created", p.Name, p.SSHKeyPath))
		fmt.Println(i18n.T("cli.created_hint", p.Name))
		fmt.Printf("\n%s\n", p.SSHKeyPublic)
		return nil
	},
}

// importCmd registers a profile around an existing key pair.
var importCmd = &cobra.Command{
	Use:   "import <name> <private-key-path>",
	Short: "Create a profile from an existing key pair",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		p, err := eng.ImportKey(args[0], fullName, email, args[1])
		if err != nil {
			return reportError(err)
		}
		recordAudit(audit.ActionImport, p.Name, p.Fingerprint)
		fmt.Println(i18n.T("cli.imported", p.Name, p.SSHKeyPath))
		return nil
	},
}

// switchCmd makes the named profile the active identity.
var switchCmd = &cobra.Command{
	Use:     "switch <name>",
	Aliases: []string{"use"},
	Short:   "Switch the active identity to a profile",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		p, err := eng.Switch(args[0])
		if err != nil {
			return reportError(err)
		}
		recordAudit(audit.ActionSwitch, p.Name, p.String())
		fmt.Println(i18n.T("cli.switched", p.Name, p.String()))
		fmt.Println(i18n.T("cli.switched_hint", p.HostAlias()))
		return nil
	},
}

// deleteCmd removes a profile, its managed block and its key files.
var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a profile and its key pair",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		if !forceDelete {
			fmt.Print(i18n.T("cli.delete_confirm", args[0]))
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			if strings.TrimSpace(strings.ToLower(answer)) != "y" {
				fmt.Println(i18n.T("cli.delete_aborted"))
				return nil
			}
		}
		if err := eng.Delete(args[0]); err != nil {
			return reportError(err)
		}
		recordAudit(audit.ActionDelete, strings.ToLower(args[0]), "")
		fmt.Println(i18n.T("cli.deleted", args[0]))
		return nil
	},
}

// regenerateCmd replaces the key material of an existing profile.
var regenerateCmd = &cobra.Command{
	Use:   "regenerate <name>",
	Short: "Replace a profile's key pair with a fresh one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		pass, err := resolvePassphrase()
		if err != nil {
			return err
		}
		p, err := eng.Regenerate(args[0], pass)
		if err != nil {
			return reportError(err)
		}
		recordAudit(audit.ActionRegenerate, p.Name, p.Fingerprint)
		fmt.Println(i18n.T("cli.regenerated", p.Name, p.Fingerprint))
		fmt.Println(i18n.T("cli.created_hint", p.Name))
		fmt.Printf("\n%s\n", p.SSHKeyPublic)
		return nil
	},
}

// copyCmd puts a profile's public key on the system clipboard.
var copyCmd = &cobra.Command{
	Use:   "copy <name>",
	Short: "Copy a profile's public key to the clipboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		data, err := eng.Store.Load()
		if err != nil {
			return err
		}
		p, ok := data.Resolve(args[0])
		if !ok {
			return reportError(fmt.Errorf("%s: %q", i18n.T("cli.unknown_profile"), args[0]))
		}
		if p.SSHKeyPublic == "" {
			return fmt.Errorf("%s", i18n.T("cli.no_public_key", p.Name))
		}
		if err := clipboard.WriteAll(p.SSHKeyPublic); err != nil {
			// Headless environments routinely lack a clipboard; print the
			// key instead so the command is still useful.
			fmt.Println(i18n.T("cli.clipboard_unavailable"))
			fmt.Println(p.SSHKeyPublic)
			return nil
		}
		fmt.Println(i18n.T("cli.copied", p.Name))
		return nil
	},
}

// resolvePassphrase returns the passphrase from the flag, or prompts for
// it (with confirmation) when --ask-pass was given.
func resolvePassphrase() (string, error) {
	if !askPassphrase {
		return passphrase, nil
	}
	fmt.Print(i18n.T("cli.passphrase_prompt"))
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("could not read passphrase: %w", err)
	}
	fmt.Print(i18n.T("cli.passphrase_confirm"))
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("could not read passphrase: %w", err)
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("%s", i18n.T("cli.passphrase_mismatch"))
	}
	return string(first), nil
}

func init() {
	for _, c := range []*cobra.Command{createCmd, importCmd} {
		c.Flags().StringVar(&fullName, "full-name", "", "Git user.name for this profile")
		c.Flags().StringVar(&email, "email", "", "Git user.email for this profile")
		_ = c.MarkFlagRequired("full-name")
		_ = c.MarkFlagRequired("email")
	}
	for _, c := range []*cobra.Command{createCmd, regenerateCmd} {
		c.Flags().StringVarP(&passphrase, "passphrase", "p", "", "Optional passphrase to encrypt the private key")
		c.Flags().BoolVar(&askPassphrase, "ask-pass", false, "Prompt for the passphrase interactively")
	}
	deleteCmd.Flags().BoolVarP(&forceDelete, "yes", "y", false, "Skip the confirmation prompt")
}
