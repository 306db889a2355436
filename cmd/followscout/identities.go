package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"followscout/pkg/auth"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "Manage scanning identity secrets",
	Long: `Manage the session secrets of the scanning identities.

Secrets are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation

Reference a stored secret from the config as "keyring:<identity-id>"
so the config file itself never contains session material.`,
}

var identitiesAddCmd = &cobra.Command{
	Use:   "add [identity-id]",
	Short: "Store an identity's session secret",
	Long: `Store a scanning identity's session secret securely.

You will be prompted for the session secret; input is hidden. An
optional proxy URL can be stored alongside it.`,
	Example: `  # Interactive
  followscout identities add scout1

  # With a proxy
  followscout identities add scout2 --proxy socks5://127.0.0.1:1080`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIdentitiesAdd,
}

var identitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored identities",
	Long:  `List stored scanning identities with masked secrets.`,
	RunE:  runIdentitiesList,
}

var identitiesRemoveCmd = &cobra.Command{
	Use:   "remove <identity-id>",
	Short: "Remove a stored identity secret",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdentitiesRemove,
}

var identityProxy string

func init() {
	rootCmd.AddCommand(identitiesCmd)
	identitiesCmd.AddCommand(identitiesAddCmd)
	identitiesCmd.AddCommand(identitiesListCmd)
	identitiesCmd.AddCommand(identitiesRemoveCmd)

	identitiesAddCmd.Flags().StringVar(&identityProxy, "proxy", "", "proxy URL for this identity's requests")
}

func runIdentitiesAdd(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize secret manager: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)

	var identityID string
	if len(args) > 0 {
		identityID = args[0]
	} else {
		fmt.Print("Identity ID: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read identity ID: %w", err)
		}
		identityID = strings.TrimSpace(input)
	}
	if identityID == "" {
		return fmt.Errorf("identity ID is required")
	}

	if existing, _ := manager.Retrieve(identityID); existing != nil {
		fmt.Printf("Identity %q already exists. Overwrite? (y/N): ", identityID)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	fmt.Print("Session secret (hidden): ")
	secret, err := readPassword()
	if err != nil {
		return fmt.Errorf("failed to read session secret: %w", err)
	}
	fmt.Println()
	if secret == "" {
		return fmt.Errorf("session secret is required")
	}

	proxy := identityProxy
	if proxy == "" {
		fmt.Print("Proxy URL (press Enter for none): ")
		input, _ := reader.ReadString('\n')
		proxy = strings.TrimSpace(input)
	}

	if err := manager.Store(&auth.Secret{
		IdentityID:    identityID,
		SessionSecret: secret,
		Proxy:         proxy,
	}); err != nil {
		return fmt.Errorf("failed to store secret: %w", err)
	}

	fmt.Printf("Stored identity %q (%s)\n", identityID, auth.MaskSecret(secret))
	fmt.Printf("Reference it from the config as: session_secret: \"keyring:%s\"\n", identityID)
	return nil
}

func runIdentitiesList(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize secret manager: %w", err)
	}

	secrets, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list identities: %w", err)
	}
	if len(secrets) == 0 {
		fmt.Println("No stored identities. Add one with: followscout identities add")
		return nil
	}

	fmt.Printf("%-20s %-16s %s\n", "IDENTITY", "SECRET", "PROXY")
	for _, secret := range secrets {
		proxy := secret.Proxy
		if proxy == "" {
			proxy = "-"
		}
		fmt.Printf("%-20s %-16s %s\n", secret.IdentityID, auth.MaskSecret(secret.SessionSecret), proxy)
	}
	return nil
}

func runIdentitiesRemove(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize secret manager: %w", err)
	}

	if err := manager.Delete(args[0]); err != nil {
		return fmt.Errorf("failed to remove identity: %w", err)
	}
	fmt.Printf("Removed identity %q\n", args[0])
	return nil
}

// readPassword reads a line without echoing it
func readPassword() (string, error) {
	data, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
