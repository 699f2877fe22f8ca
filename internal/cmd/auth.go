package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mgale/stackup/internal/credentials"
	"github.com/mgale/stackup/internal/prompt"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage registry credentials",
	Long: `Manage credentials for private container registries.

Credentials are stored in the system keyring and consulted during registry
pre-checks before the ambient docker keychain.`,
	// The launcher wiring is not needed here and its dependency checks
	// would get in the way.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

var authSetCmd = &cobra.Command{
	Use:   "set <registry>",
	Short: "Store credentials for a registry",
	Example: `  # Store credentials for GitHub Container Registry
  stackup auth set ghcr.io`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registryHost := args[0]

		p := prompt.New()
		username, err := p.Input("Username for " + registryHost)
		if err != nil {
			return err
		}
		if username == "" {
			return errors.New("username must not be empty")
		}
		password, err := p.Secret("Password or token for " + registryHost)
		if err != nil {
			return err
		}
		if password == "" {
			return errors.New("password must not be empty")
		}

		store, err := openCredentialStore(cmd)
		if err != nil {
			return err
		}
		if err := store.Set(registryHost, credentials.Credentials{
			Username: username,
			Password: password,
		}); err != nil {
			return fmt.Errorf("store credentials: %w", err)
		}

		fmt.Printf("Stored credentials for %s\n", registryHost)
		return nil
	},
}

var authRmCmd = &cobra.Command{
	Use:   "rm <registry>",
	Short: "Remove stored credentials for a registry",
	Example: `  stackup auth rm ghcr.io`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registryHost := args[0]

		store, err := openCredentialStore(cmd)
		if err != nil {
			return err
		}
		if err := store.Delete(registryHost); err != nil {
			return fmt.Errorf("remove credentials: %w", err)
		}

		fmt.Printf("Removed credentials for %s\n", registryHost)
		return nil
	},
}

// openCredentialStore reads the service name from the package-level config
// because auth skips the root PersistentPreRunE that fills the context.
func openCredentialStore(_ *cobra.Command) (*credentials.Store, error) {
	service := ""
	if appConfig != nil {
		service = appConfig.Registry.CredentialService
	}
	store, err := credentials.Open(service)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return store, nil
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authRmCmd)
}
