package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mberenty7/tripo-tools/cli/keystore"
	"github.com/mberenty7/tripo-tools/core"
)

func (a *App) newKeysCommand() *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage stored API keys",
		Long: `Manage API keys in the encrypted keystore (~/.tripo/keys.enc).

The key named "tripo" is used when neither --api-key nor TRIPO_API_KEY is set.
Set TRIPO_KEYSTORE_PASSPHRASE to encrypt with a passphrase instead of a
host-derived key.`,
	}

	keysCmd.AddCommand(&cobra.Command{
		Use:   "set [name]",
		Short: "Store an API key (default name: tripo)",
		Long:  `Store an API key. The key is read from stdin without echo.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runKeysSet,
	})
	keysCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored key names",
		Long:  `List stored key names. Key values are never printed.`,
		Args:  cobra.NoArgs,
		RunE:  a.runKeysList,
	})
	keysCmd.AddCommand(&cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a stored API key (default name: tripo)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runKeysDelete,
	})

	return keysCmd
}

func keyArg(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return keyName
}

func (a *App) readSecret() (string, error) {
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *App) runKeysSet(cmd *cobra.Command, args []string) error {
	name := keyArg(args)

	fmt.Fprintf(a.stderr, "Enter API key for %s: ", name)
	apiKey, err := a.readSecret()
	if err != nil {
		return fmt.Errorf("%w: reading key: %v", core.ErrInput, err)
	}
	if apiKey == "" {
		return &core.ValidationError{Field: "key", Reason: "must not be empty", Err: core.ErrInput}
	}

	ks, err := a.newKeystore()
	if err != nil {
		return fmt.Errorf("%w: opening keystore: %v", core.ErrConfig, err)
	}
	if err := ks.Set(name, apiKey); err != nil {
		return fmt.Errorf("%w: storing key: %v", core.ErrIO, err)
	}

	fmt.Fprintf(a.stdout, "API key %q stored (%s).\n", name, core.NewSecret(apiKey).Mask())
	return nil
}

func (a *App) runKeysList(cmd *cobra.Command, args []string) error {
	ks, err := a.newKeystore()
	if err != nil {
		return fmt.Errorf("%w: opening keystore: %v", core.ErrConfig, err)
	}
	names, err := ks.List()
	if err != nil {
		return fmt.Errorf("%w: listing keys: %v", core.ErrConfig, err)
	}

	if a.jsonOutput {
		return writeJSON(a.stdout, map[string][]string{"keys": names})
	}
	if len(names) == 0 {
		fmt.Fprintln(a.stdout, "No API keys stored.")
		return nil
	}
	fmt.Fprintln(a.stdout, "Stored keys:")
	for _, name := range names {
		fmt.Fprintf(a.stdout, "  - %s\n", name)
	}
	return nil
}

func (a *App) runKeysDelete(cmd *cobra.Command, args []string) error {
	name := keyArg(args)

	ks, err := a.newKeystore()
	if err != nil {
		return fmt.Errorf("%w: opening keystore: %v", core.ErrConfig, err)
	}
	if err := ks.Delete(name); err != nil {
		var notFound *keystore.ErrKeyNotFound
		if errors.As(err, &notFound) {
			return &core.ValidationError{Field: "name", Reason: "no key stored for " + name, Err: core.ErrInput}
		}
		return fmt.Errorf("%w: deleting key: %v", core.ErrIO, err)
	}

	fmt.Fprintf(a.stdout, "API key %q deleted.\n", name)
	return nil
}
