package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"debatearena/pkg/config"
)

func newSecretsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage provider API keys in the encrypted secrets file",
	}
	cmd.AddCommand(newSecretsSetCmd(a), newSecretsListCmd(a), newSecretsDeleteCmd(a))
	return cmd
}

func newSecretsSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <NAME>",
		Short: "Store a secret such as ANTHROPIC_API_KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			password, err := a.secretsPassword()
			if err != nil {
				return err
			}
			value, err := a.readSecretValue(name)
			if err != nil {
				return err
			}
			if value == "" {
				return fmt.Errorf("empty value for %s", name)
			}
			config.SetSecret(name, value)
			if err := config.SaveSecretsToFile(a.projectDir, password); err != nil {
				return fmt.Errorf("save secrets: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s in %s\n", name, config.SecretsFilePath(a.projectDir))
			return nil
		},
	}
}

func newSecretsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored secret names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !config.SecretsFileExists(a.projectDir) {
				fmt.Fprintln(cmd.OutOrStdout(), "No secrets file")
				return nil
			}
			if _, err := a.secretsPassword(); err != nil {
				return err
			}
			for _, name := range config.GetDecryptedSecretNames() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newSecretsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <NAME>",
		Short: "Remove a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !config.SecretsFileExists(a.projectDir) {
				return errors.New("no secrets file")
			}
			password, err := a.secretsPassword()
			if err != nil {
				return err
			}
			config.DeleteSecret(args[0])
			if err := config.SaveSecretsToFile(a.projectDir, password); err != nil {
				return fmt.Errorf("save secrets: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

// secretsPassword returns the password for the secrets file, decrypting an
// existing file or asking for a new password when none exists yet.
func (a *app) secretsPassword() (string, error) {
	if a.password != "" {
		return a.password, nil
	}

	exists := config.SecretsFileExists(a.projectDir)
	password := os.Getenv(EnvPassword)
	if password == "" {
		prompt := "Secrets password: "
		if !exists {
			prompt = "New secrets password: "
		}
		p, err := a.readPassword(prompt)
		if err != nil {
			return "", err
		}
		password = p
	}
	if password == "" {
		return "", errors.New("secrets password must not be empty")
	}

	if exists {
		secrets, err := config.DecryptSecretsFile(a.projectDir, password)
		if err != nil {
			return "", fmt.Errorf("decrypt secrets: %w", err)
		}
		config.SetDecryptedSecrets(secrets)
	}
	a.password = password
	return password, nil
}

// readSecretValue reads without echo on a terminal, otherwise one line of stdin.
func (a *app) readSecretValue(name string) (string, error) {
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return a.readPassword(fmt.Sprintf("Value for %s: ", name))
	}
	return a.readLine()
}
