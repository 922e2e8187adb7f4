package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ashalaginvimeo/AS-test/internal/auth"
	"github.com/ashalaginvimeo/AS-test/internal/llm"
)

// readSecret is swapped in tests
var readSecret = func() (string, error) {
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	return string(b), err
}

func newAuthCmd(opts *rootOptions) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage LLM provider API keys",
		Long: `Store, list and remove API keys for LLM providers.

Keys are resolved in this order: environment variables, the config file
(llm.providers.<id>.api_key, which may reference {env:VAR}), then the
key saved with 'copilot auth set'.`,
	}

	authCmd.AddCommand(
		newAuthSetCmd(opts),
		newAuthListCmd(opts),
		newAuthRemoveCmd(opts),
		newAuthDefaultCmd(opts),
		newAuthTestCmd(opts),
	)
	return authCmd
}

func newAuthSetCmd(opts *rootOptions) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "set [provider]",
		Short: "Save an API key for a provider",
		Long: `Save an API key for a provider.

Supported providers:
  gemini      Google Gemini (web-grounded Q&A)
  openai      OpenAI
  openrouter  OpenRouter
  anthropic   Anthropic Claude`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			providerID := llm.ProviderGemini
			if len(args) == 1 {
				id, err := llm.ParseProviderID(args[0])
				if err != nil {
					return err
				}
				providerID = id
			}

			manager, err := opts.authManager()
			if err != nil {
				return err
			}

			if key == "" {
				info := auth.GetProviderAuthInfo(providerID)
				printf(out, "%s\n", info.Description)
				if envVar := auth.GetEnvVarHint(providerID); envVar != "" {
					printf(out, "Tip: you can also set the %s environment variable\n\n", envVar)
				}
				printf(out, "%s: ", info.Label)
				secret, err := readSecret()
				printf(out, "\n")
				if err != nil {
					return fmt.Errorf("failed to read API key: %w", err)
				}
				key = secret
			}

			if strings.TrimSpace(key) == "" {
				return fmt.Errorf("API key is required")
			}
			if err := manager.SetAPIKey(providerID, key); err != nil {
				return fmt.Errorf("failed to save credential: %w", err)
			}
			printf(out, "✓ Saved API key for %s\n", providerID)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "API key (prompts when omitted)")
	return cmd
}

func newAuthListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List providers with a usable API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := opts.authManager()
			if err != nil {
				return err
			}
			listProviders(cmd.OutOrStdout(), manager)
			return nil
		},
	}
}

func listProviders(out io.Writer, manager *auth.Manager) {
	connected := manager.ListConnected()
	if len(connected) == 0 {
		printf(out, "No providers connected.\n\n")
		printf(out, "Use 'copilot auth set <provider>' or set one of:\n")
		for _, id := range llm.AllProviderIDs() {
			printf(out, "  %s (%s)\n", strings.Join(llm.EnvVarsForProvider(id), ", "), id)
		}
		return
	}

	defaultProvider := manager.GetDefaultProvider()
	printf(out, "Connected providers:\n")
	for _, id := range connected {
		marker := "  "
		if id == defaultProvider {
			marker = "* "
		}
		_, source, _ := manager.Resolve(id)
		printf(out, "%s%-12s %s\n", marker, id, source)
	}
	printf(out, "\n* = default provider\n")
}

func newAuthRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <provider>",
		Short: "Delete the saved API key for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			providerID, err := llm.ParseProviderID(args[0])
			if err != nil {
				return err
			}
			manager, err := opts.authManager()
			if err != nil {
				return err
			}
			removed, err := manager.RemoveCredential(providerID)
			if err != nil {
				return fmt.Errorf("failed to remove credential: %w", err)
			}
			if removed {
				printf(cmd.OutOrStdout(), "Removed saved key for %s\n", providerID)
			} else {
				printf(cmd.OutOrStdout(), "No saved key for %s\n", providerID)
			}
			if manager.HasCredential(providerID) {
				printf(cmd.OutOrStdout(), "Note: %s still has a key from the environment or config file\n", providerID)
			}
			return nil
		},
	}
}

func newAuthDefaultCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "default [provider]",
		Short: "Get or set the default provider",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := opts.authManager()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				printf(out, "Default provider: %s\n", manager.GetDefaultProvider())
				return nil
			}

			providerID, err := llm.ParseProviderID(args[0])
			if err != nil {
				return err
			}
			if !manager.HasCredential(providerID) {
				return fmt.Errorf("provider %s has no API key; run 'copilot auth set %s' first", providerID, providerID)
			}
			if err := manager.SetDefaultProvider(providerID); err != nil {
				return fmt.Errorf("failed to set default provider: %w", err)
			}
			printf(out, "Default provider set to: %s\n", providerID)
			return nil
		},
	}
}

func newAuthTestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test [provider]",
		Short: "Check a provider key with a minimal request",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := opts.authManager()
			if err != nil {
				return err
			}
			providerID := manager.GetDefaultProvider()
			if len(args) == 1 {
				if providerID, err = llm.ParseProviderID(args[0]); err != nil {
					return err
				}
			}
			key, source, err := manager.Resolve(providerID)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			out := cmd.OutOrStdout()
			printf(out, "Testing %s (key from %s, %s)...\n", providerID, source, maskKey(key))

			provider, err := newProvider(ctx, providerID, key, opts.cfg.Model)
			if err != nil {
				return fmt.Errorf("failed to initialize %s provider: %w", providerID, err)
			}
			resp, err := provider.Generate(ctx, &llm.GenerateRequest{
				SystemPrompt: "You are a connectivity check.",
				Prompt:       "Say 'ok' and nothing else.",
				MaxTokens:    10,
			})
			if err != nil {
				return fmt.Errorf("API test failed: %w", err)
			}
			printf(out, "✓ %s responded using %s\n", provider.Name(), resp.Model)
			return nil
		},
	}
}

// maskKey keeps only the ends of a key for display
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "..." + key[len(key)-4:]
}
