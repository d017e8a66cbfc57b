package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mwhitford/spamrelay/internal/config"
	"github.com/mwhitford/spamrelay/internal/creds"
	"github.com/mwhitford/spamrelay/internal/lookup"
	"github.com/mwhitford/spamrelay/internal/phone"
)

var (
	checkConfigPath string
	checkCredStore  string
)

var checkCmd = &cobra.Command{
	Use:   "check <number>",
	Short: "Run a one-shot spam lookup from the command line",
	Long: `Check a single phone number against the upstream spam-reputation
service and print the result as JSON.

The number must be in external format: a leading + followed by the
country code and subscriber digits, e.g. +14155551234. A bare run of
ten or more digits is accepted and treated as a +1 number.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkConfigPath, "config", "c", "", "Path to config file (default: ~/.config/spamrelay/config.json)")
	checkCmd.Flags().StringVar(&checkCredStore, "credential-store", "", "Credential store: env, file, or keyring (default: config or env)")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	resolvedConfigPath, err := resolveConfigPath(checkConfigPath)
	if err != nil {
		return err
	}
	cfg, err := config.LoadFrom(resolvedConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	mode := creds.StoreMode(checkCredStore)
	if mode == "" {
		mode = creds.StoreMode(cfg.CredentialStore)
	}
	store, err := creds.Open(mode)
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	cred, err := store.Get()
	if err != nil {
		return fmt.Errorf("read credentials: %w", err)
	}
	if cred.IsZero() {
		fmt.Fprintln(os.Stderr, "Warning: upstream credentials not configured; the lookup will likely fail with an authentication error")
	}

	client := lookup.New(lookup.Options{
		BaseURL:    cfg.UpstreamBaseURL,
		Credential: cred,
	})

	number, ok := phone.SniffQuery(args[0])
	if !ok {
		return fmt.Errorf("%q does not look like a phone number", args[0])
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), lookup.DefaultTimeout)
	defer cancel()

	result, err := client.CheckSpamScore(ctx, number)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
