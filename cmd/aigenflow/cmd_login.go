package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login [provider]",
	Short: "Open a provider's login page and save the browser session",
	Long: `Opens the provider in a visible browser window and waits for a
completed login, then persists the cookies for headless runs. With no
argument, every provider with a missing or expired session is walked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		// Login needs a visible window.
		cfg.Browser.Headless = false
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		tags := providerTags
		if len(args) == 1 {
			tags = []string{args[0]}
		}
		for _, tag := range tags {
			p, err := a.registry.Get(tag)
			if err != nil {
				return err
			}
			if len(args) == 0 && p.CheckSession(ctx) {
				fmt.Printf("%-12s session valid\n", tag)
				continue
			}
			fmt.Printf("%-12s waiting for login...\n", tag)
			if err := p.LoginFlow(ctx); err != nil {
				return fmt.Errorf("login %s: %w", tag, err)
			}
			fmt.Printf("%-12s session saved\n", tag)
		}
		return nil
	},
}
