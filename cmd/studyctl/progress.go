package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"studydeck/internal/config"
	"studydeck/internal/deck"
	"studydeck/internal/progress"
	"studydeck/internal/subjects"
)

func newProgressCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Inspect or reset per-deck progress",
	}
	cmd.AddCommand(newProgressShowCmd(cfg), newProgressResetCmd(cfg))
	return cmd
}

func newProgressShowCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show how many cards of each deck are correct or incorrect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kv, db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			registry := subjects.NewRegistry(subjects.Env{KV: kv, Log: cfg.NewLogger()})
			for _, s := range registry.List() {
				snap := progress.Load(kv, s.ID).Snapshot()
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s correct %-4d incorrect %d\n", s.ID, len(snap.Correct), len(snap.Incorrect))
			}
			return nil
		},
	}
}

func newProgressResetCmd(cfg *config.Config) *cobra.Command {
	var settings bool

	cmd := &cobra.Command{
		Use:   "reset <deck>",
		Short: "Forget which cards of a deck were answered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deckID := args[0]

			kv, db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			registry := subjects.NewRegistry(subjects.Env{KV: kv, Log: cfg.NewLogger()})
			if _, ok := registry.Get(deckID); !ok {
				return fmt.Errorf("unknown deck %q, expected one of %v", deckID, registry.IDs())
			}

			progress.Load(kv, deckID).Reset()
			if settings {
				kv.Remove(deck.SettingsKey(deckID))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Progress for %s reset\n", deckID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&settings, "settings", false, "also restore the deck's default settings")
	return cmd
}
