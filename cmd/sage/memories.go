package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pellucidlabs/sage/config"
)

func newMemoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memories",
		Short: "Inspect long-term memory",
	}

	var limit int
	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Search long-term memory by similarity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			coord, err := buildCoordinator(cfg, log.New(discard{}, "", 0))
			if err != nil {
				return err
			}
			defer coord.LongTerm().Close()

			results := coord.SearchMemories(cmd.Context(), strings.Join(args, " "), limit)
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no matching memories")
				return nil
			}
			for _, res := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "[%.2f] (%s, importance %.2f) %s\n",
					res.Relevance, res.Record.Type, res.Record.Importance, res.Record.Content)
			}
			return nil
		},
	}
	search.Flags().IntVar(&limit, "limit", 5, "maximum results")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show long-term memory statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			coord, err := buildCoordinator(cfg, log.New(os.Stderr, "", log.LstdFlags))
			if err != nil {
				return err
			}
			defer coord.LongTerm().Close()

			s, err := coord.LongTerm().Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "records:     %d\n", s.TotalRecords)
			for memType, count := range s.CountsByType {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-10s %d\n", memType, count)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "preferences: %d\n", s.Preferences)
			return nil
		},
	}

	cmd.AddCommand(search, stats)
	return cmd
}
