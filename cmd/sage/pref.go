package main

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pellucidlabs/sage/config"
	"github.com/pellucidlabs/sage/memory"
)

func newPrefCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pref",
		Short: "Manage stored user preferences",
	}

	openLTM := func() (*memory.LongTerm, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		return memory.NewLongTerm(filepath.Join(cfg.DataDir, "memory.db"),
			memory.WithLogger(log.New(discard{}, "", 0)))
	}

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Look up a preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ltm, err := openLTM()
			if err != nil {
				return err
			}
			defer ltm.Close()

			value, ok, err := ltm.GetPreference(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("preference %q not set", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ltm, err := openLTM()
			if err != nil {
				return err
			}
			defer ltm.Close()

			if err := ltm.SetPreference(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.AddCommand(get, set)
	return cmd
}
