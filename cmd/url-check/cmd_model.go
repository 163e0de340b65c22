package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mikey/url-verdict/internal/classifier"
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Inspect and switch scoring model versions",
}

var modelShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active model version and its feature schema",
	Args:  cobra.NoArgs,
	RunE:  runModelShow,
}

var modelActivateCmd = &cobra.Command{
	Use:   "activate <version>",
	Short: "Validate a model version and make it the active one",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelActivate,
}

var modelRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Re-activate the previously active model version",
	Args:  cobra.NoArgs,
	RunE:  runModelRollback,
}

func init() {
	modelCmd.AddCommand(modelShowCmd)
	modelCmd.AddCommand(modelActivateCmd)
	modelCmd.AddCommand(modelRollbackCmd)
}

func runModelShow(cmd *cobra.Command, _ []string) error {
	return invoke(func(registry *classifier.Registry) error {
		artifact, err := registry.Active()
		if err != nil {
			return fmt.Errorf("load active model: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Version:  %s\n", artifact.Version)
		fmt.Fprintf(out, "Schema:   %s\n", artifact.SchemaVersion)
		if artifact.Description != "" {
			fmt.Fprintf(out, "About:    %s\n", artifact.Description)
		}

		state, err := registry.State()
		switch {
		case err == nil && state.PreviousVersion != "":
			fmt.Fprintf(out, "Previous: %s\n", state.PreviousVersion)
		case err != nil && !errors.Is(err, classifier.ErrStateNotFound):
			return fmt.Errorf("load state: %w", err)
		}

		fmt.Fprintf(out, "Features: (%d)\n", len(artifact.Features))
		for _, f := range artifact.Features {
			fmt.Fprintf(out, "  %-26s weight=%+.3f\n", f.Name, f.Weight)
		}
		return nil
	})
}

func runModelActivate(cmd *cobra.Command, args []string) error {
	return invoke(func(registry *classifier.Registry) error {
		if err := registry.Activate(args[0]); err != nil {
			return fmt.Errorf("activate %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Active model: %s\n", args[0])
		return nil
	})
}

func runModelRollback(cmd *cobra.Command, _ []string) error {
	return invoke(func(registry *classifier.Registry) error {
		if err := registry.Rollback(); err != nil {
			return fmt.Errorf("rollback: %w", err)
		}
		version, err := registry.ActiveVersion()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Active model: %s\n", version)
		return nil
	})
}
