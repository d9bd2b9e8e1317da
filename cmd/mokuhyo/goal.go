package main

import (
	"fmt"
	"time"

	"github.com/ryotagoto/mokuhyo/internal/goal"

	"github.com/spf13/cobra"
)

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Inspect registered goals",
}

var goalLsCmd = &cobra.Command{
	Use:   "ls [org] [user]",
	Short: "List goals for a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		registrar, err := openRegistrar()
		if err != nil {
			return err
		}
		defer registrar.Close()

		goals, err := registrar.ListByUser(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to list goals: %w", err)
		}

		if len(goals) == 0 {
			fmt.Println("No goals found.")
			return nil
		}

		for _, g := range goals {
			fmt.Printf("- %s  [%s]  %s\n", g.ID, g.Type, g.Title)
		}
		fmt.Printf("\nTotal: %d goal(s)\n", len(goals))
		return nil
	},
}

var goalShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registrar, err := openRegistrar()
		if err != nil {
			return err
		}
		defer registrar.Close()

		g, err := registrar.GetByID(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load goal: %w", err)
		}
		if g == nil {
			return fmt.Errorf("goal %s not found", args[0])
		}

		fmt.Printf("ID:      %s\n", g.ID)
		fmt.Printf("Org:     %s\n", g.OrgID)
		fmt.Printf("User:    %s\n", g.UserID)
		fmt.Printf("Title:   %s\n", g.Title)
		fmt.Printf("Type:    %s\n", g.Type)
		if g.TargetValue != nil {
			fmt.Printf("Target:  %g %s\n", *g.TargetValue, g.TargetUnit)
		}
		fmt.Printf("Period:  %s to %s\n", g.PeriodStart.Format("2006-01-02"), g.PeriodEnd.Format("2006-01-02"))
		fmt.Printf("Created: %s\n", g.CreatedAt.Format(time.RFC3339))
		fmt.Printf("\n%s\n", g.Description)
		return nil
	},
}

func openRegistrar() (*goal.Registrar, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	registrar, err := goal.NewRegistrar(cfg.Goal.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open goal registrar: %w", err)
	}
	return registrar, nil
}

func init() {
	goalCmd.AddCommand(goalLsCmd)
	goalCmd.AddCommand(goalShowCmd)
	rootCmd.AddCommand(goalCmd)
}
