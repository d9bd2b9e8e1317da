package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ryotagoto/mokuhyo/internal/session"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage dialogue sessions",
	Long:  `List and reset in-flight dialogue sessions in the workspace.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List sessions",
	Long:  `Display all session records with their identity, step and expiry.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		indexPath := filepath.Join(cfg.Session.WorkspacePath, "sessions", "index.json")
		data, err := os.ReadFile(indexPath)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Println("No sessions found (workspace not initialized yet).")
				return nil
			}
			return fmt.Errorf("failed to read session index: %w", err)
		}

		var idx struct {
			Sessions map[string]session.Session `json:"sessions"`
		}
		if err := json.Unmarshal(data, &idx); err != nil {
			return fmt.Errorf("failed to parse session index: %w", err)
		}

		if len(idx.Sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		keys := make([]string, 0, len(idx.Sessions))
		for key := range idx.Sessions {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		now := time.Now()
		fmt.Println("Sessions:")
		for _, key := range keys {
			sess := idx.Sessions[key]
			state := sess.Step
			if !sess.Alive(now) {
				state += " (expired)"
			}
			fmt.Printf("- %s  id=%s  step=%s  expires=%s\n", key, sess.ID, state, sess.ExpiresAt.Format(time.RFC3339))
		}

		fmt.Printf("\nTotal: %d session(s)\n", len(idx.Sessions))
		return nil
	},
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset [org] [conversation] [user]",
	Short: "Reset a session (delete its record and log)",
	Long:  `Delete the session record and interaction log for one identity triple.`,
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		store, err := session.Open(cfg.Session)
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		defer store.Close()

		identity := session.Identity{OrgID: args[0], ConversationID: args[1], UserID: args[2]}
		if err := store.Delete(cmd.Context(), identity); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}

		fmt.Printf("✓ Session reset for %s\n", identity.Key())
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionResetCmd)
	rootCmd.AddCommand(sessionCmd)
}
