package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redbco/redb-mongo/pkg/backend"
	"github.com/redbco/redb-mongo/pkg/health"
	"github.com/spf13/cobra"
)

// collectionsCmd represents the collections command
var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List collections",
	Long:  `Print the name of every collection in the configured database, one per line.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd.Context(), func(m *backend.Manager, db backend.Database) error {
			names, err := m.ListCollections(cmd.Context(), db)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		})
	},
}

// pingCmd represents the ping command
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check the database is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd.Context(), func(m *backend.Manager, db backend.Database) error {
			checker := health.NewChecker()
			check := checker.RunCheck(cmd.Context(), "mongodb", func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.ConnectTimeout)*time.Second)
				defer cancel()
				return m.CheckHealth(ctx)
			})

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s) %s\n",
				check.Name, check.Status, check.Duration.Round(time.Millisecond), check.Message)
			if checker.OverallStatus() != health.StatusHealthy {
				return fmt.Errorf("database %s is %s", db.Name(), checker.OverallStatus())
			}
			return nil
		})
	},
}

// dropCollectionCmd represents the drop-collection command
var dropCollectionCmd = &cobra.Command{
	Use:   "drop-collection [collection-name]",
	Short: "Drop a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfirmation(cmd); err != nil {
			return err
		}
		return withDatabase(cmd.Context(), func(m *backend.Manager, db backend.Database) error {
			if err := m.DropCollection(cmd.Context(), db, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dropped collection %s.%s\n", db.Name(), args[0])
			return nil
		})
	},
}

// dropDatabaseCmd represents the drop-database command
var dropDatabaseCmd = &cobra.Command{
	Use:   "drop-database",
	Short: "Drop the configured database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfirmation(cmd); err != nil {
			return err
		}
		return withDatabase(cmd.Context(), func(m *backend.Manager, db backend.Database) error {
			if err := m.DropDatabase(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dropped database %s\n", db.Name())
			return nil
		})
	},
}

func requireConfirmation(cmd *cobra.Command) error {
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return err
	}
	if !yes {
		return fmt.Errorf("refusing to %s without --yes", cmd.Name())
	}
	return nil
}

func setupCommands() {
	dropCollectionCmd.Flags().Bool("yes", false, "Confirm the drop")
	dropDatabaseCmd.Flags().Bool("yes", false, "Confirm the drop")

	rootCmd.AddCommand(collectionsCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(dropCollectionCmd)
	rootCmd.AddCommand(dropDatabaseCmd)
}
