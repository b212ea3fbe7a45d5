package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgecomet/catalog/internal/catalog/sqlsource"
)

func dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the products tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(newLogger())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			db, err := sqlsource.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := sqlsource.ApplySchema(ctx, db); err != nil {
				return err
			}
			fmt.Printf("Schema applied to %s/%s\n", cfg.Database.Addr, cfg.Database.Name)
			return nil
		},
	})
	return cmd
}
