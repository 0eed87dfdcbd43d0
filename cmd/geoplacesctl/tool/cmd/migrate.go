package cmd

import (
	"context"
	"fmt"
	"time"

	"geo-places/internal/data"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var dryRun bool

// migrateCmd creates the place table and its spatial indexes
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "创建 place 表及空间索引（可重复执行）",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, drv, cleanup, err := openDriver()
		if err != nil {
			return err
		}
		defer cleanup()
		if dryRun {
			for _, stmt := range data.MigrationStatements(drv.Dialect()) {
				fmt.Fprintln(cmd.OutOrStdout(), stmt+";")
			}
			return nil
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()
		if err := data.Migrate(ctx, drv); err != nil {
			return err
		}
		color.Green("migrate ok (%s)", drv.Dialect())
		return nil
	},
}

// reindexCmd rebuilds indexes and refreshes planner statistics
var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "重建 place 表索引并刷新统计信息",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, drv, cleanup, err := openDriver()
		if err != nil {
			return err
		}
		defer cleanup()
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Hour)
		defer cancel()
		if err := data.Reindex(ctx, drv); err != nil {
			return err
		}
		color.Green("reindex ok (%s)", drv.Dialect())
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "只打印 DDL，不执行")
	rootCmd.AddCommand(migrateCmd, reindexCmd)
}
