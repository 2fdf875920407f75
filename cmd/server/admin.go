package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dujiao-next/mall/internal/app"
	"github.com/dujiao-next/mall/internal/logger"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库表结构迁移",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			defer logger.Sync()
			if _, err := app.OpenDatabase(cfg); err != nil {
				return err
			}
			logger.Infow("migrate_done", "driver", cfg.Database.Driver)
			return nil
		},
	}
}

func crowdfundingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crowdfunding",
		Short: "众筹活动运维命令",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "settle [campaign-id]",
		Short: "结算指定众筹活动；不传 id 时结算全部已到期活动",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSettle,
	})
	return cmd
}

func runSettle(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	defer logger.Sync()
	container, err := app.BuildContainer(cfg)
	if err != nil {
		return err
	}
	defer container.Close()

	ctx := context.Background()
	if len(args) == 0 {
		count, err := container.CrowdfundingService.SettleDue(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "settled %d campaign(s)\n", count)
		return nil
	}

	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid campaign id %q", args[0])
	}
	status, err := container.CrowdfundingService.Settle(ctx, uint(id))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "campaign %d: %s\n", id, status)
	return nil
}
