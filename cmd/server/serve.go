package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/dujiao-next/mall/internal/app"
	"github.com/dujiao-next/mall/internal/logger"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 接口与队列消费者",
		Long: `启动服务进程。

模式：
  all     HTTP 接口 + 队列消费者（默认）
  api     仅 HTTP 接口
  worker  仅队列消费者（订单超时关闭、众筹退款、事件重投、众筹到期结算）`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.IsValidMode(mode) {
				return fmt.Errorf("unknown mode %q (all, api, worker)", mode)
			}
			cfg := loadConfig()
			defer logger.Sync()
			if err := checkSecret(cfg); err != nil {
				return err
			}
			return app.Run(app.Options{
				Config:  cfg,
				Logger:  logger.S(),
				Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
				Mode:    mode,
			})
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", app.ModeAll, "启动模式: all, api, worker")
	return cmd
}
