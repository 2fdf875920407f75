package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dujiao-next/mall/internal/config"
	"github.com/dujiao-next/mall/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// Version 构建时通过 -ldflags 注入
var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "mall",
		Short:         "商城订单与支付服务",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(crowdfundingCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig 加载配置并初始化全局日志
func loadConfig() *config.Config {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	return cfg
}

func checkSecret(cfg *config.Config) error {
	if !isWeakSecret(cfg.JWT.SecretKey) {
		return nil
	}
	if cfg.Server.Mode == "release" {
		return fmt.Errorf("JWT secret 过弱或仍为默认值，请在生产环境中配置强随机密钥")
	}
	logger.Warnw("jwt_secret_weak", "hint", "建议在生产环境中更换")
	return nil
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	return strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key")
}
