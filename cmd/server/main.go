package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/easayliu/tg-file-renamer/docs"
)

// @title Telegram File Renamer API
// @version 1.0
// @description 文件重命名机器人的管理接口：会话查询、用户偏好和健康检查

// @license.name MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

var configFile string

var rootCmd = &cobra.Command{
	Use:   "renamer",
	Short: "Telegram file rename bot",
	Long:  `Telegram bot that receives a file, asks for a new filename and uploads the file again under that name.`,
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./configs/config.yaml or ./config.yaml)")
	rootCmd.AddCommand(serveCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
