package main

import (
	"ChatSync/internal/api/config"
	"ChatSync/internal/pkg/logger"
	"ChatSync/internal/wire"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgPath   string
	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "chatsync",
	Short: "Real-time chat synchronization client",
	Long: `chatsync connects to a chat backend over REST and a persistent socket,
keeps a local view of conversations and messages in sync, and logs every change.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if token, _ := cmd.Flags().GetString("token"); token != "" {
			cfg.Auth.Token = token
		}
		closer, err := logger.InitLogger(cfg.Log)
		if err != nil {
			return err
		}
		logCloser = closer
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

// Execute 命令行入口
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file path (default is ./configs/config.yaml)")
	rootCmd.PersistentFlags().String("token", "", "bearer token, overrides auth.token")
}

func buildEngine() (*wire.EngineContainer, error) {
	return wire.BuildEngine(cfg)
}
