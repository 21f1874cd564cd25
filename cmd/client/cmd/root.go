package cmd

import (
	"context"
	"fmt"
	"os"

	"memorizefacts/cmd/client/cmd/types"
	"memorizefacts/internal/app/client"
	"memorizefacts/internal/app/client/config"
	"memorizefacts/internal/utils/logger"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

var (
	cfgFile string
	debug   bool
	app     *client.App
)

var rootCmd = &cobra.Command{
	Use:   "memorize",
	Short: "Memorize Facts - факты, теги и расписания напоминаний",
	Long: `Memorize Facts хранит факты для запоминания, теги и расписания
напоминаний локально и синхронизирует теги с сервером, когда синхронизация включена.

Все команды работают без сети. Синхронизация управляется командами sync и auth.`,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: closeApp,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	opts := []logger.Option{logger.WithLevel(cfg.LogLevel), logger.WithOutput(os.Stderr)}
	if debug {
		opts = append(opts, logger.WithLevel("debug"))
	}
	if cfg.LogFile != "" {
		opts = append(opts, logger.WithFile(cfg.LogFile))
	}
	log := logger.New(cfg.Env, opts...)

	app, err = client.New(cfg, log.With(slog.String("app", "client")))
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}

	cmd.SetContext(context.WithValue(cmd.Context(), types.ClientAppKey, app))
	return nil
}

func closeApp(_ *cobra.Command, _ []string) error {
	if app == nil {
		return nil
	}
	return app.Close()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл (yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "включить отладочный режим")
	rootCmd.PersistentFlags().BoolVar(&types.JSONOutput, "json", false, "вывод в формате JSON")
}
