package sync

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"memorizefacts/cmd/client/cmd/types"
	"memorizefacts/internal/domain/replication"
	"memorizefacts/internal/model"

	"github.com/spf13/cobra"
)

var forget bool

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Управление синхронизацией",
	Long: `Синхронизация тегов между устройством и сервером.

Включение: memorize auth login <email>. Фоновый режим: memorize sync run,
внеочередной цикл работающему процессу: kill -USR1 <pid>.`,
}

var offCmd = &cobra.Command{
	Use:   "off",
	Short: "Выключить синхронизацию",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		if err := app.DisableSync(forget); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Синхронизация выключена")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Показать состояние синхронизации",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		report, err := app.SyncReport(cmd.Context())
		if err != nil {
			return err
		}

		return types.Print(cmd.OutOrStdout(), report, func(w io.Writer) {
			state := "выключена"
			if report.Enabled {
				state = "включена"
			}
			fmt.Fprintf(w, "Синхронизация: %s\n", state)
			if report.Login != "" {
				fmt.Fprintf(w, "Пользователь: %s\n", report.Login)
			}
			for _, c := range report.Collections {
				last := "никогда"
				if !c.Cursor.IsInitial() {
					last = model.FormatTime(c.Cursor.LastUpdatedAt)
				}
				fmt.Fprintf(w, "  %s: получено до %s, ждут отправки %d\n", c.Collection, last, c.Pending)
			}
		})
	},
}

var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Выполнить один цикл синхронизации",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		start := time.Now()
		statuses, err := app.SyncNow(ctx)
		printStatuses(cmd.OutOrStdout(), statuses, time.Since(start))
		return err
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Работать в фоне и синхронизировать по сигналу включения",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
		defer stop()
		return app.Run(ctx)
	},
}

func printStatuses(w io.Writer, statuses []replication.Status, took time.Duration) {
	_ = types.Print(w, statuses, func(w io.Writer) {
		for _, s := range statuses {
			fmt.Fprintf(w, "%s: получено %d, отправлено %d", s.Collection, s.Pulled, s.Pushed)
			if s.LastError != "" {
				fmt.Fprintf(w, ", ошибка: %s", s.LastError)
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Время выполнения: %v\n", took.Round(time.Millisecond))
	})
}

func init() {
	offCmd.Flags().BoolVar(&forget, "forget", false, "стереть сохраненные учетные данные")
	SyncCmd.AddCommand(offCmd, statusCmd, nowCmd, runCmd)
}
