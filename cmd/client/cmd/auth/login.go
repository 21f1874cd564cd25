package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"memorizefacts/cmd/client/cmd/types"
	"memorizefacts/internal/domain/replication"

	"github.com/spf13/cobra"
)

var syncNow bool

var LoginCmd = &cobra.Command{
	Use:     "login <email>",
	Aliases: []string{"on"},
	Short:   "Сохранить учетные данные и включить синхронизацию",
	Long: `Сохраняет email и пароль в зашифрованном файле и включает синхронизацию.
Запущенный 'memorize sync run' подхватит изменение сам.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		password, err := types.ReadPassword("Пароль: ")
		if err != nil {
			return err
		}

		if err := app.EnableSync(replication.Credentials{Login: args[0], Password: password}); err != nil {
			return fmt.Errorf("ошибка сохранения учетных данных: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Синхронизация включена")

		if !syncNow {
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()
		if _, err := app.SyncNow(ctx); err != nil {
			if errors.Is(err, replication.ErrConfig) {
				return fmt.Errorf("вход отклонен: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Предупреждение: ошибка синхронизации: %v\n", err)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Данные синхронизированы")
		return nil
	},
}

func init() {
	LoginCmd.Flags().BoolVar(&syncNow, "now", true, "сразу выполнить синхронизацию")
}
