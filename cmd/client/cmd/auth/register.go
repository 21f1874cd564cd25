package auth

import (
	"context"
	"fmt"
	"time"

	"memorizefacts/cmd/client/cmd/types"

	"github.com/spf13/cobra"
)

var RegisterCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Зарегистрировать нового пользователя",
	Long: `Регистрация нового пользователя на сервере синхронизации.

После регистрации включите синхронизацию: memorize auth login <email>`,
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
		confirm, err := types.ReadPassword("Повторите пароль: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("пароли не совпадают")
		}
		if len(password) < minPasswordLen {
			return fmt.Errorf("пароль должен содержать минимум %d символов", minPasswordLen)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		if err := app.Register(ctx, args[0], password); err != nil {
			return fmt.Errorf("ошибка регистрации: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Регистрация завершена. Включите синхронизацию: memorize auth login", args[0])
		return nil
	},
}
