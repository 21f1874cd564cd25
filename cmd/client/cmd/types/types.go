package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"memorizefacts/internal/app/client"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type contextKey string

// ClientAppKey ключ приложения в контексте команды
const ClientAppKey contextKey = "app"

// JSONOutput вывод в формате JSON вместо текста
var JSONOutput bool

// App достает приложение из контекста команды
func App(cmd *cobra.Command) (*client.App, error) {
	app, ok := cmd.Context().Value(ClientAppKey).(*client.App)
	if !ok || app == nil {
		return nil, errors.New("приложение не инициализировано")
	}
	return app, nil
}

// Print выводит v как JSON при --json, иначе вызывает text
func Print(w io.Writer, v any, text func(io.Writer)) error {
	if JSONOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

// ReadPassword читает пароль без эха, если stdin терминал, иначе строку целиком
func ReadPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("ошибка чтения пароля: %w", err)
		}
		return string(b), nil
	}
	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", fmt.Errorf("ошибка чтения пароля: %w", err)
	}
	return strings.TrimSpace(line), nil
}
