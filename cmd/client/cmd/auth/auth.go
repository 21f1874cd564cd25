package auth

import (
	"github.com/spf13/cobra"
)

// AuthCmd - родительская команда для учетной записи на сервере синхронизации
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Учетная запись синхронизации",
	Long:  `Регистрация на сервере синхронизации и вход с включением синхронизации.`,
}

const minPasswordLen = 8
