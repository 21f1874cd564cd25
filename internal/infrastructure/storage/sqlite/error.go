package sqlite

import (
	"errors"

	"memorizefacts/internal/model"

	"github.com/mattn/go-sqlite3"
)

// mapError переводит ошибки ограничений SQLite в ошибки хранилища
func mapError(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique:
		return model.ErrDuplicateName
	case sqlite3.ErrConstraintPrimaryKey:
		return model.ErrAlreadyExists
	}
	return err
}
