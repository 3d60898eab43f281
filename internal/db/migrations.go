package db

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations возвращает встроенные в бинарник SQL миграции.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		// Каталог встроен при компиляции, ошибка здесь невозможна.
		panic(err)
	}
	return sub
}
