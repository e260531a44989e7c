package migrations

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"sort"
	"strings"
)

// ApplySQLite executes the SQLite up migrations of every registered
// filesystem in order. It backs tests and tooling that bypass the
// go-persistence-bun runner; it does not track applied versions.
func ApplySQLite(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("migrations: db required")
	}
	for _, fsys := range Filesystems() {
		entries, err := fs.Glob(fsys, "sqlite/*.up.sql")
		if err != nil {
			return err
		}
		sort.Strings(entries)
		for _, entry := range entries {
			content, err := fs.ReadFile(fsys, entry)
			if err != nil {
				return err
			}
			for _, stmt := range splitStatements(string(content)) {
				if _, err := db.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// splitStatements drops "--" comment lines and splits the rest on ";".
func splitStatements(sql string) []string {
	var body strings.Builder
	for _, line := range strings.Split(sql, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	var out []string
	for _, part := range strings.Split(body.String(), ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
