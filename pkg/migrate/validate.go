package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// Column types and syntax that only one of the supported drivers accepts.
var nonPortableRe = regexp.MustCompile(`(?i)\b(SERIAL|BIGSERIAL|JSONB|AUTO_INCREMENT|AUTOINCREMENT|TIMESTAMPTZ)\b|::`)

// ValidateDir checks migration filenames, version uniqueness, goose headers
// and that the DDL stays portable across drivers.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := seen[m[1]]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name)
		}
		seen[m[1]] = name

		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read file %q: %w", name, err)
		}
		if err := validateContent(name, string(b)); err != nil {
			return err
		}
	}
	return nil
}

func validateContent(name, txt string) error {
	for _, header := range []string{"-- +goose Up", "-- +goose Down"} {
		if !strings.Contains(txt, header) {
			return fmt.Errorf("migration %q missing %q", name, header)
		}
	}
	for i, line := range strings.Split(txt, "\n") {
		stmt := strings.TrimSpace(line)
		if strings.HasPrefix(stmt, "--") {
			continue
		}
		if tok := nonPortableRe.FindString(stmt); tok != "" {
			return fmt.Errorf("migration %q line %d uses driver specific %q", name, i+1, tok)
		}
	}
	return nil
}
