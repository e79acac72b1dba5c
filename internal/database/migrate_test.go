// Package database provides connection setup for MariaDB and Redis.
// This file validates migration SQL files to catch schema mismatches early.
package database

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
)

// validTodoPriorities must match the ENUM values on todos.priority.
// Current ENUM: ENUM('high', 'normal')
var validTodoPriorities = map[string]bool{
	"high":   true,
	"normal": true,
}

// migrationsDir returns the absolute path to migrations/ from the project root.
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	// thisFile is internal/database/migrate_test.go, project root is two dirs up.
	projectRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")
	dir := filepath.Join(projectRoot, "migrations")
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("migrations directory not found at %s: %v", dir, err)
	}
	return dir
}

// TestMigrations_TodoPriorityValues scans all .up.sql migration files for
// INSERT or UPDATE statements that reference the todos table and validates
// that any priority values used are valid ENUM members. This prevents the
// "Data truncated for column 'priority'" crash (Error 1265) that occurs
// when an invalid ENUM value is used.
func TestMigrations_TodoPriorityValues(t *testing.T) {
	dir := migrationsDir(t)
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no migration files found")
	}

	// Match priority = 'value' or priority, ... 'value' patterns.
	priorityPattern := regexp.MustCompile(`priority\s*[=,]\s*'([^']+)'`)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("reading %s: %v", f, err)
		}
		content := string(data)

		// Only check files that reference the todos table.
		if !strings.Contains(content, "todos") {
			continue
		}

		// Skip DDL statements (they define the ENUM, not use it).
		lines := strings.Split(content, "\n")
		inDDL := false
		for _, line := range lines {
			trimmed := strings.TrimSpace(strings.ToUpper(line))
			if strings.HasPrefix(trimmed, "ALTER TABLE") || strings.HasPrefix(trimmed, "CREATE TABLE") {
				inDDL = true
			}
			if inDDL {
				if strings.Contains(line, ";") {
					inDDL = false
				}
				continue
			}

			matches := priorityPattern.FindAllStringSubmatch(line, -1)
			for _, match := range matches {
				value := match[1]
				if !validTodoPriorities[value] {
					t.Errorf("%s: invalid todo priority %q; valid values: high, normal",
						filepath.Base(f), value)
				}
			}
		}
	}
}

// TestMigrations_UpDownPairs ensures every .up.sql has a matching .down.sql.
func TestMigrations_UpDownPairs(t *testing.T) {
	dir := migrationsDir(t)
	upFiles, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing up files: %v", err)
	}

	for _, up := range upFiles {
		down := strings.Replace(up, ".up.sql", ".down.sql", 1)
		if _, err := os.Stat(down); err != nil {
			t.Errorf("missing down migration for %s", filepath.Base(up))
		}
	}
}

// TestMigrations_EmailCollation ensures users.email carries a binary
// collation. Email is a case-sensitive key: a case-insensitive collation
// would collapse two distinct accounts into one unique key slot.
func TestMigrations_EmailCollation(t *testing.T) {
	dir := migrationsDir(t)
	data, err := os.ReadFile(filepath.Join(dir, "000001_create_users.up.sql"))
	if err != nil {
		t.Fatalf("reading users migration: %v", err)
	}

	emailColumn := regexp.MustCompile(`(?i)email\s+VARCHAR\(\d+\)[^,]*`)
	column := emailColumn.FindString(string(data))
	if column == "" {
		t.Fatal("users migration defines no email column")
	}
	if !strings.Contains(strings.ToLower(column), "utf8mb4_bin") {
		t.Errorf("users.email must use a binary collation, got %q", column)
	}
}

// TestMigrations_TokenDigestColumns ensures no migration stores a raw token
// column. Session and single-use token tables persist digests only.
func TestMigrations_TokenDigestColumns(t *testing.T) {
	dir := migrationsDir(t)
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}

	rawColumn := regexp.MustCompile(`(?i)\b(refresh_token|reset_token|verification_token)\s+(VARCHAR|CHAR|TEXT)`)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("reading %s: %v", f, err)
		}
		if m := rawColumn.FindString(string(data)); m != "" {
			t.Errorf("%s: raw token column %q; store the digest (token_hash) instead", filepath.Base(f), m)
		}
	}
}
