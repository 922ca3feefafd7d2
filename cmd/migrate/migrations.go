package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

type migration struct {
	Name string
	Up   []string
	Down []string
}

// loadMigrations reads every *.sql file in dir, sorted by file name.
func loadMigrations(dir string) ([]migration, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	migrations := make([]migration, 0, len(files))
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		up, down := splitSections(string(content))
		migrations = append(migrations, migration{
			Name: filepath.Base(file),
			Up:   splitSQL(up),
			Down: splitSQL(down),
		})
	}
	return migrations, nil
}

func splitSections(content string) (string, string) {
	up, down, _ := strings.Cut(content, downMarker)
	up = strings.Replace(up, upMarker, "", 1)
	return up, down
}

// splitSQL cuts a script into statements at lines ending in a semicolon.
// Dollar-quoted bodies are kept whole.
func splitSQL(sqlText string) []string {
	var statements []string
	var current strings.Builder
	inDollar := false
	scanner := bufio.NewScanner(strings.NewReader(sqlText))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if !inDollar && (trimmed == "" || strings.HasPrefix(trimmed, "--")) {
			continue
		}
		current.WriteString(line)
		current.WriteRune('\n')
		if strings.Count(line, "$$")%2 == 1 {
			inDollar = !inDollar
		}
		if !inDollar && strings.HasSuffix(trimmed, ";") {
			statements = append(statements, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		statements = append(statements, rest)
	}
	return statements
}

// pending returns the migrations not yet recorded, in order.
func pending(all []migration, applied map[string]bool) []migration {
	var out []migration
	for _, m := range all {
		if !applied[m.Name] {
			out = append(out, m)
		}
	}
	return out
}
