package store

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"testing"
)

func migrationsDir() string {
	return filepath.Join("..", "..", "db", "migrations")
}

func TestEveryMigrationVersionHasUpAndDown(t *testing.T) {
	entries, err := os.ReadDir(migrationsDir())
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	pattern := regexp.MustCompile(`^(\d{4})_[a-z0-9_]+\.(up|down)\.sql$`)
	directions := map[string]map[string]bool{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := pattern.FindStringSubmatch(entry.Name())
		if match == nil {
			t.Fatalf("unexpected file in migrations dir: %s", entry.Name())
		}
		if directions[match[1]] == nil {
			directions[match[1]] = map[string]bool{}
		}
		directions[match[1]][match[2]] = true
	}
	if len(directions) == 0 {
		t.Fatal("no migrations discovered")
	}

	versions := make([]string, 0, len(directions))
	for version, dirs := range directions {
		if !dirs["up"] || !dirs["down"] {
			t.Fatalf("version %s needs both up and down files", version)
		}
		versions = append(versions, version)
	}
	sort.Strings(versions)
	for i, version := range versions {
		want := []string{"0001", "0002", "0003", "0004", "0005"}
		if i < len(want) && version != want[i] {
			t.Fatalf("migration versions must be contiguous, got %v", versions)
		}
	}
}

func TestUpMigrationFilesSorted(t *testing.T) {
	files, err := upMigrationFiles(migrationsDir())
	if err != nil {
		t.Fatalf("list up migrations: %v", err)
	}
	if len(files) < 2 {
		t.Fatalf("expected schema and status migrations, got %v", files)
	}
	if !sort.StringsAreSorted(files) {
		t.Fatalf("up migrations out of order: %v", files)
	}
	for _, file := range files {
		if !strings.HasSuffix(file, ".up.sql") {
			t.Fatalf("down migration listed as up: %s", file)
		}
	}
}

func TestStatusFunctionMigrationDefinesEveryLabel(t *testing.T) {
	contents, err := os.ReadFile(filepath.Join(migrationsDir(), "0002_tree_request_status.up.sql"))
	if err != nil {
		t.Fatalf("read status migration: %v", err)
	}
	text := string(contents)
	if !strings.Contains(text, "get_tree_request_status") {
		t.Fatal("status migration does not define get_tree_request_status")
	}
	for _, label := range []string{"pending approval", "needs permit", "waiting for visit", "waiting for planting", "completed", "denied"} {
		if !strings.Contains(text, "'"+label+"'") {
			t.Fatalf("status migration never returns %q", label)
		}
	}
}
