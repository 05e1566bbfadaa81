package database

import (
	"path/filepath"
	"slices"
	"testing"
	"testing/fstest"
)

func TestMigrateURLEscapesCredentials(t *testing.T) {
	got := migrateURL(Config{
		Driver: DriverPostgres, User: "bot", Password: "p@ss/word",
		Host: "db", Port: "5432", Name: "voice", SSLMode: "disable",
	})
	if got != "postgres://bot:p%40ss%2Fword@db:5432/voice?sslmode=disable" {
		t.Fatalf("unexpected url %s", got)
	}
	if got := migrateURL(Config{Driver: DriverSQLite, Path: "data/bot.db"}); got != "sqlite://data/bot.db" {
		t.Fatalf("unexpected sqlite url %s", got)
	}
}

func TestUpFilesAndPending(t *testing.T) {
	fsys := fstest.MapFS{
		"000010_broadcasts.up.sql": {},
		"000002_voices.up.sql":     {},
		"000002_voices.down.sql":   {},
		"000001_init.up.sql":       {},
	}
	files, err := upFiles(fsys)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"000001_init.up.sql", "000002_voices.up.sql", "000010_broadcasts.up.sql"}
	if !slices.Equal(files, want) {
		t.Fatalf("unexpected order %v", files)
	}
	if got := pendingFiles(files, 1, 10); len(got) != 2 || got[0] != "000002_voices.up.sql" {
		t.Fatalf("unexpected pending %v", got)
	}
	if got := pendingFiles(files, 10, 10); got != nil {
		t.Fatalf("nothing is pending at head, got %v", got)
	}
}

func TestRunMigrationsFSOnSQLite(t *testing.T) {
	cfg := Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "bot.db")}
	fsys := fstest.MapFS{
		"000001_init.up.sql":   {Data: []byte("CREATE TABLE t (id INTEGER PRIMARY KEY);")},
		"000001_init.down.sql": {Data: []byte("DROP TABLE t;")},
	}
	if err := RunMigrationsFS(cfg, fsys); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrationsFS(cfg, fsys); err != nil {
		t.Fatalf("second run must be a no-op: %v", err)
	}
}
