package pathutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewDefaultsDatabasePath(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected string
	}{
		{"default", Config{LedgerRoot: "/ledger"}, filepath.Join("/ledger", ".contapila", "history.db")},
		{"explicit", Config{LedgerRoot: "/ledger", DatabasePath: "/tmp/h.db"}, "/tmp/h.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New(tt.config).GetDatabasePath()
			if result != tt.expected {
				t.Errorf("GetDatabasePath() = %q, expected %q", result, tt.expected)
			}
		})
	}
}

func TestGetMonthFilePath(t *testing.T) {
	p := New(Config{LedgerRoot: "/ledger"})

	tests := []struct {
		yearMonth string
		expected  string
		wantErr   bool
	}{
		{"2024-01", filepath.Join("/ledger", "2024", "2024-01.beancount"), false},
		{"2024-1", "", true},
		{"202401", "", true},
		{"24-01", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.yearMonth, func(t *testing.T) {
			result, err := p.GetMonthFilePath(tt.yearMonth)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetMonthFilePath(%q) error = %v, wantErr %v", tt.yearMonth, err, tt.wantErr)
			}
			if result != tt.expected {
				t.Errorf("GetMonthFilePath(%q) = %q, expected %q", tt.yearMonth, result, tt.expected)
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LEDGER_ROOT", "")
	if _, err := FromEnv(); err == nil {
		t.Error("FromEnv() expected error without LEDGER_ROOT")
	}

	t.Setenv("LEDGER_ROOT", "/books")
	t.Setenv("LEDGER_DB_PATH", "")
	t.Setenv("LEDGER_MODULES_FILE", "/books/modules.yaml")
	p, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if p.GetLedgerRoot() != "/books" {
		t.Errorf("GetLedgerRoot() = %q", p.GetLedgerRoot())
	}
	if p.GetModulesFile() != "/books/modules.yaml" {
		t.Errorf("GetModulesFile() = %q", p.GetModulesFile())
	}
}

func TestEnsureParentDir(t *testing.T) {
	root := t.TempDir()
	p := New(Config{LedgerRoot: root})

	file := filepath.Join(root, "a", "b", "history.db")
	if err := p.EnsureParentDir(file); err != nil {
		t.Fatalf("EnsureParentDir() error = %v", err)
	}
	if !p.IsDir(filepath.Dir(file)) {
		t.Error("parent directory was not created")
	}
	if p.FileExists(file) {
		t.Error("EnsureParentDir() should not create the file")
	}

	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if p.IsDir(file) {
		t.Error("IsDir() = true for a regular file")
	}
}
