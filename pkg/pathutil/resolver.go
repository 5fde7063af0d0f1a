// Package pathutil provides centralized path management for ledger files and directories.
package pathutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LedgerExt is the extension of ledger files.
const LedgerExt = ".beancount"

// PathResolver manages paths for ledger files, the history database and
// the optional directive module file.
type PathResolver struct {
	ledgerRoot   string
	databasePath string
	modulesFile  string
}

// Config represents the configuration for PathResolver.
type Config struct {
	// LedgerRoot is the root directory of the ledger (e.g., ~/accounting/ledger)
	LedgerRoot string
	// DatabasePath is the path to the SQLite database file for parse history
	DatabasePath string
	// ModulesFile is an optional YAML file with extra directive modules
	ModulesFile string
}

// New creates a new PathResolver with the given configuration.
// If DatabasePath is empty, it defaults to {LedgerRoot}/.contapila/history.db
func New(config Config) *PathResolver {
	dbPath := config.DatabasePath
	if dbPath == "" {
		dbPath = filepath.Join(config.LedgerRoot, ".contapila", "history.db")
	}

	return &PathResolver{
		ledgerRoot:   config.LedgerRoot,
		databasePath: dbPath,
		modulesFile:  config.ModulesFile,
	}
}

// FromEnv creates a PathResolver from environment variables.
// Expected environment variables:
//   - LEDGER_ROOT: Root directory for ledger files (required)
//   - LEDGER_DB_PATH: Database file path (optional)
//   - LEDGER_MODULES_FILE: YAML directive modules (optional)
func FromEnv() (*PathResolver, error) {
	ledgerRoot := os.Getenv("LEDGER_ROOT")
	if ledgerRoot == "" {
		return nil, fmt.Errorf("LEDGER_ROOT environment variable is required")
	}

	return New(Config{
		LedgerRoot:   ledgerRoot,
		DatabasePath: os.Getenv("LEDGER_DB_PATH"),
		ModulesFile:  os.Getenv("LEDGER_MODULES_FILE"),
	}), nil
}

// GetLedgerRoot returns the ledger root directory.
func (p *PathResolver) GetLedgerRoot() string {
	return p.ledgerRoot
}

// GetDatabasePath returns the database file path.
func (p *PathResolver) GetDatabasePath() string {
	return p.databasePath
}

// GetModulesFile returns the directive module file, or "" when unset.
func (p *PathResolver) GetModulesFile() string {
	return p.modulesFile
}

// GetYearDir returns the directory path for a year.
// Example: ~/accounting/ledger/2024
func (p *PathResolver) GetYearDir(year string) string {
	return filepath.Join(p.ledgerRoot, year)
}

// GetMonthFilePath returns the file path for a month.
// yearMonth should be in YYYY-MM format.
// Example: ~/accounting/ledger/2024/2024-01.beancount
func (p *PathResolver) GetMonthFilePath(yearMonth string) (string, error) {
	parts := strings.Split(yearMonth, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return "", fmt.Errorf("invalid year-month format: %s. Expected YYYY-MM", yearMonth)
	}

	return filepath.Join(p.GetYearDir(parts[0]), yearMonth+LedgerExt), nil
}

// ListLedgerFiles returns every ledger file under the root, or under the
// year directory when year is set, in lexical order. Hidden directories
// such as .contapila are skipped.
func (p *PathResolver) ListLedgerFiles(year string) ([]string, error) {
	dir := p.ledgerRoot
	if year != "" {
		dir = p.GetYearDir(year)
	}
	if !p.IsDir(dir) {
		return []string{}, nil
	}

	files := []string{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == LedgerExt {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger files in %s: %w", dir, err)
	}

	sort.Strings(files)
	return files, nil
}

// EnsureDir creates a directory if it doesn't exist.
// It creates all parent directories as needed (like mkdir -p).
func (p *PathResolver) EnsureDir(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
	}
	return nil
}

// EnsureParentDir ensures the parent directory of a file exists.
func (p *PathResolver) EnsureParentDir(filePath string) error {
	return p.EnsureDir(filepath.Dir(filePath))
}

// FileExists checks if a file exists.
func (p *PathResolver) FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}

// IsDir checks if a path is a directory.
func (p *PathResolver) IsDir(dirPath string) bool {
	info, err := os.Stat(dirPath)
	if err != nil {
		return false
	}
	return info.IsDir()
}
