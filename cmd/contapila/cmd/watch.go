package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/lucasew/contapila/pkg/beancount"
	"github.com/lucasew/contapila/pkg/console"
	"github.com/lucasew/contapila/pkg/pathutil"
	"github.com/lucasew/contapila/pkg/worker"
)

var (
	watchRecord  bool
	watchBalance bool
)

// watchCmd represents the watch command.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reparse ledger files when they change",
	Long: `Watch the ledger root and reparse .beancount files as they change.

Errors are reported with the offending source line. With --record every
successful parse is stored in the parse history database.

Example:
  contapila watch
  contapila watch --balance --record`,
	Run: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchRecord, "record", false, "record the results in the parse history database")
	watchCmd.Flags().BoolVar(&watchBalance, "balance", false, "infer missing posting amounts")
}

const debounceDelay = 300 * time.Millisecond

func runWatch(cmd *cobra.Command, args []string) {
	cfg, resolver := loadEnvironment()
	w := worker.New(parserConfig(resolver), worker.WithConcurrency(cfg.Workers))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := worker.Spawn(ctx, w, worker.WithProgress(func(id uint64, p worker.Progress) {
		slog.Debug("Parsed file", "request", id, "current", p.Current, "total", p.Total)
	}))
	defer client.Close()

	exitOnError(watchLedger(ctx, client.ParseMultiple, resolver), "watch failed")
}

func watchLedger(ctx context.Context, parse batchParser, resolver *pathutil.PathResolver) error {
	root := resolver.GetLedgerRoot()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(root); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", root, err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("failed to read ledger root: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			if err := watcher.Add(filepath.Join(root, entry.Name())); err != nil {
				return fmt.Errorf("failed to watch directory %s: %w", entry.Name(), err)
			}
		}
	}

	fmt.Println(console.FormatInfoMessage(fmt.Sprintf("Watching for file changes in %s...", root)))

	// Initial parse of the whole ledger
	files, err := beancount.NewFileSystemRepository(resolver).ListLedgerFiles("")
	if err != nil {
		return fmt.Errorf("failed to list ledger files: %w", err)
	}
	reparse(ctx, parse, resolver, files)

	modified := make(map[string]struct{})
	var debounce <-chan time.Time

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher channel closed")
			}

			// New year directories are watched as they appear
			if event.Has(fsnotify.Create) && filepath.Dir(event.Name) == filepath.Clean(root) &&
				!strings.HasPrefix(filepath.Base(event.Name), ".") {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					files, err := watchNewDir(watcher, event.Name)
					if err != nil {
						fmt.Println(console.FormatWarningMessage(err.Error()))
						continue
					}
					for _, file := range files {
						modified[file] = struct{}{}
					}
					if len(files) > 0 {
						debounce = time.After(debounceDelay)
					}
					continue
				}
			}

			if !strings.HasSuffix(event.Name, pathutil.LedgerExt) {
				continue
			}

			switch {
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				delete(modified, event.Name)
				fmt.Println(console.FormatInfoMessage(fmt.Sprintf("Removed %s", event.Name)))
			case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
				modified[event.Name] = struct{}{}
				debounce = time.After(debounceDelay)
			}

		case <-debounce:
			debounce = nil
			changed := make([]string, 0, len(modified))
			for file := range modified {
				changed = append(changed, file)
			}
			sort.Strings(changed)
			modified = make(map[string]struct{})

			reparse(ctx, parse, resolver, changed)

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			fmt.Println(console.FormatWarningMessage(fmt.Sprintf("Watcher error: %v", err)))

		case <-ctx.Done():
			fmt.Println(console.FormatInfoMessage("Stopping watch mode..."))
			return nil
		}
	}
}

// watchNewDir watches dir and returns the ledger files already inside it,
// which were created before the watch started.
func watchNewDir(watcher *fsnotify.Watcher, dir string) ([]string, error) {
	if err := watcher.Add(dir); err != nil {
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == pathutil.LedgerExt {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// reparse parses files and reports the outcome. Failures are printed and
// watching continues.
func reparse(ctx context.Context, parse batchParser, resolver *pathutil.PathResolver, files []string) {
	if len(files) == 0 {
		return
	}

	sources, err := readSources(files)
	if err != nil {
		fmt.Println(console.FormatWarningMessage(err.Error()))
		return
	}

	parsed, err := parseSources(ctx, parse, sources, watchBalance)
	if err != nil {
		fmt.Println(console.FormatWarningMessage(fmt.Sprintf("Parse interrupted: %v", err)))
		return
	}

	failures := reportFailures(parsed)
	if watchRecord {
		if err := recordSources(resolver, parsed, false); err != nil {
			fmt.Println(console.FormatWarningMessage(fmt.Sprintf("Failed to record parse history: %v", err)))
		}
	}

	if failures == 0 {
		entries := 0
		for _, p := range parsed {
			entries += len(p.result.Entries)
		}
		fmt.Println(console.FormatSuccessMessage(fmt.Sprintf("Parsed %d file(s), %d entries", len(parsed), entries)))
	}
}
