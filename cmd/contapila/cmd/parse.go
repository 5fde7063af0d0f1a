package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasew/contapila/pkg/beancount"
	"github.com/lucasew/contapila/pkg/console"
	"github.com/lucasew/contapila/pkg/db"
	"github.com/lucasew/contapila/pkg/parser"
	"github.com/lucasew/contapila/pkg/pathutil"
	"github.com/lucasew/contapila/pkg/worker"
)

var (
	parseYear    string
	parseBalance bool
	parseFormat  string
	parseRecord  bool
	parseForce   bool
)

// parseCmd represents the parse command.
var parseCmd = &cobra.Command{
	Use:   "parse [files...]",
	Short: "Parse ledger files",
	Long: `Parse ledger files into structured entries.

Files are read from the arguments ("-" reads stdin). Without arguments every
.beancount file under the ledger root is parsed, optionally limited to one
year.

Example:
  contapila parse 2024/2024-01.beancount
  contapila parse --year 2024 --balance
  cat main.beancount | contapila parse - --format summary`,
	Run: runParse,
}

func init() {
	parseCmd.Flags().StringVar(&parseYear, "year", "", "only parse files of this year (e.g., 2024)")
	parseCmd.Flags().BoolVar(&parseBalance, "balance", false, "infer missing posting amounts")
	parseCmd.Flags().StringVar(&parseFormat, "format", "json", "output format (json or summary)")
	parseCmd.Flags().BoolVar(&parseRecord, "record", false, "record the results in the parse history database")
	parseCmd.Flags().BoolVar(&parseForce, "force", false, "record files even when their content did not change")
}

// source is a ledger file read into memory.
type source struct {
	file worker.File
	hash string
}

// parsedSource is the outcome of parsing one source.
type parsedSource struct {
	source
	result        worker.FileResult
	balanced      bool
	balanceErrors beancount.BalanceErrors
}

// historyHash is the hash stored in the parse history. Balanced parses
// store different entries, so the mode is part of the hash.
func (p parsedSource) historyHash() string {
	if !p.balanced {
		return p.hash
	}
	return db.ContentHash(p.hash + ":balanced")
}

func runParse(cmd *cobra.Command, args []string) {
	if parseFormat != "json" && parseFormat != "summary" {
		exitOnError(fmt.Errorf("unknown format %q", parseFormat), "invalid flags")
	}
	if parseYear != "" {
		if _, err := strconv.Atoi(parseYear); err != nil || len(parseYear) != 4 {
			exitOnError(fmt.Errorf("year must be 4 digits: %s", parseYear), "invalid flags")
		}
	}

	cfg, resolver := loadEnvironment()
	parserCfg := parserConfig(resolver)

	paths := args
	if len(paths) == 0 {
		repo := beancount.NewFileSystemRepository(resolver)
		files, err := repo.ListLedgerFiles(parseYear)
		exitOnError(err, "failed to list ledger files")
		paths = files
	}
	if len(paths) == 0 {
		fmt.Println(console.FormatInfoMessage("No ledger files found"))
		return
	}

	sources, err := readSources(paths)
	exitOnError(err, "failed to read ledger files")

	w := worker.New(parserCfg, worker.WithConcurrency(cfg.Workers))
	parsed, err := parseSources(cmd.Context(), workerBatch(w), sources, parseBalance)
	exitOnError(err, "failed to parse ledger files")

	failures := reportFailures(parsed)

	if parseRecord {
		exitOnError(recordSources(resolver, parsed, parseForce), "failed to record parse history")
	}

	switch parseFormat {
	case "json":
		exitOnError(writeEntries(os.Stdout, parsed), "failed to write entries")
	case "summary":
		fmt.Print(summaryTable(parsed))
	}

	if failures > 0 {
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage(fmt.Sprintf("%d of %d file(s) failed to parse", failures, len(parsed))))
		os.Exit(1)
	}
}

// readSources reads paths into memory. "-" reads stdin under the name
// "stdin".
func readSources(paths []string) ([]source, error) {
	sources := make([]source, 0, len(paths))
	for _, path := range paths {
		var data []byte
		var err error
		name := path
		if path == "-" {
			name = "stdin"
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		text := string(data)
		sources = append(sources, source{
			file: worker.File{Text: text, Filename: name},
			hash: db.ContentHash(text),
		})
	}
	return sources, nil
}

// batchParser parses a batch of files, one result per file in order.
type batchParser func(ctx context.Context, files []worker.File) ([]worker.FileResult, error)

// workerBatch parses batches directly on w, logging progress.
func workerBatch(w *worker.Worker) batchParser {
	return func(ctx context.Context, files []worker.File) ([]worker.FileResult, error) {
		return w.ParseMultiple(ctx, files, func(p worker.Progress) {
			slog.Debug("Parsed file", "current", p.Current, "total", p.Total)
		})
	}
}

// parseSources parses the sources and optionally balances each file.
func parseSources(ctx context.Context, parse batchParser, sources []source, balance bool) ([]parsedSource, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	files := make([]worker.File, len(sources))
	for i, s := range sources {
		files[i] = s.file
	}

	results, err := parse(ctx, files)
	if err != nil {
		return nil, err
	}

	parsed := make([]parsedSource, len(sources))
	for i, s := range sources {
		parsed[i] = parsedSource{source: s, result: results[i], balanced: balance}
		if balance && results[i].Success {
			entries, errs := beancount.Balance(results[i].Entries)
			parsed[i].result.Entries = entries
			parsed[i].balanceErrors = errs
		}
	}
	return parsed, nil
}

// reportFailures prints parse failures and balance warnings to stderr and
// returns the number of files that failed.
func reportFailures(parsed []parsedSource) int {
	failures := 0
	for _, p := range parsed {
		if !p.result.Success {
			failures++
			if p.result.Err != nil {
				fmt.Fprint(os.Stderr, console.FormatParseError(p.result.Err, p.file.Text))
			} else if p.result.Error != nil {
				fmt.Fprintln(os.Stderr, console.FormatErrorMessage(*p.result.Error))
			}
			continue
		}

		for _, balanceErr := range p.balanceErrors {
			fmt.Fprintln(os.Stderr, console.FormatWarningMessage(balanceErr.Error()))
		}
		for _, e := range p.result.Entries {
			if e.Kind == parser.KindUnknownDirective {
				slog.Debug("Unknown directive", "location", e.Location())
			}
		}
	}
	return failures
}

// recordSources stores successful results in the parse history. Files
// already recorded with the same content and balance mode are skipped
// unless force is set.
func recordSources(resolver *pathutil.PathResolver, parsed []parsedSource, force bool) error {
	dbPath := resolver.GetDatabasePath()
	slog.Debug("Opening database", "path", dbPath)

	conn, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	history := db.NewHistory(conn)
	recorded, skipped := 0, 0
	for _, p := range parsed {
		if !p.result.Success {
			continue
		}

		if !force {
			upToDate, err := history.IsUpToDate(p.file.Filename, p.historyHash())
			if err != nil {
				return err
			}
			if upToDate {
				slog.Debug("Skipping unchanged file", "source", p.file.Filename)
				skipped++
				continue
			}
		}

		record := db.ParseRecord{
			Source:        p.file.Filename,
			ContentHash:   p.historyHash(),
			BalanceErrors: len(p.balanceErrors),
		}
		if err := history.RecordParse(record, p.result.Entries); err != nil {
			return fmt.Errorf("failed to record %s: %w", p.file.Filename, err)
		}
		recorded++
	}

	if err := history.SetMetadata("last_parse", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	slog.Info("Recorded parse history", "recorded", recorded, "skipped", skipped)
	return nil
}

// writeEntries writes the entries of every successful file as one JSON
// array.
func writeEntries(out io.Writer, parsed []parsedSource) error {
	entries := []parser.Entry{}
	for _, p := range parsed {
		if p.result.Success {
			entries = append(entries, p.result.Entries...)
		}
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(entries)
}

// summaryTable counts entries per kind across the successful files.
func summaryTable(parsed []parsedSource) string {
	counts := map[string]int{}
	for _, p := range parsed {
		for _, e := range p.result.Entries {
			counts[e.Kind]++
		}
	}
	return countsTable("Kind", counts)
}

func countsTable(label string, counts map[string]int) string {
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	rows := make([][]string, len(kinds))
	for i, kind := range kinds {
		rows[i] = []string{kind, strconv.Itoa(counts[kind])}
	}
	return console.RenderTable([]string{label, "Count"}, rows)
}
