package cmd

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lucasew/contapila/pkg/console"
	"github.com/lucasew/contapila/pkg/db"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display parse statistics",
	Long: `Display statistics about recorded parses.

Shows:
- Total number of recorded files and entries
- Unknown directives and balance errors
- Entries per directive kind
- The last recorded parse of each file

Example:
  contapila stats`,
	Run: runStats,
}

func runStats(cmd *cobra.Command, args []string) {
	_, resolver := loadEnvironment()

	dbPath := resolver.GetDatabasePath()
	slog.Debug("Opening database", "path", dbPath)

	conn, err := db.Open(dbPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	history := db.NewHistory(conn)

	stats, err := history.GetStats()
	exitOnError(err, "failed to get statistics")

	records, err := history.ListParseRecords()
	exitOnError(err, "failed to list parse history")

	fmt.Println("\n=== Parse Statistics ===")
	fmt.Printf("Files:              %d\n", stats.TotalFiles)
	fmt.Printf("Entries:            %d\n", stats.TotalEntries)
	fmt.Printf("Unknown directives: %d\n", stats.UnknownDirectives)
	fmt.Printf("Balance errors:     %d\n", stats.BalanceErrors)

	if stats.LastParse.Valid {
		fmt.Printf("Last parse:         %s\n", stats.LastParse.String)
	} else {
		fmt.Printf("Last parse:         (never)\n")
	}
	fmt.Println()

	if len(stats.ByKind) > 0 {
		fmt.Print(countsTable("Kind", stats.ByKind))
		fmt.Println()
	}

	if len(records) > 0 {
		rows := make([][]string, len(records))
		for i, r := range records {
			rows[i] = []string{
				r.Source,
				strconv.Itoa(r.EntryCount),
				strconv.Itoa(r.UnknownCount),
				strconv.Itoa(r.BalanceErrors),
				r.ParsedAt.Format("2006-01-02 15:04:05"),
			}
		}
		fmt.Print(console.RenderTable([]string{"Source", "Entries", "Unknown", "Balance errors", "Parsed at"}, rows))
	}

	slog.Debug("Statistics displayed successfully")
}
