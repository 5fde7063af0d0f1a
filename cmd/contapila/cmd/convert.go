package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lucasew/contapila/pkg/beancount"
	"github.com/lucasew/contapila/pkg/console"
	"github.com/lucasew/contapila/pkg/converter"
)

var convertBalance bool

// convertCmd represents the convert command.
var convertCmd = &cobra.Command{
	Use:   "convert [file]",
	Short: "Convert Beancount JSON records into entries",
	Long: `Convert a JSON array of Beancount-style records, where amounts are
{"number", "currency"} objects, into the entry format produced by parse.

The input is read from the file argument or from stdin.

Example:
  contapila convert records.json --balance`,
	Args: cobra.MaximumNArgs(1),
	Run:  runConvert,
}

func init() {
	convertCmd.Flags().BoolVar(&convertBalance, "balance", false, "infer missing posting amounts")
}

func runConvert(cmd *cobra.Command, args []string) {
	in := io.Reader(os.Stdin)
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		exitOnError(err, "failed to open input")
		defer f.Close()
		in = f
	}

	var records []map[string]any
	decoder := json.NewDecoder(in)
	decoder.UseNumber()
	exitOnError(decoder.Decode(&records), "failed to decode records")

	entries := converter.ConvertBeancountToGeneralizedFormat(records)
	slog.Debug("Converted records", "count", len(entries))

	if convertBalance {
		var errs beancount.BalanceErrors
		entries, errs = beancount.Balance(entries)
		for _, balanceErr := range errs {
			fmt.Fprintln(os.Stderr, console.FormatWarningMessage(balanceErr.Error()))
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	exitOnError(encoder.Encode(entries), "failed to write entries")
}
