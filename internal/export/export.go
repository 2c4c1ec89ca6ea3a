// Package export renders report rows as an aligned table, CSV or JSON.
//
// Rows are slices of structs carrying `csv` tags; the table format is derived
// from the CSV rendering so both always show the same columns.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/gocarina/gocsv"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Format names an output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatCSV, FormatJSON:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, csv or json)", s)
	}
}

// Write encodes rows to w. rows must be a slice of structs or of pointers
// to structs.
func Write(w io.Writer, format Format, rows any) error {
	switch format {
	case FormatCSV:
		return gocsv.Marshal(rows, w)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case FormatTable, "":
		return writeTable(w, rows)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeTable(w io.Writer, rows any) error {
	var buf bytes.Buffer
	if err := gocsv.Marshal(rows, &buf); err != nil {
		return err
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, rec := range records {
		fmt.Fprintln(tw, strings.Join(rec, "\t"))
		if i == 0 {
			fmt.Fprintln(tw, strings.Repeat("-", tableRuleWidth(rec)))
		}
	}
	return tw.Flush()
}

func tableRuleWidth(header []string) int {
	n := 0
	for _, h := range header {
		n += len(h) + 2
	}
	return n
}

var printer = message.NewPrinter(language.English)

// Money formats an amount in rupees with thousands grouping, e.g. ₹1,500.00.
func Money(v float64) string {
	if v < 0 {
		return "-" + printer.Sprintf("₹%.2f", -v)
	}
	return printer.Sprintf("₹%.2f", v)
}
