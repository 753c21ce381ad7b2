package imports

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV parses a bank statement with a header row. Recognized columns
// (case-insensitive) are date, description, category, and amount; a column
// that is absent falls back to its default, while a present-but-empty cell
// is kept as-is. Ragged rows fail the whole parse.
func ParseCSV(content []byte) (Statement, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	reader := csv.NewReader(bytes.NewReader(content))

	header, err := reader.Read()
	if err == io.EOF {
		return Statement{CategoryTotals: map[string]float64{}}, nil
	}
	if err != nil {
		return Statement{}, fmt.Errorf("parsing csv: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	st := Statement{CategoryTotals: map[string]float64{}}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Statement{}, fmt.Errorf("parsing csv: %w", err)
		}

		row := make(map[string]string, len(header))
		for i, key := range header {
			row[key] = strings.TrimSpace(record[i])
		}

		r := Row{
			Date:        field(row, "date", ""),
			Description: field(row, "description", "Unknown"),
			Category:    field(row, "category", "Uncategorized"),
			Amount:      parseAmount(field(row, "amount", "0")),
		}
		st.Rows = append(st.Rows, r)
		st.CategoryTotals[r.Category] += r.Amount
	}
	return st, nil
}

func field(row map[string]string, key, fallback string) string {
	if v, ok := row[key]; ok {
		return v
	}
	return fallback
}
