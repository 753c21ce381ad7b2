package imports

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// statementLine matches "date description amount" rows as they appear in
// exported account statements: an ISO or dd/mm/yyyy date, free text, and a
// trailing amount that may carry a sign, the taka symbol, and separators.
var statementLine = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}|\d{2}[-/]\d{2}[-/]\d{4})\s+(.+?)\s+(-?৳?[\d,]+(?:\.\d+)?)$`)

// ParsePDF extracts text rows from a PDF statement and keeps the lines that
// look like transactions. Extraction is best effort: pages that cannot be
// read are skipped, and rows that don't match the statement shape are
// ignored. PDF statements carry no category column, so every row lands in
// Uncategorized.
func ParsePDF(content []byte) (Statement, error) {
	lines, err := extractLines(content)
	if err != nil {
		return Statement{}, err
	}
	return parseStatementLines(lines), nil
}

// extractLines reads the PDF row by row so the date-description-amount
// layout survives extraction. The pdf library panics on some malformed
// files.
func extractLines(content []byte) (lines []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("reading pdf: %w", err)
	}

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			var sb strings.Builder
			for _, word := range row.Content {
				if sb.Len() > 0 {
					sb.WriteString(" ")
				}
				sb.WriteString(word.S)
			}
			lines = append(lines, sb.String())
		}
	}
	return lines, nil
}

func parseStatementLines(lines []string) Statement {
	st := Statement{CategoryTotals: map[string]float64{}}
	for _, line := range lines {
		row, ok := parseStatementLine(line)
		if !ok {
			continue
		}
		st.Rows = append(st.Rows, row)
		st.CategoryTotals[row.Category] += row.Amount
	}
	return st
}

func parseStatementLine(line string) (Row, bool) {
	m := statementLine.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Row{}, false
	}
	return Row{
		Date:        m[1],
		Description: m[2],
		Category:    "Uncategorized",
		Amount:      parseAmount(m[3]),
	}, true
}
