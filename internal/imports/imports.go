package imports

import (
	"fmt"
	"strconv"
	"strings"
)

// Row is one parsed statement line.
type Row struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
}

// Statement is a parsed bank statement: the rows in file order plus
// per-category amount totals.
type Statement struct {
	Rows           []Row              `json:"transactions"`
	CategoryTotals map[string]float64 `json:"category_totals"`
}

// CheckSize rejects uploads larger than maxMB megabytes.
func CheckSize(size int64, maxMB int) error {
	if size > int64(maxMB)<<20 {
		return fmt.Errorf("file size exceeds %dMB limit", maxMB)
	}
	return nil
}

// parseAmount reads a statement amount, tolerating the taka currency sign
// and thousands separators. Unparseable amounts become 0.
func parseAmount(s string) float64 {
	clean := strings.ReplaceAll(s, "৳", "")
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.TrimSpace(clean)
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0
	}
	return v
}
