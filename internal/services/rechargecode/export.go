package rechargecode

import (
	"encoding/csv"
	"fmt"
	"io"

	"coursepay/internal/models"
)

// ExportTimeLayout is the timestamp format used in exports.
const ExportTimeLayout = "2006-01-02 15:04:05"

var csvHeader = []string{"Code", "Amount", "Expires At", "Created At"}

// ExportCSV writes codes as CSV with a header row. Codes without an expiry
// get an empty Expires At column.
func ExportCSV(w io.Writer, codes []models.RechargeCode) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, c := range codes {
		expires := ""
		if c.ExpiresAt != nil {
			expires = c.ExpiresAt.UTC().Format(ExportTimeLayout)
		}
		record := []string{
			c.Code,
			c.Amount.StringFixed(2),
			expires,
			c.CreatedAt.UTC().Format(ExportTimeLayout),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write code %s: %w", c.Code, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
