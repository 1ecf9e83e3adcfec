package billing

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/noah-isme/backend-yard/internal/common"
)

// WriteCSV renders a report as a CSV statement: one row per charge line
// followed by a totals row.
func WriteCSV(w io.Writer, report Report) error {
	cw := csv.NewWriter(w)
	header := []string{
		"container_id", "client_id", "size_class", "date_in", "date_out",
		"storage_days", "billable_days", "storage_charge",
		"handling_count", "handling_charge", "total",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, line := range report.Lines {
		dateOut := ""
		if line.DateOut != nil {
			dateOut = line.DateOut.UTC().Format(common.DateLayout)
		}
		record := []string{
			line.ContainerID,
			line.ClientID.String(),
			line.SizeClass,
			line.DateIn.UTC().Format(common.DateLayout),
			dateOut,
			strconv.Itoa(line.StorageDays),
			strconv.Itoa(line.BillableDays),
			line.StorageCharge.StringFixed(2),
			strconv.Itoa(line.HandlingCount),
			line.HandlingCharge.StringFixed(2),
			line.Total.StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	totals := []string{
		"TOTAL", "", "", "", "", "", "",
		report.Summary.TotalStorageCharge.StringFixed(2),
		"",
		report.Summary.TotalHandlingCharge.StringFixed(2),
		report.Summary.TotalCharge.StringFixed(2),
	}
	if err := cw.Write(totals); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
