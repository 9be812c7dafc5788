package service

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/iliyamo/parking-spot-reservation/internal/repository"
)

// exportHeader is the column layout of the booking history CSV.
var exportHeader = []string{
	"booking_id", "lot_name", "lot_address", "spot_number",
	"start_time", "end_time", "cost", "status",
}

// BuildHistoryCSV renders a user's bookings as CSV. Open bookings carry an
// ACTIVE status with empty end_time and cost. Times are UTC RFC 3339.
func BuildHistoryCSV(details []repository.BookingDetail) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, d := range details {
		end, cost, status := "", "", "ACTIVE"
		if d.EndTime != nil {
			end = d.EndTime.UTC().Format(time.RFC3339)
			status = "CLOSED"
		}
		if d.Cost != nil {
			cost = strconv.FormatFloat(*d.Cost, 'f', 2, 64)
		}
		row := []string{
			strconv.FormatUint(d.ID, 10),
			d.LotName,
			d.LotAddress,
			strconv.FormatUint(uint64(d.SpotNumber), 10),
			d.StartTime.UTC().Format(time.RFC3339),
			end,
			cost,
			status,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportFilename names the CSV attachment after the job so users can match
// it to the request that produced it.
func ExportFilename(jobID string, at time.Time) string {
	return fmt.Sprintf("bookings_%s_%s.csv", at.UTC().Format("2006-01-02"), jobID)
}
