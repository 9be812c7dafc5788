package service

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/parking-spot-reservation/internal/repository"
)

func TestBuildHistoryCSV(t *testing.T) {
	start := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	cost := 40.0
	details := []repository.BookingDetail{
		{
			ID: 7, LotName: "Central", LotAddress: "1 Main St", SpotNumber: 3,
			StartTime: start, EndTime: &end, Cost: &cost,
		},
		{
			ID: 8, LotName: "Central", LotAddress: "1 Main St", SpotNumber: 4,
			StartTime: end,
		},
	}

	data, err := BuildHistoryCSV(details)
	if err != nil {
		t.Fatalf("BuildHistoryCSV: %v", err)
	}

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "booking_id" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	closed := rows[1]
	if closed[0] != "7" || closed[6] != "40.00" || closed[7] != "CLOSED" {
		t.Errorf("unexpected closed row: %v", closed)
	}
	active := rows[2]
	if active[0] != "8" || active[5] != "" || active[6] != "" || active[7] != "ACTIVE" {
		t.Errorf("unexpected active row: %v", active)
	}
}

func TestBuildHistoryCSVEmpty(t *testing.T) {
	data, err := BuildHistoryCSV(nil)
	if err != nil {
		t.Fatalf("BuildHistoryCSV: %v", err)
	}
	if !strings.HasPrefix(string(data), "booking_id,") {
		t.Errorf("expected header only, got %q", string(data))
	}
}

func TestExportFilename(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	got := ExportFilename("abc123", at)
	if got != "bookings_2026-05-01_abc123.csv" {
		t.Errorf("unexpected filename %q", got)
	}
}
