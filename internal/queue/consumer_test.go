package queue

import (
	"strings"
	"testing"
	"time"
)

func TestFormatClosedLine(t *testing.T) {
	start := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	ev := BookingClosedEvent{
		BookingID:  11,
		UserID:     3,
		LotName:    "Harbor",
		SpotNumber: 5,
		StartTime:  start,
		EndTime:    start.Add(90 * time.Minute),
		Cost:       30,
		ClosedAt:   start.Add(90 * time.Minute),
	}

	line := formatClosedLine(ev)
	if !strings.HasSuffix(line, "\n") {
		t.Error("line must end with newline")
	}
	for _, part := range []string{
		"booking_id=11", "user_id=3", `lot="Harbor"`, "spot=5", "cost=30.00",
		"start=2026-04-02T09:00:00Z", "end=2026-04-02T10:30:00Z",
	} {
		if !strings.Contains(line, part) {
			t.Errorf("line %q missing %q", line, part)
		}
	}
}
