package service

import (
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/parking-spot-reservation/internal/repository"
)

func TestMonthlyReportEmail(t *testing.T) {
	a := repository.UserActivity{
		Username: "dana",
		Email:    "dana@example.com",
		Bookings: 4,
		Spent:    87.5,
	}
	month := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	subject, body := MonthlyReportEmail(a, month)
	if !strings.Contains(subject, "July 2026") {
		t.Errorf("subject missing month: %q", subject)
	}
	if !strings.Contains(body, "dana") {
		t.Errorf("body missing username: %q", body)
	}
	if !strings.Contains(body, "Completed bookings: 4") {
		t.Errorf("body missing booking count: %q", body)
	}
	if !strings.Contains(body, "Total spent: 87.50") {
		t.Errorf("body missing spend: %q", body)
	}
}
