package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/iliyamo/parking-spot-reservation/internal/repository"
)

// Scheduler owns the recurring jobs: a monthly activity report emailed to
// each active user and a daily reminder to users who have not parked
// recently. Both read aggregates only; neither touches the booking path.
type Scheduler struct {
	dash         *repository.DashboardRepo
	reminderDays int
}

// NewScheduler builds a Scheduler over the dashboard aggregates.
// reminderDays is how long a user must be inactive before the reminder
// job emails them.
func NewScheduler(dash *repository.DashboardRepo, reminderDays int) *Scheduler {
	return &Scheduler{dash: dash, reminderDays: reminderDays}
}

// Start registers the jobs and launches the cron runner. Reports go out on
// the first of each month, reminders every morning. The returned cron can
// be stopped on shutdown.
func (s *Scheduler) Start() *cron.Cron {
	c := cron.New()
	if _, err := c.AddFunc("0 6 1 * *", s.runMonthlyReports); err != nil {
		log.Printf("scheduler: register monthly report failed: %v", err)
	}
	if _, err := c.AddFunc("0 9 * * *", s.runInactivityReminders); err != nil {
		log.Printf("scheduler: register reminders failed: %v", err)
	}
	c.Start()
	return c
}

// runMonthlyReports aggregates the previous calendar month and emails each
// user that had closed bookings in it.
func (s *Scheduler) runMonthlyReports() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prevStart := monthStart.AddDate(0, -1, 0)

	rows, err := s.dash.MonthlyActivity(ctx, prevStart, monthStart)
	if err != nil {
		log.Printf("scheduler: monthly activity query failed: %v", err)
		return
	}
	log.Printf("scheduler: monthly report for %s covers %d users", prevStart.Format("2006-01"), len(rows))

	for _, a := range rows {
		subject, body := MonthlyReportEmail(a, prevStart)
		if err := SendEmail(a.Email, a.Username, subject, body, nil); err != nil {
			log.Printf("scheduler: monthly report to %s failed: %v", a.Email, err)
		}
	}
}

// runInactivityReminders emails users whose last booking started before
// the configured cutoff, including users who never booked.
func (s *Scheduler) runInactivityReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().AddDate(0, 0, -s.reminderDays)
	rows, err := s.dash.InactiveUsers(ctx, cutoff)
	if err != nil {
		log.Printf("scheduler: inactive users query failed: %v", err)
		return
	}
	if len(rows) == 0 {
		return
	}
	log.Printf("scheduler: sending %d inactivity reminders", len(rows))

	subject := "We have a spot waiting for you"
	for _, a := range rows {
		body := fmt.Sprintf(
			"Hello %s,\n\nIt has been a while since you last parked with us. "+
				"Log in to see current availability and reserve a spot.\n",
			a.Username)
		if err := SendEmail(a.Email, a.Username, subject, body, nil); err != nil {
			log.Printf("scheduler: reminder to %s failed: %v", a.Email, err)
		}
	}
}

// MonthlyReportEmail renders the subject and plain-text body of one user's
// monthly activity report.
func MonthlyReportEmail(a repository.UserActivity, month time.Time) (subject, body string) {
	label := month.Format("January 2006")
	subject = fmt.Sprintf("Your parking summary for %s", label)

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", a.Username)
	fmt.Fprintf(&b, "Here is your parking activity for %s:\n\n", label)
	fmt.Fprintf(&b, "  Completed bookings: %d\n", a.Bookings)
	fmt.Fprintf(&b, "  Total spent: %.2f\n\n", a.Spent)
	b.WriteString("Thank you for parking with us.\n")
	return subject, b.String()
}
