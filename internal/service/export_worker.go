package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	q "github.com/iliyamo/parking-spot-reservation/internal/queue"
	"github.com/iliyamo/parking-spot-reservation/internal/repository"
)

// StartExportWorker consumes export.requested jobs: for each one it reads
// the user's full booking history, renders it to CSV and emails it as an
// attachment. Like the audit consumer it reconnects forever and rejects
// broken messages without requeue. Jobs that fail on the database or mail
// side are requeued once by the broker.
func StartExportWorker(bookings *repository.BookingRepo) error {
	url := q.BrokerURL()
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("export-worker: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeExports(conn, bookings); err != nil {
			log.Printf("export-worker: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeExports(conn *amqp.Connection, bookings *repository.BookingRepo) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(5, 0, false); err != nil {
		log.Printf("export-worker: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(q.ExportRequestedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(q.ExportRequestedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		var ev q.ExportRequestedEvent
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			log.Printf("export-worker: bad message: %v", err)
			_ = d.Nack(false, false)
			continue
		}
		if err := runExportJob(bookings, ev); err != nil {
			log.Printf("export-worker: job %s failed: %v", ev.JobID, err)
			_ = d.Nack(false, !d.Redelivered)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// runExportJob builds and mails one CSV export.
func runExportJob(bookings *repository.BookingRepo, ev q.ExportRequestedEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	details, err := bookings.ListForUser(ctx, ev.UserID, nil)
	if err != nil {
		return fmt.Errorf("load bookings: %w", err)
	}
	data, err := BuildHistoryCSV(details)
	if err != nil {
		return fmt.Errorf("build csv: %w", err)
	}

	filename := ExportFilename(ev.JobID, time.Now())
	attachment := mail.NewAttachment()
	attachment.SetContent(base64.StdEncoding.EncodeToString(data))
	attachment.SetType("text/csv")
	attachment.SetFilename(filename)
	attachment.SetDisposition("attachment")

	subject := "Your booking history export"
	body := fmt.Sprintf(
		"Hello %s,\n\nAttached is the booking history export you requested (job %s). "+
			"It contains %d bookings.\n",
		ev.Username, ev.JobID, len(details))
	if err := SendEmail(ev.Email, ev.Username, subject, body, attachment); err != nil {
		return fmt.Errorf("send export email: %w", err)
	}
	log.Printf("export-worker: job %s sent to %s (%d rows)", ev.JobID, ev.Email, len(details))
	return nil
}
