package repository

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"
)

// Booking is a time-bounded occupancy record linking a user to a spot.
// EndTime nil means the booking is open and the user is currently parked.
// A closed booking is never mutated again.
type Booking struct {
	ID        uint64     `json:"id"`
	UserID    uint64     `json:"user_id"`
	SpotID    uint64     `json:"spot_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Cost      *float64   `json:"cost"`
}

// BookingDetail is a booking joined with its spot and lot for display:
// active-booking cards, history listings and export rows all use it.
type BookingDetail struct {
	ID         uint64     `json:"id"`
	UserID     uint64     `json:"user_id"`
	SpotID     uint64     `json:"spot_id"`
	LotID      uint64     `json:"lot_id"`
	LotName    string     `json:"lot_name"`
	LotAddress string     `json:"lot_address"`
	SpotNumber uint32     `json:"spot_number"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time"`
	Cost       *float64   `json:"cost"`
}

// BookingRepo provides CRUD operations for bookings. Open/close are split
// into Tx variants because they always travel with a spot status flip.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CostForDuration computes the price of a stay. Partial hours always round
// up to the next whole hour, never down and never pro-rated.
func CostForDuration(start, end time.Time, pricePerHour float64) float64 {
	secs := end.Sub(start).Seconds()
	if secs < 0 {
		secs = 0
	}
	return math.Ceil(secs/3600) * pricePerHour
}

// ActiveForUpdateTx returns the user's open booking with a row lock, or
// ErrNoActiveBooking. Book calls it to enforce one-active-booking-per-user
// inside the same transaction as the insert: with an index on user_id the
// lock covers the gap as well, so two concurrent books by one user
// serialize even when no row exists yet.
func (r *BookingRepo) ActiveForUpdateTx(ctx context.Context, tx *sql.Tx, userID uint64) (*Booking, error) {
	const q = `SELECT id, user_id, spot_id, start_time, end_time, cost
	           FROM bookings
	           WHERE user_id = ? AND end_time IS NULL
	           LIMIT 1
	           FOR UPDATE`
	var (
		b    Booking
		end  sql.NullTime
		cost sql.NullFloat64
	)
	err := tx.QueryRowContext(ctx, q, userID).Scan(&b.ID, &b.UserID, &b.SpotID, &b.StartTime, &end, &cost)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveBooking
		}
		return nil, err
	}
	if end.Valid {
		t := end.Time
		b.EndTime = &t
	}
	if cost.Valid {
		c := cost.Float64
		b.Cost = &c
	}
	return &b, nil
}

// CreateTx inserts a new open booking and populates its generated ID.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, userID, spotID uint64, start time.Time) (*Booking, error) {
	const q = `INSERT INTO bookings (user_id, spot_id, start_time) VALUES (?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, userID, spotID, start.UTC())
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Booking{ID: uint64(id), UserID: userID, SpotID: spotID, StartTime: start.UTC()}, nil
}

// CloseTx records end time and cost on an open booking. The booking is the
// only row a release ever closes, and it is closed exactly once: the
// end_time IS NULL guard turns a double close into zero affected rows.
func (r *BookingRepo) CloseTx(ctx context.Context, tx *sql.Tx, bookingID uint64, end time.Time, cost float64) error {
	const q = `UPDATE bookings SET end_time = ?, cost = ? WHERE id = ? AND end_time IS NULL`
	res, err := tx.ExecContext(ctx, q, end.UTC(), cost, bookingID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoActiveBooking
	}
	return nil
}

const detailSelect = `SELECT b.id, b.user_id, b.spot_id, l.id, l.name, l.address, s.spot_number,
                             b.start_time, b.end_time, b.cost
                      FROM bookings b
                      JOIN parking_spots s ON s.id = b.spot_id
                      JOIN parking_lots l ON l.id = s.lot_id`

func scanDetail(scan func(dest ...interface{}) error) (*BookingDetail, error) {
	var (
		d    BookingDetail
		end  sql.NullTime
		cost sql.NullFloat64
	)
	if err := scan(&d.ID, &d.UserID, &d.SpotID, &d.LotID, &d.LotName, &d.LotAddress,
		&d.SpotNumber, &d.StartTime, &end, &cost); err != nil {
		return nil, err
	}
	if end.Valid {
		t := end.Time
		d.EndTime = &t
	}
	if cost.Valid {
		c := cost.Float64
		d.Cost = &c
	}
	return &d, nil
}

// ActiveDetailByUser returns the user's open booking joined with spot and
// lot, or ErrNoActiveBooking.
func (r *BookingRepo) ActiveDetailByUser(ctx context.Context, userID uint64) (*BookingDetail, error) {
	row := r.db.QueryRowContext(ctx, detailSelect+` WHERE b.user_id = ? AND b.end_time IS NULL LIMIT 1`, userID)
	d, err := scanDetail(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveBooking
		}
		return nil, err
	}
	return d, nil
}

// DetailByIDTx loads one booking's detail view inside a transaction.
// Release uses it to build the receipt from the same snapshot it closed.
func (r *BookingRepo) DetailByIDTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (*BookingDetail, error) {
	row := tx.QueryRowContext(ctx, detailSelect+` WHERE b.id = ?`, bookingID)
	return scanDetail(row.Scan)
}

// HistoryByUser returns the user's closed bookings, most recent first,
// with LIMIT/OFFSET pagination.
func (r *BookingRepo) HistoryByUser(ctx context.Context, userID uint64, limit, offset int) ([]BookingDetail, error) {
	const tail = ` WHERE b.user_id = ? AND b.end_time IS NOT NULL
	               ORDER BY b.end_time DESC
	               LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, detailSelect+tail, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDetails(rows)
}

// ListForUser returns all of a user's bookings (open and closed) newest
// first, optionally restricted to those started at or after since. This is
// the pull-style query the export and report jobs read from, outside the
// transactional path.
func (r *BookingRepo) ListForUser(ctx context.Context, userID uint64, since *time.Time) ([]BookingDetail, error) {
	q := detailSelect + ` WHERE b.user_id = ?`
	args := []interface{}{userID}
	if since != nil {
		q += ` AND b.start_time >= ?`
		args = append(args, since.UTC())
	}
	q += ` ORDER BY b.start_time DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDetails(rows)
}

func collectDetails(rows *sql.Rows) ([]BookingDetail, error) {
	out := make([]BookingDetail, 0)
	for rows.Next() {
		d, err := scanDetail(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// DeleteBySpotIDsTx bulk-removes all bookings referencing the given spots.
// Only lot deletion calls this, as history cleanup after the occupancy
// check has passed.
func (r *BookingRepo) DeleteBySpotIDsTx(ctx context.Context, tx *sql.Tx, spotIDs []uint64) error {
	if len(spotIDs) == 0 {
		return nil
	}
	query := `DELETE FROM bookings WHERE spot_id IN (`
	args := make([]interface{}, 0, len(spotIDs))
	for i, id := range spotIDs {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, id)
	}
	query += ")"
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}
