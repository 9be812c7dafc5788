package repository // repository defines data access for parking spots

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Spot status values. Status is denormalized from "has an open booking" for
// fast filtering; every mutation flips it in the same transaction as the
// booking row so the two can never drift.
const (
	SpotAvailable = "AVAILABLE"
	SpotOccupied  = "OCCUPIED"
)

// Spot represents one allocatable unit of parking inventory within a lot.
// SpotNumber is unique per lot but not necessarily contiguous after a
// capacity shrink.
type Spot struct {
	ID         uint64    `json:"id"`
	LotID      uint64    `json:"lot_id"`
	SpotNumber uint32    `json:"spot_number"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SpotStatusView is the admin monitoring view of one spot: the spot row plus
// its lot name and, when occupied, the occupant and the open booking.
type SpotStatusView struct {
	ID          uint64  `json:"id"`
	LotID       uint64  `json:"lot_id"`
	LotName     string  `json:"lot_name"`
	SpotNumber  uint32  `json:"spot_number"`
	Status      string  `json:"status"`
	BookingID   *uint64 `json:"booking_id,omitempty"`
	OccupantID  *uint64 `json:"occupant_id,omitempty"`
	Occupant    *string `json:"occupant_username,omitempty"`
	ParkedSince *string `json:"parked_since,omitempty"`
}

// SpotRepo encapsulates database operations for parking_spots.
type SpotRepo struct {
	db *sql.DB
}

// NewSpotRepo constructs a SpotRepo given a DB handle.
func NewSpotRepo(db *sql.DB) *SpotRepo {
	return &SpotRepo{db: db}
}

// CreateBulkTx inserts one AVAILABLE spot row per number in a single
// statement inside the given transaction. Passing no numbers is a no-op.
func (r *SpotRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, lotID uint64, numbers []uint32) error {
	if len(numbers) == 0 {
		return nil
	}
	query := `INSERT INTO parking_spots (lot_id, spot_number, status) VALUES `
	args := make([]interface{}, 0, len(numbers)*3)
	for i, n := range numbers {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, lotID, n, SpotAvailable)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// FirstAvailableForUpdateTx selects and row-locks the lowest-numbered
// available spot in a lot. The lock is what makes concurrent book calls for
// the same lot pick distinct spots: the second caller blocks on the locked
// row and re-evaluates after the first commits. Returns ErrLotFull when the
// lot has no available spot.
func (r *SpotRepo) FirstAvailableForUpdateTx(ctx context.Context, tx *sql.Tx, lotID uint64) (*Spot, error) {
	const q = `SELECT id, lot_id, spot_number, status, created_at, updated_at
	           FROM parking_spots
	           WHERE lot_id = ? AND status = 'AVAILABLE'
	           ORDER BY spot_number
	           LIMIT 1
	           FOR UPDATE`
	var s Spot
	err := tx.QueryRowContext(ctx, q, lotID).
		Scan(&s.ID, &s.LotID, &s.SpotNumber, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLotFull
		}
		return nil, err
	}
	return &s, nil
}

// SetStatusTx flips a spot's status within a transaction.
func (r *SpotRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, spotID uint64, status string) error {
	const q = `UPDATE parking_spots SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, status, spotID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSpotNotFound
	}
	return nil
}

// CountAndMaxNumberTx returns the spot count and highest spot number of a
// lot. Grow numbering continues from the max rather than the count so that
// numbers stay unique when earlier shrinks left gaps.
func (r *SpotRepo) CountAndMaxNumberTx(ctx context.Context, tx *sql.Tx, lotID uint64) (count int, maxNumber uint32, err error) {
	const q = `SELECT COUNT(*), COALESCE(MAX(spot_number), 0) FROM parking_spots WHERE lot_id = ?`
	err = tx.QueryRowContext(ctx, q, lotID).Scan(&count, &maxNumber)
	return count, maxNumber, err
}

// RemovableForUpdateTx selects and locks up to limit spots that a shrink may
// delete: available and free of booking history, highest numbers first so
// the low, "stable" numbers survive. Occupied spots and spots with history
// are never candidates.
func (r *SpotRepo) RemovableForUpdateTx(ctx context.Context, tx *sql.Tx, lotID uint64, limit int) ([]Spot, error) {
	const q = `SELECT s.id, s.lot_id, s.spot_number, s.status, s.created_at, s.updated_at
	           FROM parking_spots s
	           WHERE s.lot_id = ? AND s.status = 'AVAILABLE'
	             AND NOT EXISTS (SELECT 1 FROM bookings b WHERE b.spot_id = s.id)
	           ORDER BY s.spot_number DESC
	           LIMIT ?
	           FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, lotID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Spot
	for rows.Next() {
		var s Spot
		if err := rows.Scan(&s.ID, &s.LotID, &s.SpotNumber, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteByIDsTx removes the given spot rows. Callers are responsible for
// having verified the removal policy first.
func (r *SpotRepo) DeleteByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `DELETE FROM parking_spots WHERE id IN (`
	args := make([]interface{}, 0, len(ids))
	for i, id := range ids {
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

// LockAllTx locks every spot of a lot and returns their IDs together with
// the number of occupied ones. Lot deletion takes these locks so a
// concurrent book cannot slip an occupation in between the check and the
// delete.
func (r *SpotRepo) LockAllTx(ctx context.Context, tx *sql.Tx, lotID uint64) (ids []uint64, occupied int, err error) {
	const q = `SELECT id, status FROM parking_spots WHERE lot_id = ? FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, lotID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id     uint64
			status string
		)
		if err := rows.Scan(&id, &status); err != nil {
			return nil, 0, err
		}
		ids = append(ids, id)
		if status == SpotOccupied {
			occupied++
		}
	}
	return ids, occupied, rows.Err()
}

// ListStatuses returns the admin monitoring view of all spots ordered by
// lot then spot number. Occupant details come from the open booking, if any.
func (r *SpotRepo) ListStatuses(ctx context.Context) ([]SpotStatusView, error) {
	const q = `SELECT s.id, s.lot_id, l.name, s.spot_number, s.status,
	                  b.id, b.user_id, u.username, b.start_time
	           FROM parking_spots s
	           JOIN parking_lots l ON l.id = s.lot_id
	           LEFT JOIN bookings b ON b.spot_id = s.id AND b.end_time IS NULL
	           LEFT JOIN users u ON u.id = b.user_id
	           ORDER BY s.lot_id, s.spot_number`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SpotStatusView, 0)
	for rows.Next() {
		var (
			v         SpotStatusView
			bookingID sql.NullInt64
			userID    sql.NullInt64
			username  sql.NullString
			since     sql.NullTime
		)
		if err := rows.Scan(&v.ID, &v.LotID, &v.LotName, &v.SpotNumber, &v.Status,
			&bookingID, &userID, &username, &since); err != nil {
			return nil, err
		}
		if bookingID.Valid {
			id := uint64(bookingID.Int64)
			v.BookingID = &id
		}
		if userID.Valid {
			id := uint64(userID.Int64)
			v.OccupantID = &id
		}
		if username.Valid {
			name := username.String
			v.Occupant = &name
		}
		if since.Valid {
			iso := since.Time.UTC().Format(time.RFC3339)
			v.ParkedSince = &iso
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GrowNumbers returns count new spot numbers continuing after maxNumber.
// Used by lot creation (maxNumber 0) and capacity grow.
func GrowNumbers(maxNumber uint32, count int) []uint32 {
	if count <= 0 {
		return nil
	}
	out := make([]uint32, 0, count)
	for i := 1; i <= count; i++ {
		out = append(out, maxNumber+uint32(i))
	}
	return out
}
