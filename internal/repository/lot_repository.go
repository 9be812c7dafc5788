package repository // repository holds data access logic for domain entities

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/parking-spot-reservation/internal/database"
)

// Lot represents a parking facility with a fixed set of numbered spots.
// Capacity is the declared spot count; the actual spot rows are managed by
// SpotRepo and may carry non-contiguous numbers after a shrink.
type Lot struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	PinCode      string    `json:"pin_code"`
	PricePerHour float64   `json:"price_per_hour"`
	Capacity     uint32    `json:"capacity"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LotAvailability is the public listing view of a lot: the lot row plus a
// live count of available spots, computed with a join rather than a cached
// counter so it can never drift from spot state.
type LotAvailability struct {
	Lot
	AvailableSpots uint32 `json:"available_spots"`
}

// LotRepo provides methods to create and retrieve lots.
type LotRepo struct {
	db *sql.DB
}

// NewLotRepo constructs a LotRepo with the given DB handle.
func NewLotRepo(db *sql.DB) *LotRepo {
	return &LotRepo{db: db}
}

// DB exposes the underlying handle so handlers can open transactions that
// span lots, spots and bookings.
func (r *LotRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a new lot within an existing transaction and populates
// the generated ID and timestamps. A unique-key violation on the name is
// reported as ErrDuplicateLotName. Spot fan-out is the caller's job so that
// lot and spots commit as one unit.
func (r *LotRepo) CreateTx(ctx context.Context, tx *sql.Tx, l *Lot) error {
	const qInsert = `INSERT INTO parking_lots (name, address, pin_code, price_per_hour, capacity)
	                 VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, qInsert, l.Name, l.Address, l.PinCode, l.PricePerHour, l.Capacity)
	if err != nil {
		if database.IsDuplicateEntry(err) {
			return ErrDuplicateLotName
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)

	const qSelect = `SELECT created_at, updated_at FROM parking_lots WHERE id = ?`
	return tx.QueryRowContext(ctx, qSelect, l.ID).Scan(&l.CreatedAt, &l.UpdatedAt)
}

// GetByID retrieves a lot by its ID. It returns ErrLotNotFound when no row
// is found.
func (r *LotRepo) GetByID(ctx context.Context, id uint64) (*Lot, error) {
	return scanLot(r.db.QueryRowContext(ctx, lotSelect+` WHERE id = ?`, id))
}

// GetByIDTx is GetByID inside a transaction with a row lock. Resize and
// delete take this lock first so two admin edits of the same lot serialize.
func (r *LotRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*Lot, error) {
	return scanLot(tx.QueryRowContext(ctx, lotSelect+` WHERE id = ? FOR UPDATE`, id))
}

const lotSelect = `SELECT id, name, address, pin_code, price_per_hour, capacity, created_at, updated_at
                   FROM parking_lots`

func scanLot(row *sql.Row) (*Lot, error) {
	var l Lot
	err := row.Scan(&l.ID, &l.Name, &l.Address, &l.PinCode, &l.PricePerHour, &l.Capacity, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLotNotFound
		}
		return nil, err
	}
	return &l, nil
}

// ListWithAvailability returns all lots ordered by name together with their
// current available-spot counts.
func (r *LotRepo) ListWithAvailability(ctx context.Context) ([]LotAvailability, error) {
	const q = `SELECT l.id, l.name, l.address, l.pin_code, l.price_per_hour, l.capacity,
	                  l.created_at, l.updated_at,
	                  COALESCE(SUM(CASE WHEN s.status = 'AVAILABLE' THEN 1 ELSE 0 END), 0)
	           FROM parking_lots l
	           LEFT JOIN parking_spots s ON s.lot_id = l.id
	           GROUP BY l.id
	           ORDER BY l.name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LotAvailability, 0)
	for rows.Next() {
		var la LotAvailability
		if err := rows.Scan(&la.ID, &la.Name, &la.Address, &la.PinCode, &la.PricePerHour,
			&la.Capacity, &la.CreatedAt, &la.UpdatedAt, &la.AvailableSpots); err != nil {
			return nil, err
		}
		out = append(out, la)
	}
	return out, rows.Err()
}

// UpdateTx persists lot attribute changes (name, address, pin code, price,
// capacity) within a transaction. A name collision with another lot is
// reported as ErrDuplicateLotName.
func (r *LotRepo) UpdateTx(ctx context.Context, tx *sql.Tx, l *Lot) error {
	const q = `UPDATE parking_lots
	           SET name = ?, address = ?, pin_code = ?, price_per_hour = ?, capacity = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, l.Name, l.Address, l.PinCode, l.PricePerHour, l.Capacity, l.ID)
	if err != nil {
		if database.IsDuplicateEntry(err) {
			return ErrDuplicateLotName
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// zero rows can also mean a no-change update; confirm existence
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM parking_lots WHERE id = ?`, l.ID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrLotNotFound
			}
			return err
		}
	}
	return nil
}

// DeleteTx removes the lot row itself. Bookings and spots must already have
// been removed by the caller inside the same transaction.
func (r *LotRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM parking_lots WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLotNotFound
	}
	return nil
}
