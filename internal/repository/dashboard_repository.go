package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// LotSummary holds live occupancy counts for one lot.
type LotSummary struct {
	LotID          uint64 `json:"lot_id"`
	LotName        string `json:"lot_name"`
	TotalSpots     int    `json:"total_spots"`
	OccupiedSpots  int    `json:"occupied_spots"`
	AvailableSpots int    `json:"available_spots"`
}

// SystemSummary aggregates occupancy across all lots with a per-lot
// breakdown.
type SystemSummary struct {
	TotalLots      int          `json:"total_lots"`
	TotalSpots     int          `json:"total_spots"`
	OccupiedSpots  int          `json:"occupied_spots"`
	AvailableSpots int          `json:"available_spots"`
	Lots           []LotSummary `json:"lot_occupancy"`
}

// UserSummary is the personal dashboard rollup: booking count, lifetime
// spend and the most recent booking.
type UserSummary struct {
	TotalBookings int            `json:"total_bookings"`
	TotalSpent    float64        `json:"total_spent"`
	Recent        *BookingDetail `json:"recent_booking"`
}

// UserActivity is one row of the monthly report aggregation.
type UserActivity struct {
	UserID   uint64
	Username string
	Email    string
	Bookings int
	Spent    float64
}

// DashboardRepo issues the read-only aggregate queries behind the user and
// admin dashboards and the scheduled report jobs. Every rollup is computed
// from current spot/booking state with plain read queries; nothing here
// takes locks or maintains counters, so it can run concurrently with the
// booking path without starving it.
type DashboardRepo struct {
	db *sql.DB
}

// NewDashboardRepo constructs a DashboardRepo with the given DB handle.
func NewDashboardRepo(db *sql.DB) *DashboardRepo {
	return &DashboardRepo{db: db}
}

// LotSummary returns occupancy counts for a single lot, or ErrLotNotFound.
func (r *DashboardRepo) LotSummary(ctx context.Context, lotID uint64) (*LotSummary, error) {
	const q = `SELECT l.id, l.name,
	                  COUNT(s.id),
	                  COALESCE(SUM(CASE WHEN s.status = 'OCCUPIED' THEN 1 ELSE 0 END), 0)
	           FROM parking_lots l
	           LEFT JOIN parking_spots s ON s.lot_id = l.id
	           WHERE l.id = ?
	           GROUP BY l.id`
	var ls LotSummary
	err := r.db.QueryRowContext(ctx, q, lotID).Scan(&ls.LotID, &ls.LotName, &ls.TotalSpots, &ls.OccupiedSpots)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLotNotFound
		}
		return nil, err
	}
	ls.AvailableSpots = ls.TotalSpots - ls.OccupiedSpots
	return &ls, nil
}

// SystemSummary returns totals across all lots plus the per-lot breakdown.
func (r *DashboardRepo) SystemSummary(ctx context.Context) (*SystemSummary, error) {
	const q = `SELECT l.id, l.name,
	                  COUNT(s.id),
	                  COALESCE(SUM(CASE WHEN s.status = 'OCCUPIED' THEN 1 ELSE 0 END), 0)
	           FROM parking_lots l
	           LEFT JOIN parking_spots s ON s.lot_id = l.id
	           GROUP BY l.id
	           ORDER BY l.name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sum := &SystemSummary{Lots: make([]LotSummary, 0)}
	for rows.Next() {
		var ls LotSummary
		if err := rows.Scan(&ls.LotID, &ls.LotName, &ls.TotalSpots, &ls.OccupiedSpots); err != nil {
			return nil, err
		}
		ls.AvailableSpots = ls.TotalSpots - ls.OccupiedSpots
		sum.TotalLots++
		sum.TotalSpots += ls.TotalSpots
		sum.OccupiedSpots += ls.OccupiedSpots
		sum.Lots = append(sum.Lots, ls)
	}
	sum.AvailableSpots = sum.TotalSpots - sum.OccupiedSpots
	return sum, rows.Err()
}

// UserSummary returns the personal dashboard rollup for one user. NULL
// costs (open bookings) count as zero spend. Recent is nil for users who
// never booked.
func (r *DashboardRepo) UserSummary(ctx context.Context, userID uint64) (*UserSummary, error) {
	const q = `SELECT COUNT(id), COALESCE(SUM(cost), 0) FROM bookings WHERE user_id = ?`
	var us UserSummary
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(&us.TotalBookings, &us.TotalSpent); err != nil {
		return nil, err
	}
	if us.TotalBookings == 0 {
		return &us, nil
	}
	const recentQ = detailSelect + ` WHERE b.user_id = ? ORDER BY b.start_time DESC LIMIT 1`
	row := r.db.QueryRowContext(ctx, recentQ, userID)
	d, err := scanDetail(row.Scan)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	us.Recent = d
	return &us, nil
}

// MonthlyActivity aggregates per-user booking counts and spend for
// bookings closed inside [from, to). Users without activity are omitted;
// the report job skips them anyway.
func (r *DashboardRepo) MonthlyActivity(ctx context.Context, from, to time.Time) ([]UserActivity, error) {
	const q = `SELECT u.id, u.username, u.email, COUNT(b.id), COALESCE(SUM(b.cost), 0)
	           FROM users u
	           JOIN bookings b ON b.user_id = u.id
	           WHERE u.role = 'USER' AND b.end_time >= ? AND b.end_time < ?
	           GROUP BY u.id
	           ORDER BY u.id`
	rows, err := r.db.QueryContext(ctx, q, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserActivity
	for rows.Next() {
		var a UserActivity
		if err := rows.Scan(&a.UserID, &a.Username, &a.Email, &a.Bookings, &a.Spent); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// InactiveUsers returns users whose latest booking started before cutoff,
// including users who never booked at all. The daily reminder job emails
// them.
func (r *DashboardRepo) InactiveUsers(ctx context.Context, cutoff time.Time) ([]UserActivity, error) {
	const q = `SELECT u.id, u.username, u.email
	           FROM users u
	           LEFT JOIN bookings b ON b.user_id = u.id
	           WHERE u.role = 'USER'
	           GROUP BY u.id
	           HAVING COALESCE(MAX(b.start_time), '1970-01-01') < ?
	           ORDER BY u.id`
	rows, err := r.db.QueryContext(ctx, q, cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserActivity
	for rows.Next() {
		var a UserActivity
		if err := rows.Scan(&a.UserID, &a.Username, &a.Email); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
