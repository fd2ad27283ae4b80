package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/billiard-reservation/internal/database"
	"github.com/iliyamo/billiard-reservation/internal/model"
)

// ReservationRepo reads and writes the reservation table.  It implements
// checkin.Gateway.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, reservation_no, account_id, table_id,
       DATE_FORMAT(reservation_date, '%Y-%m-%d'), start_time, time_end, duration, billiard_type,
       paymentMethod, payment_type, total_bill, full_amount, half_amount, partial_amount,
       payment_status, reference_no, proof_of_payment, status, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(s rowScanner) (model.Reservation, error) {
	var (
		r         model.Reservation
		startTime sql.NullString
		timeEnd   sql.NullString
		ref       sql.NullString
		proof     sql.NullString
	)
	err := s.Scan(
		&r.ID, &r.ReservationNo, &r.AccountID, &r.TableID,
		&r.ReservationDate, &startTime, &timeEnd, &r.Duration, &r.BilliardType,
		&r.PaymentMethod, &r.PaymentType, &r.TotalBill, &r.FullAmount, &r.HalfAmount, &r.PartialAmount,
		&r.PaymentStatus, &ref, &proof, &r.Status, &r.CreatedAt,
	)
	if err != nil {
		return model.Reservation{}, err
	}
	r.StartTime = clockString(startTime)
	r.TimeEnd = clockString(timeEnd)
	if ref.Valid {
		v := ref.String
		r.ReferenceNo = &v
	}
	if proof.Valid && proof.String != "" {
		v := proof.String
		r.ProofOfPayment = &v
	}
	return r, nil
}

// clockString trims MySQL TIME values (HH:MM:SS) to HH:MM.
func clockString(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	s := strings.TrimSpace(v.String)
	if len(s) == len("15:04:05") && s[2] == ':' && s[5] == ':' {
		return s[:5]
	}
	return s
}

func (r *ReservationRepo) query(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FindEligibleReservations returns every pending or approved reservation,
// newest first.
func (r *ReservationRepo) FindEligibleReservations(ctx context.Context) ([]model.Reservation, error) {
	statuses := model.EligibleStatuses()
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	q := `SELECT ` + reservationColumns + `
	      FROM reservation
	      WHERE status IN (` + placeholders + `)
	      ORDER BY created_at DESC, id DESC`
	args := make([]any, len(statuses))
	for i, s := range statuses {
		args[i] = s
	}
	return r.query(ctx, q, args...)
}

// CommitCheckIn writes a check-in patch by primary key.  Reservations that
// left the eligible set since they were loaded are not touched and
// sql.ErrNoRows is returned.
func (r *ReservationRepo) CommitCheckIn(ctx context.Context, id uint64, patch model.CheckInPatch) error {
	sets := []string{"status = ?"}
	args := []any{patch.Status}
	if patch.PaymentStatus != nil {
		sets = append(sets, "payment_status = ?")
		args = append(args, *patch.PaymentStatus)
	}
	if patch.ReferenceNo != nil {
		sets = append(sets, "reference_no = ?")
		args = append(args, *patch.ReferenceNo)
	}
	q := fmt.Sprintf("UPDATE reservation SET %s WHERE id = ? AND status IN (?, ?)", strings.Join(sets, ", "))
	args = append(args, id, model.StatusPending, model.StatusApproved)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetByID returns one reservation.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservation WHERE id = ?`, id)
	return scanReservation(row)
}

// GetForAccount returns a reservation only when it belongs to accountID;
// otherwise ErrForbidden.
func (r *ReservationRepo) GetForAccount(ctx context.Context, id, accountID uint64) (model.Reservation, error) {
	res, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}
	if res.AccountID != accountID {
		return model.Reservation{}, ErrForbidden
	}
	return res, nil
}

// ListByAccount returns the reservations submitted by one account, newest
// first.  Proofs of payment are omitted.
func (r *ReservationRepo) ListByAccount(ctx context.Context, accountID uint64) ([]model.Reservation, error) {
	out, err := r.query(ctx, `SELECT `+reservationColumns+`
	      FROM reservation
	      WHERE account_id = ?
	      ORDER BY created_at DESC, id DESC`, accountID)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].ProofOfPayment = nil
	}
	return out, nil
}

// CreateBatch inserts all rows in one transaction and fills in their IDs.
// Either every row is stored or none is.  A duplicated reservation number
// yields ErrConflict.
func (r *ReservationRepo) CreateBatch(ctx context.Context, rows []*model.Reservation) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, res := range rows {
		if err := r.createTx(ctx, tx, res); err != nil {
			if database.IsDuplicateKey(err) {
				return ErrConflict
			}
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (r *ReservationRepo) createTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservation
	      (reservation_no, account_id, table_id, reservation_date, start_time, time_end, duration,
	       billiard_type, paymentMethod, payment_type, total_bill, full_amount, half_amount,
	       partial_amount, payment_status, reference_no, proof_of_payment, status)
	      VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		res.ReservationNo, res.AccountID, res.TableID, res.ReservationDate, res.StartTime, res.TimeEnd, res.Duration,
		res.BilliardType, res.PaymentMethod, res.PaymentType, res.TotalBill, res.FullAmount, res.HalfAmount,
		res.PartialAmount, res.PaymentStatus, res.ReferenceNo, res.ProofOfPayment, res.Status,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}
