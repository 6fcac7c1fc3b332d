package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/db"
)

type paymentRepoPG struct{ pool *pgxpool.Pool }

func NewPaymentRepoPG(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepoPG{pool: pool}
}

const paymentCols = `id, user_id, purpose, appointment_id, license_id, amount, currency, status,
	provider, transaction_ref, card_last4, paid_at, created_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.UserID, &p.Purpose, &p.AppointmentID, &p.LicenseID, &p.Amount, &p.Currency, &p.Status,
		&p.Provider, &p.TransactionRef, &p.CardLast4, &p.PaidAt, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	return &p, err
}

func (r *paymentRepoPG) Create(ctx context.Context, p *Payment) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO payments (user_id, purpose, appointment_id, license_id, amount, currency, status, provider, card_last4)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		p.UserID, p.Purpose, p.AppointmentID, p.LicenseID, p.Amount, p.Currency, p.Status, p.Provider, p.CardLast4,
	).Scan(&p.ID, &p.CreatedAt)
}

func (r *paymentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return scanPayment(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+paymentCols+` FROM payments WHERE id = $1`, id))
}

func (r *paymentRepoPG) Complete(ctx context.Context, id uuid.UUID, ref, last4 string, paidAt time.Time) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE payments SET status = 'COMPLETED', transaction_ref = $2, card_last4 = $3, paid_at = $4
		WHERE id = $1 AND status = 'PENDING'`, id, ref, last4, paidAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidPaymentStatus
	}
	return nil
}

func (r *paymentRepoPG) SetStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE payments SET status = $3 WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidPaymentStatus
	}
	return nil
}

func (r *paymentRepoPG) AttachLicense(ctx context.Context, id, licenseID uuid.UUID) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE payments SET license_id = $2 WHERE id = $1`, id, licenseID)
	return err
}

func (r *paymentRepoPG) List(ctx context.Context, f PaymentFilter, limit, offset int) ([]*Payment, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.UserID != nil {
		where += fmt.Sprintf(` AND user_id = $%d`, idx)
		args = append(args, *f.UserID)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.Purpose != "" {
		where += fmt.Sprintf(` AND purpose = $%d`, idx)
		args = append(args, f.Purpose)
		idx++
	}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM payments`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + paymentCols + ` FROM payments` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
