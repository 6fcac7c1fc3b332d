package diagnostics

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/db"
)

type testResultRepoPG struct{ pool *pgxpool.Pool }

func NewTestResultRepoPG(pool *pgxpool.Pool) TestResultRepository {
	return &testResultRepoPG{pool: pool}
}

const testResultSelect = `
	SELECT t.id, t.patient_id, t.doctor_id, t.appointment_id, t.test_name, t.test_type,
		t.result, t.unit, t.normal_range, t.is_abnormal, t.status,
		to_char(t.test_date, 'YYYY-MM-DD'), t.created_at, t.updated_at,
		COALESCE(d.title || ' ', '') || du.first_name || ' ' || du.last_name,
		pu.first_name || ' ' || pu.last_name
	FROM test_results t
	JOIN doctor_profiles d ON d.id = t.doctor_id
	JOIN users du ON du.id = d.user_id
	JOIN users pu ON pu.id = t.patient_id`

func scanTestResult(row pgx.Row) (*TestResult, error) {
	var r TestResult
	err := row.Scan(&r.ID, &r.PatientID, &r.DoctorID, &r.AppointmentID, &r.TestName, &r.TestType,
		&r.Result, &r.Unit, &r.NormalRange, &r.IsAbnormal, &r.Status,
		&r.TestDate, &r.CreatedAt, &r.UpdatedAt,
		&r.DoctorName, &r.PatientName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTestResultNotFound
	}
	return &r, err
}

func (p *testResultRepoPG) Create(ctx context.Context, r *TestResult) error {
	return db.Conn(ctx, p.pool).QueryRow(ctx, `
		INSERT INTO test_results (
			patient_id, doctor_id, appointment_id, test_name, test_type,
			result, unit, normal_range, is_abnormal, status, test_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::date)
		RETURNING id, created_at, updated_at`,
		r.PatientID, r.DoctorID, r.AppointmentID, r.TestName, r.TestType,
		r.Result, r.Unit, r.NormalRange, r.IsAbnormal, r.Status, r.TestDate,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
}

func (p *testResultRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TestResult, error) {
	return scanTestResult(db.Conn(ctx, p.pool).QueryRow(ctx, testResultSelect+` WHERE t.id = $1`, id))
}

func (p *testResultRepoPG) Update(ctx context.Context, r *TestResult) error {
	tag, err := db.Conn(ctx, p.pool).Exec(ctx, `
		UPDATE test_results SET result = $2, unit = $3, normal_range = $4, is_abnormal = $5,
			status = $6, updated_at = NOW()
		WHERE id = $1`,
		r.ID, r.Result, r.Unit, r.NormalRange, r.IsAbnormal, r.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTestResultNotFound
	}
	return nil
}

func (p *testResultRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*TestResult, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.DoctorID != nil {
		where += fmt.Sprintf(` AND t.doctor_id = $%d`, idx)
		args = append(args, *f.DoctorID)
		idx++
	}
	if f.PatientID != nil {
		where += fmt.Sprintf(` AND t.patient_id = $%d`, idx)
		args = append(args, *f.PatientID)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND t.status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}

	conn := db.Conn(ctx, p.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM test_results t`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := testResultSelect + where + fmt.Sprintf(` ORDER BY t.test_date DESC, t.created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*TestResult
	for rows.Next() {
		r, err := scanTestResult(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, r)
	}
	return items, total, rows.Err()
}
