package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/db"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// =========== Hospital Repository ===========

type hospitalRepoPG struct{ pool *pgxpool.Pool }

func NewHospitalRepoPG(pool *pgxpool.Pool) HospitalRepository { return &hospitalRepoPG{pool: pool} }

const hospitalCols = `id, name, city, address, phone, email, is_active, created_at, updated_at`

func scanHospital(row pgx.Row) (*Hospital, error) {
	var h Hospital
	err := row.Scan(&h.ID, &h.Name, &h.City, &h.Address, &h.Phone, &h.Email, &h.IsActive, &h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrHospitalNotFound
	}
	return &h, err
}

func (r *hospitalRepoPG) Create(ctx context.Context, h *Hospital) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO hospitals (name, city, address, phone, email, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		h.Name, h.City, h.Address, h.Phone, h.Email, h.IsActive,
	).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
}

func (r *hospitalRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	return scanHospital(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+hospitalCols+` FROM hospitals WHERE id = $1`, id))
}

func (r *hospitalRepoPG) Update(ctx context.Context, h *Hospital) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE hospitals SET name = $2, city = $3, address = $4, phone = $5, email = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		h.ID, h.Name, h.City, h.Address, h.Phone, h.Email,
	).Scan(&h.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrHospitalNotFound
	}
	return err
}

func (r *hospitalRepoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE hospitals SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrHospitalNotFound
	}
	return nil
}

func (r *hospitalRepoPG) List(ctx context.Context, f HospitalFilter, limit, offset int) ([]*Hospital, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.ActiveOnly {
		where += ` AND is_active`
	}
	if f.City != "" {
		where += fmt.Sprintf(` AND city ILIKE $%d`, idx)
		args = append(args, f.City)
		idx++
	}
	if f.Query != "" {
		where += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		args = append(args, "%"+f.Query+"%")
		idx++
	}

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM hospitals`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + hospitalCols + ` FROM hospitals` + where +
		fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Hospital
	for rows.Next() {
		h, err := scanHospital(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, h)
	}
	return items, total, rows.Err()
}

// =========== Department Repository ===========

type departmentRepoPG struct{ pool *pgxpool.Pool }

func NewDepartmentRepoPG(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepoPG{pool: pool}
}

const departmentCols = `id, hospital_id, name, description, is_active, created_at, updated_at`

func scanDepartment(row pgx.Row) (*Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.HospitalID, &d.Name, &d.Description, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDepartmentNotFound
	}
	return &d, err
}

func (r *departmentRepoPG) Create(ctx context.Context, d *Department) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO departments (hospital_id, name, description, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		d.HospitalID, d.Name, d.Description, d.IsActive,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDepartmentExists
	}
	return err
}

func (r *departmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Department, error) {
	return scanDepartment(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+departmentCols+` FROM departments WHERE id = $1`, id))
}

func (r *departmentRepoPG) Update(ctx context.Context, d *Department) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE departments SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		d.ID, d.Name, d.Description,
	).Scan(&d.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrDepartmentNotFound
	case isUniqueViolation(err):
		return ErrDepartmentExists
	}
	return err
}

func (r *departmentRepoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE departments SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDepartmentNotFound
	}
	return nil
}

func (r *departmentRepoPG) List(ctx context.Context, hospitalID *uuid.UUID, activeOnly bool, limit, offset int) ([]*Department, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if hospitalID != nil {
		where += fmt.Sprintf(` AND hospital_id = $%d`, idx)
		args = append(args, *hospitalID)
		idx++
	}
	if activeOnly {
		where += ` AND is_active`
	}

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM departments`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + departmentCols + ` FROM departments` + where +
		fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

// =========== License Repository ===========

type licenseRepoPG struct{ pool *pgxpool.Pool }

func NewLicenseRepoPG(pool *pgxpool.Pool) LicenseRepository { return &licenseRepoPG{pool: pool} }

const licenseCols = `id, license_key, hospital_id, plan, status, max_doctors, starts_at, expires_at, created_at`

func scanLicense(row pgx.Row) (*License, error) {
	var l License
	err := row.Scan(&l.ID, &l.LicenseKey, &l.HospitalID, &l.Plan, &l.Status, &l.MaxDoctors,
		&l.StartsAt, &l.ExpiresAt, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLicenseNotFound
	}
	return &l, err
}

func (r *licenseRepoPG) Create(ctx context.Context, l *License) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO licenses (license_key, hospital_id, plan, status, max_doctors, starts_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		l.LicenseKey, l.HospitalID, l.Plan, l.Status, l.MaxDoctors, l.StartsAt, l.ExpiresAt,
	).Scan(&l.ID, &l.CreatedAt)
}

func (r *licenseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*License, error) {
	return scanLicense(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+licenseCols+` FROM licenses WHERE id = $1`, id))
}

func (r *licenseRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE licenses SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLicenseNotFound
	}
	return nil
}

func (r *licenseRepoPG) Extend(ctx context.Context, id uuid.UUID, plan string, maxDoctors int, expiresAt time.Time) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE licenses SET plan = $2, max_doctors = $3, expires_at = $4, status = 'ACTIVE'
		WHERE id = $1`, id, plan, maxDoctors, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLicenseNotFound
	}
	return nil
}

func (r *licenseRepoPG) List(ctx context.Context, hospitalID *uuid.UUID, status string, limit, offset int) ([]*License, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if hospitalID != nil {
		where += fmt.Sprintf(` AND hospital_id = $%d`, idx)
		args = append(args, *hospitalID)
		idx++
	}
	if status != "" {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, status)
		idx++
	}

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM licenses`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + licenseCols + ` FROM licenses` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*License
	for rows.Next() {
		l, err := scanLicense(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, rows.Err()
}

func (r *licenseRepoPG) Current(ctx context.Context, hospitalID uuid.UUID, now time.Time) (*License, error) {
	return scanLicense(db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+licenseCols+` FROM licenses
		WHERE hospital_id = $1 AND status = 'ACTIVE' AND starts_at <= $2 AND expires_at > $2
		ORDER BY expires_at DESC
		LIMIT 1`, hospitalID, now))
}

func (r *licenseRepoPG) CurrentForDoctor(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	var ok bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM licenses l
			JOIN doctor_profiles d ON d.hospital_id = l.hospital_id
			WHERE d.user_id = $1 AND l.status = 'ACTIVE' AND l.starts_at <= $2 AND l.expires_at > $2
		)`, userID, now).Scan(&ok)
	return ok, err
}

func (r *licenseRepoPG) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE licenses SET status = 'EXPIRED' WHERE status = 'ACTIVE' AND expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// =========== Stats Repository ===========

type statsRepoPG struct{ pool *pgxpool.Pool }

func NewStatsRepoPG(pool *pgxpool.Pool) StatsRepository { return &statsRepoPG{pool: pool} }

func (r *statsRepoPG) Stats(ctx context.Context) (*Stats, error) {
	conn := db.Conn(ctx, r.pool)
	st := &Stats{
		UsersByRole:          map[string]int{},
		AppointmentsByStatus: map[string]int{},
		Revenue:              map[string]int64{},
	}

	if err := countInto(ctx, conn, `SELECT role, COUNT(*) FROM users GROUP BY role`, st.UsersByRole); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if err := countInto(ctx, conn, `SELECT status, COUNT(*) FROM appointments GROUP BY status`, st.AppointmentsByStatus); err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}

	rows, err := conn.Query(ctx, `
		SELECT currency, COALESCE(SUM(amount), 0) FROM payments
		WHERE status = 'COMPLETED' GROUP BY currency`)
	if err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var currency string
		var amount int64
		if err := rows.Scan(&currency, &amount); err != nil {
			return nil, err
		}
		st.Revenue[currency] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = conn.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM hospitals WHERE is_active),
		       (SELECT COUNT(*) FROM licenses WHERE status = 'ACTIVE' AND expires_at > NOW())`,
	).Scan(&st.Hospitals, &st.ActiveLicenses)
	if err != nil {
		return nil, fmt.Errorf("count hospitals: %w", err)
	}
	return st, nil
}

func countInto(ctx context.Context, q db.Querier, query string, into map[string]int) error {
	rows, err := q.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] = n
	}
	return rows.Err()
}
