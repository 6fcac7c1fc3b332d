package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/db"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// =========== User Repository ===========

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

const userCols = `id, email, password_hash, first_name, last_name, phone, role, is_active,
	last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone,
		&u.Role, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return &u, err
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO users (email, password_hash, first_name, last_name, phone, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone, u.Role, u.IsActive,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email))
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE users SET first_name = $2, last_name = $3, phone = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		u.ID, u.FirstName, u.LastName, u.Phone,
	).Scan(&u.UpdatedAt)
}

func (r *userRepoPG) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	return err
}

func (r *userRepoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepoPG) TouchLogin(ctx context.Context, id uuid.UUID) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *userRepoPG) Search(ctx context.Context, role, q string, limit, offset int) ([]*User, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if role != "" {
		where += fmt.Sprintf(` AND role = $%d`, idx)
		args = append(args, role)
		idx++
	}
	if q != "" {
		where += fmt.Sprintf(` AND (email ILIKE $%d OR first_name || ' ' || last_name ILIKE $%d)`, idx, idx)
		args = append(args, "%"+q+"%")
		idx++
	}

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userCols + ` FROM users` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository { return &patientRepoPG{pool: pool} }

const patientCols = `id, user_id, to_char(date_of_birth, 'YYYY-MM-DD'), gender, blood_type,
	allergies, chronic_diseases, emergency_contact_name, emergency_contact_phone, created_at, updated_at`

func encodeList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return string(b)
}

func decodeList(raw string) []string {
	out := []string{}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

func (r *patientRepoPG) Create(ctx context.Context, p *PatientProfile) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patient_profiles (user_id, date_of_birth, gender, blood_type, allergies, chronic_diseases,
			emergency_contact_name, emergency_contact_phone)
		VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		p.UserID, p.DateOfBirth, p.Gender, p.BloodType, encodeList(p.Allergies), encodeList(p.ChronicDiseases),
		p.EmergencyContactName, p.EmergencyContactPhone,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *patientRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*PatientProfile, error) {
	var p PatientProfile
	var allergies, chronic string
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+patientCols+` FROM patient_profiles WHERE user_id = $1`, userID).
		Scan(&p.ID, &p.UserID, &p.DateOfBirth, &p.Gender, &p.BloodType, &allergies, &chronic,
			&p.EmergencyContactName, &p.EmergencyContactPhone, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Allergies = decodeList(allergies)
	p.ChronicDiseases = decodeList(chronic)
	return &p, nil
}

func (r *patientRepoPG) Update(ctx context.Context, p *PatientProfile) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE patient_profiles SET date_of_birth = $2::date, gender = $3, blood_type = $4, allergies = $5,
			chronic_diseases = $6, emergency_contact_name = $7, emergency_contact_phone = $8, updated_at = NOW()
		WHERE user_id = $1
		RETURNING id, updated_at`,
		p.UserID, p.DateOfBirth, p.Gender, p.BloodType, encodeList(p.Allergies), encodeList(p.ChronicDiseases),
		p.EmergencyContactName, p.EmergencyContactPhone,
	).Scan(&p.ID, &p.UpdatedAt)
}

// =========== Doctor Repository ===========

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository { return &doctorRepoPG{pool: pool} }

const doctorSelect = `SELECT d.id, d.user_id, d.hospital_id, d.department_id, d.title, d.specialty,
	d.license_number, d.consultation_fee, d.currency, d.slot_minutes, d.bio, d.is_active AND u.is_active,
	d.created_at, d.updated_at, u.first_name, u.last_name, h.name, dep.name
	FROM doctor_profiles d
	JOIN users u ON u.id = d.user_id
	JOIN hospitals h ON h.id = d.hospital_id
	JOIN departments dep ON dep.id = d.department_id`

func scanDoctor(row pgx.Row) (*DoctorProfile, error) {
	var d DoctorProfile
	err := row.Scan(&d.ID, &d.UserID, &d.HospitalID, &d.DepartmentID, &d.Title, &d.Specialty,
		&d.LicenseNumber, &d.ConsultationFee, &d.Currency, &d.SlotMinutes, &d.Bio, &d.IsActive,
		&d.CreatedAt, &d.UpdatedAt, &d.FirstName, &d.LastName, &d.HospitalName, &d.DepartmentName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDoctorNotFound
	}
	return &d, err
}

func (r *doctorRepoPG) Create(ctx context.Context, d *DoctorProfile) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO doctor_profiles (user_id, hospital_id, department_id, title, specialty, license_number,
			consultation_fee, currency, slot_minutes, bio, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		d.UserID, d.HospitalID, d.DepartmentID, d.Title, d.Specialty, d.LicenseNumber,
		d.ConsultationFee, d.Currency, d.SlotMinutes, d.Bio, d.IsActive,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*DoctorProfile, error) {
	return scanDoctor(db.Conn(ctx, r.pool).QueryRow(ctx, doctorSelect+` WHERE d.id = $1`, id))
}

func (r *doctorRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*DoctorProfile, error) {
	return scanDoctor(db.Conn(ctx, r.pool).QueryRow(ctx, doctorSelect+` WHERE d.user_id = $1`, userID))
}

func (r *doctorRepoPG) Update(ctx context.Context, d *DoctorProfile) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE doctor_profiles SET title = $2, specialty = $3, consultation_fee = $4, slot_minutes = $5,
			bio = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		d.ID, d.Title, d.Specialty, d.ConsultationFee, d.SlotMinutes, d.Bio,
	).Scan(&d.UpdatedAt)
}

func (r *doctorRepoPG) CountByHospital(ctx context.Context, hospitalID uuid.UUID) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM doctor_profiles WHERE hospital_id = $1 AND is_active`, hospitalID).Scan(&n)
	return n, err
}

func (r *doctorRepoPG) Search(ctx context.Context, f DoctorFilter, limit, offset int) ([]*DoctorProfile, int, error) {
	where := ` WHERE d.is_active AND u.is_active`
	var args []interface{}
	idx := 1

	if f.HospitalID != nil {
		where += fmt.Sprintf(` AND d.hospital_id = $%d`, idx)
		args = append(args, *f.HospitalID)
		idx++
	}
	if f.DepartmentID != nil {
		where += fmt.Sprintf(` AND d.department_id = $%d`, idx)
		args = append(args, *f.DepartmentID)
		idx++
	}
	if f.Specialty != "" {
		where += fmt.Sprintf(` AND d.specialty ILIKE $%d`, idx)
		args = append(args, f.Specialty)
		idx++
	}
	if f.Query != "" {
		where += fmt.Sprintf(` AND (u.first_name || ' ' || u.last_name ILIKE $%d OR d.specialty ILIKE $%d)`, idx, idx)
		args = append(args, "%"+f.Query+"%")
		idx++
	}

	conn := db.Conn(ctx, r.pool)
	var total int
	countQuery := `SELECT COUNT(*) FROM doctor_profiles d JOIN users u ON u.id = d.user_id` + where
	if err := conn.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := doctorSelect + where + fmt.Sprintf(` ORDER BY u.last_name, u.first_name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*DoctorProfile
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}
