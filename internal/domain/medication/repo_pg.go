package medication

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/db"
)

type prescriptionRepoPG struct{ pool *pgxpool.Pool }

func NewPrescriptionRepoPG(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

const prescriptionSelect = `
	SELECT p.id, p.prescription_number, p.appointment_id, p.doctor_id, p.patient_id,
		p.diagnosis, p.medications, p.notes, to_char(p.valid_until, 'YYYY-MM-DD'), p.created_at,
		COALESCE(d.title || ' ', '') || du.first_name || ' ' || du.last_name,
		pu.first_name || ' ' || pu.last_name,
		a.appointment_number
	FROM prescriptions p
	JOIN doctor_profiles d ON d.id = p.doctor_id
	JOIN users du ON du.id = d.user_id
	JOIN users pu ON pu.id = p.patient_id
	JOIN appointments a ON a.id = p.appointment_id`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.PrescriptionNumber, &p.AppointmentID, &p.DoctorID, &p.PatientID,
		&p.Diagnosis, &p.Medications, &p.Notes, &p.ValidUntil, &p.CreatedAt,
		&p.DoctorName, &p.PatientName, &p.AppointmentNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPrescriptionNotFound
	}
	return &p, err
}

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO prescriptions (
			prescription_number, appointment_id, doctor_id, patient_id,
			diagnosis, medications, notes, valid_until
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date)
		RETURNING id, created_at`,
		p.PrescriptionNumber, p.AppointmentID, p.DoctorID, p.PatientID,
		p.Diagnosis, p.Medications, p.Notes, p.ValidUntil,
	).Scan(&p.ID, &p.CreatedAt)
}

func (r *prescriptionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return scanPrescription(db.Conn(ctx, r.pool).QueryRow(ctx, prescriptionSelect+` WHERE p.id = $1`, id))
}

func (r *prescriptionRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Prescription, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.DoctorID != nil {
		where += fmt.Sprintf(` AND p.doctor_id = $%d`, idx)
		args = append(args, *f.DoctorID)
		idx++
	}
	if f.PatientID != nil {
		where += fmt.Sprintf(` AND p.patient_id = $%d`, idx)
		args = append(args, *f.PatientID)
		idx++
	}

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM prescriptions p`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := prescriptionSelect + where + fmt.Sprintf(` ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *prescriptionRepoPG) NextNumber(ctx context.Context, year int) (int64, error) {
	return db.NextSequence(ctx, db.Conn(ctx, r.pool), "prescription", year)
}
