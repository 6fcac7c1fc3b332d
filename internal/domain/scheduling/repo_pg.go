package scheduling

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

// wallClock is how local timestamps are passed to Postgres; appointment
// dates and times carry no zone.
const wallClock = "2006-01-02 15:04:05"

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

const appointmentSelect = `
	SELECT a.id, a.appointment_number, a.patient_id, a.doctor_id, a.hospital_id, a.department_id,
		to_char(a.date, 'YYYY-MM-DD'), a.start_time, a.end_time, a.duration,
		a.status, a.reason, a.symptoms, a.notes, a.is_online, a.meeting_url,
		a.cancellation_reason, a.cancelled_at, a.cancelled_by, a.confirmed_at, a.completed_at,
		a.reminder_sent_at, a.created_at, a.updated_at,
		pu.first_name || ' ' || pu.last_name,
		COALESCE(d.title || ' ', '') || du.first_name || ' ' || du.last_name,
		d.user_id, h.name, dp.name
	FROM appointments a
	JOIN users pu ON pu.id = a.patient_id
	JOIN doctor_profiles d ON d.id = a.doctor_id
	JOIN users du ON du.id = d.user_id
	JOIN hospitals h ON h.id = a.hospital_id
	JOIN departments dp ON dp.id = a.department_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.AppointmentNumber, &a.PatientID, &a.DoctorID, &a.HospitalID, &a.DepartmentID,
		&a.Date, &a.StartTime, &a.EndTime, &a.Duration,
		&a.Status, &a.Reason, &a.Symptoms, &a.Notes, &a.IsOnline, &a.MeetingURL,
		&a.CancellationReason, &a.CancelledAt, &a.CancelledBy, &a.ConfirmedAt, &a.CompletedAt,
		&a.ReminderSentAt, &a.CreatedAt, &a.UpdatedAt,
		&a.PatientName, &a.DoctorName, &a.DoctorUserID, &a.HospitalName, &a.DepartmentName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	return &a, err
}

func (r *appointmentRepoPG) list(ctx context.Context, query string, args ...interface{}) ([]*Appointment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO appointments (
			appointment_number, patient_id, doctor_id, hospital_id, department_id,
			date, start_time, end_time, duration, status,
			reason, symptoms, notes, is_online, meeting_url
		) VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at`,
		a.AppointmentNumber, a.PatientID, a.DoctorID, a.HospitalID, a.DepartmentID,
		a.Date, a.StartTime, a.EndTime, a.Duration, a.Status,
		a.Reason, a.Symptoms, a.Notes, a.IsOnline, a.MeetingURL,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(db.Conn(ctx, r.pool).QueryRow(ctx, appointmentSelect+` WHERE a.id = $1`, id))
}

func (r *appointmentRepoPG) ActiveForDoctorDate(ctx context.Context, doctorID uuid.UUID, date string) ([]*Appointment, error) {
	return r.list(ctx, appointmentSelect+`
		WHERE a.doctor_id = $1 AND a.date = $2::date AND a.status IN ('PENDING', 'CONFIRMED')
		ORDER BY a.start_time`, doctorID, date)
}

func (r *appointmentRepoPG) Transition(ctx context.Context, t Transition) error {
	query := `UPDATE appointments SET status = $3, updated_at = $4`
	switch t.To {
	case StatusConfirmed:
		query += `, confirmed_at = $4`
	case StatusCompleted:
		query += `, completed_at = $4`
	case StatusCancelled:
		query += `, cancelled_at = $4, cancellation_reason = $5, cancelled_by = $6`
	}
	query += ` WHERE id = $1 AND status = $2`

	args := []interface{}{t.ID, t.From, t.To, t.At}
	if t.To == StatusCancelled {
		args = append(args, t.Reason, t.By)
	}

	tag, err := db.Conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidStatus
	}
	return nil
}

func (r *appointmentRepoPG) Search(ctx context.Context, f AppointmentFilter, limit, offset int) ([]*Appointment, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.PatientID != nil {
		where += fmt.Sprintf(` AND a.patient_id = $%d`, idx)
		args = append(args, *f.PatientID)
		idx++
	}
	if f.DoctorID != nil {
		where += fmt.Sprintf(` AND a.doctor_id = $%d`, idx)
		args = append(args, *f.DoctorID)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND a.status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.DateFrom != "" {
		where += fmt.Sprintf(` AND a.date >= $%d::date`, idx)
		args = append(args, f.DateFrom)
		idx++
	}
	if f.DateTo != "" {
		where += fmt.Sprintf(` AND a.date <= $%d::date`, idx)
		args = append(args, f.DateTo)
		idx++
	}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM appointments a`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := appointmentSelect + where +
		fmt.Sprintf(` ORDER BY a.date DESC, a.start_time DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	items, err := r.list(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *appointmentRepoPG) CountByStatus(ctx context.Context, doctorID uuid.UUID) (map[Status]int, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT status, COUNT(*) FROM appointments WHERE doctor_id = $1 GROUP BY status`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[Status]int{}
	for rows.Next() {
		var s Status
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		counts[s] = n
	}
	return counts, rows.Err()
}

func (r *appointmentRepoPG) EndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*Appointment, error) {
	return r.list(ctx, appointmentSelect+`
		WHERE a.status = 'CONFIRMED'
		  AND a.date + a.end_time::time <= $1::timestamp
		ORDER BY a.date, a.end_time
		LIMIT $2`, cutoff.Format(wallClock), limit)
}

func (r *appointmentRepoPG) StartingBetween(ctx context.Context, from, to time.Time, limit int) ([]*Appointment, error) {
	return r.list(ctx, appointmentSelect+`
		WHERE a.status = 'CONFIRMED' AND a.reminder_sent_at IS NULL
		  AND a.date + a.start_time::time >= $1::timestamp
		  AND a.date + a.start_time::time < $2::timestamp
		ORDER BY a.date, a.start_time
		LIMIT $3`, from.Format(wallClock), to.Format(wallClock), limit)
}

func (r *appointmentRepoPG) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE appointments SET reminder_sent_at = $2 WHERE id = $1 AND reminder_sent_at IS NULL`, id, at)
	return err
}

func (r *appointmentRepoPG) LockDoctorDay(ctx context.Context, doctorID uuid.UUID, date string) error {
	return db.LockKey(ctx, db.Conn(ctx, r.pool), "appointment:"+doctorID.String()+":"+date)
}

func (r *appointmentRepoPG) NextNumber(ctx context.Context, year int) (int64, error) {
	return db.NextSequence(ctx, db.Conn(ctx, r.pool), "appointment", year)
}

// =========== Working Hours Repository ===========

type workingHoursRepoPG struct{ pool *pgxpool.Pool }

func NewWorkingHoursRepoPG(pool *pgxpool.Pool) WorkingHoursRepository {
	return &workingHoursRepoPG{pool: pool}
}

func (r *workingHoursRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*WorkingHours, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, doctor_id, day_of_week, start_time, end_time, is_active
		FROM doctor_schedules WHERE doctor_id = $1
		ORDER BY day_of_week, start_time`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*WorkingHours
	for rows.Next() {
		var w WorkingHours
		if err := rows.Scan(&w.ID, &w.DoctorID, &w.DayOfWeek, &w.StartTime, &w.EndTime, &w.IsActive); err != nil {
			return nil, err
		}
		items = append(items, &w)
	}
	return items, rows.Err()
}

func (r *workingHoursRepoPG) Replace(ctx context.Context, doctorID uuid.UUID, hours []*WorkingHours) error {
	conn := db.Conn(ctx, r.pool)
	if _, err := conn.Exec(ctx, `DELETE FROM doctor_schedules WHERE doctor_id = $1`, doctorID); err != nil {
		return err
	}
	for _, w := range hours {
		err := conn.QueryRow(ctx, `
			INSERT INTO doctor_schedules (doctor_id, day_of_week, start_time, end_time, is_active)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			doctorID, w.DayOfWeek, w.StartTime, w.EndTime, w.IsActive,
		).Scan(&w.ID)
		if err != nil {
			return err
		}
		w.DoctorID = doctorID
	}
	return nil
}

// =========== Blocked Slot Repository ===========

type blockedSlotRepoPG struct{ pool *pgxpool.Pool }

func NewBlockedSlotRepoPG(pool *pgxpool.Pool) BlockedSlotRepository {
	return &blockedSlotRepoPG{pool: pool}
}

func (r *blockedSlotRepoPG) Create(ctx context.Context, b *BlockedSlot) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO blocked_slots (doctor_id, date, start_time, end_time, reason)
		VALUES ($1, $2::date, $3, $4, $5)
		RETURNING id, created_at`,
		b.DoctorID, b.Date, b.StartTime, b.EndTime, b.Reason,
	).Scan(&b.ID, &b.CreatedAt)
}

func (r *blockedSlotRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, dateFrom, dateTo string) ([]*BlockedSlot, error) {
	where := ` WHERE doctor_id = $1`
	args := []interface{}{doctorID}
	idx := 2
	if dateFrom != "" {
		where += fmt.Sprintf(` AND date >= $%d::date`, idx)
		args = append(args, dateFrom)
		idx++
	}
	if dateTo != "" {
		where += fmt.Sprintf(` AND date <= $%d::date`, idx)
		args = append(args, dateTo)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, doctor_id, to_char(date, 'YYYY-MM-DD'), start_time, end_time, reason, created_at
		FROM blocked_slots`+where+` ORDER BY date, start_time`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*BlockedSlot
	for rows.Next() {
		var b BlockedSlot
		if err := rows.Scan(&b.ID, &b.DoctorID, &b.Date, &b.StartTime, &b.EndTime, &b.Reason, &b.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &b)
	}
	return items, rows.Err()
}

func (r *blockedSlotRepoPG) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM blocked_slots WHERE id = $1 AND doctor_id = $2`, id, doctorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBlockedSlotNotFound
	}
	return nil
}
