package tutoring

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists records in Postgres.
type PostgresStore struct {
	db *sql.DB
	q  queryer
}

// NewPostgresStore creates a store over db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

// WithTx implements Store. Nested calls reuse the open transaction.
func (r *PostgresStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if _, inTx := r.q.(*sql.Tx); inTx {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&PostgresStore{db: r.db, q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// mapErr translates driver errors into store sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRows
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// students

const studentCols = `id, name, nic, school_name, email, age, contact, address, guardian_name,
	guardian_contact, admission_date, stream, profile_picture, created_at, updated_at`

func scanStudent(row rowScanner) (Student, error) {
	var s Student
	err := row.Scan(&s.ID, &s.Name, &s.NIC, &s.SchoolName, &s.Email, &s.Age, &s.Contact, &s.Address,
		&s.GuardianName, &s.GuardianContact, &s.AdmissionDate, &s.Stream, &s.ProfilePicture,
		&s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *PostgresStore) InsertStudent(ctx context.Context, s Student) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO students (`+studentCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, s.ID, s.Name, s.NIC, s.SchoolName, s.Email, s.Age, s.Contact, s.Address, s.GuardianName,
		s.GuardianContact, s.AdmissionDate, s.Stream, s.ProfilePicture, s.CreatedAt, s.UpdatedAt)
	return mapErr(err)
}

func (r *PostgresStore) GetStudent(ctx context.Context, id string) (Student, error) {
	s, err := scanStudent(r.q.QueryRowContext(ctx, `SELECT `+studentCols+` FROM students WHERE id = $1`, id))
	if err != nil {
		return Student{}, mapErr(err)
	}
	return r.loadEnrollments(ctx, s)
}

func (r *PostgresStore) FindStudent(ctx context.Context, nicOrEmail string) (Student, error) {
	s, err := scanStudent(r.q.QueryRowContext(ctx, `
		SELECT `+studentCols+` FROM students
		WHERE nic = $1 OR lower(email) = lower($1)
		ORDER BY created_at DESC
		LIMIT 1
	`, nicOrEmail))
	if err != nil {
		return Student{}, mapErr(err)
	}
	return r.loadEnrollments(ctx, s)
}

func (r *PostgresStore) ListStudents(ctx context.Context, search string) ([]Student, error) {
	query := `SELECT ` + studentCols + ` FROM students`
	args := []any{}
	if search = strings.TrimSpace(search); search != "" {
		query += ` WHERE name ILIKE $1 OR nic ILIKE $1 OR email ILIKE $1
			OR school_name ILIKE $1 OR stream ILIKE $1 OR contact ILIKE $1`
		args = append(args, "%"+escapeLike(search)+"%")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Student
	idx := map[string]int{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		idx[s.ID] = len(res)
		res = append(res, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return res, nil
	}

	ids := make([]string, 0, len(res))
	for _, s := range res {
		ids = append(ids, s.ID)
	}
	enrollments, err := r.enrollmentsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, e := range enrollments {
		i := idx[e.StudentID]
		res[i].Enrollments = append(res[i].Enrollments, e)
	}
	return res, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *PostgresStore) UpdateStudent(ctx context.Context, s Student) error {
	return affected(r.q.ExecContext(ctx, `
		UPDATE students SET name = $2, nic = $3, school_name = $4, email = $5, age = $6, contact = $7,
			address = $8, guardian_name = $9, guardian_contact = $10, admission_date = $11, stream = $12,
			profile_picture = $13, updated_at = $14
		WHERE id = $1
	`, s.ID, s.Name, s.NIC, s.SchoolName, s.Email, s.Age, s.Contact, s.Address, s.GuardianName,
		s.GuardianContact, s.AdmissionDate, s.Stream, s.ProfilePicture, s.UpdatedAt))
}

// DeleteStudent removes the student; enrollments go with it via ON DELETE CASCADE.
func (r *PostgresStore) DeleteStudent(ctx context.Context, id string) error {
	return affected(r.q.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id))
}

func (r *PostgresStore) loadEnrollments(ctx context.Context, s Student) (Student, error) {
	es, err := r.enrollmentsFor(ctx, []string{s.ID})
	if err != nil {
		return Student{}, err
	}
	s.Enrollments = es
	return s, nil
}

func (r *PostgresStore) enrollmentsFor(ctx context.Context, studentIDs []string) ([]Enrollment, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, student_id, class_id, enrolled_at, unenrolled_at, active
		FROM enrollments
		WHERE student_id = ANY($1)
		ORDER BY enrolled_at, id
	`, studentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Enrollment
	for rows.Next() {
		var e Enrollment
		var until sql.NullTime
		if err := rows.Scan(&e.ID, &e.StudentID, &e.ClassID, &e.EnrolledAt, &until, &e.Active); err != nil {
			return nil, err
		}
		if until.Valid {
			t := until.Time
			e.UnenrolledAt = &t
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// enrollments

func (r *PostgresStore) InsertEnrollment(ctx context.Context, e Enrollment) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO enrollments (id, student_id, class_id, enrolled_at, unenrolled_at, active)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, e.ID, e.StudentID, e.ClassID, e.EnrolledAt, e.UnenrolledAt, e.Active)
	return mapErr(err)
}

func (r *PostgresStore) CloseEnrollment(ctx context.Context, studentID, classID string, at time.Time) error {
	return affected(r.q.ExecContext(ctx, `
		UPDATE enrollments SET active = FALSE, unenrolled_at = $3
		WHERE student_id = $1 AND class_id = $2 AND active
	`, studentID, classID, at))
}

func (r *PostgresStore) ActiveEnrollees(ctx context.Context, classID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT student_id FROM enrollments WHERE class_id = $1 AND active ORDER BY student_id
	`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// teachers

func (r *PostgresStore) InsertTeacher(ctx context.Context, t Teacher) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO teachers (id, name, subject, contact, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, t.ID, t.Name, t.Subject, t.Contact, t.CreatedAt, t.UpdatedAt)
	return mapErr(err)
}

func (r *PostgresStore) GetTeacher(ctx context.Context, id string) (Teacher, error) {
	var t Teacher
	err := r.q.QueryRowContext(ctx, `
		SELECT id, name, subject, contact, created_at, updated_at FROM teachers WHERE id = $1
	`, id).Scan(&t.ID, &t.Name, &t.Subject, &t.Contact, &t.CreatedAt, &t.UpdatedAt)
	return t, mapErr(err)
}

func (r *PostgresStore) ListTeachers(ctx context.Context) ([]Teacher, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, name, subject, contact, created_at, updated_at
		FROM teachers ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Teacher
	for rows.Next() {
		var t Teacher
		if err := rows.Scan(&t.ID, &t.Name, &t.Subject, &t.Contact, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r *PostgresStore) UpdateTeacher(ctx context.Context, t Teacher) error {
	return affected(r.q.ExecContext(ctx, `
		UPDATE teachers SET name = $2, subject = $3, contact = $4, updated_at = $5 WHERE id = $1
	`, t.ID, t.Name, t.Subject, t.Contact, t.UpdatedAt))
}

func (r *PostgresStore) DeleteTeacher(ctx context.Context, id string) error {
	return affected(r.q.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id))
}

// classes

const classCols = `id, teacher_id, subject, class_name, day, time, fee, created_at, updated_at`

func scanClass(row rowScanner) (Class, error) {
	var c Class
	err := row.Scan(&c.ID, &c.TeacherID, &c.Subject, &c.ClassName, &c.Day, &c.Time, &c.Fee, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *PostgresStore) InsertClass(ctx context.Context, c Class) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO classes (`+classCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, c.ID, c.TeacherID, c.Subject, c.ClassName, c.Day, c.Time, c.Fee, c.CreatedAt, c.UpdatedAt)
	return mapErr(err)
}

func (r *PostgresStore) GetClass(ctx context.Context, id string) (Class, error) {
	c, err := scanClass(r.q.QueryRowContext(ctx, `SELECT `+classCols+` FROM classes WHERE id = $1`, id))
	return c, mapErr(err)
}

func (r *PostgresStore) ListClasses(ctx context.Context, f ClassFilter) ([]Class, error) {
	query := `SELECT ` + classCols + ` FROM classes`
	args := []any{}
	clauses := []string{}
	if f.TeacherID != "" {
		args = append(args, f.TeacherID)
		clauses = append(clauses, "teacher_id = $"+strconv.Itoa(len(args)))
	}
	if f.Day != "" {
		args = append(args, f.Day)
		clauses = append(clauses, "lower(day) = lower($"+strconv.Itoa(len(args))+")")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r *PostgresStore) UpdateClass(ctx context.Context, c Class) error {
	return affected(r.q.ExecContext(ctx, `
		UPDATE classes SET teacher_id = $2, subject = $3, class_name = $4, day = $5, time = $6, fee = $7,
			updated_at = $8
		WHERE id = $1
	`, c.ID, c.TeacherID, c.Subject, c.ClassName, c.Day, c.Time, c.Fee, c.UpdatedAt))
}

func (r *PostgresStore) DeleteClass(ctx context.Context, id string) error {
	return affected(r.q.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id))
}

// payments

func (r *PostgresStore) InsertPayment(ctx context.Context, p Payment) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO payments (id, student_id, class_id, month, amount, method, reference, paid_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, p.ID, p.StudentID, p.ClassID, string(p.Month), p.Amount, string(p.Method), p.Reference, p.PaidAt, p.CreatedAt)
	return mapErr(err)
}

func (r *PostgresStore) ListPayments(ctx context.Context, f PaymentFilter) ([]Payment, error) {
	query := `SELECT id, student_id, class_id, month, amount, method, reference, paid_at, created_at FROM payments`
	args := []any{}
	clauses := []string{}
	if f.StudentID != "" {
		args = append(args, f.StudentID)
		clauses = append(clauses, "student_id = $"+strconv.Itoa(len(args)))
	}
	if f.ClassID != "" {
		args = append(args, f.ClassID)
		clauses = append(clauses, "class_id = $"+strconv.Itoa(len(args)))
	}
	if f.Month != "" {
		args = append(args, string(f.Month))
		clauses = append(clauses, "month = $"+strconv.Itoa(len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY month DESC, created_at DESC"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Payment
	for rows.Next() {
		var p Payment
		var month, method string
		if err := rows.Scan(&p.ID, &p.StudentID, &p.ClassID, &month, &p.Amount, &method, &p.Reference, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Month, p.Method = Month(month), PaymentMethod(method)
		res = append(res, p)
	}
	return res, rows.Err()
}

// attendance

func (r *PostgresStore) InsertAttendance(ctx context.Context, a Attendance) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO attendance (id, student_id, class_id, day, status, marked_by, notes, system_generated, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, a.ID, a.StudentID, a.ClassID, a.Day, string(a.Status), a.MarkedBy, a.Notes, a.SystemGenerated, a.CreatedAt)
	return mapErr(err)
}

func (r *PostgresStore) ListAttendance(ctx context.Context, f AttendanceFilter) ([]Attendance, error) {
	query := `SELECT id, student_id, class_id, day, status, marked_by, notes, system_generated, created_at FROM attendance`
	args := []any{}
	clauses := []string{}
	if f.StudentID != "" {
		args = append(args, f.StudentID)
		clauses = append(clauses, "student_id = $"+strconv.Itoa(len(args)))
	}
	if f.ClassID != "" {
		args = append(args, f.ClassID)
		clauses = append(clauses, "class_id = $"+strconv.Itoa(len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		clauses = append(clauses, "day >= $"+strconv.Itoa(len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		clauses = append(clauses, "day <= $"+strconv.Itoa(len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY day DESC, created_at DESC, id DESC"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Attendance
	for rows.Next() {
		var a Attendance
		var status string
		if err := rows.Scan(&a.ID, &a.StudentID, &a.ClassID, &a.Day, &status, &a.MarkedBy, &a.Notes, &a.SystemGenerated, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Status = AttendanceStatus(status)
		a.Day = time.Date(a.Day.Year(), a.Day.Month(), a.Day.Day(), 0, 0, 0, 0, time.UTC)
		res = append(res, a)
	}
	return res, rows.Err()
}
