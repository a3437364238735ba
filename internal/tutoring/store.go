package tutoring

import (
	"context"
	"time"
)

// Store persists the center's records. Lookups of a missing row return
// ErrNoRows and uniqueness violations return ErrDuplicate.
type Store interface {
	// WithTx runs fn against a transactional view of the store. If fn returns
	// an error every write made through that view is discarded.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	InsertStudent(ctx context.Context, s Student) error
	GetStudent(ctx context.Context, id string) (Student, error)
	FindStudent(ctx context.Context, nicOrEmail string) (Student, error)
	ListStudents(ctx context.Context, search string) ([]Student, error)
	UpdateStudent(ctx context.Context, s Student) error
	DeleteStudent(ctx context.Context, id string) error

	InsertEnrollment(ctx context.Context, e Enrollment) error
	CloseEnrollment(ctx context.Context, studentID, classID string, at time.Time) error
	ActiveEnrollees(ctx context.Context, classID string) ([]string, error)

	InsertTeacher(ctx context.Context, t Teacher) error
	GetTeacher(ctx context.Context, id string) (Teacher, error)
	ListTeachers(ctx context.Context) ([]Teacher, error)
	UpdateTeacher(ctx context.Context, t Teacher) error
	DeleteTeacher(ctx context.Context, id string) error

	InsertClass(ctx context.Context, c Class) error
	GetClass(ctx context.Context, id string) (Class, error)
	ListClasses(ctx context.Context, f ClassFilter) ([]Class, error)
	UpdateClass(ctx context.Context, c Class) error
	DeleteClass(ctx context.Context, id string) error

	InsertPayment(ctx context.Context, p Payment) error
	ListPayments(ctx context.Context, f PaymentFilter) ([]Payment, error)

	InsertAttendance(ctx context.Context, a Attendance) error
	ListAttendance(ctx context.Context, f AttendanceFilter) ([]Attendance, error)
}

// ClassFilter narrows ListClasses. Zero values match everything.
type ClassFilter struct {
	TeacherID string
	Day       string
}

// PaymentFilter narrows ListPayments. Results are newest month first.
type PaymentFilter struct {
	StudentID string
	ClassID   string
	Month     Month
}

// AttendanceFilter narrows ListAttendance. From and To are inclusive days.
// Results are newest day first, then newest created first.
type AttendanceFilter struct {
	StudentID string
	ClassID   string
	From      *time.Time
	To        *time.Time
}
