package tutoring

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Student is a learner registered at the center.
type Student struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	NIC             string       `json:"nic"`
	SchoolName      string       `json:"schoolName"`
	Email           string       `json:"email"`
	Age             int          `json:"age"`
	Contact         string       `json:"contact"`
	Address         string       `json:"address,omitempty"`
	GuardianName    string       `json:"guardianName,omitempty"`
	GuardianContact string       `json:"guardianContact,omitempty"`
	AdmissionDate   time.Time    `json:"admissionDate"`
	Stream          string       `json:"stream"`
	ProfilePicture  string       `json:"profilePicture,omitempty"`
	Enrollments     []Enrollment `json:"enrolledClasses"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// ActiveEnrollment returns the active enrollment for classID, if any.
func (s Student) ActiveEnrollment(classID string) (Enrollment, bool) {
	for _, e := range s.Enrollments {
		if e.ClassID == classID && e.Active {
			return e, true
		}
	}
	return Enrollment{}, false
}

// Enrollment is one entry of a student's enrollment history.
type Enrollment struct {
	ID           string     `json:"id"`
	StudentID    string     `json:"-"`
	ClassID      string     `json:"classId"`
	EnrolledAt   time.Time  `json:"enrolledDate"`
	UnenrolledAt *time.Time `json:"unenrolledDate,omitempty"`
	Active       bool       `json:"active"`
}

// Teacher runs one or more classes.
type Teacher struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Contact   string    `json:"contact,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Class is a recurring weekly session taught by one teacher.
type Class struct {
	ID        string    `json:"id"`
	TeacherID string    `json:"teacherId"`
	Subject   string    `json:"subject"`
	ClassName string    `json:"className"`
	Day       string    `json:"day"`
	Time      string    `json:"time"`
	Fee       int64     `json:"fee"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ClassWithTeacher is a class with its teacher populated.
type ClassWithTeacher struct {
	Class
	Teacher *Teacher `json:"teacher,omitempty"`
}

// PaymentMethod is how a monthly fee was settled.
type PaymentMethod string

const (
	MethodCash   PaymentMethod = "cash"
	MethodCard   PaymentMethod = "card"
	MethodBank   PaymentMethod = "bank"
	MethodOnline PaymentMethod = "online"
	MethodOther  PaymentMethod = "other"
)

// Valid reports whether m is a known method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodBank, MethodOnline, MethodOther:
		return true
	}
	return false
}

// Payment is a fee settlement for one (student, class, month).
type Payment struct {
	ID        string        `json:"id"`
	StudentID string        `json:"studentId"`
	ClassID   string        `json:"classId"`
	Month     Month         `json:"month"`
	Amount    int64         `json:"amount"`
	Method    PaymentMethod `json:"method"`
	Reference string        `json:"reference,omitempty"`
	PaidAt    time.Time     `json:"paidAt"`
	CreatedAt time.Time     `json:"createdAt"`
}

// AttendanceStatus is the outcome recorded for a student on a day.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
	StatusLate    AttendanceStatus = "late"
	StatusExcused AttendanceStatus = "excused"
)

// Valid reports whether s is a known status.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused:
		return true
	}
	return false
}

// Attendance is a single (student, class, day) record.
type Attendance struct {
	ID              string           `json:"id"`
	StudentID       string           `json:"studentId"`
	ClassID         string           `json:"classId"`
	Day             time.Time        `json:"date"`
	Status          AttendanceStatus `json:"status"`
	MarkedBy        string           `json:"markedBy"`
	Notes           string           `json:"notes,omitempty"`
	SystemGenerated bool             `json:"systemGenerated"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// Month is a billing period formatted as YYYY-MM.
type Month string

var monthRegex = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ParseMonth validates s and returns it as a Month.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if !monthRegex.MatchString(s) {
		return "", fmt.Errorf("invalid month %q, want YYYY-MM", s)
	}
	return Month(s), nil
}

// MonthOf returns the billing month containing t.
func MonthOf(t time.Time) Month {
	return Month(t.Format("2006-01"))
}

// DayOf returns the calendar date of t as seen in loc, as midnight UTC.
// Attendance days are stored in this form.
func DayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var weekdays = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// CanonicalDay returns the capitalised weekday name for s, or false.
func CanonicalDay(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, d := range weekdays {
		if strings.EqualFold(d, s) {
			return d, true
		}
	}
	return "", false
}

var clockRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidClock reports whether s is a 24h HH:MM time.
func ValidClock(s string) bool {
	return clockRegex.MatchString(s)
}
