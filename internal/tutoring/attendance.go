package tutoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// AutoAbsentNote is attached to records created by MarkAbsentees.
const AutoAbsentNote = "Auto-marked as absent"

// AttendanceRequest is the input for MarkAttendance. Status defaults to present.
type AttendanceRequest struct {
	StudentID string
	ClassID   string
	Status    AttendanceStatus
	Notes     string
	MarkedBy  string
}

// DateRange bounds a history query. Both ends are optional and inclusive.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// AttendanceEntry is an attendance record with its student summarised.
type AttendanceEntry struct {
	Attendance
	Student *StudentSummary `json:"student,omitempty"`
	Class   *Class          `json:"class,omitempty"`
}

// MarkAttendance records today's attendance for an actively enrolled student.
func (s *Service) MarkAttendance(ctx context.Context, req AttendanceRequest) (Attendance, error) {
	var c checker
	c.required("studentId", req.StudentID)
	c.required("classId", req.ClassID)
	status := req.Status
	if status == "" {
		status = StatusPresent
	}
	if !status.Valid() {
		c.add("status", "must be one of present, absent, late, excused")
	}
	if err := c.err(); err != nil {
		return Attendance{}, s.reject("mark_attendance", err)
	}

	stu, err := getStudent(ctx, s.store, strings.TrimSpace(req.StudentID))
	if err != nil {
		return Attendance{}, s.reject("mark_attendance", err)
	}
	class, err := getClass(ctx, s.store, strings.TrimSpace(req.ClassID))
	if err != nil {
		return Attendance{}, s.reject("mark_attendance", err)
	}
	if _, ok := stu.ActiveEnrollment(class.ID); !ok {
		return Attendance{}, s.reject("mark_attendance", invalidState("Student is not enrolled in this class"))
	}

	a := Attendance{
		ID:        newID(),
		StudentID: stu.ID,
		ClassID:   class.ID,
		Day:       s.today(),
		Status:    status,
		MarkedBy:  req.MarkedBy,
		Notes:     strings.TrimSpace(req.Notes),
		CreatedAt: s.clock(),
	}
	if err := s.store.InsertAttendance(ctx, a); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return Attendance{}, s.reject("mark_attendance", conflict("Attendance already marked for today"))
		}
		return Attendance{}, fmt.Errorf("insert attendance: %w", err)
	}
	s.observer.AttendanceMarked(a.Status, false)
	return a, nil
}

// MarkAbsentees records an absent entry for every actively enrolled student
// of the class who has no record for today, and returns the new records.
// Records inserted concurrently by someone else are skipped.
func (s *Service) MarkAbsentees(ctx context.Context, classID, markedBy string) ([]Attendance, error) {
	class, err := getClass(ctx, s.store, classID)
	if err != nil {
		return nil, s.reject("mark_absentees", err)
	}
	enrolled, err := s.store.ActiveEnrollees(ctx, class.ID)
	if err != nil {
		return nil, fmt.Errorf("active enrollees: %w", err)
	}
	today := s.today()
	marked, err := s.store.ListAttendance(ctx, AttendanceFilter{ClassID: class.ID, From: &today, To: &today})
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	seen := make(map[string]bool, len(marked))
	for _, a := range marked {
		seen[a.StudentID] = true
	}

	created := []Attendance{}
	for _, id := range enrolled {
		if seen[id] {
			continue
		}
		a := Attendance{
			ID:              newID(),
			StudentID:       id,
			ClassID:         class.ID,
			Day:             today,
			Status:          StatusAbsent,
			MarkedBy:        markedBy,
			Notes:           AutoAbsentNote,
			SystemGenerated: true,
			CreatedAt:       s.clock(),
		}
		if err := s.store.InsertAttendance(ctx, a); err != nil {
			if errors.Is(err, ErrDuplicate) {
				continue
			}
			return created, fmt.Errorf("insert absentee %s: %w", id, err)
		}
		s.observer.AttendanceMarked(StatusAbsent, true)
		created = append(created, a)
	}
	s.log.Info("absentees marked",
		zap.String("class_id", class.ID),
		zap.Int("enrolled", len(enrolled)),
		zap.Int("absent", len(created)))
	return created, nil
}

// SweepAbsentees runs MarkAbsentees for every class scheduled on today's
// weekday and returns the number of records created per class.
func (s *Service) SweepAbsentees(ctx context.Context, markedBy string) (map[string]int, error) {
	day := s.now().In(s.loc).Weekday().String()
	classes, err := s.store.ListClasses(ctx, ClassFilter{Day: day})
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	res := make(map[string]int, len(classes))
	var errs []error
	for _, c := range classes {
		created, err := s.MarkAbsentees(ctx, c.ID, markedBy)
		if err != nil {
			errs = append(errs, fmt.Errorf("class %s: %w", c.ID, err))
			continue
		}
		res[c.ID] = len(created)
	}
	return res, errors.Join(errs...)
}

// StudentAttendance returns the student's records newest first, each with
// its class. Range bounds are taken as the calendar date in their own offset.
func (s *Service) StudentAttendance(ctx context.Context, studentID string, r DateRange) ([]AttendanceEntry, error) {
	if _, err := getStudent(ctx, s.store, studentID); err != nil {
		return nil, s.reject("student_attendance", err)
	}
	f := AttendanceFilter{StudentID: studentID}
	if r.From != nil {
		d := DayOf(*r.From, r.From.Location())
		f.From = &d
	}
	if r.To != nil {
		d := DayOf(*r.To, r.To.Location())
		f.To = &d
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, s.reject("student_attendance",
			NewValidationError("invalid input", FieldError{Field: "from", Error: "must not be after to"}))
	}
	records, err := s.store.ListAttendance(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	classes := make(map[string]*Class)
	res := make([]AttendanceEntry, 0, len(records))
	for _, a := range records {
		cl, seen := classes[a.ClassID]
		if !seen {
			c, err := s.store.GetClass(ctx, a.ClassID)
			switch {
			case err == nil:
				cl = &c
			case !errors.Is(err, ErrNoRows):
				return nil, fmt.Errorf("get class: %w", err)
			}
			classes[a.ClassID] = cl
		}
		res = append(res, AttendanceEntry{Attendance: a, Class: cl})
	}
	return res, nil
}

// ClassAttendanceToday returns today's records for the class, newest first,
// with each student summarised.
func (s *Service) ClassAttendanceToday(ctx context.Context, classID string) ([]AttendanceEntry, error) {
	if _, err := getClass(ctx, s.store, classID); err != nil {
		return nil, s.reject("class_attendance", err)
	}
	today := s.today()
	records, err := s.store.ListAttendance(ctx, AttendanceFilter{ClassID: classID, From: &today, To: &today})
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	res := make([]AttendanceEntry, 0, len(records))
	for _, a := range records {
		entry := AttendanceEntry{Attendance: a}
		stu, err := s.store.GetStudent(ctx, a.StudentID)
		switch {
		case err == nil:
			sum := summarize(stu)
			entry.Student = &sum
		case !errors.Is(err, ErrNoRows):
			return nil, fmt.Errorf("get student: %w", err)
		}
		res = append(res, entry)
	}
	return res, nil
}
