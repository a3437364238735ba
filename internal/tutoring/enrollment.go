package tutoring

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Enroll appends an active enrollment of the student in the class.
func (s *Service) Enroll(ctx context.Context, studentID, classID string) (Enrollment, error) {
	e, err := s.enroll(ctx, s.store, studentID, classID)
	return e, s.reject("enroll", err)
}

func (s *Service) enroll(ctx context.Context, st Store, studentID, classID string) (Enrollment, error) {
	stu, err := getStudent(ctx, st, studentID)
	if err != nil {
		return Enrollment{}, err
	}
	if _, err := getClass(ctx, st, classID); err != nil {
		return Enrollment{}, err
	}
	if _, ok := stu.ActiveEnrollment(classID); ok {
		return Enrollment{}, conflict("Student is already enrolled in this class")
	}
	e := Enrollment{
		ID:         newID(),
		StudentID:  studentID,
		ClassID:    classID,
		EnrolledAt: s.clock(),
		Active:     true,
	}
	if err := st.InsertEnrollment(ctx, e); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return Enrollment{}, conflict("Student is already enrolled in this class")
		}
		return Enrollment{}, fmt.Errorf("insert enrollment: %w", err)
	}
	s.log.Info("student enrolled", zap.String("student_id", studentID), zap.String("class_id", classID))
	return e, nil
}

// Unenroll closes the student's active enrollment in the class. Earlier
// history entries are left untouched.
func (s *Service) Unenroll(ctx context.Context, studentID, classID string) error {
	if _, err := getStudent(ctx, s.store, studentID); err != nil {
		return s.reject("unenroll", err)
	}
	err := s.store.CloseEnrollment(ctx, studentID, classID, s.clock())
	if errors.Is(err, ErrNoRows) {
		return s.reject("unenroll", invalidState("Student is not enrolled in this class"))
	}
	if err != nil {
		return fmt.Errorf("close enrollment: %w", err)
	}
	s.log.Info("student unenrolled", zap.String("student_id", studentID), zap.String("class_id", classID))
	return nil
}
