package tutoring

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tutorcenter/internal/qr"
)

// LookupStudent resolves a scanned or typed token to a single student. The
// token may be a QR payload, a student id, a nic or an email address.
func (s *Service) LookupStudent(ctx context.Context, token string) (Student, error) {
	p, ok := qr.Parse(token)
	if !ok {
		return Student{}, s.reject("lookup", NewValidationError("q required"))
	}
	token = p.StudentID

	if id, hit := s.cache.Get(ctx, token); hit {
		stu, err := s.store.GetStudent(ctx, id)
		if err == nil && matchesToken(stu, token) {
			return stu, nil
		}
		if err != nil && !errors.Is(err, ErrNoRows) {
			return Student{}, fmt.Errorf("get student: %w", err)
		}
		s.cache.Delete(ctx, token)
	}

	stu, err := s.lookupUncached(ctx, token)
	if err != nil {
		return Student{}, s.reject("lookup", err)
	}
	s.cache.Set(ctx, token, stu.ID)
	return stu, nil
}

func (s *Service) lookupUncached(ctx context.Context, token string) (Student, error) {
	if _, err := uuid.Parse(token); err == nil {
		stu, err := s.store.GetStudent(ctx, token)
		if err == nil {
			return stu, nil
		}
		if !errors.Is(err, ErrNoRows) {
			return Student{}, fmt.Errorf("get student: %w", err)
		}
	}
	stu, err := s.store.FindStudent(ctx, token)
	if errors.Is(err, ErrNoRows) {
		return Student{}, notFound("Student")
	}
	if err != nil {
		return Student{}, fmt.Errorf("find student: %w", err)
	}
	return stu, nil
}

func matchesToken(stu Student, token string) bool {
	return stu.ID == token || stu.NIC == token || strings.EqualFold(stu.Email, token)
}
