package tutoring

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// NewTeacher is the input for creating a teacher.
type NewTeacher struct {
	Name    string
	Subject string
	Contact string
}

// TeacherUpdate carries the fields to change; nil fields are left as they are.
type TeacherUpdate struct {
	Name    *string
	Subject *string
	Contact *string
}

func checkTeacher(t Teacher) error {
	var c checker
	c.required("name", t.Name)
	c.required("subject", t.Subject)
	return c.err()
}

func (s *Service) CreateTeacher(ctx context.Context, in NewTeacher) (Teacher, error) {
	now := s.clock()
	t := Teacher{
		ID:        newID(),
		Name:      CleanString(in.Name),
		Subject:   CleanString(in.Subject),
		Contact:   strings.TrimSpace(in.Contact),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := checkTeacher(t); err != nil {
		return Teacher{}, s.reject("create_teacher", err)
	}
	if err := s.store.InsertTeacher(ctx, t); err != nil {
		return Teacher{}, fmt.Errorf("insert teacher: %w", err)
	}
	return t, nil
}

// ListTeachers returns teachers newest first.
func (s *Service) ListTeachers(ctx context.Context) ([]Teacher, error) {
	res, err := s.store.ListTeachers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	if res == nil {
		res = []Teacher{}
	}
	return res, nil
}

func (s *Service) GetTeacher(ctx context.Context, id string) (Teacher, error) {
	t, err := getTeacher(ctx, s.store, id)
	return t, s.reject("get_teacher", err)
}

func (s *Service) UpdateTeacher(ctx context.Context, id string, up TeacherUpdate) (Teacher, error) {
	t, err := getTeacher(ctx, s.store, id)
	if err != nil {
		return Teacher{}, s.reject("update_teacher", err)
	}
	if up.Name != nil {
		t.Name = CleanString(*up.Name)
	}
	if up.Subject != nil {
		t.Subject = CleanString(*up.Subject)
	}
	if up.Contact != nil {
		t.Contact = strings.TrimSpace(*up.Contact)
	}
	if err := checkTeacher(t); err != nil {
		return Teacher{}, s.reject("update_teacher", err)
	}
	t.UpdatedAt = s.clock()
	if err := s.store.UpdateTeacher(ctx, t); err != nil {
		if errors.Is(err, ErrNoRows) {
			return Teacher{}, s.reject("update_teacher", notFound("Teacher"))
		}
		return Teacher{}, fmt.Errorf("update teacher: %w", err)
	}
	return t, nil
}

// DeleteTeacher refuses to remove a teacher who still owns classes.
func (s *Service) DeleteTeacher(ctx context.Context, id string) error {
	if _, err := getTeacher(ctx, s.store, id); err != nil {
		return s.reject("delete_teacher", err)
	}
	owned, err := s.store.ListClasses(ctx, ClassFilter{TeacherID: id})
	if err != nil {
		return fmt.Errorf("list classes: %w", err)
	}
	if len(owned) > 0 {
		return s.reject("delete_teacher", conflict("Teacher still has %d class(es)", len(owned)))
	}
	err = s.store.DeleteTeacher(ctx, id)
	if errors.Is(err, ErrNoRows) {
		return s.reject("delete_teacher", notFound("Teacher"))
	}
	if err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	return nil
}

// NewClass is the input for creating a class.
type NewClass struct {
	TeacherID string
	Subject   string
	ClassName string
	Day       string
	Time      string
	Fee       int64
}

// ClassUpdate carries the fields to change; nil fields are left as they are.
type ClassUpdate struct {
	TeacherID *string
	Subject   *string
	ClassName *string
	Day       *string
	Time      *string
	Fee       *int64
}

func checkClass(cl *Class) error {
	var c checker
	c.required("teacherId", cl.TeacherID)
	c.required("subject", cl.Subject)
	c.required("className", cl.ClassName)
	if day, ok := CanonicalDay(cl.Day); ok {
		cl.Day = day
	} else {
		c.add("day", "must be a weekday name")
	}
	if !ValidClock(cl.Time) {
		c.add("time", "must be a 24h time formatted HH:MM")
	}
	if cl.Fee < 0 {
		c.add("fee", "must not be negative")
	}
	return c.err()
}

// CreateClass creates a class for an existing teacher.
func (s *Service) CreateClass(ctx context.Context, in NewClass) (ClassWithTeacher, error) {
	now := s.clock()
	c := Class{
		ID:        newID(),
		TeacherID: strings.TrimSpace(in.TeacherID),
		Subject:   CleanString(in.Subject),
		ClassName: CleanString(in.ClassName),
		Day:       in.Day,
		Time:      strings.TrimSpace(in.Time),
		Fee:       in.Fee,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := checkClass(&c); err != nil {
		return ClassWithTeacher{}, s.reject("create_class", err)
	}
	t, err := getTeacher(ctx, s.store, c.TeacherID)
	if err != nil {
		return ClassWithTeacher{}, s.reject("create_class", err)
	}
	if err := s.store.InsertClass(ctx, c); err != nil {
		return ClassWithTeacher{}, fmt.Errorf("insert class: %w", err)
	}
	return ClassWithTeacher{Class: c, Teacher: &t}, nil
}

// ListClasses returns classes newest first with teachers populated.
func (s *Service) ListClasses(ctx context.Context, f ClassFilter) ([]ClassWithTeacher, error) {
	cs, err := s.store.ListClasses(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return s.populateAll(ctx, cs), nil
}

func (s *Service) GetClass(ctx context.Context, id string) (ClassWithTeacher, error) {
	c, err := getClass(ctx, s.store, id)
	if err != nil {
		return ClassWithTeacher{}, s.reject("get_class", err)
	}
	return s.populate(ctx, c), nil
}

func (s *Service) UpdateClass(ctx context.Context, id string, up ClassUpdate) (ClassWithTeacher, error) {
	c, err := getClass(ctx, s.store, id)
	if err != nil {
		return ClassWithTeacher{}, s.reject("update_class", err)
	}
	teacherChanged := false
	if up.TeacherID != nil && strings.TrimSpace(*up.TeacherID) != c.TeacherID {
		c.TeacherID = strings.TrimSpace(*up.TeacherID)
		teacherChanged = true
	}
	if up.Subject != nil {
		c.Subject = CleanString(*up.Subject)
	}
	if up.ClassName != nil {
		c.ClassName = CleanString(*up.ClassName)
	}
	if up.Day != nil {
		c.Day = *up.Day
	}
	if up.Time != nil {
		c.Time = strings.TrimSpace(*up.Time)
	}
	if up.Fee != nil {
		c.Fee = *up.Fee
	}
	if err := checkClass(&c); err != nil {
		return ClassWithTeacher{}, s.reject("update_class", err)
	}
	if teacherChanged {
		if _, err := getTeacher(ctx, s.store, c.TeacherID); err != nil {
			return ClassWithTeacher{}, s.reject("update_class", err)
		}
	}
	c.UpdatedAt = s.clock()
	if err := s.store.UpdateClass(ctx, c); err != nil {
		if errors.Is(err, ErrNoRows) {
			return ClassWithTeacher{}, s.reject("update_class", notFound("Class"))
		}
		return ClassWithTeacher{}, fmt.Errorf("update class: %w", err)
	}
	return s.populate(ctx, c), nil
}

// DeleteClass refuses to remove a class that still has active enrollments.
func (s *Service) DeleteClass(ctx context.Context, id string) error {
	if _, err := getClass(ctx, s.store, id); err != nil {
		return s.reject("delete_class", err)
	}
	enrolled, err := s.store.ActiveEnrollees(ctx, id)
	if err != nil {
		return fmt.Errorf("active enrollees: %w", err)
	}
	if len(enrolled) > 0 {
		return s.reject("delete_class", conflict("Class still has %d enrolled student(s)", len(enrolled)))
	}
	err = s.store.DeleteClass(ctx, id)
	if errors.Is(err, ErrNoRows) {
		return s.reject("delete_class", notFound("Class"))
	}
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}

// populate attaches the class's teacher. A missing teacher leaves Teacher nil.
func (s *Service) populate(ctx context.Context, c Class) ClassWithTeacher {
	cw := ClassWithTeacher{Class: c}
	t, err := s.store.GetTeacher(ctx, c.TeacherID)
	switch {
	case err == nil:
		cw.Teacher = &t
	case !errors.Is(err, ErrNoRows):
		s.log.Warn("load class teacher", zap.String("class_id", c.ID), zap.Error(err))
	}
	return cw
}

func (s *Service) populateAll(ctx context.Context, cs []Class) []ClassWithTeacher {
	teachers := map[string]*Teacher{}
	res := make([]ClassWithTeacher, 0, len(cs))
	for _, c := range cs {
		t, ok := teachers[c.TeacherID]
		if !ok {
			cw := s.populate(ctx, c)
			teachers[c.TeacherID] = cw.Teacher
			res = append(res, cw)
			continue
		}
		res = append(res, ClassWithTeacher{Class: c, Teacher: t})
	}
	return res
}
