package tutoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

// NewStudent is the input for registering a student.
type NewStudent struct {
	Name            string
	NIC             string
	SchoolName      string
	Email           string
	Age             int
	Contact         string
	Address         string
	GuardianName    string
	GuardianContact string
	AdmissionDate   *time.Time
	Stream          string
	ProfilePicture  string
}

// StudentUpdate carries the fields to change; nil fields are left as they are.
type StudentUpdate struct {
	Name            *string
	NIC             *string
	SchoolName      *string
	Email           *string
	Age             *int
	Contact         *string
	Address         *string
	GuardianName    *string
	GuardianContact *string
	AdmissionDate   *time.Time
	Stream          *string
	ProfilePicture  *string
}

// StudentSummary is the short form of a student embedded in other views.
type StudentSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	NIC            string `json:"nic"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

func summarize(s Student) StudentSummary {
	return StudentSummary{ID: s.ID, Name: s.Name, NIC: s.NIC, Email: s.Email, ProfilePicture: s.ProfilePicture}
}

// EnrollmentDetail is an enrollment with its class populated. Class is nil
// when the class has since been deleted.
type EnrollmentDetail struct {
	Enrollment
	Class *ClassWithTeacher `json:"class"`
}

// StudentDetail is a student with enrollments resolved to classes and teachers.
type StudentDetail struct {
	Student
	Enrollments []EnrollmentDetail `json:"enrolledClasses"`
}

// CleanString trims s and collapses inner runs of whitespace.
func CleanString(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }

func checkStudent(s Student) error {
	var c checker
	c.required("name", s.Name)
	c.required("nic", s.NIC)
	c.required("schoolName", s.SchoolName)
	c.required("contact", s.Contact)
	c.required("stream", s.Stream)
	if isBlank(s.Email) {
		c.add("email", "this field is required")
	} else if validate.Var(s.Email, "email") != nil {
		c.add("email", "must be a valid email address")
	}
	if s.Age < 1 || s.Age > 120 {
		c.add("age", "must be between 1 and 120")
	}
	return c.err()
}

// CreateStudent registers a student. AdmissionDate defaults to now.
func (s *Service) CreateStudent(ctx context.Context, in NewStudent) (Student, error) {
	now := s.clock()
	stu := Student{
		ID:              newID(),
		Name:            CleanString(in.Name),
		NIC:             strings.TrimSpace(in.NIC),
		SchoolName:      CleanString(in.SchoolName),
		Email:           strings.TrimSpace(in.Email),
		Age:             in.Age,
		Contact:         strings.TrimSpace(in.Contact),
		Address:         strings.TrimSpace(in.Address),
		GuardianName:    CleanString(in.GuardianName),
		GuardianContact: strings.TrimSpace(in.GuardianContact),
		AdmissionDate:   now,
		Stream:          CleanString(in.Stream),
		ProfilePicture:  in.ProfilePicture,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.AdmissionDate != nil && !in.AdmissionDate.IsZero() {
		stu.AdmissionDate = in.AdmissionDate.UTC()
	}
	if err := checkStudent(stu); err != nil {
		return Student{}, s.reject("create_student", err)
	}
	if err := s.store.InsertStudent(ctx, stu); err != nil {
		return Student{}, fmt.Errorf("insert student: %w", err)
	}
	s.log.Debug("student created", zap.String("student_id", stu.ID))
	stu.Enrollments = []Enrollment{}
	return stu, nil
}

// ListStudents returns students newest first, optionally filtered by a
// case-insensitive search over name, nic, email, school, stream and contact.
func (s *Service) ListStudents(ctx context.Context, search string) ([]Student, error) {
	res, err := s.store.ListStudents(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	if res == nil {
		res = []Student{}
	}
	return res, nil
}

// GetStudent returns the student with enrollments, classes and teachers populated.
func (s *Service) GetStudent(ctx context.Context, id string) (StudentDetail, error) {
	stu, err := getStudent(ctx, s.store, id)
	if err != nil {
		return StudentDetail{}, s.reject("get_student", err)
	}
	return s.detail(ctx, stu)
}

func (s *Service) detail(ctx context.Context, stu Student) (StudentDetail, error) {
	d := StudentDetail{Student: stu, Enrollments: make([]EnrollmentDetail, 0, len(stu.Enrollments))}
	classes := map[string]*ClassWithTeacher{}
	for _, e := range stu.Enrollments {
		cw, ok := classes[e.ClassID]
		if !ok {
			var err error
			cw, err = s.classWithTeacher(ctx, e.ClassID)
			if err != nil {
				return StudentDetail{}, err
			}
			classes[e.ClassID] = cw
		}
		d.Enrollments = append(d.Enrollments, EnrollmentDetail{Enrollment: e, Class: cw})
	}
	return d, nil
}

// classWithTeacher returns nil, nil when the class no longer exists.
func (s *Service) classWithTeacher(ctx context.Context, classID string) (*ClassWithTeacher, error) {
	c, err := s.store.GetClass(ctx, classID)
	if errors.Is(err, ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get class: %w", err)
	}
	cw := s.populate(ctx, c)
	return &cw, nil
}

// UpdateStudent applies a partial update. The profile picture changes only
// when a new reference is supplied.
func (s *Service) UpdateStudent(ctx context.Context, id string, up StudentUpdate) (Student, error) {
	stu, err := getStudent(ctx, s.store, id)
	if err != nil {
		return Student{}, s.reject("update_student", err)
	}
	setStr := func(dst *string, src *string, clean func(string) string) {
		if src != nil {
			*dst = clean(*src)
		}
	}
	setStr(&stu.Name, up.Name, CleanString)
	setStr(&stu.NIC, up.NIC, strings.TrimSpace)
	setStr(&stu.SchoolName, up.SchoolName, CleanString)
	setStr(&stu.Email, up.Email, strings.TrimSpace)
	setStr(&stu.Contact, up.Contact, strings.TrimSpace)
	setStr(&stu.Address, up.Address, strings.TrimSpace)
	setStr(&stu.GuardianName, up.GuardianName, CleanString)
	setStr(&stu.GuardianContact, up.GuardianContact, strings.TrimSpace)
	setStr(&stu.Stream, up.Stream, CleanString)
	if up.Age != nil {
		stu.Age = *up.Age
	}
	if up.AdmissionDate != nil && !up.AdmissionDate.IsZero() {
		stu.AdmissionDate = up.AdmissionDate.UTC()
	}
	if up.ProfilePicture != nil && *up.ProfilePicture != "" {
		stu.ProfilePicture = *up.ProfilePicture
	}
	if err := checkStudent(stu); err != nil {
		return Student{}, s.reject("update_student", err)
	}
	stu.UpdatedAt = s.clock()
	if err := s.store.UpdateStudent(ctx, stu); err != nil {
		if errors.Is(err, ErrNoRows) {
			return Student{}, s.reject("update_student", notFound("Student"))
		}
		return Student{}, fmt.Errorf("update student: %w", err)
	}
	return stu, nil
}

// DeleteStudent removes the student and its enrollment history. Payments and
// attendance records are kept.
func (s *Service) DeleteStudent(ctx context.Context, id string) error {
	err := s.store.DeleteStudent(ctx, id)
	if errors.Is(err, ErrNoRows) {
		return s.reject("delete_student", notFound("Student"))
	}
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	s.log.Info("student deleted", zap.String("student_id", id))
	return nil
}
