package tutoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Observer receives domain events, typically to update metrics.
type Observer interface {
	PaymentRecorded(method PaymentMethod, amount int64)
	AttendanceMarked(status AttendanceStatus, systemGenerated bool)
	Rejected(op string, kind Kind)
}

type nopObserver struct{}

func (nopObserver) PaymentRecorded(PaymentMethod, int64)     {}
func (nopObserver) AttendanceMarked(AttendanceStatus, bool) {}
func (nopObserver) Rejected(string, Kind)                   {}

// LookupCache remembers which student a lookup token resolved to.
type LookupCache interface {
	Get(ctx context.Context, token string) (string, bool)
	Set(ctx context.Context, token, studentID string)
	Delete(ctx context.Context, token string)
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) (string, bool) { return "", false }
func (nopCache) Set(context.Context, string, string)        {}
func (nopCache) Delete(context.Context, string)             {}

// Service implements the center's business rules on top of a Store.
type Service struct {
	store    Store
	now      func() time.Time
	loc      *time.Location
	log      *zap.Logger
	observer Observer
	cache    LookupCache
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the center's timezone, used to decide "today" and the current month.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

func WithLookupCache(c LookupCache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// NewService creates a service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		now:      time.Now,
		loc:      time.UTC,
		log:      zap.NewNop(),
		observer: nopObserver{},
		cache:    nopCache{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the center's timezone.
func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) clock() time.Time { return s.now().UTC() }

func (s *Service) today() time.Time { return DayOf(s.now(), s.loc) }

func (s *Service) currentMonth() Month { return MonthOf(s.now().In(s.loc)) }

func newID() string { return uuid.NewString() }

// reject reports expected failures to the observer and passes err through.
func (s *Service) reject(op string, err error) error {
	if k := KindOf(err); k != 0 {
		s.observer.Rejected(op, k)
	}
	return err
}

// lookup helpers shared by every operation; each maps ErrNoRows to a NotFound error.

func getStudent(ctx context.Context, st Store, id string) (Student, error) {
	stu, err := st.GetStudent(ctx, id)
	if errors.Is(err, ErrNoRows) {
		return Student{}, notFound("Student")
	}
	if err != nil {
		return Student{}, fmt.Errorf("get student: %w", err)
	}
	return stu, nil
}

func getClass(ctx context.Context, st Store, id string) (Class, error) {
	c, err := st.GetClass(ctx, id)
	if errors.Is(err, ErrNoRows) {
		return Class{}, notFound("Class")
	}
	if err != nil {
		return Class{}, fmt.Errorf("get class: %w", err)
	}
	return c, nil
}

func getTeacher(ctx context.Context, st Store, id string) (Teacher, error) {
	t, err := st.GetTeacher(ctx, id)
	if errors.Is(err, ErrNoRows) {
		return Teacher{}, notFound("Teacher")
	}
	if err != nil {
		return Teacher{}, fmt.Errorf("get teacher: %w", err)
	}
	return t, nil
}

// checker accumulates field errors for input validation.
type checker struct {
	fields []FieldError
}

func (c *checker) add(field, msg string) {
	c.fields = append(c.fields, FieldError{Field: field, Error: msg})
}

func (c *checker) required(field, value string) {
	if isBlank(value) {
		c.add(field, "this field is required")
	}
}

func (c *checker) err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return NewValidationError("invalid input", c.fields...)
}
