package tutoring

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memData struct {
	students    map[string]Student
	enrollments map[string]Enrollment
	teachers    map[string]Teacher
	classes     map[string]Class
	payments    map[string]Payment
	attendance  map[string]Attendance
}

func newMemData() *memData {
	return &memData{
		students:    make(map[string]Student),
		enrollments: make(map[string]Enrollment),
		teachers:    make(map[string]Teacher),
		classes:     make(map[string]Class),
		payments:    make(map[string]Payment),
		attendance:  make(map[string]Attendance),
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	for k, v := range d.students {
		v.Enrollments = nil
		c.students[k] = v
	}
	for k, v := range d.enrollments {
		c.enrollments[k] = v
	}
	for k, v := range d.teachers {
		c.teachers[k] = v
	}
	for k, v := range d.classes {
		c.classes[k] = v
	}
	for k, v := range d.payments {
		c.payments[k] = v
	}
	for k, v := range d.attendance {
		c.attendance[k] = v
	}
	return c
}

// MemoryStore keeps every record in process memory. It enforces the same
// uniqueness rules as the Postgres schema. A transaction holds the write lock
// until it finishes, so other callers wait rather than interleave with it.
type MemoryStore struct {
	mu   sync.RWMutex
	data *memData
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemData()}
}

// WithTx implements Store. A failed fn restores the data as it was when the
// transaction began.
func (m *MemoryStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.data.clone()
	if err := fn(memTx{d: m.data}); err != nil {
		m.data = snap
		return err
	}
	return ctx.Err()
}

func (m *MemoryStore) read() (memTx, func()) {
	m.mu.RLock()
	return memTx{d: m.data}, m.mu.RUnlock
}

func (m *MemoryStore) write() (memTx, func()) {
	m.mu.Lock()
	return memTx{d: m.data}, m.mu.Unlock
}

func (m *MemoryStore) InsertStudent(ctx context.Context, s Student) error {
	t, done := m.write()
	defer done()
	return t.InsertStudent(ctx, s)
}

func (m *MemoryStore) GetStudent(ctx context.Context, id string) (Student, error) {
	t, done := m.read()
	defer done()
	return t.GetStudent(ctx, id)
}

func (m *MemoryStore) FindStudent(ctx context.Context, nicOrEmail string) (Student, error) {
	t, done := m.read()
	defer done()
	return t.FindStudent(ctx, nicOrEmail)
}

func (m *MemoryStore) ListStudents(ctx context.Context, search string) ([]Student, error) {
	t, done := m.read()
	defer done()
	return t.ListStudents(ctx, search)
}

func (m *MemoryStore) UpdateStudent(ctx context.Context, s Student) error {
	t, done := m.write()
	defer done()
	return t.UpdateStudent(ctx, s)
}

func (m *MemoryStore) DeleteStudent(ctx context.Context, id string) error {
	t, done := m.write()
	defer done()
	return t.DeleteStudent(ctx, id)
}

func (m *MemoryStore) InsertEnrollment(ctx context.Context, e Enrollment) error {
	t, done := m.write()
	defer done()
	return t.InsertEnrollment(ctx, e)
}

func (m *MemoryStore) CloseEnrollment(ctx context.Context, studentID, classID string, at time.Time) error {
	t, done := m.write()
	defer done()
	return t.CloseEnrollment(ctx, studentID, classID, at)
}

func (m *MemoryStore) ActiveEnrollees(ctx context.Context, classID string) ([]string, error) {
	t, done := m.read()
	defer done()
	return t.ActiveEnrollees(ctx, classID)
}

func (m *MemoryStore) InsertTeacher(ctx context.Context, tc Teacher) error {
	t, done := m.write()
	defer done()
	return t.InsertTeacher(ctx, tc)
}

func (m *MemoryStore) GetTeacher(ctx context.Context, id string) (Teacher, error) {
	t, done := m.read()
	defer done()
	return t.GetTeacher(ctx, id)
}

func (m *MemoryStore) ListTeachers(ctx context.Context) ([]Teacher, error) {
	t, done := m.read()
	defer done()
	return t.ListTeachers(ctx)
}

func (m *MemoryStore) UpdateTeacher(ctx context.Context, tc Teacher) error {
	t, done := m.write()
	defer done()
	return t.UpdateTeacher(ctx, tc)
}

func (m *MemoryStore) DeleteTeacher(ctx context.Context, id string) error {
	t, done := m.write()
	defer done()
	return t.DeleteTeacher(ctx, id)
}

func (m *MemoryStore) InsertClass(ctx context.Context, c Class) error {
	t, done := m.write()
	defer done()
	return t.InsertClass(ctx, c)
}

func (m *MemoryStore) GetClass(ctx context.Context, id string) (Class, error) {
	t, done := m.read()
	defer done()
	return t.GetClass(ctx, id)
}

func (m *MemoryStore) ListClasses(ctx context.Context, f ClassFilter) ([]Class, error) {
	t, done := m.read()
	defer done()
	return t.ListClasses(ctx, f)
}

func (m *MemoryStore) UpdateClass(ctx context.Context, c Class) error {
	t, done := m.write()
	defer done()
	return t.UpdateClass(ctx, c)
}

func (m *MemoryStore) DeleteClass(ctx context.Context, id string) error {
	t, done := m.write()
	defer done()
	return t.DeleteClass(ctx, id)
}

func (m *MemoryStore) InsertPayment(ctx context.Context, p Payment) error {
	t, done := m.write()
	defer done()
	return t.InsertPayment(ctx, p)
}

func (m *MemoryStore) ListPayments(ctx context.Context, f PaymentFilter) ([]Payment, error) {
	t, done := m.read()
	defer done()
	return t.ListPayments(ctx, f)
}

func (m *MemoryStore) InsertAttendance(ctx context.Context, a Attendance) error {
	t, done := m.write()
	defer done()
	return t.InsertAttendance(ctx, a)
}

func (m *MemoryStore) ListAttendance(ctx context.Context, f AttendanceFilter) ([]Attendance, error) {
	t, done := m.read()
	defer done()
	return t.ListAttendance(ctx, f)
}

// memTx works on the data directly. Callers hold m.mu.
type memTx struct {
	d *memData
}

// WithTx implements Store. The enclosing transaction already covers fn.
func (t memTx) WithTx(_ context.Context, fn func(tx Store) error) error {
	return fn(t)
}

// students

func (t memTx) InsertStudent(_ context.Context, s Student) error {
	if _, ok := t.d.students[s.ID]; ok {
		return ErrDuplicate
	}
	s.Enrollments = nil
	t.d.students[s.ID] = s
	return nil
}

func (t memTx) GetStudent(_ context.Context, id string) (Student, error) {
	s, ok := t.d.students[id]
	if !ok {
		return Student{}, ErrNoRows
	}
	return t.withEnrollments(s), nil
}

func (t memTx) FindStudent(_ context.Context, nicOrEmail string) (Student, error) {
	var found []Student
	for _, s := range t.d.students {
		if s.NIC == nicOrEmail || strings.EqualFold(s.Email, nicOrEmail) {
			found = append(found, s)
		}
	}
	if len(found) == 0 {
		return Student{}, ErrNoRows
	}
	sortStudents(found)
	return t.withEnrollments(found[len(found)-1]), nil
}

func (t memTx) ListStudents(_ context.Context, search string) ([]Student, error) {
	search = strings.ToLower(strings.TrimSpace(search))
	res := make([]Student, 0, len(t.d.students))
	for _, s := range t.d.students {
		if search != "" && !studentMatches(s, search) {
			continue
		}
		res = append(res, t.withEnrollments(s))
	}
	sortStudents(res)
	// newest first
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	return res, nil
}

func studentMatches(s Student, needle string) bool {
	for _, v := range []string{s.Name, s.NIC, s.Email, s.SchoolName, s.Stream, s.Contact} {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

func sortStudents(ss []Student) {
	sort.Slice(ss, func(i, j int) bool {
		if ss[i].CreatedAt.Equal(ss[j].CreatedAt) {
			return ss[i].ID < ss[j].ID
		}
		return ss[i].CreatedAt.Before(ss[j].CreatedAt)
	})
}

func (t memTx) UpdateStudent(_ context.Context, s Student) error {
	if _, ok := t.d.students[s.ID]; !ok {
		return ErrNoRows
	}
	s.Enrollments = nil
	t.d.students[s.ID] = s
	return nil
}

func (t memTx) DeleteStudent(_ context.Context, id string) error {
	if _, ok := t.d.students[id]; !ok {
		return ErrNoRows
	}
	delete(t.d.students, id)
	for k, e := range t.d.enrollments {
		if e.StudentID == id {
			delete(t.d.enrollments, k)
		}
	}
	return nil
}

func (t memTx) withEnrollments(s Student) Student {
	var es []Enrollment
	for _, e := range t.d.enrollments {
		if e.StudentID == s.ID {
			es = append(es, e)
		}
	}
	sort.Slice(es, func(i, j int) bool {
		if es[i].EnrolledAt.Equal(es[j].EnrolledAt) {
			return es[i].ID < es[j].ID
		}
		return es[i].EnrolledAt.Before(es[j].EnrolledAt)
	})
	s.Enrollments = es
	return s
}

// enrollments

func (t memTx) InsertEnrollment(_ context.Context, e Enrollment) error {
	if _, ok := t.d.students[e.StudentID]; !ok {
		return ErrNoRows
	}
	for _, cur := range t.d.enrollments {
		if cur.ID == e.ID {
			return ErrDuplicate
		}
		if e.Active && cur.Active && cur.StudentID == e.StudentID && cur.ClassID == e.ClassID {
			return ErrDuplicate
		}
	}
	t.d.enrollments[e.ID] = e
	return nil
}

func (t memTx) CloseEnrollment(_ context.Context, studentID, classID string, at time.Time) error {
	for k, e := range t.d.enrollments {
		if e.StudentID == studentID && e.ClassID == classID && e.Active {
			e.Active = false
			e.UnenrolledAt = &at
			t.d.enrollments[k] = e
			return nil
		}
	}
	return ErrNoRows
}

func (t memTx) ActiveEnrollees(_ context.Context, classID string) ([]string, error) {
	var ids []string
	for _, e := range t.d.enrollments {
		if e.ClassID == classID && e.Active {
			ids = append(ids, e.StudentID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// teachers

func (t memTx) InsertTeacher(_ context.Context, tc Teacher) error {
	if _, ok := t.d.teachers[tc.ID]; ok {
		return ErrDuplicate
	}
	t.d.teachers[tc.ID] = tc
	return nil
}

func (t memTx) GetTeacher(_ context.Context, id string) (Teacher, error) {
	tc, ok := t.d.teachers[id]
	if !ok {
		return Teacher{}, ErrNoRows
	}
	return tc, nil
}

func (t memTx) ListTeachers(_ context.Context) ([]Teacher, error) {
	res := make([]Teacher, 0, len(t.d.teachers))
	for _, tc := range t.d.teachers {
		res = append(res, tc)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID > res[j].ID
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (t memTx) UpdateTeacher(_ context.Context, tc Teacher) error {
	if _, ok := t.d.teachers[tc.ID]; !ok {
		return ErrNoRows
	}
	t.d.teachers[tc.ID] = tc
	return nil
}

func (t memTx) DeleteTeacher(_ context.Context, id string) error {
	if _, ok := t.d.teachers[id]; !ok {
		return ErrNoRows
	}
	delete(t.d.teachers, id)
	return nil
}

// classes

func (t memTx) InsertClass(_ context.Context, c Class) error {
	if _, ok := t.d.classes[c.ID]; ok {
		return ErrDuplicate
	}
	t.d.classes[c.ID] = c
	return nil
}

func (t memTx) GetClass(_ context.Context, id string) (Class, error) {
	c, ok := t.d.classes[id]
	if !ok {
		return Class{}, ErrNoRows
	}
	return c, nil
}

func (t memTx) ListClasses(_ context.Context, f ClassFilter) ([]Class, error) {
	res := make([]Class, 0, len(t.d.classes))
	for _, c := range t.d.classes {
		if f.TeacherID != "" && c.TeacherID != f.TeacherID {
			continue
		}
		if f.Day != "" && !strings.EqualFold(c.Day, f.Day) {
			continue
		}
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID > res[j].ID
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (t memTx) UpdateClass(_ context.Context, c Class) error {
	if _, ok := t.d.classes[c.ID]; !ok {
		return ErrNoRows
	}
	t.d.classes[c.ID] = c
	return nil
}

func (t memTx) DeleteClass(_ context.Context, id string) error {
	if _, ok := t.d.classes[id]; !ok {
		return ErrNoRows
	}
	delete(t.d.classes, id)
	return nil
}

// payments

func (t memTx) InsertPayment(_ context.Context, p Payment) error {
	for _, cur := range t.d.payments {
		if cur.ID == p.ID || (cur.StudentID == p.StudentID && cur.ClassID == p.ClassID && cur.Month == p.Month) {
			return ErrDuplicate
		}
	}
	t.d.payments[p.ID] = p
	return nil
}

func (t memTx) ListPayments(_ context.Context, f PaymentFilter) ([]Payment, error) {
	var res []Payment
	for _, p := range t.d.payments {
		if f.StudentID != "" && p.StudentID != f.StudentID {
			continue
		}
		if f.ClassID != "" && p.ClassID != f.ClassID {
			continue
		}
		if f.Month != "" && p.Month != f.Month {
			continue
		}
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Month != res[j].Month {
			return res[i].Month > res[j].Month
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

// attendance

func (t memTx) InsertAttendance(_ context.Context, a Attendance) error {
	for _, cur := range t.d.attendance {
		if cur.ID == a.ID || (cur.StudentID == a.StudentID && cur.ClassID == a.ClassID && cur.Day.Equal(a.Day)) {
			return ErrDuplicate
		}
	}
	t.d.attendance[a.ID] = a
	return nil
}

func (t memTx) ListAttendance(_ context.Context, f AttendanceFilter) ([]Attendance, error) {
	var res []Attendance
	for _, a := range t.d.attendance {
		if f.StudentID != "" && a.StudentID != f.StudentID {
			continue
		}
		if f.ClassID != "" && a.ClassID != f.ClassID {
			continue
		}
		if f.From != nil && a.Day.Before(*f.From) {
			continue
		}
		if f.To != nil && a.Day.After(*f.To) {
			continue
		}
		res = append(res, a)
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].Day.Equal(res[j].Day) {
			return res[i].Day.After(res[j].Day)
		}
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		}
		return res[i].ID > res[j].ID
	})
	return res, nil
}
