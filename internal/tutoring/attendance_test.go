package tutoring

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkAttendanceOncePerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.student(t, "Nimal", "111", "n@example.com")
	c := f.class(t, f.teacher(t, "T").ID, "C", "Wednesday", 1000)
	f.enroll(t, s.ID, c.ID)

	a, err := f.svc.MarkAttendance(ctx, AttendanceRequest{StudentID: s.ID, ClassID: c.ID, MarkedBy: "staff-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusPresent, a.Status)
	assert.Equal(t, "staff-1", a.MarkedBy)
	assert.Equal(t, time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC), a.Day)
	assert.False(t, a.SystemGenerated)

	_, err = f.svc.MarkAttendance(ctx, AttendanceRequest{StudentID: s.ID, ClassID: c.ID, Status: StatusLate})
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.Equal(t, "Attendance already marked for today", err.Error())

	// next day is a fresh record
	f.clock.set(testStart.Add(24 * time.Hour))
	_, err = f.svc.MarkAttendance(ctx, AttendanceRequest{StudentID: s.ID, ClassID: c.ID, Status: StatusLate})
	require.NoError(t, err)
}

func TestMarkAttendanceRequiresActiveEnrollment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.student(t, "Nimal", "111", "n@example.com")
	c := f.class(t, f.teacher(t, "T").ID, "C", "Wednesday", 1000)

	for _, status := range []AttendanceStatus{StatusPresent, StatusAbsent, StatusLate, StatusExcused, ""} {
		t.Run("never enrolled "+string(status), func(t *testing.T) {
			_, err := f.svc.MarkAttendance(ctx, AttendanceRequest{StudentID: s.ID, ClassID: c.ID, Status: status})
			require.Error(t, err)
			assert.True(t, IsInvalidState(err))
			assert.Equal(t, "Student is not enrolled in this class", err.Error())
		})
	}

	f.enroll(t, s.ID, c.ID)
	require.NoError(t, f.svc.Unenroll(ctx, s.ID, c.ID))
	_, err := f.svc.MarkAttendance(ctx, AttendanceRequest{StudentID: s.ID, ClassID: c.ID, Status: StatusExcused})
	assert.True(t, IsInvalidState(err), "unenrolled")
}

func TestMarkAttendanceErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.student(t, "Nimal", "111", "n@example.com")
	c := f.class(t, f.teacher(t, "T").ID, "C", "Wednesday", 1000)

	tests := []struct {
		name  string
		req   AttendanceRequest
		check func(error) bool
	}{
		{name: "missing ids", req: AttendanceRequest{}, check: IsValidation},
		{name: "bad status", req: AttendanceRequest{StudentID: s.ID, ClassID: c.ID, Status: "asleep"}, check: IsValidation},
		{name: "unknown student", req: AttendanceRequest{StudentID: "x", ClassID: c.ID}, check: IsNotFound},
		{name: "unknown class", req: AttendanceRequest{StudentID: s.ID, ClassID: "x"}, check: IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.MarkAttendance(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error %v", err)
		})
	}
}

func TestMarkAbsentees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.class(t, f.teacher(t, "T").ID, "C", "Wednesday", 1000)
	other := f.class(t, f.teacher(t, "U").ID, "D", "Wednesday", 1000)

	const n, m = 5, 2
	var students []Student
	for i := 0; i < n; i++ {
		s := f.student(t, fmt.Sprintf("S%d", i), fmt.Sprintf("nic-%d", i), fmt.Sprintf("s%d@example.com", i))
		f.enroll(t, s.ID, c.ID)
		students = append(students, s)
	}
	// enrolled elsewhere only
	outsider := f.student(t, "Out", "nic-out", "out@example.com")
	f.enroll(t, outsider.ID, other.ID)
	// formerly enrolled
	former := f.student(t, "Former", "nic-former", "former@example.com")
	f.enroll(t, former.ID, c.ID)
	require.NoError(t, f.svc.Unenroll(ctx, former.ID, c.ID))

	for i := 0; i < m; i++ {
		_, err := f.svc.MarkAttendance(ctx, AttendanceRequest{StudentID: students[i].ID, ClassID: c.ID})
		require.NoError(t, err)
	}

	created, err := f.svc.MarkAbsentees(ctx, c.ID, "staff-1")
	require.NoError(t, err)
	require.Len(t, created, n-m)
	for _, a := range created {
		assert.Equal(t, StatusAbsent, a.Status)
		assert.True(t, a.SystemGenerated)
		assert.Equal(t, AutoAbsentNote, a.Notes)
		assert.Equal(t, "staff-1", a.MarkedBy)
		assert.NotEqual(t, outsider.ID, a.StudentID)
		assert.NotEqual(t, former.ID, a.StudentID)
	}
	assert.Equal(t, n-m, f.obs.auto)

	again, err := f.svc.MarkAbsentees(ctx, c.ID, "staff-1")
	require.NoError(t, err)
	assert.Empty(t, again, "second run finds everyone marked")

	today, err := f.svc.ClassAttendanceToday(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, today, n)

	_, err = f.svc.MarkAbsentees(ctx, "missing", "staff-1")
	assert.True(t, IsNotFound(err))
}

// dupOnInsertStore makes the first attendance insert for one student fail
// as if a concurrent request had won the race.
type dupOnInsertStore struct {
	*MemoryStore
	studentID string
}

func (d *dupOnInsertStore) InsertAttendance(ctx context.Context, a Attendance) error {
	if a.StudentID == d.studentID {
		return ErrDuplicate
	}
	return d.MemoryStore.InsertAttendance(ctx, a)
}

func TestMarkAbsenteesSkipsLostRaces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.class(t, f.teacher(t, "T").ID, "C", "Wednesday", 1000)
	a := f.student(t, "A", "1", "a@example.com")
	b := f.student(t, "B", "2", "b@example.com")
	f.enroll(t, a.ID, c.ID)
	f.enroll(t, b.ID, c.ID)

	svc := NewService(&dupOnInsertStore{MemoryStore: f.store, studentID: a.ID}, WithClock(f.clock.now))
	created, err := svc.MarkAbsentees(ctx, c.ID, "staff-1")
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, b.ID, created[0].StudentID)
}

func TestMarkAbsenteesConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.class(t, f.teacher(t, "T").ID, "C", "Wednesday", 1000)
	for i := 0; i < 10; i++ {
		s := f.student(t, fmt.Sprintf("S%d", i), fmt.Sprintf("n%d", i), fmt.Sprintf("s%d@example.com", i))
		f.enroll(t, s.ID, c.ID)
	}

	var wg sync.WaitGroup
	totals := make([]int, 4)
	for i := range totals {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, err := f.svc.MarkAbsentees(ctx, c.ID, "staff")
			assert.NoError(t, err)
			totals[i] = len(created)
		}(i)
	}
	wg.Wait()

	sum := 0
	for _, n := range totals {
		sum += n
	}
	assert.Equal(t, 10, sum, "each absentee inserted exactly once")
}

func TestSweepAbsentees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tch := f.teacher(t, "T")
	wed := f.class(t, tch.ID, "Wed", "Wednesday", 1000)
	thu := f.class(t, tch.ID, "Thu", "Thursday", 1000)
	s := f.student(t, "S", "1", "s@example.com")
	f.enroll(t, s.ID, wed.ID)
	f.enroll(t, s.ID, thu.ID)

	res, err := f.svc.SweepAbsentees(ctx, "system")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{wed.ID: 1}, res)
}

func TestStudentAttendanceHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.student(t, "Nimal", "111", "n@example.com")
	c := f.class(t, f.teacher(t, "T").ID, "C", "Wednesday", 1000)
	f.enroll(t, s.ID, c.ID)

	day := func(d int) time.Time { return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC) }
	for _, d := range []int{10, 12, 11} {
		f.clock.set(day(d).Add(9 * time.Hour))
		_, err := f.svc.MarkAttendance(ctx, AttendanceRequest{StudentID: s.ID, ClassID: c.ID})
		require.NoError(t, err)
	}

	all, err := f.svc.StudentAttendance(ctx, s.ID, DateRange{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, day(12), all[0].Day)
	assert.Equal(t, day(11), all[1].Day)
	assert.Equal(t, day(10), all[2].Day)
	require.NotNil(t, all[0].Class)
	assert.Equal(t, c.ID, all[0].Class.ID)
	assert.Equal(t, "C", all[0].Class.ClassName)

	from, to := day(11), day(11)
	got, err := f.svc.StudentAttendance(ctx, s.ID, DateRange{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, day(11), got[0].Day)

	got, err = f.svc.StudentAttendance(ctx, s.ID, DateRange{From: &from})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = f.svc.StudentAttendance(ctx, s.ID, DateRange{From: &to, To: &[]time.Time{day(10)}[0]})
	assert.True(t, IsValidation(err))

	_, err = f.svc.StudentAttendance(ctx, "missing", DateRange{})
	assert.True(t, IsNotFound(err))

	// 01:00 on the 12th at +05:30 is still the 11th in UTC
	colombo := time.FixedZone("+0530", 5*3600+1800)
	early := time.Date(2024, 6, 12, 1, 0, 0, 0, colombo)
	got, err = f.svc.StudentAttendance(ctx, s.ID, DateRange{From: &early})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, day(12), got[0].Day)

	late := time.Date(2024, 6, 11, 23, 0, 0, 0, time.FixedZone("-0300", -3*3600))
	got, err = f.svc.StudentAttendance(ctx, s.ID, DateRange{From: &late, To: &late})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, day(11), got[0].Day)
}

func TestTodayFollowsLocation(t *testing.T) {
	clock := &tickClock{cur: time.Date(2024, 6, 12, 20, 0, 0, 0, time.UTC)}
	colombo := time.FixedZone("+0530", 5*3600+1800)
	st := NewMemoryStore()
	svc := NewService(st, WithClock(clock.now), WithLocation(colombo))
	ctx := context.Background()

	tch, err := svc.CreateTeacher(ctx, NewTeacher{Name: "T", Subject: "P"})
	require.NoError(t, err)
	c, err := svc.CreateClass(ctx, NewClass{TeacherID: tch.ID, Subject: "P", ClassName: "C", Day: "Thursday", Time: "08:00"})
	require.NoError(t, err)
	s, err := svc.CreateStudent(ctx, NewStudent{Name: "N", NIC: "1", SchoolName: "S", Email: "n@example.com", Age: 10, Contact: "1", Stream: "X"})
	require.NoError(t, err)
	_, err = svc.Enroll(ctx, s.ID, c.ID)
	require.NoError(t, err)

	a, err := svc.MarkAttendance(ctx, AttendanceRequest{StudentID: s.ID, ClassID: c.ID})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC), a.Day)

	res, err := svc.SweepAbsentees(ctx, "system")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{c.ID: 0}, res, "thursday in Colombo")
}
