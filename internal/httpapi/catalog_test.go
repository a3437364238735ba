package httpapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorcenter/internal/tutoring"
)

func TestTeacherRoutes(t *testing.T) {
	s := newTestServer(t)

	req, rec := newRequest(http.MethodPost, "/v1/teachers", []byte(`{"name":"Sunil Perera","subject":"Physics","contact":"0712223334"}`))
	s.do(req, rec)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tch := decode[struct {
		Teacher tutoring.Teacher `json:"teacher"`
	}](t, rec).Teacher
	assert.Equal(t, "Sunil Perera", tch.Name)

	s.run(t, []httpTest{
		{name: "missing subject", method: http.MethodPost, path: "/v1/teachers", body: []byte(`{"name":"X"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"subject":"this field is required"}`)},
		{name: "list", method: http.MethodGet, path: "/v1/teachers", wantCode: http.StatusOK,
			wantData: marshalObj(t, []tutoring.Teacher{tch})},
		{name: "get", method: http.MethodGet, path: "/v1/teachers/" + tch.ID, wantCode: http.StatusOK,
			wantData: marshalObj(t, tch)},
		{name: "get missing", method: http.MethodGet, path: "/v1/teachers/nope", wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: "Teacher not found"})},
		{name: "update", method: http.MethodPut, path: "/v1/teachers/" + tch.ID, body: []byte(`{"subject":"Chemistry"}`),
			wantCode: http.StatusOK},
	})

	got, err := s.svc.GetTeacher(context.Background(), tch.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chemistry", got.Subject)
	assert.Equal(t, "0712223334", got.Contact)
}

func TestClassRoutes(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	tch, err := s.svc.CreateTeacher(ctx, tutoring.NewTeacher{Name: "Sunil", Subject: "Physics"})
	require.NoError(t, err)

	body := marshalObj(t, map[string]any{
		"teacherId": tch.ID, "subject": "Physics", "className": "A/L Physics", "day": "monday", "time": "16:30", "fee": 4500,
	})
	req, rec := newRequest(http.MethodPost, "/v1/classes", body)
	s.do(req, rec)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cl := decode[struct {
		Class tutoring.ClassWithTeacher `json:"class"`
	}](t, rec).Class
	assert.Equal(t, "Monday", cl.Day, "day is canonicalised")
	require.NotNil(t, cl.Teacher)
	assert.Equal(t, tch.ID, cl.Teacher.ID)

	s.run(t, []httpTest{
		{
			name:   "bad day and time",
			method: http.MethodPost,
			path:   "/v1/classes",
			body: marshalObj(t, map[string]any{
				"teacherId": tch.ID, "subject": "P", "className": "C", "day": "Funday", "time": "25:00",
			}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"day":"must be a day of the week","time":"must be a time in HH:MM format"}`),
		},
		{
			name:     "unknown teacher",
			method:   http.MethodPost,
			path:     "/v1/classes",
			body:     marshalObj(t, map[string]any{"teacherId": "nope", "subject": "P", "className": "C", "day": "Monday", "time": "08:00"}),
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: "Teacher not found"}),
		},
		{name: "filter by day", method: http.MethodGet, path: "/v1/classes?day=MONDAY", wantCode: http.StatusOK,
			wantData: marshalObj(t, []tutoring.ClassWithTeacher{cl})},
		{name: "filter by other day", method: http.MethodGet, path: "/v1/classes?day=Tuesday", wantCode: http.StatusOK,
			wantData: []byte(`[]`)},
		{name: "bad day filter", method: http.MethodGet, path: "/v1/classes?day=someday", wantCode: http.StatusBadRequest},
		{name: "update fee", method: http.MethodPut, path: "/v1/classes/" + cl.ID, body: []byte(`{"fee":5000}`),
			wantCode: http.StatusOK},
		{name: "delete teacher with class", method: http.MethodDelete, path: "/v1/teachers/" + tch.ID,
			wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: "Teacher still has 1 class(es)"})},
	})

	got, err := s.svc.GetClass(ctx, cl.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), got.Fee)
}

func TestDeleteClassGuard(t *testing.T) {
	s := newTestServer(t)
	stu, cl := s.seed(t)
	_, err := s.svc.Enroll(context.Background(), stu.ID, cl.ID)
	require.NoError(t, err)

	s.run(t, []httpTest{
		{name: "with enrollment", method: http.MethodDelete, path: "/v1/classes/" + cl.ID, wantCode: http.StatusConflict,
			wantData: marshalObj(t, httpErr{Error: "Class still has 1 enrolled student(s)"})},
		{name: "unenroll", method: http.MethodPost, path: "/v1/students/" + stu.ID + "/unenroll",
			body: marshalObj(t, map[string]string{"classId": cl.ID}), wantCode: http.StatusOK},
		{name: "now empty", method: http.MethodDelete, path: "/v1/classes/" + cl.ID, wantCode: http.StatusOK,
			wantData: []byte(`{"message":"Class deleted successfully"}`)},
		{name: "gone", method: http.MethodGet, path: "/v1/classes/" + cl.ID, wantCode: http.StatusNotFound},
	})
}
