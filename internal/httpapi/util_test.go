package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorcenter/internal/auth"
	"tutorcenter/internal/media"
	"tutorcenter/internal/queue"
	"tutorcenter/internal/tutoring"
)

const signingKey = "test-signing-key"

// 2024-06-12 is a Wednesday.
var testStart = time.Date(2024, 6, 12, 9, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

type testServer struct {
	app       *gin.Engine
	svc       *tutoring.Service
	store     tutoring.Store
	queue     *queue.InMemory
	uploadDir string
}

func newTestServer(t *testing.T, opts ...func(*Config)) *testServer {
	t.Helper()
	return newTestServerWithStore(t, tutoring.NewMemoryStore(), opts...)
}

func newTestServerWithStore(t *testing.T, st tutoring.Store, opts ...func(*Config)) *testServer {
	t.Helper()
	clock := &stepClock{cur: testStart}
	svc := tutoring.NewService(st, tutoring.WithClock(clock.now))
	dir := t.TempDir()
	local, err := media.NewLocal(dir)
	require.NoError(t, err)
	q := queue.NewInMemory(8)

	cfg := Config{
		Service: svc,
		Media:   local,
		Queue:   q,
		Staff: auth.StaffOptions{
			SigningKey:   signingKey,
			Issuer:       "tutorcenter",
			DefaultActor: auth.Actor{ID: "front-desk"},
		},
		UploadDir:      dir,
		UploadMaxBytes: 1 << 20,
	}
	for _, o := range opts {
		o(&cfg)
	}
	return &testServer{app: NewRouter(cfg), svc: svc, store: st, queue: q, uploadDir: dir}
}

func (s *testServer) do(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	s.app.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, s.do(req, rec))
		})
	}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func newMultipartRequest(t *testing.T, method, path string, fields map[string]string, filename string, file []byte) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		part, err := w.CreateFormFile("profilePicture", filename)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, httptest.NewRecorder()
}

func getToken(t *testing.T, staffID string) string {
	t.Helper()
	pair, err := auth.Issue(staffID, "Desk", auth.RoleStaff, "tutorcenter", signingKey, time.Hour, 2*time.Hour)
	require.NoError(t, err)
	return pair.AccessToken
}

func marshalObj(t *testing.T, obj any) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 any
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// seed creates a teacher, a Wednesday class and a student through the service.
func (s *testServer) seed(t *testing.T) (tutoring.Student, tutoring.ClassWithTeacher) {
	t.Helper()
	ctx := context.Background()
	tch, err := s.svc.CreateTeacher(ctx, tutoring.NewTeacher{Name: "Sunil Perera", Subject: "Physics"})
	require.NoError(t, err)
	cl, err := s.svc.CreateClass(ctx, tutoring.NewClass{
		TeacherID: tch.ID, Subject: "Physics", ClassName: "A/L Physics", Day: "Wednesday", Time: "16:00", Fee: 5000,
	})
	require.NoError(t, err)
	stu, err := s.svc.CreateStudent(ctx, tutoring.NewStudent{
		Name: "Nimal Silva", NIC: "200012345678", SchoolName: "Royal College", Email: "nimal@example.com",
		Age: 17, Contact: "0771234567", Stream: "Physical Science",
	})
	require.NoError(t, err)
	return stu, cl
}
