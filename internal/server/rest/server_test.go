package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/common"
	"github.com/dmitrijs2005/mindwell/internal/logging"
	"github.com/dmitrijs2005/mindwell/internal/server/auth"
	"github.com/dmitrijs2005/mindwell/internal/server/events"
	"github.com/dmitrijs2005/mindwell/internal/server/models"
	"github.com/dmitrijs2005/mindwell/internal/server/services"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret"
	testJobID  = "6f1c1f5e-3b52-4d57-8d3c-0f8a3a3f6a11"
)

type fakeService struct {
	mu        sync.Mutex
	submitted []services.Submission
	submitErr error
	views     map[string]models.JobView
	owners    map[string]int64
	checkIns  map[int64]*models.CheckIn
	audio     map[int64]string
	listArgs  [3]int64
}

func newFakeService() *fakeService {
	return &fakeService{
		views:    map[string]models.JobView{},
		owners:   map[string]int64{},
		checkIns: map[int64]*models.CheckIn{},
		audio:    map[int64]string{},
	}
}

func (f *fakeService) setView(v models.JobView, owner int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views[v.JobID] = v
	f.owners[v.JobID] = owner
}

func (f *fakeService) Submit(ctx context.Context, sub services.Submission) (*models.JobView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if sub.UserID <= 0 {
		return nil, common.ValidationError("userId must be a positive integer")
	}
	f.submitted = append(f.submitted, sub)
	return &models.JobView{JobID: testJobID, Status: common.StatusPending, Progress: 0}, nil
}

func (f *fakeService) Status(ctx context.Context, jobID string) (*models.JobView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.views[jobID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &v, nil
}

func (f *fakeService) JobOwner(ctx context.Context, jobID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	owner, ok := f.owners[jobID]
	if !ok {
		return 0, common.ErrorNotFound
	}
	return owner, nil
}

func (f *fakeService) Get(ctx context.Context, id int64, requester int64) (*models.CheckIn, error) {
	c, ok := f.checkIns[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if requester != 0 && requester != c.UserID {
		return nil, common.ErrorForbidden
	}
	return c, nil
}

func (f *fakeService) List(ctx context.Context, userID int64, limit, offset int) ([]*models.CheckIn, error) {
	f.listArgs = [3]int64{userID, int64(limit), int64(offset)}
	out := []*models.CheckIn{}
	for _, c := range f.checkIns {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeService) OpenAudio(ctx context.Context, id int64, requester int64) (io.ReadCloser, string, error) {
	data, ok := f.audio[id]
	if !ok {
		return nil, "", common.ErrorNotFound
	}
	return io.NopCloser(strings.NewReader(data)), "audio/webm", nil
}

func newTestServer(t *testing.T, authRequired bool) (*httptest.Server, *fakeService, *events.MemoryBroker) {
	t.Helper()
	svc := newFakeService()
	broker := events.NewMemoryBroker()
	s := NewHTTPServer(Options{
		SecretKey:      testSecret,
		AuthRequired:   authRequired,
		MaxUploadBytes: 1024,
	}, svc, broker, logging.NewNop())

	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return ts, svc, broker
}

type formFile struct {
	name        string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, file *formFile) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="audio"; filename="`+file.name+`"`)
		h.Set("Content-Type", file.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func doRequest(t *testing.T, method, url string, body io.Reader, contentType, token string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func decodeMessage(t *testing.T, b []byte) string {
	t.Helper()
	var e errorBody
	require.NoError(t, json.Unmarshal(b, &e))
	return e.Message
}

func TestSubmit(t *testing.T) {
	ts, svc, _ := newTestServer(t, false)

	body, ct := multipartBody(t, map[string]string{"userId": "7", "duration": "12.4", "mood": "calm"},
		&formFile{name: "rec.webm", contentType: "audio/webm;codecs=opus", data: []byte("sound")})
	resp, b := doRequest(t, http.MethodPost, ts.URL+"/api/voice-checkins", body, ct, "")

	require.Equal(t, http.StatusCreated, resp.StatusCode, string(b))
	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, map[string]any{"id": testJobID, "status": "pending", "progress": float64(0)}, got)

	require.Len(t, svc.submitted, 1)
	sub := svc.submitted[0]
	assert.Equal(t, int64(7), sub.UserID)
	assert.Equal(t, 12, sub.DurationSeconds)
	assert.Equal(t, "calm", sub.Mood)
	assert.Equal(t, []byte("sound"), sub.Audio)
	assert.Equal(t, "audio/webm", sub.ContentType)
}

func TestSubmit_Errors(t *testing.T) {
	tests := []struct {
		name       string
		fields     map[string]string
		file       *formFile
		submitErr  error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "bad user id",
			fields:     map[string]string{"userId": "abc", "text": "oi"},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "userId must be a positive integer",
		},
		{
			name:       "bad duration",
			fields:     map[string]string{"userId": "1", "duration": "long"},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "duration must be a number",
		},
		{
			name:       "too large",
			fields:     map[string]string{"userId": "1"},
			file:       &formFile{name: "a.webm", contentType: "audio/webm", data: make([]byte, 2<<20)},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantMsg:    "upload too large",
		},
		{
			name:       "audio over limit within form allowance",
			fields:     map[string]string{"userId": "1"},
			file:       &formFile{name: "a.webm", contentType: "audio/webm", data: []byte("sound")},
			submitErr:  fmt.Errorf("%w: audio exceeds 4 bytes", common.ErrTooLarge),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantMsg:    "upload too large",
		},
		{
			name:       "internal",
			fields:     map[string]string{"userId": "1", "text": "oi"},
			submitErr:  io.ErrUnexpectedEOF,
			wantStatus: http.StatusInternalServerError,
			wantMsg:    common.ErrorInternal.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, svc, _ := newTestServer(t, false)
			svc.submitErr = tt.submitErr

			body, ct := multipartBody(t, tt.fields, tt.file)
			resp, b := doRequest(t, http.MethodPost, ts.URL+"/api/voice-checkins", body, ct, "")

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantMsg, decodeMessage(t, b))
		})
	}
}

func TestSubmit_NotMultipart(t *testing.T) {
	ts, _, _ := newTestServer(t, false)
	resp, b := doRequest(t, http.MethodPost, ts.URL+"/api/voice-checkins", strings.NewReader("{}"), "application/json", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "multipart form expected", decodeMessage(t, b))
}

func TestSubmit_Auth(t *testing.T) {
	ts, svc, _ := newTestServer(t, true)
	token, err := auth.GenerateToken(7, []byte(testSecret), time.Hour)
	require.NoError(t, err)

	body, ct := multipartBody(t, map[string]string{"text": "oi"}, nil)
	resp, _ := doRequest(t, http.MethodPost, ts.URL+"/api/voice-checkins", body, ct, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body, ct = multipartBody(t, map[string]string{"text": "oi"}, nil)
	resp, _ = doRequest(t, http.MethodPost, ts.URL+"/api/voice-checkins", body, ct, "garbage")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body, ct = multipartBody(t, map[string]string{"userId": "8", "text": "oi"}, nil)
	resp, _ = doRequest(t, http.MethodPost, ts.URL+"/api/voice-checkins", body, ct, token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	body, ct = multipartBody(t, map[string]string{"text": "oi"}, nil)
	resp, _ = doRequest(t, http.MethodPost, ts.URL+"/api/voice-checkins", body, ct, token)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, svc.submitted, 1)
	assert.Equal(t, int64(7), svc.submitted[0].UserID)
}

func TestStatus(t *testing.T) {
	ts, svc, _ := newTestServer(t, false)
	id := int64(42)
	svc.setView(models.JobView{JobID: testJobID, Status: common.StatusCompleted, Progress: 100, ResultEntryID: &id}, 7)

	resp, b := doRequest(t, http.MethodGet, ts.URL+"/api/voice-checkins/status/"+testJobID, nil, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"completed","progress":100,"id":42}`, string(b))

	msg := "transcription failed"
	svc.setView(models.JobView{JobID: testJobID, Status: common.StatusError, Progress: 30, ErrorMessage: &msg}, 7)
	_, b = doRequest(t, http.MethodGet, ts.URL+"/api/voice-checkins/status/"+testJobID, nil, "", "")
	assert.JSONEq(t, `{"status":"error","progress":30,"errorMessage":"transcription failed"}`, string(b))

	resp, b = doRequest(t, http.MethodGet, ts.URL+"/api/voice-checkins/status/unknown", nil, "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not Found", decodeMessage(t, b))
}

func TestStatus_OtherUsersJob(t *testing.T) {
	ts, svc, _ := newTestServer(t, true)
	svc.setView(models.JobView{JobID: testJobID, Status: common.StatusPending}, 7)
	token, err := auth.GenerateToken(8, []byte(testSecret), time.Hour)
	require.NoError(t, err)

	resp, _ := doRequest(t, http.MethodGet, ts.URL+"/api/voice-checkins/status/"+testJobID, nil, "", token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestReadEndpoints(t *testing.T) {
	ts, svc, _ := newTestServer(t, false)
	svc.checkIns[1] = &models.CheckIn{ID: 1, UserID: 7, Title: "Um dia", PlaybackURL: "/api/voice-checkins/1/audio"}
	svc.audio[1] = "sound"

	resp, b := doRequest(t, http.MethodGet, ts.URL+"/api/voice-checkins/1", nil, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var c models.CheckIn
	require.NoError(t, json.Unmarshal(b, &c))
	assert.Equal(t, "Um dia", c.Title)
	assert.Equal(t, "/api/voice-checkins/1/audio", c.PlaybackURL)

	resp, b = doRequest(t, http.MethodGet, ts.URL+"/api/voice-checkins/1/audio", nil, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "sound", string(b))
	assert.Equal(t, "audio/webm", resp.Header.Get("Content-Type"))

	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/api/voice-checkins/abc", nil, "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, b = doRequest(t, http.MethodGet, ts.URL+"/api/users/7/voice-checkins?limit=5&offset=2", nil, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []models.CheckIn
	require.NoError(t, json.Unmarshal(b, &list))
	assert.Len(t, list, 1)
	assert.Equal(t, [3]int64{7, 5, 2}, svc.listArgs)

	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/api/users/7/voice-checkins?limit=x", nil, "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts, _, _ := newTestServer(t, true)
	resp, b := doRequest(t, http.MethodGet, ts.URL+"/healthz", nil, "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(b))
}

func TestStatusEvents(t *testing.T) {
	ts, svc, broker := newTestServer(t, false)
	svc.setView(models.JobView{JobID: testJobID, Status: common.StatusTranscribing, Progress: 30}, 7)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/voice-checkins/status/" + testJobID + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() statusResponse {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var v statusResponse
		require.NoError(t, conn.ReadJSON(&v))
		return v
	}

	first := read()
	assert.Equal(t, common.StatusTranscribing, first.Status)
	assert.Equal(t, 30, first.Progress)

	ctx := context.Background()
	id := int64(5)
	require.NoError(t, broker.Publish(ctx, models.JobView{JobID: testJobID, Status: common.StatusAnalyzing, Progress: 60}))
	require.NoError(t, broker.Publish(ctx, models.JobView{JobID: testJobID, Status: common.StatusTranscribing, Progress: 30}))
	require.NoError(t, broker.Publish(ctx, models.JobView{JobID: testJobID, Status: common.StatusCompleted, Progress: 100, ResultEntryID: &id}))

	assert.Equal(t, 60, read().Progress)
	last := read()
	assert.Equal(t, common.StatusCompleted, last.Status)
	require.NotNil(t, last.ID)
	assert.Equal(t, id, *last.ID)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestStatusEvents_UnknownJob(t *testing.T) {
	ts, _, _ := newTestServer(t, false)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/voice-checkins/status/" + testJobID + "/events"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
