package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/client/models"
	"github.com/dmitrijs2005/mindwell/internal/netx"
	"github.com/go-resty/resty/v2"
)

// Client is the MindWell API contract used by the CLI.
type Client interface {
	SetToken(token string)
	Ping(ctx context.Context) error
	Submit(ctx context.Context, req *SubmitRequest) (*models.JobHandle, error)
	Status(ctx context.Context, jobID string) (*models.JobStatus, error)
	CheckIn(ctx context.Context, id int64) (*models.CheckIn, error)
	ListCheckIns(ctx context.Context, userID int64, limit, offset int) ([]*models.CheckIn, error)
	DownloadAudio(ctx context.Context, playbackURL string, w io.Writer) (int64, error)
}

// SubmitRequest is one multipart upload. Audio may be empty for a text-only check-in.
type SubmitRequest struct {
	UserID          int64
	DurationSeconds int
	Text            string
	Mood            string
	Audio           []byte
	FileName        string
	ContentType     string
}

type errorBody struct {
	Message string `json:"message"`
}

// HTTPClient talks to the REST API through resty.
type HTTPClient struct {
	http *resty.Client
}

var _ Client = (*HTTPClient)(nil)

// New builds a client for baseURL. An empty token sends no Authorization header.
func New(baseURL, token string, timeout time.Duration) *HTTPClient {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if token != "" {
		c.SetAuthToken(token)
	}
	return &HTTPClient{http: c}
}

// SetToken replaces the bearer token used on API calls.
func (c *HTTPClient) SetToken(token string) {
	c.http.SetAuthToken(token)
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/healthz")
	if err != nil {
		return networkError(err)
	}
	return checkResponse(resp)
}

// Submit posts a check-in. The form is always multipart; the audio part is
// attached only when there is audio.
func (c *HTTPClient) Submit(ctx context.Context, req *SubmitRequest) (*models.JobHandle, error) {
	fields := map[string]string{
		"duration": strconv.Itoa(req.DurationSeconds),
	}
	if req.UserID != 0 {
		fields["userId"] = strconv.FormatInt(req.UserID, 10)
	}
	if req.Text != "" {
		fields["text"] = req.Text
	}
	if req.Mood != "" {
		fields["mood"] = req.Mood
	}

	var handle models.JobHandle
	r := c.http.R().
		SetContext(ctx).
		SetMultipartFormData(fields).
		SetResult(&handle).
		SetError(&errorBody{})

	if len(req.Audio) > 0 {
		name := req.FileName
		if name == "" {
			name = "checkin.webm"
		}
		contentType := req.ContentType
		if contentType == "" {
			contentType = "audio/webm"
		}
		r.SetMultipartField("audio", name, contentType, bytes.NewReader(req.Audio))
	}

	resp, err := r.Post("/api/voice-checkins")
	if err != nil {
		return nil, networkError(err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return &handle, nil
}

func (c *HTTPClient) Status(ctx context.Context, jobID string) (*models.JobStatus, error) {
	var st models.JobStatus
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("jobId", jobID).
		SetResult(&st).
		SetError(&errorBody{}).
		Get("/api/voice-checkins/status/{jobId}")
	if err != nil {
		return nil, networkError(err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *HTTPClient) CheckIn(ctx context.Context, id int64) (*models.CheckIn, error) {
	var ci models.CheckIn
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		SetResult(&ci).
		SetError(&errorBody{}).
		Get("/api/voice-checkins/{id}")
	if err != nil {
		return nil, networkError(err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return &ci, nil
}

func (c *HTTPClient) ListCheckIns(ctx context.Context, userID int64, limit, offset int) ([]*models.CheckIn, error) {
	list := make([]*models.CheckIn, 0)
	r := c.http.R().
		SetContext(ctx).
		SetPathParam("userId", strconv.FormatInt(userID, 10)).
		SetResult(&list).
		SetError(&errorBody{})
	if limit > 0 {
		r.SetQueryParam("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		r.SetQueryParam("offset", strconv.Itoa(offset))
	}

	resp, err := r.Get("/api/users/{userId}/voice-checkins")
	if err != nil {
		return nil, networkError(err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return list, nil
}

// DownloadAudio writes a check-in's audio to w. Relative playback URLs are
// served by the API and carry the access token; absolute ones are presigned
// and fetched without credentials.
func (c *HTTPClient) DownloadAudio(ctx context.Context, playbackURL string, w io.Writer) (int64, error) {
	if playbackURL == "" {
		return 0, fmt.Errorf("check-in has no audio")
	}
	if strings.HasPrefix(playbackURL, "http://") || strings.HasPrefix(playbackURL, "https://") {
		n, err := netx.Download(ctx, playbackURL, w)
		if err != nil {
			return n, fmt.Errorf("audio download: %w", err)
		}
		return n, nil
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(playbackURL)
	if err != nil {
		return 0, networkError(err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		var eb errorBody
		b, _ := io.ReadAll(io.LimitReader(body, 4096))
		_ = c.http.JSONUnmarshal(b, &eb)
		return 0, &APIError{Status: resp.StatusCode(), Message: eb.Message}
	}
	return io.Copy(w, body)
}

func checkResponse(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	apiErr := &APIError{Status: resp.StatusCode()}
	if eb, ok := resp.Error().(*errorBody); ok && eb != nil {
		apiErr.Message = eb.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode())
	}
	return apiErr
}
