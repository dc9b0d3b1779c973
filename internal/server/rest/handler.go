package rest

import (
	"errors"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/mindwell/internal/common"
	"github.com/dmitrijs2005/mindwell/internal/server/models"
	"github.com/dmitrijs2005/mindwell/internal/server/services"
	"github.com/gin-gonic/gin"
)

const (
	defaultAudioType = "audio/webm"
	// formOverhead leaves room for the non-file multipart fields.
	formOverhead = 1 << 20
)

type submitResponse struct {
	ID       string           `json:"id"`
	Status   common.JobStatus `json:"status"`
	Progress int              `json:"progress"`
}

type statusResponse struct {
	Status       common.JobStatus `json:"status"`
	Progress     int              `json:"progress"`
	ID           *int64           `json:"id,omitempty"`
	ErrorMessage *string          `json:"errorMessage,omitempty"`
}

func toStatusResponse(v models.JobView) statusResponse {
	return statusResponse{
		Status:       v.Status,
		Progress:     v.Progress,
		ID:           v.ResultEntryID,
		ErrorMessage: v.ErrorMessage,
	}
}

func (s *HTTPServer) submit(c *gin.Context) {
	ctx := c.Request.Context()

	if s.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload+formOverhead)
	}

	sub, err := s.readSubmission(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = common.ErrTooLarge
		}
		abortWithError(c, err)
		return
	}
	if err := authorize(c, sub.UserID); err != nil {
		abortWithError(c, err)
		return
	}

	v, err := s.checkins.Submit(ctx, *sub)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			s.logger.Error(ctx, "submit failed", "error", err)
		}
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, submitResponse{ID: v.JobID, Status: v.Status, Progress: v.Progress})
}

func (s *HTTPServer) readSubmission(c *gin.Context) (*services.Submission, error) {
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, common.ValidationError("multipart form expected")
	}

	sub := &services.Submission{
		Text: strings.TrimSpace(c.PostForm("text")),
		Mood: strings.TrimSpace(c.PostForm("mood")),
	}

	if raw := c.PostForm("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, common.ValidationError("userId must be a positive integer")
		}
		sub.UserID = id
	} else {
		sub.UserID = requester(c)
	}

	if raw := c.PostForm("duration"); raw != "" {
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, common.ValidationError("duration must be a number")
		}
		sub.DurationSeconds = int(math.Round(d))
	}

	files := form.File["audio"]
	if len(files) == 0 {
		return sub, nil
	}
	fh := files[0]

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if sub.Audio, err = io.ReadAll(f); err != nil {
		return nil, err
	}
	sub.ContentType = audioType(fh.Header.Get("Content-Type"))
	return sub, nil
}

// audioType normalizes the part's content type, dropping codec parameters.
func audioType(raw string) string {
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil || mt == "" || mt == "application/octet-stream" {
		return defaultAudioType
	}
	return mt
}

func (s *HTTPServer) status(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("jobId")

	if err := s.checkJobOwner(c, jobID); err != nil {
		abortWithError(c, err)
		return
	}

	v, err := s.checkins.Status(ctx, jobID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toStatusResponse(*v))
}

func (s *HTTPServer) checkJobOwner(c *gin.Context, jobID string) error {
	if requester(c) == 0 {
		return nil
	}
	owner, err := s.checkins.JobOwner(c.Request.Context(), jobID)
	if err != nil {
		return err
	}
	return authorize(c, owner)
}

func (s *HTTPServer) getCheckIn(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	checkIn, err := s.checkins.Get(c.Request.Context(), id, requester(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, checkIn)
}

func (s *HTTPServer) audio(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	rc, contentType, err := s.checkins.OpenAudio(c.Request.Context(), id, requester(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}

func (s *HTTPServer) listCheckIns(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	if err := authorize(c, userID); err != nil {
		abortWithError(c, err)
		return
	}

	limit, err := queryInt(c, "limit")
	if err != nil {
		abortWithError(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		abortWithError(c, err)
		return
	}

	list, err := s.checkins.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// pathID parses a positive integer path parameter; anything else is a 404.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		abortWithError(c, common.ErrorNotFound)
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, common.ValidationError(name + " must be an integer")
	}
	return n, nil
}
