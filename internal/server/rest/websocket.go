package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// events streams status snapshots of one job until it is terminal.
func (s *HTTPServer) events(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("jobId")

	if err := s.checkJobOwner(c, jobID); err != nil {
		abortWithError(c, err)
		return
	}

	// subscribe before reading the snapshot so no transition falls in between
	updates, cancel, err := s.broker.Subscribe(ctx, jobID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	defer cancel()

	current, err := s.checkins.Status(ctx, jobID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn(ctx, "websocket upgrade failed", "job_id", jobID, "error", err)
		return
	}
	defer conn.Close()

	s.stream(ctx, conn, *current, updates)
}

func (s *HTTPServer) stream(ctx context.Context, conn *websocket.Conn, last models.JobView, updates <-chan models.JobView) {
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := writeStatus(conn, last); err != nil {
		return
	}

	for !last.Status.IsTerminal() {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case v, ok := <-updates:
			if !ok {
				return
			}
			// drop snapshots that arrive out of order
			if !v.Status.IsTerminal() && v.Progress < last.Progress {
				continue
			}
			last = v
			if err := writeStatus(conn, last); err != nil {
				s.logger.Debug(ctx, "websocket write failed", "job_id", v.JobID, "error", err)
				return
			}
		}
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(last.Status))
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

func writeStatus(conn *websocket.Conn, v models.JobView) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(toStatusResponse(v))
}
