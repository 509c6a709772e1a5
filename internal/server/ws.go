package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"rex/internal/invocation"
)

const (
	wsPollInterval = 500 * time.Millisecond
	wsPingInterval = 30 * time.Second
	wsWriteWait    = 10 * time.Second
)

// wsMessage is one frame pushed to a log tail client.
type wsMessage struct {
	Type      string               `json:"type"` // log, eof
	TaskID    string               `json:"task_id"`
	Kind      invocation.EventKind `json:"kind,omitempty"`
	Text      string               `json:"text,omitempty"`
	Raw       string               `json:"raw,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// handleTaskLogStream upgrades to a websocket and tails the task's tool
// stream, one summarized event per frame. The tail ends with an eof frame
// once the task finishes and the sink stops growing.
func (s *Server) handleTaskLogStream(c *gin.Context) {
	taskID := c.Param("id")
	if _, err := s.store.Get(taskID); err != nil {
		c.JSON(http.StatusNotFound, apiResponse{Success: false, Error: err.Error()})
		return
	}

	conn, err := s.wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade for task %s: %v", taskID, err)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()
	s.tailSink(conn, taskID)
}

// tailSink pumps sink lines to the client until the task ends, the client
// disconnects, or the server stops.
func (s *Server) tailSink(conn *websocket.Conn, taskID string) {
	defer conn.Close()

	// Reader pump: the only reads we expect are control frames and the
	// client's close.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	sinkPath := invocation.NewSink(s.logDir, taskID).Path()
	var offset int64

	poll := time.NewTicker(wsPollInterval)
	defer poll.Stop()
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-clientGone:
			return
		case <-ping.C:
			deadline := time.Now().Add(wsWriteWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-poll.C:
			lines, newOffset, err := invocation.ReadCompleteLines(sinkPath, offset)
			if err != nil {
				s.logger.Warn("tail sink for task %s: %v", taskID, err)
				return
			}
			offset = newOffset

			for _, line := range lines {
				summary, ok := invocation.SummarizeLine(line)
				if !ok {
					continue
				}
				frame := wsMessage{
					Type:      "log",
					TaskID:    taskID,
					Kind:      summary.Kind,
					Text:      summary.Text,
					Raw:       line,
					Timestamp: time.Now().UTC(),
				}
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteJSON(frame); err != nil {
					return
				}
			}

			if len(lines) == 0 {
				task, err := s.store.Get(taskID)
				if err != nil || task.Finished() {
					conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
					_ = conn.WriteJSON(wsMessage{
						Type:      "eof",
						TaskID:    taskID,
						Timestamp: time.Now().UTC(),
					})
					return
				}
			}
		}
	}
}
