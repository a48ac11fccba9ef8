package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/terra-clan/academy-engine/internal/progress"
)

const (
	playbackReadLimit   = 4096
	playbackIdleTimeout = 2 * time.Minute
	playbackWriteWait   = 10 * time.Second
)

// PlaybackMessage is exchanged with the video player over the playback socket.
// The player sends "heartbeat" with the current position in seconds and "ended"
// when the video finishes; the server answers with "progress" or "error".
type PlaybackMessage struct {
	Type     string                   `json:"type"`
	LessonID string                   `json:"lesson_id,omitempty"`
	Position float64                  `json:"position,omitempty"`
	Progress *progress.LessonProgress `json:"progress,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin applies the CORS origin list to WebSocket upgrades
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range s.allowedOrigins() {
		if allowed == "*" || allowed == origin || allowed == u.Scheme+"://"+u.Host {
			return true
		}
	}
	return false
}

func (s *Server) handlePlaybackWS(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	enrollment, err := s.learning.Enrollment(r.Context(), token)
	if err != nil {
		respondServiceError(w, err, "get enrollment")
		return
	}
	if !enrollment.IsActive() {
		respondError(w, http.StatusForbidden, "enrollment_inactive", "enrollment is not active")
		return
	}

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("playback websocket connected", "enrollment_id", enrollment.ID, "course", enrollment.CourseSlug)
	defer slog.Info("playback websocket disconnected", "enrollment_id", enrollment.ID)

	// Outlives the HTTP handler context once hijacked
	ctx := context.WithoutCancel(r.Context())

	conn.SetReadLimit(playbackReadLimit)
	conn.SetReadDeadline(time.Now().Add(playbackIdleTimeout))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "error", err)
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(playbackIdleTimeout))

		var msg PlaybackMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("invalid playback message", "error", err)
			if s.sendPlaybackError(conn, "", "invalid message format") != nil {
				break
			}
			continue
		}

		var lp *progress.LessonProgress
		switch msg.Type {
		case "heartbeat":
			lp, err = s.learning.RecordWatchTime(ctx, token, msg.LessonID, msg.Position)
		case "ended":
			lp, err = s.learning.CompleteLesson(ctx, token, msg.LessonID)
		default:
			if s.sendPlaybackError(conn, msg.LessonID, "unknown message type: "+msg.Type) != nil {
				return
			}
			continue
		}

		if err != nil {
			status, _ := errorStatus(err)
			reason := err.Error()
			if status == http.StatusInternalServerError {
				slog.Error("failed to record playback", "error", err, "lesson_id", msg.LessonID)
				reason = "failed to record progress"
			}
			if s.sendPlaybackError(conn, msg.LessonID, reason) != nil {
				break
			}
			continue
		}

		if s.sendPlaybackMessage(conn, PlaybackMessage{Type: "progress", LessonID: lp.LessonID, Progress: lp}) != nil {
			break
		}
	}
}

func (s *Server) sendPlaybackMessage(conn *websocket.Conn, msg PlaybackMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal playback message", "error", err)
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(playbackWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send playback message", "error", err)
		return err
	}
	return nil
}

func (s *Server) sendPlaybackError(conn *websocket.Conn, lessonID, message string) error {
	return s.sendPlaybackMessage(conn, PlaybackMessage{
		Type:     "error",
		LessonID: lessonID,
		Error:    message,
	})
}
