package ws

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/threadline/artifactd/internal/artifact"
	"github.com/threadline/artifactd/internal/infrastructure/logging"
	"github.com/threadline/artifactd/internal/infrastructure/monitoring"
	"github.com/threadline/artifactd/internal/runtime"
	"github.com/threadline/artifactd/internal/runtime/canvas"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// ClientMessage is what clients send over the socket.
type ClientMessage struct {
	Type       string           `json:"type"`
	InstanceID string           `json:"instance_id"`
	Artifact   *artifact.Parsed `json:"artifact,omitempty"`
}

// Handler streams live sandbox output over WebSocket connections.
type Handler struct {
	execs     *runtime.Manager
	maxFrames int
	metrics   *monitoring.Metrics
	logger    *logging.Logger
}

// NewHandler creates a WebSocket handler.
func NewHandler(execs *runtime.Manager, maxFrames int, metrics *monitoring.Metrics, logger *logging.Logger) *Handler {
	return &Handler{
		execs:     execs,
		maxFrames: maxFrames,
		metrics:   metrics,
		logger:    logger.Named("ws"),
	}
}

// HandleConnection handles WebSocket upgrade and messages.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.WSConnections.Inc()
		defer h.metrics.WSConnections.Dec()
	}

	h.send(conn, map[string]any{
		"type":    "system",
		"message": "Connected to artifactd",
	})

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			break
		}

		switch msg.Type {
		case "run":
			h.handleRun(conn, msg)
		case "stop":
			h.handleStop(conn, msg)
		case "ping":
			h.send(conn, map[string]any{"type": "pong"})
		default:
			h.sendError(conn, "unknown message type: "+msg.Type)
		}
	}
}

// handleRun executes a code or canvas artifact and relays every realm
// message as it arrives, then the terminal result. Runs are serialized per
// connection; a second run request on the same instance implicitly stops
// the first.
func (h *Handler) handleRun(conn *websocket.Conn, msg ClientMessage) {
	if msg.InstanceID == "" {
		h.sendError(conn, "instance_id is required")
		return
	}
	if msg.Artifact == nil {
		h.sendError(conn, "artifact is required")
		return
	}

	prog, export, err := h.buildProgram(msg.Artifact)
	if err != nil {
		h.sendError(conn, err.Error())
		return
	}

	handle, err := h.execs.Controller(msg.InstanceID).Run(prog)
	if err != nil {
		h.sendError(conn, err.Error())
		return
	}

	h.send(conn, map[string]any{
		"type":        "run_started",
		"instance_id": msg.InstanceID,
		"timestamp":   time.Now().Unix(),
	})

	for m := range handle.Messages {
		payload := runtime.Encode(m)
		// Frames must hold a valid wire shape before they leave the process.
		if _, err := runtime.Decode(payload); err != nil {
			h.logger.Warn("dropping malformed realm message", zap.Error(err))
			continue
		}
		h.send(conn, payload)
	}

	result := handle.Wait()
	final := map[string]any{
		"type":        "run_complete",
		"instance_id": msg.InstanceID,
		"result":      result,
		"timestamp":   time.Now().Unix(),
	}
	if export != nil {
		final["frames"] = export.Frames()
		if png, err := export.PNG(); err != nil {
			final["render_error"] = "canvas export failed: " + err.Error()
		} else if len(png) > 0 {
			final["image_png"] = base64.StdEncoding.EncodeToString(png)
		}
	}
	h.send(conn, final)
}

func (h *Handler) handleStop(conn *websocket.Conn, msg ClientMessage) {
	if msg.InstanceID == "" {
		h.sendError(conn, "instance_id is required")
		return
	}
	if err := h.execs.Stop(msg.InstanceID); err != nil {
		if errors.Is(err, runtime.ErrNotRunning) {
			h.send(conn, map[string]any{
				"type":        "stopped",
				"instance_id": msg.InstanceID,
				"active":      false,
			})
			return
		}
		h.sendError(conn, err.Error())
		return
	}
	h.send(conn, map[string]any{
		"type":        "stopped",
		"instance_id": msg.InstanceID,
		"active":      true,
	})
}

// buildProgram turns a streamable artifact into a sandbox program. Canvas
// artifacts also return the export slot the final frame lands in.
func (h *Handler) buildProgram(art *artifact.Parsed) (runtime.Program, *canvas.Export, error) {
	switch art.Type {
	case artifact.TypeCode:
		if art.Code == nil {
			return runtime.Program{}, nil, errors.New("artifact carries no code payload")
		}
		source, err := runtime.Downlevel(art.Code.Language, art.Code.Code)
		if err != nil {
			return runtime.Program{}, nil, err
		}
		return runtime.Program{Source: source}, nil, nil
	case artifact.TypeCanvas:
		if art.Canvas == nil {
			return runtime.Program{}, nil, errors.New("artifact carries no canvas payload")
		}
		p := art.Canvas
		mode := canvas.DetectMode(p.Mode, p.Code)
		prog, export := canvas.NewProgram(p.Code, mode, p.Width, p.Height, h.maxFrames)
		return prog, export, nil
	default:
		return runtime.Program{}, nil, errors.New("artifact type is not streamable: " + string(art.Type))
	}
}

func (h *Handler) send(conn *websocket.Conn, data any) error {
	return conn.WriteJSON(data)
}

func (h *Handler) sendError(conn *websocket.Conn, msg string) error {
	return h.send(conn, map[string]any{
		"type":      "error",
		"message":   msg,
		"timestamp": time.Now().Unix(),
	})
}
