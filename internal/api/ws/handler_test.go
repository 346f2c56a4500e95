package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadline/artifactd/internal/infrastructure/logging"
	"github.com/threadline/artifactd/internal/runtime"
)

func dialStream(t *testing.T) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)

	execs := runtime.NewManager(runtime.Config{
		Timeout:        5 * time.Second,
		MaxSourceBytes: 64 * 1024,
		MaxLogEntries:  100,
	}, nil)
	t.Cleanup(execs.Close)

	router := gin.New()
	h := NewHandler(execs, 5, nil, logging.NewNop())
	router.GET("/stream", h.HandleConnection)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var welcome map[string]any
	require.NoError(t, conn.ReadJSON(&welcome))
	require.Equal(t, "system", welcome["type"])
	return conn
}

func TestStreamRunDeliversValidFrames(t *testing.T) {
	conn := dialStream(t)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":        "run",
		"instance_id": "inst_ws",
		"artifact": map[string]any{
			"type": "code",
			"code": map[string]any{
				"language":   "javascript",
				"code":       "console.log('over the wire')",
				"executable": true,
			},
		},
	}))

	var started map[string]any
	require.NoError(t, conn.ReadJSON(&started))
	assert.Equal(t, "run_started", started["type"])

	var sawLog bool
	for {
		var frame map[string]any
		require.NoError(t, conn.ReadJSON(&frame))
		if frame["type"] == "run_complete" {
			result, ok := frame["result"].(map[string]any)
			require.True(t, ok, "run_complete carries the result")
			assert.Equal(t, "completed", result["state"])
			break
		}

		msg, err := runtime.Decode(frame)
		require.NoError(t, err, "streamed frame %v is not a valid realm message", frame)
		if log, ok := msg.(runtime.LogMessage); ok {
			require.Len(t, log.Args, 1)
			assert.Equal(t, "over the wire", log.Args[0])
			sawLog = true
		}
	}
	assert.True(t, sawLog, "the run's console output was streamed")
}

func TestStreamRunRequiresArtifact(t *testing.T) {
	conn := dialStream(t)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":        "run",
		"instance_id": "inst_ws",
	}))

	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "error", frame["type"])
}

func TestStreamStopWithoutRun(t *testing.T) {
	conn := dialStream(t)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":        "stop",
		"instance_id": "inst_ws",
	}))

	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "stopped", frame["type"])
	assert.Equal(t, false, frame["active"])
}

func TestStreamPing(t *testing.T) {
	conn := dialStream(t)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ping"}))

	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "pong", frame["type"])
}
