package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/vinyasa/internal/detector"
	"github.com/ayusman/vinyasa/internal/engine"
	"github.com/ayusman/vinyasa/internal/server/api"
)

const (
	// pingInterval is how often the server pings idle connections; pongWait
	// bounds how long a connection may go without answering.
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// PoseStreamHandler runs the real-time pose comparison loop over WebSocket.
// Each connection gets its own engine session; frames are read, dispatched
// through the engine, and answered with pose_result messages in order.
type PoseStreamHandler struct {
	engine *engine.Engine
}

// NewPoseStreamHandler creates a new PoseStreamHandler backed by the engine.
func NewPoseStreamHandler(e *engine.Engine) *PoseStreamHandler {
	return &PoseStreamHandler{engine: e}
}

// clientMessage is one inbound message. A present exercise field selects the
// exercise; a present frame field carries a base64 image, optionally with a
// data-URL prefix. Anything else is ignored.
type clientMessage struct {
	Exercise *string `json:"exercise"`
	Frame    *string `json:"frame"`
}

type sessionStartedMessage struct {
	Type     string `json:"type"`
	Exercise string `json:"exercise"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type poseResultMessage struct {
	Type          string       `json:"type"`
	Detected      bool         `json:"detected"`
	SkeletonColor string       `json:"skeleton_color"`
	Similarity    float64      `json:"similarity"`
	Confidence    float64      `json:"confidence"`
	Issues        []string     `json:"issues"`
	Good          []string     `json:"good"`
	Keypoints     [][3]float64 `json:"keypoints"`
}

// ServeHTTP upgrades the connection and runs the session loop until the
// client disconnects.
func (h *PoseStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	session := h.engine.NewSession()
	defer session.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go ping(conn, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		if msg.Exercise != nil {
			label, _ := session.SelectExercise(*msg.Exercise)
			if err := conn.WriteJSON(sessionStartedMessage{Type: "session_started", Exercise: label}); err != nil {
				return
			}
			continue
		}

		if msg.Frame == nil {
			continue
		}

		imageData, ok := decodeFramePayload(*msg.Frame)
		if !ok {
			continue
		}

		result, err := session.ProcessFrame(r.Context(), imageData)
		if err != nil {
			if errors.Is(err, detector.ErrUnavailable) {
				conn.WriteJSON(errorMessage{Type: "error", Message: err.Error()})
				return
			}
			if !errors.Is(err, engine.ErrBadImage) {
				log.Printf("websocket frame processing error: %v", err)
			}
			continue
		}

		if err := conn.WriteJSON(resultMessage(result)); err != nil {
			return
		}
	}
}

// decodeFramePayload strips an optional data-URL prefix and decodes the
// base64 image bytes.
func decodeFramePayload(payload string) ([]byte, bool) {
	if i := strings.IndexByte(payload, ','); i >= 0 {
		payload = payload[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, false
	}
	return data, true
}

func resultMessage(result *engine.StreamResult) poseResultMessage {
	color := "red"
	if result.Match {
		color = "green"
	}

	msg := poseResultMessage{
		Type:          "pose_result",
		Detected:      result.Detected,
		SkeletonColor: color,
		Similarity:    result.Similarity,
		Confidence:    result.Confidence,
		Issues:        result.Issues,
		Good:          result.Good,
		Keypoints:     [][3]float64{},
	}
	if result.Skeleton != nil {
		msg.Keypoints = api.RelativeKeypoints(result.Skeleton, result.FrameWidth, result.FrameHeight)
	}
	return msg
}

// ping keeps the connection alive until done closes or a write fails.
func ping(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
