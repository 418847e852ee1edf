package detector

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"gocv.io/x/gocv"

	"github.com/ayusman/vinyasa/internal/pose"
)

// idleShutdown is how long the Python process may sit unused before it is
// stopped. It restarts lazily on the next detection.
const idleShutdown = 30 * time.Second

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
// Frames and results travel over stdin/stdout as length-prefixed MessagePack
// messages: a 4-byte big-endian length followed by the encoded payload.
type MediaPipeDetector struct {
	config    Config
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	lastUsed  time.Time
	idleTimer *time.Timer
}

// bridgeRequest is one frame sent to the Python landmarker.
type bridgeRequest struct {
	Image []byte `msgpack:"image"`
}

// bridgeResponse is the landmarker's answer: 33 normalized landmarks as
// [x, y, visibility] triples when a pose was found.
type bridgeResponse struct {
	Detected  bool        `msgpack:"detected"`
	Landmarks [][]float64 `msgpack:"landmarks"`
	Error     string      `msgpack:"error"`
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	if findLandmarkerScript(config.ScriptPath) == "" {
		return nil, fmt.Errorf("%w: pose_landmarker.py not found", ErrUnavailable)
	}

	return &MediaPipeDetector{
		config: config,
	}, nil
}

// Detect sends a frame to the landmarker and returns the skeleton in pixel
// coordinates, or nil when no person is visible.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) (*pose.Skeleton, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	payload, err := msgpack.Marshal(bridgeRequest{Image: buf.GetBytes()})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if err := d.writeMessage(payload); err != nil {
		// The process is likely gone. Tear it down so the next call
		// restarts it.
		d.shutdown()
		return nil, fmt.Errorf("write frame: %w", err)
	}

	respData, err := d.readMessage()
	if err != nil {
		d.shutdown()
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp bridgeResponse
	if err := msgpack.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	d.lastUsed = time.Now()
	d.resetIdleTimer()

	if resp.Error != "" {
		return nil, fmt.Errorf("landmarker: %s", resp.Error)
	}
	if !resp.Detected {
		return nil, nil
	}

	landmarks := make([]Landmark, 0, len(resp.Landmarks))
	for _, lm := range resp.Landmarks {
		if len(lm) != 3 {
			return nil, fmt.Errorf("malformed landmark with %d components", len(lm))
		}
		landmarks = append(landmarks, Landmark{X: lm[0], Y: lm[1], Visibility: lm[2]})
	}

	skeleton := SkeletonFromLandmarks(landmarks, frame.Cols(), frame.Rows())
	if skeleton == nil {
		return nil, fmt.Errorf("expected %d landmarks, got %d", NumLandmarks, len(landmarks))
	}
	return skeleton, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) writeMessage(payload []byte) error {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(payload)))

	if _, err := d.stdin.Write(length); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

func (d *MediaPipeDetector) readMessage() ([]byte, error) {
	length := make([]byte, 4)
	if _, err := io.ReadFull(d.stdout, length); err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}

	payload := make([]byte, binary.BigEndian.Uint32(length))
	if _, err := io.ReadFull(d.stdout, payload); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return payload, nil
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	scriptPath := findLandmarkerScript(d.config.ScriptPath)
	if scriptPath == "" {
		return fmt.Errorf("%w: pose_landmarker.py not found", ErrUnavailable)
	}

	pythonPath := d.config.PythonPath
	if pythonPath == "" {
		pythonPath = findVenvPython()
	}
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d.cmd = exec.Command(pythonPath, scriptPath,
		"--min-detection-confidence", fmt.Sprintf("%.2f", d.config.MinDetectionConfidence),
		"--min-tracking-confidence", fmt.Sprintf("%.2f", d.config.MinTrackingConfidence),
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Surface Python tracebacks and MediaPipe warnings
	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("%w: start landmarker: %v", ErrUnavailable, err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	d.lastUsed = time.Now()

	return nil
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

// findLandmarkerScript locates pose_landmarker.py, preferring an explicit
// override from configuration.
func findLandmarkerScript(override string) string {
	if override != "" {
		if _, err := os.Stat(override); err == nil {
			return override
		}
		return ""
	}

	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/pose_landmarker.py",
		"../scripts/pose_landmarker.py",
		filepath.Join(execDir, "scripts/pose_landmarker.py"),
		filepath.Join(os.Getenv("HOME"), ".vinyasa/scripts/pose_landmarker.py"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
// It checks for venv/bin/python relative to the project directory.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".vinyasa/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
