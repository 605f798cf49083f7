package predictor

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os/exec"

	"github.com/df07/go-iile/pkg/film"
	"github.com/df07/go-iile/pkg/log"
)

// StreamConnector exchanges maps with a predictor over a byte stream. A
// request is the radiance map (W*H*3), the distance map (W*H) and the normal
// map (W*H*3) as little-endian float32; the response is W*H*3 float32 of
// predicted radiance.
type StreamConnector struct {
	w      *bufio.Writer
	r      *bufio.Reader
	closed bool
}

// NewStreamConnector frames requests onto w and reads responses from r
func NewStreamConnector(w io.Writer, r io.Reader) *StreamConnector {
	return &StreamConnector{
		w: bufio.NewWriter(w),
		r: bufio.NewReader(r),
	}
}

// Predict performs one synchronous round trip
func (s *StreamConnector) Predict(ctx context.Context, radiance, normals, distance *film.Grid[float32]) (*film.Grid[float32], error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := CheckMaps(radiance, normals, distance); err != nil {
		return nil, err
	}

	for _, part := range []struct {
		name string
		pix  []float32
	}{
		{"radiance", radiance.Pix},
		{"distance", distance.Pix},
		{"normals", normals.Pix},
	} {
		if err := binary.Write(s.w, binary.LittleEndian, part.pix); err != nil {
			return nil, fmt.Errorf("%w: write %s: %v", ErrTransport, part.name, err)
		}
	}
	if err := s.w.Flush(); err != nil {
		return nil, fmt.Errorf("%w: flush request: %v", ErrTransport, err)
	}

	out := film.NewGrid[float32](radiance.Width, radiance.Height, 3)
	if err := binary.Read(s.r, binary.LittleEndian, out.Pix); err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}
	for i, v := range out.Pix {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("%w: non-finite value at offset %d", ErrProtocol, i)
		}
	}
	return out, nil
}

// ProcessConnector runs the predictor as a child process speaking the
// StreamConnector protocol on its stdin and stdout. Anything the child
// writes to stderr is forwarded to the debug log.
type ProcessConnector struct {
	*StreamConnector
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr chan struct{} // Closed once the child's stderr is drained
	logger log.Logger
}

// StartProcess launches command and connects to it. The child is killed
// when ctx is cancelled.
func StartProcess(ctx context.Context, command string, args []string, logger log.Logger) (*ProcessConnector, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %v", ErrTransport, command, err)
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			logger.Debugf("[pid %d] %s", cmd.Process.Pid, scanner.Text())
		}
	}()

	logger.Infof("started predictor process %s (pid %d)", command, cmd.Process.Pid)
	return &ProcessConnector{
		StreamConnector: NewStreamConnector(stdin, stdout),
		cmd:             cmd,
		stdin:           stdin,
		stderr:          drained,
		logger:          logger,
	}, nil
}

// Close terminates the child process after logging the rest of its stderr
func (p *ProcessConnector) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	_ = p.stdin.Close()
	_ = p.cmd.Process.Kill()
	// Wait closes the pipes, so the stderr reader must finish first
	<-p.stderr
	_ = p.cmd.Wait()
	p.logger.Debugf("predictor process %d stopped", p.cmd.Process.Pid)
	return nil
}

// ProcessFactory starts one predictor process per worker
func ProcessFactory(ctx context.Context, command string, args []string, logger log.Logger) Factory {
	return func(worker int) (Predictor, error) {
		conn, err := StartProcess(ctx, command, args, logger)
		if err != nil {
			return nil, fmt.Errorf("worker %d: %w", worker, err)
		}
		return conn, nil
	}
}
