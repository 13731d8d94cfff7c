package terminal

import (
	"bytes"
	"context"
	"strings"
	"time"

	"devagent/internal/logging"
)

const (
	outputBufferInitialCapacity = 16 * 1024
	outputFlushThreshold        = 32 * 1024
	outputIdleFlushDelay        = 4 * time.Millisecond
)

var ttyAnnouncePrefix = []byte("\x1b]7337;")
var ttyAnnounceSuffix = []byte("\x1b\\")

// FrameSink is the subset of coder/websocket.Conn's write surface OutputPump
// needs. Shaping the dependency this way lets tests substitute a recording
// fake instead of a live socket.
type FrameSink interface {
	Write(ctx context.Context, messageType int, data []byte) error
}

// BinaryMessage matches coder/websocket.MessageBinary's value without
// importing the package here, so FrameSink stays mockable without a real
// websocket connection.
const BinaryMessage = 2

// OutputPump consumes chunks read off a PTY's master handle, coalesces them into
// batches bounded by size or idle time, and forwards each batch to sink as a
// single 0x30-prefixed binary frame. It also watches the raw stream for a
// client-tty announce escape sequence and latches the discovered path into
// both a per-session observation and the process-wide registry.
type OutputPump struct {
	sink     FrameSink
	registry *ClientTTYRegistry
	logger   *logging.ScopedLogger

	sessionTTY   string
	ttyDetected  bool
	announceScan []byte // carries a partial announce sequence across chunk boundaries
}

// NewOutputPump constructs a pump writing frames to sink and publishing any
// discovered client TTY path into registry.
func NewOutputPump(sink FrameSink, registry *ClientTTYRegistry, logger *logging.ScopedLogger) *OutputPump {
	return &OutputPump{sink: sink, registry: registry, logger: logger}
}

// SessionTTY returns the client TTY path this pump has observed, or "" if
// none has been seen yet.
func (p *OutputPump) SessionTTY() string {
	return p.sessionTTY
}

// Run drains chunks until chunks is closed or ctx is cancelled, flushing a
// batch whenever it reaches outputFlushThreshold bytes or outputIdleFlushDelay
// has elapsed since the first chunk of the pending batch arrived. It returns
// the first write error encountered, or nil on clean shutdown.
func (p *OutputPump) Run(ctx context.Context, chunks <-chan []byte) error {
	buf := make([]byte, 0, outputBufferInitialCapacity)
	timer := time.NewTimer(outputIdleFlushDelay)
	if !timer.Stop() {
		<-timer.C
	}
	timerArmed := false

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		frame := make([]byte, 0, len(buf)+1)
		frame = append(frame, byte(OpOutput))
		frame = append(frame, buf...)
		buf = buf[:0]
		return p.sink.Write(ctx, BinaryMessage, frame)
	}

	for {
		select {
		case <-ctx.Done():
			_ = flush()
			return ctx.Err()

		case chunk, ok := <-chunks:
			if !ok {
				return flush()
			}
			p.scanForAnnounce(chunk)
			buf = append(buf, chunk...)

			if len(buf) >= outputFlushThreshold {
				if timerArmed && !timer.Stop() {
					<-timer.C
				}
				timerArmed = false
				if err := flush(); err != nil {
					return err
				}
				continue
			}

			if !timerArmed {
				timer.Reset(outputIdleFlushDelay)
				timerArmed = true
			}

		case <-timer.C:
			timerArmed = false
			if err := flush(); err != nil {
				return err
			}
		}
	}
}

// scanForAnnounce looks for `ESC ] 7337 ; <path> ESC \` in chunk. On first
// match it latches the path into both the session-local observation and the
// process-wide registry; subsequent announces in the same session are
// ignored (first-observation-wins), matching the wrapper script's contract
// that it emits the announce exactly once per shell start.
func (p *OutputPump) scanForAnnounce(chunk []byte) {
	if p.ttyDetected {
		return
	}

	haystack := chunk
	if len(p.announceScan) > 0 {
		haystack = append(append([]byte{}, p.announceScan...), chunk...)
	}

	start := bytes.Index(haystack, ttyAnnouncePrefix)
	if start == -1 {
		// Keep a short tail in case the prefix straddles this chunk boundary.
		if tail := len(ttyAnnouncePrefix) - 1; len(haystack) > tail {
			p.announceScan = append(p.announceScan[:0], haystack[len(haystack)-tail:]...)
		} else {
			p.announceScan = append(p.announceScan[:0], haystack...)
		}
		return
	}

	rest := haystack[start+len(ttyAnnouncePrefix):]
	end := bytes.Index(rest, ttyAnnounceSuffix)
	if end == -1 {
		// Full payload hasn't arrived yet; retry scan on next chunk.
		p.announceScan = append(p.announceScan[:0], haystack[start:]...)
		return
	}

	path := string(rest[:end])
	// Resume scanning after this match regardless of outcome; a non-matching
	// payload should not stall detection for the rest of the session.
	p.announceScan = append(p.announceScan[:0], rest[end+len(ttyAnnounceSuffix):]...)

	if !strings.HasPrefix(path, "/dev/pts/") {
		return
	}

	p.ttyDetected = true
	p.sessionTTY = path
	if p.registry != nil {
		p.registry.SetIfEmptyOrEqual(path)
	}
	if p.logger != nil {
		p.logger.Debug("observed client tty announce", "path", path)
	}
}
