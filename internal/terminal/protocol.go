// pattern: Functional Core

// Package terminal implements the WebSocket↔PTY bridge: the framed
// sub-protocol, adaptive-batching output pump, flow control, PTY lifecycle,
// and the wrapper-script mechanism that reports the spawned shell's TTY and
// working directory back to the server.
package terminal

import "encoding/json"

// Opcode is the first byte of a binary WebSocket frame in the "tty"
// sub-protocol.
type Opcode byte

const (
	// OpOutput carries a terminal byte payload, in either direction:
	// client input when received, shell output when sent.
	OpOutput Opcode = '0'
	// OpResize carries a JSON ResizeMessage payload, client→server only.
	OpResize Opcode = '1'
	// OpPause asks the server to stop draining the shell's output.
	OpPause Opcode = '2'
	// OpResume asks the server to resume draining the shell's output.
	OpResume Opcode = '3'
)

// defaultCols and defaultRows are applied whenever the handshake's init
// message is missing or malformed.
const (
	defaultCols = 80
	defaultRows = 24
)

// InitMessage is the first WebSocket message of a session.
type InitMessage struct {
	AuthToken string `json:"AuthToken"`
	Columns   uint32 `json:"columns"`
	Rows      uint32 `json:"rows"`
}

// ResizeMessage is sent whenever the browser's terminal viewport changes,
// either as a text frame or as the payload of an OpResize binary frame.
type ResizeMessage struct {
	AuthToken string `json:"AuthToken,omitempty"`
	Columns   uint16 `json:"columns"`
	Rows      uint16 `json:"rows"`
}

// clamp16 coerces a columns/rows value to the 16-bit range PTYs expect,
// floored at 1 (a zero-sized PTY is not meaningful).
func clamp16(v uint32) uint16 {
	if v < 1 {
		return 1
	}
	if v > 0xffff {
		return 0xffff
	}
	return uint16(v)
}

// parseInitMessage decodes the handshake payload into (cols, rows). On
// malformed JSON both default to 80x24; otherwise each of columns and rows
// defaults independently when absent from the payload, so e.g.
// {"columns":80} yields (80, 24), not (80, 1).
func parseInitMessage(payload []byte) (cols, rows uint16) {
	var msg InitMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return defaultCols, defaultRows
	}
	cols = defaultCols
	if msg.Columns != 0 {
		cols = clamp16(msg.Columns)
	}
	rows = defaultRows
	if msg.Rows != 0 {
		rows = clamp16(msg.Rows)
	}
	return cols, rows
}

// parseResizeMessage decodes a resize payload. ok is false on malformed
// JSON; callers must silently drop the message in that case.
func parseResizeMessage(payload []byte) (msg ResizeMessage, ok bool) {
	if err := json.Unmarshal(payload, &msg); err != nil {
		return ResizeMessage{}, false
	}
	if msg.Columns < 1 {
		msg.Columns = 1
	}
	if msg.Rows < 1 {
		msg.Rows = 1
	}
	return msg, true
}
