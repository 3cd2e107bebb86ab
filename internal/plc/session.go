package plc

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// Session is a single TCP connection to the PLC, carrying the ASCII
// command/reply protocol described in protocol.go. Construction dials and
// verifies the model; callers own the resulting Session until Close.
type Session struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
}

// Dial connects to address, verifies the PLC model with the check command,
// and registers the fixed monitor set. Every I/O in this call and in the
// returned Session's methods is bounded by timeout.
func Dial(address string, timeout time.Duration) (*Session, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("plc: dial %s: %w", address, err)
	}

	s := &Session{conn: conn, reader: bufio.NewReader(conn), timeout: timeout}

	if err := s.checkModel(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := s.setMonitor(); err != nil {
		conn.Close()
		return nil, err
	}

	return s, nil
}

// checkModel sends the model-check command and verifies the PLC reports
// the expected model code.
func (s *Session) checkModel() error {
	reply, err := s.sendReceive(checkCommand)
	if err != nil {
		return fmt.Errorf("plc: check model: %w", err)
	}
	if reply != checkResponse {
		return fmt.Errorf("plc: unexpected model response %q", reply)
	}
	return nil
}

// setMonitor registers the fixed 25-register monitor set.
func (s *Session) setMonitor() error {
	reply, err := s.sendReceive(setMonitorCommand)
	if err != nil {
		return fmt.Errorf("plc: set monitor: %w", err)
	}
	switch reply {
	case okResponse:
		return nil
	case deviceErrorResponse:
		return fmt.Errorf("plc: set monitor rejected: invalid device number")
	case commandErrorResponse:
		return fmt.Errorf("plc: set monitor rejected: invalid command")
	default:
		return fmt.Errorf("plc: set monitor: unexpected response %q", reply)
	}
}

// ReadSnapshot issues the monitor readout command and returns the validated
// reply, tagged with the time the reply was read.
func (s *Session) ReadSnapshot() (Snapshot, error) {
	reply, err := s.sendReceive(monitorReadoutCommand)
	if err != nil {
		return Snapshot{}, fmt.Errorf("plc: read snapshot: %w", err)
	}
	return newSnapshot(time.Now(), reply)
}

// SetClock sends the optional clock-set command. Unlike ReadSnapshot, a
// command-error response is not treated as fatal — the caller decides
// whether to disconnect.
func (s *Session) SetClock(ctx context.Context, t time.Time) error {
	weekday := int(t.Weekday())
	cmd := timePreferenceCommandBytes(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second(), weekday)

	reply, err := s.sendReceive(string(cmd))
	if err != nil {
		return fmt.Errorf("plc: set clock: %w", err)
	}
	switch reply {
	case okResponse:
		return nil
	case commandErrorResponse:
		return fmt.Errorf("plc: set clock rejected: invalid command")
	default:
		return fmt.Errorf("plc: set clock: unexpected response %q", reply)
	}
}

// Close releases the underlying TCP connection.
func (s *Session) Close() error {
	return s.conn.Close()
}

// sendReceive writes cmd, then reads a single CRLF-terminated reply,
// both bounded by the session's configured timeout.
func (s *Session) sendReceive(cmd string) (string, error) {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		return "", err
	}
	if _, err := s.conn.Write([]byte(cmd)); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}

	if err := s.conn.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
		return "", err
	}
	line, err := s.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}
