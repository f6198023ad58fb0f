package ipcserver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/sessiondex/sessiondex/internal/ipc"
)

// Call connects to socketPath, sends one channel request, and returns
// its decoded payload. One connection per call: sessiondex's only
// streaming channel (indexer:progress) uses the HTTP gateway's
// WebSocket instead, so this client stays a simple request/response
// round trip rather than holding a connection open for progress frames.
func Call(socketPath, channel string, payload any) (json.RawMessage, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ipcserver: connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ipcserver: marshal payload: %w", err)
	}
	req := ipc.Request{Channel: channel, Payload: raw}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("ipcserver: marshal request: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("ipcserver: write request: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("ipcserver: read response: %w", err)
		}
		return nil, fmt.Errorf("ipcserver: connection closed without response")
	}

	line := scanner.Bytes()
	var probe wireError
	if err := json.Unmarshal(line, &probe); err == nil && probe.Error != "" {
		if probe.Message != "" {
			return nil, fmt.Errorf("ipcserver: %s: %s", probe.Error, probe.Message)
		}
		return nil, fmt.Errorf("ipcserver: %s", probe.Error)
	}

	var resp ipc.Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("ipcserver: unmarshal response: %w", err)
	}
	return resp.Payload, nil
}
