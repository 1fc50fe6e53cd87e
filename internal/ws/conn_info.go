package ws

import "time"

// ConnInfo is handshake metadata kept for logs and audit events.
type ConnInfo struct {
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
