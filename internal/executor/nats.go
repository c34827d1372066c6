package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Envelope is the message published for a command.
type Envelope struct {
	Kind    string  `json:"kind"`
	Command Command `json:"command"`
}

// NATSExecutor sends commands as NATS requests on "<prefix>.<kind>" and
// waits for the handler's Result.
type NATSExecutor struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSExecutor uses an existing connection. The caller owns conn.
func NewNATSExecutor(conn *nats.Conn, prefix string) *NATSExecutor {
	return &NATSExecutor{conn: conn, prefix: prefix}
}

// Subject returns the subject a command is published on.
func (e *NATSExecutor) Subject(cmd Command) string {
	return e.prefix + "." + cmd.Kind()
}

// Send publishes cmd and decodes the reply. ctx bounds the wait.
func (e *NATSExecutor) Send(ctx context.Context, cmd Command) (*Result, error) {
	data, err := json.Marshal(Envelope{Kind: cmd.Kind(), Command: cmd})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}

	msg, err := e.conn.RequestWithContext(ctx, e.Subject(cmd), data)
	if err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", cmd.Kind(), err)
	}

	var res Result
	if err := json.Unmarshal(msg.Data, &res); err != nil {
		return nil, fmt.Errorf("failed to parse %s result: %w", cmd.Kind(), err)
	}
	return &res, nil
}
