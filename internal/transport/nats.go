package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/avvvet/erpbuddy-assistant/internal/config"
	"github.com/avvvet/erpbuddy-assistant/internal/models"
)

// TurnProcessor runs one conversational turn.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, request *models.TurnRequest) *models.TurnResponse
}

// Connect opens the NATS connection shared by the transport and the
// command executor.
func Connect(cfg *config.Config, logger *zap.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name(cfg.ServiceName),
		nats.Timeout(cfg.NatsTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1), // Infinite reconnects
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info("Connected to NATS server", zap.String("url", cfg.NatsURL))
	return conn, nil
}

type NATSTransport struct {
	conn    *nats.Conn
	subject string
	queue   string
	timeout time.Duration
	handler TurnProcessor
	logger  *zap.Logger
	sub     *nats.Subscription
}

// NewNATSTransport serves turns on subject. Instances sharing queue split
// the load.
func NewNATSTransport(conn *nats.Conn, subject, queue string, timeout time.Duration, handler TurnProcessor, logger *zap.Logger) *NATSTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSTransport{
		conn:    conn,
		subject: subject,
		queue:   queue,
		timeout: timeout,
		handler: handler,
		logger:  logger,
	}
}

func (nt *NATSTransport) Start() error {
	sub, err := nt.conn.QueueSubscribe(nt.subject, nt.queue, nt.handleTurnRequest)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", nt.subject, err)
	}
	nt.sub = sub

	nt.logger.Info("Subscribed to subject", zap.String("subject", nt.subject), zap.String("queue", nt.queue))
	return nil
}

func (nt *NATSTransport) handleTurnRequest(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), nt.timeout)
	defer cancel()

	if err := msg.Respond(nt.process(ctx, msg.Data)); err != nil {
		nt.logger.Error("Error sending response", zap.Error(err))
	}
}

// process decodes a request, runs it and encodes the reply.
func (nt *NATSTransport) process(ctx context.Context, data []byte) []byte {
	var request models.TurnRequest
	var response *models.TurnResponse
	if err := json.Unmarshal(data, &request); err != nil {
		nt.logger.Warn("Error parsing request", zap.Error(err))
		response = parseErrorResponse(err)
	} else {
		response = nt.handler.ProcessTurn(ctx, &request)
	}

	out, err := json.Marshal(response)
	if err != nil {
		nt.logger.Error("failed to marshal response", zap.Error(err))
		out, _ = json.Marshal(&models.TurnResponse{Success: false, ErrorCode: models.ErrorInternal, Errors: []string{err.Error()}})
	}
	return out
}

func parseErrorResponse(err error) *models.TurnResponse {
	return &models.TurnResponse{
		Success:   false,
		Reply:     "I'm sorry, I encountered an error processing your request. Please try again.",
		Errors:    []string{"Invalid request format: " + err.Error()},
		ErrorCode: models.ErrorParseError,
	}
}

func (nt *NATSTransport) Close() error {
	if nt.sub != nil {
		if err := nt.sub.Drain(); err != nil {
			return fmt.Errorf("failed to drain subscription: %w", err)
		}
		nt.logger.Info("NATS subscription drained", zap.String("subject", nt.subject))
	}
	return nil
}
