package handlers

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/avvvet/erpbuddy-assistant/internal/dialogue"
	"github.com/avvvet/erpbuddy-assistant/internal/metrics"
	"github.com/avvvet/erpbuddy-assistant/internal/models"
	"github.com/avvvet/erpbuddy-assistant/internal/session"
	"github.com/avvvet/erpbuddy-assistant/internal/sessionstore"
)

const (
	busyMessage     = "I'm still working on your previous message. Please try again in a moment."
	fallbackMessage = "I'm sorry, I couldn't process your request. Please try again."
)

// TurnHandler is the service entry point shared by all transports. When a
// store is configured it keeps state for callers that do not send it back
// and serializes turns per session.
type TurnHandler struct {
	orchestrator *dialogue.Orchestrator
	store        sessionstore.Store
	lockTTL      time.Duration
	validate     *validator.Validate
	logger       *zap.Logger
	metrics      metrics.Recorder
}

// NewTurnHandler wires the handler. store may be nil.
func NewTurnHandler(o *dialogue.Orchestrator, store sessionstore.Store, lockTTL time.Duration, logger *zap.Logger, rec metrics.Recorder) *TurnHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &TurnHandler{
		orchestrator: o,
		store:        store,
		lockTTL:      lockTTL,
		validate:     v,
		logger:       logger,
		metrics:      rec,
	}
}

func (h *TurnHandler) ProcessTurn(ctx context.Context, request *models.TurnRequest) *models.TurnResponse {
	start := time.Now()
	if request == nil {
		return h.createErrorResponse(&models.TurnRequest{}, "", models.ErrorInvalidRequest, "request is required", start)
	}

	// Validate request
	if err := h.validateRequest(request); err != nil {
		return h.createErrorResponse(request, request.SessionID, models.ErrorInvalidRequest, err.Error(), start)
	}

	req := *request
	req.SessionID = sessionIDOf(&req)
	log := h.logger.With(zap.String("session_id", req.SessionID), zap.String("company_id", req.CompanyID))

	if h.store != nil {
		unlock, err := h.store.Lock(ctx, req.SessionID, h.lockTTL)
		if errors.Is(err, sessionstore.ErrSessionBusy) {
			log.Info("turn rejected, session busy")
			return h.createErrorResponse(&req, req.SessionID, models.ErrorSessionBusy, busyMessage, start)
		}
		if err != nil {
			log.Error("failed to lock session", zap.Error(err))
			return h.createErrorResponse(&req, req.SessionID, models.ErrorStateUnavailable, err.Error(), start)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				log.Warn("failed to unlock session", zap.Error(err))
			}
		}()

		if req.SessionState == nil {
			rec, err := h.store.LoadSession(ctx, req.SessionID)
			switch {
			case err == nil:
				req.SessionState = rec.State
			case errors.Is(err, sessionstore.ErrSessionNotFound):
			default:
				log.Error("failed to load session", zap.Error(err))
				return h.createErrorResponse(&req, req.SessionID, models.ErrorStateUnavailable, err.Error(), start)
			}
		}
	}

	response := h.orchestrator.Turn(ctx, &req)

	if h.store != nil {
		if err := h.store.SaveState(ctx, req.UserID, req.CompanyID, response.SessionState); err != nil {
			// the caller still holds the state from the response
			log.Warn("failed to save session", zap.Error(err))
		}
	}
	return response
}

func (h *TurnHandler) validateRequest(request *models.TurnRequest) error {
	if err := h.validate.Struct(request); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	if s := request.SessionState; s != nil && request.SessionID != "" && s.SessionID != "" && s.SessionID != request.SessionID {
		return fmt.Errorf("sessionId %q does not match sessionState.sessionId %q", request.SessionID, s.SessionID)
	}
	return nil
}

func sessionIDOf(req *models.TurnRequest) string {
	if req.SessionID != "" {
		return req.SessionID
	}
	if req.SessionState != nil && req.SessionState.SessionID != "" {
		return req.SessionState.SessionID
	}
	return session.NewID()
}

func (h *TurnHandler) createErrorResponse(request *models.TurnRequest, sessionID, errorCode, errorMessage string, start time.Time) *models.TurnResponse {
	h.metrics.ObserveTurn("", "rejected", time.Since(start))

	state := request.SessionState
	if state == nil {
		state = session.New(sessionID).ToWire()
	}
	reply := fallbackMessage
	if errorCode == models.ErrorSessionBusy {
		reply = busyMessage
	}
	return &models.TurnResponse{
		Success:      false,
		Reply:        reply,
		SessionState: state,
		Errors:       []string{errorMessage},
		ErrorCode:    errorCode,
	}
}
