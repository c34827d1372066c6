package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avvvet/erpbuddy-assistant/internal/catalog"
	"github.com/avvvet/erpbuddy-assistant/internal/dialogue"
	"github.com/avvvet/erpbuddy-assistant/internal/executor"
	"github.com/avvvet/erpbuddy-assistant/internal/intent"
	"github.com/avvvet/erpbuddy-assistant/internal/models"
	"github.com/avvvet/erpbuddy-assistant/internal/permissions"
	"github.com/avvvet/erpbuddy-assistant/internal/sessionstore"
)

func newTestHandler(t *testing.T, store sessionstore.Store) *TurnHandler {
	t.Helper()
	cls, err := intent.NewClassifier(nil)
	require.NoError(t, err)
	cat := catalog.NewMemory()
	cat.Add("c1", catalog.KindCustomer, "Globex")
	o := dialogue.New(cls, cat, permissions.AllowAll{}, &executor.DryRun{}, dialogue.WithLogger(zap.NewNop()))
	return NewTurnHandler(o, store, time.Minute, zap.NewNop(), nil)
}

func TestProcessTurn_Stateless(t *testing.T) {
	h := newTestHandler(t, nil)

	resp := h.ProcessTurn(context.Background(), &models.TurnRequest{CompanyID: "c1", Input: "sales order"})
	require.True(t, resp.Success)
	require.NotNil(t, resp.SessionState.CurrentTask)
	id := resp.SessionState.SessionID
	assert.NotEmpty(t, id)

	resp = h.ProcessTurn(context.Background(), &models.TurnRequest{CompanyID: "c1", Input: "Globex", SessionState: resp.SessionState})
	assert.Equal(t, "Globex", resp.SessionState.Fields["customerName"])
	assert.Equal(t, id, resp.SessionState.SessionID)
}

func TestProcessTurn_StoreKeepsState(t *testing.T) {
	store := sessionstore.NewMemoryStore(time.Hour)
	h := newTestHandler(t, store)
	ctx := context.Background()

	resp := h.ProcessTurn(ctx, &models.TurnRequest{SessionID: "s1", CompanyID: "c1", UserID: "u1", Input: "sales order"})
	require.True(t, resp.Success)

	// no state in the request: it comes from the store
	resp = h.ProcessTurn(ctx, &models.TurnRequest{SessionID: "s1", CompanyID: "c1", UserID: "u1", Input: "Globex"})
	assert.Equal(t, "SalesOrder", *resp.SessionState.CurrentTask)
	assert.Equal(t, "Globex", resp.SessionState.Fields["customerName"])

	rec, err := store.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Metadata.TurnCount)
	assert.Equal(t, "u1", rec.UserID)

	// the lock is released after each turn
	unlock, err := store.Lock(ctx, "s1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}

func TestProcessTurn_SessionBusy(t *testing.T) {
	store := sessionstore.NewMemoryStore(time.Hour)
	h := newTestHandler(t, store)
	ctx := context.Background()

	unlock, err := store.Lock(ctx, "s1", time.Minute)
	require.NoError(t, err)
	defer unlock(ctx)

	resp := h.ProcessTurn(ctx, &models.TurnRequest{SessionID: "s1", Input: "hello"})
	assert.False(t, resp.Success)
	assert.Equal(t, models.ErrorSessionBusy, resp.ErrorCode)
	assert.Equal(t, "s1", resp.SessionState.SessionID)
	assert.Equal(t, busyMessage, resp.Reply)
}

func TestProcessTurn_InvalidRequest(t *testing.T) {
	h := newTestHandler(t, nil)

	tests := []struct {
		name string
		req  *models.TurnRequest
		want string
	}{
		{"nil request", nil, "request is required"},
		{"empty input", &models.TurnRequest{}, "input failed on required_unless"},
		{
			"mismatched session",
			&models.TurnRequest{SessionID: "a", Input: "hi", SessionState: &models.ConversationState{SessionID: "b"}},
			"does not match",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.ProcessTurn(context.Background(), tt.req)
			assert.False(t, resp.Success)
			assert.Equal(t, models.ErrorInvalidRequest, resp.ErrorCode)
			require.Len(t, resp.Errors, 1)
			assert.Contains(t, resp.Errors[0], tt.want)
			assert.NotNil(t, resp.SessionState)
		})
	}

	// a bare confirmation needs no input
	resp := h.ProcessTurn(context.Background(), &models.TurnRequest{Confirmed: true})
	assert.True(t, resp.Success)
}

func TestProcessTurn_StateWithoutIDKeepsRequestID(t *testing.T) {
	store := sessionstore.NewMemoryStore(time.Hour)
	h := newTestHandler(t, store)
	ctx := context.Background()

	task := "SalesOrder"
	resp := h.ProcessTurn(ctx, &models.TurnRequest{
		SessionID:    "abc",
		CompanyID:    "c1",
		Input:        "Globex",
		SessionState: &models.ConversationState{CurrentTask: &task, Fields: map[string]string{}},
	})
	require.True(t, resp.Success)
	assert.Equal(t, "abc", resp.SessionState.SessionID)

	rec, err := store.LoadSession(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "Globex", rec.State.Fields["customerName"])
}
