package dialogue

import (
	"context"
	"errors"
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/erpbuddy-assistant/internal/catalog"
	"github.com/avvvet/erpbuddy-assistant/internal/executor"
	"github.com/avvvet/erpbuddy-assistant/internal/intent"
	"github.com/avvvet/erpbuddy-assistant/internal/models"
	"github.com/avvvet/erpbuddy-assistant/internal/permissions"
	"github.com/avvvet/erpbuddy-assistant/internal/session"
)

type denyAll struct{}

func (denyAll) HasPermission(context.Context, string, string) (bool, error) { return false, nil }

type stubExecutor struct {
	res   *executor.Result
	err   error
	calls int
}

func (s *stubExecutor) Send(context.Context, executor.Command) (*executor.Result, error) {
	s.calls++
	return s.res, s.err
}

type failingLookup struct{}

func (failingLookup) FindCandidatesByFuzzyName(context.Context, string, catalog.EntityKind, string, int) ([]string, error) {
	return nil, errors.New("database is locked")
}

type harness struct {
	t     *testing.T
	o     *Orchestrator
	exec  *executor.DryRun
	state *models.ConversationState
}

func testCatalog() *catalog.Memory {
	cat := catalog.NewMemory()
	cat.Add("c1", catalog.KindCustomer, "Acme Supplies", "Acme Traders", "Globex")
	cat.Add("c1", catalog.KindSupplier, "Acme Supplies", "Initech")
	cat.Add("c1", catalog.KindProduct, "Widgets", "Gadget Pro", "Sprocket")
	return cat
}

func newHarness(t *testing.T, lookup catalog.Lookup, perms permissions.Checker, exec executor.Executor) *harness {
	t.Helper()
	cls, err := intent.NewClassifier(nil)
	require.NoError(t, err)

	h := &harness{t: t}
	if lookup == nil {
		lookup = testCatalog()
	}
	if mem, ok := lookup.(*catalog.Memory); ok {
		mem.UseNormalizer(cls.Normalizer())
	}
	if perms == nil {
		perms = permissions.AllowAll{}
	}
	if exec == nil {
		h.exec = &executor.DryRun{BaseURL: "https://erp.test"}
		exec = h.exec
	}
	h.o = New(cls, lookup, perms, exec)
	return h
}

func (h *harness) say(input string) *models.TurnResponse {
	return h.send(&models.TurnRequest{Input: input})
}

func (h *harness) confirm() *models.TurnResponse {
	return h.send(&models.TurnRequest{Confirmed: true})
}

func (h *harness) send(req *models.TurnRequest) *models.TurnResponse {
	h.t.Helper()
	req.CompanyID = "c1"
	req.UserID = "u1"
	req.SessionState = h.state
	resp := h.o.Turn(context.Background(), req)
	require.NotNil(h.t, resp)
	require.NotNil(h.t, resp.SessionState)
	require.NotEmpty(h.t, resp.Reply)
	h.state = resp.SessionState
	return resp
}

func currentTask(w *models.ConversationState) string {
	if w.CurrentTask == nil {
		return ""
	}
	return *w.CurrentTask
}

func TestSalesOrderStartsWithCustomer(t *testing.T) {
	h := newHarness(t, nil, nil, nil)

	resp := h.say("sales order")
	assert.True(t, resp.Success)
	assert.Equal(t, "SalesOrder", currentTask(resp.SessionState))
	assert.Equal(t, "Which customer is this order for?", resp.NextQuestion)
	assert.Contains(t, resp.Reply, "customer")
	assert.Empty(t, resp.SessionState.Fields)
	assert.NotEmpty(t, resp.SessionState.SessionID)
}

func TestSalesOrderFullFlow(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	id := h.say("sales order").SessionState.SessionID

	resp := h.say("Globex")
	assert.Equal(t, "Which product?", resp.NextQuestion)
	assert.Equal(t, "Globex", resp.SessionState.Fields[KeyCustomerName])
	assert.Contains(t, resp.SessionState.Fields[session.KeyVerified], KeyCustomerName)

	resp = h.say("widgets")
	assert.Equal(t, "Widgets", resp.SessionState.Fields[KeyProductName], "catalog spelling is adopted")
	assert.Equal(t, "How many units?", resp.NextQuestion)

	resp = h.say("5")
	assert.Equal(t, "5", resp.SessionState.Fields[KeyQuantity])

	resp = h.say("next")
	v, ok := resp.SessionState.Fields[KeyUnitPrice]
	assert.True(t, ok)
	assert.Empty(t, v, "skipped optional slot is present and empty")

	// free text slot keeps intent words as data
	resp = h.say("restock next week")
	assert.Equal(t, "restock next week", resp.SessionState.Fields[KeyNotes])
	assert.Equal(t, "SalesOrder", currentTask(resp.SessionState))
	assert.True(t, resp.SessionState.AwaitingConfirmation)
	assert.Contains(t, resp.ConfirmationMessage, "- Customer: Globex")
	assert.Contains(t, resp.ConfirmationMessage, "- Quantity: 5")
	assert.Empty(t, h.exec.Commands())

	resp = h.say("yes")
	assert.True(t, resp.Success)
	assert.True(t, resp.Completed)
	assert.Equal(t, "SalesOrder", resp.Action)
	assert.Empty(t, resp.SessionState.Fields)
	assert.Nil(t, resp.SessionState.CurrentTask)
	assert.False(t, resp.SessionState.AwaitingConfirmation)
	assert.Equal(t, id, resp.SessionState.SessionID)

	require.Len(t, h.exec.Commands(), 1)
	cmd, ok := h.exec.Commands()[0].(executor.CreateSalesOrder)
	require.True(t, ok)
	assert.Equal(t, "c1", cmd.CompanyID)
	assert.Equal(t, "Globex", cmd.CustomerName)
	assert.Equal(t, "Widgets", cmd.Line.ProductName)
	assert.Equal(t, 5.0, cmd.Line.Quantity)
	assert.Nil(t, cmd.Line.UnitPrice)
	assert.Equal(t, "restock next week", cmd.Notes)
}

func TestQuantityValidation(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	h.say("sales order")
	h.say("Globex")
	h.say("Widgets")

	resp := h.say("-3")
	_, ok := resp.SessionState.Fields[KeyQuantity]
	assert.False(t, ok)
	assert.Equal(t, "How many units?", resp.NextQuestion)
	assert.Contains(t, resp.Reply, "not a valid quantity")

	resp = h.say("12")
	assert.Equal(t, "12", resp.SessionState.Fields[KeyQuantity])

	h2 := newHarness(t, nil, nil, nil)
	h2.say("new product")
	h2.say("Bolt")
	resp = h2.say("about 2,5 each")
	assert.Equal(t, "2.5", resp.SessionState.Fields[KeySalePrice])
}

func TestCancelWhileAwaitingConfirmation(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	resp := h.say("create purchase order for 5 widgets from Acme Supplies")
	require.True(t, resp.SessionState.AwaitingConfirmation)
	id := resp.SessionState.SessionID

	resp = h.say("cancel")
	assert.True(t, resp.Cancelled)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.SessionState.Fields)
	assert.Nil(t, resp.SessionState.CurrentTask)
	assert.Equal(t, id, resp.SessionState.SessionID)
	assert.Empty(t, h.exec.Commands())

	resp = h.say("cancel")
	assert.False(t, resp.Cancelled)
	assert.Equal(t, "There is nothing to cancel.", resp.Reply)
}

func TestSingleUtteranceFastPath(t *testing.T) {
	h := newHarness(t, nil, nil, nil)

	resp := h.say("create purchase order for 5 widgets from Acme Supplies")
	assert.Equal(t, "PurchaseOrder", currentTask(resp.SessionState))
	assert.True(t, resp.SessionState.AwaitingConfirmation)
	assert.Equal(t, "Acme Supplies", resp.SessionState.Fields[KeySupplierName])
	assert.Equal(t, "Widgets", resp.SessionState.Fields[KeyProductName])
	assert.Equal(t, "5", resp.SessionState.Fields[KeyQuantity])
	assert.NotEmpty(t, resp.ConfirmationMessage)
}

func TestConfirmationIsMandatory(t *testing.T) {
	h := newHarness(t, nil, nil, nil)

	// the confirm flag on the turn that opens the gate does not dispatch
	resp := h.send(&models.TurnRequest{Input: "create purchase order for 5 widgets from Acme Supplies", Confirmed: true})
	assert.True(t, resp.SessionState.AwaitingConfirmation)
	assert.False(t, resp.Completed)
	assert.Empty(t, h.exec.Commands())

	resp = h.say("hmm let me think")
	assert.True(t, resp.SessionState.AwaitingConfirmation)
	assert.Contains(t, resp.Reply, "Reply yes to confirm")
	assert.Empty(t, h.exec.Commands())

	resp = h.say("yes and no")
	assert.Contains(t, resp.Reply, "Please answer yes or no.")
	assert.Empty(t, h.exec.Commands())

	resp = h.confirm()
	assert.True(t, resp.Completed)
	require.Len(t, h.exec.Commands(), 1)
	assert.IsType(t, executor.CreatePurchaseOrder{}, h.exec.Commands()[0])
}

func TestDoneConfirms(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	h.say("new supplier called Umbrella Corp")
	resp := h.say("done")
	assert.True(t, resp.Completed)
	require.Len(t, h.exec.Commands(), 1)
	assert.Equal(t, executor.CreateSupplier{CompanyID: "c1", Name: "Umbrella Corp"}, h.exec.Commands()[0])
}

func TestDeclineResetsState(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	h.say("new customer called Bob Stone")
	resp := h.say("no")
	assert.True(t, resp.Cancelled)
	assert.Empty(t, resp.SessionState.Fields)
	assert.Contains(t, resp.Reply, "did not create the new customer")
	assert.Empty(t, h.exec.Commands())
}

func TestRepeatIsIdempotent(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	h.say("sales order")
	h.say("Globex")

	before := h.state
	first := h.say("repeat")
	second := h.say("repeat")
	assert.Equal(t, first.Reply, second.Reply)
	assert.Equal(t, "Which product?", first.Reply)
	assert.Equal(t, before.Fields, second.SessionState.Fields)
	assert.Equal(t, before, second.SessionState)

	h2 := newHarness(t, nil, nil, nil)
	assert.Equal(t, "There is nothing to repeat yet.", h2.say("repeat").Reply)
}

func TestCorrectionAccepted(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	h.say("sales order")

	resp := h.say("acme supply")
	assert.Contains(t, resp.Reply, `Did you mean "Acme Supplies"?`)
	assert.Equal(t, KeyCustomerName, resp.SessionState.Fields[session.KeyPendingField])
	assert.Equal(t, "Acme Supplies", resp.SessionState.Fields[session.KeyPendingValue])
	assert.Equal(t, "customer", resp.SessionState.Fields[session.KeyPendingLabel])

	again := h.say("maybe")
	assert.Equal(t, resp.Reply, again.Reply, "unclear answers re-ask verbatim")

	resp = h.say("yes")
	assert.Equal(t, "Acme Supplies", resp.SessionState.Fields[KeyCustomerName])
	assert.NotContains(t, resp.SessionState.Fields, session.KeyPendingField)
	assert.Equal(t, "Which product?", resp.NextQuestion)
	_, hasProduct := resp.SessionState.Fields[KeyProductName]
	assert.False(t, hasProduct, "the yes is not taken as a product")
}

func TestCorrectionRejected(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	h.say("sales order")
	h.say("acme supply")

	resp := h.say("no")
	assert.NotContains(t, resp.SessionState.Fields, KeyCustomerName)
	assert.NotContains(t, resp.SessionState.Fields, session.KeyPendingField)
	assert.Equal(t, "Which customer is this order for?", resp.NextQuestion)
}

func TestAmbiguousAnswerKeepsState(t *testing.T) {
	t.Run("confirmation gate", func(t *testing.T) {
		h := newHarness(t, nil, nil, nil)
		before := h.say("create purchase order for 5 widgets from Acme Supplies")
		require.True(t, before.SessionState.AwaitingConfirmation)
		fields := maps.Clone(before.SessionState.Fields)

		resp := h.say("yes no")
		assert.Contains(t, resp.Reply, "Please answer yes or no.")
		assert.True(t, resp.SessionState.AwaitingConfirmation)
		assert.False(t, resp.Completed)
		assert.False(t, resp.Cancelled)
		assert.Equal(t, fields, resp.SessionState.Fields)
		assert.Empty(t, h.exec.Commands())
	})

	t.Run("correction", func(t *testing.T) {
		h := newHarness(t, nil, nil, nil)
		h.say("sales order")
		before := h.say("acme supply")
		require.Contains(t, before.SessionState.Fields, session.KeyPendingField)
		fields := maps.Clone(before.SessionState.Fields)

		resp := h.say("yes no")
		assert.Contains(t, resp.Reply, "Please answer yes or no.")
		assert.Equal(t, fields, resp.SessionState.Fields)
		assert.NotContains(t, resp.SessionState.Fields, KeyCustomerName)
	})
}

func TestOkeyConfirms(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	h.say("new supplier called Umbrella Corp")
	resp := h.say("okey dokey")
	assert.True(t, resp.Completed)
	require.Len(t, h.exec.Commands(), 1)
}

func TestEntityNotFound(t *testing.T) {
	cat := catalog.NewMemory()
	cat.Add("c1", catalog.KindCustomer, "Globex")
	h := newHarness(t, cat, nil, nil)
	h.say("sales order")

	resp := h.say("Zyxwvut Holdings")
	assert.Contains(t, resp.Reply, `couldn't find a customer called "Zyxwvut Holdings"`)
	assert.NotContains(t, resp.SessionState.Fields, KeyCustomerName)
	assert.Equal(t, "Which customer is this order for?", resp.NextQuestion)
}

func TestLookupFailureReasks(t *testing.T) {
	h := newHarness(t, failingLookup{}, nil, nil)
	h.say("sales order")

	resp := h.say("Globex")
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Reply, "couldn't check the customer list")
	assert.NotContains(t, resp.SessionState.Fields, KeyCustomerName)
}

func TestNameSlotRejectsNumber(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	h.say("sales order")

	resp := h.say("42")
	assert.Contains(t, resp.Reply, "I need a customer name, not a number.")
	assert.Empty(t, resp.SessionState.Fields)
}

func TestListRequestInsideSlot(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	h.say("sales order")

	resp := h.say("show customers")
	assert.Contains(t, resp.Reply, "Globex, Acme Traders, Acme Supplies")
	assert.Equal(t, "Which customer is this order for?", resp.NextQuestion)
	assert.Empty(t, resp.SessionState.Fields)
}

func TestSlotOrder(t *testing.T) {
	h := newHarness(t, nil, nil, nil)

	// inline values for later slots do not skip the earlier required one
	resp := h.say("sales order for 5 widgets")
	assert.Equal(t, "5", resp.SessionState.Fields[KeyQuantity])
	assert.Equal(t, "widgets", resp.SessionState.Fields[KeyProductName])
	assert.Equal(t, "Which customer is this order for?", resp.NextQuestion)
	assert.False(t, resp.SessionState.AwaitingConfirmation)

	resp = h.say("Globex")
	assert.Equal(t, "What is the unit price? Say \"next\" to use the list price.", resp.NextQuestion)
	assert.Equal(t, "Widgets", resp.SessionState.Fields[KeyProductName])
}

func TestTaskSwitchClearsFields(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	h.say("sales order")
	h.say("Globex")

	resp := h.say("new customer called Bob Stone")
	assert.Equal(t, "CustomerCreate", currentTask(resp.SessionState))
	assert.NotContains(t, resp.SessionState.Fields, KeyProductName)
	assert.Equal(t, "Bob Stone", resp.SessionState.Fields[KeyCustomerName])
	assert.True(t, resp.SessionState.AwaitingConfirmation)
}

func TestHelpDuringTask(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	h.say("sales order")
	before := h.state

	resp := h.say("help")
	assert.Contains(t, resp.Reply, "sales order")
	assert.Contains(t, resp.Reply, "Which customer is this order for?")
	assert.Equal(t, before, resp.SessionState)
}

func TestIdleIntents(t *testing.T) {
	h := newHarness(t, nil, nil, nil)

	resp := h.say("hello")
	assert.Equal(t, "Greeting", resp.Action)
	assert.Contains(t, resp.Reply, "Hello!")
	assert.Nil(t, resp.SessionState.CurrentTask)

	resp = h.say("thanks")
	assert.Equal(t, "Thanks", resp.Action)

	resp = h.say("list products")
	assert.Contains(t, resp.Reply, "Widgets")
	assert.Contains(t, resp.Reply, "Sprocket")
	assert.Nil(t, resp.SessionState.CurrentTask)
}

func TestUnknownInputFallsBackToHelp(t *testing.T) {
	h := newHarness(t, nil, nil, nil)

	resp := h.say("blorp")
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Reply, "rephrase")
	assert.Contains(t, resp.Reply, "purchase order")
	assert.NotContains(t, resp.SessionState.Fields, session.KeyPendingIntentTask)
}

func TestTaskGuessAccepted(t *testing.T) {
	h := newHarness(t, nil, nil, nil)

	resp := h.say("i need a purchas ordre")
	assert.Contains(t, resp.Reply, "Did you mean purchase order?")
	assert.Equal(t, "PurchaseOrder", resp.SessionState.Fields[session.KeyPendingIntentTask])
	assert.Nil(t, resp.SessionState.CurrentTask)

	resp = h.say("yes")
	assert.Equal(t, "PurchaseOrder", currentTask(resp.SessionState))
	assert.Equal(t, "Which supplier are you ordering from?", resp.NextQuestion)
	assert.NotContains(t, resp.SessionState.Fields, session.KeyPendingIntentTask)
}

func TestTaskGuessRejected(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	h.say("i need a purchas ordre")

	resp := h.say("no")
	assert.Contains(t, resp.Reply, "I can help with")
	assert.Nil(t, resp.SessionState.CurrentTask)
	assert.Empty(t, resp.SessionState.Fields)
}

func TestReportWithDownloads(t *testing.T) {
	h := newHarness(t, nil, nil, nil)

	resp := h.say("sales report from 1 January 2024 to 31 January 2024")
	assert.Equal(t, "SalesReport", currentTask(resp.SessionState))
	assert.Equal(t, "2024-01-01", resp.SessionState.Fields[KeyFromDate])
	assert.Equal(t, "2024-01-31", resp.SessionState.Fields[KeyToDate])
	assert.True(t, resp.SessionState.AwaitingConfirmation)

	resp = h.say("ok")
	require.True(t, resp.Completed)
	dl, ok := resp.Result.(models.DownloadResult)
	require.True(t, ok)
	assert.Equal(t, models.MethodGet, dl.DownloadAction.Method)
	assert.Equal(t, "sales-report-20240101-20240131.pdf", dl.DownloadAction.FileName)
	assert.NotContains(t, resp.SessionState.Fields, KeyFromDate)
	assert.NotEmpty(t, resp.SessionState.Fields[session.KeyLastDownloadURL])

	resp = h.say("download csv")
	dl, ok = resp.Result.(models.DownloadResult)
	require.True(t, ok)
	assert.Equal(t, models.MethodClientCSV, dl.DownloadAction.Method)
	assert.NotEmpty(t, dl.DownloadAction.Body)
	assert.Len(t, h.exec.Commands(), 1, "download does not rerun the report")

	resp = h.say("download")
	dl = resp.Result.(models.DownloadResult)
	assert.Equal(t, "sales-report-20240101-20240131.pdf", dl.DownloadAction.FileName)
}

func TestDownloadWithoutPointers(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	resp := h.say("download")
	assert.Nil(t, resp.Result)
}

func TestReportDateOrder(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	h.say("purchase report")

	resp := h.say("31 January 2024")
	assert.Equal(t, "2024-01-31", resp.SessionState.Fields[KeyFromDate])
	assert.Equal(t, "Up to which date?", resp.NextQuestion)

	resp = h.say("1 January 2024")
	assert.NotContains(t, resp.SessionState.Fields, KeyToDate)
	assert.Contains(t, resp.Reply, "on or after the start date (2024-01-31)")

	resp = h.say("garbage")
	assert.Contains(t, resp.Reply, "couldn't read a date")

	resp = h.say("2024-02-29")
	assert.Equal(t, "2024-02-29", resp.SessionState.Fields[KeyToDate])
	assert.Equal(t, formatSlot.Question, resp.NextQuestion)

	resp = h.say("CSV please")
	assert.Equal(t, "csv", resp.SessionState.Fields[KeyFormat])
	assert.True(t, resp.SessionState.AwaitingConfirmation)
}

func TestPermissionDenied(t *testing.T) {
	h := newHarness(t, nil, denyAll{}, nil)
	h.say("new supplier called Umbrella Corp")

	resp := h.say("yes")
	assert.False(t, resp.Success)
	assert.Equal(t, models.ErrorPermissionDenied, resp.ErrorCode)
	assert.NotEmpty(t, resp.Errors)
	assert.False(t, resp.Completed)
	assert.Equal(t, "Umbrella Corp", resp.SessionState.Fields[KeySupplierName])
	assert.True(t, resp.SessionState.AwaitingConfirmation)
	assert.Empty(t, h.exec.Commands())
}

func TestCommandFailureKeepsState(t *testing.T) {
	stub := &stubExecutor{res: &executor.Result{Succeeded: false, Errors: []string{"credit limit exceeded"}}}
	h := newHarness(t, nil, nil, stub)
	h.say("create purchase order for 5 widgets from Acme Supplies")

	resp := h.say("yes")
	assert.False(t, resp.Success)
	assert.Equal(t, []string{"credit limit exceeded"}, resp.Errors)
	assert.Equal(t, models.ErrorCommandFailed, resp.ErrorCode)
	assert.Equal(t, "5", resp.SessionState.Fields[KeyQuantity])
	assert.Equal(t, 1, stub.calls)

	stub.res, stub.err = nil, errors.New("nats: timeout")
	resp = h.say("yes")
	assert.False(t, resp.Success)
	assert.Equal(t, []string{"nats: timeout"}, resp.Errors)
	assert.Equal(t, 2, stub.calls)
}

func TestStockAdjustmentInline(t *testing.T) {
	h := newHarness(t, nil, nil, nil)

	resp := h.say("adjust stock of Sprocket by -4")
	assert.Equal(t, "StockAdjustment", currentTask(resp.SessionState))
	assert.Equal(t, "-4", resp.SessionState.Fields[KeyQuantity])
	require.True(t, resp.SessionState.AwaitingConfirmation)

	h.say("yes")
	require.Len(t, h.exec.Commands(), 1)
	assert.Equal(t, executor.AdjustStock{CompanyID: "c1", ProductName: "Sprocket", Delta: -4}, h.exec.Commands()[0])
}

func TestCustomerCreateOptionalSlots(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	h.say("add customer")
	h.say("Bob Stone")

	resp := h.say("not a phone")
	assert.Contains(t, resp.Reply, "doesn't look like a phone number")

	resp = h.say("+381 11 123 4567")
	assert.Equal(t, "+381 11 123 4567", resp.SessionState.Fields[KeyPhone])

	resp = h.say("bob@")
	assert.Contains(t, resp.Reply, "doesn't look like an email address")

	h.say("bob@example.com")
	resp = h.say("1500")
	assert.True(t, resp.SessionState.AwaitingConfirmation)

	h.say("yes")
	require.Len(t, h.exec.Commands(), 1)
	cmd := h.exec.Commands()[0].(executor.CreateCustomer)
	require.NotNil(t, cmd.CreditLimit)
	assert.Equal(t, 1500.0, *cmd.CreditLimit)
	assert.Equal(t, "bob@example.com", cmd.Email)
}

func TestSessionIDFromRequest(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	resp := h.o.Turn(context.Background(), &models.TurnRequest{SessionID: "s-1", Input: "hello"})
	assert.Equal(t, "s-1", resp.SessionState.SessionID)
}

func TestSessionIDFromRequestWhenStateHasNone(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	task := "SalesOrder"
	resp := h.o.Turn(context.Background(), &models.TurnRequest{
		SessionID:    "abc",
		CompanyID:    "c1",
		Input:        "Globex",
		SessionState: &models.ConversationState{CurrentTask: &task, Fields: map[string]string{}},
	})
	assert.Equal(t, "abc", resp.SessionState.SessionID)
	assert.Equal(t, "Globex", resp.SessionState.Fields[KeyCustomerName])
}

func TestUnknownTaskInStateIsDropped(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	bogus := "Teleport"
	h.state = &models.ConversationState{SessionID: "s-2", CurrentTask: &bogus, Fields: map[string]string{"x": "y"}}

	resp := h.say("hello")
	assert.Nil(t, resp.SessionState.CurrentTask)
	assert.Equal(t, "s-2", resp.SessionState.SessionID)
	assert.Empty(t, resp.SessionState.Fields)
}
