// Package session holds the typed per-conversation state threaded through
// every turn, and its adapter to the flat wire map.
package session

import (
	"strings"

	"github.com/google/uuid"
)

// Task names the active multi-step workflow. The zero value means idle.
type Task string

const (
	TaskNone            Task = ""
	TaskSalesOrder      Task = "SalesOrder"
	TaskPurchaseOrder   Task = "PurchaseOrder"
	TaskProductCreate   Task = "ProductCreate"
	TaskCustomerCreate  Task = "CustomerCreate"
	TaskSupplierCreate  Task = "SupplierCreate"
	TaskStockAdjustment Task = "StockAdjustment"
	TaskSalesReport     Task = "SalesReport"
	TaskPurchaseReport  Task = "PurchaseReport"
	TaskInventoryReport Task = "InventoryReport"
)

// SlotStatus distinguishes a typed value from an explicit skip. Verified
// values were matched against the catalog and are not looked up again.
type SlotStatus int

const (
	SlotFilled SlotStatus = iota + 1
	SlotSkipped
	SlotVerified
)

// Slot is one collected value.
type Slot struct {
	Value  string
	Status SlotStatus
}

// Pending is an open yes/no sub-dialogue. It is one of *PendingCorrection
// or *PendingIntent.
type Pending interface {
	pending()
}

// PendingCorrection offers Value as a replacement for what the user typed
// into Field.
type PendingCorrection struct {
	Field string
	Value string
	Label string
}

// PendingIntent asks whether the user meant to start Task.
type PendingIntent struct {
	Task  Task
	Label string
}

func (*PendingCorrection) pending() {}
func (*PendingIntent) pending()     {}

// Download points at a file produced by an earlier action.
type Download struct {
	Method   string
	URL      string
	Body     string
	FileName string
}

// State is the session record. It is not safe for concurrent use; turns of
// one session must be serialized by the caller.
type State struct {
	SessionID            string
	Task                 Task
	Slots                map[string]Slot
	Pending              Pending
	AwaitingConfirmation bool
	LastQuestion         string
	LastAssistantMessage string
	StepIndex            int
	LastDownload         *Download
	AltDownload          *Download
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// New returns an empty idle state. An empty id is replaced with a fresh one.
func New(sessionID string) *State {
	if sessionID == "" {
		sessionID = NewID()
	}
	return &State{SessionID: sessionID, Slots: make(map[string]Slot)}
}

// Reset returns a new empty state carrying only the session id.
func (s *State) Reset() *State {
	return New(s.SessionID)
}

// Idle reports whether no task is active.
func (s *State) Idle() bool { return s.Task == TaskNone }

// Value returns the slot value, empty when unset or skipped.
func (s *State) Value(key string) string {
	return s.Slots[key].Value
}

// Has reports whether the slot was filled or explicitly skipped.
func (s *State) Has(key string) bool {
	_, ok := s.Slots[key]
	return ok
}

// Filled reports whether the slot holds a non-blank value.
func (s *State) Filled(key string) bool {
	sl, ok := s.Slots[key]
	return ok && sl.Status != SlotSkipped && strings.TrimSpace(sl.Value) != ""
}

// Verified reports whether the slot value was confirmed against the catalog.
func (s *State) Verified(key string) bool {
	sl, ok := s.Slots[key]
	return ok && sl.Status == SlotVerified
}

// Set stores an unverified value.
func (s *State) Set(key, value string) {
	s.ensure()
	s.Slots[key] = Slot{Value: strings.TrimSpace(value), Status: SlotFilled}
}

// Verify stores a catalog-confirmed value.
func (s *State) Verify(key, value string) {
	s.ensure()
	s.Slots[key] = Slot{Value: value, Status: SlotVerified}
}

// Skip marks an optional slot as deliberately left empty.
func (s *State) Skip(key string) {
	s.ensure()
	s.Slots[key] = Slot{Status: SlotSkipped}
}

// Clear forgets a slot.
func (s *State) Clear(key string) {
	delete(s.Slots, key)
}

// StartTask switches to t with all slots, pending dialogues and the
// confirmation flag cleared.
func (s *State) StartTask(t Task) {
	s.Task = t
	s.Slots = make(map[string]Slot)
	s.Pending = nil
	s.AwaitingConfirmation = false
	s.StepIndex = 0
}

func (s *State) ensure() {
	if s.Slots == nil {
		s.Slots = make(map[string]Slot)
	}
}
