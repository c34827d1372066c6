package dialogue

import (
	"fmt"
	"time"

	"github.com/avvvet/erpbuddy-assistant/internal/catalog"
	"github.com/avvvet/erpbuddy-assistant/internal/dates"
	"github.com/avvvet/erpbuddy-assistant/internal/executor"
	"github.com/avvvet/erpbuddy-assistant/internal/intent"
	"github.com/avvvet/erpbuddy-assistant/internal/session"
)

// Slot keys. They double as the wire field names and as the named groups of
// the inline extraction patterns.
const (
	KeyCustomerName = "customerName"
	KeySupplierName = "supplierName"
	KeyProductName  = "productName"
	KeyQuantity     = "quantity"
	KeyUnitPrice    = "unitPrice"
	KeyNotes        = "notes"
	KeySalePrice    = "salePrice"
	KeyCostPrice    = "costPrice"
	KeySKU          = "sku"
	KeyCategory     = "category"
	KeyPhone        = "phone"
	KeyEmail        = "email"
	KeyCreditLimit  = "creditLimit"
	KeyReason       = "reason"
	KeyFromDate     = intent.ParamFromDate
	KeyToDate       = intent.ParamToDate
	KeyFormat       = "format"
)

// SlotKind selects how a slot value is captured and validated.
type SlotKind int

const (
	// KindText is free text.
	KindText SlotKind = iota
	// KindName is a new record name. Bare numbers are rejected.
	KindName
	// KindEntity must resolve to an existing catalog record.
	KindEntity
	KindNumber
	KindDate
	KindChoice
	KindEmail
	KindPhone
)

// NumberRule bounds a numeric slot.
type NumberRule int

const (
	AnyNumber NumberRule = iota
	Positive
	NonNegative
	NonZero
)

func (r NumberRule) allows(v float64) bool {
	switch r {
	case Positive:
		return v > 0
	case NonNegative:
		return v >= 0
	case NonZero:
		return v != 0
	}
	return true
}

// SlotSpec describes one piece of data a task collects.
type SlotSpec struct {
	Key      string
	Label    string
	Question string
	Kind     SlotKind
	Entity   catalog.EntityKind
	Rule     NumberRule
	Choices  []string
	Optional bool
}

// TaskSpec is the ordered slot list of a task and how its command is built
// once every slot is resolved.
type TaskSpec struct {
	Task  session.Task
	Label string
	Slots []SlotSpec
	Build func(companyID string, s *session.State) (executor.Command, error)
}

// Slot returns the spec for key.
func (t *TaskSpec) Slot(key string) (SlotSpec, bool) {
	for _, sl := range t.Slots {
		if sl.Key == key {
			return sl, true
		}
	}
	return SlotSpec{}, false
}

func (t *TaskSpec) required() []SlotSpec {
	var out []SlotSpec
	for _, sl := range t.Slots {
		if !sl.Optional {
			out = append(out, sl)
		}
	}
	return out
}

var formatSlot = SlotSpec{
	Key:      KeyFormat,
	Label:    "format",
	Question: `Which format would you like, PDF or CSV? Say "next" for PDF.`,
	Kind:     KindChoice,
	Choices:  []string{"pdf", "csv"},
	Optional: true,
}

func dateRange(what string) []SlotSpec {
	return []SlotSpec{
		{
			Key:      KeyFromDate,
			Label:    "start date",
			Question: fmt.Sprintf("From which date should the %s start? You can also give both dates, e.g. 1 January 2024 to 31 January 2024.", what),
			Kind:     KindDate,
		},
		{
			Key:      KeyToDate,
			Label:    "end date",
			Question: "Up to which date?",
			Kind:     KindDate,
		},
	}
}

func orderSlots(partyKey, partyLabel string, party catalog.EntityKind, partyQuestion string) []SlotSpec {
	return []SlotSpec{
		{Key: partyKey, Label: partyLabel, Question: partyQuestion, Kind: KindEntity, Entity: party},
		{Key: KeyProductName, Label: "product", Question: "Which product?", Kind: KindEntity, Entity: catalog.KindProduct},
		{Key: KeyQuantity, Label: "quantity", Question: "How many units?", Kind: KindNumber, Rule: Positive},
		{Key: KeyUnitPrice, Label: "unit price", Question: `What is the unit price? Say "next" to use the list price.`, Kind: KindNumber, Rule: NonNegative, Optional: true},
		{Key: KeyNotes, Label: "notes", Question: `Any notes for this order? Say "next" to skip.`, Kind: KindText, Optional: true},
	}
}

// DefaultTasks returns the built-in task table.
func DefaultTasks() map[session.Task]*TaskSpec {
	specs := []*TaskSpec{
		{
			Task:  session.TaskSalesOrder,
			Label: "sales order",
			Slots: orderSlots(KeyCustomerName, "customer", catalog.KindCustomer, "Which customer is this order for?"),
			Build: func(companyID string, s *session.State) (executor.Command, error) {
				line, err := orderLine(s)
				if err != nil {
					return nil, err
				}
				return executor.CreateSalesOrder{
					CompanyID:    companyID,
					CustomerName: s.Value(KeyCustomerName),
					Line:         line,
					Notes:        s.Value(KeyNotes),
				}, nil
			},
		},
		{
			Task:  session.TaskPurchaseOrder,
			Label: "purchase order",
			Slots: orderSlots(KeySupplierName, "supplier", catalog.KindSupplier, "Which supplier are you ordering from?"),
			Build: func(companyID string, s *session.State) (executor.Command, error) {
				line, err := orderLine(s)
				if err != nil {
					return nil, err
				}
				return executor.CreatePurchaseOrder{
					CompanyID:    companyID,
					SupplierName: s.Value(KeySupplierName),
					Line:         line,
					Notes:        s.Value(KeyNotes),
				}, nil
			},
		},
		{
			Task:  session.TaskProductCreate,
			Label: "new product",
			Slots: []SlotSpec{
				{Key: KeyProductName, Label: "product name", Question: "What is the name of the new product?", Kind: KindName},
				{Key: KeySalePrice, Label: "sale price", Question: "What is the sale price?", Kind: KindNumber, Rule: NonNegative},
				{Key: KeyCostPrice, Label: "cost price", Question: `What is the cost price? Say "next" to skip.`, Kind: KindNumber, Rule: NonNegative, Optional: true},
				{Key: KeySKU, Label: "SKU", Question: `What is the SKU? Say "next" to skip.`, Kind: KindText, Optional: true},
				{Key: KeyCategory, Label: "category", Question: `Which category does it belong to? Say "next" to skip.`, Kind: KindText, Optional: true},
			},
			Build: func(companyID string, s *session.State) (executor.Command, error) {
				price, err := number(s, KeySalePrice)
				if err != nil {
					return nil, err
				}
				cost, err := optionalNumber(s, KeyCostPrice)
				if err != nil {
					return nil, err
				}
				return executor.CreateProduct{
					CompanyID: companyID,
					Name:      s.Value(KeyProductName),
					SalePrice: price,
					CostPrice: cost,
					SKU:       s.Value(KeySKU),
					Category:  s.Value(KeyCategory),
				}, nil
			},
		},
		{
			Task:  session.TaskCustomerCreate,
			Label: "new customer",
			Slots: []SlotSpec{
				{Key: KeyCustomerName, Label: "customer name", Question: "What is the customer's name?", Kind: KindName},
				{Key: KeyPhone, Label: "phone", Question: `What is their phone number? Say "next" to skip.`, Kind: KindPhone, Optional: true},
				{Key: KeyEmail, Label: "email", Question: `What is their email address? Say "next" to skip.`, Kind: KindEmail, Optional: true},
				{Key: KeyCreditLimit, Label: "credit limit", Question: `What credit limit should they have? Say "next" to skip.`, Kind: KindNumber, Rule: NonNegative, Optional: true},
			},
			Build: func(companyID string, s *session.State) (executor.Command, error) {
				limit, err := optionalNumber(s, KeyCreditLimit)
				if err != nil {
					return nil, err
				}
				return executor.CreateCustomer{
					CompanyID:   companyID,
					Name:        s.Value(KeyCustomerName),
					Phone:       s.Value(KeyPhone),
					Email:       s.Value(KeyEmail),
					CreditLimit: limit,
				}, nil
			},
		},
		{
			Task:  session.TaskSupplierCreate,
			Label: "new supplier",
			Slots: []SlotSpec{
				{Key: KeySupplierName, Label: "supplier name", Question: "What is the supplier's name?", Kind: KindName},
				{Key: KeyPhone, Label: "phone", Question: `What is their phone number? Say "next" to skip.`, Kind: KindPhone, Optional: true},
				{Key: KeyEmail, Label: "email", Question: `What is their email address? Say "next" to skip.`, Kind: KindEmail, Optional: true},
			},
			Build: func(companyID string, s *session.State) (executor.Command, error) {
				return executor.CreateSupplier{
					CompanyID: companyID,
					Name:      s.Value(KeySupplierName),
					Phone:     s.Value(KeyPhone),
					Email:     s.Value(KeyEmail),
				}, nil
			},
		},
		{
			Task:  session.TaskStockAdjustment,
			Label: "stock adjustment",
			Slots: []SlotSpec{
				{Key: KeyProductName, Label: "product", Question: "Which product's stock should I adjust?", Kind: KindEntity, Entity: catalog.KindProduct},
				{Key: KeyQuantity, Label: "quantity", Question: "By how many units? Use a negative number to remove stock.", Kind: KindNumber, Rule: NonZero},
				{Key: KeyReason, Label: "reason", Question: `What is the reason? Say "next" to skip.`, Kind: KindText, Optional: true},
			},
			Build: func(companyID string, s *session.State) (executor.Command, error) {
				delta, err := number(s, KeyQuantity)
				if err != nil {
					return nil, err
				}
				return executor.AdjustStock{
					CompanyID:   companyID,
					ProductName: s.Value(KeyProductName),
					Delta:       delta,
					Reason:      s.Value(KeyReason),
				}, nil
			},
		},
		{
			Task:  session.TaskSalesReport,
			Label: "sales report",
			Slots: append(dateRange("sales report"), formatSlot),
			Build: func(companyID string, s *session.State) (executor.Command, error) {
				r, err := reportRange(companyID, s)
				if err != nil {
					return nil, err
				}
				return executor.GenerateSalesReport{ReportRange: r}, nil
			},
		},
		{
			Task:  session.TaskPurchaseReport,
			Label: "purchase report",
			Slots: append(dateRange("purchase report"), formatSlot),
			Build: func(companyID string, s *session.State) (executor.Command, error) {
				r, err := reportRange(companyID, s)
				if err != nil {
					return nil, err
				}
				return executor.GeneratePurchaseReport{ReportRange: r}, nil
			},
		},
		{
			Task:  session.TaskInventoryReport,
			Label: "inventory report",
			Slots: []SlotSpec{formatSlot},
			Build: func(companyID string, s *session.State) (executor.Command, error) {
				return executor.GenerateInventoryReport{CompanyID: companyID, Format: reportFormat(s)}, nil
			},
		},
	}

	out := make(map[session.Task]*TaskSpec, len(specs))
	for _, t := range specs {
		out[t.Task] = t
	}
	return out
}

func orderLine(s *session.State) (executor.OrderLine, error) {
	qty, err := number(s, KeyQuantity)
	if err != nil {
		return executor.OrderLine{}, err
	}
	price, err := optionalNumber(s, KeyUnitPrice)
	if err != nil {
		return executor.OrderLine{}, err
	}
	return executor.OrderLine{ProductName: s.Value(KeyProductName), Quantity: qty, UnitPrice: price}, nil
}

func number(s *session.State, key string) (float64, error) {
	v, ok := ParseNumber(s.Value(key))
	if !ok {
		return 0, fmt.Errorf("slot %s holds no number", key)
	}
	return v, nil
}

func optionalNumber(s *session.State, key string) (*float64, error) {
	if !s.Filled(key) {
		return nil, nil
	}
	v, err := number(s, key)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func reportRange(companyID string, s *session.State) (executor.ReportRange, error) {
	from, err := time.Parse(dates.Layout, s.Value(KeyFromDate))
	if err != nil {
		return executor.ReportRange{}, fmt.Errorf("invalid start date: %w", err)
	}
	to, err := time.Parse(dates.Layout, s.Value(KeyToDate))
	if err != nil {
		return executor.ReportRange{}, fmt.Errorf("invalid end date: %w", err)
	}
	return executor.ReportRange{CompanyID: companyID, From: from, To: to, Format: reportFormat(s)}, nil
}

func reportFormat(s *session.State) string {
	if f := s.Value(KeyFormat); f != "" {
		return f
	}
	return "pdf"
}
