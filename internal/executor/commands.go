// Package executor carries fully resolved business commands to the ERP
// command handlers and reports their outcome.
package executor

import (
	"context"
	"time"

	"github.com/avvvet/erpbuddy-assistant/internal/models"
)

// Command is a typed business action. Implementations are the closed set
// of structs in this file.
type Command interface {
	// Kind is the routing name, e.g. "sales_order.create".
	Kind() string
	// Permission is the key checked before dispatch.
	Permission() string
}

// Result is the command handler's answer. Errors are shown to the user
// verbatim when Succeeded is false.
type Result struct {
	Succeeded bool                   `json:"succeeded"`
	Message   string                 `json:"message,omitempty"`
	Data      any                    `json:"data,omitempty"`
	Download  *models.DownloadAction `json:"download,omitempty"`
	Alternate *models.DownloadAction `json:"alternateDownload,omitempty"`
	Errors    []string               `json:"errors,omitempty"`
}

// Executor dispatches commands. Each Send is all-or-nothing.
type Executor interface {
	Send(ctx context.Context, cmd Command) (*Result, error)
}

// OrderLine is shared by sales and purchase orders.
type OrderLine struct {
	ProductName string   `json:"productName"`
	Quantity    float64  `json:"quantity"`
	UnitPrice   *float64 `json:"unitPrice,omitempty"`
}

type CreateSalesOrder struct {
	CompanyID    string    `json:"companyId"`
	CustomerName string    `json:"customerName"`
	Line         OrderLine `json:"line"`
	Notes        string    `json:"notes,omitempty"`
}

type CreatePurchaseOrder struct {
	CompanyID    string    `json:"companyId"`
	SupplierName string    `json:"supplierName"`
	Line         OrderLine `json:"line"`
	Notes        string    `json:"notes,omitempty"`
}

type CreateProduct struct {
	CompanyID string   `json:"companyId"`
	Name      string   `json:"name"`
	SalePrice float64  `json:"salePrice"`
	CostPrice *float64 `json:"costPrice,omitempty"`
	SKU       string   `json:"sku,omitempty"`
	Category  string   `json:"category,omitempty"`
}

type CreateCustomer struct {
	CompanyID   string   `json:"companyId"`
	Name        string   `json:"name"`
	Phone       string   `json:"phone,omitempty"`
	Email       string   `json:"email,omitempty"`
	CreditLimit *float64 `json:"creditLimit,omitempty"`
}

type CreateSupplier struct {
	CompanyID string `json:"companyId"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
}

type AdjustStock struct {
	CompanyID   string  `json:"companyId"`
	ProductName string  `json:"productName"`
	Delta       float64 `json:"delta"`
	Reason      string  `json:"reason,omitempty"`
}

// ReportRange is the period and output format of a report.
type ReportRange struct {
	CompanyID string    `json:"companyId"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Format    string    `json:"format"`
}

type GenerateSalesReport struct {
	ReportRange
}

type GeneratePurchaseReport struct {
	ReportRange
}

type GenerateInventoryReport struct {
	CompanyID string `json:"companyId"`
	Format    string `json:"format"`
}

func (CreateSalesOrder) Kind() string        { return "sales_order.create" }
func (CreatePurchaseOrder) Kind() string     { return "purchase_order.create" }
func (CreateProduct) Kind() string           { return "product.create" }
func (CreateCustomer) Kind() string          { return "customer.create" }
func (CreateSupplier) Kind() string          { return "supplier.create" }
func (AdjustStock) Kind() string             { return "stock.adjust" }
func (GenerateSalesReport) Kind() string     { return "report.sales" }
func (GeneratePurchaseReport) Kind() string  { return "report.purchases" }
func (GenerateInventoryReport) Kind() string { return "report.inventory" }

func (CreateSalesOrder) Permission() string        { return "sales.create" }
func (CreatePurchaseOrder) Permission() string     { return "purchases.create" }
func (CreateProduct) Permission() string           { return "products.create" }
func (CreateCustomer) Permission() string          { return "customers.create" }
func (CreateSupplier) Permission() string          { return "suppliers.create" }
func (AdjustStock) Permission() string             { return "inventory.adjust" }
func (GenerateSalesReport) Permission() string     { return "reports.view" }
func (GeneratePurchaseReport) Permission() string  { return "reports.view" }
func (GenerateInventoryReport) Permission() string { return "reports.view" }
