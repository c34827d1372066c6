package executor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/avvvet/erpbuddy-assistant/internal/models"
)

// DryRun accepts every command without side effects and remembers what it
// was sent. Report commands get download pointers to the reports API.
type DryRun struct {
	mu       sync.Mutex
	BaseURL  string
	commands []Command
}

// Send records cmd and reports success.
func (d *DryRun) Send(ctx context.Context, cmd Command) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.commands = append(d.commands, cmd)
	d.mu.Unlock()

	res := &Result{Succeeded: true, Data: cmd}
	switch c := cmd.(type) {
	case GenerateSalesReport:
		res.Download, res.Alternate = d.reportDownloads("sales", c.ReportRange)
	case GeneratePurchaseReport:
		res.Download, res.Alternate = d.reportDownloads("purchases", c.ReportRange)
	case GenerateInventoryReport:
		res.Download, res.Alternate = d.reportDownloads("inventory", ReportRange{CompanyID: c.CompanyID, Format: c.Format})
	}
	return res, nil
}

// Commands returns the commands received so far.
func (d *DryRun) Commands() []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Command(nil), d.commands...)
}

// reportDownloads returns the requested format as the primary pointer and
// the other format as the alternate. CSV is rendered by the client.
func (d *DryRun) reportDownloads(name string, r ReportRange) (*models.DownloadAction, *models.DownloadAction) {
	q := url.Values{}
	q.Set("company", r.CompanyID)
	base := name + "-report"
	if !r.From.IsZero() {
		q.Set("from", r.From.Format("2006-01-02"))
		q.Set("to", r.To.Format("2006-01-02"))
		base += "-" + r.From.Format("20060102") + "-" + r.To.Format("20060102")
	}
	q.Set("format", "pdf")

	pdf := &models.DownloadAction{
		Method:   models.MethodGet,
		URL:      fmt.Sprintf("%s/api/reports/%s?%s", strings.TrimRight(d.BaseURL, "/"), name, q.Encode()),
		FileName: base + ".pdf",
	}
	csv := &models.DownloadAction{
		Method:   models.MethodClientCSV,
		Body:     "report,from,to\n" + name + "," + q.Get("from") + "," + q.Get("to") + "\n",
		FileName: base + ".csv",
	}
	if strings.EqualFold(r.Format, "csv") {
		return csv, pdf
	}
	return pdf, csv
}
