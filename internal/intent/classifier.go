// Package intent maps user sentences to actions using an ordered alias table
// and pulls slot values out of the sentence when it carries them inline.
package intent

import (
	"regexp"
	"strings"

	"github.com/avvvet/erpbuddy-assistant/internal/dates"
	"github.com/avvvet/erpbuddy-assistant/internal/fuzzy"
	"github.com/avvvet/erpbuddy-assistant/internal/textnorm"
)

// Action is a classified intent tag. Task actions share their name with the
// dialogue task they start.
type Action string

const (
	ActionUnknown         Action = "Unknown"
	ActionGreeting        Action = "Greeting"
	ActionThanks          Action = "Thanks"
	ActionHelp            Action = "Help"
	ActionSalesOrder      Action = "SalesOrder"
	ActionPurchaseOrder   Action = "PurchaseOrder"
	ActionProductCreate   Action = "ProductCreate"
	ActionCustomerCreate  Action = "CustomerCreate"
	ActionSupplierCreate  Action = "SupplierCreate"
	ActionStockAdjustment Action = "StockAdjustment"
	ActionSalesReport     Action = "SalesReport"
	ActionPurchaseReport  Action = "PurchaseReport"
	ActionInventoryReport Action = "InventoryReport"
	ActionListProducts    Action = "ListProducts"
	ActionListCustomers   Action = "ListCustomers"
	ActionListSuppliers   Action = "ListSuppliers"
)

// Slot keys filled by inline extraction of date ranges.
const (
	ParamFromDate = "fromDate"
	ParamToDate   = "toDate"
)

// Result is the outcome of classifying one sentence.
type Result struct {
	Action     Action            `json:"action"`
	Parameters map[string]string `json:"parameters"`
}

type matcher struct {
	alias string
	re    *regexp.Regexp // word-boundary matcher for short aliases
}

type entry struct {
	action   Action
	label    string
	task     bool
	dates    bool
	matchers []matcher
	extract  []*regexp.Regexp
}

// Classifier is safe for concurrent use once built.
type Classifier struct {
	norm       *textnorm.Normalizer
	resolver   *fuzzy.Resolver
	entries    []entry
	labels     map[Action]string
	tasks      map[Action]bool
	thresholds Thresholds
}

// NewClassifier builds a classifier from cfg. A nil cfg uses the embedded
// default table.
func NewClassifier(cfg *Config) (*Classifier, error) {
	if cfg == nil {
		var err error
		if cfg, err = DefaultConfig(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	norm := textnorm.New(cfg.Typos)
	c := &Classifier{
		norm:       norm,
		resolver:   fuzzy.NewResolver(norm),
		labels:     make(map[Action]string),
		tasks:      make(map[Action]bool),
		thresholds: cfg.Thresholds,
	}
	for _, ic := range cfg.Intents {
		e := entry{action: ic.Action, label: ic.Label, task: ic.Task, dates: ic.Dates}
		for _, a := range ic.Aliases {
			folded := c.norm.Fold(a)
			if folded == "" {
				continue
			}
			m := matcher{alias: folded}
			if isShortASCII(folded) {
				m.re = regexp.MustCompile(`\b` + regexp.QuoteMeta(folded) + `\b`)
			}
			e.matchers = append(e.matchers, m)
		}
		for _, p := range ic.Extract {
			e.extract = append(e.extract, regexp.MustCompile(p))
		}
		c.entries = append(c.entries, e)
		if _, ok := c.labels[ic.Action]; !ok {
			c.labels[ic.Action] = ic.Label
		}
		if ic.Task {
			c.tasks[ic.Action] = true
		}
	}
	return c, nil
}

// Classify scans the intent table top to bottom and returns the first
// action with a matching alias, plus any parameters the sentence carries.
func (c *Classifier) Classify(text string) Result {
	folded := c.norm.Fold(text)
	if folded == "" {
		return Result{Action: ActionUnknown, Parameters: map[string]string{}}
	}
	for _, e := range c.entries {
		if !e.matches(folded) {
			continue
		}
		return Result{Action: e.action, Parameters: e.parameters(text)}
	}
	return Result{Action: ActionUnknown, Parameters: map[string]string{}}
}

// IsTask reports whether a starts a multi-step task.
func (c *Classifier) IsTask(a Action) bool { return c.tasks[a] }

// Label is the human name of an action, e.g. "sales order".
func (c *Classifier) Label(a Action) string {
	if l, ok := c.labels[a]; ok && l != "" {
		return l
	}
	return string(a)
}

// Tasks lists task actions in table order.
func (c *Classifier) Tasks() []Action {
	var out []Action
	seen := make(map[Action]bool)
	for _, e := range c.entries {
		if e.task && !seen[e.action] {
			seen[e.action] = true
			out = append(out, e.action)
		}
	}
	return out
}

// Thresholds returns the configured similarity cut-offs.
func (c *Classifier) Thresholds() Thresholds { return c.thresholds }

// Normalizer returns the normalizer built with the table's typos.
func (c *Classifier) Normalizer() *textnorm.Normalizer { return c.norm }

// Resolver returns the fuzzy resolver sharing the classifier's typo table.
func (c *Classifier) Resolver() *fuzzy.Resolver { return c.resolver }

// GuessTask picks the task whose alias is most similar to any word window
// of text. It only returns a task at or above threshold.
func (c *Classifier) GuessTask(text string, threshold float64) (Action, float64, bool) {
	words := strings.Fields(c.norm.Fold(text))
	if len(words) == 0 {
		return ActionUnknown, 0, false
	}

	best, bestScore := ActionUnknown, 0.0
	for _, e := range c.entries {
		if !e.task {
			continue
		}
		for _, m := range e.matchers {
			n := len(strings.Fields(m.alias))
			for _, size := range []int{n - 1, n, n + 1} {
				if size < 1 || size > len(words) {
					continue
				}
				for i := 0; i+size <= len(words); i++ {
					window := strings.Join(words[i:i+size], " ")
					if s := c.resolver.Similarity(window, m.alias); s > bestScore {
						best, bestScore = e.action, s
					}
				}
			}
		}
	}
	if bestScore < threshold {
		return ActionUnknown, bestScore, false
	}
	return best, bestScore, true
}

func (e entry) matches(folded string) bool {
	for _, m := range e.matchers {
		if m.re != nil {
			if m.re.MatchString(folded) {
				return true
			}
			continue
		}
		if strings.Contains(folded, m.alias) {
			return true
		}
	}
	return false
}

func (e entry) parameters(raw string) map[string]string {
	params := make(map[string]string)
	for _, re := range e.extract {
		m := re.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		for i, name := range re.SubexpNames() {
			if name == "" || i >= len(m) {
				continue
			}
			if v := strings.TrimSpace(m[i]); v != "" {
				if _, taken := params[name]; !taken {
					params[name] = v
				}
			}
		}
		if !e.dates {
			break
		}
	}
	if e.dates {
		found := dates.Extract(raw)
		if len(found) > 0 {
			params[ParamFromDate] = dates.Format(found[0])
		}
		if len(found) > 1 {
			params[ParamToDate] = dates.Format(found[1])
		}
	}
	return params
}

func isShortASCII(s string) bool {
	if len(s) > 3 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
