// Package dialogue runs one conversational turn: built-in commands, pending
// yes/no questions, intent routing, slot filling, the confirmation gate and
// command dispatch.
package dialogue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/avvvet/erpbuddy-assistant/internal/catalog"
	"github.com/avvvet/erpbuddy-assistant/internal/dates"
	"github.com/avvvet/erpbuddy-assistant/internal/executor"
	"github.com/avvvet/erpbuddy-assistant/internal/fuzzy"
	"github.com/avvvet/erpbuddy-assistant/internal/intent"
	"github.com/avvvet/erpbuddy-assistant/internal/metrics"
	"github.com/avvvet/erpbuddy-assistant/internal/models"
	"github.com/avvvet/erpbuddy-assistant/internal/permissions"
	"github.com/avvvet/erpbuddy-assistant/internal/prompts"
	"github.com/avvvet/erpbuddy-assistant/internal/session"
)

// Turn outcomes, used as a metrics label.
const (
	OutcomeReply     = "reply"
	OutcomeQuestion  = "question"
	OutcomeConfirm   = "confirm"
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
	OutcomeRepeat    = "repeat"
	OutcomeDownload  = "download"
)

// Defaults for the bounded catalog queries.
const (
	DefaultCandidateLimit = 60
	DefaultListLimit      = 10
)

// Orchestrator is stateless between turns and safe for concurrent use.
// Turns of one session must still be serialized by the caller.
type Orchestrator struct {
	classifier *intent.Classifier
	lookup     catalog.Lookup
	perms      permissions.Checker
	exec       executor.Executor
	tasks      map[session.Task]*TaskSpec
	render     *prompts.Renderer
	logger     *zap.Logger
	metrics    metrics.Recorder

	entityThreshold float64
	taskThreshold   float64
	candidateLimit  int
	listLimit       int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithMetrics(m metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

func WithRenderer(r *prompts.Renderer) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.render = r
		}
	}
}

// WithThresholds overrides the similarity cut-offs from the intent table.
// Zero values keep the current setting.
func WithThresholds(entity, task float64) Option {
	return func(o *Orchestrator) {
		if entity > 0 {
			o.entityThreshold = entity
		}
		if task > 0 {
			o.taskThreshold = task
		}
	}
}

// WithLimits bounds the candidate names fetched for resolution and the
// names shown for a list request.
func WithLimits(candidates, list int) Option {
	return func(o *Orchestrator) {
		if candidates > 0 {
			o.candidateLimit = candidates
		}
		if list > 0 {
			o.listLimit = list
		}
	}
}

// WithTasks replaces the task table.
func WithTasks(tasks map[session.Task]*TaskSpec) Option {
	return func(o *Orchestrator) {
		if len(tasks) > 0 {
			o.tasks = tasks
		}
	}
}

// New builds an Orchestrator over its collaborators.
func New(classifier *intent.Classifier, lookup catalog.Lookup, perms permissions.Checker, exec executor.Executor, opts ...Option) *Orchestrator {
	render, err := prompts.NewRenderer(nil)
	if err != nil {
		panic(err)
	}
	th := classifier.Thresholds()
	o := &Orchestrator{
		classifier:      classifier,
		lookup:          lookup,
		perms:           perms,
		exec:            exec,
		tasks:           DefaultTasks(),
		render:          render,
		logger:          zap.NewNop(),
		metrics:         metrics.Nop{},
		entityThreshold: th.Entity,
		taskThreshold:   th.Task,
		candidateLimit:  DefaultCandidateLimit,
		listLimit:       DefaultListLimit,
	}
	if o.entityThreshold <= 0 {
		o.entityThreshold = fuzzy.EntityThreshold
	}
	if o.taskThreshold <= 0 {
		o.taskThreshold = fuzzy.TaskThreshold
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Thresholds returns the entity correction and task guess cut-offs in use.
func (o *Orchestrator) Thresholds() (entity, task float64) {
	return o.entityThreshold, o.taskThreshold
}

// turn is the working set of one call.
type turn struct {
	ctx      context.Context
	req      *models.TurnRequest
	input    string
	folded   string
	st       *session.State
	task     session.Task
	consumed bool
	reset    bool
	outcome  string
	resp     *models.TurnResponse
}

// Turn processes one user input against the prior state carried by req and
// returns the reply and the next state. It never fails: collaborator errors
// become unsuccessful replies.
func (o *Orchestrator) Turn(ctx context.Context, req *models.TurnRequest) *models.TurnResponse {
	start := time.Now()
	t := o.begin(ctx, req)

	o.run(t)

	if t.resp.Action == "" && !t.st.Idle() {
		t.resp.Action = string(t.st.Task)
	}
	t.resp.SessionState = t.st.ToWire()

	o.metrics.ObserveTurn(string(t.task), t.outcome, time.Since(start))
	o.logger.Info("turn processed",
		zap.String("session_id", t.st.SessionID),
		zap.String("company_id", req.CompanyID),
		zap.String("task", string(t.task)),
		zap.String("outcome", t.outcome),
		zap.Bool("success", t.resp.Success),
	)
	return t.resp
}

func (o *Orchestrator) begin(ctx context.Context, req *models.TurnRequest) *turn {
	st := session.FromWire(req.SessionState, req.SessionID)
	if !st.Idle() {
		if _, ok := o.tasks[st.Task]; !ok {
			o.logger.Warn("dropping unknown task from session state",
				zap.String("session_id", st.SessionID),
				zap.String("task", string(st.Task)),
			)
			st = st.Reset()
		}
	}
	input := strings.TrimSpace(req.Input)
	return &turn{
		ctx:     ctx,
		req:     req,
		input:   input,
		folded:  o.classifier.Normalizer().Fold(input),
		st:      st,
		task:    st.Task,
		outcome: OutcomeReply,
		resp:    &models.TurnResponse{Success: true},
	}
}

func (o *Orchestrator) run(t *turn) {
	if o.builtin(t) {
		return
	}
	if o.resolvePending(t) {
		return
	}
	if t.st.AwaitingConfirmation && !t.st.Idle() {
		if o.confirmation(t) {
			return
		}
	}
	if o.route(t) {
		return
	}
	o.advance(t)
}

// builtin handles cancel, repeat and download before anything else.
func (o *Orchestrator) builtin(t *turn) bool {
	switch {
	case isCancel(t.folded):
		o.cancel(t)
		return true
	case isRepeat(t.folded):
		o.repeat(t)
		return true
	}
	if format, ok := downloadFormat(t.folded); ok {
		return o.download(t, format)
	}
	return false
}

func (o *Orchestrator) cancel(t *turn) {
	if t.st.Idle() && t.st.Pending == nil {
		o.reply(t, OutcomeReply, o.text(prompts.NothingToCancel, nil), "")
		return
	}
	label := "request"
	if spec, ok := o.tasks[t.st.Task]; ok {
		label = spec.Label
	}
	t.st = t.st.Reset()
	t.reset = true
	t.resp.Cancelled = true
	o.reply(t, OutcomeCancelled, o.text(prompts.Cancelled, map[string]any{"task": label}), "")
}

// repeat never mutates the state.
func (o *Orchestrator) repeat(t *turn) {
	msg := t.st.LastQuestion
	if msg == "" {
		msg = t.st.LastAssistantMessage
	}
	if msg == "" {
		msg = o.text(prompts.NothingToRepeat, nil)
	}
	t.outcome = OutcomeRepeat
	t.resp.Reply = msg
	t.resp.NextQuestion = t.st.LastQuestion
}

func (o *Orchestrator) download(t *turn, format string) bool {
	d := pickDownload(format, t.st.LastDownload, t.st.AltDownload)
	if d == nil {
		return false
	}
	t.outcome = OutcomeDownload
	t.resp.Result = models.DownloadResult{DownloadAction: d.DownloadAction()}
	t.resp.Reply = o.text(prompts.Download, map[string]any{"fileName": d.FileName})
	return true
}

func pickDownload(format string, downloads ...*session.Download) *session.Download {
	var first *session.Download
	for _, d := range downloads {
		if d == nil {
			continue
		}
		if first == nil {
			first = d
		}
		if format == "" || downloadIs(d, format) {
			return d
		}
	}
	return first
}

func downloadIs(d *session.Download, format string) bool {
	if strings.HasSuffix(strings.ToLower(d.FileName), "."+format) {
		return true
	}
	return d.Method == "CLIENT_"+strings.ToUpper(format)
}

// resolvePending answers an open yes/no question. It returns false when the
// turn should continue into the task.
func (o *Orchestrator) resolvePending(t *turn) bool {
	switch p := t.st.Pending.(type) {
	case nil:
		return false
	case *session.PendingCorrection:
		return o.resolveCorrection(t, p)
	case *session.PendingIntent:
		return o.resolveIntentGuess(t, p)
	default:
		t.st.Pending = nil
		return false
	}
}

func (o *Orchestrator) resolveCorrection(t *turn, p *session.PendingCorrection) bool {
	switch intent.ClassifyAnswer(t.input) {
	case intent.AnswerYes:
		t.st.Verify(p.Field, p.Value)
		t.st.Pending = nil
		t.consumed = true
		o.metrics.ObserveCorrection(p.Field, true)
		return false
	case intent.AnswerNo:
		t.st.Clear(p.Field)
		t.st.Pending = nil
		t.consumed = true
		o.metrics.ObserveCorrection(p.Field, false)
		return false
	case intent.AnswerAmbiguous:
		o.askAgain(t, o.text(prompts.AnswerYesOrNo, nil))
	default:
		o.askAgain(t, "")
	}
	return true
}

func (o *Orchestrator) resolveIntentGuess(t *turn, p *session.PendingIntent) bool {
	switch intent.ClassifyAnswer(t.input) {
	case intent.AnswerYes:
		if _, ok := o.tasks[p.Task]; !ok {
			t.st.Pending = nil
			o.reply(t, OutcomeReply, o.helpMenu(), "")
			return true
		}
		o.startTask(t, p.Task, nil)
		t.consumed = true
		return false
	case intent.AnswerNo:
		t.st.Pending = nil
		o.reply(t, OutcomeReply, o.helpMenu(), "")
	case intent.AnswerAmbiguous:
		o.askAgain(t, o.text(prompts.AnswerYesOrNo, nil))
	default:
		o.askAgain(t, "")
	}
	return true
}

// confirmation handles a turn that starts at the confirmation gate. The
// command runs only here, never on the turn that opened the gate.
func (o *Orchestrator) confirmation(t *turn) bool {
	spec := o.tasks[t.st.Task]
	answer := intent.ClassifyAnswer(t.input)
	if t.req.Confirmed || answer == intent.AnswerYes {
		o.dispatch(t, spec)
		return true
	}

	switch answer {
	case intent.AnswerNo:
		t.st = t.st.Reset()
		t.reset = true
		t.resp.Cancelled = true
		o.reply(t, OutcomeCancelled, o.text(prompts.Declined, map[string]any{"task": spec.Label}), "")
		return true
	case intent.AnswerAmbiguous:
		o.askAgain(t, o.text(prompts.AnswerYesOrNo, nil))
		t.resp.ConfirmationMessage = t.st.LastQuestion
		return true
	}

	if t.input != "" {
		res := o.classifier.Classify(t.input)
		if task := session.Task(res.Action); o.classifier.IsTask(res.Action) && task != t.st.Task {
			if _, ok := o.tasks[task]; ok {
				o.startTask(t, task, res.Parameters)
				t.consumed = true
				return false
			}
		}
	}

	t.outcome = OutcomeConfirm
	t.resp.Reply = o.text(prompts.ConfirmReminder, map[string]any{"task": spec.Label})
	t.resp.ConfirmationMessage = t.st.LastQuestion
	t.resp.NextQuestion = t.st.LastQuestion
	return true
}

// route classifies unconsumed input. It returns false when the active task
// should take the input as a slot value.
func (o *Orchestrator) route(t *turn) bool {
	if t.consumed || t.input == "" {
		if t.st.Idle() {
			o.reply(t, OutcomeReply, o.helpMenu(), "")
			return true
		}
		return false
	}
	if !t.st.Idle() && o.expectsFreeText(t) {
		return false
	}

	res := o.classifier.Classify(t.input)
	o.logger.Debug("classified input",
		zap.String("session_id", t.st.SessionID),
		zap.String("action", string(res.Action)),
		zap.Int("parameters", len(res.Parameters)),
	)

	if o.classifier.IsTask(res.Action) {
		task := session.Task(res.Action)
		if _, ok := o.tasks[task]; ok {
			switch {
			case task != t.st.Task:
				o.startTask(t, task, res.Parameters)
				t.consumed = true
			case len(res.Parameters) > 0:
				o.prefill(t, res.Parameters)
				t.consumed = true
			}
			return false
		}
	}

	if !t.st.Idle() {
		if res.Action == intent.ActionHelp {
			o.taskHelp(t)
			return true
		}
		return false
	}

	t.resp.Action = string(res.Action)
	switch res.Action {
	case intent.ActionGreeting:
		o.reply(t, OutcomeReply, o.text(prompts.Greeting, nil), "")
	case intent.ActionThanks:
		o.reply(t, OutcomeReply, o.text(prompts.Thanks, nil), "")
	case intent.ActionHelp:
		o.reply(t, OutcomeReply, o.helpMenu(), "")
	case intent.ActionListProducts:
		o.listNames(t, catalog.KindProduct)
	case intent.ActionListCustomers:
		o.listNames(t, catalog.KindCustomer)
	case intent.ActionListSuppliers:
		o.listNames(t, catalog.KindSupplier)
	default:
		t.resp.Action = ""
		o.guessTask(t)
	}
	return true
}

// expectsFreeText reports whether the next open slot takes arbitrary text,
// in which case intent phrases inside the input are not acted on.
func (o *Orchestrator) expectsFreeText(t *turn) bool {
	if t.st.Pending != nil || t.st.AwaitingConfirmation {
		return false
	}
	spec := o.tasks[t.st.Task]
	for _, sl := range spec.Slots {
		if !t.st.Has(sl.Key) {
			return sl.Kind == KindText
		}
	}
	return false
}

func (o *Orchestrator) guessTask(t *turn) {
	action, score, ok := o.classifier.GuessTask(t.input, o.taskThreshold)
	if !ok {
		reply := o.text(prompts.FallbackMessage, nil) + " " + o.helpMenu()
		o.reply(t, OutcomeReply, reply, "")
		return
	}
	task := session.Task(action)
	spec, known := o.tasks[task]
	if !known {
		o.reply(t, OutcomeReply, o.helpMenu(), "")
		return
	}
	o.logger.Debug("guessed task",
		zap.String("session_id", t.st.SessionID),
		zap.String("task", string(task)),
		zap.Float64("score", score),
	)
	t.st.Pending = &session.PendingIntent{Task: task, Label: spec.Label}
	q := o.text(prompts.DidYouMeanTask, map[string]any{"label": spec.Label})
	o.reply(t, OutcomeQuestion, q, q)
}

func (o *Orchestrator) startTask(t *turn, task session.Task, params map[string]string) {
	t.st.StartTask(task)
	t.task = task
	o.prefill(t, params)

	// A sentence that carries every required value goes straight to the
	// confirmation gate without asking for optional ones.
	spec := o.tasks[task]
	if len(params) == 0 {
		return
	}
	for _, sl := range spec.required() {
		if !t.st.Has(sl.Key) {
			return
		}
	}
	for _, sl := range spec.Slots {
		if sl.Optional && !t.st.Has(sl.Key) {
			t.st.Skip(sl.Key)
		}
	}
}

func (o *Orchestrator) prefill(t *turn, params map[string]string) {
	spec := o.tasks[t.st.Task]
	for k, v := range params {
		if _, ok := spec.Slot(k); !ok || strings.TrimSpace(v) == "" || t.st.Has(k) {
			continue
		}
		t.st.Set(k, v)
	}
}

// advance walks the slots in order. Each turn fills at most one slot from
// the input and asks at most one question.
func (o *Orchestrator) advance(t *turn) {
	spec, ok := o.tasks[t.st.Task]
	if !ok {
		o.reply(t, OutcomeReply, o.helpMenu(), "")
		return
	}
	for i, slot := range spec.Slots {
		if !t.st.Has(slot.Key) {
			if o.capture(t, i, slot) {
				return
			}
			if !t.st.Has(slot.Key) {
				t.st.StepIndex = i
				o.ask(t, slot, "")
				return
			}
		}
		if o.check(t, i, slot) {
			return
		}
	}
	o.gate(t, spec)
}

// capture stores the unconsumed input as the value of slot. It returns
// true when it already replied.
func (o *Orchestrator) capture(t *turn, i int, slot SlotSpec) bool {
	if t.consumed || t.input == "" {
		return false
	}
	if slot.Kind == KindEntity && isListRequest(t.folded, slot.Entity) {
		t.consumed = true
		t.st.StepIndex = i
		o.listForSlot(t, slot)
		return true
	}
	t.consumed = true

	if slot.Optional && isSkip(t.folded) {
		t.st.Skip(slot.Key)
		return false
	}

	switch slot.Kind {
	case KindEntity, KindName:
		if isBareNumber(t.input) {
			t.st.StepIndex = i
			o.ask(t, slot, o.text(prompts.NameNotNumber, map[string]any{"label": slot.Label}))
			return true
		}
	case KindDate:
		found := dates.Extract(t.input)
		if len(found) == 0 {
			t.st.StepIndex = i
			o.ask(t, slot, o.text(prompts.InvalidDate, map[string]any{"value": t.input}))
			return true
		}
		t.st.Set(slot.Key, dates.Format(found[0]))
		if slot.Key == KeyFromDate && len(found) > 1 && !t.st.Has(KeyToDate) {
			t.st.Set(KeyToDate, dates.Format(found[1]))
		}
		return false
	}
	t.st.Set(slot.Key, t.input)
	return false
}

// check validates a present slot value, normalizing it in place. It
// returns true when it replied, either re-asking or opening a correction.
func (o *Orchestrator) check(t *turn, i int, slot SlotSpec) bool {
	if !t.st.Filled(slot.Key) {
		if slot.Optional {
			return false
		}
		t.st.Clear(slot.Key)
		t.st.StepIndex = i
		o.ask(t, slot, o.text(prompts.RequiredSlot, map[string]any{"label": slot.Label}))
		return true
	}

	value := t.st.Value(slot.Key)
	switch slot.Kind {
	case KindNumber:
		v, ok := ParseNumber(value)
		if !ok || !slot.Rule.allows(v) {
			return o.reject(t, i, slot, prompts.InvalidNumber, value)
		}
		t.st.Set(slot.Key, FormatNumber(v))

	case KindDate:
		d, ok := parseDate(value)
		if !ok {
			return o.reject(t, i, slot, prompts.InvalidDate, value)
		}
		t.st.Set(slot.Key, dates.Format(d))
		if slot.Key == KeyToDate {
			if from, ok := parseDate(t.st.Value(KeyFromDate)); ok && d.Before(from) {
				t.st.Clear(KeyToDate)
				t.st.StepIndex = i
				o.ask(t, slot, o.text(prompts.DateOrder, map[string]any{"from": dates.Format(from)}))
				return true
			}
		}

	case KindChoice:
		c, ok := matchChoice(o.classifier.Normalizer().Fold(value), slot.Choices)
		if !ok {
			return o.reject(t, i, slot, prompts.InvalidChoice, value)
		}
		t.st.Set(slot.Key, c)

	case KindEmail:
		if !validEmail(value) {
			return o.reject(t, i, slot, prompts.InvalidEmail, value)
		}

	case KindPhone:
		if !validPhone(value) {
			return o.reject(t, i, slot, prompts.InvalidPhone, value)
		}

	case KindEntity:
		if !t.st.Verified(slot.Key) {
			return o.resolveEntity(t, i, slot)
		}
	}
	return false
}

func (o *Orchestrator) reject(t *turn, i int, slot SlotSpec, tmpl, value string) bool {
	t.st.Clear(slot.Key)
	t.st.StepIndex = i
	o.ask(t, slot, o.text(tmpl, map[string]any{
		"value":   value,
		"label":   slot.Label,
		"choices": strings.Join(slot.Choices, ", "),
	}))
	return true
}

// resolveEntity binds an entered name to a catalog record. An exact match
// is adopted silently; a close match opens a correction question; no match
// re-asks the slot.
func (o *Orchestrator) resolveEntity(t *turn, i int, slot SlotSpec) bool {
	value := t.st.Value(slot.Key)
	candidates, err := o.candidates(t, slot.Entity, value)
	if err != nil {
		o.logger.Warn("catalog lookup failed",
			zap.String("session_id", t.st.SessionID),
			zap.String("kind", string(slot.Entity)),
			zap.Error(err),
		)
		t.st.Clear(slot.Key)
		t.st.StepIndex = i
		o.ask(t, slot, o.text(prompts.LookupFailed, map[string]any{"label": slot.Label}))
		return true
	}

	norm := o.classifier.Normalizer()
	key := norm.Normalize(value)
	for _, c := range candidates {
		if norm.Normalize(c) == key {
			t.st.Verify(slot.Key, c)
			return false
		}
	}

	t.st.StepIndex = i
	if m, ok := o.classifier.Resolver().ResolveMatch(value, candidates, o.entityThreshold); ok {
		o.logger.Debug("suggesting correction",
			zap.String("session_id", t.st.SessionID),
			zap.String("field", slot.Key),
			zap.String("suggestion", m.Candidate),
			zap.Stringer("tier", m.Tier),
		)
		t.st.Pending = &session.PendingCorrection{Field: slot.Key, Value: m.Candidate, Label: slot.Label}
		q := o.text(prompts.DidYouMeanEntity, map[string]any{
			"label":      slot.Label,
			"value":      value,
			"suggestion": m.Candidate,
		})
		o.reply(t, OutcomeQuestion, q, q)
		return true
	}

	t.st.Clear(slot.Key)
	o.ask(t, slot, o.text(prompts.NotFound, map[string]any{"label": slot.Label, "value": value}))
	return true
}

// candidates fetches names for value, widening to its first word and then
// to the whole list when nothing contains the full text.
func (o *Orchestrator) candidates(t *turn, kind catalog.EntityKind, value string) ([]string, error) {
	queries := []string{value}
	if words := strings.Fields(value); len(words) > 1 {
		queries = append(queries, words[0])
	}
	queries = append(queries, "")

	for _, q := range queries {
		names, err := o.lookup.FindCandidatesByFuzzyName(t.ctx, t.req.CompanyID, kind, q, o.candidateLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to find %s candidates: %w", kind, err)
		}
		if len(names) > 0 {
			return names, nil
		}
	}
	return nil, nil
}

func (o *Orchestrator) listForSlot(t *turn, slot SlotSpec) {
	names, err := o.lookup.FindCandidatesByFuzzyName(t.ctx, t.req.CompanyID, slot.Entity, "", o.listLimit)
	switch {
	case err != nil:
		o.logger.Warn("catalog list failed", zap.String("session_id", t.st.SessionID), zap.Error(err))
		o.ask(t, slot, o.text(prompts.LookupFailed, map[string]any{"label": slot.Label}))
	case len(names) == 0:
		o.ask(t, slot, o.text(prompts.ListEmpty, map[string]any{"label": slot.Label}))
	default:
		o.ask(t, slot, o.text(prompts.ListNames, map[string]any{"label": slot.Label, "names": strings.Join(names, ", ")}))
	}
}

func (o *Orchestrator) listNames(t *turn, kind catalog.EntityKind) {
	label := string(kind)
	names, err := o.lookup.FindCandidatesByFuzzyName(t.ctx, t.req.CompanyID, kind, "", o.listLimit)
	switch {
	case err != nil:
		o.logger.Warn("catalog list failed", zap.String("session_id", t.st.SessionID), zap.Error(err))
		o.reply(t, OutcomeReply, o.text(prompts.LookupFailed, map[string]any{"label": label}), "")
	case len(names) == 0:
		o.reply(t, OutcomeReply, o.text(prompts.ListEmpty, map[string]any{"label": label}), "")
	default:
		o.reply(t, OutcomeReply, o.text(prompts.ListNames, map[string]any{"label": label, "names": strings.Join(names, ", ")}), "")
	}
}

// gate summarizes the collected values and waits for approval.
func (o *Orchestrator) gate(t *turn, spec *TaskSpec) {
	var lines []string
	for _, sl := range spec.Slots {
		if t.st.Filled(sl.Key) {
			lines = append(lines, fmt.Sprintf("- %s: %s", capitalize(sl.Label), t.st.Value(sl.Key)))
		}
	}
	msg := o.text(prompts.Confirm, map[string]any{
		"task":    spec.Label,
		"details": strings.Join(lines, "\n"),
	})
	t.st.AwaitingConfirmation = true
	t.st.StepIndex = len(spec.Slots)
	t.resp.ConfirmationMessage = msg
	o.reply(t, OutcomeConfirm, msg, msg)
}

func (o *Orchestrator) dispatch(t *turn, spec *TaskSpec) {
	log := o.logger.With(
		zap.String("session_id", t.st.SessionID),
		zap.String("company_id", t.req.CompanyID),
		zap.String("task", string(spec.Task)),
	)

	cmd, err := spec.Build(t.req.CompanyID, t.st)
	if err != nil {
		log.Error("failed to build command", zap.Error(err))
		o.fail(t, models.ErrorInternal, o.text(prompts.CommandFailed, map[string]any{"task": spec.Label}), []string{err.Error()})
		return
	}

	allowed, err := o.perms.HasPermission(t.ctx, t.req.UserID, cmd.Permission())
	if err != nil {
		log.Error("permission check failed", zap.String("permission", cmd.Permission()), zap.Error(err))
	}
	if err != nil || !allowed {
		msg := o.text(prompts.PermissionDenied, map[string]any{"task": spec.Label})
		o.fail(t, models.ErrorPermissionDenied, msg, []string{msg})
		return
	}

	res, err := o.exec.Send(t.ctx, cmd)
	if err != nil {
		log.Error("command dispatch failed", zap.String("kind", cmd.Kind()), zap.Error(err))
		o.metrics.ObserveDispatch(string(spec.Task), false)
		o.fail(t, models.ErrorCommandFailed, o.text(prompts.CommandFailed, map[string]any{"task": spec.Label}), []string{err.Error()})
		return
	}
	if !res.Succeeded {
		o.metrics.ObserveDispatch(string(spec.Task), false)
		msg := o.text(prompts.CommandFailed, map[string]any{"task": spec.Label})
		errs := res.Errors
		if len(errs) == 0 {
			if res.Message != "" {
				errs = []string{res.Message}
			} else {
				errs = []string{msg}
			}
		}
		log.Warn("command rejected", zap.String("kind", cmd.Kind()), zap.Strings("errors", errs))
		o.fail(t, models.ErrorCommandFailed, msg, errs)
		return
	}

	o.metrics.ObserveDispatch(string(spec.Task), true)
	log.Info("command completed", zap.String("kind", cmd.Kind()))

	fresh := t.st.Reset()
	fresh.LastDownload = fromAction(res.Download)
	fresh.AltDownload = fromAction(res.Alternate)
	t.st = fresh
	t.reset = true

	t.resp.Completed = true
	t.resp.Action = string(spec.Task)
	if res.Download != nil {
		t.resp.Result = models.DownloadResult{DownloadAction: res.Download}
	} else {
		t.resp.Result = res.Data
	}
	reply := o.text(prompts.Completed, map[string]any{"task": spec.Label})
	if res.Message != "" {
		reply += " " + res.Message
	}
	o.reply(t, OutcomeCompleted, reply, "")
}

// fail reports a terminal failure and leaves the collected slots intact.
func (o *Orchestrator) fail(t *turn, code, reply string, errs []string) {
	t.resp.Success = false
	t.resp.ErrorCode = code
	t.resp.Errors = errs
	o.reply(t, OutcomeFailed, reply, "")
}

func (o *Orchestrator) taskHelp(t *turn) {
	spec := o.tasks[t.st.Task]
	q := t.st.LastQuestion
	t.outcome = OutcomeReply
	t.resp.Reply = o.text(prompts.TaskHelp, map[string]any{"task": spec.Label, "question": q})
	t.resp.NextQuestion = q
}

func (o *Orchestrator) ask(t *turn, slot SlotSpec, prefix string) {
	reply := slot.Question
	if prefix != "" {
		reply = prefix + " " + slot.Question
	}
	o.reply(t, OutcomeQuestion, reply, slot.Question)
}

// askAgain repeats the last question, optionally with a lead-in.
func (o *Orchestrator) askAgain(t *turn, prefix string) {
	q := t.st.LastQuestion
	reply := q
	if prefix != "" {
		reply = strings.TrimSpace(prefix + " " + q)
	}
	t.outcome = OutcomeQuestion
	t.resp.Reply = reply
	t.resp.NextQuestion = q
}

func (o *Orchestrator) reply(t *turn, outcome, text, question string) {
	t.outcome = outcome
	t.resp.Reply = text
	if question != "" {
		t.resp.NextQuestion = question
		t.st.LastQuestion = question
	}
	if !t.reset {
		t.st.LastAssistantMessage = text
	}
}

func (o *Orchestrator) helpMenu() string {
	var labels []string
	for _, a := range o.classifier.Tasks() {
		if spec, ok := o.tasks[session.Task(a)]; ok {
			labels = append(labels, spec.Label)
		}
	}
	return o.text(prompts.Help, map[string]any{"tasks": strings.Join(labels, ", ")})
}

func (o *Orchestrator) text(name string, values map[string]any) string {
	return o.render.Text(name, values)
}

func parseDate(value string) (time.Time, bool) {
	if d, err := time.Parse(dates.Layout, value); err == nil {
		return d, true
	}
	found := dates.Extract(value)
	if len(found) == 0 {
		return time.Time{}, false
	}
	return found[0], true
}

func matchChoice(folded string, choices []string) (string, bool) {
	for _, c := range choices {
		if folded == c {
			return c, true
		}
	}
	for _, w := range strings.Fields(folded) {
		for _, c := range choices {
			if w == c {
				return c, true
			}
		}
	}
	return "", false
}

func fromAction(a *models.DownloadAction) *session.Download {
	if a == nil {
		return nil
	}
	return &session.Download{Method: a.Method, URL: a.URL, Body: a.Body, FileName: a.FileName}
}
