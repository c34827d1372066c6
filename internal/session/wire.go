package session

import (
	"sort"
	"strings"

	"github.com/avvvet/erpbuddy-assistant/internal/models"
)

// Reserved keys of the wire field map.
const (
	KeyPendingField       = "pendingField"
	KeyPendingValue       = "pendingValue"
	KeyPendingLabel       = "pendingLabel"
	KeyPendingIntentTask  = "pendingIntentTask"
	KeyPendingIntentLabel = "pendingIntentLabel"
	KeyVerified           = "verifiedFields"

	KeyLastDownloadMethod   = "lastDownloadMethod"
	KeyLastDownloadURL      = "lastDownloadUrl"
	KeyLastDownloadBody     = "lastDownloadBody"
	KeyLastDownloadFileName = "lastDownloadFileName"
	KeyAltDownloadMethod    = "altDownloadMethod"
	KeyAltDownloadURL       = "altDownloadUrl"
	KeyAltDownloadBody      = "altDownloadBody"
	KeyAltDownloadFileName  = "altDownloadFileName"
)

var reserved = map[string]bool{
	KeyPendingField: true, KeyPendingValue: true, KeyPendingLabel: true,
	KeyPendingIntentTask: true, KeyPendingIntentLabel: true, KeyVerified: true,
	KeyLastDownloadMethod: true, KeyLastDownloadURL: true, KeyLastDownloadBody: true,
	KeyLastDownloadFileName: true, KeyAltDownloadMethod: true, KeyAltDownloadURL: true,
	KeyAltDownloadBody: true, KeyAltDownloadFileName: true,
}

// FromWire converts the caller's flat state into a typed State. A nil input
// yields a fresh idle state. fallbackID is used when w carries no session
// id; when both are empty a new id is made.
func FromWire(w *models.ConversationState, fallbackID string) *State {
	if w == nil {
		return New(fallbackID)
	}
	id := w.SessionID
	if id == "" {
		id = fallbackID
	}
	s := New(id)
	if w.CurrentTask != nil {
		s.Task = Task(*w.CurrentTask)
	}
	s.AwaitingConfirmation = w.AwaitingConfirmation
	s.LastQuestion = w.LastQuestion
	s.LastAssistantMessage = w.LastAssistantMessage
	s.StepIndex = w.StepIndex

	f := w.Fields
	verified := make(map[string]bool)
	for _, k := range strings.Split(f[KeyVerified], ",") {
		if k = strings.TrimSpace(k); k != "" {
			verified[k] = true
		}
	}
	for k, v := range f {
		if reserved[k] {
			continue
		}
		switch {
		case strings.TrimSpace(v) == "":
			s.Slots[k] = Slot{Status: SlotSkipped}
		case verified[k]:
			s.Slots[k] = Slot{Value: v, Status: SlotVerified}
		default:
			s.Slots[k] = Slot{Value: v, Status: SlotFilled}
		}
	}

	pf, okField := f[KeyPendingField]
	pv, okValue := f[KeyPendingValue]
	pl, okLabel := f[KeyPendingLabel]
	if okField && okValue && okLabel {
		s.Pending = &PendingCorrection{Field: pf, Value: pv, Label: pl}
	} else if it, ok := f[KeyPendingIntentTask]; ok && it != "" {
		s.Pending = &PendingIntent{Task: Task(it), Label: f[KeyPendingIntentLabel]}
	}

	s.LastDownload = downloadFromWire(f, KeyLastDownloadMethod, KeyLastDownloadURL, KeyLastDownloadBody, KeyLastDownloadFileName)
	s.AltDownload = downloadFromWire(f, KeyAltDownloadMethod, KeyAltDownloadURL, KeyAltDownloadBody, KeyAltDownloadFileName)
	return s
}

// ToWire flattens s into the caller's wire shape.
func (s *State) ToWire() *models.ConversationState {
	w := &models.ConversationState{
		SessionID:            s.SessionID,
		Fields:               make(map[string]string, len(s.Slots)),
		AwaitingConfirmation: s.AwaitingConfirmation,
		LastQuestion:         s.LastQuestion,
		LastAssistantMessage: s.LastAssistantMessage,
		StepIndex:            s.StepIndex,
	}
	if s.Task != TaskNone {
		t := string(s.Task)
		w.CurrentTask = &t
	}

	var verified []string
	for k, sl := range s.Slots {
		switch sl.Status {
		case SlotSkipped:
			w.Fields[k] = ""
		case SlotVerified:
			w.Fields[k] = sl.Value
			verified = append(verified, k)
		default:
			w.Fields[k] = sl.Value
		}
	}
	if len(verified) > 0 {
		sort.Strings(verified)
		w.Fields[KeyVerified] = strings.Join(verified, ",")
	}

	switch p := s.Pending.(type) {
	case nil:
	case *PendingCorrection:
		w.Fields[KeyPendingField] = p.Field
		w.Fields[KeyPendingValue] = p.Value
		w.Fields[KeyPendingLabel] = p.Label
	case *PendingIntent:
		w.Fields[KeyPendingIntentTask] = string(p.Task)
		w.Fields[KeyPendingIntentLabel] = p.Label
	}

	downloadToWire(w.Fields, s.LastDownload, KeyLastDownloadMethod, KeyLastDownloadURL, KeyLastDownloadBody, KeyLastDownloadFileName)
	downloadToWire(w.Fields, s.AltDownload, KeyAltDownloadMethod, KeyAltDownloadURL, KeyAltDownloadBody, KeyAltDownloadFileName)
	return w
}

func downloadFromWire(f map[string]string, method, url, body, name string) *Download {
	d := &Download{Method: f[method], URL: f[url], Body: f[body], FileName: f[name]}
	if d.URL == "" && d.Body == "" {
		return nil
	}
	if d.Method == "" {
		d.Method = models.MethodGet
	}
	return d
}

func downloadToWire(f map[string]string, d *Download, method, url, body, name string) {
	if d == nil {
		return
	}
	f[method] = d.Method
	if d.URL != "" {
		f[url] = d.URL
	}
	if d.Body != "" {
		f[body] = d.Body
	}
	f[name] = d.FileName
}

// DownloadAction converts d to its wire form.
func (d *Download) DownloadAction() *models.DownloadAction {
	if d == nil {
		return nil
	}
	return &models.DownloadAction{Method: d.Method, URL: d.URL, Body: d.Body, FileName: d.FileName}
}
