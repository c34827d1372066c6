// Package prompts renders the assistant's reply texts. Texts are Go
// templates so they can be replaced per deployment without code changes.
package prompts

import (
	"fmt"
	"os"
	"sort"

	"github.com/tmc/langchaingo/prompts"
	"gopkg.in/yaml.v3"
)

// Template names
const (
	Greeting         = "greeting"
	Thanks           = "thanks"
	Help             = "help"
	TaskHelp         = "task_help"
	Cancelled        = "cancelled"
	NothingToCancel  = "nothing_to_cancel"
	NothingToRepeat  = "nothing_to_repeat"
	Download         = "download"
	DidYouMeanEntity = "did_you_mean_entity"
	DidYouMeanTask   = "did_you_mean_task"
	AnswerYesOrNo    = "answer_yes_or_no"
	NotFound         = "not_found"
	ListNames        = "list_names"
	ListEmpty        = "list_empty"
	InvalidNumber    = "invalid_number"
	InvalidChoice    = "invalid_choice"
	InvalidDate      = "invalid_date"
	InvalidEmail     = "invalid_email"
	InvalidPhone     = "invalid_phone"
	NameNotNumber    = "name_not_number"
	RequiredSlot     = "required_slot"
	DateOrder        = "date_order"
	Confirm          = "confirm"
	ConfirmReminder  = "confirm_reminder"
	Declined         = "declined"
	Completed        = "completed"
	PermissionDenied = "permission_denied"
	CommandFailed    = "command_failed"
	LookupFailed     = "lookup_failed"
	FallbackMessage  = "fallback"
)

// Defaults are the built-in reply texts.
var Defaults = map[string]string{
	Greeting:         "Hello! I can create orders, products, customers and suppliers, adjust stock and prepare reports. What would you like to do?",
	Thanks:           "You're welcome! Anything else I can do for you?",
	Help:             "I can help with: {{.tasks}}. Just tell me what you need, for example \"sales order\" or \"sales report for January 2024\".",
	TaskHelp:         "We are working on a {{.task}}. {{.question}} You can say \"cancel\" to stop or \"repeat\" to hear the question again.",
	Cancelled:        "Okay, I cancelled the {{.task}}.",
	NothingToCancel:  "There is nothing to cancel.",
	NothingToRepeat:  "There is nothing to repeat yet.",
	Download:         "Here is your file: {{.fileName}}",
	DidYouMeanEntity: "I couldn't find a {{.label}} called \"{{.value}}\". Did you mean \"{{.suggestion}}\"? (yes/no)",
	DidYouMeanTask:   "Sorry, I didn't quite get that. Did you mean {{.label}}? (yes/no)",
	AnswerYesOrNo:    "Please answer yes or no.",
	NotFound:         "I couldn't find a {{.label}} called \"{{.value}}\".",
	ListNames:        "Here are some {{.label}} names: {{.names}}.",
	ListEmpty:        "I couldn't find any {{.label}} names.",
	InvalidNumber:    "\"{{.value}}\" is not a valid {{.label}}.",
	InvalidChoice:    "Please choose one of: {{.choices}}.",
	InvalidDate:      "I couldn't read a date in \"{{.value}}\".",
	InvalidEmail:     "\"{{.value}}\" doesn't look like an email address.",
	InvalidPhone:     "\"{{.value}}\" doesn't look like a phone number.",
	NameNotNumber:    "I need a {{.label}} name, not a number.",
	RequiredSlot:     "The {{.label}} is required.",
	DateOrder:        "The end date must be on or after the start date ({{.from}}).",
	Confirm:          "Please confirm the {{.task}}:\n{{.details}}\nReply yes to confirm or cancel to stop.",
	ConfirmReminder:  "Reply yes to confirm the {{.task}} or cancel to stop.",
	Declined:         "Okay, I did not create the {{.task}}.",
	Completed:        "Done! The {{.task}} was completed.",
	PermissionDenied: "You don't have permission to perform a {{.task}}.",
	CommandFailed:    "The {{.task}} could not be completed.",
	LookupFailed:     "I couldn't check the {{.label}} list right now. Please try again.",
	FallbackMessage:  "I didn't understand your request clearly. Could you please rephrase it?",
}

// Renderer renders named reply templates.
type Renderer struct {
	templates map[string]prompts.PromptTemplate
}

// NewRenderer builds a Renderer from Defaults with overrides applied on top.
func NewRenderer(overrides map[string]string) (*Renderer, error) {
	r := &Renderer{templates: make(map[string]prompts.PromptTemplate, len(Defaults))}
	for name, text := range Defaults {
		if o, ok := overrides[name]; ok && o != "" {
			text = o
		}
		r.templates[name] = prompts.PromptTemplate{
			Template:       text,
			TemplateFormat: prompts.TemplateFormatGoTemplate,
		}
	}
	for name := range overrides {
		if _, ok := Defaults[name]; !ok {
			return nil, fmt.Errorf("unknown reply template %q", name)
		}
	}
	return r, nil
}

// LoadOverrides reads a YAML map of template name to text.
func LoadOverrides(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reply templates: %w", err)
	}
	var out map[string]string
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse reply templates: %w", err)
	}
	return out, nil
}

// Render formats the named template.
func (r *Renderer) Render(name string, values map[string]any) (string, error) {
	t, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown reply template %q", name)
	}
	if values == nil {
		values = map[string]any{}
	}
	out, err := t.Format(values)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return out, nil
}

// Text is Render that falls back to the raw template text on error.
func (r *Renderer) Text(name string, values map[string]any) string {
	out, err := r.Render(name, values)
	if err != nil {
		if t, ok := r.templates[name]; ok {
			return t.Template
		}
		return Defaults[FallbackMessage]
	}
	return out
}

// Names lists the known template names.
func Names() []string {
	names := make([]string, 0, len(Defaults))
	for n := range Defaults {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
