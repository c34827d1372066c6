package models

// TurnRequest is one conversational turn from the caller. The caller holds
// the conversation state and sends it back on every turn.
type TurnRequest struct {
	SessionID    string             `json:"sessionId,omitempty" validate:"omitempty,max=128"`
	CompanyID    string             `json:"companyId,omitempty" validate:"omitempty,max=128"`
	UserID       string             `json:"userId,omitempty" validate:"omitempty,max=128"`
	Input        string             `json:"input" validate:"required_unless=Confirmed true,max=4000"`
	Confirmed    bool               `json:"confirmed"`
	SessionState *ConversationState `json:"sessionState"`
}

// ConversationState is the wire shape of the session: a flat string map of
// slot values plus a few typed flags.
type ConversationState struct {
	SessionID            string            `json:"sessionId"`
	CurrentTask          *string           `json:"currentTask,omitempty"`
	Fields               map[string]string `json:"fields"`
	AwaitingConfirmation bool              `json:"awaitingConfirmation"`
	LastQuestion         string            `json:"lastQuestion,omitempty"`
	LastAssistantMessage string            `json:"lastAssistantMessage,omitempty"`
	StepIndex            int               `json:"stepIndex"`
}

// TurnResponse is the reply to a TurnRequest.
type TurnResponse struct {
	Success             bool               `json:"success"`
	Reply               string             `json:"reply"`
	NextQuestion        string             `json:"nextQuestion,omitempty"`
	ConfirmationMessage string             `json:"confirmationMessage,omitempty"`
	Completed           bool               `json:"completed,omitempty"`
	Cancelled           bool               `json:"cancelled,omitempty"`
	Action              string             `json:"action,omitempty"`
	Result              any                `json:"result,omitempty"`
	SessionState        *ConversationState `json:"sessionState"`
	Errors              []string           `json:"errors,omitempty"`
	ErrorCode           string             `json:"errorCode,omitempty"`
}

// DownloadResult is embedded in TurnResponse.Result when a reply carries a
// file for the client.
type DownloadResult struct {
	DownloadAction *DownloadAction `json:"downloadAction"`
}

// DownloadAction tells the client how to obtain a file. CLIENT_* methods
// carry the content in Body for local rendering.
type DownloadAction struct {
	Method   string `json:"method"`
	URL      string `json:"url,omitempty"`
	Body     string `json:"body,omitempty"`
	FileName string `json:"fileName"`
}

// Download methods
const (
	MethodGet       = "GET"
	MethodPost      = "POST"
	MethodClientCSV = "CLIENT_CSV"
	MethodClientPDF = "CLIENT_PDF"
)

// Error codes
const (
	ErrorInvalidRequest   = "INVALID_REQUEST"
	ErrorParseError       = "PARSE_ERROR"
	ErrorSessionBusy      = "SESSION_BUSY"
	ErrorStateUnavailable = "STATE_UNAVAILABLE"
	ErrorPermissionDenied = "PERMISSION_DENIED"
	ErrorCommandFailed    = "COMMAND_FAILED"
	ErrorInternal         = "INTERNAL_ERROR"
)
