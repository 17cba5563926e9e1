package model

// DetailStage is the slot-filling step a conversation is in.
//
// The names lag one step behind the slot being collected: while the stage is
// "comment" the user is answering the reason prompt, while it is "confirm" the
// comment prompt. StageReason is the older name for date collection and is
// only read, never written.
type DetailStage string

const (
	StageNone      DetailStage = "none"
	StageDate      DetailStage = "date"
	StageReason    DetailStage = "reason"
	StageComment   DetailStage = "comment"
	StageConfirm   DetailStage = "confirm"
	StageSubmitted DetailStage = "submitted"
)

// ConversationFlow is the per-conversation dialogue state.
type ConversationFlow struct {
	PendingIdentifier    bool                `json:"pending_identifier"`
	PendingDetailStage   DetailStage         `json:"pending_detail_stage"`
	BufferedRecognitions []RecognitionResult `json:"buffered_recognitions,omitempty"`
}

// NewConversationFlow returns the state of a conversation that has not seen a message yet.
func NewConversationFlow() *ConversationFlow {
	return &ConversationFlow{PendingDetailStage: StageNone}
}

// Stage returns the detail stage, treating an unset value as StageNone.
func (f *ConversationFlow) Stage() DetailStage {
	if f.PendingDetailStage == "" {
		return StageNone
	}
	return f.PendingDetailStage
}

// TakeBuffered pops the recognition captured before the employee id was asked for.
func (f *ConversationFlow) TakeBuffered() (RecognitionResult, bool) {
	if len(f.BufferedRecognitions) == 0 {
		return RecognitionResult{}, false
	}
	r := f.BufferedRecognitions[0]
	f.BufferedRecognitions = nil
	return r, true
}

// UserProfile is the per-user state. LeaveDate, Reason and Comment only hold
// values while an application is in progress.
type UserProfile struct {
	ID        string `json:"id,omitempty"`
	LeaveDate string `json:"leave_date,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Comment   string `json:"comment,omitempty"`
}

// ClearApplication drops the slots of the current application.
func (p *UserProfile) ClearApplication() {
	p.LeaveDate = ""
	p.Reason = ""
	p.Comment = ""
}
