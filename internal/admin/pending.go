package admin

// Pending is the question an admin has been asked and not yet answered.
// The set of variants is closed; each carries exactly the fields its step needs.
type Pending interface {
	step() string
}

// CreditOp selects how a credit amount is applied.
type CreditOp string

// Credit operations.
const (
	CreditAdd    CreditOp = "add"
	CreditRemove CreditOp = "remove"
	CreditSet    CreditOp = "set"
)

// AwaitingCreditUser waits for the id of the user whose credits are managed.
type AwaitingCreditUser struct{}

// AwaitingCreditAmount waits for an amount applied to UserID with Op.
type AwaitingCreditAmount struct {
	UserID int64
	Op     CreditOp
}

// AwaitingValidityUser waits for the id of the user whose validity is managed.
type AwaitingValidityUser struct{}

// AwaitingValidityDays waits for the length of a new validity window.
type AwaitingValidityDays struct {
	UserID int64
}

// AwaitingBroadcastText waits for the message to broadcast.
type AwaitingBroadcastText struct{}

// AwaitingDefaultVoice waits for a new default voice id.
type AwaitingDefaultVoice struct{}

// AwaitingVoiceAdd waits for "<voice_id> | <voice_name>".
type AwaitingVoiceAdd struct{}

// AwaitingVoiceEditIndex waits for the 1-based position of the voice to edit.
type AwaitingVoiceEditIndex struct {
	Count int
}

// AwaitingVoiceEdit waits for the new id (and optional name) of the voice at Index.
type AwaitingVoiceEdit struct {
	Index int
}

// AwaitingVoiceRemoveIndex waits for the 1-based position of the voice to remove.
type AwaitingVoiceRemoveIndex struct {
	Count int
}

// AwaitingAdminID waits for the id of a new admin.
type AwaitingAdminID struct{}

func (AwaitingCreditUser) step() string       { return "credit_user" }
func (AwaitingCreditAmount) step() string     { return "credit_amount" }
func (AwaitingValidityUser) step() string     { return "validity_user" }
func (AwaitingValidityDays) step() string     { return "validity_days" }
func (AwaitingBroadcastText) step() string    { return "broadcast_text" }
func (AwaitingDefaultVoice) step() string     { return "default_voice" }
func (AwaitingVoiceAdd) step() string         { return "voice_add" }
func (AwaitingVoiceEditIndex) step() string   { return "voice_edit_index" }
func (AwaitingVoiceEdit) step() string        { return "voice_edit" }
func (AwaitingVoiceRemoveIndex) step() string { return "voice_remove_index" }
func (AwaitingAdminID) step() string          { return "admin_id" }
