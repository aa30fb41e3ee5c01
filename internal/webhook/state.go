package webhook

// State is a step of the admission state machine.
type State string

const (
	StateReceived          State = "received"
	StateSignatureChecked  State = "signature_checked"
	StatePersisted         State = "persisted"
	StateResponded         State = "responded"
	StateFiltered          State = "filtered"
	StateEnqueued          State = "enqueued"
	StateRejectedSignature State = "rejected_signature"
	StateRejectedProfile   State = "rejected_profile"
	StateDeferralFailed    State = "deferral_failed"
	// StateSuperseded means another writer moved the record on first.
	StateSuperseded State = "superseded"
)

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	switch s {
	case StateEnqueued, StateRejectedSignature, StateRejectedProfile, StateDeferralFailed, StateSuperseded:
		return true
	}
	return false
}

// Admission is the synchronous result of admitting a request.
type Admission struct {
	Record   *Record
	Response Response
	State    State
}
