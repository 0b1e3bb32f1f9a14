package waitlistclient

import (
	"context"
	"sync"

	"github.com/akeren/clariolane-waitlist/pkg/validation"
)

const (
	MessageInvalidEmail   = "Please enter a valid email address"
	MessageGenericFailure = "Something went wrong. Please try again."
)

type State int

const (
	StateEntry State = iota
	StateSubmitting
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateEntry:
		return "entry"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Form holds the single email field of the waitlist form.
//
//	Entry -> Submitting -> Success (terminal)
//	                    -> Error -> Entry (on edit) or Submitting (on resubmit)
type Form struct {
	mu        sync.Mutex
	submitter Submitter
	email     string
	state     State
	message   string
}

func NewForm(submitter Submitter) *Form {
	return &Form{submitter: submitter, state: StateEntry}
}

// SetEmail edits the field. Editing after an error clears it; edits are ignored while a
// submission is in flight or after success.
func (f *Form) SetEmail(email string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateSubmitting, StateSuccess:
		return
	case StateError:
		f.state = StateEntry
		f.message = ""
	}
	f.email = email
}

// Submit runs one submission and returns the resulting state. An empty field is a no-op. An
// address failing the local check never reaches the network.
func (f *Form) Submit(ctx context.Context) State {
	f.mu.Lock()
	if f.state == StateSubmitting || f.state == StateSuccess || f.email == "" {
		state := f.state
		f.mu.Unlock()
		return state
	}

	email := f.email
	if !validation.IsWaitlistEmail(email) {
		f.state = StateError
		f.message = MessageInvalidEmail
		f.mu.Unlock()
		return StateError
	}

	f.state = StateSubmitting
	f.message = ""
	f.mu.Unlock()

	message, err := f.submitter.Submit(ctx, email)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.state = StateError
		if msg, ok := rejectionMessage(err); ok {
			f.message = msg
		} else {
			f.message = MessageGenericFailure
		}
		return f.state
	}

	f.state = StateSuccess
	f.message = message
	return f.state
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Message is the error text in StateError and the server's message in StateSuccess.
func (f *Form) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

func (f *Form) Email() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.email
}
