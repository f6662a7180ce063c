package identity

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidTransition = "INVALID_SESSION_TRANSITION"
	textCodeUnknownState      = "UNKNOWN_SESSION_STATE"
)

// ErrInvalidTransition is returned when a requested session transition is not allowed.
var ErrInvalidTransition = goerrors.New("invalid session state transition", goerrors.CategoryConflict).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeConflict)

// ErrUnknownState is returned for states outside the session protocol.
var ErrUnknownState = goerrors.New("unknown session state", goerrors.CategoryValidation).
	WithTextCode(textCodeUnknownState).
	WithCode(goerrors.CodeBadRequest)

// SessionState is a client's position in the authentication protocol. The
// server never stores it: every request re-derives its state from the token
// it presents. The machine describes the protocol the client and server
// jointly enact, most visibly across the federated redirect round trip.
type SessionState string

const (
	// StateAnonymous has no verified identity.
	StateAnonymous SessionState = "anonymous"
	// StateAuthenticating has submitted credentials awaiting verification.
	StateAuthenticating SessionState = "authenticating"
	// StateAuthenticated holds a valid identity token.
	StateAuthenticated SessionState = "authenticated"
	// StateFederatedPending was redirected to an external provider and is
	// awaiting the callback.
	StateFederatedPending SessionState = "federated_pending"
)

// SessionEvent triggers a transition between session states.
type SessionEvent string

const (
	// EventSubmitCredentials is a local login or registration attempt.
	EventSubmitCredentials SessionEvent = "submit_credentials"
	// EventVerified fires when credential verification succeeds and a token
	// is issued.
	EventVerified SessionEvent = "verified"
	// EventVerificationFailed fires when credential verification fails; no
	// token is issued.
	EventVerificationFailed SessionEvent = "verification_failed"
	// EventFederatedStart redirects the client to the external provider.
	EventFederatedStart SessionEvent = "federated_start"
	// EventCallbackSucceeded is a provider callback carrying a valid assertion.
	EventCallbackSucceeded SessionEvent = "callback_succeeded"
	// EventCallbackFailed is a provider denial or an invalid assertion.
	EventCallbackFailed SessionEvent = "callback_failed"
	// EventLogout clears the token.
	EventLogout SessionEvent = "logout"
)

var sessionTransitions = map[SessionState]map[SessionEvent]SessionState{
	StateAnonymous: {
		EventSubmitCredentials: StateAuthenticating,
		EventFederatedStart:    StateFederatedPending,
	},
	StateAuthenticating: {
		EventVerified:           StateAuthenticated,
		EventVerificationFailed: StateAnonymous,
	},
	StateFederatedPending: {
		EventCallbackSucceeded: StateAuthenticated,
		EventCallbackFailed:    StateAnonymous,
	},
	StateAuthenticated: {
		EventLogout: StateAnonymous,
	},
}

// IsValid reports whether the state belongs to the session protocol.
func (s SessionState) IsValid() bool {
	_, ok := sessionTransitions[s]
	return ok
}

// Next returns the state reached by applying the event, or ErrInvalidTransition.
func (s SessionState) Next(event SessionEvent) (SessionState, error) {
	events, ok := sessionTransitions[s]
	if !ok {
		return s, ErrUnknownState
	}

	next, ok := events[event]
	if !ok {
		return s, ErrInvalidTransition.Clone().WithMetadata(map[string]any{
			"from":  string(s),
			"event": string(event),
		})
	}

	return next, nil
}

// CanApply reports whether the event is allowed from the state.
func (s SessionState) CanApply(event SessionEvent) bool {
	_, err := s.Next(event)
	return err == nil
}

// SessionFlow tracks one client's walk through the protocol. Useful for
// clients and tests; the server side never instantiates one per connection.
type SessionFlow struct {
	state SessionState
}

// NewSessionFlow starts a flow in the anonymous state.
func NewSessionFlow() *SessionFlow {
	return &SessionFlow{state: StateAnonymous}
}

// State returns the current state.
func (f *SessionFlow) State() SessionState {
	return f.state
}

// Apply advances the flow, rejecting transitions outside the protocol.
func (f *SessionFlow) Apply(event SessionEvent) (SessionState, error) {
	next, err := f.state.Next(event)
	if err != nil {
		return f.state, err
	}
	f.state = next
	return next, nil
}

// StateFromToken re-derives the session state for a single request from the
// token it carries. A valid token means authenticated for the duration of
// that request regardless of any prior client-side state; anything else is
// anonymous.
func StateFromToken(validator TokenValidator, raw string) SessionState {
	if validator == nil || raw == "" {
		return StateAnonymous
	}

	if _, err := validator.Validate(raw); err != nil {
		return StateAnonymous
	}

	return StateAuthenticated
}
