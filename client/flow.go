// Package client implements the login side of the admin dashboard: the HTTP
// API adapter, the login flow controller, and the session persistence it
// writes into on success.
package client

import (
	"context"
	"errors"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// DashboardPath is the route the flow navigates to after authenticating.
const DashboardPath = "/dashboard"

// Credentials is the transient pair collected by the input surface.
type Credentials struct {
	Email    string
	Password string
}

// Validate enforces presence and email shape. The input surface calls this
// before submitting; the flow itself does not re-validate.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(
			&c.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&c.Password,
			validation.Required,
		),
	)
}

// FlowState tags the current login attempt. Exactly one state holds at a time.
type FlowState int

const (
	StateIdle FlowState = iota
	StateSubmitting
	StateFailed
)

// ErrSubmitInFlight is returned when Submit is called while an attempt is
// already pending. The caller should disable its trigger while Submitting.
var ErrSubmitInFlight = errors.New("login attempt already in progress")

// Authenticator is the outbound request boundary the flow drives.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}

// SessionStore is the key/value persistence boundary. Write-only from the
// flow's perspective.
type SessionStore interface {
	SetItem(key, value string) error
}

// Navigator moves the user to an authenticated route after success.
type Navigator interface {
	Navigate(path string) error
}

// LoginFlow owns the login attempt's state and side effects. One request at a
// time; on success it writes token and user to the session store and then
// navigates, on failure it exposes a display message.
type LoginFlow struct {
	mu      sync.Mutex
	state   FlowState
	message string

	api   Authenticator
	store SessionStore
	nav   Navigator
}

func NewLoginFlow(api Authenticator, store SessionStore, nav Navigator) *LoginFlow {
	return &LoginFlow{api: api, store: store, nav: nav}
}

// State returns the current state and, when Failed, the display message.
func (f *LoginFlow) State() (FlowState, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.message
}

// Submit performs a single login attempt. A second call while one is pending
// is a no-op returning ErrSubmitInFlight; no second request fires. The
// in-flight state is cleared on every path.
func (f *LoginFlow) Submit(ctx context.Context, creds Credentials) error {
	f.mu.Lock()
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return ErrSubmitInFlight
	}
	f.state = StateSubmitting
	f.message = ""
	f.mu.Unlock()

	err := f.attempt(ctx, creds)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = StateFailed
		f.message = displayMessage(err)
		return err
	}
	f.state = StateIdle
	return nil
}

func (f *LoginFlow) attempt(ctx context.Context, creds Credentials) error {
	result, err := f.api.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		return err
	}

	// Both values must be written before navigation fires.
	if err := f.store.SetItem("token", result.AccessToken); err != nil {
		return &LoginError{Kind: ClientFault, Message: firstNonEmpty(err.Error(), DefaultFailureMessage), Err: err}
	}
	if err := f.store.SetItem("user", string(result.User)); err != nil {
		return &LoginError{Kind: ClientFault, Message: firstNonEmpty(err.Error(), DefaultFailureMessage), Err: err}
	}
	if err := f.nav.Navigate(DashboardPath); err != nil {
		return &LoginError{Kind: ClientFault, Message: firstNonEmpty(err.Error(), DefaultFailureMessage), Err: err}
	}
	return nil
}

func displayMessage(err error) string {
	var le *LoginError
	if errors.As(err, &le) {
		return firstNonEmpty(le.Message, DefaultFailureMessage)
	}
	return firstNonEmpty(err.Error(), DefaultFailureMessage)
}
