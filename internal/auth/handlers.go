package auth

import (
	"context"
	"errors"

	"github.com/five82/pidash/internal/endpoint"
)

// MsgConnectionError is shown when a form submission never got an answer.
const MsgConnectionError = "Connection error occurred"

// FieldErrors are messages attached to form fields. Message is the
// form-level message.
type FieldErrors struct {
	Username string
	Password string
	Confirm  string
	Message  string
}

// FormResult is what a form shows after a submission.
type FormResult struct {
	Success bool
	Errors  FieldErrors
}

// Registrar creates accounts.
type Registrar interface {
	CreateUser(ctx context.Context, username, password string) (Result, error)
}

// PasswordChanger updates the signed-in user's password.
type PasswordChanger interface {
	ChangePassword(ctx context.Context, currentPassword, newPassword string) (Result, error)
}

// LoginHandler drives the login form.
type LoginHandler struct {
	Store *Store
}

// Submit logs in and reports the device's message on the form.
func (h LoginHandler) Submit(ctx context.Context, username, password string) FormResult {
	res, err := h.Store.HandleLogin(ctx, username, password)
	if err != nil {
		return FormResult{Errors: FieldErrors{Message: rejectionMessage(err)}}
	}
	return FormResult{Success: res.Success, Errors: FieldErrors{Message: res.Message}}
}

// SignupHandler drives the registration form.
type SignupHandler struct {
	Service Registrar
}

// Submit validates the passwords and registers the account. The device's
// message is reported on the username field.
func (h SignupHandler) Submit(ctx context.Context, username, password, confirm string) FormResult {
	if ok, perrs := ValidatePasswords(password, confirm); !ok {
		return FormResult{Errors: FieldErrors{Password: perrs.Password, Confirm: perrs.Confirm}}
	}
	res, err := h.Service.CreateUser(ctx, username, password)
	if err != nil {
		return FormResult{Errors: FieldErrors{Message: rejectionMessage(err)}}
	}
	return FormResult{Success: res.Success, Errors: FieldErrors{Username: res.Message}}
}

// ChangePasswordHandler drives the account page's password form.
type ChangePasswordHandler struct {
	Service PasswordChanger
}

// Submit validates the new password and sends the change.
func (h ChangePasswordHandler) Submit(ctx context.Context, current, password, confirm string) FormResult {
	if ok, perrs := ValidatePasswords(password, confirm); !ok {
		return FormResult{Errors: FieldErrors{Password: perrs.Password, Confirm: perrs.Confirm}}
	}
	res, err := h.Service.ChangePassword(ctx, current, password)
	if err != nil {
		return FormResult{Errors: FieldErrors{Message: rejectionMessage(err)}}
	}
	return FormResult{Success: res.Success, Errors: FieldErrors{Message: res.Message}}
}

// rejectionMessage prefers the device's own message from an error body and
// falls back to the generic connection error.
func rejectionMessage(err error) string {
	var apiErr *endpoint.APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.Message(); msg != "" {
			return msg
		}
	}
	return MsgConnectionError
}
