// Copyright (c) 2026 ForgeRock AS
//
// This file is part of forgerock-ios-sdk-sub007.
//
// forgerock-ios-sdk-sub007 is licensed under the MIT License.
// See the LICENSE file for details.

package devicebinding

import (
	"fmt"
	"sync"
)

// Code identifies a device-binding failure class. Every failure surfaced
// to the caller is typed so it can branch: prompt re-registration on
// CodeClientNotRegistered, retry the whole flow on CodeAbort, and so on.
type Code string

const (
	// CodeUnsupported means the resolved authenticator is not supported on
	// this device or OS version.
	CodeUnsupported Code = "unsupported"

	// CodeTimeout means the operation exceeded its wall-clock budget.
	CodeTimeout Code = "timeout"

	// CodeAbort means the user cancelled or local authentication failed.
	CodeAbort Code = "abort"

	// CodeInvalidCustomClaims means caller-supplied claims collide with
	// reserved claim names or fail authenticator constraints.
	CodeInvalidCustomClaims Code = "invalidCustomClaims"

	// CodeClientNotRegistered means no bound key exists for the user.
	CodeClientNotRegistered Code = "clientNotRegistered"

	// CodeUnknown passes through an authenticator-specific status.
	CodeUnknown Code = "unknown"
)

// marker returns the client-error marker string written into the outgoing
// protocol payload for this code, so the remote relying party can observe
// the client-side failure reason even though the interactive flow
// terminates locally.
func (c Code) marker() string {
	switch c {
	case CodeUnsupported:
		return "Unsupported"
	case CodeTimeout:
		return "Timeout"
	case CodeAbort:
		return "Abort"
	case CodeInvalidCustomClaims:
		return "InvalidCustomClaims"
	case CodeClientNotRegistered:
		return "ClientNotRegistered"
	default:
		return "Unknown"
	}
}

// BindingError is the typed failure surfaced by Bind and Sign.
type BindingError struct {
	Code    Code
	Message string
	Err     error // underlying cause, may be nil
}

// Error returns the error message.
func (e *BindingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("devicebinding: %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("devicebinding: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *BindingError) Unwrap() error {
	return e.Err
}

// Marker returns the outgoing-payload client-error marker for the failure.
func (e *BindingError) Marker() string {
	return e.Code.marker()
}

// ClientErrorWriter receives the client-error marker destined for the
// outgoing protocol payload. The pipeline writes the marker on every
// failure path before returning.
type ClientErrorWriter interface {
	SetClientError(marker string)
}

// Payload is a minimal ClientErrorWriter collecting the marker into the
// callback payload sent back to the identity server.
type Payload struct {
	mu          sync.Mutex
	clientError string
}

// SetClientError records the client-error marker.
func (p *Payload) SetClientError(marker string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientError = marker
}

// ClientError returns the recorded marker, empty if none was set.
func (p *Payload) ClientError() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clientError
}
