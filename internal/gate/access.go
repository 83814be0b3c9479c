// Package gate turns a share record plus request context into an
// authorization decision. Gates are pure: they never mutate the record and
// are safe for concurrent use without locking.
package gate

import (
	"Go_Share/model"
	"fmt"
	"net/http"
	"time"
)

// Operation is what the caller wants to do with the share.
type Operation int

const (
	OpDownload Operation = iota
	OpUpload
	OpEdit
)

func (op Operation) String() string {
	switch op {
	case OpDownload:
		return "download"
	case OpUpload:
		return "upload"
	case OpEdit:
		return "edit"
	default:
		return fmt.Sprintf("operation(%d)", int(op))
	}
}

// Decision is the terminal outcome of one evaluation.
type Decision int

const (
	Allowed Decision = iota
	NotFound
	WrongType
	Inactive
	Expired
	QuotaExceeded
	LoginRequired
	PasswordRequired
	InvalidPassword
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case NotFound:
		return "not_found"
	case WrongType:
		return "wrong_type"
	case Inactive:
		return "inactive"
	case Expired:
		return "expired"
	case QuotaExceeded:
		return "quota_exceeded"
	case LoginRequired:
		return "login_required"
	case PasswordRequired:
		return "password_required"
	case InvalidPassword:
		return "invalid_password"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Message is the user facing text for a rejected decision.
func (d Decision) Message() string {
	switch d {
	case Allowed:
		return "ok"
	case NotFound:
		return "share not found"
	case WrongType:
		return "operation not supported by this share"
	case Inactive:
		return "share has been deactivated"
	case Expired:
		return "share has expired"
	case QuotaExceeded:
		return "share access limit reached"
	case LoginRequired:
		return "login required"
	case PasswordRequired:
		return "password required"
	case InvalidPassword:
		return "invalid password"
	default:
		return "access denied"
	}
}

// HTTPStatus maps a decision to the status used by the download and edit routes.
func (d Decision) HTTPStatus() int {
	switch d {
	case Allowed:
		return http.StatusOK
	case NotFound:
		return http.StatusNotFound
	case WrongType:
		return http.StatusBadRequest
	case Inactive, Expired, QuotaExceeded:
		return http.StatusGone
	case LoginRequired:
		return http.StatusUnauthorized
	case PasswordRequired, InvalidPassword:
		return http.StatusForbidden
	default:
		return http.StatusForbidden
	}
}

// PasswordVerifier reports whether password matches hash.
type PasswordVerifier func(password, hash string) bool

// Request is the caller context evaluated against a share.
type Request struct {
	Operation     Operation
	Now           time.Time
	Password      *string // nil when the caller supplied none
	Authenticated bool
}

type AccessGate struct {
	verify PasswordVerifier
}

// NewAccessGate creates a gate using verify for password checks.
func NewAccessGate(verify PasswordVerifier) *AccessGate {
	return &AccessGate{verify: verify}
}

// Evaluate runs the checks in their fixed priority order and returns the
// first failure. An expired share that is also over quota reports Expired.
func (g *AccessGate) Evaluate(share *model.ShareRecord, req Request) Decision {
	if share == nil {
		return NotFound
	}
	if !typeMatches(share, req.Operation) {
		return WrongType
	}
	if !share.IsActive {
		return Inactive
	}
	if share.IsExpired(req.Now) {
		return Expired
	}
	if share.MaxAccessCount != nil && share.AccessCount >= *share.MaxAccessCount {
		return QuotaExceeded
	}
	if share.RequireLogin && !req.Authenticated {
		return LoginRequired
	}
	if share.HasPassword() {
		if req.Password == nil || *req.Password == "" {
			return PasswordRequired
		}
		if g.verify == nil || !g.verify(*req.Password, share.PasswordHash) {
			return InvalidPassword
		}
	}
	return Allowed
}

func typeMatches(share *model.ShareRecord, op Operation) bool {
	switch op {
	case OpDownload:
		switch share.Type {
		case model.ShareTypeDownload, model.ShareTypeEdit:
			return true
		case model.ShareTypeUpload:
			return false
		}
		return false
	case OpUpload:
		switch share.Type {
		case model.ShareTypeUpload:
			return true
		case model.ShareTypeDownload, model.ShareTypeEdit:
			return false
		}
		return false
	case OpEdit:
		switch share.Type {
		case model.ShareTypeEdit:
			return share.Editable
		case model.ShareTypeDownload, model.ShareTypeUpload:
			return false
		}
		return false
	}
	return false
}
