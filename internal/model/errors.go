// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"errors"

	"github.com/toeirei/gitswitch/internal/i18n"
)

// Sentinel error kinds. Callers wrap these with fmt.Errorf("%w: ...") to
// attach context and match them later with errors.Is.
var (
	ErrProfileNotFound      = errors.New("profile not found")
	ErrDuplicateProfileName = errors.New("profile name already exists")
	ErrDuplicateFingerprint = errors.New("key fingerprint already used by another profile")
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrInvalidProfileName   = errors.New("invalid profile name")
	ErrKeyMissing           = errors.New("ssh key files not found")
	ErrKeyUnreadable        = errors.New("ssh key unreadable or unsupported format")
	ErrKeyNotInAgent        = errors.New("key not loaded in ssh agent")
	ErrConfigParse          = errors.New("malformed managed block in ssh config")
	ErrConfigMissing        = errors.New("no managed ssh config block for profile")
	ErrConfigMismatch       = errors.New("managed ssh config block out of date")
	ErrConfigWrite          = errors.New("failed to write ssh config")
	ErrStoreWrite           = errors.New("failed to write profile store")
	ErrNetworkUnreachable   = errors.New("network unreachable")
	ErrTimeout              = errors.New("connection timed out")
	ErrAuthRejected         = errors.New("remote host rejected the key")
)

// Remedy returns a concrete suggested fix for a known error kind, or an
// empty string when none applies. The detail argument is interpolated
// into remedies that need one (e.g. the key path for an ssh-add hint).
func Remedy(err error, detail string) string {
	switch {
	case errors.Is(err, ErrProfileNotFound):
		return i18n.T("remedy.profile_not_found")
	case errors.Is(err, ErrDuplicateProfileName):
		return i18n.T("remedy.duplicate_profile")
	case errors.Is(err, ErrDuplicateFingerprint):
		return i18n.T("remedy.duplicate_fingerprint")
	case errors.Is(err, ErrInvalidEmail):
		return i18n.T("remedy.invalid_email")
	case errors.Is(err, ErrInvalidProfileName):
		return i18n.T("remedy.invalid_profile_name")
	case errors.Is(err, ErrKeyMissing):
		return i18n.T("remedy.key_missing")
	case errors.Is(err, ErrKeyUnreadable):
		return i18n.T("remedy.key_unreadable")
	case errors.Is(err, ErrKeyNotInAgent):
		return i18n.T("remedy.key_not_in_agent", detail)
	case errors.Is(err, ErrConfigParse):
		return i18n.T("remedy.config_parse")
	case errors.Is(err, ErrConfigMissing), errors.Is(err, ErrConfigMismatch):
		return i18n.T("remedy.config_stale")
	case errors.Is(err, ErrConfigWrite):
		return i18n.T("remedy.config_write")
	case errors.Is(err, ErrStoreWrite):
		return i18n.T("remedy.store_write")
	case errors.Is(err, ErrNetworkUnreachable):
		return i18n.T("remedy.network_unreachable")
	case errors.Is(err, ErrTimeout):
		return i18n.T("remedy.timeout")
	case errors.Is(err, ErrAuthRejected):
		return i18n.T("remedy.auth_rejected")
	}
	return ""
}
