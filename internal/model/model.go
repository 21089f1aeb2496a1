// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

// package model defines the core data types shared across gitswitch:
// profiles, discovered SSH keys, managed SSH config blocks and the
// transient reports produced by detection and diagnostics.
package model

import (
	"fmt"
	"time"
)

// Profile is one named identity a user can switch to. The Name is the
// unique key; uniqueness is enforced case-insensitively by the store.
type Profile struct {
	Name         string     // unique profile name, e.g. "work"
	FullName     string     // git user.name
	Email        string     // git user.email
	SSHKeyPath   string     // private key path; public key is SSHKeyPath + ".pub"
	SSHKeyPublic string     // cached public key text (authorized_keys format)
	CreatedAt    time.Time  //
	LastUsed     *time.Time // nil until the profile has been switched to
	Fingerprint  string     // cached SHA256 fingerprint; empty for legacy records
	Encrypted    *bool      // cached passphrase-protection flag; nil when unknown

	// Extra holds unknown fields found in the store file so manual edits
	// survive a load/save round trip.
	Extra map[string]interface{}
}

// PublicKeyPath returns the conventional path of the profile's public key.
func (p Profile) PublicKeyPath() string {
	return p.SSHKeyPath + ".pub"
}

// HostAlias returns the SSH host alias routed through this profile's key.
func (p Profile) HostAlias() string {
	return "github-" + p.Name
}

// IsEncrypted reports the cached encryption flag, defaulting to false for
// legacy records that never cached one.
func (p Profile) IsEncrypted() bool {
	return p.Encrypted != nil && *p.Encrypted
}

// DiscoveredKey is a transient record produced by the SSH directory
// scanner. It is recomputed on every detection pass and never persisted.
type DiscoveredKey struct {
	PrivateKeyPath string
	PublicKeyPath  string // empty if only the private half was found
	Algorithm      string // e.g. "ssh-ed25519"
	Comment        string
	Fingerprint    string // SHA256 digest of the public key payload
	Encrypted      bool
	OwnedBy        string // matching profile name, or "" when unclaimed
}

// ManagedBlock is the SSH config entry gitswitch owns for one profile.
// At most one managed block exists per profile name.
type ManagedBlock struct {
	Profile        string
	HostAlias      string // github-<profile>
	HostName       string
	User           string
	IdentityFile   string
	IdentitiesOnly bool
}

// NewManagedBlock builds the canonical managed block for a profile.
func NewManagedBlock(profile Profile) ManagedBlock {
	return ManagedBlock{
		Profile:        profile.Name,
		HostAlias:      profile.HostAlias(),
		HostName:       "github.com",
		User:           "git",
		IdentityFile:   profile.SSHKeyPath,
		IdentitiesOnly: true,
	}
}

// KeyAssociation pairs a discovered key with the profile that claims its
// fingerprint.
type KeyAssociation struct {
	Key     DiscoveredKey
	Profile string
}

// ProbeStatus classifies the outcome of a live reachability check against
// the code-hosting host.
type ProbeStatus int

const (
	ProbeSkipped ProbeStatus = iota
	ProbeAuthenticated
	ProbeAuthRejected
	ProbeNetworkUnreachable
	ProbeTimeout
)

// String returns the stable identifier for a probe status.
func (s ProbeStatus) String() string {
	switch s {
	case ProbeAuthenticated:
		return "authenticated"
	case ProbeAuthRejected:
		return "auth-rejected"
	case ProbeNetworkUnreachable:
		return "network-unreachable"
	case ProbeTimeout:
		return "timeout"
	default:
		return "skipped"
	}
}

// DetectionReport is a point-in-time summary of the keys on disk and how
// they relate to the configured profiles. It is computed fresh on demand
// and never cached across invocations.
type DetectionReport struct {
	TotalKeys         int
	ByAlgorithm       map[string]int
	EncryptedCount    int
	Used              []KeyAssociation // keys claimed by a profile
	Available         []DiscoveredKey  // keys no profile claims
	AgentFingerprints []string         // fingerprints currently loaded in the agent
	Connectivity      ProbeStatus
	Warnings          []string
}

// DiagStepID identifies one step of the connection diagnostics pipeline.
type DiagStepID int

const (
	DiagKeyFiles DiagStepID = iota
	DiagEncryption
	DiagAgent
	DiagConfig
	DiagProbe
)

// String returns the stable identifier for a diagnostics step.
func (id DiagStepID) String() string {
	switch id {
	case DiagKeyFiles:
		return "key-files"
	case DiagEncryption:
		return "encryption"
	case DiagAgent:
		return "agent"
	case DiagConfig:
		return "ssh-config"
	case DiagProbe:
		return "probe"
	default:
		return "unknown"
	}
}

// DiagStep is the independently observable result of one diagnostics step.
type DiagStep struct {
	ID      DiagStepID
	OK      bool
	Skipped bool
	Detail  string
	Err     error // classified error kind when the step failed
}

// Diagnosis is the ordered outcome of the diagnostics pipeline. FirstFail
// is -1 when every executed step passed.
type Diagnosis struct {
	Profile   string
	Steps     []DiagStep
	FirstFail int
}

// Healthy reports whether no executed step failed.
func (d Diagnosis) Healthy() bool {
	return d.FirstFail < 0
}

// ValidateProfileName reports whether a profile name is acceptable:
// lowercase letters, digits, hyphens and underscores only.
func ValidateProfileName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

// String returns the profile's identity in "name <email>" form.
func (p Profile) String() string {
	return fmt.Sprintf("%s <%s>", p.FullName, p.Email)
}
