// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

// package sshagent is the agent-query collaborator: it locates a running
// SSH agent and reports the fingerprints of the keys it has loaded.
package sshagent

import (
	"golang.org/x/crypto/ssh"
)

// Client answers which key fingerprints the agent currently holds.
type Client interface {
	// Fingerprints returns the SHA256 fingerprints of all loaded keys.
	// No running agent yields an empty list, not an error.
	Fingerprints() ([]string, error)
}

// SystemAgent talks to the agent found via the platform transport
// (SSH_AUTH_SOCK socket on Unix, Pageant or named pipe on Windows).
type SystemAgent struct{}

// Fingerprints lists the SHA256 fingerprints of every key loaded in the
// running agent.
func (SystemAgent) Fingerprints() ([]string, error) {
	ag := getSSHAgent()
	if ag == nil {
		return nil, nil
	}
	keys, err := ag.List()
	if err != nil {
		return nil, err
	}
	fps := make([]string, 0, len(keys))
	for _, k := range keys {
		pk, err := ssh.ParsePublicKey(k.Marshal())
		if err != nil {
			continue
		}
		fps = append(fps, ssh.FingerprintSHA256(pk))
	}
	return fps, nil
}

// Has reports whether a fingerprint is loaded in an agent reachable
// through the given client.
func Has(c Client, fingerprint string) (bool, error) {
	fps, err := c.Fingerprints()
	if err != nil {
		return false, err
	}
	for _, fp := range fps {
		if fp == fingerprint {
			return true, nil
		}
	}
	return false, nil
}

// Signers returns the signers offered by a running agent, or nil when no
// agent is reachable. Used by the live probe to authenticate with
// agent-held (possibly passphrase-protected) keys.
func Signers() []ssh.Signer {
	ag := getSSHAgent()
	if ag == nil {
		return nil
	}
	signers, err := ag.Signers()
	if err != nil {
		return nil
	}
	return signers
}
