// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

// This file contains the live reachability probe against the code-hosting
// host. The probe is read-only from gitswitch's perspective: it dials the
// SSH port, attempts authentication and classifies the outcome. It always
// runs under an explicit timeout and never blocks indefinitely.
package engine

import (
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/toeirei/gitswitch/internal/model"
)

// Prober performs the live reachability check. keyPath may be empty, in
// which case only agent-provided keys are offered.
type Prober interface {
	Probe(host, keyPath string, encrypted bool) model.ProbeStatus
}

// SSHProber dials the host's SSH port as user "git" and classifies the
// handshake result.
type SSHProber struct {
	Timeout time.Duration
	// AgentSigners supplies signers from a running agent; nil disables
	// agent auth. Split out so tests can probe without a real agent.
	AgentSigners func() []ssh.Signer
}

// Probe dials host:22 and reports how far the handshake got. A
// successful authentication is reported even though the host never
// grants a shell (GitHub closes the session right after auth).
func (p *SSHProber) Probe(host, keyPath string, encrypted bool) model.ProbeStatus {
	timeout := p.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	var auth []ssh.AuthMethod
	if keyPath != "" && !encrypted {
		if data, err := os.ReadFile(keyPath); err == nil {
			if signer, err := ssh.ParsePrivateKey(data); err == nil {
				auth = append(auth, ssh.PublicKeys(signer))
			}
		}
	}
	if p.AgentSigners != nil {
		if signers := p.AgentSigners(); len(signers) > 0 {
			auth = append(auth, ssh.PublicKeys(signers...))
		}
	}
	if len(auth) == 0 {
		// Nothing to offer; the handshake would be rejected outright.
		return model.ProbeAuthRejected
	}

	addr := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		addr = net.JoinHostPort(host, "22")
	}

	config := &ssh.ClientConfig{
		User: "git",
		Auth: auth,
		// The probe only classifies reachability; it never transfers
		// data, so accepting the presented host key is safe here.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	client, err := ssh.Dial("tcp", addr, config)
	if err == nil {
		client.Close()
		return model.ProbeAuthenticated
	}
	return classifyDialError(err)
}

// classifyDialError maps a dial failure onto a probe status.
func classifyDialError(err error) model.ProbeStatus {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return model.ProbeTimeout
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unable to authenticate"):
		return model.ProbeAuthRejected
	case strings.Contains(msg, "i/o timeout"):
		return model.ProbeTimeout
	default:
		return model.ProbeNetworkUnreachable
	}
}
