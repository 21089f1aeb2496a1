// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

// package sshkey provides parsing, fingerprinting and classification of
// SSH key material, plus generation of new key pairs. Fingerprints are
// computed over the decoded public key payload, so the same key always
// yields the same fingerprint regardless of its comment or file location.
package sshkey

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/toeirei/gitswitch/internal/model"
)

// Parse splits a raw public key string (like one from a .pub file) into
// its three core components: algorithm, key data, and comment. It
// correctly handles leading options in the line.
func Parse(rawKey string) (algorithm, keyData, comment string, err error) {
	fields := strings.Fields(rawKey)
	if len(fields) == 0 {
		err = fmt.Errorf("empty line")
		return
	}

	keyStartIndex := -1
	for i, field := range fields {
		if strings.HasPrefix(field, "ssh-") || strings.HasPrefix(field, "ecdsa-") || strings.HasPrefix(field, "sk-") {
			keyStartIndex = i
			break
		}
	}

	if keyStartIndex == -1 {
		err = fmt.Errorf("no valid SSH key type found in line")
		return
	}

	if len(fields) < keyStartIndex+2 {
		err = fmt.Errorf("invalid public key format: missing key data after algorithm")
		return
	}

	algorithm = fields[keyStartIndex]
	keyData = fields[keyStartIndex+1]
	if len(fields) > keyStartIndex+2 {
		comment = strings.Join(fields[keyStartIndex+2:], " ")
	}

	return
}

// Fingerprint computes the SHA256 fingerprint of a public key line. The
// trailing comment does not participate in the digest.
func Fingerprint(pubLine string) (string, error) {
	pk, _, _, _, err := ssh.ParseAuthorizedKey([]byte(pubLine))
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrKeyUnreadable, err)
	}
	return ssh.FingerprintSHA256(pk), nil
}

// ClassifyPrivateKey inspects private key material without decrypting it.
// It reports whether the key is passphrase-protected. A key that fails to
// parse for any other reason is ErrKeyUnreadable, which is distinct from
// "encrypted".
func ClassifyPrivateKey(pemBytes []byte) (encrypted bool, err error) {
	_, err = ssh.ParseRawPrivateKey(pemBytes)
	if err == nil {
		return false, nil
	}
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) {
		return true, nil
	}
	return false, fmt.Errorf("%w: %v", model.ErrKeyUnreadable, err)
}

// HasPrivateKeyHeader reports whether data starts with a recognized
// private key PEM header. Used to pick up private-only key files that
// have no .pub sibling.
func HasPrivateKeyHeader(data []byte) bool {
	head := strings.TrimSpace(string(data))
	if i := strings.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	return strings.HasPrefix(head, "-----BEGIN ") && strings.Contains(head, "PRIVATE KEY-----")
}
