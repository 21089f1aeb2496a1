// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

// This file contains the SSH directory scanner. It enumerates candidate
// key files, pairs private keys with their .pub counterparts and produces
// transient DiscoveredKey records for the reconciliation engine.
package sshkey

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/toeirei/gitswitch/internal/i18n"
	"github.com/toeirei/gitswitch/internal/model"
)

// ScanResult holds the keys found in an SSH directory plus any non-fatal
// warnings collected along the way. Zero keys is a valid result.
type ScanResult struct {
	Keys     []model.DiscoveredKey
	Warnings []string
}

// nonKeyFiles are SSH directory entries that are never key material.
var nonKeyFiles = map[string]bool{
	"config":          true,
	"known_hosts":     true,
	"known_hosts.old": true,
	"authorized_keys": true,
	"agent-env":       true,
	"allowed_signers": true,
}

// Scan enumerates the SSH directory and returns every discovered key.
// Unreadable or malformed files are skipped and reported as warnings,
// never as fatal errors. A missing directory yields an empty result.
func Scan(sshDir string) (ScanResult, error) {
	var result ScanResult

	entries, err := os.ReadDir(sshDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return result, nil
		}
		return result, err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || nonKeyFiles[name] {
			continue
		}
		if strings.HasSuffix(name, ".pub") || strings.Contains(name, "-backup") {
			continue
		}

		privPath := filepath.Join(sshDir, name)
		pubPath := privPath + ".pub"

		privData, err := os.ReadFile(privPath)
		if err != nil {
			result.Warnings = append(result.Warnings, i18n.T("scan.warn_unreadable", privPath, err))
			continue
		}

		hasPub := false
		if _, err := os.Stat(pubPath); err == nil {
			hasPub = true
		}

		// A file is a candidate only if a .pub counterpart exists or its
		// header identifies it as a private key.
		if !hasPub && !HasPrivateKeyHeader(privData) {
			continue
		}
		if hasPub && !HasPrivateKeyHeader(privData) {
			// A .pub sibling next to something that is not a private key
			// (e.g. a certificate) is not a key pair.
			continue
		}

		key := model.DiscoveredKey{PrivateKeyPath: privPath}

		encrypted, err := ClassifyPrivateKey(privData)
		if err != nil {
			result.Warnings = append(result.Warnings, i18n.T("scan.warn_malformed", privPath, err))
			continue
		}
		key.Encrypted = encrypted

		if hasPub {
			pubData, err := os.ReadFile(pubPath)
			if err != nil {
				result.Warnings = append(result.Warnings, i18n.T("scan.warn_unreadable", pubPath, err))
				continue
			}
			alg, _, comment, err := Parse(string(pubData))
			if err != nil {
				result.Warnings = append(result.Warnings, i18n.T("scan.warn_malformed", pubPath, err))
				continue
			}
			fp, err := Fingerprint(string(pubData))
			if err != nil {
				result.Warnings = append(result.Warnings, i18n.T("scan.warn_malformed", pubPath, err))
				continue
			}
			key.PublicKeyPath = pubPath
			key.Algorithm = alg
			key.Comment = comment
			key.Fingerprint = fp
		} else {
			// Private-only key. Derive the public half from the private key
			// when possible; an encrypted key stays fingerprint-less.
			if encrypted {
				result.Warnings = append(result.Warnings, i18n.T("scan.warn_no_pub_encrypted", privPath))
			} else {
				signer, err := ssh.ParsePrivateKey(privData)
				if err != nil {
					result.Warnings = append(result.Warnings, i18n.T("scan.warn_malformed", privPath, err))
					continue
				}
				key.Algorithm = signer.PublicKey().Type()
				key.Fingerprint = ssh.FingerprintSHA256(signer.PublicKey())
			}
		}

		result.Keys = append(result.Keys, key)
	}

	return result, nil
}
