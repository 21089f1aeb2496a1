// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

// This file contains logic for generating new SSH key pairs and placing
// them in the SSH directory under the per-profile naming convention
// id_ed25519_<profile>.
package sshkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/toeirei/gitswitch/internal/model"
)

// KeyPair is the result of generating or importing a profile key.
type KeyPair struct {
	PrivateKeyPath string
	PublicKey      string // authorized_keys format, with comment
	Fingerprint    string
	Encrypted      bool
}

// ProfileKeyPath returns the conventional private key path for a profile.
func ProfileKeyPath(sshDir, profileName string) string {
	return filepath.Join(sshDir, "id_ed25519_"+profileName)
}

// GenerateAndMarshalEd25519Key creates a new ed25519 key pair and returns
// them as formatted strings: the public key in authorized_keys format and
// the private key in PEM format. If a non-empty passphrase is provided,
// the private key will be encrypted with it.
func GenerateAndMarshalEd25519Key(comment string, passphrase string) (publicKeyString string, privateKeyString string, err error) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}

	sshPubKey, err := ssh.NewPublicKey(pubKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to create SSH public key: %w", err)
	}
	pubKeyBytes := ssh.MarshalAuthorizedKey(sshPubKey)
	publicKeyString = fmt.Sprintf("%s %s", strings.TrimSpace(string(pubKeyBytes)), comment)

	var pemBlock *pem.Block
	if passphrase == "" {
		pemBlock, err = ssh.MarshalPrivateKey(privKey, "")
	} else {
		pemBlock, err = ssh.MarshalPrivateKeyWithPassphrase(privKey, "", []byte(passphrase))
	}

	if err != nil {
		return "", "", fmt.Errorf("failed to marshal private key: %w", err)
	}

	privateKeyString = string(pem.EncodeToMemory(pemBlock))
	return publicKeyString, privateKeyString, nil
}

// keyFileMode returns the secure default file mode for private keys. On
// Windows, where POSIX permissions are not meaningful, it falls back to
// 0644 for compatibility.
func keyFileMode() os.FileMode {
	if runtime.GOOS == "windows" {
		return 0644
	}
	return 0600
}

// Generate creates a fresh ed25519 key pair for a profile and writes both
// halves into the SSH directory. It refuses to overwrite an existing
// profile key and removes partial files on failure.
func Generate(sshDir, profileName, comment, passphrase string) (*KeyPair, error) {
	privPath := ProfileKeyPath(sshDir, profileName)
	if _, err := os.Stat(privPath); err == nil {
		return nil, fmt.Errorf("ssh key already exists for profile %q: %s", profileName, privPath)
	}
	return writePair(sshDir, privPath, comment, passphrase)
}

// Regenerate replaces the key material of an existing profile key in
// place. Unlike Generate it allows overwriting.
func Regenerate(sshDir, profileName, comment, passphrase string) (*KeyPair, error) {
	privPath := ProfileKeyPath(sshDir, profileName)
	return writePair(sshDir, privPath, comment, passphrase)
}

func writePair(sshDir, privPath, comment, passphrase string) (*KeyPair, error) {
	if err := os.MkdirAll(sshDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create ssh directory: %w", err)
	}

	pubLine, privPEM, err := GenerateAndMarshalEd25519Key(comment, passphrase)
	if err != nil {
		return nil, err
	}

	pubPath := privPath + ".pub"
	if err := os.WriteFile(privPath, []byte(privPEM), keyFileMode()); err != nil {
		return nil, fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(pubPath, []byte(pubLine+"\n"), 0644); err != nil {
		// Don't leave a half-written pair behind.
		_ = os.Remove(privPath)
		return nil, fmt.Errorf("failed to write public key: %w", err)
	}

	fp, err := Fingerprint(pubLine)
	if err != nil {
		_ = os.Remove(privPath)
		_ = os.Remove(pubPath)
		return nil, err
	}

	return &KeyPair{
		PrivateKeyPath: privPath,
		PublicKey:      pubLine,
		Fingerprint:    fp,
		Encrypted:      passphrase != "",
	}, nil
}

// Import copies an existing key pair into the SSH directory under the
// profile naming convention. The source must have both halves on disk.
func Import(srcPrivPath, sshDir, profileName string) (*KeyPair, error) {
	srcPubPath := srcPrivPath + ".pub"

	privData, err := os.ReadFile(srcPrivPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", model.ErrKeyMissing, srcPrivPath)
	}
	pubData, err := os.ReadFile(srcPubPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", model.ErrKeyMissing, srcPubPath)
	}

	encrypted, err := ClassifyPrivateKey(privData)
	if err != nil {
		return nil, err
	}
	pubLine := strings.TrimSpace(string(pubData))
	fp, err := Fingerprint(pubLine)
	if err != nil {
		return nil, err
	}

	destPriv := ProfileKeyPath(sshDir, profileName)
	if _, err := os.Stat(destPriv); err == nil {
		return nil, fmt.Errorf("profile ssh key already exists: %s", destPriv)
	}
	if err := os.MkdirAll(sshDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create ssh directory: %w", err)
	}
	if err := os.WriteFile(destPriv, privData, keyFileMode()); err != nil {
		return nil, fmt.Errorf("failed to copy private key: %w", err)
	}
	if err := os.WriteFile(destPriv+".pub", pubData, 0644); err != nil {
		_ = os.Remove(destPriv)
		return nil, fmt.Errorf("failed to copy public key: %w", err)
	}

	return &KeyPair{
		PrivateKeyPath: destPriv,
		PublicKey:      pubLine,
		Fingerprint:    fp,
		Encrypted:      encrypted,
	}, nil
}

// RemovePair deletes a profile's private and public key files. Missing
// files are not an error.
func RemovePair(privPath string) {
	_ = os.Remove(privPath)
	_ = os.Remove(privPath + ".pub")
}
