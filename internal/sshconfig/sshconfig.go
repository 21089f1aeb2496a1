// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

// package sshconfig parses the SSH client configuration into an ordered
// sequence of blocks and merges gitswitch-managed entries into it.
// Foreign content is preserved byte-for-byte; managed blocks are
// delimited by a marker comment pair and always render canonically, so
// re-running an unchanged merge is a byte-identical no-op.
package sshconfig

import (
	"strings"

	"github.com/toeirei/gitswitch/internal/i18n"
	"github.com/toeirei/gitswitch/internal/model"
)

const (
	markerBegin = "# >>> gitswitch profile: "
	markerEnd   = "# <<< gitswitch profile: "
)

// block is one region of the config file. Foreign regions carry their
// original text verbatim; managed regions carry the structured form.
type block struct {
	text    string // verbatim foreign text (may span many host entries)
	managed *model.ManagedBlock
}

// File is the parsed, ordered form of an SSH config file.
type File struct {
	blocks []block
	// Warnings collects recoverable parse problems (e.g. an unterminated
	// managed block that was downgraded to foreign text).
	Warnings []string
}

// Parse splits raw SSH config text into foreign and managed blocks.
// A malformed managed block is downgraded to foreign text with a warning
// rather than rejected.
func Parse(content string) *File {
	f := &File{}
	lines := strings.SplitAfter(content, "\n")
	// SplitAfter leaves a trailing "" element when content ends with \n.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var foreign strings.Builder
	flushForeign := func() {
		if foreign.Len() > 0 {
			f.blocks = append(f.blocks, block{text: foreign.String()})
			foreign.Reset()
		}
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimRight(line, "\r\n")
		if !strings.HasPrefix(trimmed, markerBegin) {
			foreign.WriteString(line)
			continue
		}

		profile := strings.TrimSpace(strings.TrimPrefix(trimmed, markerBegin))
		end := -1
		for j := i + 1; j < len(lines); j++ {
			if strings.TrimRight(lines[j], "\r\n") == markerEnd+profile {
				end = j
				break
			}
		}
		if end == -1 {
			// Unterminated managed block: keep the remainder as foreign
			// text so nothing is lost, and warn.
			f.Warnings = append(f.Warnings, i18n.T("sshconfig.warn_unterminated", profile))
			foreign.WriteString(line)
			continue
		}

		flushForeign()
		mb := parseManagedBody(profile, lines[i+1:end])
		f.blocks = append(f.blocks, block{managed: &mb})
		i = end
	}
	flushForeign()

	return f
}

// parseManagedBody extracts the structured fields from a managed block
// body. Unknown or missing fields simply stay zero; Upsert rewrites the
// block canonically anyway.
func parseManagedBody(profile string, lines []string) model.ManagedBlock {
	mb := model.ManagedBlock{Profile: profile}
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "Host":
			mb.HostAlias = fields[1]
		case "HostName":
			mb.HostName = fields[1]
		case "User":
			mb.User = fields[1]
		case "IdentityFile":
			mb.IdentityFile = strings.Join(fields[1:], " ")
		case "IdentitiesOnly":
			mb.IdentitiesOnly = fields[1] == "yes"
		}
	}
	return mb
}

// Managed returns the managed block for a profile, or nil.
func (f *File) Managed(profile string) *model.ManagedBlock {
	for i := range f.blocks {
		if f.blocks[i].managed != nil && f.blocks[i].managed.Profile == profile {
			return f.blocks[i].managed
		}
	}
	return nil
}

// ManagedProfiles lists the profiles that own a managed block, in file
// order.
func (f *File) ManagedProfiles() []string {
	var names []string
	for _, b := range f.blocks {
		if b.managed != nil {
			names = append(names, b.managed.Profile)
		}
	}
	return names
}

// Upsert replaces the managed block for mb.Profile in place when present,
// otherwise appends a new managed block at the end. All other content is
// unchanged.
func (f *File) Upsert(mb model.ManagedBlock) {
	for i := range f.blocks {
		if f.blocks[i].managed != nil && f.blocks[i].managed.Profile == mb.Profile {
			f.blocks[i].managed = &mb
			return
		}
	}

	// Separate the new block from existing content with one blank line.
	if n := len(f.blocks); n > 0 {
		last := &f.blocks[n-1]
		if last.managed == nil && !strings.HasSuffix(last.text, "\n\n") {
			if !strings.HasSuffix(last.text, "\n") {
				last.text += "\n"
			}
			last.text += "\n"
		} else if last.managed != nil {
			f.blocks = append(f.blocks, block{text: "\n"})
		}
	}
	f.blocks = append(f.blocks, block{managed: &mb})
}

// Remove deletes the managed block for a profile. It is a no-op when the
// profile has no managed block.
func (f *File) Remove(profile string) {
	for i := range f.blocks {
		if f.blocks[i].managed != nil && f.blocks[i].managed.Profile == profile {
			f.blocks = append(f.blocks[:i], f.blocks[i+1:]...)
			return
		}
	}
}

// Render serializes the file deterministically: foreign blocks verbatim,
// managed blocks in canonical form. A file that contains only foreign
// blocks reproduces its input bytes exactly.
func (f *File) Render() string {
	var sb strings.Builder
	for _, b := range f.blocks {
		if b.managed == nil {
			sb.WriteString(b.text)
			continue
		}
		mb := b.managed
		sb.WriteString(markerBegin + mb.Profile + "\n")
		sb.WriteString("Host " + mb.HostAlias + "\n")
		sb.WriteString("    HostName " + mb.HostName + "\n")
		sb.WriteString("    User " + mb.User + "\n")
		sb.WriteString("    IdentityFile " + mb.IdentityFile + "\n")
		if mb.IdentitiesOnly {
			sb.WriteString("    IdentitiesOnly yes\n")
		} else {
			sb.WriteString("    IdentitiesOnly no\n")
		}
		sb.WriteString(markerEnd + mb.Profile + "\n")
	}
	return sb.String()
}

// RewriteIdentityFile updates the IdentityFile of every managed block
// currently pointing at oldPath. Used after key regeneration moves or
// replaces key material.
func (f *File) RewriteIdentityFile(oldPath, newPath string) {
	for i := range f.blocks {
		if f.blocks[i].managed != nil && f.blocks[i].managed.IdentityFile == oldPath {
			mb := *f.blocks[i].managed
			mb.IdentityFile = newPath
			f.blocks[i].managed = &mb
		}
	}
}
