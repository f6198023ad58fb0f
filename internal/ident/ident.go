// Package ident computes stable, content-derived identifiers.
package ident

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// Prefixes used by each id kind. Stable across releases: callers persist
// these strings.
const (
	ProjectPrefix = "project_"
	SessionPrefix = "session_"
	FilePrefix    = "file_"
	MessagePrefix = "msg_"
	ToolPrefix    = "tool_"
)

// hash returns the SHA-1 hex digest of parts joined with "|". Identical
// parts always produce an identical digest, on any machine, in any
// process.
func hash(parts ...string) string {
	h := sha1.New()
	h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))
}

// Project derives a project id from its provider and project path.
func Project(provider, projectPath string) string {
	return ProjectPrefix + hash(provider, projectPath)
}

// Session derives a session id from its provider and sessionIdentity
// (the provider-namespaced uniqueness key computed by discovery).
func Session(provider, sessionIdentity string) string {
	return SessionPrefix + hash(provider, sessionIdentity)
}

// File derives an id for a discovered/indexed file from its provider and
// absolute path.
func File(provider, filePath string) string {
	return FilePrefix + hash(provider, filePath)
}

// Message derives a canonical message id from its owning session id and
// source message id (the latter may carry a "#N" split suffix).
func Message(sessionID, sourceMessageID string) string {
	return MessagePrefix + hash(sessionID, sourceMessageID)
}

// Tool derives a tool-call id from its owning message id and the
// zero-based index of the tool_use/tool_edit segment within that
// message's source event.
func Tool(messageID string, index int) string {
	return ToolPrefix + hash(messageID, itoa(index))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
