// Package whoami discovers the Cloudflare account ID of the logged-in user.
//
// Discovery is best-effort and sits behind the Prober interface: the
// current implementation scrapes `wrangler whoami` table output, which is
// fragile by nature. Callers treat every error as a warning.
package whoami

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

var (
	// footerLine marks the end of the account table. Lines after it list
	// token scopes, which never contain account IDs.
	footerLine = regexp.MustCompile(`(?i)token permissions|^\s*scope\s*\(access\)`)

	accountID = regexp.MustCompile(`^[0-9a-f]{32}$`)

	ansiEscape = regexp.MustCompile("\x1b\\[[0-9;]*m")
)

// accountColumn is the cell index of the account ID in a split table row.
// Rows start with a separator, so cell 0 is the empty string before it.
const accountColumn = 2

// ScanAccountID reads probe output line by line and returns the first
// account ID found in a table row. It stops at the first match or at the
// footer marker and does not drain the rest of r.
func ScanAccountID(r io.Reader) (string, bool) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := ansiEscape.ReplaceAllString(scanner.Text(), "")

		if footerLine.MatchString(line) {
			return "", false
		}
		if id, ok := accountFromRow(line); ok {
			return id, true
		}
	}
	return "", false
}

// accountFromRow extracts the account ID from a table row such as
//
//	│ Jane's Account │ 0123456789abcdef0123456789abcdef │
func accountFromRow(line string) (string, bool) {
	sep := "│"
	if !strings.Contains(line, sep) {
		sep = "|"
	}
	cells := strings.Split(line, sep)
	if len(cells) <= accountColumn {
		return "", false
	}
	cell := strings.TrimSpace(cells[accountColumn])
	if !accountID.MatchString(cell) {
		return "", false
	}
	return cell, true
}
