// Package cmn provides shared low-level types and utilities for the
// library service.
/*
 * Copyright (c) 2021, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import "strings"

// URLPath mirrors the teacher's cmn/urlpaths.go idiom: a path is both its
// word list (for building/matching) and its joined string form (for
// direct use in mux registration).
type URLPath struct {
	L []string
	S string
}

func urlpath(words ...string) URLPath { return URLPath{L: words, S: "/" + strings.Join(words, "/")} }

const (
	Version = "v1"

	Libraries     = "libraries"
	Directories   = "directories"
	Files         = "files"
	Versions      = "versions"
	Uploads       = "uploads"
	Shares        = "shares"
	Trash         = "trash"
	Audit         = "audit"
	Notifications = "notifications"
	Realtime      = "realtime"
	Browse        = "browse"
	Preview       = "preview"
	Admin         = "admin"
	MCP           = "mcp"
	Health        = "health"
)

var (
	URLPathLibraries     = urlpath(Version, Libraries)
	URLPathDirectories   = urlpath(Version, Directories)
	URLPathFiles         = urlpath(Version, Files)
	URLPathUploads       = urlpath(Version, Files, Uploads)
	URLPathShares        = urlpath(Version, Shares)
	URLPathTrash         = urlpath(Version, Trash)
	URLPathAudit         = urlpath(Version, Audit)
	URLPathNotifications = urlpath(Version, Notifications)
	URLPathRealtime      = urlpath(Version, Realtime)
	URLPathBrowse        = urlpath(Version, Browse)
	URLPathPreview       = urlpath(Version, Preview)
	URLPathAdmin         = urlpath(Version, Admin)
	URLPathMCP           = urlpath(Version, MCP)
	URLPathHealth        = urlpath(Version, Health)
)

// AcceptVersion parses the `vnd.<product>.v<N>+json` media-type
// parameter from an Accept header, as required by §4.11. Unknown
// versions are rejected by the caller (pipeline package); this helper
// only extracts the integer.
func AcceptVersion(accept, product string) (n int, ok bool) {
	prefix := "vnd." + product + ".v"
	idx := strings.Index(accept, prefix)
	if idx < 0 {
		return 0, false
	}
	rest := accept[idx+len(prefix):]
	end := strings.IndexAny(rest, "+; ")
	if end < 0 {
		end = len(rest)
	}
	digits := rest[:end]
	if digits == "" {
		return 0, false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n = 0
	for _, c := range digits {
		n = n*10 + int(c-'0')
	}
	return n, true
}
