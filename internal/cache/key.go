// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"net/url"
	"strings"
)

// keyReplacer maps the URL delimiters that are unsafe in a key to "_".
var keyReplacer = strings.NewReplacer(
	"/", "_",
	":", "_",
	".", "_",
	"?", "_",
	"&", "_",
	"=", "_",
)

// DeriveKey turns a URL into a cache key by replacing each of / : . ? & =
// with an underscore. Distinct URLs can collide; no attempt is made to
// resolve that.
func DeriveKey(rawURL string) string {
	return keyReplacer.Replace(rawURL)
}

// MakeKey returns DeriveKey(s) when s looks like an absolute URL and s
// unchanged otherwise, so opaque catalog ids are used as-is.
func MakeKey(s string) string {
	if isURL(s) {
		return DeriveKey(s)
	}
	return s
}

func isURL(s string) bool {
	if !strings.Contains(s, "://") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
