// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package loader resolves catalog images through the two-tier cache and
// falls back to the catalog only when both cache keys miss.
package loader
