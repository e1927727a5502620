// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package version holds the build version, overridden at link time with
// -ldflags "-X github.com/staranto/catinfo/internal/version.Version=...".
package version

var Version = "0.1.0-dev"
