// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package browse is the interactive image carousel behind `catinfo images`.
// It pages through a breed's images ten at a time and renders each one as
// terminal art.
package browse
