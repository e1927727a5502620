// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package apperr defines the error kinds shared by the catalog client, the
// image loader and the cache. Callers test kinds with errors.Is.
package apperr
