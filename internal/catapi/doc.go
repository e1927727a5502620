// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package catapi is the REST client for the breed catalog. It lists breeds,
// resolves image metadata, searches a breed's images and fetches image bytes
// over HTTP(S) or from an S3 mirror. Errors carry apperr kinds.
package catapi
