// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package services builds the object graph a command runs against: the
// catalog client, the two tier image cache and the loader over both. Each
// command builds one Graph and closes it before exit.
package services
