// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package driller resolves dotted attribute paths against API payloads so
// nested breed fields (weight.metric, image.url) can be selected as columns.
package driller
