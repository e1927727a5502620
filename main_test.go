// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/catinfo/internal/config"
)

const setsYAML = `
breeds:
  defaults:
    - --sort name
    - --titles
  wide:
    - --attrs temperament,weight.metric
cache:
  warm:
    defaults: --pages 3
`

func loadSets(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catinfo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(setsYAML), 0o600))
	t.Setenv("CATINFO_CFG", path)
	_, err := config.Load()
	require.NoError(t, err)
	t.Cleanup(func() { config.Config = config.Type{} })
}

func TestMangleArguments(t *testing.T) {
	loadSets(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "defaults inserted after command",
			args: []string{"catinfo", "breeds", "-o", "json"},
			want: []string{"catinfo", "breeds", "--sort", "name", "--titles", "-o", "json"},
		},
		{
			name: "named set replaces defaults",
			args: []string{"catinfo", "breeds", "@wide", "-t"},
			want: []string{"catinfo", "breeds", "--attrs", "temperament,weight.metric", "-t"},
		},
		{
			name: "unknown set adds nothing",
			args: []string{"catinfo", "breeds", "@nope"},
			want: []string{"catinfo", "breeds"},
		},
		{
			name: "command without sets",
			args: []string{"catinfo", "images", "abys", "--list"},
			want: []string{"catinfo", "images", "abys", "--list"},
		},
		{
			name: "group subcommand namespace",
			args: []string{"catinfo", "cache", "warm", "abys"},
			want: []string{"catinfo", "cache", "warm", "--pages", "3", "abys"},
		},
		{
			name: "help keeps only the command",
			args: []string{"catinfo", "breed", "abys", "--help"},
			want: []string{"catinfo", "breed", "--help"},
		},
		{
			name: "help on group subcommand",
			args: []string{"catinfo", "cache", "stats", "-h"},
			want: []string{"catinfo", "cache", "stats", "--help"},
		},
		{
			name: "root flag first is left alone",
			args: []string{"catinfo", "--no-cache", "breeds"},
			want: []string{"catinfo", "--no-cache", "breeds"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mangleArguments(tt.args))
		})
	}
}
