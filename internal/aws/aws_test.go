// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package aws

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps the host's AWS setup out of the tests.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIDEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
}

func TestLoadAWSConfig_Region(t *testing.T) {
	isolate(t)

	cfg, err := LoadAWSConfig(context.Background(), WithRegion("eu-west-1"))
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)
}

func TestLoadAWSConfig_EnvRegion(t *testing.T) {
	isolate(t)
	t.Setenv("AWS_REGION", "ap-southeast-2")

	cfg, err := LoadAWSConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ap-southeast-2", cfg.Region)
}

func TestLoadAWSConfig_MissingProfile(t *testing.T) {
	isolate(t)

	_, err := LoadAWSConfig(context.Background(), WithProfile("no-such-profile"))
	assert.Error(t, err)
}

func TestNewMirror(t *testing.T) {
	isolate(t)

	c, err := NewMirror(context.Background(), WithRegion("us-east-1"))
	require.NoError(t, err)
	assert.Nil(t, c.Options().BaseEndpoint)
	assert.False(t, c.Options().UsePathStyle)
	assert.Equal(t, "us-east-1", c.Options().Region)
}

func TestNewMirror_Endpoint(t *testing.T) {
	isolate(t)

	c, err := NewMirror(context.Background(),
		WithRegion("us-east-1"),
		WithEndpoint("http://localhost:9000"))
	require.NoError(t, err)
	require.NotNil(t, c.Options().BaseEndpoint)
	assert.Equal(t, "http://localhost:9000", *c.Options().BaseEndpoint)
	assert.True(t, c.Options().UsePathStyle)
}
