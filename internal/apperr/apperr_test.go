// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package apperr

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "200 ok", status: 200, want: nil},
		{name: "204 ok", status: 204, want: nil},
		{name: "299 ok", status: 299, want: nil},
		{name: "401", status: 401, want: ErrUnauthorized},
		{name: "404", status: 404, want: ErrNotFound},
		{name: "403 is server", status: 403, want: ErrServer},
		{name: "500", status: 500, want: ErrServer},
		{name: "302 is server", status: 302, want: ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromStatus("get breeds", tt.status)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.status, StatusCode(err))
		})
	}
}

func TestError_UnwrapsKindAndCause(t *testing.T) {
	err := Network("get image", io.ErrUnexpectedEOF)

	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.NotErrorIs(t, err, ErrServer)
	assert.Equal(t, "get image: network error: unexpected EOF", err.Error())
}

func TestError_ServerMessageIncludesStatus(t *testing.T) {
	err := FromStatus("get breeds", 503)
	assert.Equal(t, "get breeds: server error (status 503)", err.Error())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrDecoding, KindOf(Decoding("x", nil)))
	assert.Equal(t, ErrStorage, KindOf(Storage("x", errors.New("disk"))))
	assert.Nil(t, KindOf(errors.New("plain")))
}

func TestFriendly(t *testing.T) {
	ctx := Context{Operation: "load image", Resource: "image", ID: "abc"}

	assert.Nil(t, Friendly(nil, ctx))

	err := Friendly(FromStatus("get image", 404), ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), `image "abc" was not found`)

	err = Friendly(FromStatus("get image", 401), ctx)
	assert.Contains(t, err.Error(), "CATINFO_API_KEY")

	err = Friendly(errors.New("boom"), ctx)
	assert.Equal(t, "failed to load image: boom", err.Error())
}
