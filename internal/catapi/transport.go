// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package catapi

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/apex/log"
	"golang.org/x/time/rate"
)

const (
	minLimit  = 0.1
	backOffBy = 2.0
)

// limitedTransport waits on a token bucket before each request. A 429
// response halves the rate once per transport, down to minLimit.
type limitedTransport struct {
	rl      *rate.Limiter
	next    http.RoundTripper
	backOff sync.Once
}

func newLimitedTransport(next http.RoundTripper, rps float64, burst int) *limitedTransport {
	if burst < 1 {
		burst = 1
	}
	return &limitedTransport{
		rl:   rate.NewLimiter(rate.Limit(rps), burst),
		next: next,
	}
}

func (t *limitedTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if err := t.rl.Wait(r.Context()); err != nil {
		return nil, fmt.Errorf("rate limited: %w", err)
	}
	resp, err := t.next.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		t.backOff.Do(func() {
			limit := float64(t.rl.Limit()) / backOffBy
			if limit < minLimit {
				limit = minLimit
			}
			log.WithField("host", r.URL.Host).Infof("reducing catalog rate limit to %.2f/s", limit)
			t.rl.SetLimit(rate.Limit(limit))
		})
	}
	return resp, nil
}

// leveledLogger forwards retryablehttp's logging to apex/log.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...interface{}) { entry(kv).Error(msg) }
func (leveledLogger) Warn(msg string, kv ...interface{})  { entry(kv).Warn(msg) }
func (leveledLogger) Info(msg string, kv ...interface{})  { entry(kv).Debug(msg) }
func (leveledLogger) Debug(msg string, kv ...interface{}) { entry(kv).Debug(msg) }

func entry(kv []interface{}) *log.Entry {
	fields := log.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return log.WithFields(fields)
}
