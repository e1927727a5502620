// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package catapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/staranto/catinfo/internal/apperr"
)

const (
	// DefaultBaseURL is the public catalog endpoint.
	DefaultBaseURL = "https://api.thecatapi.com/v1"
	// PageSize is how many images a search page holds.
	PageSize = 10

	// MaxImageBytes caps a single image download.
	MaxImageBytes = 50 << 20

	defaultTimeout = 30 * time.Second
	defaultRetries = 3
	defaultRPS     = 10
)

var (
	ErrNoURL      = errors.New("image has no url")
	ErrNoMirror   = errors.New("no s3 mirror configured")
	ErrTooLarge   = errors.New("image exceeds size limit")
	ErrBadScheme  = errors.New("unsupported image url scheme")
	ErrEmptyInput = errors.New("empty identifier")
)

// ObjectGetter is the slice of the S3 API used to read mirrored images.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3v2.GetObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.GetObjectOutput, error)
}

// Client talks to the breed catalog.
type Client struct {
	baseURL string
	apiKey  string
	http    *retryablehttp.Client
	s3      ObjectGetter
}

type options struct {
	baseURL    string
	apiKey     string
	retries    int
	timeout    time.Duration
	rps        float64
	burst      int
	s3         ObjectGetter
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*options)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithAPIKey sets the x-api-key header sent to the catalog.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithRetries sets how many times a failed request is retried.
func WithRetries(n int) Option {
	return func(o *options) { o.retries = n }
}

// WithTimeout bounds each HTTP attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRateLimit caps requests per second. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		o.rps = rps
		o.burst = burst
	}
}

// WithS3 enables s3:// image URLs.
func WithS3(getter ObjectGetter) Option {
	return func(o *options) { o.s3 = getter }
}

// WithHTTPClient bases the underlying HTTP client on a copy of c; c itself is
// not modified.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New builds a Client.
func New(opts ...Option) *Client {
	o := options{
		baseURL: DefaultBaseURL,
		retries: defaultRetries,
		timeout: defaultTimeout,
		rps:     defaultRPS,
		burst:   defaultRPS,
	}
	for _, opt := range opts {
		opt(&o)
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = o.retries
	rc.Logger = leveledLogger{}
	// Hand non-2xx responses back so their status can be classified.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if o.httpClient != nil {
		hc := *o.httpClient
		rc.HTTPClient = &hc
	}
	rc.HTTPClient.Timeout = o.timeout
	if o.rps > 0 {
		next := rc.HTTPClient.Transport
		if next == nil {
			next = http.DefaultTransport
		}
		rc.HTTPClient.Transport = newLimitedTransport(next, o.rps, o.burst)
	}

	return &Client{
		baseURL: strings.TrimRight(o.baseURL, "/"),
		apiKey:  o.apiKey,
		http:    rc,
		s3:      o.s3,
	}
}

// Breeds lists every breed.
func (c *Client) Breeds(ctx context.Context) ([]*Breed, error) {
	var breeds []*Breed
	if err := c.getJSON(ctx, "list breeds", c.baseURL+"/breeds", &breeds); err != nil {
		return nil, err
	}
	return breeds, nil
}

// Breed fetches one breed by id.
func (c *Client) Breed(ctx context.Context, id string) (*Breed, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.InvalidInput("get breed", ErrEmptyInput)
	}
	var breed Breed
	if err := c.getJSON(ctx, "get breed", c.baseURL+"/breeds/"+url.PathEscape(id), &breed); err != nil {
		return nil, err
	}
	if breed.ID == "" {
		// The catalog answers unknown breed ids with 200 and an empty object.
		return nil, &apperr.Error{Kind: apperr.ErrNotFound, Op: "get breed", Err: fmt.Errorf("breed %q", id)}
	}
	return &breed, nil
}

// ImageInfo resolves image metadata by id.
func (c *Client) ImageInfo(ctx context.Context, id string) (*Image, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.InvalidInput("get image", ErrEmptyInput)
	}
	var img Image
	if err := c.getJSON(ctx, "get image", c.baseURL+"/images/"+url.PathEscape(id), &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// SearchImages returns one page of a breed's images.
func (c *Client) SearchImages(ctx context.Context, breedID string, limit, page int) ([]*Image, error) {
	if strings.TrimSpace(breedID) == "" {
		return nil, apperr.InvalidInput("search images", ErrEmptyInput)
	}
	if limit <= 0 {
		limit = PageSize
	}
	if page < 0 {
		page = 0
	}

	q := url.Values{}
	q.Set("breed_ids", breedID)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("page", strconv.Itoa(page))
	q.Set("order", "ASC")

	var images []*Image
	if err := c.getJSON(ctx, "search images", c.baseURL+"/images/search?"+q.Encode(), &images); err != nil {
		return nil, err
	}
	return images, nil
}

// ImageBytes downloads the encoded image at rawURL. http and https URLs go
// through the catalog HTTP client; s3://bucket/key URLs need WithS3.
func (c *Client) ImageBytes(ctx context.Context, rawURL string) ([]byte, error) {
	const op = "fetch image"

	if strings.TrimSpace(rawURL) == "" {
		return nil, apperr.InvalidInput(op, ErrNoURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, apperr.InvalidInput(op, err)
	}

	switch u.Scheme {
	case "http", "https":
		return c.httpBytes(ctx, op, rawURL)
	case "s3":
		return c.s3Bytes(ctx, op, u)
	default:
		return nil, apperr.InvalidInput(op, fmt.Errorf("%w: %q", ErrBadScheme, u.Scheme))
	}
}

func (c *Client) httpBytes(ctx context.Context, op, rawURL string) ([]byte, error) {
	resp, err := c.do(ctx, op, rawURL, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return readLimited(op, resp.Body)
}

func (c *Client) s3Bytes(ctx context.Context, op string, u *url.URL) ([]byte, error) {
	if c.s3 == nil {
		return nil, apperr.InvalidInput(op, ErrNoMirror)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return nil, apperr.InvalidInput(op, fmt.Errorf("malformed s3 url %q", u.String()))
	}

	log.Debugf("fetching s3://%s/%s", u.Host, key)
	out, err := c.s3.GetObject(ctx, &s3v2.GetObjectInput{
		Bucket: awsv2.String(u.Host),
		Key:    awsv2.String(key),
	})
	if err != nil {
		return nil, apperr.Network(op, err)
	}
	defer out.Body.Close()
	return readLimited(op, out.Body)
}

func (c *Client) getJSON(ctx context.Context, op, endpoint string, v any) error {
	resp, err := c.do(ctx, op, endpoint, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return apperr.Decoding(op, err)
	}
	return nil
}

// do issues a GET and maps transport failures and non-2xx statuses to
// apperr kinds. On success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, op, endpoint string, withKey bool) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperr.InvalidInput(op, err)
	}
	if withKey && c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if withKey {
		req.Header.Set("Accept", "application/json")
	}

	log.Debugf("GET %s", endpoint)
	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, apperr.Network(op, err)
	}

	if err := apperr.FromStatus(op, resp.StatusCode); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:mnd
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func readLimited(op string, r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return nil, apperr.Network(op, err)
	}
	if len(data) > MaxImageBytes {
		return nil, apperr.Decoding(op, ErrTooLarge)
	}
	return data, nil
}
