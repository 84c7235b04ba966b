package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/dataviz/internal/format"
)

const (
	DefaultTimeout  = 300 * time.Second
	DefaultMaxBytes = 150 << 20
)

// Options configures a Resolver. Zero values select the defaults.
type Options struct {
	Timeout  time.Duration
	MaxBytes int64
	Client   *http.Client
	Logger   *slog.Logger
}

// Resolver selects the active input branch, obtains its bytes and decodes them.
type Resolver struct {
	client   *http.Client
	maxBytes int64
	validate *validator.Validate
	logger   *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(opts Options) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Resolver{
		client:   opts.Client,
		maxBytes: opts.MaxBytes,
		validate: validator.New(),
		logger:   opts.Logger.With(slog.String("component", "source")),
	}
}

// Resolve decodes the active branch of in. Branch failures are *Error.
func (r *Resolver) Resolve(ctx context.Context, in RawInput) (*Result, error) {
	switch in.Origin() {
	case OriginUpload:
		res, err := r.fromUpload(in)
		if err != nil {
			return nil, &Error{Origin: OriginUpload, Err: err}
		}
		return res, nil
	case OriginURL:
		res, err := r.fromURL(ctx, strings.TrimSpace(in.URL))
		if err != nil {
			return nil, &Error{Origin: OriginURL, Err: err}
		}
		return res, nil
	default:
		return nil, ErrNoInput
	}
}

func (r *Resolver) fromUpload(in RawInput) (*Result, error) {
	tag, err := format.Classify(in.Filename)
	if err != nil {
		return nil, err
	}

	t, err := format.DecodeAs(in.Data, tag)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("decoded upload",
		slog.String("filename", in.Filename),
		slog.String("format", tag.String()),
		slog.Int("bytes", len(in.Data)),
		slog.Int("rows", t.NumRows()),
	)

	return &Result{
		Table:  t,
		Origin: OriginUpload,
		Name:   path.Base(in.Filename),
		Format: tag,
		Size:   len(in.Data),
	}, nil
}

// fromURL classifies the URL path first so unsupported formats are rejected
// without a network round trip.
func (r *Resolver) fromURL(ctx context.Context, raw string) (*Result, error) {
	u, err := r.parseURL(raw)
	if err != nil {
		return nil, err
	}

	tag, err := format.Classify(u.Path)
	if err != nil {
		return nil, err
	}

	data, err := r.Fetch(ctx, u.String())
	if err != nil {
		return nil, err
	}

	t, err := format.DecodeAs(data, tag)
	if err != nil {
		return nil, err
	}

	return &Result{
		Table:  t,
		Origin: OriginURL,
		Name:   path.Base(u.Path),
		Format: tag,
		Size:   len(data),
	}, nil
}

func (r *Resolver) parseURL(raw string) (*url.URL, error) {
	if err := r.validate.Var(raw, "required,http_url"); err != nil {
		return nil, fmt.Errorf("%w: %q must be an absolute http or https URL", ErrInvalidURL, raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return u, nil
}

// Fetch performs a single GET of rawURL and returns the body. Non-2xx
// responses and bodies over the size limit are *FetchError.
func (r *Resolver) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("fetch failed",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Warn("fetch returned non-success status",
			slog.String("url", rawURL),
			slog.Int("status_code", resp.StatusCode),
		)
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	if resp.ContentLength > r.maxBytes {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrTooLarge, resp.ContentLength, r.maxBytes)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	if int64(len(data)) > r.maxBytes {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("%w: exceeds limit of %d bytes", ErrTooLarge, r.maxBytes)}
	}

	r.logger.Debug("fetched dataset",
		slog.String("url", rawURL),
		slog.Int("bytes", len(data)),
		slog.Duration("duration", time.Since(start)),
	)
	return data, nil
}
