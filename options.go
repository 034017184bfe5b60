package pagedecode

import (
	"crypto"
	"crypto/x509"
	"io"
	"log/slog"
	"net/http"

	"github.com/tsawler/pagedecode/core"
	"github.com/tsawler/pagedecode/font"
	"github.com/tsawler/pagedecode/interpreter"
	"github.com/tsawler/pagedecode/objstore"
	"github.com/tsawler/pagedecode/text"
)

// options holds the configuration of a Session.
type options struct {
	password     string
	havePassword bool
	cert         *x509.Certificate
	key          crypto.PrivateKey
	pkcs12       []byte
	pkcs12Pass   string

	mode        interpreter.Mode
	cacheBudget int
	streamCache int64
	limits      core.Limits
	workers     int
	grouping    text.Config
	library     *font.Library
	maxForms    int
	logger      *slog.Logger
	httpClient  *http.Client
	ocrLang     string
}

// defaultOptions returns the configuration used when no option is given.
func defaultOptions() options {
	return options{
		mode:        interpreter.DefaultMode(),
		cacheBudget: objstore.DefaultCacheBudget,
		streamCache: objstore.DefaultStreamCacheSize,
		limits:      core.DefaultLimits(),
		grouping:    text.DefaultConfig(),
		maxForms:    interpreter.MaxFormDepth,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		httpClient:  http.DefaultClient,
	}
}

// Option configures a Session at open time.
type Option func(*options)

// WithPassword supplies the user or owner password of an encrypted
// document. A wrong password fails Open with ErrInvalidCredentials.
func WithPassword(pw string) Option {
	return func(o *options) {
		o.password = pw
		o.havePassword = true
	}
}

// WithCertificate supplies the recipient certificate and private key for a
// document encrypted with the public-key security handler.
func WithCertificate(cert *x509.Certificate, key crypto.PrivateKey) Option {
	return func(o *options) {
		o.cert = cert
		o.key = key
	}
}

// WithPKCS12 supplies the recipient certificate as a PKCS#12 bundle.
func WithPKCS12(data []byte, password string) Option {
	return func(o *options) {
		o.pkcs12 = data
		o.pkcs12Pass = password
	}
}

// WithExtractionMode sets the initial extraction flags.
func WithExtractionMode(m interpreter.ExtractionMode) Option {
	return func(o *options) { o.mode.Extraction = m }
}

// WithRenderMode sets the initial render flags.
func WithRenderMode(m interpreter.RenderMode) Option {
	return func(o *options) { o.mode.Render = m }
}

// WithCacheBudget bounds the number of cached indirect objects.
func WithCacheBudget(entries int) Option {
	return func(o *options) { o.cacheBudget = entries }
}

// WithStreamCacheSize bounds the bytes of cached decoded streams.
func WithStreamCacheSize(bytes int64) Option {
	return func(o *options) { o.streamCache = bytes }
}

// WithLimits sets the parsing and decoding limits.
func WithLimits(l core.Limits) Option {
	return func(o *options) { o.limits = l }
}

// WithWorkers bounds concurrent background decodes.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithGrouping sets the text grouping tolerances.
func WithGrouping(cfg text.Config) Option {
	return func(o *options) { o.grouping = cfg }
}

// WithFontLibrary sets the fonts used to substitute non-embedded fonts.
func WithFontLibrary(l *font.Library) Option {
	return func(o *options) { o.library = l }
}

// WithLogger sets the logger shared by every layer of the session.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxFormDepth bounds form XObject nesting.
func WithMaxFormDepth(depth int) Option {
	return func(o *options) { o.maxForms = depth }
}

// WithHTTPClient sets the client OpenURL downloads with.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithOCR enables recognition of pages that carry no text. lang is a
// Tesseract language list such as "eng" or "eng+deu". Recognition needs a
// build with the ocr tag.
func WithOCR(lang string) Option {
	return func(o *options) { o.ocrLang = lang }
}
