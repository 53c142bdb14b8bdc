// Package provider defines the failure taxonomy shared by the upstream fetch
// clients. A fetch either yields a parsed result or one of these errors; the
// resolvers decide what to do with them.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/litescript/ls-torrent-search/internal/torrent"
)

// Kind classifies a failed request cycle.
type Kind int

const (
	// TransportFailure is a network, connection or timeout error.
	TransportFailure Kind = iota + 1
	// ParseFailure means a response arrived without the expected structure.
	ParseFailure
	// UpstreamFailure is a non-success HTTP status.
	UpstreamFailure
)

func (k Kind) String() string {
	switch k {
	case TransportFailure:
		return "transport"
	case ParseFailure:
		return "parse"
	case UpstreamFailure:
		return "upstream"
	default:
		return "unknown"
	}
}

var (
	ErrTransport = errors.New("transport failure")
	ErrParse     = errors.New("parse failure")
	ErrUpstream  = errors.New("upstream failure")

	// ErrAllProvidersFailed is matched by AllProvidersFailedError.
	ErrAllProvidersFailed = errors.New("all providers failed")
)

// FetchError is a typed failure from one request cycle against one endpoint.
type FetchError struct {
	Kind       Kind
	URL        string
	StatusCode int // set for UpstreamFailure
	Err        error
}

func (e *FetchError) Error() string {
	if e == nil {
		return "fetch error"
	}
	switch {
	case e.Kind == UpstreamFailure && e.Err == nil:
		return fmt.Sprintf("%s: HTTP %d", e.URL, e.StatusCode)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s failure", e.URL, e.Kind)
	default:
		return fmt.Sprintf("%s: %s failure: %v", e.URL, e.Kind, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is maps the kind onto the package sentinels so callers can write
// errors.Is(err, provider.ErrParse).
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == TransportFailure
	case ErrParse:
		return e.Kind == ParseFailure
	case ErrUpstream:
		return e.Kind == UpstreamFailure
	}
	return false
}

// Transport wraps a network error.
func Transport(url string, err error) *FetchError {
	return &FetchError{Kind: TransportFailure, URL: url, Err: err}
}

// Parse reports missing content markers.
func Parse(url, format string, args ...any) *FetchError {
	return &FetchError{Kind: ParseFailure, URL: url, Err: fmt.Errorf(format, args...)}
}

// Upstream reports a non-success status code.
func Upstream(url string, status int) *FetchError {
	return &FetchError{Kind: UpstreamFailure, URL: url, StatusCode: status}
}

// KindOf returns the failure kind of err, or 0 when err is not a FetchError.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// Retryable reports whether another endpoint might succeed where this one
// failed. Cancellation is never retryable.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return KindOf(err) != 0
}

// AllProvidersFailedError is the aggregator's hard failure: zero records and
// at least one provider error.
type AllProvidersFailedError struct {
	Errors []torrent.ProviderError
}

func (e *AllProvidersFailedError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, pe := range e.Errors {
		msgs = append(msgs, pe.String())
	}
	return "all providers failed: " + strings.Join(msgs, "; ")
}

func (e *AllProvidersFailedError) Is(target error) bool {
	return target == ErrAllProvidersFailed
}
