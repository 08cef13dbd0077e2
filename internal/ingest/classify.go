// Package ingest is the ingestion engine: outcome classification, the
// per-symbol retry loop, and the bounded-concurrency scheduler.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/agnivesh13/Price-Feed-Parser/internal/fyers"
)

// Kind tags the classified outcome of one history attempt.
type Kind int

const (
	// Success is an HTTP 200 whose body is not an inline error.
	Success Kind = iota
	// InlineAuthError is an HTTP 200 whose body reports an auth or
	// token problem. The provider does this instead of returning 401.
	InlineAuthError
	// InlineError is an HTTP 200 whose body reports any other failure.
	InlineError
	// RateLimited is HTTP 429.
	RateLimited
	// ServerError is any HTTP 5xx.
	ServerError
	// AuthError is HTTP 401 or 403.
	AuthError
	// ClientError is any other HTTP 4xx.
	ClientError
	// Timeout is a request that timed out before producing a response.
	Timeout
	// TransportError is any other failure to produce a response.
	TransportError
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case InlineAuthError:
		return "inline_auth_error"
	case InlineError:
		return "inline_error"
	case RateLimited:
		return "rate_limited"
	case ServerError:
		return "server_error"
	case AuthError:
		return "auth_error"
	case ClientError:
		return "client_error"
	case Timeout:
		return "timeout"
	default:
		return "transport_error"
	}
}

// Outcome is one classified attempt. Ephemeral: produced per attempt,
// consumed by the retry loop, never stored.
type Outcome struct {
	Kind       Kind
	Status     int
	Message    string        // provider inline message, when present
	RetryAfter time.Duration // provider wait hint for 429/5xx, 0 when absent
	Body       []byte        // verbatim payload, set on Success only
}

// envelope is the minimal provider body needed for classification.
type envelope struct {
	S       string `json:"s"`
	Message string `json:"message"`
}

// Classify maps one attempt's transport error or HTTP reply onto an
// Outcome. Pure: no I/O, fully table-testable.
func Classify(reply *fyers.HistoryReply, err error) Outcome {
	if err != nil {
		if isTimeout(err) {
			return Outcome{Kind: Timeout, Message: err.Error()}
		}
		return Outcome{Kind: TransportError, Message: err.Error()}
	}

	switch {
	case reply.Status == http.StatusOK:
		var env envelope
		if jerr := json.Unmarshal(reply.Body, &env); jerr == nil && env.S == "error" {
			if isAuthMessage(env.Message) {
				return Outcome{Kind: InlineAuthError, Status: reply.Status, Message: env.Message}
			}
			return Outcome{Kind: InlineError, Status: reply.Status, Message: env.Message}
		}
		return Outcome{Kind: Success, Status: reply.Status, Body: reply.Body}

	case reply.Status == http.StatusTooManyRequests:
		return Outcome{Kind: RateLimited, Status: reply.Status, RetryAfter: reply.RetryAfter}

	case reply.Status >= 500:
		return Outcome{Kind: ServerError, Status: reply.Status, RetryAfter: reply.RetryAfter}

	case reply.Status == http.StatusUnauthorized || reply.Status == http.StatusForbidden:
		return Outcome{Kind: AuthError, Status: reply.Status}

	default:
		return Outcome{Kind: ClientError, Status: reply.Status}
	}
}

// action is the retry decision an outcome maps onto.
type action int

const (
	actSucceed action = iota
	actRetry          // transient: back off, then try again
	actRefresh        // refresh credentials, then retry or abort
)

// decide maps an outcome kind onto the attempt loop's next move.
// Everything not terminal and not auth-shaped is treated as transient.
func decide(k Kind) action {
	switch k {
	case Success:
		return actSucceed
	case InlineAuthError, AuthError:
		return actRefresh
	default:
		return actRetry
	}
}

// isAuthMessage reports whether a provider inline error hints at a
// stale or invalid token.
func isAuthMessage(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "auth") || strings.Contains(m, "token")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Backoff returns the delay before retrying after the given 1-based
// attempt: geometric growth from base plus additive uniform jitter.
// Growth is uncapped; the attempt cap bounds it in practice.
func Backoff(base time.Duration, attempt int, jitterMax time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base * time.Duration(1<<(attempt-1))
	if jitterMax > 0 {
		d += time.Duration(rand.Int63n(int64(jitterMax)))
	}
	return d
}

// describe renders an outcome for failure notes and logs.
func describe(o Outcome) string {
	switch o.Kind {
	case Timeout:
		return "request timed out"
	case TransportError:
		return fmt.Sprintf("transport error: %s", o.Message)
	case InlineError, InlineAuthError:
		return fmt.Sprintf("provider error: %s", o.Message)
	default:
		return fmt.Sprintf("http %d", o.Status)
	}
}
