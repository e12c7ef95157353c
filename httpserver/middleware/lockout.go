/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/acronis/go-throttle/log"
	"github.com/acronis/go-throttle/restapi"
	"github.com/acronis/go-throttle/throttle"
)

// LockoutLogFieldKey is the name of the logged field that contains a key of the throttled requests.
const LockoutLogFieldKey = "lockout_key"

const headerRetryAfter = "Retry-After"

// LockoutParams contains data that relates to the rejected request.
type LockoutParams struct {
	ErrDomain  string
	Key        string
	RetryAfter time.Duration
}

// LockoutGetKeyFunc is a function that is called for getting a key of the request.
// If bypass is true, the request is served without recording an attempt.
type LockoutGetKeyFunc func(r *http.Request) (key string, bypass bool, err error)

// LockoutGetRetryAfterFunc returns a value for the Retry-After response header.
// remaining is the time left until the key's lockout expires.
type LockoutGetRetryAfterFunc func(r *http.Request, remaining time.Duration) time.Duration

// LockoutOnRejectFunc is a function that is called for rejecting the throttled HTTP request.
type LockoutOnRejectFunc func(
	rw http.ResponseWriter, r *http.Request, params LockoutParams, next http.Handler, logger log.FieldLogger)

// LockoutOnErrorFunc is a function that is called when the key of the request cannot be determined.
type LockoutOnErrorFunc func(
	rw http.ResponseWriter, r *http.Request, params LockoutParams, err error, next http.Handler, logger log.FieldLogger)

// LockoutOpts represents an options for the Lockout middleware.
type LockoutOpts struct {
	// GetKey returns a key of the request. The remote IP address is used if nil.
	GetKey LockoutGetKeyFunc

	// RetryAfter returns a value for the Retry-After header. The remaining lockout time is used if nil.
	RetryAfter LockoutGetRetryAfterFunc

	// DryRun enables the mode in which throttled requests are only logged and served as usual.
	DryRun bool

	OnReject         LockoutOnRejectFunc
	OnRejectInDryRun LockoutOnRejectFunc
	OnError          LockoutOnErrorFunc
}

type lockoutHandler struct {
	next          http.Handler
	counter       *throttle.SyncKeyedCounter[string]
	errDomain     string
	getKey        LockoutGetKeyFunc
	getRetryAfter LockoutGetRetryAfterFunc
	onReject      LockoutOnRejectFunc
	onError       LockoutOnErrorFunc
}

// Lockout is a middleware that records every request as an attempt of its key (the remote IP address by default)
// and rejects requests of keys that are locked out.
// Rejected requests get 429 HTTP status code, Retry-After header and the tooManyAttempts error in body.
func Lockout(counter *throttle.SyncKeyedCounter[string], errDomain string) func(next http.Handler) http.Handler {
	return LockoutWithOpts(counter, errDomain, LockoutOpts{})
}

// LockoutWithOpts is a more configurable version of Lockout middleware.
func LockoutWithOpts(
	counter *throttle.SyncKeyedCounter[string], errDomain string, opts LockoutOpts,
) func(next http.Handler) http.Handler {
	getKey := opts.GetKey
	if getKey == nil {
		getKey = GetLockoutKeyByRemoteAddr
	}
	getRetryAfter := opts.RetryAfter
	if getRetryAfter == nil {
		getRetryAfter = GetRetryAfterRemainingLockout
	}
	return func(next http.Handler) http.Handler {
		return &lockoutHandler{
			next:          next,
			counter:       counter,
			errDomain:     errDomain,
			getKey:        getKey,
			getRetryAfter: getRetryAfter,
			onReject:      makeLockoutOnRejectFunc(opts),
			onError:       makeLockoutOnErrorFunc(opts),
		}
	}
}

func (h *lockoutHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	params := LockoutParams{ErrDomain: h.errDomain}
	key, bypass, err := h.getKey(r)
	if err != nil {
		h.onError(rw, r, params, err, h.next, GetLoggerFromContext(r.Context()))
		return
	}
	if bypass {
		h.next.ServeHTTP(rw, r)
		return
	}
	params.Key = key

	if !h.counter.IsThrottled(key) {
		h.next.ServeHTTP(rw, r)
		return
	}

	remaining := h.counter.RetryAfter(key)
	if remaining == 0 {
		remaining = h.counter.Lockout()
	}
	if remaining > 0 {
		params.RetryAfter = h.getRetryAfter(r, remaining)
	}
	h.onReject(rw, r, params, h.next, GetLoggerFromContext(r.Context()))
}

// GetLockoutKeyByRemoteAddr returns the IP address of the client as a key.
func GetLockoutKeyByRemoteAddr(r *http.Request) (key string, bypass bool, err error) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr, false, nil
	}
	return host, false, nil
}

// GetLockoutKeyByFormValue returns a LockoutGetKeyFunc that uses the value of the passed form field
// (e.g., login or email) as a key. If the field is empty, the IP address of the client is used.
func GetLockoutKeyByFormValue(field string) LockoutGetKeyFunc {
	return func(r *http.Request) (key string, bypass bool, err error) {
		if err = r.ParseForm(); err != nil {
			return "", false, err
		}
		if v := strings.TrimSpace(r.Form.Get(field)); v != "" {
			return strings.ToLower(v), false, nil
		}
		return GetLockoutKeyByRemoteAddr(r)
	}
}

// GetRetryAfterRemainingLockout returns the remaining lockout time as is.
func GetRetryAfterRemainingLockout(_ *http.Request, remaining time.Duration) time.Duration {
	return remaining
}

// DefaultLockoutOnReject responds with 429 HTTP status code and the tooManyAttempts error.
func DefaultLockoutOnReject(
	rw http.ResponseWriter, r *http.Request, params LockoutParams, next http.Handler, logger log.FieldLogger,
) {
	if logger != nil {
		logger = logger.With(log.String(LockoutLogFieldKey, params.Key))
	}
	if params.RetryAfter > 0 {
		rw.Header().Set(headerRetryAfter, strconv.Itoa(int(math.Ceil(params.RetryAfter.Seconds()))))
	}
	restapi.RespondError(rw, http.StatusTooManyRequests, restapi.NewTooManyAttemptsError(params.ErrDomain), logger)
}

// DefaultLockoutOnRejectInDryRun logs the throttled request and serves it.
func DefaultLockoutOnRejectInDryRun(
	rw http.ResponseWriter, r *http.Request, params LockoutParams, next http.Handler, logger log.FieldLogger,
) {
	if logger != nil {
		logger.Warn("too many attempts, serving will be continued because of dry run mode",
			log.String(LockoutLogFieldKey, params.Key))
	}
	next.ServeHTTP(rw, r)
}

// DefaultLockoutOnError logs the error and responds with 500 HTTP status code.
func DefaultLockoutOnError(
	rw http.ResponseWriter, r *http.Request, params LockoutParams, err error, next http.Handler, logger log.FieldLogger,
) {
	if logger != nil {
		logger.Error("get lockout key", log.Error(err))
	}
	restapi.RespondInternalError(rw, params.ErrDomain, logger)
}

func makeLockoutOnRejectFunc(opts LockoutOpts) LockoutOnRejectFunc {
	if opts.DryRun {
		if opts.OnRejectInDryRun != nil {
			return opts.OnRejectInDryRun
		}
		return DefaultLockoutOnRejectInDryRun
	}
	if opts.OnReject != nil {
		return opts.OnReject
	}
	return DefaultLockoutOnReject
}

func makeLockoutOnErrorFunc(opts LockoutOpts) LockoutOnErrorFunc {
	if opts.OnError != nil {
		return opts.OnError
	}
	return DefaultLockoutOnError
}
