package brain

import (
	"errors"
	"strings"
)

// Sentinel errors for model service failures. Adapters wrap these so
// callers can discriminate without inspecting vendor error text.
var (
	// ErrRateLimited indicates a quota or rate limit rejection.
	ErrRateLimited = errors.New("model service rate limited")

	// ErrAuthentication indicates a credential or configuration problem.
	ErrAuthentication = errors.New("model service authentication failed")

	// ErrUnavailable indicates the service is unreachable or erroring.
	ErrUnavailable = errors.New("model service unavailable")
)

// ErrorKind classifies a model service failure for the transport layer.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindRateLimited
	KindAuthentication
)

// Classify maps an error to an ErrorKind. Typed sentinels win; for
// untyped errors the substring heuristic inherited from the original
// service is kept: "quota"/"rate" mean rate limiting, "auth"/"api"
// mean a configuration problem.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindInternal
	}

	switch {
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrAuthentication):
		return KindAuthentication
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "quota") || strings.Contains(msg, "rate") {
		return KindRateLimited
	}
	if strings.Contains(msg, "auth") || strings.Contains(msg, "api") {
		return KindAuthentication
	}

	return KindInternal
}
