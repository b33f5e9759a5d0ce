package audit

import (
	"context"
	"net"
	"strings"
	"time"
	"unicode/utf8"
)

const MaxUserAgentLength = 500

const (
	ResourceProject    = "project"
	ResourceTask       = "task"
	ResourceAssignment = "assignment"
	ResourcePayment    = "payment"
	ResourceAccount    = "account"
)

type Entry struct {
	ID           uint64
	ActorID      *string
	Action       Action
	Timestamp    time.Time
	ResourceType string
	ResourceID   string
	Details      map[string]any
	IPAddress    string
	UserAgent    string
	Success      bool
	ErrorMessage string
}

// RequestContext is the transport metadata of the caller.
type RequestContext struct {
	ForwardedFor string
	RemoteAddr   string
	UserAgent    string
}

// ClientIP prefers the first X-Forwarded-For hop and falls back to the
// connection address without its port.
func (r RequestContext) ClientIP() string {
	if first, _, _ := strings.Cut(r.ForwardedFor, ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil {
		return host
	}
	return remote
}

// TruncateUserAgent keeps at most 500 characters.
func TruncateUserAgent(ua string) string {
	if utf8.RuneCountInString(ua) <= MaxUserAgentLength {
		return ua
	}
	runes := []rune(ua)
	return string(runes[:MaxUserAgentLength])
}

type requestKey struct{}

func WithRequest(ctx context.Context, req RequestContext) context.Context {
	return context.WithValue(ctx, requestKey{}, req)
}

func RequestFromContext(ctx context.Context) (RequestContext, bool) {
	if ctx == nil {
		return RequestContext{}, false
	}
	req, ok := ctx.Value(requestKey{}).(RequestContext)
	return req, ok
}

// Filter narrows audit listings; zero fields match everything.
type Filter struct {
	ActorID      string
	Action       Action
	ResourceType string
	ResourceID   string
	Limit        int
}

// Record asks for one entry to be appended. Request overrides the request
// metadata carried by the context.
type Record struct {
	Action       Action
	ActorID      string
	ResourceType string
	ResourceID   string
	Details      map[string]any
	Success      bool
	ErrorMessage string
	Request      *RequestContext
}
