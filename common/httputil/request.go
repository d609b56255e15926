package httputil

import (
	"net"
	"net/http"
	"strings"
)

// Submitter describes where a telemetry submission came from, recorded on
// the stored record when the caller sends no explicit source.
type Submitter struct {
	IP         string
	SourceType string
	UserAgent  string
}

// Source renders the submitter as a record source tag, e.g. "cli:203.0.113.5".
func (s *Submitter) Source() string {
	if s.IP == "" {
		return s.SourceType
	}
	return s.SourceType + ":" + s.IP
}

// NewSubmitter derives the submitter from request headers. The source type
// comes from X-Chaintrace-Source when present, otherwise from the
// User-Agent; unidentified callers count as plain API clients.
func NewSubmitter(r *http.Request) *Submitter {
	s := &Submitter{
		IP:         ClientIP(r),
		UserAgent:  r.Header.Get("User-Agent"),
		SourceType: "api",
	}

	if src := strings.ToLower(r.Header.Get("X-Chaintrace-Source")); src != "" {
		switch src {
		case "cli", "api", "web", "system":
			s.SourceType = src
		}
		return s
	}
	if strings.Contains(strings.ToLower(s.UserAgent), "ctrace") {
		s.SourceType = "cli"
	}
	return s
}

// ClientIP extracts the originating client IP, looking through proxies:
// X-Forwarded-For first (leftmost entry is the client), then X-Real-IP,
// then the connection's remote address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
