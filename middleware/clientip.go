package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/authcore"
)

// ClientIP attaches the caller address to the request context for the
// engine's per-IP rate limits. With trustForwarded set, the first
// X-Forwarded-For hop wins; only enable it behind a proxy that overwrites
// the header.
func ClientIP(trustForwarded bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := remoteIP(r, trustForwarded)
			if ip != "" {
				r = r.WithContext(authcore.WithClientIP(r.Context(), ip))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func remoteIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return ""
}
