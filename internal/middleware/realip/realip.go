// Package realip provides middleware for extracting the real client IP
// from X-Forwarded-For headers when behind a trusted proxy.
package realip

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// ClientIPKey is the context key for the real client IP
const ClientIPKey contextKey = "client_ip"

// Config holds the configuration for the real IP middleware
type Config struct {
	// TrustProxy enables X-Forwarded-For header parsing
	TrustProxy bool
	// TrustedProxies is a list of CIDR ranges for trusted proxies
	TrustedProxies []string
}

// Middleware returns an HTTP middleware that extracts the real client IP
// and stores it in the request context.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	var trustedNets []*net.IPNet
	if cfg.TrustProxy {
		for _, cidr := range cfg.TrustedProxies {
			if _, network, err := net.ParseCIDR(cidr); err == nil {
				trustedNets = append(trustedNets, network)
			}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := extractClientIP(r, cfg.TrustProxy, trustedNets)
			ctx := context.WithValue(r.Context(), ClientIPKey, clientIP)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientIP returns the client IP stored by the middleware, falling
// back to the request's RemoteAddr.
func GetClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(ClientIPKey).(string); ok && ip != "" {
		return ip
	}
	return stripPort(r.RemoteAddr)
}

func extractClientIP(r *http.Request, trustProxy bool, trustedNets []*net.IPNet) string {
	remoteIP := stripPort(r.RemoteAddr)

	if !trustProxy || !isTrusted(remoteIP, trustedNets) {
		return remoteIP
	}

	// X-Forwarded-For: client, proxy1, proxy2, ... Walk right to left
	// past trusted hops to the first address we did not add ourselves.
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
		return remoteIP
	}

	hops := strings.Split(xff, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		ip := strings.TrimSpace(hops[i])
		if ip == "" {
			continue
		}
		if !isTrusted(ip, trustedNets) {
			return ip
		}
	}
	return strings.TrimSpace(hops[0])
}

func isTrusted(ip string, nets []*net.IPNet) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

func stripPort(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
