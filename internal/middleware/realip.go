package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RealIP sets r.RemoteAddr to the client address reported by a trusted
// proxy. Forwarding headers from any other peer are ignored, so a client
// cannot pick its own address. With no trusted proxies it does nothing.
func RealIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if addr, ok := forwardedClient(r, trusted); ok {
				r = r.WithContext(r.Context())
				r.RemoteAddr = addr.String()
			}
			next.ServeHTTP(w, r)
		})
	}
}

// forwardedClient walks X-Forwarded-For from the right and returns the first
// hop that is not a trusted proxy. X-Real-IP is used only when no
// X-Forwarded-For was sent.
func forwardedClient(r *http.Request, trusted []netip.Prefix) (netip.Addr, bool) {
	peer, err := netip.ParseAddr(clientIP(r))
	if err != nil || !isTrusted(peer.Unmap(), trusted) {
		return netip.Addr{}, false
	}

	var hops []string
	for _, header := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(header, ",")...)
	}
	if len(hops) == 0 {
		addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP")))
		return addr.Unmap(), err == nil
	}

	var addr netip.Addr
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err = netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			// A garbled chain is not trusted past this point
			return netip.Addr{}, false
		}
		addr = addr.Unmap()
		if !isTrusted(addr, trusted) {
			return addr, true
		}
	}
	// Every hop is a proxy; the left-most one is the closest to the client
	return addr, true
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP returns the host part of r.RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
