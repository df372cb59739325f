package middleware

import (
	"net"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// ParseTrustedProxies turns IPs and CIDRs into networks. Bad entries are returned
// separately so the caller can log them.
func ParseTrustedProxies(entries []string) (nets []*net.IPNet, bad []string) {
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.Contains(e, "/") {
			if ip := net.ParseIP(e); ip != nil {
				bits := 32
				if ip.To4() == nil {
					bits = 128
				}
				e = ip.String() + "/" + strconv.Itoa(bits)
			}
		}
		_, n, err := net.ParseCIDR(e)
		if err != nil {
			bad = append(bad, e)
			continue
		}
		nets = append(nets, n)
	}
	return nets, bad
}

// RealIP sets the client IP into Gin context (key: "real_ip").
// Forwarding headers (CF-Connecting-IP, X-Forwarded-For, X-Real-IP) are read
// only when the direct peer is one of trusted; otherwise the peer address is used.
func RealIP(trusted ...*net.IPNet) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("real_ip", realIP(c, trusted))
		c.Next()
	}
}

func realIP(c *gin.Context, trusted []*net.IPNet) string {
	peer := parseIP(c.RemoteIP())
	if peer == "" || !inNets(peer, trusted) {
		return peer
	}
	if ip := parseIP(c.GetHeader("CF-Connecting-IP")); ip != "" {
		return ip
	}
	// walk right to left; the first hop not added by our own proxies is the client
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			ip := parseIP(hops[i])
			if ip == "" {
				break
			}
			if !inNets(ip, trusted) || i == 0 {
				return ip
			}
		}
	}
	if ip := parseIP(c.GetHeader("X-Real-IP")); ip != "" {
		return ip
	}
	return peer
}

func inNets(ip string, nets []*net.IPNet) bool {
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

func parseIP(s string) string {
	if ip := net.ParseIP(strings.TrimSpace(s)); ip != nil {
		return ip.String()
	}
	return ""
}
