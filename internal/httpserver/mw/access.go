package mw

import (
	"net/http"
	"strings"

	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/respond"
	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
	"github.com/Gundoganfa/SomeNiceLinks/internal/utils"
)

// AccessRules restrict who may reach the operator endpoints.
type AccessRules struct {
	// CIDRs lists client IPs or networks. Empty allows any client.
	CIDRs []string
	// Hosts lists accepted Host headers, "*.example.com" matches subdomains.
	// Empty accepts any host.
	Hosts []string
	// TrustProxy reads the client IP from X-Forwarded-For.
	TrustProxy bool
}

// Restrict rejects requests from clients outside rules.CIDRs or addressed
// to a host outside rules.Hosts with 403.
func Restrict(rules AccessRules, log logger.Logger) func(http.Handler) http.Handler {
	ips := utils.NewIPMatcher(rules.CIDRs)
	hosts := normalizeHosts(rules.Hosts)
	if ips.IsEmpty() && len(hosts) == 0 {
		log.Debug("access restriction disabled")
		return func(next http.Handler) http.Handler { return next }
	}
	log.Debug("access restriction enabled",
		logger.Int("cidrs", len(rules.CIDRs)),
		logger.Int("hosts", len(hosts)),
		logger.Bool("trust_proxy", rules.TrustProxy))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, rules.TrustProxy)
			if !ips.IsEmpty() && !ips.Allow(ip) {
				log.Debug("rejected client", logger.String("ip", ip), logger.String("path", r.URL.Path))
				respond.Error(w, http.StatusForbidden, "forbidden")
				return
			}

			host := utils.ParseHostNoPort(r.Host)
			if len(hosts) > 0 && !anyHostMatches(host, hosts) {
				log.Debug("rejected host", logger.String("host", host), logger.String("path", r.URL.Path))
				respond.Error(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func normalizeHosts(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			out = append(out, h)
		}
	}
	return out
}

func anyHostMatches(host string, patterns []string) bool {
	host = strings.ToLower(host)
	for _, p := range patterns {
		if hostMatches(host, p) {
			return true
		}
	}
	return false
}

// hostMatches compares lowercased host and pattern. "*.example.com" matches
// any subdomain but not example.com itself.
func hostMatches(host, pattern string) bool {
	if suffix, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(suffix, ".") {
		return strings.HasSuffix(host, suffix) && len(host) > len(suffix)
	}
	return host == pattern
}
