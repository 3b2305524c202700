// Package guard holds the transport and authentication checks applied to
// every webhook request before its content is trusted.
package guard

import (
	"crypto/subtle"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"HyperTrade/internal/domain/models"
)

const mediaTypeJSON = "application/json"

type Config struct {
	MaxPayloadBytes     int64
	IPAllowlistEnabled  bool
	AllowedIPs          []string // addresses or CIDR prefixes
	TrustForwardedFor   bool
	TrustedHostsEnabled bool
	TrustedHosts        []string // exact hosts, "*" or "*.suffix"
	Secret              string
}

// Guard is immutable after New and safe for concurrent use.
type Guard struct {
	cfg      Config
	prefixes []netip.Prefix
	secret   []byte
}

func New(cfg Config) (*Guard, error) {
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = 64 << 10
	}
	g := &Guard{cfg: cfg}
	for _, entry := range cfg.AllowedIPs {
		p, err := parsePrefix(entry)
		if err != nil {
			return nil, fmt.Errorf("allowed ip %q: %w", entry, err)
		}
		g.prefixes = append(g.prefixes, p)
	}
	if cfg.Secret != "" {
		g.secret = []byte(cfg.Secret)
	}
	return g, nil
}

func parsePrefix(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		return netip.ParsePrefix(s)
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()), nil
}

// SecretConfigured reports whether Authorize checks anything.
func (g *Guard) SecretConfigured() bool {
	return len(g.secret) > 0
}

// CheckHost enforces the trusted-hosts list against the Host header.
func (g *Guard) CheckHost(host string) error {
	if !g.cfg.TrustedHostsEnabled {
		return nil
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))
	for _, pattern := range g.cfg.TrustedHosts {
		pattern = strings.ToLower(pattern)
		switch {
		case pattern == "*", pattern == host:
			return nil
		case strings.HasPrefix(pattern, "*.") && strings.HasSuffix(host, pattern[1:]):
			return nil
		}
	}
	return models.TransportError(models.CodeInvalidHost, "invalid host header")
}

// CheckContentType requires application/json; parameters such as charset
// are allowed.
func (g *Guard) CheckContentType(contentType string) error {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || mt != mediaTypeJSON {
		return models.TransportError(models.CodeUnsupportedMediaType, "content type must be application/json")
	}
	return nil
}

// ClientIP resolves the caller address. The left-most X-Forwarded-For entry
// is used only when forwarding headers are trusted.
func (g *Guard) ClientIP(r *http.Request) string {
	if g.cfg.TrustForwardedFor {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first := strings.TrimSpace(strings.Split(xff, ",")[0])
			if first != "" {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Allowed reports whether ip is on the allow-list. It does not look at
// whether the list is enabled.
func (g *Guard) Allowed(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range g.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// RateLimitExempt reports whether ip skips the rate limiter: only sources
// on an enabled allow-list do.
func (g *Guard) RateLimitExempt(ip string) bool {
	return g.cfg.IPAllowlistEnabled && g.Allowed(ip)
}

// CheckSource enforces the IP allow-list when enabled. A refused source is
// an authentication failure, answered with 403.
func (g *Guard) CheckSource(ip string) error {
	if !g.cfg.IPAllowlistEnabled || g.Allowed(ip) {
		return nil
	}
	return models.AuthError(models.CodeForbidden, "source address not allowed")
}

// ReadBody reads at most the configured ceiling. Larger bodies are refused
// as soon as the declared length or the bytes read exceed it.
func (g *Guard) ReadBody(r *http.Request) ([]byte, error) {
	limit := g.cfg.MaxPayloadBytes
	if r.ContentLength > limit {
		return nil, tooLarge(limit)
	}
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, &models.RelayError{Kind: models.KindTransport, Code: models.CodeInvalidJSON, Reason: "could not read body", Err: err}
	}
	if int64(len(body)) > limit {
		return nil, tooLarge(limit)
	}
	return body, nil
}

func tooLarge(limit int64) error {
	return models.TransportError(models.CodePayloadTooLarge, fmt.Sprintf("payload exceeds %d bytes", limit))
}

// Authorize compares the alert secret in constant time. With no configured
// secret every alert passes.
func (g *Guard) Authorize(sig models.Signal) error {
	if !g.SecretConfigured() {
		return nil
	}
	if !sig.HasSecret || subtle.ConstantTimeCompare([]byte(sig.Secret), g.secret) != 1 {
		return models.AuthError(models.CodeUnauthorized, "invalid secret")
	}
	return nil
}

// AuthorizeToken checks an admin bearer token against the same secret.
// Unlike Authorize it fails when no secret is configured.
func (g *Guard) AuthorizeToken(token string) error {
	if !g.SecretConfigured() {
		return models.AuthError(models.CodeForbidden, "admin API disabled: no webhook secret configured")
	}
	if subtle.ConstantTimeCompare([]byte(token), g.secret) != 1 {
		return models.AuthError(models.CodeUnauthorized, "invalid token")
	}
	return nil
}
