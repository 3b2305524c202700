package guard

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"HyperTrade/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func code(t *testing.T, err error) string {
	t.Helper()
	var re *models.RelayError
	require.True(t, errors.As(err, &re), "expected RelayError, got %v", err)
	return re.Code
}

func TestCheckContentType(t *testing.T) {
	g, err := New(Config{})
	require.NoError(t, err)

	assert.NoError(t, g.CheckContentType("application/json"))
	assert.NoError(t, g.CheckContentType("application/json; charset=utf-8"))
	for _, ct := range []string{"", "text/plain", "application/x-www-form-urlencoded", "application/jsonp"} {
		err := g.CheckContentType(ct)
		require.Error(t, err, ct)
		assert.Equal(t, models.CodeUnsupportedMediaType, code(t, err))
		assert.Equal(t, models.KindTransport, models.KindOf(err))
	}
}

func TestReadBodyCeiling(t *testing.T) {
	g, err := New(Config{MaxPayloadBytes: 16})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"a":"b"}`))
	body, err := g.ReadBody(req)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"b"}`, string(body))

	req = httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(strings.Repeat("x", 17)))
	_, err = g.ReadBody(req)
	assert.Equal(t, models.CodePayloadTooLarge, code(t, err))

	// Declared length is checked before reading.
	req = httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{}"))
	req.ContentLength = 1 << 20
	_, err = g.ReadBody(req)
	assert.Equal(t, models.CodePayloadTooLarge, code(t, err))

	// Unknown length streams are cut at the ceiling.
	req = httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(strings.Repeat("y", 100)))
	req.ContentLength = -1
	_, err = g.ReadBody(req)
	assert.Equal(t, models.CodePayloadTooLarge, code(t, err))
}

func TestClientIPAndAllowList(t *testing.T) {
	g, err := New(Config{
		IPAllowlistEnabled: true,
		AllowedIPs:         []string{"52.89.214.238", "10.1.0.0/16"},
		TrustForwardedFor:  true,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	req.Header.Set("X-Forwarded-For", "52.89.214.238, 10.0.0.1")
	ip := g.ClientIP(req)
	assert.Equal(t, "52.89.214.238", ip)
	assert.NoError(t, g.CheckSource(ip))

	assert.NoError(t, g.CheckSource("10.1.2.3"))
	assert.NoError(t, g.CheckSource("::ffff:10.1.2.3"))

	err = g.CheckSource("203.0.113.9")
	assert.Equal(t, models.CodeForbidden, code(t, err))
	assert.Equal(t, models.KindAuth, models.KindOf(err))
	assert.Error(t, g.CheckSource("not-an-ip"))

	untrusting, err := New(Config{TrustForwardedFor: false})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", untrusting.ClientIP(req))
	assert.NoError(t, untrusting.CheckSource("203.0.113.9"), "allow-list disabled")
}

func TestRateLimitExemptNeedsEnabledAllowList(t *testing.T) {
	enabled, err := New(Config{IPAllowlistEnabled: true, AllowedIPs: []string{"52.89.214.238"}})
	require.NoError(t, err)
	assert.True(t, enabled.RateLimitExempt("52.89.214.238"))
	assert.False(t, enabled.RateLimitExempt("203.0.113.9"))

	disabled, err := New(Config{AllowedIPs: []string{"52.89.214.238"}})
	require.NoError(t, err)
	assert.False(t, disabled.RateLimitExempt("52.89.214.238"))
}

func TestNewRejectsBadAllowList(t *testing.T) {
	_, err := New(Config{AllowedIPs: []string{"not-an-ip"}})
	assert.Error(t, err)
}

func TestCheckHost(t *testing.T) {
	g, err := New(Config{TrustedHostsEnabled: true, TrustedHosts: []string{"relay.example.com", "*.internal"}})
	require.NoError(t, err)

	assert.NoError(t, g.CheckHost("relay.example.com"))
	assert.NoError(t, g.CheckHost("relay.example.com:6487"))
	assert.NoError(t, g.CheckHost("api.internal"))
	assert.Equal(t, models.CodeInvalidHost, code(t, g.CheckHost("evil.example.com")))

	open, err := New(Config{})
	require.NoError(t, err)
	assert.NoError(t, open.CheckHost("anything"))
}

func TestAuthorize(t *testing.T) {
	g, err := New(Config{Secret: "s3cret"})
	require.NoError(t, err)

	assert.NoError(t, g.Authorize(models.Signal{Secret: "s3cret", HasSecret: true}))

	for _, sig := range []models.Signal{
		{Secret: "wrong", HasSecret: true},
		{Secret: "", HasSecret: true},
		{},
	} {
		err := g.Authorize(sig)
		assert.Equal(t, models.KindAuth, models.KindOf(err))
	}

	open, err := New(Config{})
	require.NoError(t, err)
	assert.NoError(t, open.Authorize(models.Signal{}), "no secret configured skips the check")
	assert.NoError(t, open.Authorize(models.Signal{Secret: "anything", HasSecret: true}))
}

func TestAuthorizeToken(t *testing.T) {
	open, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, models.CodeForbidden, code(t, open.AuthorizeToken("x")))

	g, err := New(Config{Secret: "s3cret"})
	require.NoError(t, err)
	assert.NoError(t, g.AuthorizeToken("s3cret"))
	assert.Equal(t, models.CodeUnauthorized, code(t, g.AuthorizeToken("nope")))
}
