package signal

import (
	"errors"
	"testing"
	"time"

	"HyperTrade/internal/domain/models"
	"HyperTrade/internal/testutil"
	"HyperTrade/pkg/util"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSample(t *testing.T) {
	s, err := Parse(testutil.JSON(testutil.Alert()))
	require.NoError(t, err)

	assert.Equal(t, "SOLUSDT", s.Ticker)
	assert.Equal(t, "trend-follow", s.Strategy)
	assert.Equal(t, models.ActionBuy, s.Action)
	assert.True(t, s.Contracts.Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, "143.25", s.Price.String())
	assert.Equal(t, time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC), s.Time.UTC())
	assert.Equal(t, 250*time.Millisecond, s.TimeNow.Sub(s.Time)-time.Second)
	assert.Equal(t, models.PositionLong, s.MarketPosition)
	assert.Equal(t, models.PositionFlat, s.PrevMarketPosition)
	assert.True(t, s.Exposure().Equal(decimal.RequireFromString("1.5")))
	assert.True(t, s.PrevExposure().IsZero())
	assert.False(t, s.HasSecret)
	assert.Equal(t, "breakout", s.Comment)
	assert.False(t, s.Stale())
}

func TestParseDecimalRoundTrip(t *testing.T) {
	for _, lit := range []string{"0.1", "100", "1.50", "0.000001", "98765432109876543210.0123456789"} {
		a := testutil.Set(testutil.Alert(), "order.contracts", lit)
		s, err := Parse(testutil.JSON(a))
		require.NoError(t, err, lit)

		want, err := util.NormalizeDecimal(lit)
		require.NoError(t, err)
		assert.Equal(t, want, s.Contracts.String(), lit)
	}
}

func TestParseRequiresZone(t *testing.T) {
	a := testutil.Set(testutil.Alert(), "general.time", "2025-01-15T10:00:00")
	_, err := Parse(testutil.JSON(a))

	var re *models.RelayError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, models.KindParse, re.Kind)
	assert.Equal(t, "general.time", re.Field)
	assert.Equal(t, "2025-01-15T10:00:00", re.Value)
	assert.True(t, errors.Is(err, util.ErrMissingZone))
}

func TestParseFailsFastOnFirstField(t *testing.T) {
	a := testutil.Alert()
	testutil.Set(a, "symbol_data.open", "abc")
	testutil.Set(a, "order.price", "xyz")

	_, err := Parse(testutil.JSON(a))
	var re *models.RelayError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "symbol_data.open", re.Field)
}

func TestParseSecretPresence(t *testing.T) {
	a := testutil.Set(testutil.Alert(), "general.secret", "")
	s, err := Parse(testutil.JSON(a))
	require.NoError(t, err)
	assert.True(t, s.HasSecret)
	assert.Empty(t, s.Secret)
}

func TestParseMissingSection(t *testing.T) {
	a := testutil.Delete(testutil.Alert(), "market")
	_, err := Parse(testutil.JSON(a))
	var re *models.RelayError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "market", re.Field)
}

func TestSignedExposure(t *testing.T) {
	a := testutil.Alert()
	testutil.Set(a, "market.position", "short")
	testutil.Set(a, "market.position_size", "2")
	testutil.Set(a, "market.previous_position", "long")
	testutil.Set(a, "market.previous_position_size", "-3")

	s, err := Parse(testutil.JSON(a))
	require.NoError(t, err)
	assert.Equal(t, "-2", s.Exposure().String())
	assert.Equal(t, "3", s.PrevExposure().String())
}
