package hyperliquid

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"HyperTrade/internal/domain/models"
	"HyperTrade/internal/service/cache"
)

// infoClient answers reference data queries, caching meta and mids.
type infoClient struct {
	tr      transport
	meta    *cache.TTLCache[metaResponse]
	mids    *cache.TTLCache[map[string]string]
	metaTTL time.Duration
	midsTTL time.Duration
}

func newInfoClient(tr transport, metaTTL, midsTTL time.Duration) *infoClient {
	return &infoClient{
		tr:      tr,
		meta:    cache.NewTTLCache[metaResponse](),
		mids:    cache.NewTTLCache[map[string]string](),
		metaTTL: metaTTL,
		midsTTL: midsTTL,
	}
}

// asset resolves coin to its perpetual index and size precision.
func (i *infoClient) asset(ctx context.Context, coin string) (int, assetMeta, error) {
	meta, err := i.meta.GetOrLoad("meta", i.metaTTL, func() (metaResponse, error) {
		var m metaResponse
		err := i.tr.Info(ctx, infoRequest{Type: "meta"}, &m)
		return m, err
	})
	if err != nil {
		return 0, assetMeta{}, fmt.Errorf("load meta: %w", err)
	}
	for idx, a := range meta.Universe {
		if strings.EqualFold(a.Name, coin) {
			return idx, a, nil
		}
	}
	return 0, assetMeta{}, &models.RemoteError{Kind: models.RemoteRejected, Message: fmt.Sprintf("unknown asset %s", coin)}
}

// mid returns the current mid price of coin, or false when none is quoted.
func (i *infoClient) mid(ctx context.Context, coin string) (decimal.Decimal, bool, error) {
	mids, err := i.mids.GetOrLoad("allMids", i.midsTTL, func() (map[string]string, error) {
		m := map[string]string{}
		err := i.tr.Info(ctx, infoRequest{Type: "allMids"}, &m)
		return m, err
	})
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("load mids: %w", err)
	}
	raw, ok := mids[strings.ToUpper(coin)]
	if !ok {
		return decimal.Zero, false, nil
	}
	px, err := decimal.NewFromString(raw)
	if err != nil || !px.IsPositive() {
		return decimal.Zero, false, nil
	}
	return px, true, nil
}
