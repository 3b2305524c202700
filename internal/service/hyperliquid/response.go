package hyperliquid

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"HyperTrade/internal/domain/models"
)

type exchangeResponse struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

type orderResponse struct {
	Type string `json:"type"`
	Data struct {
		Statuses []orderStatus `json:"statuses"`
	} `json:"data"`
}

type orderStatus struct {
	Resting *struct {
		Oid int64 `json:"oid"`
	} `json:"resting,omitempty"`
	Filled *struct {
		TotalSz string `json:"totalSz"`
		AvgPx   string `json:"avgPx"`
		Oid     int64  `json:"oid"`
	} `json:"filled,omitempty"`
	Error *string `json:"error,omitempty"`
}

// transientMarkers are substrings of "err" responses worth retrying.
var transientMarkers = []string{
	"rate limit",
	"too many requests",
	"timeout",
	"timed out",
	"temporarily",
	"try again",
}

// errorResponse turns a non-ok exchange response into a RemoteError.
func errorResponse(resp exchangeResponse) error {
	var msg string
	if err := json.Unmarshal(resp.Response, &msg); err != nil {
		msg = string(resp.Response)
	}
	lower := strings.ToLower(msg)
	for _, m := range transientMarkers {
		if strings.Contains(lower, m) {
			return &models.RemoteError{Kind: models.RemoteTransient, Message: msg}
		}
	}
	return &models.RemoteError{Kind: models.RemoteRejected, Message: msg}
}

// parseOrderAck reads the single order status of an order response.
func parseOrderAck(resp exchangeResponse) (models.ExchangeAck, error) {
	if resp.Status != "ok" {
		return models.ExchangeAck{}, errorResponse(resp)
	}

	var body orderResponse
	if err := json.Unmarshal(resp.Response, &body); err != nil {
		return models.ExchangeAck{}, &models.RemoteError{Kind: models.RemoteUnknown, Message: "malformed order response", Err: err}
	}
	if len(body.Data.Statuses) == 0 {
		return models.ExchangeAck{}, &models.RemoteError{Kind: models.RemoteUnknown, Message: "order response without status"}
	}

	st := body.Data.Statuses[0]
	switch {
	case st.Error != nil:
		return models.ExchangeAck{}, &models.RemoteError{Kind: models.RemoteRejected, Message: *st.Error}
	case st.Filled != nil:
		size, err := decimal.NewFromString(st.Filled.TotalSz)
		if err != nil {
			return models.ExchangeAck{}, &models.RemoteError{Kind: models.RemoteUnknown, Message: "bad fill size", Err: err}
		}
		px, err := decimal.NewFromString(st.Filled.AvgPx)
		if err != nil {
			return models.ExchangeAck{}, &models.RemoteError{Kind: models.RemoteUnknown, Message: "bad fill price", Err: err}
		}
		return models.ExchangeAck{
			OrderID:    strconv.FormatInt(st.Filled.Oid, 10),
			FillPrice:  decimal.NewNullDecimal(px),
			FilledSize: decimal.NewNullDecimal(size),
		}, nil
	case st.Resting != nil:
		return models.ExchangeAck{OrderID: strconv.FormatInt(st.Resting.Oid, 10)}, nil
	}
	return models.ExchangeAck{}, &models.RemoteError{Kind: models.RemoteUnknown, Message: fmt.Sprintf("unrecognized order status %s", resp.Response)}
}
