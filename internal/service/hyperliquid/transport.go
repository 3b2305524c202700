package hyperliquid

import (
	"context"
	"errors"
	"time"

	"HyperTrade/internal/domain/models"
	"HyperTrade/internal/service/metrics"
	pkghttp "HyperTrade/pkg/http"
)

// transport carries info queries and signed actions to the exchange.
type transport interface {
	Info(ctx context.Context, req any, dest any) error
	Exchange(ctx context.Context, req exchangeRequest) (exchangeResponse, error)
	Name() string
	Close() error
}

type restTransport struct {
	client  *pkghttp.Client
	baseURL string
}

func newRESTTransport(baseURL string, timeout time.Duration) *restTransport {
	return &restTransport{
		client:  pkghttp.NewClient(pkghttp.WithTimeout(timeout)),
		baseURL: baseURL,
	}
}

func (t *restTransport) Name() string { return TransportREST }

func (t *restTransport) Info(ctx context.Context, req any, dest any) error {
	return t.post(ctx, "/info", req, dest)
}

func (t *restTransport) Exchange(ctx context.Context, req exchangeRequest) (exchangeResponse, error) {
	var resp exchangeResponse
	err := t.post(ctx, "/exchange", req, &resp)
	return resp, err
}

func (t *restTransport) post(ctx context.Context, path string, body, dest any) error {
	start := time.Now()
	err := t.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodPost,
		URL:    t.baseURL + path,
		Body:   body,
	}, dest)
	metrics.ObserveRequest(path, TransportREST, start)
	if err != nil {
		err = classifyTransportError(err)
		metrics.ObserveError(path, kindLabel(err))
	}
	return err
}

func (t *restTransport) Close() error { return nil }

// classifyTransportError wraps HTTP level failures. 429 and 5xx are
// transient, other statuses are unknown, and anything that never got a
// status (dial, reset, deadline) is transient.
func classifyTransportError(err error) error {
	var se *pkghttp.StatusError
	if errors.As(err, &se) {
		if se.Temporary() {
			return &models.RemoteError{Kind: models.RemoteTransient, Message: "exchange unavailable", Err: err}
		}
		return &models.RemoteError{Kind: models.RemoteUnknown, Message: "unexpected exchange status", Err: err}
	}
	return &models.RemoteError{Kind: models.RemoteTransient, Message: "exchange unreachable", Err: err}
}

func kindLabel(err error) string {
	var re *models.RemoteError
	if errors.As(err, &re) {
		return string(re.Kind)
	}
	return "unknown"
}
