package gateway

import (
	"net/http"

	"github.com/carson-networks/transaction-sync/internal/logging"
)

// authTransport attaches the gateway credentials to every outgoing request.
type authTransport struct {
	base     http.RoundTripper
	token    string
	walletID string
	redactor *logging.Redactor
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	if t.walletID != "" {
		req.Header.Set("WALLET-ID", t.walletID)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, t.redactor.RedactError(err)
	}
	return resp, nil
}
