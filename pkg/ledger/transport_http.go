package ledger

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

type apduRequest struct {
	Data string `json:"data"`
}

type apduResponse struct {
	Data  string `json:"data"`
	Error string `json:"error,omitempty"`
}

type httpTransport struct {
	url    string
	client *http.Client
	lock   *sync.Mutex

	closed bool
}

// NewHTTPTransport returns a transport posting APDUs to the /apdu endpoint of
// the given url, as exposed by the speculos emulator. The request body is
// {"data":<hex>}, and so is the response.
func NewHTTPTransport(url string, client *http.Client) Transport {
	if client == nil {
		client = &http.Client{}
	}
	return &httpTransport{
		url:    strings.TrimSuffix(url, "/") + "/apdu",
		client: client,
		lock:   &sync.Mutex{},
	}
}

func (t *httpTransport) Exchange(ctx context.Context, apdu []byte) ([]byte, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return nil, ErrTransportClosed
	}

	payload, _ := json.Marshal(apduRequest{hex.EncodeToString(apdu)})
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, t.url, bytes.NewReader(payload),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s", ErrDisconnected, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDisconnected, err)
	}

	out := apduResponse{}
	if err := json.Unmarshal(body, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf(
				"%w: status %d: %s", ErrBridgeError, resp.StatusCode,
				strings.TrimSpace(string(body)),
			)
		}
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	}
	if resp.StatusCode != http.StatusOK || out.Error != "" {
		return nil, fmt.Errorf(
			"%w: status %d: %s", ErrBridgeError, resp.StatusCode, out.Error,
		)
	}

	data, err := hex.DecodeString(out.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	}
	return data, nil
}

func (t *httpTransport) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.closed = true
	return nil
}
