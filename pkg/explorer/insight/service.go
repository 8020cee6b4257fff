package insight

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/komodoplatform/hw-kmd-claim/pkg/circuitbreaker"
	"github.com/komodoplatform/hw-kmd-claim/pkg/explorer"
	"github.com/komodoplatform/hw-kmd-claim/pkg/stats"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// DefaultAPIURL is the insight api of the dexstats explorer.
	DefaultAPIURL = "https://kmd.explorer.dexstats.info/insight-api-komodo/"
	// KomodoPlatformAPIURL is the insight api of the komodoplatform explorer.
	KomodoPlatformAPIURL = "https://explorer.komodoplatform.com:10000/kmd/api/"

	defaultTimeout = 30 * time.Second
)

// ServiceOpts is the struct given to NewService
type ServiceOpts struct {
	// APIURL is the base url of an insight-api-komodo instance.
	APIURL string
	// RequestsPerSecond caps the rate of requests. Zero means unlimited.
	RequestsPerSecond int
	// Timeout of every http request.
	Timeout time.Duration
}

func (o ServiceOpts) validate() error {
	if o.APIURL == "" {
		return fmt.Errorf("missing api url")
	}
	u, err := url.Parse(o.APIURL)
	if err != nil {
		return fmt.Errorf("invalid api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api url scheme must be either http or https")
	}
	if o.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second must not be negative")
	}
	if o.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

type insight struct {
	apiURL  string
	client  *http.Client
	limiter ratelimit.Limiter
	cb      *gobreaker.CircuitBreaker
}

// NewService returns a new insight service as an explorer.Service interface
func NewService(opts ServiceOpts) (explorer.Service, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	limiter := ratelimit.NewUnlimited()
	if opts.RequestsPerSecond > 0 {
		limiter = ratelimit.New(opts.RequestsPerSecond)
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &insight{
		apiURL:  strings.TrimSuffix(opts.APIURL, "/"),
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		cb: circuitbreaker.NewCircuitBreaker("explorer", isSuccessful),
	}, nil
}

// isSuccessful tells the breaker which errors don't count as explorer
// failures: missing resources and requests aborted by the caller, ie. the
// siblings of a failed request in a fan-out.
func isSuccessful(err error) bool {
	return err == nil ||
		errors.Is(err, explorer.ErrNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// get sends a GET request to the given endpoint and decodes the response body
// into the given value.
func (i *insight) get(
	ctx context.Context, endpoint, path string, query url.Values, out interface{},
) error {
	return i.do(ctx, http.MethodGet, endpoint, path, query, nil, out)
}

// post sends a POST request with the given body serialized in json.
func (i *insight) post(
	ctx context.Context, endpoint, path string, body, out interface{},
) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return i.do(ctx, http.MethodPost, endpoint, path, nil, payload, out)
}

func (i *insight) do(
	ctx context.Context, method, endpoint, path string,
	query url.Values, payload []byte, out interface{},
) error {
	reqURL := fmt.Sprintf("%s/%s", i.apiURL, path)
	if len(query) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	_, err := i.cb.Execute(func() (interface{}, error) {
		i.limiter.Take()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, i.send(ctx, method, reqURL, payload, out)
	})
	stats.ExplorerRequests.WithLabelValues(endpoint, stats.Outcome(err)).Inc()
	if err != nil {
		log.WithError(err).Debugf("explorer: %s %s", method, reqURL)
	}
	return err
}

func (i *insight) send(
	ctx context.Context, method, reqURL string, payload []byte, out interface{},
) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", explorer.ErrNotFound, strings.TrimSpace(string(respBody)))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf(
			"%w %d: %s", explorer.ErrUnexpectedStatus, resp.StatusCode,
			strings.TrimSpace(string(respBody)),
		)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %s", explorer.ErrMalformedResponse, err)
	}
	return nil
}
