package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chatten/internal/qscore"
)

const metricsPath = "/v1/models/%s/metrics"

// HTTPOptions parameterise the metrics oracle client.
type HTTPOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// HTTPSource fetches model performance snapshots from the metrics oracle.
type HTTPSource struct {
	opts    HTTPOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewHTTPSource constructs an oracle client.
func NewHTTPSource(opts HTTPOptions, logger zerolog.Logger) *HTTPSource {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPSource{
		opts:    opts,
		logger:  logger.With().Str("component", "oracle_http").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// Fetch retrieves the latest snapshot for a model. A 404 maps onto
// ErrNotFound so the store can fall back to the zero snapshot.
func (h *HTTPSource) Fetch(ctx context.Context, modelID string) (qscore.Snapshot, error) {
	if h.baseURL == "" {
		return qscore.Snapshot{}, errors.New("oracle base URL not configured")
	}
	if modelID == "" {
		return qscore.Snapshot{}, qscore.ErrEmptyModelID
	}

	endpoint := h.baseURL + fmt.Sprintf(metricsPath, url.PathEscape(modelID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return qscore.Snapshot{}, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(h.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return qscore.Snapshot{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return qscore.Snapshot{}, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return qscore.Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, modelID)
	}
	if resp.StatusCode != http.StatusOK {
		return qscore.Snapshot{}, parseAPIError(resp.StatusCode, payload)
	}

	var snap qscore.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return qscore.Snapshot{}, fmt.Errorf("decode metrics payload: %w", err)
	}

	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}

	return snap, nil
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func parseAPIError(status int, payload []byte) error {
	var apiErr apiError
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("oracle api error (%d): %s", status, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("oracle api error (%d): %s", status, apiErr.Error)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("oracle api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("oracle api error (%d)", status)
}

var _ Source = (*HTTPSource)(nil)
