// Package youtube proves that a user-supplied YouTube identity exists. It
// accepts a channel handle ("@name") or a raw channel ID ("UC...") and
// resolves either to a canonical channel ID.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/serialgate/internal/common"
	"github.com/dmitrijs2005/serialgate/internal/logging"
	"github.com/dmitrijs2005/serialgate/internal/server/metrics"
	"github.com/dmitrijs2005/serialgate/internal/server/models"
)

const userAgent = "Mozilla/5.0"

// maxPageBytes bounds how much of a channel page is scanned for the ID.
const maxPageBytes = 4 << 20

var identifierRe = regexp.MustCompile(`<meta itemprop="identifier" content="(UC[^"]+)">`)

// errBlocked is a rejection caused by the denylist.
var errBlocked = fmt.Errorf("%w: blocked", common.ErrValidationRejected)

type Config struct {
	BaseURL       string
	APIBaseURL    string
	APIKey        string
	HandleTimeout time.Duration
	APITimeout    time.Duration

	BlockedHandles []string
	BlockedIDs     []string
}

// HandleCache remembers successful handle resolutions.
type HandleCache interface {
	Get(ctx context.Context, handle string) (string, bool, error)
	Put(ctx context.Context, handle, channelID string) error
}

type Validator struct {
	cfg     Config
	blocked map[string]struct{}
	client  *http.Client
	cache   HandleCache
	logger  logging.Logger
	metrics *metrics.Metrics
}

type Option func(*Validator)

func WithHTTPClient(c *http.Client) Option {
	return func(v *Validator) { v.client = c }
}

// WithCache enables the handle cache. A nil cache is ignored.
func WithCache(c HandleCache) Option {
	return func(v *Validator) {
		if c != nil {
			v.cache = c
		}
	}
}

func New(cfg Config, logger logging.Logger, m *metrics.Metrics, opts ...Option) *Validator {
	v := &Validator{
		cfg:     cfg,
		blocked: make(map[string]struct{}, len(cfg.BlockedHandles)+len(cfg.BlockedIDs)),
		client:  http.DefaultClient,
		logger:  logger.With("module", "youtube"),
		metrics: m,
	}
	for _, s := range cfg.BlockedHandles {
		v.blocked[s] = struct{}{}
	}
	for _, s := range cfg.BlockedIDs {
		v.blocked[s] = struct{}{}
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Validate resolves raw to a channel proof. On failure the proof is nil and
// the error wraps common.ErrValidationRejected or common.ErrExternalCallFailed.
func (v *Validator) Validate(ctx context.Context, raw string) (*models.ChannelProof, error) {
	input := strings.TrimSpace(raw)

	proof, err := v.validate(ctx, input)
	v.metrics.Validations.WithLabelValues(outcome(err)).Inc()
	return proof, err
}

func (v *Validator) validate(ctx context.Context, input string) (*models.ChannelProof, error) {
	if v.isBlocked(input) {
		return nil, fmt.Errorf("%w: %s", errBlocked, input)
	}

	switch {
	case strings.HasPrefix(input, "@"):
		id, err := v.resolveHandle(ctx, input)
		if err != nil {
			return nil, err
		}
		if v.isBlocked(id) {
			return nil, fmt.Errorf("%w: %s resolves to %s", errBlocked, input, id)
		}
		handle := input
		return &models.ChannelProof{ChannelID: id, ChannelHandle: &handle}, nil

	case strings.HasPrefix(input, "UC") && len(input) > 10:
		if err := v.checkChannel(ctx, input); err != nil {
			return nil, err
		}
		return &models.ChannelProof{ChannelID: input}, nil

	default:
		return nil, fmt.Errorf("%w: not a handle or channel id", common.ErrValidationRejected)
	}
}

func (v *Validator) isBlocked(s string) bool {
	_, ok := v.blocked[s]
	return ok
}

func (v *Validator) resolveHandle(ctx context.Context, handle string) (string, error) {
	if v.cache != nil {
		id, ok, err := v.cache.Get(ctx, handle)
		switch {
		case err != nil:
			v.logger.Warn(ctx, "handle cache read failed", "handle", handle, "error", err)
		case ok:
			v.metrics.HandleCacheHits.Inc()
			return id, nil
		}
	}

	id, err := v.scrapeHandle(ctx, handle)
	if err != nil {
		return "", err
	}

	if v.cache != nil {
		if err := v.cache.Put(ctx, handle, id); err != nil {
			v.logger.Warn(ctx, "handle cache write failed", "handle", handle, "error", err)
		}
	}
	return id, nil
}

func (v *Validator) scrapeHandle(ctx context.Context, handle string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.HandleTimeout)
	defer cancel()

	target := strings.TrimRight(v.cfg.BaseURL, "/") + "/" + url.PathEscape(handle)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrExternalCallFailed, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: channel page: %v", common.ErrExternalCallFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: channel page status %d", common.ErrExternalCallFailed, resp.StatusCode)
	}

	page, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("%w: channel page body: %v", common.ErrExternalCallFailed, err)
	}

	m := identifierRe.FindSubmatch(page)
	if m == nil {
		return "", fmt.Errorf("%w: no channel id on page for %s", common.ErrValidationRejected, handle)
	}
	return string(m[1]), nil
}

type channelsResponse struct {
	Items []json.RawMessage `json:"items"`
}

func (v *Validator) checkChannel(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.APITimeout)
	defer cancel()

	q := url.Values{}
	q.Set("part", "id")
	q.Set("id", id)
	q.Set("key", v.cfg.APIKey)
	target := strings.TrimRight(v.cfg.APIBaseURL, "/") + "/channels?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrExternalCallFailed, err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		// the URL carries the API key; keep it out of logs
		return fmt.Errorf("%w: channels api request failed", common.ErrExternalCallFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: channels api status %d", common.ErrExternalCallFailed, resp.StatusCode)
	}

	var body channelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: channels api body: %v", common.ErrExternalCallFailed, err)
	}
	if len(body.Items) == 0 {
		return fmt.Errorf("%w: unknown channel %s", common.ErrValidationRejected, id)
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeAccepted
	case errors.Is(err, errBlocked):
		return metrics.OutcomeBlocked
	case errors.Is(err, common.ErrExternalCallFailed):
		return metrics.OutcomeExternalError
	default:
		return metrics.OutcomeRejected
	}
}
