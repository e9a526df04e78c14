package contentanalysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

type leveledSlog struct {
	inner *slog.Logger
}

// re-writes HTTP client ERROR to WARN level (because of retries)
func (l leveledSlog) Error(msg string, keysAndValues ...any) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Warn(msg string, keysAndValues ...any) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Info(msg string, keysAndValues ...any) {
	l.inner.Info(msg, keysAndValues...)
}

func (l leveledSlog) Debug(msg string, keysAndValues ...any) {
	l.inner.Debug(msg, keysAndValues...)
}

func robustHTTPClient(logger *slog.Logger) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(leveledSlog{inner: logger})
	client := retryClient.StandardClient()
	client.Timeout = 20 * time.Second
	return client
}

// Client talks to the analysis sidecar's moderation endpoint. Outbound
// requests are paced by a token bucket so a burst of submissions does not
// overwhelm the sidecar's model workers.
type Client struct {
	Host    string
	Client  *http.Client
	Limiter *rate.Limiter
	Logger  *slog.Logger
}

var _ Analyzer = (*Client)(nil)

func NewClient(host string, reqPerSec float64, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("system", "contentanalysis")
	if reqPerSec <= 0 {
		reqPerSec = 10
	}
	return &Client{
		Host:    host,
		Client:  robustHTTPClient(logger),
		Limiter: rate.NewLimiter(rate.Limit(reqPerSec), 1),
		Logger:  logger,
	}
}

type moderateRequest struct {
	Text             string `json:"text"`
	IncludeSentiment bool   `json:"include_sentiment"`
}

type moderateResponse struct {
	Text          string                `json:"text"`
	SuggestedTags map[Category][]string `json:"suggested_tags"`
	RiskAssess    struct {
		Score float64 `json:"score"`
		Level string  `json:"level"`
	} `json:"risk_assessment"`
	RequiresReview bool       `json:"requires_review"`
	Sentiment      *Sentiment `json:"sentiment"`
}

func (c *Client) Moderate(ctx context.Context, text string) (*Result, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(moderateRequest{Text: text, IncludeSentiment: true})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.Host+"/moderate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "trustd/"+versioninfo.Short())

	start := time.Now()
	res, err := c.Client.Do(req)
	remoteDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		remoteRequestCount.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("moderation request failed: %w", err)
	}
	defer res.Body.Close()

	remoteRequestCount.WithLabelValues(fmt.Sprint(res.StatusCode)).Inc()
	if res.StatusCode != 200 {
		return nil, fmt.Errorf("moderation request failed statusCode=%d", res.StatusCode)
	}

	respBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read moderation resp body: %w", err)
	}

	var respObj moderateResponse
	if err := json.Unmarshal(respBytes, &respObj); err != nil {
		return nil, fmt.Errorf("failed to parse moderation resp JSON: %w", err)
	}

	level := RiskLevel(respObj.RiskAssess.Level)
	analyzedCount.WithLabelValues("remote", string(level)).Inc()
	return &Result{
		SuggestedTags:  Matches(respObj.SuggestedTags),
		RiskScore:      respObj.RiskAssess.Score,
		RiskLevel:      level,
		RequiresReview: respObj.RequiresReview,
		Sentiment:      respObj.Sentiment,
	}, nil
}

// FallbackAnalyzer tries the remote sidecar first and degrades to the local
// pattern classifier when it is unreachable. Remote failures never block
// moderation.
type FallbackAnalyzer struct {
	Remote *Client
	Local  LocalAnalyzer
	Logger *slog.Logger
}

var _ Analyzer = (*FallbackAnalyzer)(nil)

func (f *FallbackAnalyzer) Moderate(ctx context.Context, text string) (*Result, error) {
	if f.Remote != nil {
		result, err := f.Remote.Moderate(ctx, text)
		if err == nil {
			return result, nil
		}
		remoteFallbackCount.Inc()
		logger := f.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("remote analysis failed, falling back to local patterns", "err", err)
	}
	return f.Local.Moderate(ctx, text)
}
