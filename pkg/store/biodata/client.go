package biodata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/services/catalog"
	"github.com/rs/zerolog"
)

const (
	queryPath      = "/dashboard/grafico"
	unfiltered     = "_"
	maxBodyBytes   = 8 << 20
	defaultTimeout = 15 * time.Second
)

type Config struct {
	Host      string
	SacID     string
	Cookie    string
	UserAgent string
	// Timeout bounds every single Execute call independently.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client runs stored report queries against the Biodata dashboard API.
type Client struct {
	cfg     Config
	http    *http.Client
	reports catalog.Registry
}

func NewClient(cfg Config, reports catalog.Registry) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")

	return &Client{
		cfg:     cfg,
		http:    httpClient,
		reports: reports,
	}
}

// Execute issues one live query for reportID over sub. filters are matched
// to the report's positional parameters by name; unmatched parameters are
// sent as the "_" wildcard. Every failure is returned as *UpstreamError.
func (c *Client) Execute(
	ctx context.Context,
	reportID string,
	sub domain.SubRange,
	filters map[string]string,
) ([]domain.RawRecord, error) {
	logger := zerolog.Ctx(ctx)

	report, err := c.reports.Get(reportID)
	if err != nil {
		return nil, &UpstreamError{ReportID: reportID, Message: "report not in catalog", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.queryURL(report, sub, filters), nil)
	if err != nil {
		return nil, &UpstreamError{ReportID: report.ID, Message: "failed to build request", Err: err}
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.Cookie != "" {
		req.Header.Set("Cookie", c.cfg.Cookie)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UpstreamError{
			ReportID: report.ID,
			Message:  "request failed",
			Timeout:  isTimeout(err),
			Err:      err,
		}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close upstream response body")
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &UpstreamError{
			ReportID: report.ID,
			Status:   resp.StatusCode,
			Message:  "failed to read response body",
			Timeout:  isTimeout(err),
			Err:      err,
		}
	}

	logger.Debug().
		Str("report", report.ID).
		Str("sub_range", sub.Label).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("upstream query settled")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			ReportID: report.ID,
			Status:   resp.StatusCode,
			Message:  snippet(body),
		}
	}

	records, err := decodeRecords(body)
	if err != nil {
		return nil, &UpstreamError{
			ReportID: report.ID,
			Status:   resp.StatusCode,
			Message:  err.Error(),
			Err:      err,
		}
	}
	return records, nil
}

func (c *Client) queryURL(report catalog.Report, sub domain.SubRange, filters map[string]string) string {
	q := url.Values{}
	q.Set("target_url", "null")
	q.Set("procedure", report.Procedure)
	q.Set("parametros", strings.Join(report.Parameters, ","))
	q.Set("valores", positionalValues(report, sub, filters))
	if c.cfg.SacID != "" {
		q.Set("idSAC", c.cfg.SacID)
	}
	return c.cfg.Host + queryPath + "?" + q.Encode()
}

func positionalValues(report catalog.Report, sub domain.SubRange, filters map[string]string) string {
	values := []string{
		sub.Start.Format(domain.DateLayout),
		sub.End.Format(domain.DateLayout),
	}
	for _, param := range report.Parameters[2:] {
		values = append(values, filterValue(filters, param))
	}
	if report.TrailingSeparator {
		values = append(values, "")
	}
	return strings.Join(values, ",")
}

func filterValue(filters map[string]string, param string) string {
	name := strings.TrimPrefix(param, "@")
	for key, value := range filters {
		if strings.EqualFold(strings.TrimPrefix(key, "@"), name) && strings.TrimSpace(value) != "" {
			return value
		}
	}
	return unfiltered
}

var errorKeys = []string{"error", "erro", "message", "mensagem", "exceptionMessage"}

func decodeRecords(body []byte) ([]domain.RawRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return []domain.RawRecord{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("unparseable response body: %w", err)
	}

	switch v := payload.(type) {
	case nil:
		return []domain.RawRecord{}, nil
	case []any:
		records := make([]domain.RawRecord, 0, len(v))
		for i, item := range v {
			row, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("row %d is %T, not an object", i, item)
			}
			records = append(records, row)
		}
		return records, nil
	case map[string]any:
		for key, value := range v {
			for _, errKey := range errorKeys {
				if strings.EqualFold(key, errKey) && value != nil {
					return nil, fmt.Errorf("upstream reported an error: %v", value)
				}
			}
		}
		return []domain.RawRecord{v}, nil
	default:
		return nil, fmt.Errorf("unexpected response of type %T", payload)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func snippet(body []byte) string {
	const max = 256
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
