package series

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/de-tools/revenue-atlas/pkg/adapters"
	"github.com/de-tools/revenue-atlas/pkg/models/api"
	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/services/account"
	"github.com/de-tools/revenue-atlas/pkg/services/catalog"
	"github.com/de-tools/revenue-atlas/pkg/services/config"
	"github.com/de-tools/revenue-atlas/pkg/services/period"
	"github.com/de-tools/revenue-atlas/pkg/store/biodata"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// SessionHeader identifies a dashboard tab. Requests sharing a session and a
// report supersede each other.
const SessionHeader = "X-Dashboard-Session"

var reservedParams = []string{"from", "to", "granularity", "months", "profile"}

type Handler struct {
	explorer account.Explorer
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// session is dropped once no request holds it.
type session struct {
	latest   period.Latest
	inflight int
}

func NewHandler(explorer account.Explorer) *Handler {
	return &Handler{
		explorer: explorer,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profiles, err := h.explorer.ListProfiles(ctx)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, adapters.MapProfilesToApi(profiles))
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reports := lo.Map(h.explorer.ListReports(ctx), func(report catalog.Report, _ int) api.Report {
		return adapters.MapReportCatalogToApi(report)
	})
	h.writeJSON(ctx, w, http.StatusOK, reports)
}

func (h *Handler) GetSeries(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, agg account.Aggregator, req period.Request) (*domain.Series, error) {
		return agg.Aggregate(ctx, req)
	})
}

func (h *Handler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, agg account.Aggregator, req period.Request) (*domain.Series, error) {
		return agg.Breakdown(ctx, req)
	})
}

type runFunc func(ctx context.Context, agg account.Aggregator, req period.Request) (*domain.Series, error)

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, run runFunc) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	req, err := h.parseRequest(r)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	agg, err := h.explorer.GetAggregator(ctx, r.URL.Query().Get("profile"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	call := func(ctx context.Context) (*domain.Series, error) {
		return run(ctx, agg, req)
	}

	var series *domain.Series
	if id := r.Header.Get(SessionHeader); id != "" {
		key := id + "/" + req.ReportID
		s := h.acquire(key)
		series, err = s.latest.Do(ctx, call)
		h.release(key)
	} else {
		series, err = call(ctx)
	}
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	logger.Info().
		Str("report", series.ReportID).
		Int("records", len(series.Records)).
		Int("failures", series.Failures).
		Msg("series served")
	h.writeJSON(ctx, w, http.StatusOK, adapters.MapSeriesDomainToApi(series))
}

func (h *Handler) parseRequest(r *http.Request) (period.Request, error) {
	query := r.URL.Query()

	today := h.now().Format(domain.DateLayout)
	from := lo.CoalesceOrEmpty(query.Get("from"), today)
	to := lo.CoalesceOrEmpty(query.Get("to"), from)

	window, err := domain.ParseWindow(from, to)
	if err != nil {
		return period.Request{}, &period.InvalidWindowError{Reason: err.Error()}
	}

	months := 0
	if raw := query.Get("months"); raw != "" {
		months, err = strconv.Atoi(raw)
		if err != nil {
			return period.Request{}, &period.InvalidWindowError{Reason: "months must be an integer"}
		}
	}

	filters := make(map[string]string)
	for key, values := range query {
		if lo.Contains(reservedParams, key) || len(values) == 0 {
			continue
		}
		filters[key] = values[0]
	}

	return period.Request{
		ReportID:    chi.URLParam(r, "report"),
		Window:      window,
		Granularity: domain.ParseGranularity(query.Get("granularity"), months),
		Filters:     filters,
	}, nil
}

func (h *Handler) acquire(key string) *session {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[key]
	if !ok {
		s = &session{}
		h.sessions[key] = s
	}
	s.inflight++
	return s
}

func (h *Handler) release(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[key]
	if !ok {
		return
	}
	s.inflight--
	if s.inflight <= 0 {
		delete(h.sessions, key)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := zerolog.Ctx(ctx)

	status := http.StatusInternalServerError
	var invalid *period.InvalidWindowError
	var tooLarge *period.WindowTooLargeError
	var upstream *biodata.UpstreamError
	switch {
	case errors.As(err, &invalid):
		status = http.StatusBadRequest
	case errors.As(err, &tooLarge):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, catalog.ErrUnknownReport), errors.Is(err, config.ErrProfileNotFound):
		status = http.StatusNotFound
	case errors.Is(err, period.ErrSuperseded):
		status = http.StatusConflict
	case errors.As(err, &upstream):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("request failed")
	} else {
		logger.Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	h.writeJSON(ctx, w, status, api.ErrorResponse{Error: err.Error()})
}

func (h *Handler) writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(ctx).Error().
			Err(err).
			Msg("failed to encode response")
	}
}
