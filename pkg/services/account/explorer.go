package account

import (
	"context"
	"fmt"
	"sync"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/services/catalog"
	"github.com/de-tools/revenue-atlas/pkg/services/config"
	"github.com/de-tools/revenue-atlas/pkg/services/period"
	"github.com/de-tools/revenue-atlas/pkg/store/biodata"
	"github.com/rs/zerolog"
)

// Aggregator is the consumer-facing entry point of the aggregation core.
type Aggregator interface {
	Aggregate(ctx context.Context, req period.Request) (*domain.Series, error)
	Breakdown(ctx context.Context, req period.Request) (*domain.Series, error)
}

type Explorer interface {
	ListProfiles(ctx context.Context) ([]string, error)
	ListReports(ctx context.Context) []catalog.Report
	// GetAggregator returns the aggregator bound to a credential profile.
	// An empty profile selects the configured default.
	GetAggregator(ctx context.Context, profile string) (Aggregator, error)
}

type accountExplorer struct {
	settings    *config.Settings
	credentials config.Registry
	reports     catalog.Registry

	mu          sync.Mutex
	aggregators map[string]Aggregator
}

func NewExplorer(settings *config.Settings, credentials config.Registry, reports catalog.Registry) Explorer {
	return &accountExplorer{
		settings:    settings,
		credentials: credentials,
		reports:     reports,
		aggregators: make(map[string]Aggregator),
	}
}

// Load wires an Explorer from a settings file (may be empty) and the
// credentials file it points to. Configured schema extras are merged into the
// built-in report catalog.
func Load(ctx context.Context, settingsPath string) (Explorer, error) {
	logger := zerolog.Ctx(ctx)

	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	credentials, err := config.NewRegistry(settings.Upstream.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create credentials registry: %w", err)
	}

	reports := catalog.NewDefaultRegistry()
	for id, extra := range settings.Schemas {
		if err := reports.Extend(id, extra); err != nil {
			return nil, fmt.Errorf("invalid schema override for %q: %w", id, err)
		}
		logger.Debug().Str("report", id).Msg("extended report schema from settings")
	}

	return NewExplorer(settings, credentials, reports), nil
}

func (a *accountExplorer) ListProfiles(ctx context.Context) ([]string, error) {
	return a.credentials.GetProfiles(ctx)
}

func (a *accountExplorer) ListReports(_ context.Context) []catalog.Report {
	return a.reports.List()
}

func (a *accountExplorer) GetAggregator(ctx context.Context, profile string) (Aggregator, error) {
	if profile == "" {
		profile = a.settings.Upstream.Profile
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if agg, ok := a.aggregators[profile]; ok {
		return agg, nil
	}

	creds, err := a.credentials.GetCredentials(ctx, profile)
	if err != nil {
		return nil, err
	}

	client := biodata.NewClient(biodata.Config{
		Host:      creds.Host,
		SacID:     creds.SacID,
		Cookie:    creds.Cookie,
		UserAgent: a.settings.Upstream.UserAgent,
		Timeout:   a.settings.Upstream.Timeout,
	}, a.reports)

	agg := period.NewAggregator(client, a.reports, period.WithMaxConcurrency(a.settings.Upstream.MaxConcurrency))
	a.aggregators[profile] = agg

	zerolog.Ctx(ctx).Info().
		Stringer("tenant", creds).
		Str("host", creds.Host).
		Msg("upstream aggregator ready")
	return agg, nil
}
