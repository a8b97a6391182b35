package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
)

var ErrUnknownReport = errors.New("unknown report")

// Report describes one stored query on the analytics backend.
type Report struct {
	ID          string
	Procedure   string
	Description string
	// Parameters are the positional procedure arguments. The first two are
	// always the start and end date bounds.
	Parameters []string
	// TrailingSeparator appends an empty value after the last positional
	// argument, as some procedures expect.
	TrailingSeparator bool
	Schema            domain.FieldSchema
}

// Registry manages the known reports and their field schemas
type Registry interface {
	// Register adds a new report definition
	Register(report Report) error
	// Get resolves a report by id or procedure name
	Get(id string) (Report, error)
	// List returns the reports ordered by id
	List() []Report
	// Extend appends field candidates to a report's schema
	Extend(id string, extra domain.FieldSchema) error
}

type registry struct {
	mu      sync.RWMutex
	reports map[string]Report
}

// NewRegistry creates a registry holding reports.
func NewRegistry(reports ...Report) (Registry, error) {
	r := &registry{reports: make(map[string]Report)}
	for _, report := range reports {
		if err := r.Register(report); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewDefaultRegistry creates a registry preloaded with DefaultReports.
func NewDefaultRegistry() Registry {
	r, err := NewRegistry(DefaultReports()...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *registry) Register(report Report) error {
	if report.ID == "" {
		return fmt.Errorf("report id cannot be empty")
	}
	if report.Procedure == "" {
		return fmt.Errorf("report %q: procedure cannot be empty", report.ID)
	}
	if len(report.Parameters) < 2 {
		return fmt.Errorf("report %q: at least the two date parameters are required", report.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reports[report.ID]; exists {
		return fmt.Errorf("report %q is already registered", report.ID)
	}

	r.reports[report.ID] = report
	return nil
}

func (r *registry) Get(id string) (Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if report, ok := r.reports[id]; ok {
		return report, nil
	}
	for _, report := range r.reports {
		if strings.EqualFold(report.ID, id) || strings.EqualFold(report.Procedure, id) {
			return report, nil
		}
	}
	return Report{}, fmt.Errorf("%w: %q", ErrUnknownReport, id)
}

func (r *registry) List() []Report {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reports := make([]Report, 0, len(r.reports))
	for _, report := range r.reports {
		reports = append(reports, report)
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].ID < reports[j].ID
	})
	return reports
}

func (r *registry) Extend(id string, extra domain.FieldSchema) error {
	report, err := r.Get(id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	report.Schema = report.Schema.Merge(extra)
	r.reports[report.ID] = report
	return nil
}
