// Package catalog holds the scenario list, its filter and pagination state,
// and the selected scenario.
package catalog

import (
	"context"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/abhisek/threatlab/internal/api"
	"github.com/abhisek/threatlab/internal/logging"
	"github.com/abhisek/threatlab/internal/notify"
)

// DefaultPageSize is the number of scenarios fetched per page.
const DefaultPageSize = 20

// Remote is the subset of the API client the catalog uses.
type Remote interface {
	ListScenarios(ctx context.Context, f api.ScenarioFilter) ([]api.Scenario, error)
	GetScenario(ctx context.Context, id string) (*api.Scenario, error)
	ScenarioProgress(ctx context.Context, id string) (*api.ScenarioProgress, error)
	ScenarioCategories(ctx context.Context) ([]string, error)
	ScenarioDifficulties(ctx context.Context) ([]string, error)
}

// Filter is sent to the backend with every fetch.
type Filter struct {
	Category   string
	Difficulty string
	Tags       []string
	Search     string
}

// Store is the scenario catalog. It is safe for concurrent use.
type Store struct {
	remote   Remote
	notifier notify.Notifier
	log      *zap.SugaredLogger

	mu           sync.Mutex
	scenarios    []api.Scenario
	filter       Filter
	query        string
	skip         int
	limit        int
	hasMore      bool
	loaded       bool
	detail       *api.Scenario
	progress     *api.ScenarioProgress
	categories   []string
	difficulties []string
}

// New creates an empty catalog. A nil notifier discards notifications.
func New(remote Remote, n notify.Notifier) *Store {
	if n == nil {
		n = notify.Discard{}
	}
	return &Store{
		remote:   remote,
		notifier: n,
		log:      logging.Component("catalog"),
		limit:    DefaultPageSize,
	}
}

// SetPageSize changes the page size and returns to the first page.
func (s *Store) SetPageSize(n int) {
	if n <= 0 {
		n = DefaultPageSize
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limit = n
	s.skip = 0
}

// SetFilter replaces the backend filter and returns to the first page. The
// next Fetch applies it.
func (s *Store) SetFilter(f Filter) {
	f.Tags = slices.Clone(f.Tags)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
	s.skip = 0
}

// Filter returns the current backend filter.
func (s *Store) Filter() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.filter
	f.Tags = slices.Clone(f.Tags)
	return f
}

// SetQuery sets the client-side search over the loaded page.
func (s *Store) SetQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = q
}

// Query returns the client-side search text.
func (s *Store) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Fetch loads the current page with the current filter.
func (s *Store) Fetch(ctx context.Context) error {
	s.mu.Lock()
	skip := s.skip
	s.mu.Unlock()
	return s.fetch(ctx, skip)
}

// fetch loads the page starting at skip. The page position only moves
// once the page has arrived.
func (s *Store) fetch(ctx context.Context, skip int) error {
	s.mu.Lock()
	f := api.ScenarioFilter{
		Category:   s.filter.Category,
		Difficulty: s.filter.Difficulty,
		Tags:       slices.Clone(s.filter.Tags),
		Search:     s.filter.Search,
		Skip:       skip,
		Limit:      s.limit,
	}
	s.mu.Unlock()

	list, err := s.remote.ListScenarios(ctx, f)
	if err != nil {
		s.fail("Failed to load scenarios", err)
		return err
	}

	s.mu.Lock()
	s.skip = skip
	s.scenarios = list
	s.hasMore = len(list) >= f.Limit
	s.loaded = true
	s.mu.Unlock()

	s.log.Debugw("scenarios loaded", logging.FieldCount, len(list), "skip", f.Skip)
	return nil
}

// NextPage fetches the following page. It does nothing on the last page.
func (s *Store) NextPage(ctx context.Context) error {
	s.mu.Lock()
	if !s.hasMore {
		s.mu.Unlock()
		return nil
	}
	next := s.skip + s.limit
	s.mu.Unlock()
	return s.fetch(ctx, next)
}

// PrevPage fetches the preceding page. It does nothing on the first page.
func (s *Store) PrevPage(ctx context.Context) error {
	s.mu.Lock()
	if s.skip == 0 {
		s.mu.Unlock()
		return nil
	}
	prev := max(s.skip-s.limit, 0)
	s.mu.Unlock()
	return s.fetch(ctx, prev)
}

// Page returns the 1-based current page number.
func (s *Store) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skip/s.limit + 1
}

// HasMore reports whether the last fetch filled a whole page.
func (s *Store) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// Loaded reports whether at least one fetch succeeded.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Scenarios returns the loaded page.
func (s *Store) Scenarios() []api.Scenario {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.scenarios)
}

// Visible returns the loaded page narrowed by the client-side query. The
// match is case-insensitive over title, description and tags.
func (s *Store) Visible() []api.Scenario {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(strings.TrimSpace(s.query))
	if q == "" {
		return slices.Clone(s.scenarios)
	}
	var out []api.Scenario
	for _, sc := range s.scenarios {
		if matches(sc, q) {
			out = append(out, sc)
		}
	}
	return out
}

func matches(sc api.Scenario, q string) bool {
	if strings.Contains(strings.ToLower(sc.Title), q) ||
		strings.Contains(strings.ToLower(sc.Description), q) {
		return true
	}
	for _, t := range sc.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// Select loads the scenario's detail and the user's progress on it. A
// progress failure is reported but keeps the detail.
func (s *Store) Select(ctx context.Context, id string) error {
	sc, err := s.remote.GetScenario(ctx, id)
	if err != nil {
		s.fail("Failed to load scenario", err)
		return err
	}

	prog, perr := s.remote.ScenarioProgress(ctx, id)
	if perr != nil {
		s.log.Warnw("scenario progress", logging.FieldScenarioID, id, logging.FieldError, perr)
		prog = nil
	}

	s.mu.Lock()
	s.detail = sc
	s.progress = prog
	s.mu.Unlock()
	return nil
}

// Detail returns the selected scenario, or nil.
func (s *Store) Detail() *api.Scenario {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detail == nil {
		return nil
	}
	d := *s.detail
	return &d
}

// Progress returns the user's progress on the selected scenario, or nil.
func (s *Store) Progress() *api.ScenarioProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.progress == nil {
		return nil
	}
	p := *s.progress
	return &p
}

// LoadFacets fetches the category and difficulty lists for the filter UI.
func (s *Store) LoadFacets(ctx context.Context) error {
	cats, err := s.remote.ScenarioCategories(ctx)
	if err != nil {
		s.fail("Failed to load categories", err)
		return err
	}
	diffs, err := s.remote.ScenarioDifficulties(ctx)
	if err != nil {
		s.fail("Failed to load difficulties", err)
		return err
	}
	s.mu.Lock()
	s.categories = cats
	s.difficulties = diffs
	s.mu.Unlock()
	return nil
}

// Categories returns the known scenario categories.
func (s *Store) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.categories)
}

// Difficulties returns the known difficulty levels.
func (s *Store) Difficulties() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.difficulties)
}

func (s *Store) fail(msg string, err error) {
	s.log.Warnw(msg, logging.FieldError, err)
	s.notifier.Error(msg, err)
}
