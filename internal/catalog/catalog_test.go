package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/threatlab/internal/api"
)

type fakeRemote struct {
	all         []api.Scenario
	filters     []api.ScenarioFilter
	progressErr error
	listErr     error
}

func (f *fakeRemote) ListScenarios(_ context.Context, flt api.ScenarioFilter) ([]api.Scenario, error) {
	f.filters = append(f.filters, flt)
	if f.listErr != nil {
		return nil, f.listErr
	}
	var matched []api.Scenario
	for _, s := range f.all {
		if flt.Category != "" && s.Category != flt.Category {
			continue
		}
		matched = append(matched, s)
	}
	if flt.Skip >= len(matched) {
		return []api.Scenario{}, nil
	}
	end := min(flt.Skip+flt.Limit, len(matched))
	return matched[flt.Skip:end], nil
}

func (f *fakeRemote) GetScenario(_ context.Context, id string) (*api.Scenario, error) {
	for _, s := range f.all {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, &api.StatusError{StatusCode: 404, Detail: "Scenario not found"}
}

func (f *fakeRemote) ScenarioProgress(_ context.Context, id string) (*api.ScenarioProgress, error) {
	if f.progressErr != nil {
		return nil, f.progressErr
	}
	return &api.ScenarioProgress{ScenarioID: id, Attempts: 2, BestScore: 81}, nil
}

func (f *fakeRemote) ScenarioCategories(context.Context) ([]string, error) {
	return []string{"web", "api"}, nil
}

func (f *fakeRemote) ScenarioDifficulties(context.Context) ([]string, error) {
	return []string{"beginner", "expert"}, nil
}

func sampleScenarios(n int) []api.Scenario {
	out := make([]api.Scenario, n)
	for i := range out {
		out[i] = api.Scenario{
			ID:       fmt.Sprintf("s%d", i+1),
			Title:    fmt.Sprintf("Scenario %d", i+1),
			Category: "web",
		}
	}
	return out
}

func TestFetchSendsFilterAndPage(t *testing.T) {
	remote := &fakeRemote{all: sampleScenarios(3)}
	s := New(remote, nil)

	s.SetFilter(Filter{Category: "web", Difficulty: "beginner", Tags: []string{"xss"}, Search: "login"})
	require.NoError(t, s.Fetch(context.Background()))

	require.Len(t, remote.filters, 1)
	got := remote.filters[0]
	assert.Equal(t, "web", got.Category)
	assert.Equal(t, "beginner", got.Difficulty)
	assert.Equal(t, []string{"xss"}, got.Tags)
	assert.Equal(t, "login", got.Search)
	assert.Equal(t, 0, got.Skip)
	assert.Equal(t, DefaultPageSize, got.Limit)
	assert.True(t, s.Loaded())
}

func TestPagination(t *testing.T) {
	remote := &fakeRemote{all: sampleScenarios(5)}
	s := New(remote, nil)
	s.SetPageSize(2)
	ctx := context.Background()

	require.NoError(t, s.Fetch(ctx))
	assert.Equal(t, 1, s.Page())
	assert.True(t, s.HasMore())

	require.NoError(t, s.NextPage(ctx))
	require.NoError(t, s.NextPage(ctx))
	assert.Equal(t, 3, s.Page())
	assert.Equal(t, "s5", s.Scenarios()[0].ID)
	assert.False(t, s.HasMore())

	calls := len(remote.filters)
	require.NoError(t, s.NextPage(ctx))
	assert.Equal(t, calls, len(remote.filters), "no fetch past the last page")

	require.NoError(t, s.PrevPage(ctx))
	assert.Equal(t, 2, s.Page())
	assert.Equal(t, 2, remote.filters[len(remote.filters)-1].Skip)

	s.SetFilter(Filter{Category: "web"})
	assert.Equal(t, 1, s.Page(), "new filter resets to the first page")
}

func TestVisibleClientSideSearch(t *testing.T) {
	remote := &fakeRemote{all: []api.Scenario{
		{ID: "a", Title: "E-commerce Checkout", Category: "web"},
		{ID: "b", Title: "Mobile Banking", Description: "Secure the PAYMENT flow", Category: "web"},
		{ID: "c", Title: "IoT Fleet", Tags: []string{"MQTT", "devices"}, Category: "web"},
	}}
	s := New(remote, nil)
	require.NoError(t, s.Fetch(context.Background()))

	ids := func(list []api.Scenario) []string {
		var out []string
		for _, sc := range list {
			out = append(out, sc.ID)
		}
		return out
	}

	assert.Equal(t, []string{"a", "b", "c"}, ids(s.Visible()))

	s.SetQuery("checkout")
	assert.Equal(t, []string{"a"}, ids(s.Visible()))

	s.SetQuery("payment")
	assert.Equal(t, []string{"b"}, ids(s.Visible()))

	s.SetQuery("mqtt")
	assert.Equal(t, []string{"c"}, ids(s.Visible()))

	s.SetQuery("nothing")
	assert.Empty(t, s.Visible())
	assert.Len(t, s.Scenarios(), 3)
}

func TestSelectLoadsDetailAndProgress(t *testing.T) {
	remote := &fakeRemote{all: sampleScenarios(2)}
	s := New(remote, nil)

	require.NoError(t, s.Select(context.Background(), "s2"))
	assert.Equal(t, "Scenario 2", s.Detail().Title)
	assert.Equal(t, 2, s.Progress().Attempts)

	remote.progressErr = errors.New("down")
	require.NoError(t, s.Select(context.Background(), "s1"))
	assert.Equal(t, "s1", s.Detail().ID)
	assert.Nil(t, s.Progress())

	err := s.Select(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, "s1", s.Detail().ID, "failed select keeps prior detail")
}

func TestFetchFailureKeepsList(t *testing.T) {
	remote := &fakeRemote{all: sampleScenarios(2)}
	s := New(remote, nil)
	require.NoError(t, s.Fetch(context.Background()))

	remote.listErr = errors.New("down")
	require.Error(t, s.Fetch(context.Background()))
	assert.Len(t, s.Scenarios(), 2)
}

func TestFailedPageChangeKeepsPosition(t *testing.T) {
	remote := &fakeRemote{all: sampleScenarios(5)}
	s := New(remote, nil)
	s.SetPageSize(2)
	ctx := context.Background()
	require.NoError(t, s.Fetch(ctx))

	remote.listErr = errors.New("down")
	require.Error(t, s.NextPage(ctx))
	assert.Equal(t, 1, s.Page())
	assert.Equal(t, "s1", s.Scenarios()[0].ID)

	remote.listErr = nil
	require.NoError(t, s.NextPage(ctx))
	assert.Equal(t, 2, s.Page(), "retry lands on the page that failed")
	assert.Equal(t, "s3", s.Scenarios()[0].ID)

	remote.listErr = errors.New("down")
	require.Error(t, s.PrevPage(ctx))
	assert.Equal(t, 2, s.Page())
	assert.Equal(t, "s3", s.Scenarios()[0].ID)
}

func TestLoadFacets(t *testing.T) {
	s := New(&fakeRemote{}, nil)
	require.NoError(t, s.LoadFacets(context.Background()))
	assert.Equal(t, []string{"web", "api"}, s.Categories())
	assert.Equal(t, []string{"beginner", "expert"}, s.Difficulties())
}
