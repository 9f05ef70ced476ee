package pipeline

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"clinicianmart/internal/dataset"
	"clinicianmart/internal/transformer/builtin"
)

var (
	clinicianCols = []string{"provider first", "provider last", "NPI", "title"}
	providerCols  = []string{"first name", "last_name", "NPI", "title"}
)

func newDataset(t *testing.T, name string, cols []string, rows ...[]string) *dataset.Dataset {
	t.Helper()
	ds := dataset.New(name, cols)
	for _, r := range rows {
		row := make(dataset.Row, len(r))
		for i, v := range r {
			row[i] = v
		}
		require.NoError(t, ds.Append(row))
	}
	return ds
}

func martSpec(keep string) Spec {
	return Spec{
		Mapping: builtin.Mapping{
			Targets: []builtin.TargetColumn{
				{Name: "given_name", Sources: map[string]string{"clinician": "provider first", "provider": "first name"}},
				{Name: "sur_name", Sources: map[string]string{"clinician": "provider last", "provider": "last_name"}},
				{Name: "NPI", Sources: map[string]string{"clinician": "NPI", "provider": "NPI"}},
				{Name: "title", Sources: map[string]string{"clinician": "title", "provider": "title"}},
			},
		},
		Filters:   []builtin.FilterSpec{{Column: "title", Values: []string{"Dr"}}},
		Normalize: []builtin.FieldRule{{Column: "NPI", Rule: builtin.RuleNPISplit}},
		Dedup:     builtin.DeDup{Keys: []string{"NPI"}, Policy: keep},
	}
}

func values(t *testing.T, ds *dataset.Dataset, col string) []string {
	t.Helper()
	idx, ok := ds.Index(col)
	require.True(t, ok, "column %q", col)
	out := make([]string, len(ds.Rows))
	for i, r := range ds.Rows {
		out[i] = dataset.String(r[idx])
	}
	return out
}

func TestRun_Smoke(t *testing.T) {
	t.Parallel()

	cl := newDataset(t, "clinician", clinicianCols,
		[]string{"Ann", "Lee", "10-1000001", "Dr"},
		[]string{"Bo", "Kim", "10-1000002", "Dr"},
	)
	pr := newDataset(t, "provider", providerCols,
		[]string{"Cy", "Ng", "20-2000001", "Dr"},
	)

	res, err := Run(martSpec("first"), cl, pr)
	require.NoError(t, err)

	require.Equal(t, 3, res.Mart.Len())
	require.Equal(t, []string{"given_name", "sur_name", "NPI", "title"}, res.Mart.Columns)
	require.Equal(t, []string{"Ann", "Bo", "Cy"}, values(t, res.Mart, "given_name"))
	require.Equal(t, []string{"1000001", "1000002", "2000001"}, values(t, res.Mart, "NPI"))

	require.True(t, res.Stats.Conserved())
	require.Equal(t, Stats{Clinician: 2, Provider: 1, Unified: 3, Filtered: 3, Deduped: 3}, withoutSteps(res.Stats))
	require.Len(t, res.Stats.Steps, 4)
	require.Equal(t, StageUnify, res.Stats.Steps[0].Name)
	require.Equal(t, StageDedup, res.Stats.Steps[3].Name)
}

func withoutSteps(s Stats) Stats {
	s.Steps = nil
	return s
}

func TestRun_Duplicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		keep      string
		wantGiven string
	}{
		{keep: "first", wantGiven: "Ann"},
		{keep: "last", wantGiven: "Annie"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.keep, func(t *testing.T) {
			t.Parallel()

			cl := newDataset(t, "clinician", clinicianCols,
				[]string{"Ann", "Lee", "10-1000001", "Dr"},
				[]string{"Bo", "Kim", "10-1000002", "Dr"},
			)
			pr := newDataset(t, "provider", providerCols,
				[]string{"Annie", "Lee", "99-1000001", "Dr"},
			)

			res, err := Run(martSpec(tc.keep), cl, pr)
			require.NoError(t, err)
			require.Equal(t, 2, res.Mart.Len())

			var got []string
			for i, npi := range values(t, res.Mart, "NPI") {
				if npi == "1000001" {
					got = append(got, values(t, res.Mart, "given_name")[i])
				}
			}
			require.Equal(t, []string{tc.wantGiven}, got)
			require.Equal(t, 3, res.Stats.Unified)
			require.Equal(t, 2, res.Stats.Deduped)
		})
	}
}

func TestRun_FilterMixed(t *testing.T) {
	t.Parallel()

	cl := newDataset(t, "clinician", clinicianCols,
		[]string{"Ann", "Lee", "10-1", "Dr"},
		[]string{"Bo", "Kim", "10-2", "RN"},
	)
	pr := newDataset(t, "provider", providerCols,
		[]string{"Cy", "Ng", "20-3", "NP"},
		[]string{"Di", "Oh", "20-4", "Dr"},
	)

	res, err := Run(martSpec("first"), cl, pr)
	require.NoError(t, err)
	require.Equal(t, []string{"Dr", "Dr"}, values(t, res.Mart, "title"))
	require.Equal(t, []string{"Ann", "Di"}, values(t, res.Mart, "given_name"))
	require.Equal(t, 4, res.Stats.Unified)
	require.Equal(t, 2, res.Stats.Filtered)
}

func TestRun_FilterEmpty(t *testing.T) {
	t.Parallel()

	cl := newDataset(t, "clinician", clinicianCols, []string{"Ann", "Lee", "10-1", "Dr"})
	pr := newDataset(t, "provider", providerCols, []string{"Cy", "Ng", "20-3", "Dr"})

	spec := martSpec("first")
	spec.Filters = []builtin.FilterSpec{{Column: "title", Values: nil}}

	res, err := Run(spec, cl, pr)
	require.NoError(t, err)
	require.Equal(t, 0, res.Mart.Len())
	require.Equal(t, 2, res.Stats.Unified)
}

func TestRun_EmptySpecsAreNoOps(t *testing.T) {
	t.Parallel()

	cl := newDataset(t, "clinician", clinicianCols, []string{"Ann", "Lee", "10-1", "RN"})
	pr := newDataset(t, "provider", providerCols, []string{"Ann", "Lee", "10-1", "RN"})

	spec := martSpec("")
	spec.Filters = nil
	spec.Normalize = nil
	spec.Dedup = builtin.DeDup{}

	res, err := Run(spec, cl, pr)
	require.NoError(t, err)
	require.Equal(t, 2, res.Mart.Len())
	require.Equal(t, []string{"10-1", "10-1"}, values(t, res.Mart, "NPI"))
}

func TestRun_LeavesSourcesUntouched(t *testing.T) {
	t.Parallel()

	cl := newDataset(t, "clinician", clinicianCols, []string{"Ann", "Lee", "10-1", "Dr"})
	pr := newDataset(t, "provider", providerCols, []string{"Cy", "Ng", "20-3", "Dr"})

	res, err := Run(martSpec("last"), cl, pr)
	require.NoError(t, err)
	require.Same(t, cl, res.Clinician)
	require.Same(t, pr, res.Provider)
	require.Equal(t, []string{"10-1"}, values(t, cl, "NPI"))
	require.Equal(t, []string{"20-3"}, values(t, pr, "NPI"))
}

// One clinician export paired with several provider exports: runs share the
// source dataset and must not write to it.
func TestRun_ConcurrentRunsShareSource(t *testing.T) {
	t.Parallel()

	cl := newDataset(t, "clinician", clinicianCols,
		[]string{"Ann", "Lee", "10-1000001", "Dr"},
		[]string{"Bo", "Kim", "10-1000002", "Dr"},
	)

	const runs = 8
	var wg sync.WaitGroup
	errs := make(chan error, runs)
	marts := make(chan int, runs)
	for i := 0; i < runs; i++ {
		pr := newDataset(t, "provider", providerCols, []string{"Cy", "Ng", "20-2000001", "Dr"})
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := Run(martSpec("first"), cl, pr)
			if err != nil {
				errs <- err
				return
			}
			marts <- res.Mart.Len()
		}()
	}
	wg.Wait()
	close(errs)
	close(marts)

	for err := range errs {
		require.NoError(t, err)
	}
	for n := range marts {
		require.Equal(t, 3, n)
	}
	require.Equal(t, []string{"10-1000001", "10-1000002"}, values(t, cl, "NPI"))
}

func TestRun_SourceOrderDecidesSurvivor(t *testing.T) {
	t.Parallel()

	cl := newDataset(t, "clinician", clinicianCols, []string{"Ann", "Lee", "10-1", "Dr"})
	pr := newDataset(t, "provider", providerCols, []string{"Annie", "Lee", "20-1", "Dr"})

	spec := martSpec("first")
	spec.Mapping.Order = []string{builtin.SourceProvider, builtin.SourceClinician}

	res, err := Run(spec, cl, pr)
	require.NoError(t, err)
	require.Equal(t, []string{"Annie"}, values(t, res.Mart, "given_name"))
}

func TestRun_ColumnNotFound(t *testing.T) {
	t.Parallel()

	cl := newDataset(t, "clinician", []string{"provider first", "NPI", "title"}, []string{"Ann", "1", "Dr"})
	pr := newDataset(t, "provider", providerCols, []string{"Cy", "Ng", "2", "Dr"})

	_, err := Run(martSpec("first"), cl, pr)
	require.Error(t, err)
	require.ErrorIs(t, err, builtin.ErrColumnNotFound)

	var ce *builtin.ColumnError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, "clinician", ce.Dataset)
	require.Equal(t, "provider last", ce.Column)

	var pe *Error
	require.True(t, errors.As(err, &pe))
	require.Len(t, pe.Stats.Steps, 1)
	require.Equal(t, StageUnify, pe.Stats.Steps[0].Name)
}

func TestRun_MissingDedupPolicy(t *testing.T) {
	t.Parallel()

	cl := newDataset(t, "clinician", clinicianCols, []string{"Ann", "Lee", "10-1", "Dr"})
	pr := newDataset(t, "provider", providerCols, []string{"Cy", "Ng", "20-3", "Dr"})

	_, err := Run(martSpec(""), cl, pr)
	require.ErrorContains(t, err, "keep policy is required")
}

func TestRun_RequiresBothSources(t *testing.T) {
	t.Parallel()

	_, err := Run(martSpec("first"), nil, dataset.New("provider", providerCols))
	require.Error(t, err)
}
