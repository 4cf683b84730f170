package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/langevin/internal/analysis"
	"github.com/san-kum/langevin/internal/config"
	"github.com/san-kum/langevin/internal/dynamo"
	"github.com/san-kum/langevin/internal/ensemble"
)

func sampleTrajectory() *dynamo.Trajectory {
	tr := dynamo.NewTrajectory(3)
	tr.Append(0, dynamo.State{2.5, 0})
	tr.Append(0.001, dynamo.State{2.4999, -0.125})
	tr.Append(0.002, dynamo.State{5.0000001, 1e-9})
	tr.Absorbed = true
	tr.Truncated = true
	tr.Metrics = map[string]float64{"max_excursion": 2.5000001}
	return tr
}

func TestTrajectoryFileFormat(t *testing.T) {
	st := New(t.TempDir())
	run, err := st.Create(KindTrajectory, *config.DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, run.WriteTrajectory(7, sampleTrajectory()))

	data, err := os.ReadFile(filepath.Join(run.Dir(), "trials", "trial_00007.dat"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "index, t, x, v", lines[0])
	assert.Equal(t, "0 0 2.5 0", lines[1])
	assert.Equal(t, "1 0.001 2.4999 -0.125", lines[2])
	assert.Equal(t, "2 0.002 5.0000001 1e-09", lines[3])
}

func TestTrajectoryRoundTrip(t *testing.T) {
	st := New(t.TempDir())
	run, err := st.Create(KindTrajectory, *config.DefaultConfig())
	require.NoError(t, err)

	want := sampleTrajectory()
	require.NoError(t, run.RecordTrajectory(want))

	got, err := st.LoadTrajectory(run.Meta.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, want.Times, got.Times)
	assert.Equal(t, want.Positions, got.Positions)
	assert.Equal(t, want.Velocities, got.Velocities)

	meta, err := st.Load(run.Meta.ID)
	require.NoError(t, err)
	assert.Equal(t, KindTrajectory, meta.Kind)
	assert.Equal(t, 1, meta.Absorbed)
	assert.Equal(t, 0.002, meta.Summary.Mean)
	assert.Equal(t, 2.5000001, meta.Metrics["max_excursion"])
}

func TestEnsembleRoundTrip(t *testing.T) {
	st := New(t.TempDir())
	cfg := *config.DefaultConfig()
	cfg.Seed = 42
	cfg.Trials = 3

	run, err := st.Create(KindEnsemble, cfg)
	require.NoError(t, err)

	samples := []float64{0.25, 0.125}
	res := &ensemble.Result{
		Trials:   3,
		Absorbed: 2,
		Censored: 1,
		Samples:  samples,
		Outcomes: []ensemble.Outcome{
			{Index: 0, Absorbed: true, PassageTime: 0.25},
			{Index: 1},
			{Index: 2, Absorbed: true, PassageTime: 0.125},
		},
		Summary: analysis.Summarize(samples),
	}
	require.NoError(t, run.RecordEnsemble(res))

	got, err := st.LoadSamples(run.Meta.ID)
	require.NoError(t, err)
	assert.Equal(t, samples, got)

	meta, err := st.Load(run.Meta.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), meta.Config.Seed)
	assert.Equal(t, 3, meta.Trials)
	assert.Equal(t, 2, meta.Absorbed)
	assert.Equal(t, 1, meta.Censored)
	assert.Equal(t, 2, meta.Summary.Count)
}

func TestEmptySampleSet(t *testing.T) {
	st := New(t.TempDir())
	run, err := st.Create(KindEnsemble, *config.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, run.RecordEnsemble(&ensemble.Result{Trials: 2, Censored: 2}))

	got, err := st.LoadSamples(run.Meta.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCreateUniqueIDs(t *testing.T) {
	st := New(t.TempDir())
	seen := map[string]bool{}
	for range 3 {
		run, err := st.Create(KindEnsemble, *config.DefaultConfig())
		require.NoError(t, err)
		assert.False(t, seen[run.Meta.ID], "duplicate id %s", run.Meta.ID)
		seen[run.Meta.ID] = true
	}

	runs, err := st.List()
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "absent"))
	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestListSkipsForeignDirs(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	_, err := st.Create(KindEnsemble, *config.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "junk"), 0755))

	runs, err := st.List()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestLoadTrajectoryRejectsBadFiles(t *testing.T) {
	st := New(t.TempDir())
	run, err := st.Create(KindTrajectory, *config.DefaultConfig())
	require.NoError(t, err)
	trials := filepath.Join(run.Dir(), "trials")

	require.NoError(t, os.WriteFile(filepath.Join(trials, "trial_00001.dat"), []byte("time x v\n0 1 2\n"), 0644))
	_, err = st.LoadTrajectory(run.Meta.ID, 1)
	assert.ErrorContains(t, err, "unexpected header")

	require.NoError(t, os.WriteFile(filepath.Join(trials, "trial_00002.dat"), []byte("index, t, x, v\n0 1 2\n"), 0644))
	_, err = st.LoadTrajectory(run.Meta.ID, 2)
	assert.ErrorContains(t, err, "want 4 fields")

	_, err = st.LoadTrajectory(run.Meta.ID, 3)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteTrajectoryAsSink(t *testing.T) {
	st := New(t.TempDir())
	run, err := st.Create(KindEnsemble, *config.DefaultConfig())
	require.NoError(t, err)

	var sink ensemble.Sink = run.WriteTrajectory
	require.NoError(t, sink(12, sampleTrajectory()))
	_, err = os.Stat(filepath.Join(run.Dir(), "trials", "trial_00012.dat"))
	assert.NoError(t, err)
}
