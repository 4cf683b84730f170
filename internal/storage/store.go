package storage

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/langevin/internal/analysis"
	"github.com/san-kum/langevin/internal/config"
	"github.com/san-kum/langevin/internal/dynamo"
	"github.com/san-kum/langevin/internal/ensemble"
)

const (
	metadataFile = "metadata.json"
	samplesFile  = "fpt.csv"
	trialsDir    = "trials"

	// TrialHeader is the first line of every trajectory file.
	TrialHeader = "index, t, x, v"
)

// Run kinds.
const (
	KindTrajectory = "run"
	KindEnsemble   = "fpt"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID        string             `json:"id"`
	Kind      string             `json:"kind"`
	Timestamp time.Time          `json:"timestamp"`
	Config    config.Config      `json:"config"`
	Trials    int                `json:"trials"`
	Absorbed  int                `json:"absorbed"`
	Censored  int                `json:"censored"`
	Summary   analysis.Summary   `json:"summary"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// Run is an open run directory. WriteTrajectory may be called
// concurrently for distinct trials.
type Run struct {
	Meta RunMetadata
	dir  string
}

// Create makes a fresh run directory and writes its initial metadata.
func (s *Store) Create(kind string, cfg config.Config) (*Run, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}

	now := time.Now()
	base := fmt.Sprintf("%s_%s", kind, now.Format("20060102-150405"))
	id := base
	for n := 1; ; n++ {
		err := os.Mkdir(filepath.Join(s.baseDir, id), 0755)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}

	run := &Run{
		dir: filepath.Join(s.baseDir, id),
		Meta: RunMetadata{
			ID:        id,
			Kind:      kind,
			Timestamp: now,
			Config:    cfg,
			Trials:    cfg.Trials,
		},
	}
	if err := os.MkdirAll(filepath.Join(run.dir, trialsDir), 0755); err != nil {
		return nil, err
	}
	if err := run.writeMetadata(); err != nil {
		return nil, err
	}
	slog.Info("created run", slog.String("id", id), slog.String("dir", run.dir))
	return run, nil
}

func (r *Run) Dir() string { return r.dir }

func trialFile(trial int) string {
	return fmt.Sprintf("trial_%05d.dat", trial)
}

// WriteTrajectory stores one realization as trials/trial_NNNNN.dat. It
// has the signature of ensemble.Sink.
func (r *Run) WriteTrajectory(trial int, traj *dynamo.Trajectory) error {
	f, err := os.Create(filepath.Join(r.dir, trialsDir, trialFile(trial)))
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := fmt.Fprintln(w, TrialHeader); err != nil {
		return err
	}

	var buf []byte
	for i := range traj.Len() {
		buf = strconv.AppendInt(buf[:0], int64(i), 10)
		for _, v := range []float64{traj.Times[i], traj.Positions[i], traj.Velocities[i]} {
			buf = append(buf, ' ')
			buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
		}
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// RecordTrajectory finishes a single-trajectory run.
func (r *Run) RecordTrajectory(traj *dynamo.Trajectory) error {
	if err := r.WriteTrajectory(0, traj); err != nil {
		return err
	}
	r.Meta.Trials = 1
	r.Meta.Metrics = traj.Metrics
	if traj.Absorbed {
		r.Meta.Absorbed = 1
		t, _, _ := traj.Final()
		r.Meta.Summary = analysis.Summarize([]float64{t})
	} else {
		r.Meta.Censored = 1
	}
	return r.writeMetadata()
}

// RecordEnsemble writes the sample set and the final counts.
func (r *Run) RecordEnsemble(res *ensemble.Result) error {
	f, err := os.Create(filepath.Join(r.dir, samplesFile))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"trial", "time"}); err != nil {
		return err
	}
	for _, o := range res.Outcomes {
		if !o.Absorbed {
			continue
		}
		row := []string{strconv.Itoa(o.Index), strconv.FormatFloat(o.PassageTime, 'g', -1, 64)}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	r.Meta.Trials = res.Trials
	r.Meta.Absorbed = res.Absorbed
	r.Meta.Censored = res.Censored
	r.Meta.Summary = res.Summary
	return r.writeMetadata()
}

func (r *Run) writeMetadata() error {
	f, err := os.Create(filepath.Join(r.dir, metadataFile))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.Meta); err != nil {
		return err
	}
	return f.Close()
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	slices.SortFunc(runs, func(a, b RunMetadata) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadTrajectory reads back one trial file.
func (s *Store) LoadTrajectory(runID string, trial int) (*dynamo.Trajectory, error) {
	path := filepath.Join(s.baseDir, runID, trialsDir, trialFile(trial))
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	traj := dynamo.NewTrajectory(0)
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if line == 1 {
			if text != TrialHeader {
				return nil, fmt.Errorf("%s: unexpected header %q", path, text)
			}
			continue
		}
		if text == "" {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) != 4 {
			return nil, fmt.Errorf("%s:%d: want 4 fields, got %d", path, line, len(fields))
		}
		var vals [3]float64
		for i := range vals {
			v, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, line, err)
			}
			vals[i] = v
		}
		traj.Append(vals[0], dynamo.State{vals[1], vals[2]})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return traj, nil
}

// LoadSamples reads the first-passage times of an ensemble run.
func (s *Store) LoadSamples(runID string) ([]float64, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, samplesFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []float64{}, nil
	}

	samples := make([]float64, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) != 2 {
			return nil, fmt.Errorf("run %s: malformed sample row %v", runID, rec)
		}
		v, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}
		samples = append(samples, v)
	}
	return samples, nil
}
