// Package output decides which artifacts a mart build persists and writes
// them to disk.
//
// A run produces four artifacts sharing one epoch token:
//
//	{stage}/clinician_raw_{epoch}.csv   staged copy of the clinician input
//	{stage}/provider_raw_{epoch}.csv    staged copy of the provider input
//	{mart}/{prefix}_{epoch}.csv         versioned mart, never overwritten
//	{mart}/{prefix}_latest.csv          latest mart, overwritten every run
package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"clinicianmart/internal/dataset"
	"clinicianmart/internal/pipeline"
)

// ErrArtifactExists is returned when a create-only artifact is already on disk.
var ErrArtifactExists = errors.New("artifact already exists")

// Artifact kinds.
const (
	KindStagedClinician = "staged_clinician"
	KindStagedProvider  = "staged_provider"
	KindMartVersioned   = "mart_versioned"
	KindMartLatest      = "mart_latest"
)

// Mode is the write semantics of an artifact.
type Mode int

const (
	// Create writes a new file and fails if the path exists.
	Create Mode = iota
	// Overwrite replaces whatever is at the path.
	Overwrite
)

func (m Mode) String() string {
	if m == Overwrite {
		return "overwrite"
	}
	return "create"
}

// Artifact is one logical file to persist.
type Artifact struct {
	Kind string
	Path string
	Data *dataset.Dataset
	Mode Mode
}

// Plan is the ordered set of artifacts of one run.
type Plan struct {
	Epoch     int64
	Artifacts []Artifact
}

// Layout names the destination folders and the mart file prefix.
type Layout struct {
	StageFolder string
	MartFolder  string
	Prefix      string
}

// Clock returns the current time.
type Clock func() time.Time

// Epoch returns the run's epoch token in whole seconds. A nil clock uses
// time.Now.
func Epoch(c Clock) int64 {
	if c == nil {
		c = time.Now
	}
	return c().Unix()
}

// NewPlan lays out the artifacts for res. Staged copies come first and the
// latest mart last, so a failure part-way never advances "latest".
func NewPlan(l Layout, epoch int64, res *pipeline.Result) Plan {
	token := strconv.FormatInt(epoch, 10)
	return Plan{
		Epoch: epoch,
		Artifacts: []Artifact{
			{Kind: KindStagedClinician, Path: filepath.Join(l.StageFolder, "clinician_raw_"+token+".csv"), Data: res.Clinician, Mode: Create},
			{Kind: KindStagedProvider, Path: filepath.Join(l.StageFolder, "provider_raw_"+token+".csv"), Data: res.Provider, Mode: Create},
			{Kind: KindMartVersioned, Path: filepath.Join(l.MartFolder, l.Prefix+"_"+token+".csv"), Data: res.Mart, Mode: Create},
			{Kind: KindMartLatest, Path: filepath.Join(l.MartFolder, l.Prefix+"_latest.csv"), Data: res.Mart, Mode: Overwrite},
		},
	}
}

// EncodeFunc serializes a dataset.
type EncodeFunc func(w io.Writer, ds *dataset.Dataset) error

// Write persists every artifact of p in order and returns those written.
//
// Create-mode paths are all checked before anything is written. Each file is
// encoded into a temporary file in its destination folder and then moved into
// place, so a failed encode never leaves a truncated artifact behind.
func Write(p Plan, enc EncodeFunc) ([]Artifact, error) {
	for _, a := range p.Artifacts {
		if a.Mode != Create {
			continue
		}
		if _, err := os.Lstat(a.Path); err == nil {
			return nil, fmt.Errorf("%s %s: %w", a.Kind, a.Path, ErrArtifactExists)
		}
	}

	written := make([]Artifact, 0, len(p.Artifacts))
	for _, a := range p.Artifacts {
		if err := writeArtifact(a, enc); err != nil {
			return written, fmt.Errorf("%s %s: %w", a.Kind, a.Path, err)
		}
		written = append(written, a)
	}
	return written, nil
}

func writeArtifact(a Artifact, enc EncodeFunc) error {
	if a.Data == nil {
		return errors.New("no data")
	}
	tmp, err := os.CreateTemp(filepath.Dir(a.Path), "."+filepath.Base(a.Path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a rename

	if err := enc(tmp, a.Data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}

	if a.Mode == Overwrite {
		return os.Rename(tmpName, a.Path)
	}
	// A hard link fails when the destination exists, which closes the gap
	// between the pre-check above and this point.
	if err := os.Link(tmpName, a.Path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrArtifactExists
		}
		return err
	}
	return nil
}
