// Package artifact loads and serves the versioned model artifact: per-data-type
// feature schemas with baselines plus trained detector parameters. Artifacts are
// immutable once loaded; a retrain ships as a new artifact file with a new version.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

// Artifact is the full model bundle shared read-only across goroutines.
type Artifact struct {
	Version   string               `json:"version"`
	DataTypes map[string]TypeModel `json:"data_types"`
}

// TypeModel holds everything needed to score one data type.
type TypeModel struct {
	Schema  FeatureSchema  `json:"schema"`
	Forest  *ForestParams  `json:"forest,omitempty"`
	SVM     *SVMParams     `json:"svm,omitempty"`
	Density *DensityParams `json:"density,omitempty"`
}

// FeatureSchema fixes the ordered feature set for a data type and the
// per-feature baseline values used for attribution.
type FeatureSchema struct {
	Features  []string           `json:"features"`
	Baselines map[string]float64 `json:"baselines"`
}

// ForestParams holds a trained isolation forest.
type ForestParams struct {
	Trees      []Tree `json:"trees"`
	SampleSize int    `json:"sample_size"`
}

// Tree is one isolation tree.
type Tree struct {
	Root *Node `json:"root"`
}

// Node is one isolation tree node. Feature indexes into the schema's
// ordered feature list.
type Node struct {
	Leaf    bool    `json:"leaf"`
	Size    int     `json:"size,omitempty"`
	Feature int     `json:"feature,omitempty"`
	Split   float64 `json:"split,omitempty"`
	Left    *Node   `json:"left,omitempty"`
	Right   *Node   `json:"right,omitempty"`
}

// SVMParams holds a trained one-class SVM (RBF kernel).
type SVMParams struct {
	Gamma          float64     `json:"gamma"`
	Rho            float64     `json:"rho"`
	SupportVectors [][]float64 `json:"support_vectors"`
	Alphas         []float64   `json:"alphas"`
}

// DensityParams holds the reference points for density scoring.
type DensityParams struct {
	Eps       float64     `json:"eps"`
	MinPoints int         `json:"min_points"`
	Points    [][]float64 `json:"points"`
}

// Load reads and validates an artifact file. When version is non-empty the
// file's version must match, guarding against stale deployments.
func Load(path, version string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse artifact: %w", err)
	}

	if err := a.validate(); err != nil {
		return nil, fmt.Errorf("invalid artifact %q: %w", path, err)
	}
	if version != "" && a.Version != version {
		return nil, fmt.Errorf("artifact version mismatch: want %q, file has %q", version, a.Version)
	}
	return &a, nil
}

func (a *Artifact) validate() error {
	if a.Version == "" {
		return fmt.Errorf("missing version")
	}
	if len(a.DataTypes) == 0 {
		return fmt.Errorf("no data types")
	}
	for dt, tm := range a.DataTypes {
		if len(tm.Schema.Features) == 0 {
			return fmt.Errorf("data type %q: empty feature schema", dt)
		}
		for _, f := range tm.Schema.Features {
			if _, ok := tm.Schema.Baselines[f]; !ok {
				return fmt.Errorf("data type %q: feature %q has no baseline", dt, f)
			}
		}
		if tm.SVM != nil && len(tm.SVM.SupportVectors) != len(tm.SVM.Alphas) {
			return fmt.Errorf("data type %q: support vector / alpha count mismatch", dt)
		}
	}
	return nil
}

// ModelFor returns the type model for a data type.
func (a *Artifact) ModelFor(dt models.DataType) (*TypeModel, error) {
	tm, ok := a.DataTypes[string(dt)]
	if !ok {
		return nil, fmt.Errorf("no model for data type %q in artifact %s", dt, a.Version)
	}
	return &tm, nil
}

// SchemaMatches reports whether a stored feature vector still matches the
// artifact's schema for the data type. Explanations require an exact match.
func (a *Artifact) SchemaMatches(dt models.DataType, vec models.FeatureVector) bool {
	tm, ok := a.DataTypes[string(dt)]
	if !ok {
		return false
	}
	if len(tm.Schema.Features) != vec.Len() {
		return false
	}
	for i, f := range tm.Schema.Features {
		if vec.Names[i] != f {
			return false
		}
	}
	return true
}

// BaselineVector returns the schema's baseline point as a feature vector.
func (a *Artifact) BaselineVector(dt models.DataType) (models.FeatureVector, error) {
	tm, err := a.ModelFor(dt)
	if err != nil {
		return models.FeatureVector{}, err
	}
	return models.NewFeatureVector(tm.Schema.Baselines), nil
}
