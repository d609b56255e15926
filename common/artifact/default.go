package artifact

// DefaultVersion identifies the built-in development artifact.
const DefaultVersion = "dev-1"

type featureSpec struct {
	name     string
	baseline float64
	spread   float64
}

// Ordered alphabetically to match deterministic vector derivation.
var defaultSpecs = map[string][]featureSpec{
	"temperature": {
		{name: "setpoint_delta", baseline: 0.0, spread: 1.5},
		{name: "temp_c", baseline: 4.0, spread: 2.0},
	},
	"humidity": {
		{name: "humidity_pct", baseline: 45.0, spread: 10.0},
		{name: "setpoint_delta", baseline: 0.0, spread: 8.0},
	},
	"location": {
		{name: "lat", baseline: 0.0, spread: 5.0},
		{name: "lon", baseline: 0.0, spread: 5.0},
		{name: "speed_kmh", baseline: 60.0, spread: 25.0},
	},
	"mixed": {
		{name: "humidity_pct", baseline: 45.0, spread: 10.0},
		{name: "lat", baseline: 0.0, spread: 5.0},
		{name: "lon", baseline: 0.0, spread: 5.0},
		{name: "temp_c", baseline: 4.0, spread: 2.0},
	},
}

// Default returns the built-in development artifact. Detector parameters are
// synthesized from the per-feature baselines so the pipeline works end to end
// without a trained artifact file; production deployments load a real one.
func Default() *Artifact {
	a := &Artifact{
		Version:   DefaultVersion,
		DataTypes: make(map[string]TypeModel, len(defaultSpecs)),
	}
	for dt, specs := range defaultSpecs {
		features := make([]string, len(specs))
		baselines := make(map[string]float64, len(specs))
		for i, s := range specs {
			features[i] = s.name
			baselines[s.name] = s.baseline
		}
		a.DataTypes[dt] = TypeModel{
			Schema:  FeatureSchema{Features: features, Baselines: baselines},
			Forest:  synthForest(specs),
			SVM:     synthSVM(specs),
			Density: synthDensity(specs),
		}
	}
	return a
}

// synthForest builds one band tree per feature: points outside
// baseline±3·spread isolate at depth 1 or 2, in-band points land in a large
// leaf whose size extends the effective path length.
func synthForest(specs []featureSpec) *ForestParams {
	trees := make([]Tree, 0, len(specs))
	for i, s := range specs {
		lo := s.baseline - 3*s.spread
		hi := s.baseline + 3*s.spread
		trees = append(trees, Tree{Root: &Node{
			Feature: i,
			Split:   lo,
			Left:    &Node{Leaf: true, Size: 1},
			Right: &Node{
				Feature: i,
				Split:   hi,
				Left:    &Node{Leaf: true, Size: 128},
				Right:   &Node{Leaf: true, Size: 1},
			},
		}})
	}
	return &ForestParams{Trees: trees, SampleSize: 256}
}

// synthSVM centers an RBF boundary on the baseline point with a ring of
// support vectors one spread away on each axis.
func synthSVM(specs []featureSpec) *SVMParams {
	d := len(specs)
	center := make([]float64, d)
	for i, s := range specs {
		center[i] = s.baseline
	}

	svs := [][]float64{center}
	for i, s := range specs {
		for _, dir := range []float64{-1, 1} {
			p := make([]float64, d)
			copy(p, center)
			p[i] += dir * s.spread
			svs = append(svs, p)
		}
	}

	alphas := make([]float64, len(svs))
	for i := range alphas {
		alphas[i] = 1.0 / float64(len(svs))
	}

	// Gamma scaled by mean squared spread so kernel width tracks the data.
	var msq float64
	for _, s := range specs {
		msq += s.spread * s.spread
	}
	msq /= float64(d)
	gamma := 1.0 / (float64(d) * msq)

	return &SVMParams{
		Gamma:          gamma,
		Rho:            0.5,
		SupportVectors: svs,
		Alphas:         alphas,
	}
}

// synthDensity places reference points on a fixed grid around the baseline.
func synthDensity(specs []featureSpec) *DensityParams {
	d := len(specs)
	center := make([]float64, d)
	var eps float64
	for i, s := range specs {
		center[i] = s.baseline
		eps += s.spread
	}
	eps = 2 * eps / float64(d)

	points := [][]float64{center}
	for i, s := range specs {
		for _, f := range []float64{-0.5, 0.5, -1, 1} {
			p := make([]float64, d)
			copy(p, center)
			p[i] += f * s.spread
			points = append(points, p)
		}
	}

	return &DensityParams{Eps: eps, MinPoints: 4, Points: points}
}
