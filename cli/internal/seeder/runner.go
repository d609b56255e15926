package seeder

import (
	"fmt"
	"log"
	"time"

	"github.com/chaintrace-systems/chaintrace-stack/cli/internal/client"
)

// Options controls one seeding run.
type Options struct {
	OrgID       string
	Count       int
	AnomalyRate float64 // fraction of readings pushed out of band, 0..1
	DataTypes   []string
	Interval    time.Duration // pause between submissions, 0 for full speed
	Seed        int64
}

// Result summarizes a completed run.
type Result struct {
	Submitted int
	Failed    int
	Flagged   map[string]int // count of returned verdicts per severity
}

// Runner drives the generator against the detection service.
type Runner struct {
	opts   Options
	detect *client.DetectClient
	gen    *Generator
}

func NewRunner(opts Options, detect *client.DetectClient) *Runner {
	if opts.Count <= 0 {
		opts.Count = 100
	}
	if len(opts.DataTypes) == 0 {
		opts.DataTypes = []string{"temperature", "humidity", "location", "mixed"}
	}
	return &Runner{
		opts:   opts,
		detect: detect,
		gen:    NewGenerator(opts.OrgID, opts.Seed),
	}
}

// Run generates and submits opts.Count readings, logging progress every
// tenth of the run.
func (r *Runner) Run() (*Result, error) {
	if r.opts.OrgID == "" {
		return nil, fmt.Errorf("org ID is required")
	}

	log.Printf("Seeding %d readings for %s (anomaly rate %.0f%%, types %v)",
		r.opts.Count, r.opts.OrgID, r.opts.AnomalyRate*100, r.opts.DataTypes)

	res := &Result{Flagged: make(map[string]int)}
	progressEvery := r.opts.Count / 10
	if progressEvery < 1 {
		progressEvery = 1
	}

	for i := 0; i < r.opts.Count; i++ {
		dataType := r.opts.DataTypes[r.gen.rng.Intn(len(r.opts.DataTypes))]
		anomalous := r.gen.rng.Float64() < r.opts.AnomalyRate

		rec, err := r.detect.Submit(r.gen.Generate(dataType, anomalous))
		if err != nil {
			res.Failed++
			log.Printf("submission %d failed: %v", i+1, err)
		} else {
			res.Submitted++
			res.Flagged[string(rec.Verdict.Severity)]++
		}

		if (i+1)%progressEvery == 0 {
			log.Printf("Progress: %d/%d submitted", i+1, r.opts.Count)
		}
		if r.opts.Interval > 0 && i < r.opts.Count-1 {
			time.Sleep(r.opts.Interval)
		}
	}

	return res, nil
}
