package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/budgetopt/surrogate/apis/config/v1alpha1"
	"github.com/budgetopt/surrogate/pkg/multiobjective"
	"github.com/budgetopt/surrogate/pkg/multiobjective/algorithms"
	"github.com/budgetopt/surrogate/pkg/multiobjective/framework"
	"github.com/budgetopt/surrogate/pkg/multiobjective/util"
	"github.com/budgetopt/surrogate/pkg/onnx"
	"github.com/budgetopt/surrogate/pkg/surrogate"
)

// Options are per-invocation settings that are not part of the configuration file.
type Options struct {
	// PlotDir receives a scatter plot of one reference search when set.
	PlotDir string
}

// Result summarizes a finished build.
type Result struct {
	RunID      uuid.UUID
	OutputPath string
	Size       int
	Samples    int
	CorpusPath string
	PlotPath   string
	Model      surrogate.Model
	Elapsed    time.Duration
}

// Run synthesizes a corpus, trains the configured model and writes the ONNX
// graph to cfg.Export.OutputPath. cfg must already be defaulted and valid.
// The model file is written last, so no model is left behind on error.
func Run(ctx context.Context, cfg *v1alpha1.SurrogateConfiguration, opts Options) (*Result, error) {
	start := time.Now()
	runID := uuid.New()
	logger := klog.FromContext(ctx).WithValues("runID", runID)
	ctx = klog.NewContext(ctx, logger)

	template := ProblemTemplate(cfg)
	problems, err := multiobjective.NewProblemCache(template)
	if err != nil {
		return nil, fmt.Errorf("building problem: %w", err)
	}

	synthConfig, err := SynthesizerConfig(cfg)
	if err != nil {
		return nil, err
	}
	synth, err := multiobjective.New(ctx, synthConfig, problems)
	if err != nil {
		return nil, err
	}

	logger.Info("Synthesizing corpus", "samples", synthConfig.Samples, "workers", synthConfig.Workers,
		"inputWidth", synth.InputDim(), "mode", template.Mode)
	done := timed(logger, "synthesis")
	corpus, err := synth.Synthesize(ctx)
	done()
	if err != nil {
		return nil, fmt.Errorf("synthesizing corpus: %w", err)
	}

	res := &Result{RunID: runID, Samples: corpus.Len()}
	if path := cfg.Synthesis.CorpusPath; path != "" {
		if err := corpus.WriteParquet(path); err != nil {
			return nil, err
		}
		res.CorpusPath = path
		logger.V(2).Info("Corpus written", "path", path)
	}

	trainer, err := Trainer(cfg)
	if err != nil {
		return nil, err
	}
	x, y := corpus.Matrices()
	logger.Info("Training surrogate", "trainer", trainer.Name())
	done = timed(logger, "training")
	model, err := trainer.Fit(ctx, x, y)
	done()
	if err != nil {
		return nil, fmt.Errorf("training %s model: %w", trainer.Name(), err)
	}
	res.Model = model

	data, err := onnx.Export(model, cfg.Export.InputShape,
		onnx.WithRunID(runID),
		onnx.WithDocString(fmt.Sprintf("%s surrogate of %s over %d samples", trainer.Name(), algorithms.Name, corpus.Len())))
	if err != nil {
		return nil, fmt.Errorf("exporting model: %w", err)
	}

	if opts.PlotDir != "" {
		path, err := plotReferenceFront(ctx, cfg, template, opts.PlotDir)
		if err != nil {
			return nil, fmt.Errorf("plotting reference front: %w", err)
		}
		res.PlotPath = path
	}

	if err := WriteFileAtomic(cfg.Export.OutputPath, data); err != nil {
		return nil, err
	}
	res.OutputPath = cfg.Export.OutputPath
	res.Size = len(data)

	res.Elapsed = time.Since(start)
	logger.Info("Surrogate built", "path", res.OutputPath, "size", humanize.Bytes(uint64(res.Size)),
		"elapsed", res.Elapsed.Round(time.Millisecond).String())
	return res, nil
}

// timed returns a func that logs how long the named stage took.
func timed(logger logr.Logger, stage string) func() {
	start := time.Now()
	return func() {
		logger.V(2).Info("Stage finished", "stage", stage, "elapsed", time.Since(start).Round(time.Millisecond).String())
	}
}

// ProblemTemplate maps the problem section onto the problem cache parameters.
func ProblemTemplate(cfg *v1alpha1.SurrogateConfiguration) multiobjective.ProblemTemplate {
	p := cfg.Problem
	bounds := make([]framework.Bounds, len(p.MinBounds))
	for i := range bounds {
		bounds[i] = framework.Bounds{L: p.MinBounds[i], H: p.MaxBounds[i]}
	}
	mode := multiobjective.ModeFixed
	if p.Mode == v1alpha1.ProblemModeInputCeilings {
		mode = multiobjective.ModeInputCeilings
	}
	return multiobjective.ProblemTemplate{
		Budget:     *p.Budget,
		Bounds:     bounds,
		Weights:    p.ObjectiveWeights,
		Categories: p.Categories,
		Mode:       mode,
	}
}

// SearchConfig maps the search section onto an NSGA-II configuration.
func SearchConfig(cfg *v1alpha1.SurrogateConfiguration) algorithms.NSGA2Config {
	s := cfg.Search
	return algorithms.NSGA2Config{
		PopulationSize: s.PopulationSize,
		MaxGenerations: *s.Generations,
		Crossover: algorithms.Crossover{
			Kind:        algorithms.CrossoverKind(s.Crossover.Kind),
			Probability: *s.Crossover.Probability,
			Eta:         *s.Crossover.Eta,
			Alpha:       *s.Crossover.Alpha,
		},
		Mutation: algorithms.Mutation{
			Kind:        algorithms.MutationKind(s.Mutation.Kind),
			Probability: *s.Mutation.Probability,
			Eta:         *s.Mutation.Eta,
			Sigma:       *s.Mutation.Sigma,
		},
		TournamentSize:      s.TournamentSize,
		EliminateDuplicates: *s.EliminateDuplicates,
		Tolerance:           *cfg.Problem.Tolerance,
		Seed:                cfg.Seed,
	}
}

// SynthesizerConfig maps the synthesis section onto a synthesizer configuration.
func SynthesizerConfig(cfg *v1alpha1.SurrogateConfiguration) (multiobjective.SynthesizerConfig, error) {
	s := cfg.Synthesis
	selection, err := multiobjective.SelectionByName(string(s.Selection))
	if err != nil {
		return multiobjective.SynthesizerConfig{}, err
	}
	ranges := make([]framework.Bounds, len(s.FeatureRanges))
	for i, r := range s.FeatureRanges {
		ranges[i] = framework.Bounds{L: r.Min, H: r.Max}
	}
	return multiobjective.SynthesizerConfig{
		Samples:         s.Samples,
		FeatureRanges:   ranges,
		Search:          SearchConfig(cfg),
		Selection:       selection,
		NormalizeLabels: s.NormalizeLabels,
		Workers:         s.Workers,
		Seed:            cfg.Seed,
	}, nil
}

// Trainer builds the configured regression trainer. The forest seed is
// derived from the build seed so that it differs from the corpus stream.
func Trainer(cfg *v1alpha1.SurrogateConfiguration) (surrogate.Trainer, error) {
	t := cfg.Trainer
	switch t.Kind {
	case v1alpha1.TrainerLinear:
		return surrogate.LinearTrainer{Ridge: *t.Ridge}, nil
	case v1alpha1.TrainerRandomForest:
		var seed *uint64
		if cfg.Seed != nil {
			s := framework.NewRand(cfg.Seed).Uint64() ^ trainerSeedSalt
			seed = &s
		}
		return surrogate.ForestTrainer{
			Trees:          t.Trees,
			MaxDepth:       t.MaxDepth,
			MinSamplesLeaf: t.MinSamplesLeaf,
			MaxFeatures:    t.MaxFeatures,
			Seed:           seed,
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown trainer %q", framework.ErrInvalidConfiguration, t.Kind)
}

const trainerSeedSalt = 0x5eed_f0e5_7000_0001

// plotReferenceFront runs one search on the unmodified problem and plots its front.
func plotReferenceFront(ctx context.Context, cfg *v1alpha1.SurrogateConfiguration, template multiobjective.ProblemTemplate, dir string) (string, error) {
	problem, err := multiobjective.NewAllocationProblem(template.Budget, template.Bounds, template.Weights, template.Categories)
	if err != nil {
		return "", err
	}
	nsga, err := algorithms.NewNSGAII(SearchConfig(cfg), problem)
	if err != nil {
		return "", err
	}
	res, err := nsga.Run(ctx)
	if err != nil {
		return "", err
	}
	points := make([]framework.ObjectiveSpacePoint, len(res.Front))
	for i, ind := range res.Front {
		points[i] = ind.Point()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return util.PlotResults(points, problem, nsga.Name(), dir)
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place. On error no file is left at path or beside it.
func WriteFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
