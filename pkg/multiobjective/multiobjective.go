package multiobjective

import (
	"context"
	"fmt"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
	"k8s.io/utils/ptr"

	"github.com/budgetopt/surrogate/pkg/multiobjective/algorithms"
	"github.com/budgetopt/surrogate/pkg/multiobjective/framework"
)

const (
	Name = "CorpusSynthesizer"
)

// InputSource supplies the raw input of one sample. It must return a vector
// of the configured input width and may only draw randomness from rng.
type InputSource func(sample int, rng *rand.Rand) []float64

// SynthesizerConfig configures corpus generation.
type SynthesizerConfig struct {
	// Samples is the number of search runs, one sample each.
	Samples int
	// FeatureRanges are the uniform sampling ranges of the raw input. Their
	// count is the input width even when an InputSource is used.
	FeatureRanges []framework.Bounds
	// Search configures every run. Its Seed is ignored; each run gets its
	// own stream derived from Seed below.
	Search    algorithms.NSGA2Config
	Selection SelectionStrategy
	// NormalizeLabels stores the budget-normalized allocation instead of
	// the raw decision vector.
	NormalizeLabels bool
	// Workers is the number of runs executed concurrently.
	Workers int
	// Seed fixes the whole corpus. Nil gives a different corpus every time.
	Seed *uint64
}

// Synthesizer turns repeated searches into a labeled corpus.
type Synthesizer struct {
	config   SynthesizerConfig
	problems *ProblemCache
	input    InputSource
}

// Option customizes a Synthesizer.
type Option func(*Synthesizer)

// WithInputSource replaces uniform sampling of raw inputs.
func WithInputSource(src InputSource) Option {
	return func(s *Synthesizer) {
		s.input = src
	}
}

// New validates config and returns a synthesizer drawing problems from problems.
func New(ctx context.Context, config SynthesizerConfig, problems *ProblemCache, opts ...Option) (*Synthesizer, error) {
	logger := klog.FromContext(ctx)
	logger.V(5).Info("creating instance of " + Name)

	if config.Samples < 1 {
		return nil, fmt.Errorf("%w: samples must be positive, got %d", framework.ErrInvalidConfiguration, config.Samples)
	}
	if config.Workers < 1 {
		return nil, fmt.Errorf("%w: workers must be positive, got %d", framework.ErrInvalidConfiguration, config.Workers)
	}
	if err := framework.ValidateBounds(config.FeatureRanges); err != nil {
		return nil, fmt.Errorf("feature ranges: %w", err)
	}
	if config.Selection == nil {
		config.Selection = SelectFirst{}
	}
	if err := config.Search.Validate(); err != nil {
		return nil, err
	}
	if problems == nil {
		return nil, fmt.Errorf("%w: no problem source", framework.ErrInvalidConfiguration)
	}

	s := &Synthesizer{
		config:   config,
		problems: problems,
	}
	s.input = func(_ int, rng *rand.Rand) []float64 {
		return framework.SampleUniform(s.config.FeatureRanges, rng)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Synthesizer) Name() string {
	return Name
}

// InputDim is the width of every sample's input.
func (s *Synthesizer) InputDim() int {
	return len(s.config.FeatureRanges)
}

// LabelDim is the width of every sample's label.
func (s *Synthesizer) LabelDim() int {
	return len(s.problems.Template().Bounds)
}

// Synthesize runs exactly Samples independent searches. Every sample draws
// from its own random stream, so the corpus does not depend on Workers. Any
// failure discards the whole corpus.
func (s *Synthesizer) Synthesize(ctx context.Context) (*Corpus, error) {
	logger := klog.FromContext(ctx).WithValues("synthesizer", Name)

	rng := framework.NewRand(s.config.Seed)
	seeds := make([]uint64, s.config.Samples)
	for i := range seeds {
		seeds[i] = rng.Uint64()
	}

	samples := make([]Sample, s.config.Samples)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i := range samples {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			sample, err := s.synthesizeOne(klog.NewContext(gctx, logger), i, seeds[i])
			if err != nil {
				return fmt.Errorf("sample %d: %w", i, err)
			}
			samples[i] = sample
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.V(2).Info("corpus synthesized", "samples", len(samples), "distinctProblems", s.problems.Len())
	return &Corpus{
		InputDim: s.InputDim(),
		LabelDim: s.LabelDim(),
		Samples:  samples,
	}, nil
}

func (s *Synthesizer) synthesizeOne(ctx context.Context, i int, seed uint64) (Sample, error) {
	logger := klog.FromContext(ctx)
	rng := framework.NewRand(&seed)

	input := s.input(i, rng)
	if len(input) != s.InputDim() {
		return Sample{}, fmt.Errorf("%w: input has %d features, want %d", framework.ErrInvalidConfiguration, len(input), s.InputDim())
	}

	problem, err := s.problems.ForInput(input)
	if err != nil {
		return Sample{}, err
	}

	search := s.config.Search
	search.Seed = ptr.To(rng.Uint64())
	nsga, err := algorithms.NewNSGAII(search, problem)
	if err != nil {
		return Sample{}, err
	}
	res, err := nsga.Run(ctx)
	if err != nil {
		return Sample{}, err
	}

	idx, err := s.config.Selection.Select(res.Front)
	if err != nil {
		return Sample{}, err
	}
	chosen := res.Front[idx]

	label := append([]float64(nil), chosen.Variables...)
	if s.config.NormalizeLabels {
		label, _ = Normalize(label, problem.Budget())
	}

	logger.V(4).Info("sample synthesized", "sample", i, "frontSize", len(res.Front),
		"selection", s.config.Selection.Name(), "chosen", idx, "feasible", chosen.Feasible)

	return Sample{
		Input:      append([]float64(nil), input...),
		Label:      label,
		Objectives: append([]float64(nil), chosen.Objectives...),
		Violation:  chosen.Violation,
	}, nil
}
