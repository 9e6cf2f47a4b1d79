package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"k8s.io/utils/ptr"

	"github.com/budgetopt/surrogate/apis/config/v1alpha1"
	"github.com/budgetopt/surrogate/pkg/multiobjective"
	"github.com/budgetopt/surrogate/pkg/onnx"
	"github.com/budgetopt/surrogate/pkg/surrogate"
)

func smallConfig(t *testing.T, dir string, features int, trainer v1alpha1.TrainerKind) *v1alpha1.SurrogateConfiguration {
	t.Helper()
	ranges := make([]v1alpha1.FeatureRange, features)
	for i := range ranges {
		ranges[i] = v1alpha1.FeatureRange{Min: 0, Max: 100}
	}
	cfg, err := v1alpha1.Complete(&v1alpha1.SurrogateConfiguration{
		Search: v1alpha1.SearchSpec{
			PopulationSize: 12,
			Generations:    ptr.To(5),
		},
		Synthesis: v1alpha1.SynthesisSpec{
			Samples:       15,
			FeatureRanges: ranges,
			Workers:       3,
		},
		Trainer: v1alpha1.TrainerSpec{Kind: trainer, Trees: 3},
		Export:  v1alpha1.ExportSpec{OutputPath: filepath.Join(dir, "model.onnx")},
		Seed:    ptr.To[uint64](42),
	})
	require.NoError(t, err)
	return cfg
}

func TestRunForest(t *testing.T) {
	dir := t.TempDir()
	cfg := smallConfig(t, dir, 5, v1alpha1.TrainerRandomForest)
	cfg.Synthesis.CorpusPath = filepath.Join(dir, "corpus.parquet")

	res, err := Run(context.Background(), cfg, Options{PlotDir: filepath.Join(dir, "plots")})
	require.NoError(t, err)

	assert.Equal(t, 15, res.Samples)
	assert.Equal(t, cfg.Export.OutputPath, res.OutputPath)
	info, err := os.Stat(res.OutputPath)
	require.NoError(t, err)
	assert.EqualValues(t, res.Size, info.Size())
	assert.FileExists(t, res.PlotPath)

	corpus, err := multiobjective.ReadParquet(res.CorpusPath)
	require.NoError(t, err)
	assert.Equal(t, 15, corpus.Len())
	assert.Equal(t, 5, corpus.InputDim)

	assert.IsType(t, &surrogate.Forest{}, res.Model)

	// Only the artifact, the corpus and the plot directory remain
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestRunLinearWideInput(t *testing.T) {
	dir := t.TempDir()
	cfg := smallConfig(t, dir, 9, v1alpha1.TrainerLinear)
	assert.Equal(t, []int64{onnx.Unbound, 9}, cfg.Export.InputShape)

	res, err := Run(context.Background(), cfg, Options{})
	require.NoError(t, err)
	assert.Equal(t, 9, res.Model.InputDim())
	assert.Equal(t, 5, res.Model.OutputDim())
	assert.Empty(t, res.PlotPath)

	again, err := Run(context.Background(), smallConfig(t, t.TempDir(), 9, v1alpha1.TrainerLinear), Options{})
	require.NoError(t, err)
	assert.True(t, mat.Equal(res.Model.(*surrogate.LinearModel).Coefficients, again.Model.(*surrogate.LinearModel).Coefficients),
		"same seed should train the same model")
}

func TestRunShapeMismatchLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	cfg := smallConfig(t, dir, 9, v1alpha1.TrainerLinear)
	cfg.Export.InputShape = []int64{onnx.Unbound, 5}

	res, err := Run(context.Background(), cfg, Options{})
	assert.ErrorIs(t, err, onnx.ErrShapeMismatch)
	assert.Nil(t, res)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunPlotFailureLeavesNoModel(t *testing.T) {
	dir := t.TempDir()
	cfg := smallConfig(t, dir, 5, v1alpha1.TrainerLinear)
	notADir := filepath.Join(dir, "plots")
	require.NoError(t, os.WriteFile(notADir, nil, 0o644))

	res, err := Run(context.Background(), cfg, Options{PlotDir: filepath.Join(notADir, "front")})
	assert.Error(t, err)
	assert.Nil(t, res)
	assert.NoFileExists(t, cfg.Export.OutputPath)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTrainerSeedDiffersFromCorpusSeed(t *testing.T) {
	cfg := smallConfig(t, t.TempDir(), 5, v1alpha1.TrainerRandomForest)
	tr, err := Trainer(cfg)
	require.NoError(t, err)
	forest := tr.(surrogate.ForestTrainer)
	require.NotNil(t, forest.Seed)
	assert.NotEqual(t, *cfg.Seed, *forest.Seed)

	cfg.Seed = nil
	tr, err = Trainer(cfg)
	require.NoError(t, err)
	assert.Nil(t, tr.(surrogate.ForestTrainer).Seed)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.onnx")

	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("new")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	err = WriteFileAtomic(filepath.Join(dir, "missing", "out.onnx"), []byte("x"))
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "missing", "out.onnx"))
}
