package multiobjective

import (
	"fmt"

	"github.com/parquet-go/parquet-go"
	"gonum.org/v1/gonum/mat"
)

// Sample is one (raw input, label) training pair. Objectives and Violation
// describe the chosen solution and are not used for training.
type Sample struct {
	Input      []float64
	Label      []float64
	Objectives []float64
	Violation  float64
}

// Corpus is the synthesized training set. Sample order carries no meaning.
type Corpus struct {
	InputDim int
	LabelDim int
	Samples  []Sample
}

// Len returns the number of samples.
func (c *Corpus) Len() int {
	return len(c.Samples)
}

// Matrices returns the design matrix X (Len x InputDim) and the target
// matrix Y (Len x LabelDim).
func (c *Corpus) Matrices() (x, y *mat.Dense) {
	if c.Len() == 0 {
		return nil, nil
	}
	x = mat.NewDense(c.Len(), c.InputDim, nil)
	y = mat.NewDense(c.Len(), c.LabelDim, nil)
	for i, s := range c.Samples {
		x.SetRow(i, s.Input)
		y.SetRow(i, s.Label)
	}
	return x, y
}

type corpusRow struct {
	Input      []float64 `parquet:"input"`
	Label      []float64 `parquet:"label"`
	Objectives []float64 `parquet:"objectives"`
	Violation  float64   `parquet:"violation"`
}

// WriteParquet dumps the corpus to a Parquet file at path.
func (c *Corpus) WriteParquet(path string) error {
	rows := make([]corpusRow, len(c.Samples))
	for i, s := range c.Samples {
		rows[i] = corpusRow{Input: s.Input, Label: s.Label, Objectives: s.Objectives, Violation: s.Violation}
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("writing corpus to %s: %w", path, err)
	}
	return nil
}

// ReadParquet loads a corpus written by WriteParquet.
func ReadParquet(path string) (*Corpus, error) {
	rows, err := parquet.ReadFile[corpusRow](path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus from %s: %w", path, err)
	}

	c := &Corpus{Samples: make([]Sample, len(rows))}
	for i, r := range rows {
		c.Samples[i] = Sample{Input: r.Input, Label: r.Label, Objectives: r.Objectives, Violation: r.Violation}
	}
	if len(rows) > 0 {
		c.InputDim = len(rows[0].Input)
		c.LabelDim = len(rows[0].Label)
	}
	return c, nil
}
