package onnx

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/budgetopt/surrogate/pkg/surrogate"
)

const (
	// InputName is the graph input fed by serving code.
	InputName = "input"
	// OutputName is the graph output holding the predicted allocations.
	OutputName = "variable"

	ProducerName    = "budgetopt-surrogate"
	ProducerVersion = "v1alpha1"
)

// Unbound leaves a dimension symbolic. Only the batch dimension may be unbound.
const Unbound int64 = -1

const (
	irVersion        = 8
	defaultOpset     = 13
	mlDomain         = "ai.onnx.ml"
	mlOpset          = 1
	defaultGraphName = "surrogate"
)

// Metadata keys written to every model.
const (
	MetadataRunID        = "run_id"
	MetadataProducer     = "producer"
	MetadataFeatureWidth = "feature_width"
	MetadataModelKind    = "model_kind"
)

var (
	// ErrShapeMismatch is returned when the declared input shape does not fit the model.
	ErrShapeMismatch = errors.New("input shape mismatch")
	// ErrUnsupportedModel is returned for models with no graph translation.
	ErrUnsupportedModel = errors.New("unsupported model")
)

type options struct {
	runID     uuid.UUID
	docString string
}

// Option customizes Export.
type Option func(*options)

// WithRunID records id instead of a fresh random run id.
func WithRunID(id uuid.UUID) Option {
	return func(o *options) {
		o.runID = id
	}
}

// WithDocString sets the model description.
func WithDocString(doc string) Option {
	return func(o *options) {
		o.docString = doc
	}
}

// Export serializes m into an ONNX ModelProto whose input "input" has the
// given shape. shape must be [batch, m.InputDim()] where batch is positive or
// Unbound. Nothing is returned when the shape does not fit.
func Export(m surrogate.Model, shape []int64, opts ...Option) ([]byte, error) {
	if err := checkShape(m, shape); err != nil {
		return nil, err
	}

	o := options{runID: uuid.New()}
	for _, opt := range opts {
		opt(&o)
	}

	inputShape := []int64{shape[0], shape[1]}
	outputShape := []int64{shape[0], int64(m.OutputDim())}

	var (
		g    graph
		kind string
	)
	switch sm := m.(type) {
	case *surrogate.LinearModel:
		g = linearGraph(sm)
		kind = surrogate.LinearName
	case *surrogate.Forest:
		g = forestGraph(sm)
		kind = surrogate.ForestName
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedModel, m)
	}
	g.name = defaultGraphName
	g.inputs = []valueInfo{{name: InputName, dims: inputShape}}
	g.outputs = []valueInfo{{name: OutputName, dims: outputShape}}

	mp := model{
		irVersion:       irVersion,
		producerName:    ProducerName,
		producerVersion: ProducerVersion,
		modelVersion:    1,
		docString:       o.docString,
		graph:           g,
		opsets:          []opset{{version: defaultOpset}},
		metadata: []entry{
			{key: MetadataRunID, value: o.runID.String()},
			{key: MetadataProducer, value: ProducerName},
			{key: MetadataFeatureWidth, value: strconv.Itoa(m.InputDim())},
			{key: MetadataModelKind, value: kind},
		},
	}
	if kind == surrogate.ForestName {
		mp.opsets = append(mp.opsets, opset{domain: mlDomain, version: mlOpset})
	}
	return mp.marshal(), nil
}

func checkShape(m surrogate.Model, shape []int64) error {
	if len(shape) != 2 {
		return fmt.Errorf("%w: rank %d, want 2", ErrShapeMismatch, len(shape))
	}
	if shape[0] != Unbound && shape[0] < 1 {
		return fmt.Errorf("%w: batch dimension %d", ErrShapeMismatch, shape[0])
	}
	if shape[1] != int64(m.InputDim()) {
		return fmt.Errorf("%w: %d features declared, model takes %d", ErrShapeMismatch, shape[1], m.InputDim())
	}
	return nil
}

// linearGraph computes input · coefficients + intercept.
func linearGraph(m *surrogate.LinearModel) graph {
	in, out := m.InputDim(), m.OutputDim()

	coef := make([]float32, 0, in*out)
	for i := 0; i < in; i++ {
		for j := 0; j < out; j++ {
			coef = append(coef, float32(m.Coefficients.At(i, j)))
		}
	}
	intercept := make([]float32, out)
	for j, v := range m.Intercept {
		intercept[j] = float32(v)
	}

	return graph{
		initializers: []tensor{
			{name: "coefficients", dims: []int64{int64(in), int64(out)}, data: coef},
			{name: "intercept", dims: []int64{int64(out)}, data: intercept},
		},
		nodes: []node{
			{name: "matmul", opType: "MatMul", inputs: []string{InputName, "coefficients"}, outputs: []string{"product"}},
			{name: "add", opType: "Add", inputs: []string{"product", "intercept"}, outputs: []string{OutputName}},
		},
	}
}

// forestGraph flattens every tree into a single TreeEnsembleRegressor whose
// AVERAGE aggregation matches Forest.Predict.
func forestGraph(f *surrogate.Forest) graph {
	var (
		treeIDs, nodeIDs, featureIDs, trueIDs, falseIDs []int64
		modes                                           []string
		thresholds                                      []float32
		targetTrees, targetNodes, targetIDs             []int64
		targetWeights                                   []float32
	)
	for t, tree := range f.Trees {
		for n, tn := range tree.Nodes {
			treeIDs = append(treeIDs, int64(t))
			nodeIDs = append(nodeIDs, int64(n))
			if tn.IsLeaf() {
				featureIDs = append(featureIDs, 0)
				modes = append(modes, "LEAF")
				thresholds = append(thresholds, 0)
				trueIDs = append(trueIDs, 0)
				falseIDs = append(falseIDs, 0)
				for j, v := range tn.Value {
					targetTrees = append(targetTrees, int64(t))
					targetNodes = append(targetNodes, int64(n))
					targetIDs = append(targetIDs, int64(j))
					targetWeights = append(targetWeights, float32(v))
				}
				continue
			}
			featureIDs = append(featureIDs, int64(tn.Feature))
			modes = append(modes, "BRANCH_LEQ")
			thresholds = append(thresholds, float32(tn.Threshold))
			trueIDs = append(trueIDs, int64(tn.Left))
			falseIDs = append(falseIDs, int64(tn.Right))
		}
	}

	return graph{
		nodes: []node{{
			name:    "forest",
			opType:  "TreeEnsembleRegressor",
			domain:  mlDomain,
			inputs:  []string{InputName},
			outputs: []string{OutputName},
			attributes: []attribute{
				{name: "n_targets", kind: attributeInt, i: int64(f.OutputDim())},
				{name: "nodes_treeids", kind: attributeInts, ints: treeIDs},
				{name: "nodes_nodeids", kind: attributeInts, ints: nodeIDs},
				{name: "nodes_featureids", kind: attributeInts, ints: featureIDs},
				{name: "nodes_modes", kind: attributeStrings, strings: modes},
				{name: "nodes_values", kind: attributeFloats, floats: thresholds},
				{name: "nodes_truenodeids", kind: attributeInts, ints: trueIDs},
				{name: "nodes_falsenodeids", kind: attributeInts, ints: falseIDs},
				{name: "target_treeids", kind: attributeInts, ints: targetTrees},
				{name: "target_nodeids", kind: attributeInts, ints: targetNodes},
				{name: "target_ids", kind: attributeInts, ints: targetIDs},
				{name: "target_weights", kind: attributeFloats, floats: targetWeights},
				{name: "aggregate_function", kind: attributeString, s: "AVERAGE"},
				{name: "post_transform", kind: attributeString, s: "NONE"},
			},
		}},
	}
}
