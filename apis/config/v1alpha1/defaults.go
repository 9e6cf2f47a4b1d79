/*
Copyright 2024 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1alpha1

import (
	"k8s.io/utils/ptr"
)

var (
	// DefaultCategories are the allocation categories of the reference problem
	DefaultCategories = []string{"Education", "Healthcare", "Infrastructure", "SocialPrograms", "Defense"}

	// DefaultObjectiveWeights are the reward weights of the reference problem
	DefaultObjectiveWeights = [][]float64{
		{0.30, 0.25, 0.20, 0.15, 0.10},
		{0.70, 0, 0, 0.30, 0},
		{0, 0, 0.80, 0, 0.20},
	}
)

const (
	DefaultNumVariables   = 5
	DefaultBudget         = 100.0
	DefaultTolerance      = 1e-9
	DefaultPopulationSize = 50
	DefaultGenerations    = 50
	DefaultCrossoverProb  = 0.9
	DefaultCrossoverEta   = 15.0
	DefaultBlendAlpha     = 0.5
	DefaultMutationEta    = 20.0
	DefaultMutationSigma  = 0.1
	DefaultTournamentSize = 2
	DefaultSamples        = 200
	DefaultFeatureMax     = 100.0
	DefaultTrees          = 100
	DefaultMinSamplesLeaf = 1
	DefaultRidge          = 1e-6
	DefaultOutputPath     = "budget_optimizer.onnx"
)

// UnboundDimension leaves a tensor dimension symbolic
const UnboundDimension int64 = -1

// SetDefaults_SurrogateConfiguration fills every unset field. Defaults that
// depend on other fields (bounds on the budget, input shape on the feature
// ranges) are resolved in order.
func SetDefaults_SurrogateConfiguration(obj *SurrogateConfiguration) {
	if obj.APIVersion == "" {
		obj.APIVersion = GroupName + "/" + Version
	}
	if obj.Kind == "" {
		obj.Kind = Kind
	}

	SetDefaults_ProblemSpec(&obj.Problem)
	n := *obj.Problem.NumVariables
	SetDefaults_SearchSpec(&obj.Search, n)
	SetDefaults_SynthesisSpec(&obj.Synthesis, n)
	SetDefaults_TrainerSpec(&obj.Trainer)
	SetDefaults_ExportSpec(&obj.Export, len(obj.Synthesis.FeatureRanges))
}

func SetDefaults_ProblemSpec(obj *ProblemSpec) {
	if obj.NumVariables == nil {
		obj.NumVariables = ptr.To(DefaultNumVariables)
	}
	if obj.Budget == nil {
		obj.Budget = ptr.To(DefaultBudget)
	}
	n := *obj.NumVariables
	if n <= 0 {
		// Left for validation to reject
		return
	}

	if obj.MinBounds == nil {
		obj.MinBounds = make([]float64, n)
	}
	if obj.MaxBounds == nil {
		obj.MaxBounds = make([]float64, n)
		for i := range obj.MaxBounds {
			obj.MaxBounds[i] = *obj.Budget
		}
	}
	if obj.ObjectiveWeights == nil {
		if n == len(DefaultCategories) {
			obj.ObjectiveWeights = clone2D(DefaultObjectiveWeights)
		} else {
			// One objective per category
			obj.ObjectiveWeights = make([][]float64, n)
			for i := range obj.ObjectiveWeights {
				obj.ObjectiveWeights[i] = make([]float64, n)
				obj.ObjectiveWeights[i][i] = 1
			}
		}
	}
	if obj.Categories == nil && n == len(DefaultCategories) {
		obj.Categories = append([]string(nil), DefaultCategories...)
	}
	if obj.Tolerance == nil {
		obj.Tolerance = ptr.To(DefaultTolerance)
	}
	if obj.Mode == "" {
		obj.Mode = ProblemModeFixed
	}
}

func SetDefaults_SearchSpec(obj *SearchSpec, numVariables int) {
	if obj.PopulationSize == 0 {
		obj.PopulationSize = DefaultPopulationSize
	}
	if obj.Generations == nil {
		obj.Generations = ptr.To(DefaultGenerations)
	}
	if obj.TournamentSize == 0 {
		obj.TournamentSize = DefaultTournamentSize
	}
	if obj.EliminateDuplicates == nil {
		obj.EliminateDuplicates = ptr.To(true)
	}

	c := &obj.Crossover
	if c.Kind == "" {
		c.Kind = "SBX"
	}
	if c.Probability == nil {
		c.Probability = ptr.To(DefaultCrossoverProb)
	}
	if c.Eta == nil {
		c.Eta = ptr.To(DefaultCrossoverEta)
	}
	if c.Alpha == nil {
		c.Alpha = ptr.To(DefaultBlendAlpha)
	}

	m := &obj.Mutation
	if m.Kind == "" {
		m.Kind = "Polynomial"
	}
	if m.Probability == nil && numVariables > 0 {
		m.Probability = ptr.To(1.0 / float64(numVariables))
	}
	if m.Eta == nil {
		m.Eta = ptr.To(DefaultMutationEta)
	}
	if m.Sigma == nil {
		m.Sigma = ptr.To(DefaultMutationSigma)
	}
}

func SetDefaults_SynthesisSpec(obj *SynthesisSpec, numVariables int) {
	if obj.Samples == 0 {
		obj.Samples = DefaultSamples
	}
	if obj.FeatureRanges == nil && numVariables > 0 {
		obj.FeatureRanges = make([]FeatureRange, numVariables)
		for i := range obj.FeatureRanges {
			obj.FeatureRanges[i] = FeatureRange{Min: 0, Max: DefaultFeatureMax}
		}
	}
	if obj.Selection == "" {
		obj.Selection = SelectionFirst
	}
	if obj.Workers == 0 {
		obj.Workers = 1
	}
}

func SetDefaults_TrainerSpec(obj *TrainerSpec) {
	if obj.Kind == "" {
		obj.Kind = TrainerRandomForest
	}
	if obj.Ridge == nil {
		obj.Ridge = ptr.To(DefaultRidge)
	}
	if obj.Trees == 0 {
		obj.Trees = DefaultTrees
	}
	if obj.MinSamplesLeaf == 0 {
		obj.MinSamplesLeaf = DefaultMinSamplesLeaf
	}
}

func SetDefaults_ExportSpec(obj *ExportSpec, inputWidth int) {
	if obj.InputShape == nil {
		obj.InputShape = []int64{UnboundDimension, int64(inputWidth)}
	}
	if obj.OutputPath == "" {
		obj.OutputPath = DefaultOutputPath
	}
}

func clone2D(in [][]float64) [][]float64 {
	out := make([][]float64, len(in))
	for i := range in {
		out[i] = append([]float64(nil), in[i]...)
	}
	return out
}
