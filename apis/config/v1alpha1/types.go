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
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// GroupName is the API group of the surrogate configuration
	GroupName = "surrogate.budgetopt.io"
	// Version is the API version of this package
	Version = "v1alpha1"
	// Kind is the only kind this package defines
	Kind = "SurrogateConfiguration"
)

// SurrogateConfiguration describes one end-to-end build of a surrogate model:
// the allocation problem, the search that labels it, the corpus size, the
// regression family and the exported graph.
type SurrogateConfiguration struct {
	metav1.TypeMeta `json:",inline"`

	// Problem defines the allocation problem every search run solves
	Problem ProblemSpec `json:"problem"`

	// Search configures the NSGA-II runs
	Search SearchSpec `json:"search"`

	// Synthesis configures corpus generation
	Synthesis SynthesisSpec `json:"synthesis"`

	// Trainer selects and configures the regression family
	Trainer TrainerSpec `json:"trainer"`

	// Export configures the serialized inference graph
	Export ExportSpec `json:"export"`

	// Seed fixes every random stream of the build. When omitted each build
	// is different.
	Seed *uint64 `json:"seed,omitempty"`
}

// ProblemMode controls how the allocation problem relates to the raw input
type ProblemMode string

const (
	// ProblemModeFixed solves the same problem for every input
	ProblemModeFixed ProblemMode = "Fixed"

	// ProblemModeInputCeilings uses the first NumVariables input features
	// as per-category upper bounds
	ProblemModeInputCeilings ProblemMode = "InputCeilings"
)

// ProblemSpec defines the allocation problem
type ProblemSpec struct {
	// NumVariables is the number of allocation categories
	NumVariables *int `json:"numVariables,omitempty"`

	// Budget is the total amount to allocate
	Budget *float64 `json:"budget,omitempty"`

	// MinBounds holds the per-category lower limit of a decision vector
	MinBounds []float64 `json:"minBounds,omitempty"`

	// MaxBounds holds the per-category upper limit of a decision vector
	MaxBounds []float64 `json:"maxBounds,omitempty"`

	// ObjectiveWeights holds one weight vector per objective. Each objective
	// maximizes the weighted sum of the normalized allocation.
	ObjectiveWeights [][]float64 `json:"objectiveWeights,omitempty"`

	// Categories names the allocation categories, for logs and plots only
	Categories []string `json:"categories,omitempty"`

	// Tolerance is the largest constraint violation still considered feasible
	Tolerance *float64 `json:"tolerance,omitempty"`

	// +kubebuilder:validation:Enum=Fixed;InputCeilings
	Mode ProblemMode `json:"mode,omitempty"`
}

// SearchSpec configures the evolutionary search
type SearchSpec struct {
	PopulationSize int `json:"populationSize,omitempty"`

	// Generations is the fixed number of generations. Zero returns the
	// non-dominated part of the initial population.
	Generations *int `json:"generations,omitempty"`

	Crossover CrossoverSpec `json:"crossover"`
	Mutation  MutationSpec  `json:"mutation"`

	TournamentSize int `json:"tournamentSize,omitempty"`

	EliminateDuplicates *bool `json:"eliminateDuplicates,omitempty"`
}

// CrossoverSpec configures the recombination operator
type CrossoverSpec struct {
	// +kubebuilder:validation:Enum=SBX;Blend
	Kind        string   `json:"kind,omitempty"`
	Probability *float64 `json:"probability,omitempty"`
	// Eta is the SBX distribution index
	Eta *float64 `json:"eta,omitempty"`
	// Alpha is the BLX-alpha extension factor
	Alpha *float64 `json:"alpha,omitempty"`
}

// MutationSpec configures the perturbation operator
type MutationSpec struct {
	// +kubebuilder:validation:Enum=Polynomial;Gaussian
	Kind string `json:"kind,omitempty"`
	// Probability is the per-variable mutation probability, 1/NumVariables by default
	Probability *float64 `json:"probability,omitempty"`
	// Eta is the polynomial mutation distribution index
	Eta *float64 `json:"eta,omitempty"`
	// Sigma is the Gaussian step as a fraction of the variable range
	Sigma *float64 `json:"sigma,omitempty"`
}

// SelectionPolicy names the rule that collapses a Pareto front to one label
type SelectionPolicy string

const (
	// SelectionFirst takes the first member of the front as returned by the search
	SelectionFirst SelectionPolicy = "First"

	// SelectionClosestToIdeal takes the member nearest the ideal point in
	// normalized objective space
	SelectionClosestToIdeal SelectionPolicy = "ClosestToIdeal"
)

// SynthesisSpec configures corpus generation
type SynthesisSpec struct {
	// Samples is the number of search runs, one sample each
	Samples int `json:"samples,omitempty"`

	// FeatureRanges declares the raw input features; the input width is its length
	FeatureRanges []FeatureRange `json:"featureRanges,omitempty"`

	// +kubebuilder:validation:Enum=First;ClosestToIdeal
	Selection SelectionPolicy `json:"selection,omitempty"`

	// NormalizeLabels stores the budget-normalized allocation as the label
	// instead of the raw decision vector
	NormalizeLabels bool `json:"normalizeLabels,omitempty"`

	// Workers is the number of search runs executed concurrently
	Workers int `json:"workers,omitempty"`

	// CorpusPath optionally receives a Parquet dump of the corpus
	CorpusPath string `json:"corpusPath,omitempty"`
}

// FeatureRange is the uniform sampling range of one raw input feature
type FeatureRange struct {
	Name string  `json:"name,omitempty"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// TrainerKind names a regression family
type TrainerKind string

const (
	TrainerLinear       TrainerKind = "Linear"
	TrainerRandomForest TrainerKind = "RandomForest"
)

// TrainerSpec configures the surrogate trainer
type TrainerSpec struct {
	// +kubebuilder:validation:Enum=Linear;RandomForest
	Kind TrainerKind `json:"kind,omitempty"`

	// Ridge is the L2 penalty of the linear model
	Ridge *float64 `json:"ridge,omitempty"`

	// Trees is the number of trees in the forest
	Trees int `json:"trees,omitempty"`

	// MaxDepth limits tree depth; zero means unlimited
	MaxDepth int `json:"maxDepth,omitempty"`

	MinSamplesLeaf int `json:"minSamplesLeaf,omitempty"`

	// MaxFeatures is the number of features tried per split; zero means all
	MaxFeatures int `json:"maxFeatures,omitempty"`
}

// ExportSpec configures the serialized graph
type ExportSpec struct {
	// InputShape is the declared input tensor shape; -1 leaves a dimension unbound
	InputShape []int64 `json:"inputShape,omitempty"`

	// OutputPath is where the graph is written
	OutputPath string `json:"outputPath,omitempty"`
}
