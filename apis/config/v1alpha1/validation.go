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
	"fmt"
	"math"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// ValidateSurrogateConfiguration checks a defaulted configuration.
func ValidateSurrogateConfiguration(obj *SurrogateConfiguration) field.ErrorList {
	var allErrs field.ErrorList

	if want := GroupName + "/" + Version; obj.APIVersion != want {
		allErrs = append(allErrs, field.Invalid(field.NewPath("apiVersion"), obj.APIVersion, fmt.Sprintf("must be %s", want)))
	}
	if obj.Kind != Kind {
		allErrs = append(allErrs, field.Invalid(field.NewPath("kind"), obj.Kind, fmt.Sprintf("must be %s", Kind)))
	}

	allErrs = append(allErrs, ValidateProblemSpec(&obj.Problem, field.NewPath("problem"))...)
	allErrs = append(allErrs, ValidateSearchSpec(&obj.Search, field.NewPath("search"))...)
	allErrs = append(allErrs, ValidateSynthesisSpec(&obj.Synthesis, &obj.Problem, field.NewPath("synthesis"))...)
	allErrs = append(allErrs, ValidateTrainerSpec(&obj.Trainer, field.NewPath("trainer"))...)
	allErrs = append(allErrs, ValidateExportSpec(&obj.Export, len(obj.Synthesis.FeatureRanges), field.NewPath("export"))...)
	return allErrs
}

func ValidateProblemSpec(obj *ProblemSpec, fldPath *field.Path) field.ErrorList {
	var allErrs field.ErrorList

	if obj.NumVariables == nil || *obj.NumVariables <= 0 {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("numVariables"), obj.NumVariables, "must be positive"))
		return allErrs
	}
	n := *obj.NumVariables

	if obj.Budget == nil || !(*obj.Budget > 0) || math.IsInf(*obj.Budget, 0) {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("budget"), obj.Budget, "must be positive and finite"))
	}
	if len(obj.MinBounds) != n {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("minBounds"), len(obj.MinBounds), fmt.Sprintf("must have %d entries", n)))
	}
	if len(obj.MaxBounds) != n {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("maxBounds"), len(obj.MaxBounds), fmt.Sprintf("must have %d entries", n)))
	}
	for i := 0; i < min(len(obj.MinBounds), len(obj.MaxBounds)); i++ {
		if obj.MinBounds[i] < 0 {
			allErrs = append(allErrs, field.Invalid(fldPath.Child("minBounds").Index(i), obj.MinBounds[i], "must be non-negative"))
		}
		if obj.MinBounds[i] > obj.MaxBounds[i] {
			allErrs = append(allErrs, field.Invalid(fldPath.Child("maxBounds").Index(i), obj.MaxBounds[i],
				fmt.Sprintf("must not be below minBounds[%d]=%g", i, obj.MinBounds[i])))
		}
	}

	if len(obj.ObjectiveWeights) == 0 {
		allErrs = append(allErrs, field.Required(fldPath.Child("objectiveWeights"), "at least one objective is needed"))
	}
	for k, w := range obj.ObjectiveWeights {
		if len(w) != n {
			allErrs = append(allErrs, field.Invalid(fldPath.Child("objectiveWeights").Index(k), len(w), fmt.Sprintf("must have %d weights", n)))
		}
	}
	if obj.Categories != nil && len(obj.Categories) != n {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("categories"), len(obj.Categories), fmt.Sprintf("must have %d names", n)))
	}
	if obj.Tolerance == nil || *obj.Tolerance < 0 {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("tolerance"), obj.Tolerance, "must be non-negative"))
	}
	switch obj.Mode {
	case ProblemModeFixed, ProblemModeInputCeilings:
	default:
		allErrs = append(allErrs, field.NotSupported(fldPath.Child("mode"), obj.Mode,
			[]string{string(ProblemModeFixed), string(ProblemModeInputCeilings)}))
	}
	return allErrs
}

func ValidateSearchSpec(obj *SearchSpec, fldPath *field.Path) field.ErrorList {
	var allErrs field.ErrorList

	if obj.PopulationSize < 1 {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("populationSize"), obj.PopulationSize, "must be positive"))
	}
	if obj.Generations == nil || *obj.Generations < 0 {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("generations"), obj.Generations, "must be non-negative"))
	}
	if obj.TournamentSize < 1 {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("tournamentSize"), obj.TournamentSize, "must be positive"))
	}

	cPath := fldPath.Child("crossover")
	switch obj.Crossover.Kind {
	case "SBX", "Blend":
	default:
		allErrs = append(allErrs, field.NotSupported(cPath.Child("kind"), obj.Crossover.Kind, []string{"SBX", "Blend"}))
	}
	allErrs = append(allErrs, validateProbability(obj.Crossover.Probability, cPath.Child("probability"))...)
	allErrs = append(allErrs, validateNonNegative(obj.Crossover.Eta, cPath.Child("eta"))...)
	allErrs = append(allErrs, validateNonNegative(obj.Crossover.Alpha, cPath.Child("alpha"))...)

	mPath := fldPath.Child("mutation")
	switch obj.Mutation.Kind {
	case "Polynomial", "Gaussian":
	default:
		allErrs = append(allErrs, field.NotSupported(mPath.Child("kind"), obj.Mutation.Kind, []string{"Polynomial", "Gaussian"}))
	}
	allErrs = append(allErrs, validateProbability(obj.Mutation.Probability, mPath.Child("probability"))...)
	allErrs = append(allErrs, validateNonNegative(obj.Mutation.Eta, mPath.Child("eta"))...)
	allErrs = append(allErrs, validateNonNegative(obj.Mutation.Sigma, mPath.Child("sigma"))...)
	return allErrs
}

func ValidateSynthesisSpec(obj *SynthesisSpec, problem *ProblemSpec, fldPath *field.Path) field.ErrorList {
	var allErrs field.ErrorList

	if obj.Samples < 1 {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("samples"), obj.Samples, "must be positive"))
	}
	if len(obj.FeatureRanges) == 0 {
		allErrs = append(allErrs, field.Required(fldPath.Child("featureRanges"), "at least one input feature is needed"))
	}
	for i, r := range obj.FeatureRanges {
		if r.Min > r.Max || math.IsNaN(r.Min) || math.IsNaN(r.Max) {
			allErrs = append(allErrs, field.Invalid(fldPath.Child("featureRanges").Index(i), r, "min must not exceed max"))
		}
	}
	switch obj.Selection {
	case SelectionFirst, SelectionClosestToIdeal:
	default:
		allErrs = append(allErrs, field.NotSupported(fldPath.Child("selection"), obj.Selection,
			[]string{string(SelectionFirst), string(SelectionClosestToIdeal)}))
	}
	if obj.Workers < 1 {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("workers"), obj.Workers, "must be positive"))
	}

	if problem.Mode == ProblemModeInputCeilings && problem.NumVariables != nil {
		n := *problem.NumVariables
		if len(obj.FeatureRanges) < n {
			allErrs = append(allErrs, field.Invalid(fldPath.Child("featureRanges"), len(obj.FeatureRanges),
				fmt.Sprintf("mode %s needs at least %d features", ProblemModeInputCeilings, n)))
		} else {
			for i := 0; i < n && i < len(problem.MinBounds); i++ {
				if obj.FeatureRanges[i].Min < problem.MinBounds[i] {
					allErrs = append(allErrs, field.Invalid(fldPath.Child("featureRanges").Index(i).Child("min"), obj.FeatureRanges[i].Min,
						fmt.Sprintf("ceiling may fall below problem.minBounds[%d]", i)))
				}
			}
		}
	}
	return allErrs
}

func ValidateTrainerSpec(obj *TrainerSpec, fldPath *field.Path) field.ErrorList {
	var allErrs field.ErrorList

	switch obj.Kind {
	case TrainerLinear:
		allErrs = append(allErrs, validateNonNegative(obj.Ridge, fldPath.Child("ridge"))...)
	case TrainerRandomForest:
		if obj.Trees < 1 {
			allErrs = append(allErrs, field.Invalid(fldPath.Child("trees"), obj.Trees, "must be positive"))
		}
		if obj.MaxDepth < 0 {
			allErrs = append(allErrs, field.Invalid(fldPath.Child("maxDepth"), obj.MaxDepth, "must be non-negative"))
		}
		if obj.MinSamplesLeaf < 1 {
			allErrs = append(allErrs, field.Invalid(fldPath.Child("minSamplesLeaf"), obj.MinSamplesLeaf, "must be positive"))
		}
		if obj.MaxFeatures < 0 {
			allErrs = append(allErrs, field.Invalid(fldPath.Child("maxFeatures"), obj.MaxFeatures, "must be non-negative"))
		}
	default:
		allErrs = append(allErrs, field.NotSupported(fldPath.Child("kind"), obj.Kind,
			[]string{string(TrainerLinear), string(TrainerRandomForest)}))
	}
	return allErrs
}

func ValidateExportSpec(obj *ExportSpec, inputWidth int, fldPath *field.Path) field.ErrorList {
	var allErrs field.ErrorList

	if len(obj.InputShape) != 2 {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("inputShape"), obj.InputShape, "must have rank 2"))
		return allErrs
	}
	if batch := obj.InputShape[0]; batch != UnboundDimension && batch < 1 {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("inputShape").Index(0), batch, "must be -1 or positive"))
	}
	if obj.InputShape[1] != int64(inputWidth) {
		allErrs = append(allErrs, field.Invalid(fldPath.Child("inputShape").Index(1), obj.InputShape[1],
			fmt.Sprintf("must match the %d declared input features", inputWidth)))
	}
	if obj.OutputPath == "" {
		allErrs = append(allErrs, field.Required(fldPath.Child("outputPath"), ""))
	}
	return allErrs
}

func validateProbability(p *float64, fldPath *field.Path) field.ErrorList {
	if p == nil || *p < 0 || *p > 1 {
		return field.ErrorList{field.Invalid(fldPath, p, "must be within [0, 1]")}
	}
	return nil
}

func validateNonNegative(v *float64, fldPath *field.Path) field.ErrorList {
	if v == nil || *v < 0 {
		return field.ErrorList{field.Invalid(fldPath, v, "must be non-negative")}
	}
	return nil
}
