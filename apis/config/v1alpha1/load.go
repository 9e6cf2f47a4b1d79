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
	"os"

	"sigs.k8s.io/yaml"
)

// Decode parses a YAML or JSON document, applies defaults and validates the
// result. Unknown fields are rejected.
func Decode(data []byte) (*SurrogateConfiguration, error) {
	cfg := &SurrogateConfiguration{}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	return Complete(cfg)
}

// Complete applies defaults to cfg and validates it.
func Complete(cfg *SurrogateConfiguration) (*SurrogateConfiguration, error) {
	SetDefaults_SurrogateConfiguration(cfg)
	if errs := ValidateSurrogateConfiguration(cfg); len(errs) > 0 {
		return nil, errs.ToAggregate()
	}
	return cfg, nil
}

// Load reads and decodes the configuration file at path.
func Load(path string) (*SurrogateConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
