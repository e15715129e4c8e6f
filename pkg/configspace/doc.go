/*
Copyright 2025 The llm-d Authors

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

// Package configspace implements configuration spaces: a fixed set of
// parameters together with the distributions they are sampled from, the
// conditions under which each is active and the forbidden clauses no
// configuration may satisfy.
//
// Sampling draws every distribution, then walks the parameters in dependency
// order, setting to Inactive each parameter whose condition does not hold.
// Configurations matching a forbidden clause are discarded and re-drawn, up
// to the configured retry budget.
//
// Spaces can also be described declaratively (see api/v1alpha1) and loaded
// from YAML with LoadYAML.
package configspace
