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

// Package binding maps named parameters to values.
//
// A Context is an ordered set of uniquely named parameters. Parameters are
// indexed by insertion position, by name and by handle. Configuration
// spaces, feature spaces and objective spaces are contexts.
//
// A Binding assigns one value to every parameter of a context: configurations,
// features and evaluations are bindings. Bindings hash and compare by context
// identity first, then by values in index order.
//
// FeatureSpace and Features are the simplest concrete context and binding.
// They describe the environment a configuration runs in.
package binding
