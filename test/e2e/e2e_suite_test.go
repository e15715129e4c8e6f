/*
Copyright 2025.

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

package e2e

import (
	"fmt"
	"os"
	"strconv"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/llm-d/llm-d-configspace/internal/logging"
	"github.com/llm-d/llm-d-configspace/pkg/config"
	"github.com/llm-d/llm-d-configspace/pkg/core"
)

// getSpacePath returns the configuration space document driven by the suite.
// It checks the E2E_SPACE environment variable first, otherwise defaults to
// the serving space shipped with the configspace package.
func getSpacePath() string {
	if p := os.Getenv("E2E_SPACE"); p != "" {
		return p
	}
	return "../../pkg/configspace/testdata/vllm-serving.yaml"
}

// getRounds returns the number of ask/tell rounds, overridable with E2E_ROUNDS.
func getRounds() int {
	if v := os.Getenv("E2E_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 10
}

var (
	// Optional Environment Variables:
	// - E2E_CONFIG: YAML file with library tunables, read through the same
	//   loader as embedding applications. CCS_* variables still apply.
	// - E2E_SPACE: configuration space document to tune over.
	// - E2E_ROUNDS: number of ask/tell rounds of the tuning scenario.
	configPath = os.Getenv("E2E_CONFIG")
	spacePath  = getSpacePath()
	rounds     = getRounds()
)

const (
	batchSize = 8
	e2eSeed   = 20251018
)

// TestE2E runs the end-to-end test suite: a configuration space is loaded
// from YAML, tuned through the public ask/tell API and persisted.
func TestE2E(t *testing.T) {
	logging.NewTestLogger()
	RegisterFailHandler(Fail)
	_, _ = fmt.Fprintf(GinkgoWriter, "Starting configspace e2e suite over %s\n", spacePath)
	RunSpecs(t, "e2e suite")
}

var _ = BeforeSuite(func() {
	By("loading the library configuration")
	cfg, err := config.Load(configPath)
	Expect(err).NotTo(HaveOccurred())
	if cfg.Seed == 0 {
		cfg.Seed = e2eSeed
	}

	By("initializing the runtime")
	Expect(core.Init(cfg)).To(Succeed())
})

var _ = AfterSuite(func() {
	By("finalizing the runtime")
	Expect(core.Fini()).To(Succeed())
})
