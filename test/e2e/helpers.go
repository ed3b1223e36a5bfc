package e2e

import (
	"testing"
)

// runOnAllConfigs runs a test on every configuration, including the S3
// ones when Localstack is reachable.
func runOnAllConfigs(t *testing.T, testFunc func(t *testing.T, tc *TestContext)) {
	t.Helper()

	configs := AllConfigurations()

	if CheckLocalstackAvailable(t) {
		helper := NewLocalstackHelper(t)
		t.Cleanup(helper.Cleanup)

		for _, config := range S3Configurations() {
			SetupS3Config(t, config, helper)
			configs = append(configs, config)
		}
	}

	for _, config := range configs {
		t.Run(config.Name, func(t *testing.T) {
			tc := NewTestContext(t, config)
			defer tc.Cleanup()

			testFunc(t, tc)
		})
	}
}
