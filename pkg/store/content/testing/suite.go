package testing

import (
	"context"
	"testing"

	"github.com/marmos91/filepool/pkg/store/content"
)

// StoreTestSuite is a test suite for ContentStore implementations.
// It tests the interface contract, not implementation details, making it reusable
// across backends (memory, filesystem, badger, S3, cached).
//
// Usage:
//
//	func TestMyContentStore(t *testing.T) {
//	    suite := &storetesting.StoreTestSuite{
//	        NewStore: func(t *testing.T) content.ContentStore {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test. Use t.Cleanup to
	// release resources.
	NewStore func(t *testing.T) content.ContentStore
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("BasicOperations", suite.RunBasicTests)
	t.Run("WriteOperations", suite.RunWriteTests)
	t.Run("Statistics", suite.RunStatsTests)
	t.Run("Concurrency", suite.RunConcurrencyTests)
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}

// writable returns the store as a WritableContentStore or skips the test.
func writable(t *testing.T, store content.ContentStore) content.WritableContentStore {
	t.Helper()
	w, ok := store.(content.WritableContentStore)
	if !ok {
		t.Skip("Store does not implement WritableContentStore")
	}
	return w
}
