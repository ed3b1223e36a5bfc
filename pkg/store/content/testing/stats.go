package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStatsTests executes all storage statistics tests.
//
// Counts are compared as deltas so the tests also hold for backends that
// are not empty when the test starts (a shared S3 bucket).
func (suite *StoreTestSuite) RunStatsTests(t *testing.T) {
	t.Run("GetStorageStats_WithContent", suite.testGetStorageStatsWithContent)
	t.Run("GetStorageStats_AfterDelete", suite.testGetStorageStatsAfterDelete)
}

func (suite *StoreTestSuite) testGetStorageStatsWithContent(t *testing.T) {
	store := suite.NewStore(t)
	w := writable(t, store)

	before, err := store.GetStorageStats(testContext())
	require.NoError(t, err)

	mustWriteContent(t, w, generateTestID("stats-1"), generateTestData(100))
	mustWriteContent(t, w, generateTestID("stats-2"), generateTestData(200))
	mustWriteContent(t, w, generateTestID("stats-3"), generateTestData(300))

	after, err := store.GetStorageStats(testContext())
	require.NoError(t, err)

	assert.Equal(t, before.UsedSize+600, after.UsedSize)
	assert.Equal(t, before.ContentCount+3, after.ContentCount)
	assert.NotZero(t, after.AverageSize)
}

func (suite *StoreTestSuite) testGetStorageStatsAfterDelete(t *testing.T) {
	store := suite.NewStore(t)
	w := writable(t, store)

	id := generateTestID("stats-delete")
	mustWriteContent(t, w, id, generateTestData(128))

	before, err := store.GetStorageStats(testContext())
	require.NoError(t, err)

	mustDelete(t, w, id)

	after, err := store.GetStorageStats(testContext())
	require.NoError(t, err)

	assert.Equal(t, before.UsedSize-128, after.UsedSize)
	assert.Equal(t, before.ContentCount-1, after.ContentCount)
}
