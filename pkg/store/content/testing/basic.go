package testing

import (
	"io"
	"testing"

	"github.com/marmos91/filepool/pkg/store/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBasicTests executes all basic ContentStore operation tests.
func (suite *StoreTestSuite) RunBasicTests(t *testing.T) {
	t.Run("ReadContent_NotFound", suite.testReadContentNotFound)
	t.Run("ReadContent_EmptyID", suite.testReadContentEmptyID)
	t.Run("ReadContent_Success", suite.testReadContentSuccess)
	t.Run("ReadContent_EmptyContent", suite.testReadContentEmpty)
	t.Run("ReadContent_LargeContent", suite.testReadContentLarge)
	t.Run("ReadContent_BinaryName", suite.testReadContentBinaryName)
	t.Run("GetContentSize_NotFound", suite.testGetContentSizeNotFound)
	t.Run("GetContentSize_Success", suite.testGetContentSizeSuccess)
	t.Run("ContentExists", suite.testContentExists)
}

// ============================================================================
// ReadContent Tests
// ============================================================================

func (suite *StoreTestSuite) testReadContentNotFound(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.ReadContent(testContext(), generateTestID("nonexistent"))
	AssertErrorIs(t, content.ErrContentNotFound, err)
}

func (suite *StoreTestSuite) testReadContentEmptyID(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.ReadContent(testContext(), "")
	assert.Error(t, err)
}

func (suite *StoreTestSuite) testReadContentSuccess(t *testing.T) {
	store := suite.NewStore(t)
	w := writable(t, store)

	id := generateTestID("read-success")
	testData := []byte("Hello, World!")
	mustWriteContent(t, w, id, testData)

	reader, err := store.ReadContent(testContext(), id)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, testData, data)
}

func (suite *StoreTestSuite) testReadContentEmpty(t *testing.T) {
	store := suite.NewStore(t)
	w := writable(t, store)

	id := generateTestID("empty")
	mustWriteContent(t, w, id, []byte{})

	data := mustReadContent(t, store, id)
	assert.Empty(t, data)
	assertContentExists(t, store, id, true)
}

func (suite *StoreTestSuite) testReadContentLarge(t *testing.T) {
	store := suite.NewStore(t)
	w := writable(t, store)

	id := generateTestID("large")
	testData := generateTestData(3*1024*1024 + 17)
	mustWriteContent(t, w, id, testData)

	assert.Equal(t, testData, mustReadContent(t, store, id))
}

func (suite *StoreTestSuite) testReadContentBinaryName(t *testing.T) {
	store := suite.NewStore(t)
	w := writable(t, store)

	// Names arrive as raw request bytes; spaces and line endings are part of the name.
	id := content.ContentID("with space\r\n")
	if err := w.WriteContent(testContext(), id, []byte("x")); err != nil {
		t.Skipf("backend rejects name %q: %v", id, err)
	}
	assertContentEquals(t, store, id, []byte("x"))
	assertContentExists(t, store, content.ContentID("with space"), false)
}

// ============================================================================
// GetContentSize / ContentExists Tests
// ============================================================================

func (suite *StoreTestSuite) testGetContentSizeNotFound(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.GetContentSize(testContext(), generateTestID("nonexistent-size"))
	AssertErrorIs(t, content.ErrContentNotFound, err)
}

func (suite *StoreTestSuite) testGetContentSizeSuccess(t *testing.T) {
	store := suite.NewStore(t)
	w := writable(t, store)

	id := generateTestID("size-success")
	testData := []byte("Test data for size")
	mustWriteContent(t, w, id, testData)

	assertContentSize(t, store, id, uint64(len(testData)))
}

func (suite *StoreTestSuite) testContentExists(t *testing.T) {
	store := suite.NewStore(t)
	w := writable(t, store)

	id := generateTestID("exists")
	assertContentExists(t, store, id, false)

	mustWriteContent(t, w, id, []byte("Exists test"))
	assertContentExists(t, store, id, true)
}
