package testing

import (
	"testing"

	"github.com/marmos91/filepool/pkg/store/content"
)

// RunWriteTests executes all WritableContentStore operation tests.
func (suite *StoreTestSuite) RunWriteTests(t *testing.T) {
	t.Run("WriteContent_Basic", suite.testWriteContentBasic)
	t.Run("WriteContent_Overwrite", suite.testWriteContentOverwrite)
	t.Run("WriteContent_Nested", suite.testWriteContentNested)
	t.Run("Delete_Success", suite.testDeleteSuccess)
	t.Run("Delete_Idempotent", suite.testDeleteIdempotent)
}

func (suite *StoreTestSuite) testWriteContentBasic(t *testing.T) {
	store := suite.NewStore(t)
	w := writable(t, store)

	id := generateTestID("write-basic")
	testData := []byte("Hello, World!")
	mustWriteContent(t, w, id, testData)

	assertContentEquals(t, store, id, testData)
	assertContentSize(t, store, id, uint64(len(testData)))
}

func (suite *StoreTestSuite) testWriteContentOverwrite(t *testing.T) {
	store := suite.NewStore(t)
	w := writable(t, store)

	id := generateTestID("write-overwrite")
	oldData := []byte("Old data that is longer")
	newData := []byte("New data")

	mustWriteContent(t, w, id, oldData)
	assertContentEquals(t, store, id, oldData)

	mustWriteContent(t, w, id, newData)
	assertContentEquals(t, store, id, newData)
	assertContentSize(t, store, id, uint64(len(newData)))
}

func (suite *StoreTestSuite) testWriteContentNested(t *testing.T) {
	store := suite.NewStore(t)
	w := writable(t, store)

	id := content.ContentID("dir/sub/" + string(generateTestID("nested")))
	mustWriteContent(t, w, id, []byte("nested"))

	assertContentEquals(t, store, id, []byte("nested"))
}

func (suite *StoreTestSuite) testDeleteSuccess(t *testing.T) {
	store := suite.NewStore(t)
	w := writable(t, store)

	id := generateTestID("delete")
	mustWriteContent(t, w, id, []byte("Delete me"))
	assertContentExists(t, store, id, true)

	mustDelete(t, w, id)
	assertContentExists(t, store, id, false)

	_, err := store.ReadContent(testContext(), id)
	AssertErrorIs(t, content.ErrContentNotFound, err)
}

func (suite *StoreTestSuite) testDeleteIdempotent(t *testing.T) {
	store := suite.NewStore(t)
	w := writable(t, store)

	id := generateTestID("delete-missing")
	mustDelete(t, w, id)
	mustDelete(t, w, id)
}
