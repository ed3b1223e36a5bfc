package testing

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/marmos91/filepool/pkg/store/content"
)

// RunConcurrencyTests checks the store can be shared by many workers.
func (suite *StoreTestSuite) RunConcurrencyTests(t *testing.T) {
	t.Run("ConcurrentReaders", suite.testConcurrentReaders)
}

func (suite *StoreTestSuite) testConcurrentReaders(t *testing.T) {
	store := suite.NewStore(t)
	w := writable(t, store)

	const files = 4
	ids := make([]content.ContentID, files)
	bodies := make([][]byte, files)
	for i := range ids {
		ids[i] = generateTestID(fmt.Sprintf("concurrent-%d", i))
		bodies[i] = bytes.Repeat([]byte{byte('a' + i)}, 1000*(i+1))
		mustWriteContent(t, w, ids[i], bodies[i])
	}

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				idx := (g + i) % files
				rc, err := store.ReadContent(testContext(), ids[idx])
				if err != nil {
					t.Errorf("ReadContent(%s): %v", ids[idx], err)
					return
				}
				data, err := io.ReadAll(rc)
				_ = rc.Close()
				if err != nil || !bytes.Equal(data, bodies[idx]) {
					t.Errorf("ReadContent(%s): got %d bytes, err=%v", ids[idx], len(data), err)
					return
				}
			}
		}(g)
	}
	wg.Wait()
}
