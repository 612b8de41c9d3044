package circular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferWrapsOldestFirst(t *testing.T) {
	b := CreateBuffer[float64](4)
	b.Enqueue(1, 2, 3)
	b.Enqueue(4, 5)

	out := make([]float64, 4)
	require.NoError(t, b.Retrieve(out))
	assert.Equal(t, []float64{2, 3, 4, 5}, out)
	assert.Equal(t, 4, b.Count())
	assert.Equal(t, 2.0, *b.At(0))
	assert.Equal(t, 5.0, *b.At(3))
	assert.Nil(t, b.At(4))
}

func TestBufferOversizedWriteKeepsTail(t *testing.T) {
	b := CreateBuffer[int](3)
	b.Enqueue(1, 2, 3, 4, 5, 6, 7)

	out := make([]int, 3)
	require.NoError(t, b.Retrieve(out))
	assert.Equal(t, []int{5, 6, 7}, out)
}

func TestBufferRetrieveSizeMismatch(t *testing.T) {
	b := CreateBuffer[int](3)
	assert.Error(t, b.Retrieve(make([]int, 2)))
}

func TestBufferSnapshotPartial(t *testing.T) {
	b := CreateBuffer[int](5)
	assert.Empty(t, b.Snapshot(nil))

	b.Enqueue(7, 8)
	assert.Equal(t, []int{7, 8}, b.Snapshot(nil))
	assert.Equal(t, 2, b.Count())

	b.Enqueue(9, 10, 11, 12)
	assert.Equal(t, []int{8, 9, 10, 11, 12}, b.Snapshot(nil))
}

func TestBufferReset(t *testing.T) {
	b := CreateBuffer[int](3)
	b.Enqueue(1, 2, 3)
	b.Reset()

	assert.Equal(t, 0, b.Count())
	assert.Empty(t, b.Snapshot(nil))

	b.Enqueue(4)
	assert.Equal(t, []int{4}, b.Snapshot(nil))
}
