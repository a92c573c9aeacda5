package batchcompile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoughtnetwork/miniscript/policy"
)

type batchTestKey byte

func (k batchTestKey) Bytes() []byte { return []byte{byte(k)} }
func (k batchTestKey) ToPubkeyHash() [20]byte {
	var h [20]byte
	h[0] = byte(k)
	return h
}
func (k batchTestKey) String() string { return string(rune('A' + k)) }

func TestCompileAllReturnsOneResultPerJobInOrder(t *testing.T) {
	jobs := []Job[batchTestKey]{
		{Name: "first", Src: policy.Key[batchTestKey](batchTestKey(1))},
		{Name: "second", Src: policy.And(
			policy.Key[batchTestKey](batchTestKey(2)),
			policy.Key[batchTestKey](batchTestKey(3)),
		)},
		{Name: "third", Src: policy.Key[batchTestKey](batchTestKey(4))},
	}

	results, err := CompileAll(jobs, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, job := range jobs {
		assert.Equal(t, job.Name, results[i].Name)
		require.NoError(t, results[i].Err)
		require.NotNil(t, results[i].Script)
	}
}

func TestCompileAllRecordsPerJobFailureWithoutSinkingOthers(t *testing.T) {
	jobs := []Job[batchTestKey]{
		{Name: "good", Src: policy.Key[batchTestKey](batchTestKey(1))},
		{Name: "bare-timelock", Src: policy.After[batchTestKey](500)},
	}

	results, err := CompileAll(jobs, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.NoError(t, results[0].Err)
	assert.NotNil(t, results[0].Script)

	assert.Error(t, results[1].Err)
	assert.Equal(t, policy.TopLevelNonSafe, results[1].Err)
	assert.Nil(t, results[1].Script)
}
