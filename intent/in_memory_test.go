package intent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/supportmesh/core"
)

func TestInMemoryRecorderBounds(t *testing.T) {
	r := NewInMemoryRecorder(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, r.Record(ctx, core.IntentRecord{SessionID: fmt.Sprintf("s%d", i)}))
	}

	require.Equal(t, 3, r.Len())
	records := r.Records()
	assert.Equal(t, "s2", records[0].SessionID)
	assert.Equal(t, "s4", records[2].SessionID)
}

func TestInMemoryRecorderUnbounded(t *testing.T) {
	r := NewInMemoryRecorder(0)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, r.Record(ctx, core.IntentRecord{}))
	}

	assert.Equal(t, 10, r.Len())
}
