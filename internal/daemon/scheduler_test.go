package daemon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagesmith/internal/queue"
)

func TestScheduler(t *testing.T) {
	t.Run("starts and stops cleanly", func(t *testing.T) {
		q := queue.NewTaskQueue(10, 1, nil, nil)
		s, err := NewScheduler(q, nil)
		require.NoError(t, err)

		s.Start(context.Background())
		require.NoError(t, s.Stop())
	})

	t.Run("stats report is safe to call directly", func(t *testing.T) {
		q := queue.NewTaskQueue(10, 1, nil, nil)
		s, err := NewScheduler(q, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		s.reportStats()
	})
}
