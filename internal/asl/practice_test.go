package asl

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/signbridge/internal/detector"
)

// sequence returns an index picker that walks through idx and then repeats
// the last value.
func sequence(idx ...int) func(int) int {
	var mu sync.Mutex
	i := 0
	return func(n int) int {
		mu.Lock()
		defer mu.Unlock()
		v := idx[i]
		if i < len(idx)-1 {
			i++
		}
		return v % n
	}
}

func TestLevels(t *testing.T) {
	got := Levels()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"A", "B", "C", "I", "O"}, got[0].Letters)
	assert.Equal(t, []string{"D", "E", "F", "K", "L"}, got[1].Letters)
	assert.Equal(t, []string{"J", "Q", "R", "X", "Z"}, got[2].Letters)

	got[0].Letters[0] = "Z"
	assert.Equal(t, "A", Levels()[0].Letters[0], "Levels must return a copy")

	l, err := LevelByName("advanced")
	require.NoError(t, err)
	assert.Equal(t, "ADVANCED", l.Name)

	_, err = LevelByName("expert")
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestPractice(t *testing.T) {
	t.Run("idle until started", func(t *testing.T) {
		p := NewPractice(nil)
		assert.Equal(t, PracticeState{}, p.Snapshot())
		assert.False(t, p.Observe("A"))
	})

	t.Run("unknown level", func(t *testing.T) {
		p := NewPractice(nil)
		_, err := p.Start("EXPERT")
		require.ErrorIs(t, err, ErrUnknownLevel)
		assert.False(t, p.Snapshot().Active)
	})

	t.Run("correct letter scores and advances", func(t *testing.T) {
		// BEGINNER: A B C I O
		p := NewPractice(sequence(1, 3))

		st, err := p.Start("BEGINNER")
		require.NoError(t, err)
		assert.Equal(t, PracticeState{Active: true, Level: "BEGINNER", Target: "B"}, st)

		assert.False(t, p.Observe("A"))
		assert.False(t, p.Observe(Unknown), "unknown results are not attempts")
		assert.True(t, p.Observe("B"))

		assert.Equal(t, PracticeState{
			Active:   true,
			Level:    "BEGINNER",
			Target:   "I",
			Score:    1,
			Attempts: 2,
		}, p.Snapshot())
	})

	t.Run("restart resets score", func(t *testing.T) {
		p := NewPractice(sequence(0))
		_, err := p.Start("BEGINNER")
		require.NoError(t, err)
		require.True(t, p.Observe("A"))

		st, err := p.Start("INTERMEDIATE")
		require.NoError(t, err)
		assert.Equal(t, "D", st.Target)
		assert.Zero(t, st.Score)
	})

	t.Run("reset stops the drill", func(t *testing.T) {
		p := NewPractice(sequence(0))
		_, err := p.Start("BEGINNER")
		require.NoError(t, err)

		p.Reset()
		assert.Equal(t, PracticeState{}, p.Snapshot())
		assert.False(t, p.Observe("A"))
	})

	t.Run("picker out of range falls back to first letter", func(t *testing.T) {
		p := NewPractice(func(int) int { return -1 })
		st, err := p.Start("ADVANCED")
		require.NoError(t, err)
		assert.Equal(t, "J", st.Target)
	})

	t.Run("classified fist completes an A drill", func(t *testing.T) {
		p := NewPractice(sequence(0))
		_, err := p.Start("BEGINNER")
		require.NoError(t, err)

		res, err := Classify(detector.FistLandmarks().Slice())
		require.NoError(t, err)
		assert.True(t, p.Observe(res.Letter))
	})

	t.Run("concurrent observers", func(t *testing.T) {
		p := NewPractice(sequence(0))
		_, err := p.Start("BEGINNER")
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					p.Observe("A")
					p.Snapshot()
				}
			}()
		}
		wg.Wait()

		st := p.Snapshot()
		assert.Equal(t, 400, st.Attempts)
		assert.Equal(t, 400, st.Score)
	})
}
