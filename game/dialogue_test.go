package game_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/sregame/game"
)

func TestTypewriter(t *testing.T) {
	tw := game.NewTypewriter("hello")
	gt.False(t, tw.Complete())

	gt.Equal(t, tw.Tick(game.CharInterval), 1)
	gt.Equal(t, tw.Visible(), "h")

	// remainder carries over
	gt.Equal(t, tw.Tick(50*time.Millisecond), 1)
	gt.Equal(t, tw.Tick(10*time.Millisecond), 1)
	gt.Equal(t, tw.Visible(), "hel")

	gt.Equal(t, tw.Tick(time.Second), 2)
	gt.True(t, tw.Complete())
	gt.Equal(t, tw.Tick(time.Second), 0)
}

func TestTypewriterSkip(t *testing.T) {
	tw := game.NewTypewriter("This is the way.")
	tw.Tick(3 * game.CharInterval)
	gt.Equal(t, tw.SkipToEnd(), 13)
	gt.True(t, tw.Complete())
	gt.Equal(t, tw.Visible(), tw.Text())
	gt.Equal(t, tw.SkipToEnd(), 0)
}

func TestTypewriterRunes(t *testing.T) {
	tw := game.NewTypewriter("こんにちは")
	gt.Equal(t, tw.Tick(2*game.CharInterval), 2)
	gt.Equal(t, tw.Visible(), "こん")
}

func TestTypewriterEmpty(t *testing.T) {
	tw := game.NewTypewriter("")
	gt.True(t, tw.Complete())
	gt.Equal(t, tw.Tick(time.Second), 0)
}

func TestDialogueQueue(t *testing.T) {
	q := game.NewDialogueQueue("Evie", []string{"a", "b"})
	gt.Equal(t, q.Len(), 2)

	line, ok := q.Current()
	gt.True(t, ok)
	gt.Equal(t, line, "a")
	gt.Equal(t, q.Index(), 0)

	gt.True(t, q.Advance())
	line, _ = q.Current()
	gt.Equal(t, line, "b")

	gt.False(t, q.Advance())
	gt.True(t, q.Complete())
	_, ok = q.Current()
	gt.False(t, ok)
}
