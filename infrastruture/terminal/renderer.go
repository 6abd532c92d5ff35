package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/beka-birhanu/navstudy/game/maze"
	"github.com/beka-birhanu/navstudy/game/play"
)

// Renderer draws frames as plain text.
type Renderer struct {
	w io.Writer
	sync.Mutex
}

// NewRenderer creates a Renderer writing to w.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

// Render implements play.RenderSink.
func (r *Renderer) Render(f play.Frame) {
	r.Lock()
	defer r.Unlock()
	_, _ = io.WriteString(r.w, Format(f))
}

// Format returns the text drawn for one frame.
func Format(f play.Frame) string {
	var b strings.Builder

	if f.Phase == play.PhaseComplete {
		fmt.Fprintf(&b, "session complete | score %d | successes %d | failures %d\n",
			f.Tally.Score, f.Tally.Successes, f.Tally.Failures)
		return b.String()
	}

	fmt.Fprintf(&b, "%s %d/%d | score %d | successes %d | failures %d\n",
		f.Phase, f.Trial, f.Total, f.Tally.Score, f.Tally.Successes, f.Tally.Failures)
	if f.Rejected != "" {
		fmt.Fprintf(&b, "rejected: %q\n", f.Rejected)
	}
	b.WriteString(maze.Render(f.Grid, f.Vehicle))

	fmt.Fprintf(&b, "vehicle: %s", f.Category)
	if f.HideControls {
		b.WriteString(" | controls hidden")
	} else {
		fmt.Fprintf(&b, " | keys: %s", strings.Join(f.Keys, " "))
	}
	b.WriteString("\n")

	if f.AwaitingPlan {
		b.WriteString("plan> ")
	} else {
		b.WriteString("move> ")
	}
	return b.String()
}
