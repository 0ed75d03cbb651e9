// Package replay feeds recorded gesture traces through a viewer session and
// checks that the markers stay pinned to the map.
package replay

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/mapview/internal/progress"
	"github.com/ziadkadry99/mapview/internal/session"
	"github.com/ziadkadry99/mapview/internal/viewport"
)

// Load is an image-load event. A zero Natural means "use the configured map".
type Load struct {
	Natural   viewport.Vec `yaml:"natural"`
	Container viewport.Vec `yaml:"container"`
}

// Step is exactly one of an image load or a cumulative drag sample.
type Step struct {
	Load *Load         `yaml:"load,omitempty"`
	Drag *viewport.Vec `yaml:"drag,omitempty"`
}

// Trace is a recorded sequence of viewer events.
type Trace struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// LoadTrace reads and validates a YAML trace file.
func LoadTrace(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	var tr Trace
	if err := yaml.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("parsing trace %s: %w", path, err)
	}
	if err := tr.Validate(); err != nil {
		return nil, fmt.Errorf("trace %s: %w", path, err)
	}
	return &tr, nil
}

// Validate checks that every step is either a load or a drag.
func (t *Trace) Validate() error {
	if len(t.Steps) == 0 {
		return errors.New("trace has no steps")
	}
	for i, s := range t.Steps {
		if (s.Load == nil) == (s.Drag == nil) {
			return fmt.Errorf("step %d: exactly one of load or drag is required", i+1)
		}
	}
	return nil
}

// Frame records the outcome of one step.
type Frame struct {
	Step   int          `json:"step"`
	Kind   string       `json:"kind"`
	Delta  viewport.Vec `json:"delta"`
	Offset viewport.Vec `json:"offset"`
}

// Result summarizes a replay.
type Result struct {
	Frames []Frame
	Final  session.Snapshot
	// MaxDrift is the largest deviation, over all steps and markers, of a
	// marker's map-relative position from its starting value.
	MaxDrift float64
}

// Run replays the trace on sess. natural is used for load steps that leave
// the image size unset.
func Run(ctx context.Context, sess *session.Session, tr *Trace, natural viewport.Vec, rep progress.Reporter) (*Result, error) {
	if rep == nil {
		rep = progress.Nop{}
	}
	rep.Start(len(tr.Steps), fmt.Sprintf("Replaying %s", nameOr(tr.Name)))
	defer rep.Finish()

	start := sess.Snapshot()
	anchors := mapRelative(start)
	phase := start.Viewport.Phase
	res := &Result{Frames: make([]Frame, 0, len(tr.Steps))}

	for i, step := range tr.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		var f Frame
		var snap session.Snapshot
		switch {
		case step.Load != nil:
			n := step.Load.Natural
			if n.IsZero() {
				n = natural
			}
			snap = sess.LoadImage(n, step.Load.Container)
			f = Frame{Step: i + 1, Kind: "load", Offset: snap.Viewport.Offset}
		default:
			var delta viewport.Vec
			delta, snap = sess.Drag(*step.Drag)
			f = Frame{Step: i + 1, Kind: "drag", Delta: delta, Offset: snap.Viewport.Offset}
		}
		res.Frames = append(res.Frames, f)
		// The first load places the map under the configured markers.
		if phase == viewport.PhaseUnloaded && snap.Viewport.Phase != viewport.PhaseUnloaded {
			anchors = mapRelative(snap)
		}
		phase = snap.Viewport.Phase
		res.MaxDrift = math.Max(res.MaxDrift, drift(anchors, mapRelative(snap)))
		rep.Update(i+1, fmt.Sprintf("%s offset=(%g, %g)", f.Kind, f.Offset.X, f.Offset.Y))
	}

	res.Final = sess.Snapshot()
	return res, nil
}

// mapRelative returns each marker's position relative to the map offset.
// It is constant while markers stay pinned.
func mapRelative(snap session.Snapshot) map[string]viewport.Vec {
	out := make(map[string]viewport.Vec, len(snap.Markers))
	for _, m := range snap.Markers {
		out[m.ID] = m.Position.Sub(snap.Viewport.Offset)
	}
	return out
}

func drift(anchors, now map[string]viewport.Vec) float64 {
	var worst float64
	for id, a := range anchors {
		d := now[id].Sub(a)
		worst = math.Max(worst, math.Hypot(d.X, d.Y))
	}
	return worst
}

func nameOr(name string) string {
	if name == "" {
		return "trace"
	}
	return name
}
