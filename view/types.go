package view

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"gorgonia.org/tensor"
)

var (
	// ErrShapeMismatch is returned when parallel arrays disagree in length or shape.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrEmptyInput is returned when a render call receives nothing to draw.
	ErrEmptyInput = errors.New("empty input")
	// ErrAgentTexelOverflow is returned when the agent texel budget exceeds the texture atlas.
	ErrAgentTexelOverflow = errors.New("agent texels exceed texture atlas")
)

// Pose is a single agent's position and heading.
type Pose struct {
	Position orb.Point
	Angle    float64
}

// Poses holds the positions and headings of one or more agents.
type Poses struct {
	Positions []orb.Point `json:"positions"`
	Angles    []float64   `json:"angles"`
	Radians   bool        `json:"radians,omitempty"` // headings are degrees unless set
}

// Len returns the number of agents.
func (p Poses) Len() int {
	return len(p.Angles)
}

// At returns the pose of agent i.
func (p Poses) At(i int) Pose {
	return Pose{Position: p.Positions[i], Angle: p.Angles[i]}
}

// Degrees returns the heading of agent i in degrees.
func (p Poses) Degrees(i int) float64 {
	if p.Radians {
		return radToDeg(p.Angles[i])
	}
	return p.Angles[i]
}

// Validate checks that positions and angles line up.
func (p Poses) Validate() error {
	if len(p.Positions) != len(p.Angles) {
		return fmt.Errorf("%w: %d positions vs %d angles", ErrShapeMismatch, len(p.Positions), len(p.Angles))
	}
	return nil
}

// Light is a point light; Intensity doubles as the marker alpha.
type Light struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Intensity float64 `json:"intensity"`
}

// Texel is a linear RGB texture sample.
type Texel [3]float64

// Scene is the packed line-texture atlas of the simulation.
//
// Texels for line i occupy [starts[i], starts[i]+Widths[i]) of Textures and
// Baked, where starts is the exclusive running sum of Widths. The first
// NAgentTexels of the atlas belong to agent-rendered frame channels.
type Scene struct {
	Frame    []string       `json:"frame"`
	Lines    [][2]orb.Point `json:"lines"`
	Widths   []int          `json:"widths"`
	Textures []Texel        `json:"textures"`
	Baked    []float64      `json:"baked"`
	Lights   []Light        `json:"lights"`
}

// TotalTexels returns sum(Widths).
func (s *Scene) TotalTexels() int {
	total := 0
	for _, w := range s.Widths {
		total += w
	}
	return total
}

// Validate checks the atlas invariants.
func (s *Scene) Validate() error {
	if len(s.Widths) != len(s.Lines) {
		return fmt.Errorf("%w: %d lines vs %d widths", ErrShapeMismatch, len(s.Lines), len(s.Widths))
	}
	for i, w := range s.Widths {
		if w <= 0 {
			return fmt.Errorf("%w: line %d has width %d", ErrShapeMismatch, i, w)
		}
	}
	total := s.TotalTexels()
	if len(s.Textures) != total {
		return fmt.Errorf("%w: %d textures for %d texels", ErrShapeMismatch, len(s.Textures), total)
	}
	if len(s.Baked) != total {
		return fmt.Errorf("%w: %d baked values for %d texels", ErrShapeMismatch, len(s.Baked), total)
	}
	return nil
}

// State is a read-only snapshot of the simulation.
type State struct {
	Agents Poses   `json:"agents"`
	Scene  Scene   `json:"scene"`
	FOV    float64 `json:"fov"` // degrees
}

// Validate checks poses and scene.
func (s *State) Validate() error {
	if err := s.Agents.Validate(); err != nil {
		return fmt.Errorf("agents: %w", err)
	}
	if err := s.Scene.Validate(); err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	return nil
}

// Channel is one named sensor array, shaped agents x channels x height x width.
type Channel struct {
	Name string
	Data *tensor.Dense
}

// Snapshot is what the simulator publishes: the state plus rendered sensor images.
type Snapshot struct {
	State    State
	Channels []Channel
}
