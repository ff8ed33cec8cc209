package domain

// ──────────────────────────────────────────────────────────────────────────────
// Field geometry
// ──────────────────────────────────────────────────────────────────────────────

// Field describes the pitch in field coordinates.  The origin is the top-left
// corner; the home side defends the left goal (x = 0).
type Field struct {
	Width            float64 `json:"width"`
	Height           float64 `json:"height"`
	GoalHeight       float64 `json:"goal_height"`        // vertical span of the goal mouth
	PenaltyBoxWidth  float64 `json:"penalty_box_width"`  // depth from the end line
	PenaltyBoxHeight float64 `json:"penalty_box_height"` // vertical span
	GoalBoxWidth     float64 `json:"goal_box_width"`
	GoalBoxHeight    float64 `json:"goal_box_height"`
}

// DefaultField returns the standard 800×500 pitch.
func DefaultField() Field {
	return Field{
		Width:            800,
		Height:           500,
		GoalHeight:       100,
		PenaltyBoxWidth:  80,
		PenaltyBoxHeight: 200,
		GoalBoxWidth:     30,
		GoalBoxHeight:    120,
	}
}

// CenterX returns the x coordinate of the halfway line.
func (f Field) CenterX() float64 { return f.Width / 2 }

// CenterY returns the y coordinate of the centre spot.
func (f Field) CenterY() float64 { return f.Height / 2 }

// GoalTop returns the upper y bound of the goal mouth.
func (f Field) GoalTop() float64 { return (f.Height - f.GoalHeight) / 2 }

// GoalBottom returns the lower y bound of the goal mouth.
func (f Field) GoalBottom() float64 { return (f.Height + f.GoalHeight) / 2 }

// GoalBoxTop returns the upper y bound of both goal boxes.
func (f Field) GoalBoxTop() float64 { return (f.Height - f.GoalBoxHeight) / 2 }

// GoalBoxBottom returns the lower y bound of both goal boxes.
func (f Field) GoalBoxBottom() float64 { return (f.Height + f.GoalBoxHeight) / 2 }

// PenaltyBoxTop returns the upper y bound of both penalty boxes.
func (f Field) PenaltyBoxTop() float64 { return (f.Height - f.PenaltyBoxHeight) / 2 }

// PenaltyBoxBottom returns the lower y bound of both penalty boxes.
func (f Field) PenaltyBoxBottom() float64 { return (f.Height + f.PenaltyBoxHeight) / 2 }

// InGoalMouth reports whether y lies strictly inside the goal mouth span.
func (f Field) InGoalMouth(y float64) bool {
	return y > f.GoalTop() && y < f.GoalBottom()
}
