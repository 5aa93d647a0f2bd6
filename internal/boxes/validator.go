package boxes

import (
	"fmt"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
)

// Triad - the three lines that together with a drawn line enclose one cell.
type Triad [3]entity.Line

// Rules - move validation and scoring.
//
// Lines live on a single integer grid where horizontal and vertical rows alternate,
// so a horizontal line at (x, y) is bordered by vertical lines at (x, y±1) and (x+1, y±1).
// With OrientationAware unset two lines are equal when their coordinates are equal,
// which is how existing clients compare them.
//
// GridSize is the number of boxes per side. Lines must then lie within
// 0 <= x <= GridSize and 0 <= y <= 2*GridSize. Zero disables the bounds check.
type Rules struct {
	OrientationAware bool
	GridSize         int
}

func NewRules(orientationAware bool, gridSize int) Rules {
	return Rules{OrientationAware: orientationAware, GridSize: gridSize}
}

func (that Rules) Same(a, b entity.Line) bool {
	if that.OrientationAware && a.Orientation != b.Orientation {
		return false
	}

	return a.SameCoordinate(b)
}

// ValidateMove - checks the line is well formed and not drawn yet.
func (that Rules) ValidateMove(moves []entity.Move, line entity.Line) error {
	if err := line.Validate(); err != nil {
		return err
	}

	if !that.onGrid(line) {
		return fmt.Errorf("%w: %s(%d,%d) is off the grid", apperror.ErrInvalidLine, line.Orientation, line.X, line.Y)
	}

	for _, move := range moves {
		if that.Same(move.Line, line) {
			return fmt.Errorf("%w: %s(%d,%d)", apperror.ErrDuplicateMove, line.Orientation, line.X, line.Y)
		}
	}

	return nil
}

func (that Rules) onGrid(line entity.Line) bool {
	if line.X < 0 || line.Y < 0 {
		return false
	}

	if that.GridSize == 0 {
		return true
	}

	return line.X <= that.GridSize && line.Y <= 2*that.GridSize
}

// Triads returns the cells on both sides of the line.
func Triads(line entity.Line) (Triad, Triad) {
	x, y := line.X, line.Y
	h, v := entity.Horizontal, entity.Vertical

	if line.Orientation == entity.Horizontal {
		above := Triad{{Orientation: h, X: x, Y: y - 2}, {Orientation: v, X: x, Y: y - 1}, {Orientation: v, X: x + 1, Y: y - 1}}
		below := Triad{{Orientation: v, X: x, Y: y + 1}, {Orientation: v, X: x + 1, Y: y + 1}, {Orientation: h, X: x, Y: y + 2}}
		return above, below
	}

	right := Triad{{Orientation: h, X: x, Y: y - 1}, {Orientation: v, X: x + 1, Y: y}, {Orientation: h, X: x, Y: y + 1}}
	left := Triad{{Orientation: h, X: x - 1, Y: y - 1}, {Orientation: v, X: x - 1, Y: y}, {Orientation: h, X: x - 1, Y: y + 1}}

	return right, left
}

// ScoreMove - points the mover earns for line, counting only the mover's own moves.
func (that Rules) ScoreMove(moves []entity.Move, mover string, line entity.Line) int {
	first, second := Triads(line)

	closedFirst := that.matched(moves, mover, first) == len(first)
	closedSecond := that.matched(moves, mover, second) == len(second)

	switch {
	case closedFirst && closedSecond:
		return 2
	case closedFirst || closedSecond:
		return 1
	default:
		return 0
	}
}

func (that Rules) matched(moves []entity.Move, mover string, triad Triad) int {
	count := 0

	for _, side := range triad {
		for _, move := range moves {
			if move.Mover == mover && that.Same(move.Line, side) {
				count++
				break
			}
		}
	}

	return count
}

// Winner - strict score comparison, nil is a tie.
func Winner(challenger, challengee entity.PlayerSlot) *string {
	switch {
	case challenger.Score > challengee.Score:
		return &challenger.Username
	case challenger.Score < challengee.Score:
		return &challengee.Username
	default:
		return nil
	}
}
