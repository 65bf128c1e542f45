package device

import (
	"context"
	"errors"

	"vehicle-checkpoint-backend/internal/workflow"
)

var ErrNoPosition = errors.New("no position reported")

// ReportedLocator returns the position the client sent when the session started.
type ReportedLocator struct {
	Position *workflow.Coordinates
}

func (l ReportedLocator) Locate(ctx context.Context) (workflow.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return workflow.Coordinates{}, err
	}
	if l.Position == nil {
		return workflow.Coordinates{}, ErrNoPosition
	}
	if l.Position.Latitude < -90 || l.Position.Latitude > 90 || l.Position.Longitude < -180 || l.Position.Longitude > 180 {
		return workflow.Coordinates{}, errors.New("reported position out of range")
	}
	return *l.Position, nil
}
