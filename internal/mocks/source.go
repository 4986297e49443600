package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"hist-temps/pkg/fmi"
)

type Source struct {
	mock.Mock
}

func (s *Source) Fetch(ctx context.Context, start, end time.Time) ([]fmi.Datapoint, error) {
	args := s.Called(ctx, start, end)

	points, _ := args.Get(0).([]fmi.Datapoint)
	return points, args.Error(1)
}
