package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"hist-temps/internal/sink"
)

type Sink struct {
	mock.Mock
}

func (s *Sink) Write(ctx context.Context, series sink.Series) error {
	args := s.Called(ctx, series)
	return args.Error(0)
}

func (s *Sink) Close() error {
	args := s.Called()
	return args.Error(0)
}
