package random

import (
	"math/rand/v2"
	"time"

	"hist-temps/pkg/fmi"
)

const (
	// MinValue and MaxValue bound generated temperatures, MaxValue exclusive
	MinValue = -25.0
	MaxValue = 35.0
)

// Generate returns count hourly datapoints starting at start, with values
// drawn uniformly from [MinValue, MaxValue). A nil rng uses a randomly seeded
// source.
func Generate(start time.Time, count int, rng *rand.Rand) []fmi.Datapoint {
	datapoints := make([]fmi.Datapoint, 0, max(count, 0))
	if count <= 0 {
		return datapoints
	}

	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	start = start.UTC()
	for offset := 0; offset < count; offset++ {
		datapoints = append(datapoints, fmi.Datapoint{
			Timestamp: start.Add(time.Duration(offset) * time.Hour),
			Value:     MinValue + rng.Float64()*(MaxValue-MinValue),
		})
	}

	return datapoints
}
