package tracker

import (
	"errors"
	"strconv"
	"strings"
)

// ErrMalformedLine marks sensor lines that cannot be parsed. Callers skip
// the line and keep reading; a noisy link must not stall ingest.
var ErrMalformedLine = errors.New("malformed sensor line")

// Reading is one parsed sensor line.
type Reading struct {
	// UptimeSec is the sensor's monotonic uptime.
	UptimeSec float64
	// Displacement is the instantaneous structural displacement in mm.
	Displacement float64
	// Features is the sensor's count of concurrently tracked measurement
	// points, a proxy for measurement robustness.
	Features int
}

// ParseLine parses a "uptime,displacement,features" CSV line as emitted by
// the displacement sensor.
func ParseLine(line string) (Reading, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 3 {
		return Reading{}, ErrMalformedLine
	}
	uptime, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Reading{}, ErrMalformedLine
	}
	displacement, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Reading{}, ErrMalformedLine
	}
	features, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil || features < 0 {
		return Reading{}, ErrMalformedLine
	}
	return Reading{UptimeSec: uptime, Displacement: displacement, Features: features}, nil
}
