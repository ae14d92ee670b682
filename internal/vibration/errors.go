package vibration

import "errors"

// ErrInsufficientData indicates the signal window is shorter than the minimum
// required for the requested analysis.
var ErrInsufficientData = errors.New("insufficient signal data")

// ErrInvalidMetric indicates a computed metric fell outside its physically
// valid range (for example a negative frequency).
var ErrInvalidMetric = errors.New("metric out of valid range")
