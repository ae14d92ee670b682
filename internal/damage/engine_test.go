package damage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/structure.report/internal/vibration"
)

func healthySnapshot() vibration.MetricsSnapshot {
	return vibration.MetricsSnapshot{
		FrequencyHz:     5.30,
		DampingRatio:    0.040,
		RMSDisplacement: 2.00,
		SNRdB:           20.0,
		SpectralPeaks: []vibration.SpectralPeak{
			{FrequencyHz: 5.30, Magnitude: 10.0, QFactor: 12.0, BandwidthHz: 0.44},
			{FrequencyHz: 10.6, Magnitude: 3.0, QFactor: 9.0, BandwidthHz: 1.18},
		},
	}
}

func TestAssessHealthyStructure(t *testing.T) {
	e := NewEngine(DefaultConfig())
	base := healthySnapshot()
	current := healthySnapshot()

	a := e.Assess(current, &base, nil, vibration.Spectrum{})

	assert.Equal(t, TypeNone, a.DamageType)
	assert.Equal(t, WarnNone, a.WarningLevel)
	assert.Zero(t, a.CrackLikelihood)
	require.Len(t, a.Recommendations, 1)
	assert.Contains(t, a.Recommendations[0], "healthy")
}

func TestAssessWithoutBaselineIsNeutral(t *testing.T) {
	e := NewEngine(DefaultConfig())

	a := e.Assess(healthySnapshot(), nil, nil, vibration.Spectrum{})

	assert.Equal(t, TypeNone, a.DamageType)
	assert.Equal(t, WarnNone, a.WarningLevel)
	for name, ind := range a.Indicators {
		assert.Zerof(t, ind.Score, "indicator %s should be neutral without inputs", name)
		assert.NotEmptyf(t, ind.Detail, "indicator %s should explain the missing input", name)
	}
}

func TestAssessFractureSignature(t *testing.T) {
	e := NewEngine(DefaultConfig())
	base := healthySnapshot()

	// Severe stiffness loss with heavy energy dissipation, a collapsed
	// dominant peak, and degraded signal quality.
	current := base.Clone()
	current.FrequencyHz = base.FrequencyHz * 0.80   // -20%
	current.DampingRatio = base.DampingRatio * 1.60 // +60%
	current.SNRdB = base.SNRdB - 15
	for i := range current.SpectralPeaks {
		current.SpectralPeaks[i].QFactor *= 0.5
	}

	a := e.Assess(current, &base, nil, vibration.Spectrum{})

	assert.Equal(t, TypeFracture, a.DamageType)
	assert.Equal(t, WarnCritical, a.WarningLevel)
	assert.InDelta(t, 1.0, a.Indicators[IndFrequencyShift].Score, 1e-9)
	assert.InDelta(t, 1.0, a.Indicators[IndDampingIncrease].Score, 1e-9)
	require.NotEmpty(t, a.Recommendations)
	assert.Contains(t, a.Recommendations[0], "CRITICAL")
	// Fracture guidance already escalates; no extra escalation line.
	for _, rec := range a.Recommendations {
		assert.NotContains(t, rec, "expedite")
	}
}

func TestAssessSurfaceCrackSignature(t *testing.T) {
	e := NewEngine(DefaultConfig())
	base := healthySnapshot()

	// Moderate damping rise and peak broadening with scattered signal
	// energy, but no meaningful frequency drop: the surface crack pattern.
	current := base.Clone()
	current.DampingRatio = base.DampingRatio * 1.333
	for i := range current.SpectralPeaks {
		current.SpectralPeaks[i].QFactor *= 0.77
	}

	scattered := make([]float64, 400)
	for i := 0; i < 100; i++ {
		scattered[i] = 5.0 * math.Sin(2*math.Pi*5*float64(i)/30)
	}

	a := e.Assess(current, &base, scattered, vibration.Spectrum{})

	assert.Equal(t, TypeSurfaceCrack, a.DamageType)
	assert.Equal(t, WarnCaution, a.WarningLevel)
	assert.Contains(t, a.Recommendations[0], "surface crack")
}

func TestAssessScoresAlwaysInUnitRange(t *testing.T) {
	e := NewEngine(DefaultConfig())
	base := healthySnapshot()

	// Deviations far beyond every band must clamp, never overflow.
	current := base.Clone()
	current.FrequencyHz = base.FrequencyHz * 0.1
	current.DampingRatio = base.DampingRatio * 10
	current.SNRdB = base.SNRdB - 100
	for i := range current.SpectralPeaks {
		current.SpectralPeaks[i].QFactor *= 0.01
	}

	a := e.Assess(current, &base, nil, vibration.Spectrum{})

	assert.GreaterOrEqual(t, a.CrackLikelihood, 0.0)
	assert.LessOrEqual(t, a.CrackLikelihood, 1.0)
	for name, ind := range a.Indicators {
		assert.GreaterOrEqualf(t, ind.Score, 0.0, "indicator %s below range", name)
		assert.LessOrEqualf(t, ind.Score, 1.0, "indicator %s above range", name)
	}
}

func TestHighFrequencyIndicatorUsesRollingFloor(t *testing.T) {
	e := NewEngine(DefaultConfig())
	base := healthySnapshot()

	quiet := vibration.Spectrum{
		FFTFrequencies: []float64{11, 12, 13},
		FFTMagnitudes:  []float64{1, 1, 1},
	}
	// First passes only build the historical floor.
	for i := 0; i < 5; i++ {
		a := e.Assess(base, &base, nil, quiet)
		assert.Zerof(t, a.Indicators[IndHighFrequency].Score, "pass %d should be neutral", i)
	}

	loud := vibration.Spectrum{
		FFTFrequencies: []float64{11, 12, 13},
		FFTMagnitudes:  []float64{5, 5, 5},
	}
	a := e.Assess(base, &base, nil, loud)
	assert.InDelta(t, 1.0, a.Indicators[IndHighFrequency].Score, 1e-9,
		"a 5x high-frequency surge over the floor should saturate the score")
}

func TestClassificationPrecedence(t *testing.T) {
	e := NewEngine(DefaultConfig())

	// When both the fracture and deep crack patterns match, the table order
	// decides: fracture wins.
	scores := map[string]Indicator{
		IndFrequencyShift:  {Score: 0.9},
		IndDampingIncrease: {Score: 0.9},
		IndBroadening:      {Score: 0.9},
		IndSignalQuality:   {Score: 0.9},
		IndMaterialScatter: {Score: 0.9},
		IndHighFrequency:   {Score: 0.9},
	}
	assert.Equal(t, TypeFracture, e.classify(scores))

	// Deep crack: moderate-band frequency and damping with broadening, but
	// below the severe cutoff.
	scores = map[string]Indicator{
		IndFrequencyShift:  {Score: 0.5},
		IndDampingIncrease: {Score: 0.5},
		IndBroadening:      {Score: 0.5},
	}
	assert.Equal(t, TypeDeepCrack, e.classify(scores))

	// Elevated high-frequency content and scatter without the crack
	// patterns: unknown.
	scores = map[string]Indicator{
		IndHighFrequency:   {Score: 0.6},
		IndMaterialScatter: {Score: 0.6},
	}
	assert.Equal(t, TypeUnknown, e.classify(scores))

	// A single indicator, however strong, matches no pattern.
	scores = map[string]Indicator{
		IndSignalQuality: {Score: 1.0},
	}
	assert.Equal(t, TypeNone, e.classify(scores))
}

func TestWarningLevelBands(t *testing.T) {
	e := NewEngine(DefaultConfig())

	assert.Equal(t, WarnNone, e.warningLevel(0.9, TypeNone))
	assert.Equal(t, WarnNone, e.warningLevel(0.1, TypeDeepCrack))
	assert.Equal(t, WarnCaution, e.warningLevel(0.3, TypeSurfaceCrack))
	assert.Equal(t, WarnCaution, e.warningLevel(0.9, TypeUnknown))
	assert.Equal(t, WarnAlert, e.warningLevel(0.5, TypeDeepCrack))
	assert.Equal(t, WarnCritical, e.warningLevel(0.7, TypeDeepCrack))
}

func TestCriticalEscalationAppended(t *testing.T) {
	recs := recommendations(TypeDeepCrack, WarnCritical)
	require.NotEmpty(t, recs)
	assert.Contains(t, recs[len(recs)-1], "expedite inspection")
}

func TestRamp(t *testing.T) {
	assert.Zero(t, ramp(4, 5, 20))
	assert.InDelta(t, 0.5, ramp(12.5, 5, 20), 1e-9)
	assert.InDelta(t, 1.0, ramp(20, 5, 20), 1e-9)
	assert.InDelta(t, 1.0, ramp(50, 5, 20), 1e-9)
}
