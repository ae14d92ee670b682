package damage

// rule is one row of the damage-type decision table.
type rule struct {
	damageType DamageType
	matches    func(c Config, s map[string]float64) bool
}

// classificationRules is evaluated in order; the first match wins. Keeping
// the precedence explicit makes tie-break behaviour auditable.
var classificationRules = []rule{
	{TypeFracture, func(c Config, s map[string]float64) bool {
		return s[IndFrequencyShift] >= c.SevereCutoff && s[IndDampingIncrease] >= c.SevereCutoff
	}},
	{TypeDeepCrack, func(c Config, s map[string]float64) bool {
		return s[IndFrequencyShift] >= c.ModerateCutoff &&
			s[IndDampingIncrease] >= c.ModerateCutoff &&
			s[IndBroadening] >= c.ModerateCutoff
	}},
	{TypeSurfaceCrack, func(c Config, s map[string]float64) bool {
		return s[IndDampingIncrease] >= c.LowerCutoff &&
			s[IndBroadening] >= c.LowerCutoff &&
			s[IndMaterialScatter] >= c.LowerCutoff &&
			s[IndFrequencyShift] < c.ModerateCutoff
	}},
	{TypeUnknown, func(c Config, s map[string]float64) bool {
		return s[IndHighFrequency] >= c.ElevatedCutoff && s[IndMaterialScatter] >= c.ElevatedCutoff
	}},
}

// classify picks the damage type by pattern match on the indicator scores.
func (e *Engine) classify(indicators map[string]Indicator) DamageType {
	scores := make(map[string]float64, len(indicators))
	for name, ind := range indicators {
		scores[name] = ind.Score
	}
	for _, r := range classificationRules {
		if r.matches(e.cfg, scores) {
			return r.damageType
		}
	}
	return TypeNone
}

// warningLevel grades urgency from the crack likelihood bands. A "none"
// damage type never warns, so quiet structures stay quiet.
func (e *Engine) warningLevel(likelihood float64, damageType DamageType) WarningLevel {
	if damageType == TypeNone || likelihood < e.cfg.CautionLikelihood {
		return WarnNone
	}
	switch {
	case damageType == TypeUnknown || likelihood < e.cfg.AlertLikelihood:
		return WarnCaution
	case likelihood < e.cfg.CriticalLikelihood:
		return WarnAlert
	default:
		return WarnCritical
	}
}

// recommendationTable maps each damage type to its fixed, ordered action
// list. Output is fully deterministic for the same inputs.
var recommendationTable = map[DamageType][]string{
	TypeNone: {
		"Structure appears healthy. Continue routine monitoring.",
	},
	TypeSurfaceCrack: {
		"Possible surface crack detected.",
		"Inspect visible surfaces for hairline cracks.",
		"Perform ultrasonic testing to assess crack depth.",
	},
	TypeDeepCrack: {
		"Deep structural crack likely.",
		"Schedule urgent structural assessment.",
		"Consider load restrictions until inspected.",
		"Use advanced NDT (ultrasonic, radiography).",
	},
	TypeFracture: {
		"CRITICAL: possible member fracture detected.",
		"Stop operations immediately: structural failure risk.",
		"Evacuate personnel if applicable.",
		"Emergency inspection required before resumption.",
	},
	TypeUnknown: {
		"Anomalous signal characteristics detected.",
		"Verify calibration and sensor function.",
		"Perform visual inspection.",
		"Rule out false positives before maintenance actions.",
	},
}

// recommendations returns the action list for the type, with an escalation
// note appended when the warning level outruns the pattern match.
func recommendations(damageType DamageType, warning WarningLevel) []string {
	recs := append([]string(nil), recommendationTable[damageType]...)
	if warning == WarnCritical && damageType != TypeFracture {
		recs = append(recs, "Warning level critical: expedite inspection.")
	}
	return recs
}
