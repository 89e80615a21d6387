package silencegate

import "math"

// Outcome is the gate's pass/fail decision.
type Outcome int

const (
	// OutcomeProceed lets the recording through to transcription.
	OutcomeProceed Outcome = iota
	// OutcomeRejectedMostlySilent stops the recording before transcription.
	OutcomeRejectedMostlySilent
	// OutcomeSkippedFallback means the gate could not run; the recording is
	// let through as if it had passed.
	OutcomeSkippedFallback
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProceed:
		return "proceed"
	case OutcomeRejectedMostlySilent:
		return "rejected_mostly_silent"
	case OutcomeSkippedFallback:
		return "skipped_fallback"
	default:
		return "unknown"
	}
}

// Rule names the decision rule that produced a verdict.
type Rule string

const (
	RuleFallback     Rule = "fallback"
	RuleTooShort     Rule = "too_short"
	RuleNoFrames     Rule = "no_frames"
	RuleMostlySilent Rule = "mostly_silent"
	RulePassed       Rule = "passed"
)

// Verdict is the gate decision for one recording.
type Verdict struct {
	Outcome     Outcome
	Rule        Rule
	SilentRatio float64
	DurationSec float64
	// Cause is set for OutcomeSkippedFallback when a failure forced it.
	Cause error
}

// Forward reports whether the recording should go on to transcription.
func (v Verdict) Forward() bool {
	return v.Outcome != OutcomeRejectedMostlySilent
}

// Decide applies the thresholds to a result. A nil result means no result
// could be produced and yields OutcomeSkippedFallback.
//
// Duration and empty-result checks come before the ratio comparison so a
// degenerate result can never pass on its ratio.
func Decide(result *SilenceCheckResult, cfg Config) Verdict {
	if result == nil {
		return Verdict{Outcome: OutcomeSkippedFallback, Rule: RuleFallback, SilentRatio: math.NaN()}
	}

	v := Verdict{
		Outcome:     OutcomeRejectedMostlySilent,
		SilentRatio: result.SilentRatio,
		DurationSec: result.TotalDurationSec,
	}
	switch {
	case result.TotalDurationSec < cfg.MinDurationSec:
		v.Rule = RuleTooShort
	case math.IsNaN(result.SilentRatio):
		v.Rule = RuleNoFrames
	case result.SilentRatio >= cfg.SilenceRatioCutoff:
		v.Rule = RuleMostlySilent
	default:
		v.Outcome = OutcomeProceed
		v.Rule = RulePassed
	}
	return v
}
