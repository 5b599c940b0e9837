package meter

import "coremeter/internal/domain"

// CalculateUtilization derives the non-idle share of the ticks that elapsed
// between begin and end. A window with no elapsed ticks reports 0.
//
// Deltas are not corrected for counter resets. When they are inconsistent
// (negative, or more idle than total) the result is flagged Anomalous and
// the percentage is clamped into [0,100].
func CalculateUtilization(processor int, begin, end domain.CPUTicks) domain.UtilizationResult {
	deltaTotal := int64(end.Total()) - int64(begin.Total())
	deltaIdle := int64(end.Idle()) - int64(begin.Idle())

	res := domain.UtilizationResult{
		Processor:  processor,
		DeltaTotal: deltaTotal,
		DeltaIdle:  deltaIdle,
		Anomalous:  deltaTotal < 0 || deltaIdle < 0 || deltaIdle > deltaTotal,
	}

	if deltaTotal == 0 {
		return res
	}

	res.Percent = (1 - float64(deltaIdle)/float64(deltaTotal)) * 100.0

	if res.Anomalous {
		switch {
		case deltaTotal < 0, res.Percent < 0:
			res.Percent = 0
		case res.Percent > 100:
			res.Percent = 100
		}
	}

	return res
}
