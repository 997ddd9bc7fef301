package debate

import (
	"fmt"
	"math"

	"preddesk/internal/config"
	"preddesk/internal/estimator"
)

// Moderate picks a closing value for a session that never converged. The
// default policy takes the confidence-weighted average of the final
// estimates; when every desk reports the same confidence the estimate
// closest to 0.5 wins instead. The conservative policy additionally pulls
// the result toward 0.5 (0.9 weight on the value, 0.1 on 0.5).
//
// The note states the inputs so the ruling can be reproduced from the
// transcript alone.
func Moderate(policy string, finals []estimator.Estimate) (float64, string) {
	if len(finals) == 0 {
		return 0, "no estimates to moderate"
	}

	value, how := weightedClose(finals)

	note := fmt.Sprintf("moderated close (%s over %d estimates", how, len(finals))
	for _, est := range finals {
		note += fmt.Sprintf("; %s=%.4f/c%.2f", est.Desk, est.Probability, est.Confidence)
	}
	note += fmt.Sprintf("): %.4f", value)

	if policy == config.ModeratorPolicyConservative {
		pulled := value*0.9 + 0.5*0.1
		note += fmt.Sprintf(", conservative pull to %.4f", pulled)
		value = pulled
	}

	return value, note
}

func weightedClose(finals []estimator.Estimate) (float64, string) {
	minConf, maxConf := finals[0].Confidence, finals[0].Confidence
	for _, est := range finals[1:] {
		if est.Confidence < minConf {
			minConf = est.Confidence
		}
		if est.Confidence > maxConf {
			maxConf = est.Confidence
		}
	}

	// Equal confidences carry no signal; fall back to the estimate that
	// claims the least certainty about the outcome.
	if maxConf-minConf < 1e-9 {
		best := finals[0].Probability
		for _, est := range finals[1:] {
			if math.Abs(est.Probability-0.5) < math.Abs(best-0.5) {
				best = est.Probability
			}
		}
		return best, "equal confidence, closest to 0.5"
	}

	var sum, weight float64
	for _, est := range finals {
		conf := est.Confidence
		if conf <= 0 {
			conf = 0.01
		}
		sum += est.Probability * conf
		weight += conf
	}
	return sum / weight, "confidence-weighted average"
}
