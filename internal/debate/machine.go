package debate

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"preddesk/internal/config"
	"preddesk/internal/estimator"
	"preddesk/internal/models"
)

type State string

const (
	StateOpening        State = "opening"
	StateCritique       State = "critique"
	StateOpenDebate     State = "open-debate"
	StateConvergedClose State = "converged-close"
	StateModeratedClose State = "moderated-close"
)

// Message is one desk's contribution within a round. Held is set when the
// desk kept its estimate, whether by choice, by lacking the negotiation
// capability, or by failing to respond in time.
type Message struct {
	Desk    string   `json:"desk"`
	Text    string   `json:"text"`
	Revised *float64 `json:"revised,omitempty"`
	Held    bool     `json:"held"`
}

type RoundEntry struct {
	Round    int       `json:"round"`
	State    State     `json:"state"`
	Messages []Message `json:"messages"`
}

// Outcome is everything a finished negotiation produced: the closing value,
// how the session ended, the per-round transcript, and the final per-desk
// estimates the close was computed from.
type Outcome struct {
	ClosingValue      float64
	TerminationReason string
	Rounds            []RoundEntry
	Final             []estimator.Estimate
	RoundCount        int
	ModeratorPolicy   string
}

// Machine runs one negotiation to completion. Rounds are sequential; within
// a round every desk is consulted concurrently under the round timeout, and
// revisions are applied only after the whole round collects, so every desk
// argues against the same shared state.
type Machine struct {
	cfg    config.DebateConfig
	logger *zap.Logger
}

func NewMachine(cfg config.DebateConfig, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRounds < config.MinNegotiationRounds {
		cfg.MaxRounds = config.MinNegotiationRounds
	}
	if cfg.RoundTimeout <= 0 {
		cfg.RoundTimeout = 60 * time.Second
	}
	return &Machine{cfg: cfg, logger: logger}
}

func (m *Machine) Run(ctx context.Context, market estimator.MarketDescriptor, desks []estimator.Estimator, initial []estimator.Estimate) Outcome {
	estimates := make([]estimator.Estimate, len(initial))
	copy(estimates, initial)
	sort.Slice(estimates, func(i, j int) bool {
		return estimates[i].Desk < estimates[j].Desk
	})

	if len(estimates) < 2 {
		out := Outcome{
			TerminationReason: models.TerminationSingleEstimator,
			Final:             estimates,
		}
		if len(estimates) == 1 {
			out.ClosingValue = estimates[0].Probability
		}
		return out
	}

	byName := make(map[string]estimator.Estimator, len(desks))
	for _, d := range desks {
		byName[d.Name()] = d
	}

	var rounds []RoundEntry

	// Round 1: each desk restates its opening position. No calls are made;
	// the opening estimates are already on record.
	opening := RoundEntry{Round: 1, State: StateOpening}
	for _, est := range estimates {
		opening.Messages = append(opening.Messages, Message{
			Desk: est.Desk,
			Text: fmt.Sprintf("opening at %.4f (confidence %.2f): %s",
				est.Probability, est.Confidence, est.Rationale),
			Held: true,
		})
	}
	rounds = append(rounds, opening)

	for round := 2; round <= m.cfg.MaxRounds; round++ {
		state := StateOpenDebate
		if round == 2 {
			state = StateCritique
		}

		entry := m.runRound(ctx, round, state, market, byName, estimates)
		estimates = applyRevisions(estimates, entry.Messages)
		rounds = append(rounds, entry)

		if spread(estimates) <= m.cfg.ConvergenceBand {
			closing := meanProbability(estimates)
			rounds = append(rounds, RoundEntry{
				Round: round,
				State: StateConvergedClose,
				Messages: []Message{{
					Desk: "machine",
					Text: fmt.Sprintf("spread %.4f within band %.4f, closing at mean %.4f",
						spread(estimates), m.cfg.ConvergenceBand, closing),
					Held: true,
				}},
			})
			return Outcome{
				ClosingValue:      closing,
				TerminationReason: models.TerminationConverged,
				Rounds:            rounds,
				Final:             estimates,
				RoundCount:        round,
			}
		}
	}

	value, note := Moderate(m.cfg.ModeratorPolicy, estimates)
	rounds = append(rounds, RoundEntry{
		Round:    m.cfg.MaxRounds,
		State:    StateModeratedClose,
		Messages: []Message{{Desk: "moderator", Text: note, Revised: &value}},
	})
	return Outcome{
		ClosingValue:      value,
		TerminationReason: models.TerminationMaxRoundsModerator,
		Rounds:            rounds,
		Final:             estimates,
		RoundCount:        m.cfg.MaxRounds,
		ModeratorPolicy:   m.cfg.ModeratorPolicy,
	}
}

func (m *Machine) runRound(ctx context.Context, round int, state State, market estimator.MarketDescriptor, desks map[string]estimator.Estimator, estimates []estimator.Estimate) RoundEntry {
	roundCtx, cancel := context.WithTimeout(ctx, m.cfg.RoundTimeout)
	defer cancel()

	messages := make([]Message, len(estimates))
	var wg sync.WaitGroup
	for i, own := range estimates {
		wg.Add(1)
		go func(i int, own estimator.Estimate) {
			defer wg.Done()
			messages[i] = m.consult(roundCtx, round, state, market, desks[own.Desk], own, estimates)
		}(i, own)
	}
	wg.Wait()

	return RoundEntry{Round: round, State: state, Messages: messages}
}

func (m *Machine) consult(ctx context.Context, round int, state State, market estimator.MarketDescriptor, desk estimator.Estimator, own estimator.Estimate, estimates []estimator.Estimate) Message {
	neg, ok := desk.(estimator.Negotiator)
	if !ok {
		return Message{Desk: own.Desk, Text: "not negotiable, holding", Held: true}
	}

	prompt := estimator.Prompt{
		Market: market,
		Round:  round,
		Own:    own,
		Peers:  peersOf(own, estimates),
	}
	if state == StateCritique {
		prompt.Target = mostDivergentPeer(own, prompt.Peers)
	}

	var reply estimator.Reply
	var err error
	if state == StateCritique {
		reply, err = neg.Critique(ctx, prompt)
	} else {
		reply, err = neg.Debate(ctx, prompt)
	}
	if err != nil {
		m.logger.Warn("desk did not respond in round, holding",
			zap.String("desk", own.Desk),
			zap.String("market_id", market.ID),
			zap.Int("round", round),
			zap.Error(err))
		return Message{Desk: own.Desk, Text: "no response, holding", Held: true}
	}

	msg := Message{Desk: own.Desk, Text: reply.Message, Revised: reply.Revised}
	msg.Held = reply.Revised == nil
	return msg
}

func applyRevisions(estimates []estimator.Estimate, messages []Message) []estimator.Estimate {
	revised := make([]estimator.Estimate, len(estimates))
	copy(revised, estimates)
	byDesk := make(map[string]*estimator.Estimate, len(revised))
	for i := range revised {
		byDesk[revised[i].Desk] = &revised[i]
	}
	for _, msg := range messages {
		if msg.Revised == nil {
			continue
		}
		if est, ok := byDesk[msg.Desk]; ok {
			est.Probability = *msg.Revised
		}
	}
	return revised
}

func peersOf(own estimator.Estimate, estimates []estimator.Estimate) []estimator.Estimate {
	peers := make([]estimator.Estimate, 0, len(estimates)-1)
	for _, est := range estimates {
		if est.Desk != own.Desk {
			peers = append(peers, est)
		}
	}
	return peers
}

func mostDivergentPeer(own estimator.Estimate, peers []estimator.Estimate) *estimator.Estimate {
	var target *estimator.Estimate
	best := -1.0
	for i := range peers {
		diff := math.Abs(peers[i].Probability - own.Probability)
		if diff > best {
			best = diff
			target = &peers[i]
		}
	}
	return target
}

func spread(estimates []estimator.Estimate) float64 {
	if len(estimates) == 0 {
		return 0
	}
	min, max := estimates[0].Probability, estimates[0].Probability
	for _, est := range estimates[1:] {
		if est.Probability < min {
			min = est.Probability
		}
		if est.Probability > max {
			max = est.Probability
		}
	}
	return max - min
}

func meanProbability(estimates []estimator.Estimate) float64 {
	if len(estimates) == 0 {
		return 0
	}
	var sum float64
	for _, est := range estimates {
		sum += est.Probability
	}
	return sum / float64(len(estimates))
}
