package estimator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"preddesk/internal/config"
)

const DeskResearch = "research"

// ResearchDesk queries an OpenAI-compatible chat completion endpoint and
// parses a probability out of the free-form reply. Unparseable replies fail
// the estimate; during negotiation they are treated as holds.
type ResearchDesk struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("completion API error (%d): %s", e.Status, e.Body)
}

func NewResearchDesk(cfg config.ResearchConfig, logger *zap.Logger) *ResearchDesk {
	if logger == nil {
		logger = zap.NewNop()
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 1
	}
	return &ResearchDesk{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		model:      cfg.Model,
		apiKey:     os.Getenv(cfg.APIKeyEnv),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
	}
}

// Enabled reports whether the desk is configured; a disabled desk is left
// out of the fan-out entirely.
func (d *ResearchDesk) Enabled() bool {
	return d.endpoint != "" && d.model != ""
}

func (d *ResearchDesk) Name() string {
	return DeskResearch
}

func (d *ResearchDesk) Estimate(ctx context.Context, market MarketDescriptor) (Estimate, error) {
	prompt := fmt.Sprintf(
		"Market question: %s\nCategory: %s\nCurrent yes price: %.3f\n\n"+
			"Estimate the probability that this market resolves YES. Reply with "+
			"lines of the form:\nprobability: 0.XX\nconfidence: 0.XX\nrationale: <one sentence>",
		market.Question, market.Category, market.YesPrice)

	reply, err := d.complete(ctx, prompt)
	if err != nil {
		return Estimate{}, err
	}

	probability, ok := ExtractProbability(reply)
	if !ok {
		return Estimate{}, fmt.Errorf("no probability in research reply: %q", truncate(reply, 120))
	}
	confidence, ok := ExtractConfidence(reply)
	if !ok {
		confidence = 0.5
	}

	return Estimate{
		Desk:        d.Name(),
		Probability: clampProbability(probability),
		Confidence:  confidence,
		Rationale:   truncate(reply, 500),
	}, nil
}

func (d *ResearchDesk) Critique(ctx context.Context, prompt Prompt) (Reply, error) {
	if prompt.Target == nil {
		return Reply{Message: "no critique target"}, nil
	}
	text := fmt.Sprintf(
		"Market question: %s\nYour estimate: %.3f (confidence %.2f)\n"+
			"The %s desk estimates %.3f (confidence %.2f) with rationale: %s\n\n"+
			"Critique their reasoning. If their argument changes your view, state "+
			"\"updated probability: 0.XX\"; otherwise explain why you hold.",
		prompt.Market.Question,
		prompt.Own.Probability, prompt.Own.Confidence,
		prompt.Target.Desk, prompt.Target.Probability, prompt.Target.Confidence,
		prompt.Target.Rationale)
	return d.negotiate(ctx, text)
}

func (d *ResearchDesk) Debate(ctx context.Context, prompt Prompt) (Reply, error) {
	var peers strings.Builder
	for _, peer := range prompt.Peers {
		fmt.Fprintf(&peers, "- %s: %.3f (confidence %.2f)\n",
			peer.Desk, peer.Probability, peer.Confidence)
	}
	text := fmt.Sprintf(
		"Market question: %s\nRound %d of open debate.\nYour estimate: %.3f\n"+
			"Peer estimates:\n%s\n"+
			"Considering all positions, state \"updated probability: 0.XX\" if "+
			"you revise, or explain why you hold.",
		prompt.Market.Question, prompt.Round, prompt.Own.Probability, peers.String())
	return d.negotiate(ctx, text)
}

func (d *ResearchDesk) negotiate(ctx context.Context, text string) (Reply, error) {
	replyText, err := d.complete(ctx, text)
	if err != nil {
		return Reply{}, err
	}
	reply := Reply{Message: truncate(replyText, 1000)}
	if revised, ok := ExtractProbability(replyText); ok {
		revised = clampProbability(revised)
		reply.Revised = &revised
	}
	if conf, ok := ExtractConfidence(replyText); ok {
		reply.Confidence = &conf
	}
	return reply, nil
}

func (d *ResearchDesk) complete(ctx context.Context, userPrompt string) (string, error) {
	if !d.Enabled() {
		return "", fmt.Errorf("research desk not configured")
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return "", err
	}

	payload, err := json.Marshal(chatRequest{
		Model: d.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a prediction market analyst. Be precise and numeric."},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.endpoint+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &apiError{Status: resp.StatusCode, Body: truncate(string(body), 300)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
