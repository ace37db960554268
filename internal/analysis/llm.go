package analysis

import (
	"context"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/hercule-app/hercule/internal/core"
)

const llmSystemPrompt = `You are a Privacy Lawyer Agent, an expert in analyzing privacy policies and terms of service.

Your task is to analyze privacy policies and provide clear, actionable insights for everyday users.

Analyze the following aspects:
1. User rights (access, deletion, portability)
2. Data collection practices (what data is collected and why)
3. Third-party sharing (who gets access to user data)
4. Data retention policies (how long data is kept)
5. User control and consent mechanisms

Provide your analysis as a JSON object with this exact structure:
{
  "score": <number 0-100>,
  "summary": "<plain-language summary of key points>",
  "red_flags": ["<concerning practice 1>", "<concerning practice 2>", ...],
  "user_action_items": [
    {"text": "<actionable recommendation>", "url": "<optional link>", "priority": "<high|medium|low>"},
    ...
  ]
}

Scoring guidelines:
- 80-100: User-friendly, clear rights, strong privacy protections
- 50-79: Moderate concerns, some unclear terms or data sharing
- 0-49: Significant concerns, vague language, extensive data collection/sharing

Return ONLY the JSON object, no additional text.`

const defaultLLMTimeout = 60 * time.Second

// LLMOptions configures the LLM analyzer.
type LLMOptions struct {
	APIKey  string
	BaseURL string // empty means the provider default
	Model   string
	Timeout time.Duration
}

// LLMAnalyzer implements Analyzer against an OpenAI-compatible
// chat-completions endpoint.
type LLMAnalyzer struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewLLMAnalyzer creates an analyzer backed by the configured provider.
func NewLLMAnalyzer(opts LLMOptions) *LLMAnalyzer {
	clientOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		// The orchestrator owns the retry policy; the SDK must not add its
		// own layer underneath it.
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(strings.TrimRight(base, "/")))
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultLLMTimeout
	}

	return &LLMAnalyzer{
		client:  openai.NewClient(clientOpts...),
		model:   model,
		timeout: timeout,
	}
}

// Name identifies the provider.
func (a *LLMAnalyzer) Name() string {
	return "openai"
}

// Analyze sends the policy text to the model and parses the structured
// response. The caller has already truncated the text.
func (a *LLMAnalyzer) Analyze(ctx context.Context, text, url string) (*core.AnalysisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(llmSystemPrompt),
			openai.UserMessage("Analyze this privacy policy:\n\n" + text),
		},
		Temperature: openai.Float(0.3),
		MaxTokens:   openai.Int(2000),
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, core.ErrTimeout("analysis timed out").WithCause(err)
		}
		return nil, core.ErrUpstream(core.CodeAnalysisFailed, "LLM request failed").WithCause(err)
	}
	if len(resp.Choices) == 0 {
		return nil, core.ErrUpstream(core.CodeBadResponse, "empty response from LLM")
	}

	result, err := parseAnalysisResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	result.URL = url
	return result, nil
}
