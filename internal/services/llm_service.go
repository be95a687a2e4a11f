package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fact-check-api/internal/config"
	"fact-check-api/internal/models"
)

const systemPrompt = `You are an AI fact-checker and misinformation analyst. Your job is to analyze claims and provide credibility assessments.

For each claim, you must:
1. Assess overall credibility (0-100 score)
2. Break down key points and evaluate each
3. Identify contradictions with known facts
4. Analyze likely sources and spread patterns

Be objective and evidence-based. Acknowledge uncertainty when appropriate.

IMPORTANT: Your analysis is advisory only. Always include the disclaimer that AI analysis should not be taken as definitive fact verification.

Respond in JSON format with this structure:
{
  "credibility_score": <0-100>,
  "credibility_level": "high" | "medium" | "low",
  "summary": "<brief assessment>",
  "key_points": [
    {
      "point": "<extracted claim point>",
      "assessment": "likely_true" | "uncertain" | "likely_false",
      "explanation": "<why>"
    }
  ],
  "contradictions": ["<contradiction with known facts>"],
  "source_analysis": {
    "likely_origin": "<type of source: news, social media, satire, etc>",
    "spread_pattern": "<how this type of claim typically spreads>",
    "red_flags": ["<warning signs if any>"]
  }
}`

// languageInstructions is a bounded mapping; unknown codes fall back to "en".
var languageInstructions = map[string]string{
	"en": "Respond in English.",
	"zh": "用中文回复。",
	"ja": "日本語で回答してください。",
	"de": "Antworten Sie auf Deutsch.",
	"fr": "Répondez en français.",
	"ko": "한국어로 답변해 주세요.",
	"es": "Responda en español.",
}

var disclaimers = map[string]string{
	"en": "This AI analysis is for reference only and does not constitute definitive fact verification. Please verify important claims through authoritative sources.",
	"zh": "此 AI 分析仅供参考，不构成权威事实认定。重要信息请通过权威来源核实。",
	"ja": "このAI分析は参考用であり、決定的な事実確認ではありません。重要な主張は信頼できる情報源で確認してください。",
	"de": "Diese KI-Analyse dient nur als Referenz und stellt keine endgültige Faktenüberprüfung dar. Bitte überprüfen Sie wichtige Behauptungen anhand zuverlässiger Quellen.",
	"fr": "Cette analyse IA est fournie à titre indicatif et ne constitue pas une vérification factuelle définitive. Veuillez vérifier les affirmations importantes auprès de sources fiables.",
	"ko": "이 AI 분석은 참고용이며 확정적인 사실 확인이 아닙니다. 중요한 주장은 신뢰할 수 있는 출처를 통해 확인하세요.",
	"es": "Este análisis de IA es solo de referencia y no constituye una verificación de hechos definitiva. Por favor, verifique las afirmaciones importantes a través de fuentes confiables.",
}

// LLMService calls the LLM proxy to analyze claims.
type LLMService struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewLLMService creates a new LLM service instance.
func NewLLMService(cfg *config.Config) *LLMService {
	return &LLMService{
		baseURL: strings.TrimRight(cfg.LLMProxyURL, "/"),
		apiKey:  cfg.LLMProxyKey,
		model:   cfg.LLMModel,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// AnalyzeClaim sends the claim to the LLM proxy and parses the structured
// verdict. The disclaimer is always set from the local table, localized by
// the requested language with English fallback. The credibility score is
// passed through as the model produced it; range validation belongs to the
// API boundary.
func (s *LLMService) AnalyzeClaim(ctx context.Context, claim, language string) (*models.FactCheckResult, error) {
	langInstruction, ok := languageInstructions[language]
	if !ok {
		langInstruction = languageInstructions["en"]
	}

	userPrompt := fmt.Sprintf(`Analyze this claim for factual accuracy:

"%s"

%s

Provide your analysis in the JSON format specified.`, claim, langInstruction)

	reqBody := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   2000,
		Temperature: 0.3,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call LLM proxy: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read LLM response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Service: "LLM", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, &MalformedResponseError{Reason: "invalid completion envelope"}
	}
	if len(chatResp.Choices) == 0 {
		return nil, &MalformedResponseError{Reason: "no choices in completion"}
	}

	content := stripCodeFence(chatResp.Choices[0].Message.Content)

	var result models.FactCheckResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, &MalformedResponseError{Reason: "completion is not valid JSON"}
	}

	disclaimer, ok := disclaimers[language]
	if !ok {
		disclaimer = disclaimers["en"]
	}
	result.Disclaimer = disclaimer

	return &result, nil
}

// stripCodeFence unwraps a completion the model wrapped in a markdown code
// block. Both fenced and bare JSON are accepted.
func stripCodeFence(content string) string {
	if idx := strings.Index(content, "```json"); idx >= 0 {
		content = content[idx+len("```json"):]
		if end := strings.Index(content, "```"); end >= 0 {
			content = content[:end]
		}
	} else if idx := strings.Index(content, "```"); idx >= 0 {
		content = content[idx+len("```"):]
		if end := strings.Index(content, "```"); end >= 0 {
			content = content[:end]
		}
	}
	return strings.TrimSpace(content)
}
