package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sagarrai21802/Dobbie/internal/output"
	"github.com/sagarrai21802/Dobbie/internal/version"
)

const geminiModel = "gemini-3-flash-preview"

const draftInstruction = `You are a professional LinkedIn content strategist. Write a compelling LinkedIn post about: %s

STRICT REQUIREMENTS:
1. LENGTH: 150-250 words (optimal for LinkedIn engagement)
2. STRUCTURE:
   - Start with a powerful hook (question, bold statement, or surprising fact)
   - Use short paragraphs (1-2 sentences each)
   - Include white space for readability
   - End with a clear call-to-action asking for engagement

3. TONE: Professional yet conversational, authentic, and relatable

4. FORMAT:
   - Use 2-4 relevant emojis strategically (not excessive)
   - Add line breaks between paragraphs
   - Include 3-5 relevant hashtags at the END only

5. ENGAGEMENT TACTICS:
   - Share a personal insight or lesson learned
   - Include a actionable takeaway for readers
   - Ask a thought-provoking question at the end

6. AVOID:
   - Generic corporate jargon
   - Overly salesy language
   - Too many hashtags or emojis
   - Starting with "I'm excited to announce..."

OUTPUT: Generate ONLY the post content ready to copy-paste. No explanations, no meta text, no quotes around it.`

// GeminiClient generates post drafts with the Gemini API.
type GeminiClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewGeminiClient returns a client for the given API base URL and key.
func NewGeminiClient(baseURL, apiKey string) *GeminiClient {
	return &GeminiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate asks Gemini for a LinkedIn post draft on topic.
func (c *GeminiClient) Generate(ctx context.Context, topic string) (string, error) {
	if c.apiKey == "" {
		return "", output.ErrUsageHint("Gemini API key is not configured", "Set GEMINI_API_KEY in your environment.")
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{Text: fmt.Sprintf(draftInstruction, topic)}},
		}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, geminiModel)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", output.ErrNetwork(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", output.ErrAPI(resp.StatusCode, fmt.Sprintf("content generation failed (HTTP %d)", resp.StatusCode))
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", output.ErrAPI(resp.StatusCode, "content generation returned an unreadable response")
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", output.ErrAPI(resp.StatusCode, "content generation returned no candidates")
	}

	text := strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", output.ErrAPI(resp.StatusCode, "content generation returned empty text")
	}
	return text, nil
}
