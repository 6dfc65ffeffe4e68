package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"photo-intel-pipeline/llm"
	"photo-intel-pipeline/models"
)

const openAIEndpoint = "https://api.openai.com/v1/chat/completions"

type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ImageContent struct {
	Type     string   `json:"type"`
	ImageURL ImageURL `json:"image_url"`
}

type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content any `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client calls OpenAI's vision-capable chat completions API. It holds one
// model name per tier.
type Client struct {
	apiKey    string
	fastModel string
	deepModel string
	client    *http.Client
}

// NewClient creates a new OpenAI client with fast/deep model names.
func NewClient(apiKey, fastModel, deepModel string) *Client {
	return &Client{
		apiKey:    apiKey,
		fastModel: fastModel,
		deepModel: deepModel,
		client:    &http.Client{},
	}
}

// SourceName identifies this provider in summaries and logs.
func (c *Client) SourceName() string {
	return "ChatGPT"
}

func (c *Client) modelFor(tier llm.Tier) string {
	if tier == llm.TierDeep {
		return c.deepModel
	}
	return c.fastModel
}

// dataURL converts fetched image data to a base64 data URL.
func dataURL(img models.ImageData) string {
	mediaType := img.MediaType
	if mediaType == "" {
		mediaType = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mediaType, img.Base64)
}

// Generate sends the images and prompt to the tier's model and returns the
// raw text response.
func (c *Client) Generate(ctx context.Context, images []models.ImageData, prompt string, tier llm.Tier) (string, error) {
	userContent := make([]any, 0, len(images)+1)
	for _, img := range images {
		userContent = append(userContent, ImageContent{
			Type:     "image_url",
			ImageURL: ImageURL{URL: dataURL(img)},
		})
	}
	userContent = append(userContent, TextContent{Type: "text", Text: prompt})

	reqBody := ChatRequest{
		Model: c.modelFor(tier),
		Messages: []Message{
			{
				Role:    "user",
				Content: userContent,
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", openAIEndpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	// Extract the text content from the response
	content := chatResp.Choices[0].Message.Content
	if contentStr, ok := content.(string); ok {
		return contentStr, nil
	}

	// If content is not a string, try to marshal it back to JSON
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("failed to marshal content: %w", err)
	}

	return string(contentJSON), nil
}
