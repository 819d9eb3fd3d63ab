package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
)

// Analysis is the structured breakdown of one transcript
type Analysis struct {
	EmotionalTone string   `json:"emotionalTone"`
	Themes        []string `json:"themes"`
	Summary       string   `json:"summary"`
	Insights      []string `json:"insights,omitempty"`
}

const systemInstruction = `You are analyzing a voice recording transcription for an intergenerational legacy platform.

Provide analysis in this exact JSON format:
{
  "emotionalTone": "single word describing primary emotion (e.g., reflective, nostalgic)",
  "themes": ["theme1", "theme2", "theme3"],
  "summary": "2-3 sentence summary",
  "insights": ["key insight 1", "key insight 2"]
}`

// Client communicates with an OpenAI compatible chat completion service
type Client struct {
	httpclient *http.Client
	chatURL    string
	key        string
	model      string
	timeout    time.Duration
	backoff    func() backoff.BackOff
}

// NewClient creates an analyzer client
func NewClient(chatURL, key, model string) (*Client, error) {
	res := Client{}
	if chatURL == "" {
		return nil, fmt.Errorf("no chatURL")
	}
	if model == "" {
		return nil, fmt.Errorf("no model")
	}
	res.chatURL = chatURL
	res.key = key
	res.model = model
	res.timeout = time.Minute * 2
	res.httpclient = &http.Client{}
	res.backoff = newSimpleBackoff
	return &res, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze requests a structured breakdown of the transcript.
// questionText, if present, is passed as additional context
func (sp *Client) Analyze(ctx context.Context, transcript, questionText string) (*Analysis, error) {
	rd := chatRequest{Model: sp.model}
	rd.ResponseFormat.Type = "json_object"
	rd.Messages = append(rd.Messages, chatMessage{Role: "system", Content: systemInstruction})
	userText := fmt.Sprintf("Transcription: %q", transcript)
	if questionText != "" {
		userText = fmt.Sprintf("Question asked: %q\n%s", questionText, userText)
	}
	rd.Messages = append(rd.Messages, chatMessage{Role: "user", Content: userText})
	bodyData, err := json.Marshal(rd)
	if err != nil {
		return nil, fmt.Errorf("can't marshal request: %w", err)
	}

	content, err := goapp.InvokeWithBackoff(ctx, func() (string, bool, error) {
		req, err := http.NewRequest(http.MethodPost, sp.chatURL, bytes.NewReader(bodyData))
		if err != nil {
			return "", false, err
		}
		req.Header.Set("Content-Type", "application/json")
		if sp.key != "" {
			req.Header.Set("Authorization", "Bearer "+sp.key)
		}

		ctx, cancelF := context.WithTimeout(ctx, sp.timeout)
		defer cancelF()
		req = req.WithContext(ctx)
		goapp.Log.Info().Str("url", req.URL.String()).Str("method", req.Method).Msg("call")
		resp, err := sp.httpclient.Do(req)
		if err != nil {
			return "", goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
			_ = resp.Body.Close()
		}()
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
			return "", goapp.IsRetryableCode(resp.StatusCode), err
		}
		var respData chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
			return "", false, fmt.Errorf("can't decode response: %w", err)
		}
		if len(respData.Choices) == 0 {
			return "", false, fmt.Errorf("no choices in response")
		}
		return respData.Choices[0].Message.Content, false, nil
	}, sp.backoff())
	if err != nil {
		return nil, err
	}
	return ParseOrExtract(content), nil
}

func newSimpleBackoff() backoff.BackOff {
	res := backoff.NewExponentialBackOff()
	return backoff.WithMaxRetries(res, 3)
}
