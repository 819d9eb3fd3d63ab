package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	tapi "github.com/CC90210/ECHOES-APP/internal/pkg/transcriber/api"
	"github.com/cenkalti/backoff/v4"
)

// Client communicates with an OpenAI compatible speech to text service
type Client struct {
	httpclient    *http.Client
	transcribeURL string
	key           string
	model         string
	uploadTimeout time.Duration
	backoff       func() backoff.BackOff
}

// NewClient creates a transcriber client
func NewClient(transcribeURL, key, model string) (*Client, error) {
	res := Client{}
	if transcribeURL == "" {
		return nil, fmt.Errorf("no transcribeURL")
	}
	if model == "" {
		return nil, fmt.Errorf("no model")
	}
	res.transcribeURL = transcribeURL
	res.key = key
	res.model = model
	res.uploadTimeout = time.Minute * 10
	res.httpclient = speechHTTPClient()
	res.backoff = newSimpleBackoff
	return &res, nil
}

// Transcribe submits audio and returns the recognized text with a reported duration.
// verbose_json is requested so the service includes the audio duration
func (sp *Client) Transcribe(ctx context.Context, audio io.Reader, fileName string) (*tapi.Result, error) {
	audioData, err := io.ReadAll(audio)
	if err != nil {
		return nil, fmt.Errorf("can't read audio: %w", err)
	}
	if len(audioData) == 0 {
		return nil, fmt.Errorf("empty audio")
	}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("can't add file to request: %w", err)
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, fmt.Errorf("can't add file content to request: %w", err)
	}
	for k, v := range map[string]string{"model": sp.model, "response_format": "verbose_json"} {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("can't add param: %w", err)
		}
	}
	writer.Close()
	bodyData := body.Bytes()

	return goapp.InvokeWithBackoff(ctx, func() (*tapi.Result, bool, error) {
		req, err := http.NewRequest(http.MethodPost, sp.transcribeURL, bytes.NewReader(bodyData))
		if err != nil {
			return nil, false, err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		if sp.key != "" {
			req.Header.Set("Authorization", "Bearer "+sp.key)
		}

		ctx, cancelF := context.WithTimeout(ctx, sp.uploadTimeout)
		defer cancelF()
		req = req.WithContext(ctx)
		goapp.Log.Info().Str("url", req.URL.String()).Str("method", req.Method).Msg("call")
		resp, err := sp.httpclient.Do(req)
		if err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
			_ = resp.Body.Close()
		}()
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
			return nil, goapp.IsRetryableCode(resp.StatusCode), err
		}
		res := &tapi.Result{}
		if err := json.NewDecoder(resp.Body).Decode(res); err != nil {
			return nil, false, fmt.Errorf("can't decode response: %w", err)
		}
		return res, false, nil
	}, sp.backoff())
}

func speechHTTPClient() *http.Client {
	return &http.Client{Transport: newTransport()}
}

func newTransport() http.RoundTripper {
	// default roundripper is not well suited for our case
	// it has just 2 idle connections per host, so try to tune a bit
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 100
	res.MaxIdleConns = 50
	res.MaxIdleConnsPerHost = 50
	res.IdleConnTimeout = 90 * time.Second
	return res
}

func newSimpleBackoff() backoff.BackOff {
	res := backoff.NewExponentialBackOff()
	return backoff.WithMaxRetries(res, 3)
}
