package editor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/doanvu/image-editing/internal/config"
	"github.com/doanvu/image-editing/internal/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client is the narrow contract with the remote image-edit API. Tests
// substitute fakes; production uses HTTPClient.
type Client interface {
	Edit(ctx context.Context, req *EditRequest) (*EditResponse, error)
}

type EditRequest struct {
	Image      []byte
	Prompt     string
	EditType   models.EditType
	Strength   float64
	Format     string
	Quality    string
	Background string
}

type EditResponse struct {
	Bytes         []byte
	RevisedPrompt string
}

// HTTPClient talks to an OpenAI-images-style edits endpoint. A client-side
// rate limiter paces requests so the remote 429 budget is rarely hit.
type HTTPClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewHTTPClient(cfg config.ImageAPIConfig, logger *zap.Logger) *HTTPClient {
	rpm := cfg.RatePerMinute
	if rpm <= 0 {
		rpm = 50
	}
	return &HTTPClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm/10+1),
		logger:  logger,
	}
}

type editAPIResponse struct {
	Data []struct {
		B64JSON       string `json:"b64_json"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *HTTPClient) Edit(ctx context.Context, req *EditRequest) (*EditResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, models.NewEditError(models.ErrKindTimeout,
			fmt.Sprintf("rate limiter wait aborted: %v", err))
	}

	body, contentType, err := c.buildForm(req)
	if err != nil {
		return nil, models.NewEditError(models.ErrKindInvalidInput,
			fmt.Sprintf("failed to build request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/edits", body)
	if err != nil {
		return nil, models.NewEditError(models.ErrKindInvalidInput,
			fmt.Sprintf("failed to create request: %v", err))
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, models.NewEditError(models.ErrKindTimeout,
				fmt.Sprintf("edit call cancelled: %v", err))
		}
		return nil, models.NewEditError(models.ErrKindServiceUnavailable,
			fmt.Sprintf("edit call failed: %v", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewEditError(models.ErrKindServiceUnavailable,
			fmt.Sprintf("failed to read response: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, mapAPIError(resp.StatusCode, raw)
	}

	var parsed editAPIResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, models.NewEditError(models.ErrKindServiceUnavailable,
			fmt.Sprintf("malformed API response: %v", err))
	}
	if len(parsed.Data) == 0 {
		return nil, models.NewEditError(models.ErrKindServiceUnavailable,
			"API response contained no image data")
	}

	edited, err := base64.StdEncoding.DecodeString(parsed.Data[0].B64JSON)
	if err != nil {
		return nil, models.NewEditError(models.ErrKindServiceUnavailable,
			fmt.Sprintf("failed to decode image payload: %v", err))
	}

	return &EditResponse{
		Bytes:         edited,
		RevisedPrompt: parsed.Data[0].RevisedPrompt,
	}, nil
}

func (c *HTTPClient) buildForm(req *EditRequest) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	part, err := w.CreateFormFile("image", "input.png")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Image); err != nil {
		return nil, "", err
	}

	fields := map[string]string{
		"model":  c.model,
		"prompt": req.Prompt,
		"n":      "1",
	}
	if req.EditType != "" && req.EditType != models.EditTypeGeneral {
		fields["edit_type"] = string(req.EditType)
	}
	if req.Strength > 0 {
		fields["strength"] = fmt.Sprintf("%.2f", req.Strength)
	}
	if req.Format != "" {
		fields["output_format"] = req.Format
	}
	if req.Quality != "" {
		fields["quality"] = req.Quality
	}
	if req.Background != "" {
		fields["background"] = req.Background
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

// mapAPIError converts an HTTP failure status to the closed error_kind set
// the scheduler's retry policy discriminates on.
func mapAPIError(status int, raw []byte) *models.EditError {
	msg := apiErrorMessage(raw, status)
	msgLower := strings.ToLower(msg)

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.NewEditError(models.ErrKindAuthFailed, msg)
	case http.StatusTooManyRequests:
		return models.NewEditError(models.ErrKindRateLimited, msg)
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		if strings.Contains(msgLower, "content_policy") ||
			strings.Contains(msgLower, "safety") ||
			strings.Contains(msgLower, "moderation") {
			return models.NewEditError(models.ErrKindContentPolicy, msg)
		}
		return models.NewEditError(models.ErrKindInvalidInput, msg)
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return models.NewEditError(models.ErrKindServiceUnavailable, msg)
	default:
		if status >= 500 {
			return models.NewEditError(models.ErrKindServiceUnavailable, msg)
		}
		return models.NewEditError(models.ErrKindInvalidInput, msg)
	}
}

func apiErrorMessage(raw []byte, status int) string {
	var parsed editAPIResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return fmt.Sprintf("API returned status %d", status)
}
