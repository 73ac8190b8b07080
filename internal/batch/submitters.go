package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// AnthropicSubmitter implements the inline-array submission family:
// the whole request batch travels as one JSON array in the submit call,
// grounded on batch_processor.py's submit_anthropic_batch /
// check_anthropic_batch_status / process_batch_results (claude branch).
type AnthropicSubmitter struct {
	Client *http.Client
	APIKey string
	// BaseURL defaults to https://api.anthropic.com/v1/message_batches.
	BaseURL string
}

func (s *AnthropicSubmitter) baseURL() string {
	if s.BaseURL != "" {
		return s.BaseURL
	}
	return "https://api.anthropic.com/v1/message_batches"
}

func (s *AnthropicSubmitter) Submit(ctx context.Context, job *Job) error {
	type batchReq struct {
		CustomID string `json:"custom_id"`
		Params   struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		} `json:"params"`
	}

	requests := make([]batchReq, len(job.Requests))
	for i, r := range job.Requests {
		requests[i].CustomID = r.DirectiveID
		requests[i].Params.Model = r.Model
		requests[i].Params.MaxTokens = 4000
		requests[i].Params.Messages = []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{{Role: "user", Content: r.Prompt}}
	}

	body, err := json.Marshal(map[string]any{"requests": requests})
	if err != nil {
		return fmt.Errorf("batch: marshal anthropic batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", s.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("batch: submit anthropic batch: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("batch: anthropic submit returned %d: %s", resp.StatusCode, string(data))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("batch: parse anthropic submit response: %w", err)
	}
	job.RemoteID = result.ID
	return nil
}

func (s *AnthropicSubmitter) Poll(ctx context.Context, job *Job) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL()+"/"+job.RemoteID, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("x-api-key", s.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		ProcessingStatus string `json:"processing_status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("batch: parse anthropic status response: %w", err)
	}

	switch result.ProcessingStatus {
	case "completed":
		return StatusCompleted, nil
	case "failed", "expired", "canceled":
		return StatusFailed, nil
	default:
		return StatusProcessing, nil
	}
}

func (s *AnthropicSubmitter) Fetch(ctx context.Context, job *Job) (map[string]Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL()+"/"+job.RemoteID+"/results", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", s.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("batch: fetch anthropic results: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Results []struct {
			CustomID string `json:"custom_id"`
			Result   struct {
				Type    string `json:"type"`
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			} `json:"result"`
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
			Usage struct {
				InputTokens  int `json:"input_tokens"`
				OutputTokens int `json:"output_tokens"`
			} `json:"usage"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("batch: parse anthropic results: %w", err)
	}

	out := make(map[string]Result, len(payload.Results))
	for _, r := range payload.Results {
		if r.Result.Type == "message" && len(r.Result.Content) > 0 {
			out[r.CustomID] = Result{
				DirectiveID: r.CustomID,
				Success:     true,
				Content:     r.Result.Content[0].Text,
				TokensIn:    r.Usage.InputTokens,
				TokensOut:   r.Usage.OutputTokens,
			}
		} else {
			msg := r.Error.Message
			if msg == "" {
				msg = "unknown error"
			}
			out[r.CustomID] = Result{DirectiveID: r.CustomID, Success: false, Error: msg}
		}
	}
	return out, nil
}

// OpenAISubmitter implements the upload-then-reference submission
// family: the request batch is written as a line-delimited JSON file,
// uploaded, then a batch job is created referencing the uploaded file
// id. Grounded on batch_processor.py's submit_openai_batch /
// check_openai_batch_status / process_batch_results (openai branch).
type OpenAISubmitter struct {
	Client  *http.Client
	APIKey  string
	BaseURL string // defaults to https://api.openai.com/v1
}

func (s *OpenAISubmitter) baseURL() string {
	if s.BaseURL != "" {
		return s.BaseURL
	}
	return "https://api.openai.com/v1"
}

func (s *OpenAISubmitter) Submit(ctx context.Context, job *Job) error {
	var jsonl bytes.Buffer
	for _, r := range job.Requests {
		line, err := json.Marshal(map[string]any{
			"custom_id": r.DirectiveID,
			"method":    "POST",
			"url":       "/v1/chat/completions",
			"body": map[string]any{
				"model":      r.Model,
				"messages":   []map[string]string{{"role": "user", "content": r.Prompt}},
				"max_tokens": 4000,
			},
		})
		if err != nil {
			return fmt.Errorf("batch: marshal openai batch line: %w", err)
		}
		jsonl.Write(line)
		jsonl.WriteByte('\n')
	}

	fileID, err := s.uploadFile(ctx, jsonl.Bytes())
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]any{
		"input_file_id":     fileID,
		"endpoint":          "/v1/chat/completions",
		"completion_window": "24h",
	})
	if err != nil {
		return fmt.Errorf("batch: marshal openai batch create: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL()+"/batches", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("batch: create openai batch: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("batch: openai batch create returned %d: %s", resp.StatusCode, string(data))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("batch: parse openai batch create response: %w", err)
	}
	job.RemoteID = result.ID
	return nil
}

func (s *OpenAISubmitter) uploadFile(ctx context.Context, content []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("purpose", "batch"); err != nil {
		return "", err
	}
	part, err := writer.CreateFormFile("file", "batch.jsonl")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(content); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL()+"/files", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("batch: upload openai batch file: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("batch: parse openai upload response: %w", err)
	}
	return result.ID, nil
}

func (s *OpenAISubmitter) Poll(ctx context.Context, job *Job) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL()+"/batches/"+job.RemoteID, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		Status       string `json:"status"`
		OutputFileID string `json:"output_file_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("batch: parse openai status response: %w", err)
	}

	switch result.Status {
	case "completed":
		return StatusCompleted, nil
	case "failed", "expired", "cancelled":
		return StatusFailed, nil
	default:
		return StatusProcessing, nil
	}
}

func (s *OpenAISubmitter) Fetch(ctx context.Context, job *Job) (map[string]Result, error) {
	statusReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL()+"/batches/"+job.RemoteID, nil)
	if err != nil {
		return nil, err
	}
	statusReq.Header.Set("Authorization", "Bearer "+s.APIKey)

	statusResp, err := s.Client.Do(statusReq)
	if err != nil {
		return nil, fmt.Errorf("batch: re-fetch openai batch status: %w", err)
	}
	defer statusResp.Body.Close()

	var status struct {
		OutputFileID string `json:"output_file_id"`
	}
	if err := json.NewDecoder(statusResp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("batch: parse openai batch status: %w", err)
	}

	contentReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL()+"/files/"+status.OutputFileID+"/content", nil)
	if err != nil {
		return nil, err
	}
	contentReq.Header.Set("Authorization", "Bearer "+s.APIKey)

	contentResp, err := s.Client.Do(contentReq)
	if err != nil {
		return nil, fmt.Errorf("batch: download openai batch results: %w", err)
	}
	defer contentResp.Body.Close()

	data, err := io.ReadAll(contentResp.Body)
	if err != nil {
		return nil, err
	}

	out := make(map[string]Result)
	for _, line := range bytes.Split(bytes.TrimSpace(data), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var row struct {
			CustomID string `json:"custom_id"`
			Response struct {
				StatusCode int `json:"status_code"`
				Body       struct {
					Choices []struct {
						Message struct {
							Content string `json:"content"`
						} `json:"message"`
					} `json:"choices"`
					Usage struct {
						PromptTokens     int `json:"prompt_tokens"`
						CompletionTokens int `json:"completion_tokens"`
					} `json:"usage"`
				} `json:"body"`
			} `json:"response"`
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(line, &row); err != nil {
			continue
		}
		if row.Response.StatusCode == http.StatusOK && len(row.Response.Body.Choices) > 0 {
			out[row.CustomID] = Result{
				DirectiveID: row.CustomID,
				Success:     true,
				Content:     row.Response.Body.Choices[0].Message.Content,
				TokensIn:    row.Response.Body.Usage.PromptTokens,
				TokensOut:   row.Response.Body.Usage.CompletionTokens,
			}
		} else {
			msg := row.Error.Message
			if msg == "" {
				msg = "unknown error"
			}
			out[row.CustomID] = Result{DirectiveID: row.CustomID, Success: false, Error: msg}
		}
	}
	return out, nil
}
