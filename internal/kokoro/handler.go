package kokoro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"wrappertest/internal/job"
	"wrappertest/internal/logger"
)

const defaultLanguage = "a"

var ErrEmptyInput = errors.New("job input is empty")

// Handler translates jobs into calls against a Kokoro FastAPI server. It is
// the in-process equivalent of the serverless wrapper: every route decision
// lives here.
type Handler struct {
	client *openai.Client
	rest   *resty.Client
}

func NewHandler(baseURL, apiKey string, timeout time.Duration) *Handler {
	httpClient := newHTTPClient(timeout)
	baseURL = strings.TrimRight(baseURL, "/")

	return &Handler{
		client: CreateClient(baseURL, apiKey, httpClient),
		rest:   createRestClient(baseURL, httpClient),
	}
}

// Handle never returns upstream failures as errors; those come back as
// failure results. An error means the job itself could not be handled.
func (h *Handler) Handle(ctx context.Context, j job.Job) (job.Result, error) {
	if len(j.Input) == 0 {
		return nil, ErrEmptyInput
	}

	endpoint := job.Endpoint(j.Input)
	method := job.Method(j.Input)
	logger.Info("handling job",
		zap.String("job_id", j.ID),
		zap.String("endpoint", endpoint),
		zap.String("method", method))

	switch endpoint {
	case "", job.EndpointSpeech:
		return h.speech(ctx, j.Input), nil
	case job.EndpointVoices:
		return h.voices(ctx), nil
	case job.EndpointModels:
		return h.models(ctx), nil
	case job.EndpointPhonemize:
		return h.phonemize(ctx, j.Input), nil
	case job.EndpointCombineVoices:
		return h.combineVoices(ctx, j.Input), nil
	case job.EndpointCaptionedSpeech:
		body := requestBody(j.Input)
		if _, ok := body["stream"]; !ok {
			body["stream"] = false
		}
		return h.passthrough(ctx, method, endpoint, body), nil
	default:
		return h.passthrough(ctx, method, endpoint, requestBody(j.Input)), nil
	}
}

func (h *Handler) speech(ctx context.Context, input map[string]any) job.Result {
	req, err := job.ParseSpeech(input)
	if err != nil {
		return job.Failure(err.Error())
	}

	resp, err := h.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(req.Model),
		Input:          req.Input,
		Voice:          openai.SpeechVoice(req.Voice),
		ResponseFormat: openai.SpeechResponseFormat(req.Format),
		Speed:          req.Speed,
	})
	if err != nil {
		logger.Warn("speech request failed", zap.String("voice", req.Voice), zap.Error(err))
		return job.Failure(fmt.Sprintf("speech request failed: %v", err))
	}
	defer func() {
		if err := resp.Close(); err != nil {
			logger.Warn("error closing speech response", zap.Error(err))
		}
	}()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return job.Failure(fmt.Sprintf("failed to read audio response: %v", err))
	}
	if len(audio) == 0 {
		return job.Failure("speech response was empty")
	}

	logger.Debug("speech synthesized",
		zap.String("voice", req.Voice),
		zap.String("format", req.Format),
		zap.Int("size_bytes", len(audio)))

	return job.Audio(req, audio)
}

func (h *Handler) voices(ctx context.Context) job.Result {
	var out struct {
		Voices []string `json:"voices"`
	}

	resp, err := h.rest.R().
		SetContext(ctx).
		SetResult(&out).
		Get(job.EndpointVoices)
	if failure := checkResponse(resp, err); failure != nil {
		return failure
	}

	return job.VoiceList(out.Voices)
}

func (h *Handler) models(ctx context.Context) job.Result {
	list, err := h.client.ListModels(ctx)
	if err != nil {
		return job.Failure(fmt.Sprintf("model listing failed: %v", err))
	}

	return job.ModelList(list.Models)
}

func (h *Handler) phonemize(ctx context.Context, input map[string]any) job.Result {
	text := cast.ToString(input["text"])
	if strings.TrimSpace(text) == "" {
		return job.Failure(job.ErrEmptyText.Error())
	}
	language := cast.ToString(input["language"])
	if language == "" {
		language = defaultLanguage
	}

	var out map[string]any
	resp, err := h.rest.R().
		SetContext(ctx).
		SetBody(map[string]any{"text": text, "language": language}).
		SetResult(&out).
		Post(job.EndpointPhonemize)
	if failure := checkResponse(resp, err); failure != nil {
		return failure
	}

	return job.Nested(out)
}

// combineVoices posts the voice combination ("a+b" or a list) and returns the
// resulting .pt tensor.
func (h *Handler) combineVoices(ctx context.Context, input map[string]any) job.Result {
	voices := input["voices"]
	if voices == nil {
		return job.Failure("voices field is required")
	}

	body, err := json.Marshal(voices)
	if err != nil {
		return job.Failure(fmt.Sprintf("invalid voices field: %v", err))
	}

	resp, err := h.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(job.EndpointCombineVoices)
	if failure := checkResponse(resp, err); failure != nil {
		return failure
	}

	data := resp.Body()
	if len(data) == 0 {
		return job.Failure("voice combination returned an empty file")
	}

	return job.VoiceFile(voiceCombo(voices), data)
}

// passthrough forwards the payload unchanged and nests whatever JSON comes
// back under "result".
func (h *Handler) passthrough(ctx context.Context, method, endpoint string, body map[string]any) job.Result {
	req := h.rest.R().SetContext(ctx)
	if method != "GET" && method != "HEAD" && len(body) > 0 {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, endpoint)
	if failure := checkResponse(resp, err); failure != nil {
		return failure
	}

	var out any
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return job.Nested(resp.String())
	}

	return job.Nested(out)
}

func checkResponse(resp *resty.Response, err error) job.Result {
	if err != nil {
		return job.Failure(fmt.Sprintf("request failed: %v", err))
	}
	if resp.IsError() {
		return job.Failure(fmt.Sprintf("%s %s returned %d: %s",
			resp.Request.Method, resp.Request.URL, resp.StatusCode(), truncate(resp.String(), 200)))
	}
	return nil
}

// requestBody strips the routing keys from a payload.
func requestBody(input map[string]any) map[string]any {
	body := make(map[string]any, len(input))
	for k, v := range input {
		if k == "endpoint" || k == "method" {
			continue
		}
		body[k] = v
	}
	return body
}

func voiceCombo(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return strings.Join(cast.ToStringSlice(v), "+")
}

// truncate keeps at most maxLen runes of s.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
