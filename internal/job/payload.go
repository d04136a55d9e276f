package job

import (
	"errors"
	"strings"

	"github.com/spf13/cast"
)

const (
	EndpointSpeech          = "/v1/audio/speech"
	EndpointVoices          = "/v1/audio/voices"
	EndpointModels          = "/v1/models"
	EndpointPhonemize       = "/dev/phonemize"
	EndpointCaptionedSpeech = "/dev/captioned_speech"
	EndpointCombineVoices   = "/v1/audio/voices/combine"
)

const (
	DefaultModel  = "kokoro"
	DefaultVoice  = "af_bella"
	DefaultFormat = "mp3"
	DefaultSpeed  = 1.0
)

var ErrEmptyText = errors.New("text input cannot be empty")

// SpeechRequest is a synthesis request normalised from either the
// OpenAI-compatible payload (model/input/voice/response_format) or the
// simple one (text/voice/format).
type SpeechRequest struct {
	Model  string
	Input  string
	Voice  string
	Format string
	Speed  float64
}

// Endpoint returns the HTTP path a payload targets, or "" for direct
// synthesis payloads.
func Endpoint(input map[string]any) string {
	return strings.TrimSpace(cast.ToString(input["endpoint"]))
}

// Method returns the upper-cased HTTP method of a payload, POST if unset.
func Method(input map[string]any) string {
	m := strings.ToUpper(strings.TrimSpace(cast.ToString(input["method"])))
	if m == "" {
		return "POST"
	}
	return m
}

// ParseSpeech reads a synthesis request out of a job payload and fills in
// defaults for anything missing.
func ParseSpeech(input map[string]any) (SpeechRequest, error) {
	req := SpeechRequest{
		Model:  firstString(input, "model"),
		Input:  firstString(input, "input", "text"),
		Voice:  firstString(input, "voice"),
		Format: firstString(input, "response_format", "format"),
		Speed:  cast.ToFloat64(input["speed"]),
	}

	if req.Input == "" {
		return req, ErrEmptyText
	}
	if req.Model == "" {
		req.Model = DefaultModel
	}
	if req.Voice == "" {
		req.Voice = DefaultVoice
	}
	if req.Format == "" {
		req.Format = DefaultFormat
	}
	if req.Speed <= 0 {
		req.Speed = DefaultSpeed
	}

	return req, nil
}

func firstString(input map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(cast.ToString(input[k])); s != "" {
			return s
		}
	}
	return ""
}
