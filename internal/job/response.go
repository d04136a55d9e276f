package job

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Kind tags the variant a Result decodes to.
type Kind int

const (
	KindUnknown Kind = iota
	KindFailure
	KindAudio
	KindVoiceFile
	KindVoiceList
	KindModelList
	KindPhonemes
	KindCaptionedSpeech
	KindNested
)

func (k Kind) String() string {
	switch k {
	case KindFailure:
		return "failure"
	case KindAudio:
		return "audio"
	case KindVoiceFile:
		return "voice_file"
	case KindVoiceList:
		return "voice_list"
	case KindModelList:
		return "model_list"
	case KindPhonemes:
		return "phonemes"
	case KindCaptionedSpeech:
		return "captioned_speech"
	case KindNested:
		return "result"
	default:
		return "unknown"
	}
}

// Response is one decoded handler result. The concrete type is one of the
// *Response structs below; switch on Kind or on the type.
type Response interface {
	Kind() Kind
}

type FailureResponse struct {
	Error string
}

// AudioResponse is a single synthesized clip. Empty strings mean the field
// was absent from the result.
type AudioResponse struct {
	AudioBase64 string
	Voice       string
	Speed       string
	Format      string
	Model       string
	SizeBytes   int
}

type VoiceFileResponse struct {
	FileBase64 string
	Voices     string
	SizeBytes  int
}

type VoiceListResponse struct {
	Voices []string
}

type ModelListResponse struct {
	Models any
}

type PhonemeResponse struct {
	Phonemes string
	Tokens   int
}

type CaptionedSpeechResponse struct {
	Audio         string
	HasTimestamps bool
	Timestamps    int
}

// NestedResponse is a "result" payload that is neither phonemes nor
// captioned speech.
type NestedResponse struct {
	Value any
}

// UnknownResponse is a successful result with no recognised field.
type UnknownResponse struct {
	Raw Result
}

func (FailureResponse) Kind() Kind         { return KindFailure }
func (AudioResponse) Kind() Kind           { return KindAudio }
func (VoiceFileResponse) Kind() Kind       { return KindVoiceFile }
func (VoiceListResponse) Kind() Kind       { return KindVoiceList }
func (ModelListResponse) Kind() Kind       { return KindModelList }
func (PhonemeResponse) Kind() Kind         { return KindPhonemes }
func (CaptionedSpeechResponse) Kind() Kind { return KindCaptionedSpeech }
func (NestedResponse) Kind() Kind          { return KindNested }
func (UnknownResponse) Kind() Kind         { return KindUnknown }

// Bytes decodes the audio payload.
func (a AudioResponse) Bytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(a.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding audio_base64: %w", err)
	}
	return data, nil
}

// Extension is the file extension the audio should be saved under. Formats
// that are empty or could act as a path fall back to DefaultFormat.
func (a AudioResponse) Extension() string {
	if a.Format == "" || a.Format == "." || a.Format == ".." || strings.ContainsAny(a.Format, `/\`) {
		return DefaultFormat
	}
	return a.Format
}

// Bytes decodes the voice tensor payload.
func (v VoiceFileResponse) Bytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(v.FileBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding voice_file_base64: %w", err)
	}
	return data, nil
}

// Decode classifies a handler result. Anything without a truthy "success"
// is a failure. A combine response also carries "voices", so the voice file
// check runs before the voice list check.
func Decode(r Result) Response {
	if !cast.ToBool(r["success"]) {
		return FailureResponse{Error: cast.ToString(r["error"])}
	}

	if v, ok := r["audio_base64"]; ok {
		return AudioResponse{
			AudioBase64: cast.ToString(v),
			Voice:       optionalString(r, "voice"),
			Speed:       speedString(r["speed"]),
			Format:      optionalString(r, "format"),
			Model:       optionalString(r, "model"),
			SizeBytes:   cast.ToInt(r["size_bytes"]),
		}
	}

	if v, ok := r["voice_file_base64"]; ok {
		return VoiceFileResponse{
			FileBase64: cast.ToString(v),
			Voices:     renderVoices(r["voices"]),
			SizeBytes:  cast.ToInt(r["size_bytes"]),
		}
	}

	if v, ok := r["voices"]; ok {
		return VoiceListResponse{Voices: cast.ToStringSlice(v)}
	}

	if v, ok := r["models"]; ok {
		return ModelListResponse{Models: v}
	}

	if v, ok := r["result"]; ok {
		return decodeNested(v)
	}

	return UnknownResponse{Raw: r}
}

func decodeNested(v any) Response {
	res, err := cast.ToStringMapE(v)
	if err != nil {
		return NestedResponse{Value: v}
	}

	if p, ok := res["phonemes"]; ok {
		return PhonemeResponse{
			Phonemes: cast.ToString(p),
			Tokens:   length(res["tokens"]),
		}
	}

	if a, ok := res["audio"]; ok {
		ts, has := res["timestamps"]
		return CaptionedSpeechResponse{
			Audio:         cast.ToString(a),
			HasTimestamps: has,
			Timestamps:    length(ts),
		}
	}

	return NestedResponse{Value: res}
}

func optionalString(r Result, key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	return cast.ToString(v)
}

// speedString renders float speeds with at least one decimal ("1.0", "1.25")
// and anything else as-is.
func speedString(v any) string {
	switch f := v.(type) {
	case nil:
		return ""
	case float64:
		return formatFloat(f, 64)
	case float32:
		return formatFloat(float64(f), 32)
	default:
		return cast.ToString(v)
	}
}

func formatFloat(f float64, bitSize int) string {
	s := strconv.FormatFloat(f, 'f', -1, bitSize)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

func renderVoices(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return strings.Join(cast.ToStringSlice(v), ", ")
}

// length counts elements of slices, arrays, maps and strings; anything else
// is zero.
func length(v any) int {
	if v == nil {
		return 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len()
	default:
		return 0
	}
}
