package job

import (
	"encoding/base64"
)

// Failure builds a reported-failure result.
func Failure(msg string) Result {
	return Result{
		"success": false,
		"error":   msg,
	}
}

// Audio builds a single-audio result for a finished synthesis.
func Audio(req SpeechRequest, data []byte) Result {
	return Result{
		"success":      true,
		"audio_base64": base64.StdEncoding.EncodeToString(data),
		"voice":        req.Voice,
		"speed":        req.Speed,
		"format":       req.Format,
		"model":        req.Model,
		"size_bytes":   len(data),
	}
}

func VoiceList(voices []string) Result {
	return Result{
		"success": true,
		"voices":  voices,
	}
}

func ModelList(models any) Result {
	return Result{
		"success": true,
		"models":  models,
	}
}

// Nested wraps an arbitrary endpoint response under "result".
func Nested(result any) Result {
	return Result{
		"success": true,
		"result":  result,
	}
}

// VoiceFile builds a combined-voice result carrying the raw voice tensor.
func VoiceFile(voices string, data []byte) Result {
	return Result{
		"success":           true,
		"voice_file_base64": base64.StdEncoding.EncodeToString(data),
		"voices":            voices,
		"size_bytes":        len(data),
	}
}
