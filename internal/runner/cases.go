package runner

// DefaultCases covers every route the wrapper exposes: direct synthesis in
// both payload styles plus the pass-through HTTP endpoints.
func DefaultCases() []TestCase {
	return []TestCase{
		{
			Name: "TTS - OpenAI-compatible format",
			Input: map[string]any{
				"model":           "kokoro",
				"input":           "Hello, this is a test using the wrapper approach.",
				"voice":           "af_bella",
				"response_format": "mp3",
				"speed":           1.0,
			},
		},
		{
			Name: "TTS - Simple format",
			Input: map[string]any{
				"text":   "Testing simple format with the wrapper.",
				"voice":  "af_bella",
				"format": "wav",
				"speed":  1.2,
			},
		},
		{
			Name: "TTS - Voice combination",
			Input: map[string]any{
				"model":           "kokoro",
				"input":           "Testing voice combinations.",
				"voice":           "af_bella+af_sky",
				"response_format": "mp3",
			},
		},
		{
			Name: "List Voices",
			Input: map[string]any{
				"endpoint": "/v1/audio/voices",
				"method":   "GET",
			},
		},
		{
			Name: "List Models",
			Input: map[string]any{
				"endpoint": "/v1/models",
				"method":   "GET",
			},
		},
		{
			Name: "Phonemize Text",
			Input: map[string]any{
				"endpoint": "/dev/phonemize",
				"method":   "POST",
				"text":     "Hello world, this is a phonemization test.",
				"language": "a",
			},
		},
		{
			Name: "Captioned Speech (with timestamps)",
			Input: map[string]any{
				"endpoint":          "/dev/captioned_speech",
				"method":            "POST",
				"input":             "This is a test for captioned speech with word timestamps.",
				"voice":             "af_bella",
				"response_format":   "mp3",
				"return_timestamps": true,
			},
		},
		{
			Name: "Voice Combination",
			Input: map[string]any{
				"endpoint": "/v1/audio/voices/combine",
				"method":   "POST",
				"voices":   "af_bella+af_sky",
			},
		},
	}
}
