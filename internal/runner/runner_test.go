package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wrappertest/internal/job"
	"wrappertest/internal/notify"
)

// newTestRunner returns a runner that never sleeps and writes into a temp
// dir, plus the buffer holding its report.
func newTestRunner(t *testing.T, h job.Handler, cases []TestCase) (*Runner, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer

	r := NewRunner(h, cases)
	r.Out = &out
	r.OutputDir = t.TempDir()
	r.Wait = func(context.Context, time.Duration) error { return nil }
	return r, &out
}

func constHandler(res job.Result, err error) job.Handler {
	return job.HandlerFunc(func(ctx context.Context, j job.Job) (job.Result, error) {
		return res, err
	})
}

// endpointHandler answers voice listings and reports every other payload as
// unsupported.
func endpointHandler(voices []string) job.Handler {
	return job.HandlerFunc(func(ctx context.Context, j job.Job) (job.Result, error) {
		if job.Endpoint(j.Input) == job.EndpointVoices {
			return job.VoiceList(voices), nil
		}
		return job.Failure("unsupported"), nil
	})
}

func TestRun_OneOutcomePerCaseInOrder(t *testing.T) {
	cases := DefaultCases()
	r, _ := newTestRunner(t, constHandler(job.Result{"success": true, "message": "ok"}, nil), cases)

	outcomes := r.Run(context.Background())

	require.Len(t, outcomes, len(cases))
	for i, o := range outcomes {
		assert.Equal(t, cases[i].Name, o.Test)
		assert.Equal(t, StatusPass, o.Status, "unrecognised success still passes")
		assert.Empty(t, o.Error)
	}
}

func TestRun_EnvelopeWrapsInput(t *testing.T) {
	var seen []job.Job
	h := job.HandlerFunc(func(ctx context.Context, j job.Job) (job.Result, error) {
		seen = append(seen, j)
		return job.VoiceList(nil), nil
	})
	cases := DefaultCases()
	r, _ := newTestRunner(t, h, cases)

	r.Run(context.Background())

	require.Len(t, seen, len(cases))
	for i, j := range seen {
		assert.Equal(t, cases[i].Input, j.Input)
		assert.NotEmpty(t, j.ID)
	}
}

func TestRun_StartupDelay(t *testing.T) {
	var waited []time.Duration
	r, _ := newTestRunner(t, constHandler(job.VoiceList(nil), nil), nil)
	r.StartupDelay = 3 * time.Second
	r.Wait = func(_ context.Context, d time.Duration) error {
		waited = append(waited, d)
		return nil
	}

	r.Run(context.Background())

	assert.Equal(t, []time.Duration{3 * time.Second}, waited)

	waited = nil
	r.StartupDelay = 0
	r.Run(context.Background())
	assert.Empty(t, waited)
}

func TestRun_SavesDecodedAudio(t *testing.T) {
	payload := []byte("RIFF\x24\x00\x00\x00WAVEfmt ")
	req := job.SpeechRequest{Model: "kokoro", Input: "hi", Voice: "af_bella", Format: "wav", Speed: 1.2}
	cases := []TestCase{{Name: "TTS - Simple format", Input: map[string]any{"text": "hi"}}}
	r, out := newTestRunner(t, constHandler(job.Audio(req, payload), nil), cases)

	outcomes := r.Run(context.Background())

	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusPass, outcomes[0].Status)

	path := filepath.Join(r.OutputDir, "test_1_tts__simple_format.wav")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	assert.Contains(t, out.String(), "  Voice: af_bella\n")
	assert.Contains(t, out.String(), "  Speed: 1.2\n")
	assert.Contains(t, out.String(), "  Audio size: 16 bytes\n")
	assert.Contains(t, out.String(), "Audio saved as: "+path)
}

func TestRun_AudioDefaultsToMP3AndNA(t *testing.T) {
	res := job.Result{"success": true, "audio_base64": "SUQz"}
	r, out := newTestRunner(t, constHandler(res, nil), []TestCase{{Name: "Bare", Input: map[string]any{}}})

	outcomes := r.Run(context.Background())

	assert.Equal(t, StatusPass, outcomes[0].Status)
	assert.FileExists(t, filepath.Join(r.OutputDir, "test_1_bare.mp3"))
	assert.Contains(t, out.String(), "  Voice: N/A\n")
	assert.Contains(t, out.String(), "  Audio size: 0 bytes\n")
}

func TestRun_SavesCombinedVoiceFile(t *testing.T) {
	cases := DefaultCases()
	h := job.HandlerFunc(func(ctx context.Context, j job.Job) (job.Result, error) {
		if job.Endpoint(j.Input) == job.EndpointCombineVoices {
			return job.VoiceFile("af_bella+af_sky", []byte{0x80, 0x02}), nil
		}
		return job.Nested(map[string]any{"status": "ok"}), nil
	})
	r, out := newTestRunner(t, h, cases)

	outcomes := r.Run(context.Background())

	assert.Equal(t, StatusPass, outcomes[7].Status)
	data, err := os.ReadFile(filepath.Join(r.OutputDir, "combined_voice_8.pt"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80, 0x02}, data)
	assert.Contains(t, out.String(), "  Combined voices: af_bella+af_sky\n")
}

func TestRun_HandlerErrorDoesNotStopRun(t *testing.T) {
	calls := 0
	h := job.HandlerFunc(func(ctx context.Context, j job.Job) (job.Result, error) {
		calls++
		switch calls {
		case 1:
			return nil, errors.New("connection refused")
		case 2:
			panic("index out of range")
		default:
			return job.VoiceList([]string{"af_bella"}), nil
		}
	})
	cases := DefaultCases()[:3]
	r, out := newTestRunner(t, h, cases)

	outcomes := r.Run(context.Background())

	require.Len(t, outcomes, 3)
	assert.Equal(t, 3, calls)

	assert.Equal(t, StatusError, outcomes[0].Status)
	assert.Equal(t, "connection refused", outcomes[0].Error)

	assert.Equal(t, StatusError, outcomes[1].Status)
	assert.Contains(t, outcomes[1].Error, "index out of range")

	assert.Equal(t, StatusPass, outcomes[2].Status)
	assert.Contains(t, out.String(), "✗ Exception occurred: connection refused")
	assert.Contains(t, out.String(), "Failed: 2\n")
}

func TestRun_ReportedFailure(t *testing.T) {
	t.Run("with error text", func(t *testing.T) {
		r, out := newTestRunner(t, constHandler(job.Failure("X"), nil), []TestCase{{Name: "List Models"}})

		outcomes := r.Run(context.Background())

		assert.Equal(t, Outcome{Test: "List Models", Status: StatusFail, Error: "X"}, outcomes[0])
		assert.Contains(t, out.String(), "✗ Request failed: X\n")
		assert.Contains(t, out.String(), "✗ List Models: FAIL\n    Error: X\n")
	})

	t.Run("without error text", func(t *testing.T) {
		r, _ := newTestRunner(t, constHandler(job.Result{"success": false}, nil), []TestCase{{Name: "List Models"}})

		outcomes := r.Run(context.Background())

		assert.Equal(t, StatusFail, outcomes[0].Status)
		assert.Equal(t, "Unknown error", outcomes[0].Error)
	})
}

func TestRun_BadBase64IsAnError(t *testing.T) {
	res := job.Result{"success": true, "audio_base64": "%%% not base64 %%%"}
	r, _ := newTestRunner(t, constHandler(res, nil), []TestCase{{Name: "Broken audio"}})

	outcomes := r.Run(context.Background())

	assert.Equal(t, StatusError, outcomes[0].Status)
	assert.Contains(t, outcomes[0].Error, "audio_base64")
}

func TestRun_NilHandler(t *testing.T) {
	r, _ := newTestRunner(t, nil, []TestCase{{Name: "anything"}})

	outcomes := r.Run(context.Background())

	assert.Equal(t, StatusError, outcomes[0].Status)
}

func TestRun_VoiceListingScenario(t *testing.T) {
	r, out := newTestRunner(t, endpointHandler([]string{"a", "b", "c", "d"}), DefaultCases())

	outcomes := r.Run(context.Background())

	require.Len(t, outcomes, 8)
	assert.Equal(t, "List Voices", outcomes[3].Test)
	assert.Equal(t, StatusPass, outcomes[3].Status)

	report := out.String()
	assert.Contains(t, report, "  Found 4 voices\n")
	assert.Contains(t, report, "  Sample voices: [a, b, c]\n")
	assert.Contains(t, report, "✓ List Voices: PASS\n")
	assert.Contains(t, report, "Passed: 1\n")
	assert.Contains(t, report, "Failed: 7\n")
	assert.Contains(t, report, "⚠️  7 test(s) failed - review errors above")
}

func TestRun_ShortVoiceListPrintsAll(t *testing.T) {
	r, out := newTestRunner(t, constHandler(job.VoiceList([]string{"a", "b"}), nil), []TestCase{{Name: "List Voices"}})

	r.Run(context.Background())

	assert.Contains(t, out.String(), "  Sample voices: [a, b]\n")
}

func TestRun_ZeroCases(t *testing.T) {
	r, out := newTestRunner(t, constHandler(nil, nil), nil)

	outcomes := r.Run(context.Background())

	assert.Empty(t, outcomes)
	report := out.String()
	assert.Contains(t, report, "Total tests: 0\n")
	assert.Contains(t, report, "Passed: 0\n")
	assert.Contains(t, report, "Failed: 0\n")
	assert.NotContains(t, report, "Error:")
	assert.Contains(t, report, "ALL TESTS PASSED")
}

func TestRun_NestedResponses(t *testing.T) {
	longPhonemes := strings.Repeat("ə", 80)
	responses := []job.Result{
		job.Nested(map[string]any{"phonemes": longPhonemes, "tokens": []any{1, 2, 3}}),
		job.Nested(map[string]any{"audio": "SUQz", "timestamps": []any{map[string]any{"word": "a"}, map[string]any{"word": "b"}}}),
		job.Nested(map[string]any{"audio": "SUQz"}),
		job.ModelList([]any{map[string]any{"id": "kokoro"}}),
	}
	calls := 0
	h := job.HandlerFunc(func(ctx context.Context, j job.Job) (job.Result, error) {
		res := responses[calls]
		calls++
		return res, nil
	})
	cases := []TestCase{{Name: "Phonemize"}, {Name: "Captioned"}, {Name: "Captioned bare"}, {Name: "Models"}}
	r, out := newTestRunner(t, h, cases)

	outcomes := r.Run(context.Background())

	for _, o := range outcomes {
		assert.Equal(t, StatusPass, o.Status, o.Test)
	}
	report := out.String()
	assert.Contains(t, report, "  Phonemes: "+strings.Repeat("ə", 50)+"...\n")
	assert.Contains(t, report, "  Tokens count: 3\n")
	assert.Contains(t, report, "  Timestamp count: 2\n")
	assert.Equal(t, 1, strings.Count(report, "Timestamp count"))
	assert.Contains(t, report, `  Models response: [{"id":"kokoro"}]`)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(s notify.Summary) error {
	return m.Called(s).Error(0)
}

func TestRun_Notifier(t *testing.T) {
	n := new(mockNotifier)
	n.On("Notify", notify.Summary{Total: 8, Passed: 1, Failed: []string{
		"TTS - OpenAI-compatible format",
		"TTS - Simple format",
		"TTS - Voice combination",
		"List Models",
		"Phonemize Text",
		"Captioned Speech (with timestamps)",
		"Voice Combination",
	}}).Return(errors.New("webhook down"))

	r, _ := newTestRunner(t, endpointHandler([]string{"a"}), DefaultCases())
	r.Notifier = n

	outcomes := r.Run(context.Background())

	assert.Len(t, outcomes, 8, "notifier errors never change the outcome list")
	n.AssertExpectations(t)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{name: "TTS - OpenAI-compatible format", expected: "tts__openaicompatible_format"},
		{name: "Captioned Speech (with timestamps)", expected: "captioned_speech_with_timestamps"},
		{name: "List Voices", expected: "list_voices"},
		{name: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.name)
			assert.Equal(t, tt.expected, got)
			assert.NotContains(t, got, " ")
			assert.NotContains(t, got, "-")
			assert.NotContains(t, got, "(")
			assert.NotContains(t, got, ")")
		})
	}
}

func TestFileNames(t *testing.T) {
	assert.Equal(t, "test_1_tts__openaicompatible_format.mp3", AudioFileName(1, "TTS - OpenAI-compatible format", "mp3"))
	assert.Equal(t, "combined_voice_8.pt", VoiceFileName(8))
}

func TestTally(t *testing.T) {
	passed, failed := Tally([]Outcome{
		{Status: StatusPass},
		{Status: StatusFail},
		{Status: StatusError},
		{Status: StatusPass},
	})
	assert.Equal(t, 2, passed)
	assert.Equal(t, 2, failed)
}

func TestDefaultCases(t *testing.T) {
	cases := DefaultCases()
	require.Len(t, cases, 8)

	names := make(map[string]bool)
	for _, c := range cases {
		assert.NotEmpty(t, c.Input, c.Name)
		names[c.Name] = true
	}
	assert.Len(t, names, 8, "case names are unique")

	cases[0].Input["voice"] = "changed"
	assert.Equal(t, "af_bella", DefaultCases()[0].Input["voice"])
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	calls := 0
	h := job.HandlerFunc(func(ctx context.Context, j job.Job) (job.Result, error) {
		calls++
		return nil, ctx.Err()
	})
	n := new(mockNotifier)
	r, out := newTestRunner(t, h, DefaultCases())
	r.Notifier = n
	r.Wait = Sleep

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := r.Run(ctx)

	assert.Empty(t, outcomes)
	assert.Zero(t, calls)
	assert.Contains(t, out.String(), "✗ Run interrupted: context canceled")
	assert.Contains(t, out.String(), "Total tests: 0\n")
	n.AssertNotCalled(t, "Notify", mock.Anything)
}

func TestRun_CancelledMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	h := job.HandlerFunc(func(ctx context.Context, j job.Job) (job.Result, error) {
		calls++
		if calls == 2 {
			cancel()
			return nil, ctx.Err()
		}
		return job.VoiceList([]string{"af_bella"}), nil
	})
	n := new(mockNotifier)
	r, out := newTestRunner(t, h, DefaultCases())
	r.Notifier = n

	outcomes := r.Run(ctx)

	require.Len(t, outcomes, 1, "the interrupted case is not recorded")
	assert.Equal(t, StatusPass, outcomes[0].Status)
	assert.Equal(t, 2, calls)
	assert.Contains(t, out.String(), "Total tests: 1\n")
	assert.NotContains(t, out.String(), "Test 3:")
	n.AssertNotCalled(t, "Notify", mock.Anything)
}

func TestSleep(t *testing.T) {
	t.Run("elapses", func(t *testing.T) {
		assert.NoError(t, Sleep(context.Background(), time.Millisecond))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		start := time.Now()
		err := Sleep(ctx, time.Hour)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestRun_FormatCannotEscapeOutputDir(t *testing.T) {
	res := job.Result{"success": true, "audio_base64": "SUQz", "format": "../../escaped"}
	r, _ := newTestRunner(t, constHandler(res, nil), []TestCase{{Name: "Traversal"}})

	outcomes := r.Run(context.Background())

	assert.Equal(t, StatusPass, outcomes[0].Status)
	assert.FileExists(t, filepath.Join(r.OutputDir, "test_1_traversal.mp3"))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(r.OutputDir), "escaped"))
}
