package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"wrappertest/internal/job"
	"wrappertest/internal/logger"
	"wrappertest/internal/notify"
	"wrappertest/internal/storage"
)

const DefaultStartupDelay = 10 * time.Second

type Status string

const (
	StatusPass  Status = "PASS"
	StatusFail  Status = "FAIL"
	StatusError Status = "ERROR"
)

const unknownError = "Unknown error"

type TestCase struct {
	Name  string
	Input map[string]any
}

// Outcome is the verdict for one case. Error is empty for PASS.
type Outcome struct {
	Test   string `json:"test"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

type Notifier interface {
	Notify(s notify.Summary) error
}

// Runner invokes Handler once per case, in order, and prints a report to Out.
type Runner struct {
	Handler      job.Handler
	Cases        []TestCase
	Out          io.Writer
	OutputDir    string
	StartupDelay time.Duration
	// Wait blocks for the startup delay or until ctx is done; tests swap it
	// out.
	Wait     func(ctx context.Context, d time.Duration) error
	Notifier Notifier
}

func NewRunner(h job.Handler, cases []TestCase) *Runner {
	return &Runner{
		Handler:      h,
		Cases:        cases,
		Out:          os.Stdout,
		OutputDir:    ".",
		StartupDelay: DefaultStartupDelay,
		Wait:         Sleep,
	}
}

// Sleep waits for d, returning early with ctx's error if ctx is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run executes every case and returns one outcome per case in definition
// order. No case can stop the ones after it, but cancelling ctx stops the
// run: the interrupted case is dropped, the summary covers the finished
// cases and no notification is sent.
func (r *Runner) Run(ctx context.Context) []Outcome {
	r.printf("Testing Kokoro FastAPI Serverless Wrapper - ALL ENDPOINTS\n")
	r.printf("%s\n", strings.Repeat("=", 60))

	r.printf("Waiting for FastAPI to start...\n")
	if err := r.wait(ctx); err != nil {
		return r.interrupted(nil, err)
	}

	outcomes := make([]Outcome, 0, len(r.Cases))
	for i, tc := range r.Cases {
		if err := ctx.Err(); err != nil {
			return r.interrupted(outcomes, err)
		}

		outcome := r.runCase(ctx, i+1, tc)
		if err := ctx.Err(); err != nil {
			return r.interrupted(outcomes, err)
		}

		logger.Info("test case finished",
			zap.Int("index", i+1),
			zap.String("test", tc.Name),
			zap.String("status", string(outcome.Status)))
		outcomes = append(outcomes, outcome)
		r.printf("\n")
	}

	r.printSummary(outcomes)
	r.notify(outcomes)

	return outcomes
}

func (r *Runner) wait(ctx context.Context) error {
	if r.StartupDelay <= 0 || r.Wait == nil {
		return ctx.Err()
	}
	return r.Wait(ctx, r.StartupDelay)
}

func (r *Runner) interrupted(outcomes []Outcome, err error) []Outcome {
	logger.Warn("run interrupted", zap.Int("completed", len(outcomes)), zap.Error(err))
	r.printf("\n✗ Run interrupted: %v\n", err)
	if outcomes == nil {
		outcomes = []Outcome{}
	}
	r.printSummary(outcomes)
	return outcomes
}

func (r *Runner) runCase(ctx context.Context, idx int, tc TestCase) Outcome {
	r.printf("Test %d: %s\n", idx, tc.Name)
	r.printf("%s\n", strings.Repeat("-", 40))

	j := job.New(tc.Input)
	logger.Debug("invoking handler", zap.String("job_id", j.ID), zap.String("test", tc.Name))

	resp, err := r.invoke(ctx, j)
	if err != nil {
		r.printf("✗ Exception occurred: %v\n", err)
		return Outcome{Test: tc.Name, Status: StatusError, Error: err.Error()}
	}

	if f, ok := resp.(job.FailureResponse); ok {
		msg := f.Error
		if msg == "" {
			msg = unknownError
		}
		r.printf("✗ Request failed: %s\n", msg)
		return Outcome{Test: tc.Name, Status: StatusFail, Error: msg}
	}

	r.printf("✓ Request successful\n")
	if err := r.report(idx, tc.Name, resp); err != nil {
		r.printf("✗ Exception occurred: %v\n", err)
		return Outcome{Test: tc.Name, Status: StatusError, Error: err.Error()}
	}

	return Outcome{Test: tc.Name, Status: StatusPass}
}

// invoke calls the handler, turning a returned error or a panic into err.
func (r *Runner) invoke(ctx context.Context, j job.Job) (resp job.Response, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("handler panicked", zap.String("job_id", j.ID), zap.Any("panic", rec))
			resp, err = nil, fmt.Errorf("handler panicked: %v", rec)
		}
	}()

	if r.Handler == nil {
		return nil, fmt.Errorf("no handler configured")
	}

	result, err := r.Handler.Handle(ctx, j)
	if err != nil {
		return nil, err
	}

	return job.Decode(result), nil
}

// report prints the kind-specific details of a successful response and
// saves any binary payload it carries.
func (r *Runner) report(idx int, name string, resp job.Response) error {
	switch v := resp.(type) {
	case job.AudioResponse:
		r.printf("  Voice: %s\n", orNA(v.Voice))
		r.printf("  Speed: %s\n", orNA(v.Speed))
		r.printf("  Format: %s\n", orNA(v.Format))
		r.printf("  Model: %s\n", orNA(v.Model))
		r.printf("  Audio size: %d bytes\n", v.SizeBytes)

		data, err := v.Bytes()
		if err != nil {
			return err
		}
		path, err := storage.SaveArtifact(r.OutputDir, AudioFileName(idx, name, v.Extension()), data)
		if err != nil {
			return err
		}
		r.printf("  Audio saved as: %s\n", path)

	case job.VoiceFileResponse:
		r.printf("  Voice combination successful\n")
		r.printf("  Combined voices: %s\n", orNA(v.Voices))
		r.printf("  File size: %d bytes\n", v.SizeBytes)

		data, err := v.Bytes()
		if err != nil {
			return err
		}
		path, err := storage.SaveArtifact(r.OutputDir, VoiceFileName(idx), data)
		if err != nil {
			return err
		}
		r.printf("  Voice file saved as: %s\n", path)

	case job.VoiceListResponse:
		sample := v.Voices
		if len(sample) > 3 {
			sample = sample[:3]
		}
		r.printf("  Found %d voices\n", len(v.Voices))
		r.printf("  Sample voices: [%s]\n", strings.Join(sample, ", "))

	case job.ModelListResponse:
		r.printf("  Models response: %s\n", render(v.Models))

	case job.PhonemeResponse:
		r.printf("  Phonemes: %s\n", truncate(v.Phonemes, 50))
		r.printf("  Tokens count: %d\n", v.Tokens)

	case job.CaptionedSpeechResponse:
		r.printf("  Captioned speech with audio and timestamps\n")
		if v.HasTimestamps {
			r.printf("  Timestamp count: %d\n", v.Timestamps)
		}

	case job.NestedResponse:
		r.printf("  Result: %s\n", truncate(render(v.Value), 100))

	case job.UnknownResponse:
		r.printf("  Response: %s\n", truncate(render(v.Raw), 100))
	}

	return nil
}

func (r *Runner) printSummary(outcomes []Outcome) {
	passed, failed := Tally(outcomes)

	r.printf("%s\n", strings.Repeat("=", 60))
	r.printf("TEST SUMMARY\n")
	r.printf("%s\n", strings.Repeat("=", 60))

	r.printf("Total tests: %d\n", len(outcomes))
	r.printf("Passed: %d\n", passed)
	r.printf("Failed: %d\n", failed)
	r.printf("\n")

	for _, o := range outcomes {
		icon := "✗"
		if o.Status == StatusPass {
			icon = "✓"
		}
		r.printf("%s %s: %s\n", icon, o.Test, o.Status)
		if o.Error != "" {
			r.printf("    Error: %s\n", o.Error)
		}
	}

	r.printf("\nWrapper testing complete!\n")
	if failed == 0 {
		r.printf("🎉 ALL TESTS PASSED - Wrapper is ready for deployment!\n")
	} else {
		r.printf("⚠️  %d test(s) failed - review errors above\n", failed)
	}
}

func (r *Runner) notify(outcomes []Outcome) {
	if r.Notifier == nil {
		return
	}

	passed, _ := Tally(outcomes)
	s := notify.Summary{Total: len(outcomes), Passed: passed}
	for _, o := range outcomes {
		if o.Status != StatusPass {
			s.Failed = append(s.Failed, o.Test)
		}
	}

	if err := r.Notifier.Notify(s); err != nil {
		logger.Warn("failed to send run summary", zap.Error(err))
	}
}

func (r *Runner) printf(format string, args ...any) {
	out := r.Out
	if out == nil {
		out = os.Stdout
	}
	_, _ = fmt.Fprintf(out, format, args...)
}

// Tally counts PASS outcomes and everything else.
func Tally(outcomes []Outcome) (passed, failed int) {
	for _, o := range outcomes {
		if o.Status == StatusPass {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

var nameReplacer = strings.NewReplacer(" ", "_", "-", "", "(", "", ")", "")

// Sanitize turns a test name into a filename token: lower case, spaces to
// underscores, hyphens and parentheses dropped.
func Sanitize(name string) string {
	return nameReplacer.Replace(strings.ToLower(name))
}

func AudioFileName(idx int, name, ext string) string {
	return fmt.Sprintf("test_%d_%s.%s", idx, Sanitize(name), ext)
}

func VoiceFileName(idx int) string {
	return fmt.Sprintf("combined_voice_%d.pt", idx)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func render(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
