package tts

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"go.uber.org/zap"

	"wrappertest/internal/job"
	"wrappertest/internal/logger"
)

var ErrEmptyInput = errors.New("job input is empty")

func LoadConfig(accessKeyID, secretAccessKey, region string) aws.Config {
	return aws.Config{
		Credentials: credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			"",
		),
		Region: region,
	}
}

// PollyHandler answers speech and voice-listing jobs with Amazon Polly.
// Kokoro-only routes come back as reported failures.
type PollyHandler struct {
	client *polly.Client
	Engine types.Engine
}

func NewPollyHandler(awsConfig aws.Config, optFns ...func(*polly.Options)) *PollyHandler {
	return &PollyHandler{
		client: polly.NewFromConfig(awsConfig, optFns...),
		Engine: types.EngineStandard,
	}
}

func (p *PollyHandler) Handle(ctx context.Context, j job.Job) (job.Result, error) {
	if len(j.Input) == 0 {
		return nil, ErrEmptyInput
	}

	endpoint := job.Endpoint(j.Input)
	logger.Info("handling job with polly", zap.String("job_id", j.ID), zap.String("endpoint", endpoint))

	switch endpoint {
	case "", job.EndpointSpeech:
		return p.synthesize(ctx, j.Input), nil
	case job.EndpointVoices:
		return p.voices(ctx), nil
	default:
		return job.Failure(fmt.Sprintf("endpoint %s is not supported by the polly backend", endpoint)), nil
	}
}

func (p *PollyHandler) synthesize(ctx context.Context, input map[string]any) job.Result {
	req, err := job.ParseSpeech(input)
	if err != nil {
		return job.Failure(err.Error())
	}

	format, ext, ok := outputFormat(req.Format)
	if !ok {
		return job.Failure(fmt.Sprintf("format %q is not supported by polly", req.Format))
	}
	req.Format = ext

	req.Voice = string(voiceID(req.Voice))
	req.Model = "polly-" + strings.ToLower(string(p.Engine))

	text, textType := req.Input, types.TextTypeText
	if req.Speed != job.DefaultSpeed {
		text, textType = prosody(req.Input, req.Speed), types.TextTypeSsml
	}

	output, err := p.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		TextType:     textType,
		OutputFormat: format,
		VoiceId:      types.VoiceId(req.Voice),
		Engine:       p.Engine,
	})
	if err != nil {
		logger.Warn("error synthesizing speech", zap.Error(err))
		return job.Failure(fmt.Sprintf("polly synthesis failed: %v", err))
	}
	defer func() {
		if err := output.AudioStream.Close(); err != nil {
			logger.Warn("error closing audio stream", zap.Error(err))
		}
	}()

	audio, err := io.ReadAll(output.AudioStream)
	if err != nil {
		return job.Failure(fmt.Sprintf("error reading audio stream: %v", err))
	}

	return job.Audio(req, audio)
}

func (p *PollyHandler) voices(ctx context.Context) job.Result {
	var (
		voices []string
		token  *string
	)

	for {
		output, err := p.client.DescribeVoices(ctx, &polly.DescribeVoicesInput{
			Engine:    p.Engine,
			NextToken: token,
		})
		if err != nil {
			return job.Failure(fmt.Sprintf("polly voice listing failed: %v", err))
		}

		for _, v := range output.Voices {
			voices = append(voices, string(v.Id))
		}

		if output.NextToken == nil || *output.NextToken == "" {
			break
		}
		token = output.NextToken
	}

	return job.VoiceList(voices)
}

// outputFormat maps a requested format to Polly's and to the extension the
// audio should be saved under.
func outputFormat(format string) (types.OutputFormat, string, bool) {
	switch strings.ToLower(format) {
	case "mp3":
		return types.OutputFormatMp3, "mp3", true
	case "ogg", "ogg_vorbis", "opus":
		return types.OutputFormatOggVorbis, "ogg", true
	case "pcm":
		return types.OutputFormatPcm, "pcm", true
	default:
		return "", "", false
	}
}

// voiceID falls back to Joanna for names Polly does not know, such as
// Kokoro voice ids.
func voiceID(name string) types.VoiceId {
	for _, v := range types.VoiceIdJoanna.Values() {
		if strings.EqualFold(string(v), name) {
			return v
		}
	}
	return types.VoiceIdJoanna
}

func prosody(text string, speed float64) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(text))
	return fmt.Sprintf(`<speak><prosody rate="%d%%">%s</prosody></speak>`, int(speed*100+0.5), b.String())
}
