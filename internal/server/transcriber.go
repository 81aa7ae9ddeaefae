package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/yegors/micscribe/internal/audio"
	"github.com/yegors/micscribe/internal/config"
	"github.com/yegors/micscribe/pkg/logger"
)

// ErrInvalidPayload is returned for takes that do not start with a PCM16 WAV header
var ErrInvalidPayload = errors.New("invalid audio payload")

// Transcriber turns one complete take into text
type Transcriber interface {
	Transcribe(ctx context.Context, payload []byte) (string, error)
}

// OpenAITranscriber sends takes to the OpenAI audio transcription endpoint
type OpenAITranscriber struct {
	client   openai.Client
	model    string
	language string
	prompt   string
	timeout  time.Duration
	logger   *logger.Logger
}

// NewOpenAITranscriber creates a transcriber from the [transcriber] config section
func NewOpenAITranscriber(cfg config.TranscriberConfig, logger *logger.Logger) *OpenAITranscriber {
	return &OpenAITranscriber{
		client:   openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey)),
		model:    cfg.Model,
		language: cfg.Language,
		prompt:   cfg.Prompt,
		timeout:  cfg.Timeout(),
		logger:   logger.Named("openai"),
	}
}

// Transcribe uploads the take as a WAV file and returns the recognized text
func (t *OpenAITranscriber) Transcribe(ctx context.Context, payload []byte) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(payload), "take.wav", "audio/wav"),
		Model: openai.AudioModel(t.model),
	}
	if t.language != "" {
		params.Language = openai.String(t.language)
	}
	if t.prompt != "" {
		params.Prompt = openai.String(t.prompt)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	start := time.Now()
	transcription, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}

	t.logger.Debug("Transcription completed",
		logger.Int("payload_bytes", len(payload)),
		logger.Duration("duration", time.Since(start)),
		logger.Int("text_length", len(transcription.Text)))

	return transcription.Text, nil
}

// normalizeTake rewrites the open-ended stream header of a take with exact
// sizes. It returns nil PCM for a take that holds no samples.
func normalizeTake(payload []byte) ([]byte, error) {
	header, err := audio.ParseHeader(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if header.BitsPerSample != audio.BytesPerSample*8 {
		return nil, fmt.Errorf("%w: %d bits per sample", ErrInvalidPayload, header.BitsPerSample)
	}
	if header.NumChannels == 0 || header.SampleRate == 0 {
		return nil, fmt.Errorf("%w: empty format", ErrInvalidPayload)
	}

	pcm := payload[audio.HeaderSize:]
	if len(pcm) == 0 {
		return nil, nil
	}

	format := audio.Format{
		SampleRate: int(header.SampleRate),
		Channels:   int(header.NumChannels),
	}
	return audio.EncodeWAV(format, pcm), nil
}
