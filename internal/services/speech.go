package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"mime"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"tutorly-backend/internal/apperr"
)

const (
	defaultPCMSampleRate = 24000
	pcmChannels          = 1
	pcmBitsPerSample     = 16
)

// SpeechService turns tutor text into playable audio via Gemini TTS.
type SpeechService struct {
	client *genai.Client
	model  string
	voice  string
}

func NewSpeechService(ctx context.Context, apiKey, model, voice string) (*SpeechService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &SpeechService{client: client, model: model, voice: voice}, nil
}

// Synthesize returns a self-contained WAV data URI for text.
func (s *SpeechService) Synthesize(ctx context.Context, text string) (string, error) {
	const op = "speech.synthesize"

	if strings.TrimSpace(text) == "" {
		return "", apperr.New(apperr.KindAudioSynthesisFailed, op, "nothing to synthesize")
	}

	cfg := &genai.GenerateContentConfig{
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: s.voice},
			},
		},
	}
	cfg.ResponseModalities = append(cfg.ResponseModalities, "AUDIO")

	resp, err := s.client.Models.GenerateContent(ctx, s.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		cfg,
	)
	if err != nil {
		return "", apperr.Wrap(apperr.KindAudioSynthesisFailed, op, fmt.Errorf("GenAI TTS failed: %w", err))
	}

	pcm, mimeType := inlineAudio(resp)
	if len(pcm) == 0 {
		return "", apperr.New(apperr.KindAudioSynthesisFailed, op, "no audio returned")
	}

	wav := encodeWAV(pcm, pcmSampleRate(mimeType))
	return "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(wav), nil
}

func inlineAudio(resp *genai.GenerateContentResponse) ([]byte, string) {
	if resp == nil {
		return nil, ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, part.InlineData.MIMEType
			}
		}
	}
	return nil, ""
}

// pcmSampleRate reads the rate parameter from e.g. "audio/L16;codec=pcm;rate=24000".
func pcmSampleRate(mimeType string) int {
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return defaultPCMSampleRate
	}
	rate, err := strconv.Atoi(params["rate"])
	if err != nil || rate <= 0 {
		return defaultPCMSampleRate
	}
	return rate
}

// encodeWAV prefixes raw little-endian 16-bit mono PCM with a canonical RIFF header.
func encodeWAV(pcm []byte, sampleRate int) []byte {
	blockAlign := pcmChannels * pcmBitsPerSample / 8
	byteRate := sampleRate * blockAlign

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16)) // PCM fmt chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))  // PCM format
	binary.Write(&buf, binary.LittleEndian, uint16(pcmChannels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(pcmBitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}
