package tts

import (
	"context"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
)

const DefaultVoice = "en-US-Neural2-F"

type GoogleTTS struct {
	c     *texttospeech.Client
	voice string
}

func NewGoogleTTS(ctx context.Context, voice string) (*GoogleTTS, error) {
	c, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	if voice == "" {
		voice = DefaultVoice
	}
	return &GoogleTTS{c: c, voice: voice}, nil
}

func (g *GoogleTTS) Close() error { return g.c.Close() }

// Synthesize returns LINEAR16 audio with a WAV header.
func (g *GoogleTTS) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	resp, err := g.c.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: voiceFor(g.voice, language),
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
			SampleRateHertz: 24000,
		},
	})
	if err != nil {
		return nil, err
	}
	return resp.AudioContent, nil
}

// voiceFor picks the configured voice when it belongs to language; otherwise the
// service chooses a default voice for the language.
func voiceFor(name, language string) *texttospeechpb.VoiceSelectionParams {
	v := &texttospeechpb.VoiceSelectionParams{LanguageCode: language}
	if strings.HasPrefix(strings.ToLower(name), strings.ToLower(language)+"-") {
		v.Name = name
	}
	return v
}
