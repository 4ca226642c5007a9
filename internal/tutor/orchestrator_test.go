package tutor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorly-backend/internal/apperr"
	"tutorly-backend/internal/models"
	"tutorly-backend/internal/services"
)

type fakeText struct {
	reply   *services.TutorReply
	err     error
	prompts []string
	media   [][]services.InlineMedia
}

func (f *fakeText) GenerateTutorReply(_ context.Context, prompt string, media []services.InlineMedia) (*services.TutorReply, error) {
	f.prompts = append(f.prompts, prompt)
	f.media = append(f.media, media)
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

// fakeSpeech answers with "audio:<text>" unless the text is listed in fail or empty.
type fakeSpeech struct {
	fail  map[string]error
	empty map[string]bool
	calls atomic.Int32
}

func (f *fakeSpeech) Synthesize(_ context.Context, text string) (string, error) {
	f.calls.Add(1)
	if err, ok := f.fail[text]; ok {
		return "", err
	}
	if f.empty[text] {
		return "", nil
	}
	return "audio:" + text, nil
}

func fractionsReply() *services.TutorReply {
	return &services.TutorReply{
		Explanation: "A fraction is a part of a whole.",
		Example:     "Half of a pizza is 1/2.",
	}
}

func TestOrchestrator_ProducesFullTurn(t *testing.T) {
	text := &fakeText{reply: fractionsReply()}
	speech := &fakeSpeech{}
	o := NewOrchestrator(text, speech)

	turn, err := o.Respond(context.Background(), TurnInput{Topic: "Fractions", Question: "explain fractions"})
	require.NoError(t, err)

	assert.Equal(t, models.RoleTutor, turn.Role)
	assert.Equal(t, "A fraction is a part of a whole.", turn.Explanation)
	assert.Equal(t, "Half of a pizza is 1/2.", turn.Example)
	assert.Equal(t, "audio:A fraction is a part of a whole.", turn.ExplanationAudio)
	assert.Equal(t, "audio:Half of a pizza is 1/2.", turn.ExampleAudio)
	assert.EqualValues(t, 2, speech.calls.Load())
}

func TestOrchestrator_NeverReturnsTextOnly(t *testing.T) {
	reply := fractionsReply()

	tests := []struct {
		name   string
		speech *fakeSpeech
	}{
		{"explanation audio fails", &fakeSpeech{fail: map[string]error{reply.Explanation: errors.New("tts quota")}}},
		{"example audio fails", &fakeSpeech{fail: map[string]error{reply.Example: errors.New("tts quota")}}},
		{"example audio empty", &fakeSpeech{empty: map[string]bool{reply.Example: true}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o := NewOrchestrator(&fakeText{reply: reply}, tc.speech)

			turn, err := o.Respond(context.Background(), TurnInput{Question: "explain fractions"})
			assert.Nil(t, turn)
			assert.Equal(t, apperr.KindAudioSynthesisFailed, apperr.KindOf(err))
		})
	}
}

func TestOrchestrator_TextFailureSkipsAudio(t *testing.T) {
	tests := []struct {
		name string
		text *fakeText
	}{
		{"generator error", &fakeText{err: errors.New("503")}},
		{"no output", &fakeText{}},
		{"missing example", &fakeText{reply: &services.TutorReply{Explanation: "only this"}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			speech := &fakeSpeech{}
			o := NewOrchestrator(tc.text, speech)

			_, err := o.Respond(context.Background(), TurnInput{Question: "q"})
			assert.Equal(t, apperr.KindGenerationFailed, apperr.KindOf(err))
			assert.EqualValues(t, 0, speech.calls.Load())
		})
	}
}

// barrierSpeech blocks each call until both legs have started.
type barrierSpeech struct {
	wg sync.WaitGroup
}

func (b *barrierSpeech) Synthesize(ctx context.Context, text string) (string, error) {
	b.wg.Done()
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return "audio:" + text, nil
	case <-time.After(2 * time.Second):
		return "", errors.New("audio legs did not run concurrently")
	}
}

func TestOrchestrator_AudioLegsRunConcurrently(t *testing.T) {
	speech := &barrierSpeech{}
	speech.wg.Add(2)
	o := NewOrchestrator(&fakeText{reply: fractionsReply()}, speech)

	turn, err := o.Respond(context.Background(), TurnInput{Question: "q"})
	require.NoError(t, err)
	assert.NotEmpty(t, turn.ExplanationAudio)
	assert.NotEmpty(t, turn.ExampleAudio)
}

func TestOrchestrator_PassesInlineAttachment(t *testing.T) {
	text := &fakeText{reply: fractionsReply()}
	o := NewOrchestrator(text, &fakeSpeech{})

	att := &services.PreparedAttachment{
		Name:     "worksheet.png",
		MIMEType: "image/png",
		Inline:   &services.InlineMedia{MIMEType: "image/png", Data: []byte{1, 2, 3}},
	}
	_, err := o.Respond(context.Background(), TurnInput{Question: "check my work", Attachment: att})
	require.NoError(t, err)

	require.Len(t, text.media, 1)
	require.Len(t, text.media[0], 1)
	assert.Equal(t, "image/png", text.media[0][0].MIMEType)
}
