package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/medspa-booking-assistant/internal/chatlog"
	"github.com/wolfman30/medspa-booking-assistant/internal/recording"
	"github.com/wolfman30/medspa-booking-assistant/internal/voice"
)

// Texts shown around the record gesture.
const (
	VoiceMarker        = "[voice message]"
	MicUnavailableText = "Microphone access denied or not available."
	RepeatPleaseText   = "I couldn't hear that clearly — please hold and speak again."
	TranscriptionError = "Transcription error."
	NoAudioTitle       = "No audio recorded"
	noAudioEmptyText   = "Hold the record button longer or allow microphone access."
	noAudioShortText   = "Hold the button longer to record speech."
)

// StartRecording begins the hold-to-record gesture.
func (o *Orchestrator) StartRecording(ctx context.Context) error {
	err := o.recorder.Press(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, recording.ErrMicrophoneUnavailable):
		o.cfg.metrics.ObserveRecording("mic_error")
		if lockErr := o.exclusive(ctx, func() {
			o.messages.Append(chatlog.OriginAssistant, MicUnavailableText)
		}); lockErr != nil {
			o.logger.Debug("assistant: mic error not shown", "error", lockErr)
		}
		return err
	default:
		return err
	}
}

// StopRecording ends the gesture. Accidental taps and empty captures raise a
// "No audio recorded" notice without contacting the backend; a real clip is
// transcribed and, if speech was recognized, sent as a turn.
func (o *Orchestrator) StopRecording(ctx context.Context) error {
	clip, err := o.recorder.Release(ctx)
	switch {
	case err == nil:
	case errors.Is(err, recording.ErrTooShort):
		o.cfg.metrics.ObserveRecording("too_short")
		o.notify(NoAudioTitle, noAudioShortText, o.cfg.noticeDuration)
		return nil
	case errors.Is(err, recording.ErrNoAudio):
		o.cfg.metrics.ObserveRecording("empty")
		o.notify(NoAudioTitle, noAudioEmptyText, o.cfg.noticeDuration)
		return nil
	case errors.Is(err, recording.ErrCancelled):
		o.cfg.metrics.ObserveRecording("cancelled")
		return nil
	default:
		return err
	}

	o.cfg.metrics.ObserveRecording("ok")
	return o.SubmitClip(ctx, clip)
}

// CancelRecording abandons the gesture and discards captured audio.
func (o *Orchestrator) CancelRecording() {
	if o.recorder.State() != recording.StateIdle {
		o.cfg.metrics.ObserveRecording("cancelled")
	}
	o.recorder.Cancel()
}

// SubmitClip transcribes a clip and forwards recognized speech as a turn.
func (o *Orchestrator) SubmitClip(ctx context.Context, clip *recording.Clip) error {
	if clip == nil || len(clip.Data) == 0 {
		return recording.ErrNoAudio
	}
	return o.exclusive(ctx, func() {
		o.messages.Append(chatlog.OriginUser, VoiceMarker)

		o.setThinking(true)
		text, err := o.speech.Transcribe(ctx, clip.Data, clip.ContentType)
		o.setThinking(false)

		var failure *voice.FailureError
		switch {
		case err == nil:
			o.cfg.metrics.ObserveTranscription("ok")
			o.runTurn(ctx, text, "voice")
		case errors.Is(err, voice.ErrEmptyTranscript):
			o.cfg.metrics.ObserveTranscription("empty")
			o.messages.Append(chatlog.OriginAssistant, RepeatPleaseText)
		case errors.As(err, &failure):
			o.cfg.metrics.ObserveTranscription("failed")
			detail := failure.Detail
			if detail == "" {
				detail = "unknown"
			}
			o.messages.Append(chatlog.OriginAssistant, fmt.Sprintf("Transcription failed: %s", detail))
		default:
			o.cfg.metrics.ObserveTranscription("error")
			o.logger.Warn("assistant: transcription request failed", "error", err)
			o.messages.Append(chatlog.OriginAssistant, TranscriptionError)
		}
	})
}
