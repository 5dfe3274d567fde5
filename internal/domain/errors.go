package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrGenerationFailed covers every way a dialogue reply can fail to
	// materialize: transport, auth, blocked or empty output.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrScoringFailed covers transport errors and invalid assessments.
	ErrScoringFailed = errors.New("scoring failed")
)

// CaptureReason classifies a failed speech capture.
type CaptureReason string

const (
	CaptureNoSpeech         CaptureReason = "no-speech"
	CapturePermissionDenied CaptureReason = "permission-denied"
	CaptureDeviceError      CaptureReason = "device-error"
	CaptureAborted          CaptureReason = "aborted"
)

// ParseCaptureReason maps a recognizer error code to a CaptureReason.
// Browser codes such as "not-allowed" or "audio-capture" are folded into the
// closest reason; anything unknown is a device error.
func ParseCaptureReason(code string) CaptureReason {
	switch code {
	case "no-speech", "no-match":
		return CaptureNoSpeech
	case "permission-denied", "not-allowed", "service-not-allowed":
		return CapturePermissionDenied
	case "aborted":
		return CaptureAborted
	}
	return CaptureDeviceError
}

// CaptureError is returned by a capture adapter that could not produce an
// utterance.
type CaptureError struct {
	Reason CaptureReason
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture failed: %s", e.Reason)
}
