package faults

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestWrap_PreservesKindAndCause(t *testing.T) {
	cause := context.DeadlineExceeded
	err := Wrap(ErrTranscription, "transcribing", "whisper", "engine exited", cause)

	if !errors.Is(err, ErrTranscription) {
		t.Fatalf("errors.Is(err, ErrTranscription) = false: %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("cause not reachable: %v", err)
	}
	if !strings.Contains(err.Error(), "transcribing: whisper: engine exited") {
		t.Fatalf("error message = %q, want stage context", err.Error())
	}
}

func TestWrap_NoCause(t *testing.T) {
	err := Wrap(ErrContent, "upload", "", "not a video", nil)
	if got, want := err.Error(), "content error: upload: not a video"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestWrap_EmptyDetail(t *testing.T) {
	err := Wrap(ErrRender, " ", "", "", nil)
	if !strings.HasSuffix(err.Error(), "pipeline failure") {
		t.Fatalf("Error() = %q, want default detail", err.Error())
	}
}

func TestWrap_ExposesStage(t *testing.T) {
	err := fmt.Errorf("job 7: %w", Wrap(ErrAcquisition, " acquire ", "yt-dlp", "exit 1", nil))

	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("errors.As(*StageError) = false: %v", err)
	}
	if se.Kind != ErrAcquisition || se.Stage != "acquire" || se.Op != "yt-dlp" || se.Msg != "exit 1" {
		t.Errorf("StageError = %+v", se)
	}
}

func TestHTTPStatus_OutermostKindWins(t *testing.T) {
	inner := Wrap(ErrContent, "transcribe", "inspect", "no video stream", nil)
	err := Wrap(ErrRender, "render", "clip", "", inner)

	if got := HTTPStatus(err); got != http.StatusInternalServerError {
		t.Errorf("HTTPStatus() = %d, want %d", got, http.StatusInternalServerError)
	}
	if got := Code(err); got != "RENDER_FAILED" {
		t.Errorf("Code() = %q, want RENDER_FAILED", got)
	}
	if !errors.Is(err, ErrContent) {
		t.Error("inner kind should stay reachable through errors.Is")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"acquisition", Wrap(ErrAcquisition, "fetch", "", "", nil), http.StatusBadRequest},
		{"content", Wrap(ErrContent, "upload", "", "", nil), http.StatusBadRequest},
		{"validation", Wrap(ErrValidation, "request", "", "", nil), http.StatusBadRequest},
		{"transcription", Wrap(ErrTranscription, "transcribing", "", "", nil), http.StatusInternalServerError},
		{"render", Wrap(ErrRender, "rendering", "", "", nil), http.StatusInternalServerError},
		{"not found", Wrap(ErrNotFound, "download", "", "", nil), http.StatusNotFound},
		{"busy", Wrap(ErrBusy, "submit", "", "", nil), http.StatusServiceUnavailable},
		{"wrapped twice", fmt.Errorf("outer: %w", Wrap(ErrNotFound, "", "", "", nil)), http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCode(t *testing.T) {
	if got := Code(Wrap(ErrRender, "", "", "", nil)); got != "RENDER_FAILED" {
		t.Errorf("Code(render) = %q", got)
	}
	if got := Code(errors.New("x")); got != "INTERNAL_ERROR" {
		t.Errorf("Code(unknown) = %q", got)
	}
}
