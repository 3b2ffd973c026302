package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/heimdex/gifforge/internal/media"
)

// WhisperCPP runs the whisper.cpp CLI and reads its full JSON output.
type WhisperCPP struct {
	bin      string
	model    string
	language string
	runner   media.Runner
}

func NewWhisperCPP(bin, model, language string, runner media.Runner) *WhisperCPP {
	if bin == "" {
		bin = "whisper-cli"
	}
	return &WhisperCPP{bin: bin, model: model, language: language, runner: runner}
}

// whisperOutput mirrors the -ojf document; offsets are milliseconds.
type whisperOutput struct {
	Transcription []struct {
		Text    string        `json:"text"`
		Offsets whisperOffset `json:"offsets"`
		Tokens  []struct {
			Text    string        `json:"text"`
			Offsets whisperOffset `json:"offsets"`
		} `json:"tokens"`
	} `json:"transcription"`
}

type whisperOffset struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

func (w *WhisperCPP) Transcribe(ctx context.Context, audioPath string) ([]Segment, error) {
	outPrefix := filepath.Join(filepath.Dir(audioPath), "whisper")
	args := []string{
		"-m", w.model,
		"-f", audioPath,
		"-ojf",
		"-of", outPrefix,
		"-np",
	}
	if lang := strings.TrimSpace(w.language); lang != "" {
		args = append(args, "-l", lang)
	}
	if _, err := w.runner.Run(ctx, w.bin, args...); err != nil {
		return nil, fmt.Errorf("whisper.cpp failed: %w", err)
	}

	jsonPath := outPrefix + ".json"
	defer os.Remove(jsonPath)
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp completed but transcript is missing: %w", err)
	}
	return parseWhisperJSON(data)
}

func parseWhisperJSON(data []byte) ([]Segment, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse whisper.cpp json: %w", err)
	}

	segments := make([]Segment, 0, len(out.Transcription))
	for _, item := range out.Transcription {
		seg := Segment{
			Text:  strings.TrimSpace(item.Text),
			Start: ms(item.Offsets.From),
			End:   ms(item.Offsets.To),
		}
		for _, tok := range item.Tokens {
			// Special tokens look like [_BEG_] or [_TT_123].
			if strings.HasPrefix(tok.Text, "[_") {
				continue
			}
			text := tok.Text
			if text == "" {
				continue
			}
			startsWord := strings.HasPrefix(text, " ") || len(seg.Words) == 0
			trimmed := strings.TrimSpace(text)
			if trimmed == "" {
				continue
			}
			if startsWord {
				seg.Words = append(seg.Words, Word{
					Word:  trimmed,
					Start: ms(tok.Offsets.From),
					End:   ms(tok.Offsets.To),
				})
				continue
			}
			last := &seg.Words[len(seg.Words)-1]
			last.Word += trimmed
			last.End = ms(tok.Offsets.To)
		}
		if seg.Text == "" {
			continue
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func ms(v int64) float64 {
	return float64(v) / 1000
}
