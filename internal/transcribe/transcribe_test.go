package transcribe

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/heimdex/gifforge/internal/logging"
	"github.com/heimdex/gifforge/internal/media"
)

func TestPlaceholders_TwelveSeconds(t *testing.T) {
	segs := Placeholders(12)
	if len(segs) != 3 {
		t.Fatalf("len = %d, want 3", len(segs))
	}
	wantStarts := []float64{0, 4, 8}
	for i, s := range segs {
		if s.Start != wantStarts[i] || s.End != wantStarts[i]+4 {
			t.Errorf("segment %d = [%v, %v]", i, s.Start, s.End)
		}
		if !s.Placeholder {
			t.Errorf("segment %d not marked placeholder", i)
		}
	}
	if segs[1].Text != "Segment 2 (No audio)" {
		t.Errorf("text = %q", segs[1].Text)
	}
}

func TestPlaceholders_LongVideoCapsAtFiveSeconds(t *testing.T) {
	segs := Placeholders(23)
	if len(segs) != 5 {
		t.Fatalf("len = %d, want 5", len(segs))
	}
	if segs[0].Duration() != 5 {
		t.Errorf("first duration = %v, want 5", segs[0].Duration())
	}
	last := segs[len(segs)-1]
	if last.End != 23 || math.Abs(last.Duration()-3) > 1e-9 {
		t.Errorf("last segment = [%v, %v]", last.Start, last.End)
	}
}

func TestPlaceholders_CoversDurationWithoutGaps(t *testing.T) {
	for _, d := range []float64{0.1, 1, 2.5, 7.3, 14.999} {
		segs := Placeholders(d)
		if len(segs) == 0 {
			t.Fatalf("Placeholders(%v) empty", d)
		}
		if segs[0].Start != 0 || segs[len(segs)-1].End != d {
			t.Errorf("Placeholders(%v) spans [%v, %v]", d, segs[0].Start, segs[len(segs)-1].End)
		}
		for i := 1; i < len(segs); i++ {
			if segs[i].Start != segs[i-1].End {
				t.Errorf("Placeholders(%v) gap at %d", d, i)
			}
		}
	}
}

func TestPlaceholders_NonPositiveDuration(t *testing.T) {
	if segs := Placeholders(0); len(segs) != 0 {
		t.Errorf("Placeholders(0) = %v", segs)
	}
	if segs := Placeholders(-1); len(segs) != 0 {
		t.Errorf("Placeholders(-1) = %v", segs)
	}
}

const whisperJSON = `{
  "transcription": [
    {
      "offsets": {"from": 0, "to": 2500},
      "text": " Hello world",
      "tokens": [
        {"text": "[_BEG_]", "offsets": {"from": 0, "to": 0}},
        {"text": " Hel", "offsets": {"from": 0, "to": 400}},
        {"text": "lo", "offsets": {"from": 400, "to": 800}},
        {"text": " world", "offsets": {"from": 900, "to": 2400}},
        {"text": "[_TT_125]", "offsets": {"from": 2500, "to": 2500}}
      ]
    },
    {
      "offsets": {"from": 2500, "to": 6000},
      "text": " funny cat video",
      "tokens": []
    }
  ]
}`

type fakeRunner struct {
	fn func(args []string) error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (media.RunResult, error) {
	if f.fn != nil {
		if err := f.fn(args); err != nil {
			return media.RunResult{ExitCode: 1}, err
		}
	}
	return media.RunResult{}, nil
}

func TestParseWhisperJSON(t *testing.T) {
	segs, err := parseWhisperJSON([]byte(whisperJSON))
	if err != nil {
		t.Fatalf("parseWhisperJSON() error = %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("len = %d, want 2", len(segs))
	}
	if segs[0].Text != "Hello world" || segs[0].End != 2.5 {
		t.Errorf("segment 0 = %+v", segs[0])
	}
	if len(segs[0].Words) != 2 || segs[0].Words[0].Word != "Hello" || segs[0].Words[0].End != 0.8 {
		t.Errorf("words = %+v", segs[0].Words)
	}
	if segs[1].Start != 2.5 || segs[1].End != 6 {
		t.Errorf("segment 1 = %+v", segs[1])
	}
}

func TestWhisperCPP_Transcribe(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "audio.wav")
	runner := &fakeRunner{fn: func(args []string) error {
		for i, a := range args {
			if a == "-of" {
				return os.WriteFile(args[i+1]+".json", []byte(whisperJSON), 0o644)
			}
		}
		return errors.New("no -of flag")
	}}

	segs, err := NewWhisperCPP("", "model.bin", "en", runner).Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if len(segs) != 2 {
		t.Errorf("len = %d, want 2", len(segs))
	}
	if _, err := os.Stat(filepath.Join(dir, "whisper.json")); !os.IsNotExist(err) {
		t.Error("whisper output not cleaned up")
	}
}

func TestWhisperCPP_Failure(t *testing.T) {
	runner := &fakeRunner{fn: func(args []string) error {
		return &media.CommandError{Name: "whisper-cli", ExitCode: 1, StderrTail: "failed to load model"}
	}}
	_, err := NewWhisperCPP("", "missing.bin", "", runner).Transcribe(context.Background(), filepath.Join(t.TempDir(), "a.wav"))
	if err == nil || !strings.Contains(err.Error(), "failed to load model") {
		t.Fatalf("error = %v", err)
	}
}

func TestOpenAI_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.FormValue("response_format") != "verbose_json" || len(r.MultipartForm.Value["timestamp_granularities[]"]) != 2 {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "no file", http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		if string(data) != "RIFF" {
			http.Error(w, "bad audio", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"text": "hi there. bye now.",
			"segments": [{"text": " hi there.", "start": 0.0, "end": 1.5}, {"text": " bye now.", "start": 1.5, "end": 3.0}],
			"words": [
				{"word": "hi", "start": 0.0, "end": 0.4},
				{"word": "there", "start": 0.5, "end": 1.2},
				{"word": "bye", "start": 1.6, "end": 2.0},
				{"word": "now", "start": 2.1, "end": 2.9}
			]
		}`)
	}))
	defer srv.Close()

	audio := filepath.Join(t.TempDir(), "audio.wav")
	os.WriteFile(audio, []byte("RIFF"), 0o644)

	segs, err := NewOpenAI(srv.URL+"/", "sk-test", "whisper-1", "en", time.Minute).Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if len(segs) != 2 || segs[0].Text != "hi there." {
		t.Fatalf("segments = %+v", segs)
	}
	if len(segs[0].Words) != 2 || len(segs[1].Words) != 2 || segs[1].Words[0].Word != "bye" {
		t.Errorf("words not assigned: %+v", segs)
	}
}

func TestOpenAI_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	audio := filepath.Join(t.TempDir(), "audio.wav")
	os.WriteFile(audio, []byte("RIFF"), 0o644)

	_, err := NewOpenAI(srv.URL, "", "whisper-1", "", time.Minute).Transcribe(context.Background(), audio)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("error = %v, want APIError 429", err)
	}
}

type countingEngine struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	segments []Segment
}

func (c *countingEngine) Transcribe(ctx context.Context, audioPath string) ([]Segment, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		old := c.maxSeen.Load()
		if n <= old || c.maxSeen.CompareAndSwap(old, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return append([]Segment(nil), c.segments...), nil
}

func TestShared_SerializesCalls(t *testing.T) {
	engine := &countingEngine{segments: []Segment{{Text: "a", Start: 0, End: 1}}}
	shared := NewShared(engine, 0)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := shared.Transcribe(context.Background(), "a.wav"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if engine.maxSeen.Load() != 1 {
		t.Errorf("max concurrent calls = %d, want 1", engine.maxSeen.Load())
	}
}

type blockingEngine struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingEngine) Transcribe(ctx context.Context, audioPath string) ([]Segment, error) {
	close(b.started)
	<-b.release
	return nil, nil
}

func TestShared_WaitHonorsContext(t *testing.T) {
	engine := &blockingEngine{started: make(chan struct{}), release: make(chan struct{})}
	shared := NewShared(engine, 0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = shared.Transcribe(context.Background(), "first.wav")
	}()
	<-engine.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := shared.Transcribe(ctx, "second.wav")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Transcribe() error = %v, want deadline exceeded", err)
	}
	if waited := time.Since(start); waited > time.Second {
		t.Errorf("waiting call returned after %v", waited)
	}

	close(engine.release)
	<-done
}

func TestShared_NormalizesOrder(t *testing.T) {
	engine := &countingEngine{segments: []Segment{
		{Text: "second", Start: 3, End: 4},
		{Text: "bogus", Start: 2, End: 2},
		{Text: "first", Start: 0, End: 1},
	}}
	segs, err := NewShared(engine, 0).Transcribe(context.Background(), "a.wav")
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != 2 || segs[0].Text != "first" || segs[1].Text != "second" {
		t.Errorf("segments = %+v", segs)
	}
}

func TestNew_UnknownEngine(t *testing.T) {
	if _, err := New(Options{Engine: "vosk"}, &fakeRunner{}, logging.Discard()); err == nil {
		t.Error("expected error for unknown engine")
	}
	if _, err := New(Options{Engine: EngineOpenAI, BaseURL: "http://localhost"}, &fakeRunner{}, logging.Discard()); err != nil {
		t.Errorf("New(openai) error = %v", err)
	}
}
