package selection

import (
	"reflect"
	"testing"

	"github.com/heimdex/gifforge/internal/transcribe"
)

func seg(text string, start, end float64) transcribe.Segment {
	return transcribe.Segment{Text: text, Start: start, End: end}
}

func texts(segs []transcribe.Segment) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.Text
	}
	return out
}

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		seg    transcribe.Segment
		prompt string
		want   int
	}{
		{"keyword and ideal length", seg("I love cats", 0, 3), "cats", 8},
		{"no keyword ideal length", seg("hello there", 0, 2), "cats", 3},
		{"no keyword short", seg("hi", 0, 1), "cats", 0},
		{"upper bound inclusive", seg("bye", 3, 10), "cats", 3},
		{"just past upper bound", seg("bye", 3, 10.01), "cats", 0},
		{"substring match", seg("concatenate", 0, 1), "cat", 5},
		{"case insensitive", seg("FUNNY Cat", 0, 1), "funny CAT", 10},
		{"repeated keyword counts twice", seg("cat", 0, 1), "cat cat", 10},
		{"empty prompt", seg("anything", 0, 1), "   ", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.seg, Keywords(tt.prompt)); got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSelect_KeywordRanking(t *testing.T) {
	transcript := []transcribe.Segment{
		seg("hello world", 0, 2),
		seg("goodbye", 3, 11),
	}
	got := SelectSegments(transcript, "hello")
	if !reflect.DeepEqual(texts(got), []string{"hello world"}) {
		t.Errorf("Select() = %v, want [hello world]", texts(got))
	}
}

func TestSelect_SevenSecondSegmentGetsLengthBonus(t *testing.T) {
	transcript := []transcribe.Segment{
		seg("hello world", 0, 2),
		seg("goodbye", 3, 10),
	}
	res := Select(transcript, "hello")
	if len(res.Segments) != 2 {
		t.Fatalf("len = %d, want 2", len(res.Segments))
	}
	if res.Segments[0].Score != 8 || res.Segments[1].Score != 3 {
		t.Errorf("scores = %d, %d", res.Segments[0].Score, res.Segments[1].Score)
	}
}

func TestSelect_AtMostThreeStableOrder(t *testing.T) {
	transcript := []transcribe.Segment{
		seg("cat one", 0, 1),
		seg("cat two", 1, 2),
		seg("cat three", 2, 3),
		seg("cat four", 3, 4),
		seg("cat cat best", 4, 5),
	}
	res := Select(transcript, "cat")
	if res.Fallback {
		t.Error("unexpected fallback")
	}
	want := []string{"cat one", "cat two", "cat three"}
	if got := texts(SelectSegments(transcript, "cat")); !reflect.DeepEqual(got, want) {
		t.Errorf("Select() = %v, want %v", got, want)
	}

	// Higher score wins over position.
	res = Select(transcript, "best")
	if len(res.Segments) != 1 || res.Segments[0].Segment.Text != "cat cat best" {
		t.Errorf("Select(best) = %+v", res.Segments)
	}
}

func TestSelect_FallbackLongest(t *testing.T) {
	transcript := []transcribe.Segment{
		seg("a", 0, 1),
		seg("b", 1, 1.5),
		seg("c", 1.5, 11.5),
		seg("d", 12, 13),
		seg("e", 13, 22),
	}
	original := append([]transcribe.Segment(nil), transcript...)

	res := Select(transcript, "zebra")
	if !res.Fallback {
		t.Fatal("expected fallback")
	}
	got := make([]string, len(res.Segments))
	for i, s := range res.Segments {
		got[i] = s.Segment.Text
		if s.Score != 0 {
			t.Errorf("fallback score = %d", s.Score)
		}
	}
	if want := []string{"c", "e", "a"}; !reflect.DeepEqual(got, want) {
		t.Errorf("fallback = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(transcript, original) {
		t.Error("transcript reordered")
	}
}

func TestSelect_EmptyTranscript(t *testing.T) {
	res := Select(nil, "anything")
	if len(res.Segments) != 0 || res.Fallback {
		t.Errorf("Select(nil) = %+v", res)
	}
}

func TestSelect_ResultsComeFromTranscript(t *testing.T) {
	transcript := transcribe.Placeholders(12)
	got := SelectSegments(transcript, "nothing matches")
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for _, g := range got {
		found := false
		for _, s := range transcript {
			if reflect.DeepEqual(g, s) {
				found = true
			}
		}
		if !found {
			t.Errorf("segment %+v not in transcript", g)
		}
	}
}
