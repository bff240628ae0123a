package runner

import "testing"

func TestExtractTrailingJSON(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
		ok     bool
	}{
		{
			name:   "single line after noise",
			output: "noise\n{\"a\":1}",
			want:   `{"a":1}`,
			ok:     true,
		},
		{
			name:   "multi-line json",
			output: "log line\n{\n\"a\":1\n}\n",
			want:   "{\n\"a\":1\n}",
			ok:     true,
		},
		{
			name:   "bare json only",
			output: `{"label":"speech","confidence":0.92}`,
			want:   `{"label":"speech","confidence":0.92}`,
			ok:     true,
		},
		{
			name:   "indented start line",
			output: "step one\n  {\"a\": 2}",
			want:   `{"a": 2}`,
			ok:     true,
		},
		{
			name:   "last candidate wins",
			output: "{\"first\":1}\nnoise\n{\"second\":2}",
			want:   `{"second":2}`,
			ok:     true,
		},
		{
			name:   "broken trailing candidate falls back to earlier one",
			output: "{\"good\":1}\n{broken",
			want:   `{"good":1}`,
			ok:     true,
		},
		{
			name:   "earlier candidate completed by later lines",
			output: "{\n\"a\":1,\n\"b\":2\n}",
			want:   "{\n\"a\":1,\n\"b\":2\n}",
			ok:     true,
		},
		{
			name:   "no brace-prefixed line",
			output: "all diagnostics\nno result here",
			ok:     false,
		},
		{
			name: "empty output",
			ok:   false,
		},
		{
			name:   "whitespace only",
			output: "  \n\t\n",
			ok:     false,
		},
		{
			name:   "trailing whitespace around document",
			output: "\n\nnoise\n{\"a\":1}\n\n",
			want:   `{"a":1}`,
			ok:     true,
		},
		{
			name:   "garbage after document on same line is not valid",
			output: "{\"a\":1} trailing garbage",
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractTrailingJSON([]byte(tt.output))
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v (got %q)", ok, tt.ok, got)
			}
			if ok && string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractTrailingJSON_Deterministic(t *testing.T) {
	transcript := []byte("Loading model...\nDone.\n{\"label\":\"speech\",\"confidence\":0.92}")
	first, ok := ExtractTrailingJSON(transcript)
	if !ok {
		t.Fatal("extraction failed")
	}
	for i := 0; i < 10; i++ {
		got, ok := ExtractTrailingJSON(transcript)
		if !ok || string(got) != string(first) {
			t.Fatalf("run %d: got %q ok=%v, want %q", i, got, ok, first)
		}
	}
}
