package jobs

import (
	"testing"
)

func TestMaxPointsOrDefault(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	cases := []struct {
		name string
		in   *float64
		want int
	}{
		{"absent", nil, 10},
		{"fractional below one", f(0.4), 10},
		{"zero", f(0), 10},
		{"negative", f(-3), 10},
		{"rounds half up", f(0.6), 1},
		{"rounds to nearest", f(7.6), 8},
		{"whole", f(10), 10},
	}
	for _, tc := range cases {
		if got := maxPointsOrDefault(tc.in); got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestParseExamQuestions(t *testing.T) {
	raw := "Here you go:\n```json\n[" +
		`{"prompt": "Explain synaptic plasticity.", "model_answer": "LTP and LTD", "max_points": 10},` +
		`{"prompt": "   ", "max_points": 5},` +
		`{"prompt": "Name two neurotransmitters.", "max_points": 0.4}` +
		"]\n```"

	items := parseExamQuestions(raw)
	if len(items) != 2 {
		t.Fatalf("expected blank prompts filtered, got %d items", len(items))
	}
	if items[0].Prompt != "Explain synaptic plasticity." {
		t.Fatalf("first prompt %q", items[0].Prompt)
	}
	if got := maxPointsOrDefault(items[1].MaxPoints); got != 10 {
		t.Fatalf("sub-point question must fall back to default, got %d", got)
	}
}

func TestParseExamQuestionsGarbage(t *testing.T) {
	for _, raw := range []string{"", "no json here", "{\"prompt\": \"not an array\"}"} {
		if items := parseExamQuestions(raw); items != nil {
			t.Fatalf("garbage %q must yield nothing, got %+v", raw, items)
		}
	}
}
