package streamlet

import (
	"context"
	"strings"
	"testing"

	"github.com/ugorji/go/codec"
)

func TestSummarize(t *testing.T) {
	cases := []struct {
		finalized []int
		expected  Summary
	}{
		{nil, Summary{}},
		{[]int{4}, Summary{Mean: 4, Median: 4, Min: 4, Max: 4}},
		{[]int{3, 5, 4}, Summary{Mean: 4, Median: 4, Min: 3, Max: 5}},
		{[]int{1, 2, 3, 6}, Summary{Mean: 3, Median: 2.5, Min: 1, Max: 6}},
	}

	for _, c := range cases {
		if s := Summarize(c.finalized); s != c.expected {
			t.Fatalf("Summarize(%v) should be %+v, not %+v", c.finalized, c.expected, s)
		}
	}
}

func TestConsistent(t *testing.T) {
	cases := []struct {
		name      string
		sequences [][]string
		expected  bool
	}{
		{"empty", nil, true},
		{"identical", [][]string{{"a", "b"}, {"a", "b"}}, true},
		{"prefix", [][]string{{"a"}, {"a", "b", "c"}, {}}, true},
		{"fork", [][]string{{"a", "b"}, {"a", "c"}}, false},
		{"fork behind prefix", [][]string{{"a"}, {"a", "b"}, {"a", "c", "d"}}, false},
	}

	for _, c := range cases {
		if res := Consistent(c.sequences); res != c.expected {
			t.Fatalf("%s: Consistent should be %v", c.name, c.expected)
		}
	}
}

func TestReportRendering(t *testing.T) {
	p, _ := newTestProtocol(t, 4, testOptions{silent: []int{2}})

	report, err := p.Run(context.Background(), 6, 1)
	if err != nil {
		t.Fatal(err)
	}

	if report.RunID != p.RunID() || report.RunID == "" {
		t.Fatalf("report should carry the run id, got %q", report.RunID)
	}
	if report.ByzantineCount != 1 || !report.SafetyGuaranteed {
		t.Fatalf("1 silent node out of 4 is tolerated, got %+v", report)
	}

	text := report.String()
	for _, expected := range []string{"n=4 f=1 quorum=3", "silent", "Consistent: true"} {
		if !strings.Contains(text, expected) {
			t.Fatalf("report should contain %q:\n%s", expected, text)
		}
	}

	data, err := report.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	decoded := new(RunReport)
	if err := codec.NewDecoderBytes(data, new(codec.JsonHandle)).Decode(decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.RunID != report.RunID || len(decoded.Trace) != 6 || decoded.Nodes[3].FinalizedBlocks != report.Nodes[3].FinalizedBlocks {
		t.Fatalf("decoded report differs from original")
	}
}
