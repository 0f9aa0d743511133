package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/quill/internal/research"
	"github.com/FranksOps/quill/internal/storage"
)

func sampleRun() *research.Run {
	return &research.Run{
		Record: &storage.Record{
			Query:       "ai",
			SearchDepth: storage.DepthAdvanced,
			Results: []storage.Result{
				{URL: "https://a.com/1", Source: "a.com"},
				{URL: "https://b.com/1", Source: "b.com"},
				{URL: "https://a.com/2", Source: "a.com"},
			},
			Sources: []string{"a.com", "b.com"},
		},
		Queries: []research.QueryStat{
			{Query: "ai", Provider: "ddgr", Raw: 2, Added: 2},
			{Query: "ai latest news", Provider: "duckduckgo-html", Raw: 2, Added: 1},
			{Query: "ai 2026", Err: "search panicked: boom"},
		},
	}
}

func TestSummarize(t *testing.T) {
	summary := Summarize(sampleRun(), 3*time.Second)

	if summary.TotalResults != 3 {
		t.Errorf("expected 3 results, got %d", summary.TotalResults)
	}
	if summary.TotalSources != 2 {
		t.Errorf("expected 2 sources, got %d", summary.TotalSources)
	}
	if summary.Providers["ddgr"] != 1 || summary.Providers["duckduckgo-html"] != 1 {
		t.Errorf("expected one query per provider, got %v", summary.Providers)
	}
	if summary.Unserved != 1 {
		t.Errorf("expected 1 unserved query, got %d", summary.Unserved)
	}
	if summary.Duration != 3*time.Second {
		t.Errorf("expected 3s duration, got %s", summary.Duration)
	}
}

func TestSummarize_Nil(t *testing.T) {
	summary := Summarize(nil, 0)
	if summary.TotalResults != 0 || summary.Providers == nil {
		t.Errorf("expected empty summary with initialised providers, got %+v", summary)
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, Summarize(sampleRun(), time.Second)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Research Summary",
		"Query:         ai (advanced)",
		"Found:         3 results from 2 sources",
		`"ai": 2 via ddgr, 2 new`,
		`"ai latest news": 2 via duckduckgo-html, 1 new`,
		`"ai 2026": no results`,
		"  ddgr: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Error:") {
		t.Errorf("expected no error line for a successful run")
	}
}

func TestWriteText_Failed(t *testing.T) {
	run := &research.Run{
		Record:  &storage.Record{Query: "nothing", SearchDepth: storage.DepthBasic, Error: "No search results found."},
		Queries: []research.QueryStat{{Query: "nothing"}},
	}

	var buf bytes.Buffer
	if err := WriteText(&buf, Summarize(run, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Error:         No search results found.") {
		t.Errorf("expected error line, got:\n%s", out)
	}
	if !strings.Contains(out, "Providers:\n  None") {
		t.Errorf("expected no providers, got:\n%s", out)
	}
}

func TestWrite_JSON(t *testing.T) {
	summary := Summarize(sampleRun(), time.Second)
	summary.RunID = "run-1"

	var buf bytes.Buffer
	if err := Write(&buf, "json", summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected valid JSON: %v", err)
	}
	if decoded["run_id"] != "run-1" {
		t.Errorf("expected run_id run-1, got %v", decoded["run_id"])
	}
	if decoded["total_results"] != float64(3) {
		t.Errorf("expected total_results 3, got %v", decoded["total_results"])
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, "html", Summary{}); err == nil {
		t.Error("expected error for unknown format")
	}
}
