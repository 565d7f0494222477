package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/lukasbauer/vocalkart/internal/intent"
)

func TestRun(t *testing.T) {
	detector := intent.NewDetector(nil, log.New(io.Discard, "", 0))
	in := strings.NewReader("go to catalog\n\n  \nadd 1 kg tomatoes for 35 rupees\nटमाटर को शेयर करें\n")
	var out bytes.Buffer

	if err := run(context.Background(), detector, in, &out, time.Second); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	dec := json.NewDecoder(&out)
	var results []intent.Result
	for dec.More() {
		var r intent.Result
		if err := dec.Decode(&r); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		results = append(results, r)
	}

	want := []struct {
		action   intent.Action
		language string
	}{
		{intent.ActionNavigate, intent.LangEnglish},
		{intent.ActionAddProduct, intent.LangEnglish},
		{intent.ActionShareProduct, intent.LangHindi},
	}
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d (blank lines skipped)", len(results), len(want))
	}
	for i, w := range want {
		if results[i].Intent.Action != w.action {
			t.Errorf("results[%d].Action = %q, want %q", i, results[i].Intent.Action, w.action)
		}
		if results[i].Language != w.language {
			t.Errorf("results[%d].Language = %q, want %q", i, results[i].Language, w.language)
		}
	}
	if got := results[2].Intent.String("productName"); got != "टमाटर" {
		t.Errorf("productName = %q, want %q", got, "टमाटर")
	}
}
