package crawl

import (
	"context"
	"errors"
	"testing"

	"harvester/internal/extract"
	"harvester/internal/fetch"
)

const workerPageHTML = `
<html><body>
  <h1 class="product-name">Herbal Soap</h1>
  <h2 class="product-description-header">Description</h2>
  <p>Gentle cleansing.</p>
  <div class="product-subtitle">With aloe vera</div>
</body></html>`

// stubFetcher returns canned outcomes keyed by URL.
type stubFetcher struct {
	outcomes map[string]fetch.Outcome
}

func (s *stubFetcher) Fetch(_ context.Context, url string) fetch.Outcome {
	if outcome, ok := s.outcomes[url]; ok {
		return outcome
	}
	return fetch.Outcome{Kind: fetch.OutcomeNetworkError, Err: errors.New("no stub")}
}

func productSpec() extract.Spec {
	return extract.Spec{
		Fields: []extract.FieldRule{
			{Name: "title", Selector: "h1.product-name", Required: true},
			{Name: "description", Selector: "h2.product-description-header", FromParent: true, Child: "p", Required: true},
			{Name: "subtitle", Selector: "div.product-subtitle", Required: true},
		},
	}
}

func TestWorkerProducesRecord(t *testing.T) {
	url := "https://shop.example.com/product/soap"
	worker := NewWorker(&stubFetcher{outcomes: map[string]fetch.Outcome{
		url: {Kind: fetch.OutcomeSuccess, Body: []byte(workerPageHTML), StatusCode: 200},
	}}, productSpec())

	outcome := worker.Process(context.Background(), url)
	if outcome.Kind != OutcomeRecord {
		t.Fatalf("expected record, got kind %v (reason %q, err %v)", outcome.Kind, outcome.Reason, outcome.Err)
	}
	if got := outcome.Record.Fields["title"]; got != "Herbal Soap" {
		t.Errorf("title = %q, want %q", got, "Herbal Soap")
	}
	if got := outcome.Record.Fields["description"]; got != "Gentle cleansing." {
		t.Errorf("description = %q, want %q", got, "Gentle cleansing.")
	}
	if outcome.Record.URL != url {
		t.Errorf("record url = %q, want %q", outcome.Record.URL, url)
	}
	wantSections := []string{"product", "product/soap"}
	if len(outcome.Record.Sections) != len(wantSections) {
		t.Fatalf("sections = %v, want %v", outcome.Record.Sections, wantSections)
	}
	for i, s := range wantSections {
		if outcome.Record.Sections[i] != s {
			t.Errorf("sections[%d] = %q, want %q", i, outcome.Record.Sections[i], s)
		}
	}
}

func TestWorkerSkipsHTTPError(t *testing.T) {
	url := "https://shop.example.com/product/missing"
	worker := NewWorker(&stubFetcher{outcomes: map[string]fetch.Outcome{
		url: {Kind: fetch.OutcomeHTTPError, StatusCode: 404},
	}}, productSpec())

	outcome := worker.Process(context.Background(), url)
	if outcome.Kind != OutcomeSkip {
		t.Fatalf("expected skip, got kind %v", outcome.Kind)
	}
	if outcome.Reason != "HttpError:404" {
		t.Errorf("reason = %q, want %q", outcome.Reason, "HttpError:404")
	}
}

func TestWorkerSkipsTimeout(t *testing.T) {
	url := "https://shop.example.com/product/slow"
	worker := NewWorker(&stubFetcher{outcomes: map[string]fetch.Outcome{
		url: {Kind: fetch.OutcomeTimeout},
	}}, productSpec())

	outcome := worker.Process(context.Background(), url)
	if outcome.Kind != OutcomeSkip {
		t.Fatalf("expected skip, got kind %v", outcome.Kind)
	}
	if outcome.Reason != "Timeout" {
		t.Errorf("reason = %q, want %q", outcome.Reason, "Timeout")
	}
}

func TestWorkerMissingRequiredFieldIsParseError(t *testing.T) {
	url := "https://shop.example.com/product/bare"
	worker := NewWorker(&stubFetcher{outcomes: map[string]fetch.Outcome{
		url: {Kind: fetch.OutcomeSuccess, Body: []byte("<html><body><p>no product here</p></body></html>"), StatusCode: 200},
	}}, productSpec())

	outcome := worker.Process(context.Background(), url)
	if outcome.Kind != OutcomeParseError {
		t.Fatalf("expected parse error, got kind %v", outcome.Kind)
	}
	var extractErr *extract.ExtractionError
	if !errors.As(outcome.Err, &extractErr) {
		t.Fatalf("expected ExtractionError, got %v", outcome.Err)
	}
	if len(outcome.Record.Fields) != 0 {
		t.Errorf("parse error must not carry a partial record, got %v", outcome.Record.Fields)
	}
}

func TestWorkerEmptyBodyIsParseError(t *testing.T) {
	url := "https://shop.example.com/product/empty"
	worker := NewWorker(&stubFetcher{outcomes: map[string]fetch.Outcome{
		url: {Kind: fetch.OutcomeSuccess, Body: []byte("   "), StatusCode: 200},
	}}, productSpec())

	outcome := worker.Process(context.Background(), url)
	if outcome.Kind != OutcomeParseError {
		t.Fatalf("expected parse error, got kind %v", outcome.Kind)
	}
}
