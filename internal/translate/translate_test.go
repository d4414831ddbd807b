package translate

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/mgpai22/xmeml2srt/internal/subtitle"
)

func TestFactoryReturnsGeminiTranslator(t *testing.T) {
	ctx := context.Background()
	opts := Options{TargetLanguage: "Japanese"}
	translator, err := Factory(ctx, ProviderGemini, "fake-key", opts)
	if err != nil {
		t.Fatalf("Factory(ProviderGemini) returned error: %v", err)
	}
	if _, ok := translator.(*GeminiTranslator); !ok {
		t.Errorf("expected *GeminiTranslator, got %T", translator)
	}
}

func TestFactoryReturnsOpenAITranslator(t *testing.T) {
	ctx := context.Background()
	opts := Options{TargetLanguage: "Spanish"}
	translator, err := Factory(ctx, ProviderOpenAI, "fake-key", opts)
	if err != nil {
		t.Fatalf("Factory(ProviderOpenAI) returned error: %v", err)
	}
	if _, ok := translator.(*OpenAITranslator); !ok {
		t.Errorf("expected *OpenAITranslator, got %T", translator)
	}
}

func TestFactoryReturnsAnthropicTranslator(t *testing.T) {
	ctx := context.Background()
	opts := Options{TargetLanguage: "French"}
	translator, err := Factory(ctx, ProviderAnthropic, "fake-key", opts)
	if err != nil {
		t.Fatalf("Factory(ProviderAnthropic) returned error: %v", err)
	}
	if _, ok := translator.(*AnthropicTranslator); !ok {
		t.Errorf("expected *AnthropicTranslator, got %T", translator)
	}
}

func TestFactoryRequiresTargetLanguage(t *testing.T) {
	_, err := Factory(context.Background(), ProviderGemini, "fake-key", Options{})
	if err == nil {
		t.Error("expected error for missing target language")
	}
}

func TestFactoryRequiresAPIKey(t *testing.T) {
	opts := Options{TargetLanguage: "German"}
	for _, p := range []Provider{ProviderGemini, ProviderOpenAI, ProviderAnthropic} {
		if _, err := Factory(context.Background(), p, "", opts); err == nil {
			t.Errorf("%s: expected error for missing API key", p)
		}
	}
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	opts := Options{TargetLanguage: "French"}
	_, err := Factory(context.Background(), Provider("unknown"), "fake-key", opts)
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestProvidersImplementConcurrentTranslator(t *testing.T) {
	opts := Options{TargetLanguage: "Korean"}
	for _, p := range []Provider{ProviderGemini, ProviderOpenAI, ProviderAnthropic} {
		translator, err := Factory(context.Background(), p, "fake-key", opts)
		if err != nil {
			t.Fatalf("%s: Factory error: %v", p, err)
		}
		if _, ok := translator.(ConcurrentTranslator); !ok {
			t.Errorf("%s should implement ConcurrentTranslator", p)
		}
	}
}

func TestProviderAPIKeyEnv(t *testing.T) {
	if ProviderAnthropic.APIKeyEnv() != "ANTHROPIC_API_KEY" {
		t.Errorf("unexpected env var %q", ProviderAnthropic.APIKeyEnv())
	}
	if Provider("other").APIKeyEnv() != "API_KEY" {
		t.Errorf("unexpected fallback env var %q", Provider("other").APIKeyEnv())
	}
}

// answers every prompt by upper-casing the texts found in its input JSON
type fakeCompleter struct {
	mu      sync.Mutex
	calls   int
	failOn  int
	prompts []string

	// number each answer from 0 instead of echoing the requested indices
	renumber bool
}

func (f *fakeCompleter) complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.failOn != 0 && call == f.failOn {
		return "", errors.New("quota exceeded")
	}

	start := strings.Index(prompt, "Input JSON:\n") + len("Input JSON:\n")
	end := strings.Index(prompt, "\n\nOutput the translated")
	items, err := decodeResults(prompt[start:end])
	if err != nil {
		return "", err
	}
	if f.renumber {
		for i := range items {
			items[i].Index = i
		}
	}

	var sb strings.Builder
	sb.WriteString("```json\n[")
	for i, item := range items {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`{"index":`)
		sb.WriteString(strconv.Itoa(item.Index))
		sb.WriteString(`,"text":"`)
		sb.WriteString(strings.ToUpper(item.Text))
		sb.WriteString(`"}`)
	}
	sb.WriteString("]\n```")
	return sb.String(), nil
}

func makeItems(n int) []TranslationItem {
	items := make([]TranslationItem, n)
	for i := range items {
		items[i] = TranslationItem{Index: i, Text: "caption " + strconv.Itoa(i)}
	}
	return items
}

func TestBatcherSplitsAndOrders(t *testing.T) {
	fake := &fakeCompleter{}
	b := newBatcher(fake, Options{TargetLanguage: "Shouting", BatchSize: 4})

	results, err := b.TranslateWithConcurrency(context.Background(), makeItems(10), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fake.calls != 3 {
		t.Errorf("expected 3 batches, got %d calls", fake.calls)
	}
	if len(results) != 10 {
		t.Fatalf("expected 10 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("result %d has index %d", i, r.Index)
		}
		if r.Text != "CAPTION "+strconv.Itoa(i) {
			t.Errorf("result %d text = %q", i, r.Text)
		}
	}
}

func TestBatcherSingleBatch(t *testing.T) {
	fake := &fakeCompleter{}
	b := newBatcher(fake, Options{TargetLanguage: "Shouting"})

	results, err := b.Translate(context.Background(), makeItems(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.calls != 1 || len(results) != 5 {
		t.Errorf("calls = %d, results = %d", fake.calls, len(results))
	}
	if !strings.Contains(fake.prompts[0], "to Shouting") {
		t.Errorf("prompt does not name target language: %s", fake.prompts[0])
	}
}

func TestBatcherEmpty(t *testing.T) {
	b := newBatcher(&fakeCompleter{}, Options{})
	results, err := b.Translate(context.Background(), nil)
	if err != nil || len(results) != 0 {
		t.Errorf("got %v, %v", results, err)
	}
}

func TestBatcherPropagatesBatchFailure(t *testing.T) {
	fake := &fakeCompleter{failOn: 2}
	b := newBatcher(fake, Options{TargetLanguage: "Shouting", BatchSize: 2})

	_, err := b.TranslateWithConcurrency(context.Background(), makeItems(8), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTranslateCues(t *testing.T) {
	cues := []subtitle.Cue{
		{Index: 1, Start: "00:00:00,000", End: "00:00:01,000", Text: "hello"},
		{Index: 2, Start: "00:00:02,000", End: "00:00:03,000", Text: "bye"},
	}
	b := newBatcher(&fakeCompleter{}, Options{TargetLanguage: "Shouting"})

	out, err := TranslateCues(context.Background(), b, cues, 2, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].Text != "HELLO" || out[1].Text != "BYE" {
		t.Errorf("unexpected texts: %+v", out)
	}
	if out[1].Index != 2 || out[1].Start != "00:00:02,000" {
		t.Errorf("timing changed: %+v", out[1])
	}

	overlay, err := TranslateCues(context.Background(), b, cues, 2, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overlay[0].Text != "HELLO\nhello" {
		t.Errorf("overlay text = %q", overlay[0].Text)
	}
}

func TestTranslateCuesRejectsRenumberedBatches(t *testing.T) {
	cues := []subtitle.Cue{
		{Index: 1, Text: "a"},
		{Index: 2, Text: "b"},
		{Index: 3, Text: "c"},
		{Index: 4, Text: "d"},
	}
	b := newBatcher(&fakeCompleter{renumber: true}, Options{TargetLanguage: "Shouting", BatchSize: 2})

	out, err := TranslateCues(context.Background(), b, cues, 2, false)
	if !errors.Is(err, ErrResultMismatch) {
		t.Fatalf("expected ErrResultMismatch, got %v (cues %+v)", err, out)
	}
	if out != nil {
		t.Errorf("no cues should be returned on mismatch, got %+v", out)
	}
}

type duplicateIndexTranslator struct{}

func (duplicateIndexTranslator) Translate(
	ctx context.Context,
	items []TranslationItem,
) ([]TranslationResult, error) {
	return []TranslationResult{{Index: 0, Text: "x"}, {Index: 0, Text: "y"}}, nil
}

func TestTranslateCuesRejectsDuplicateIndex(t *testing.T) {
	cues := []subtitle.Cue{{Index: 1, Text: "a"}, {Index: 2, Text: "b"}}
	_, err := TranslateCues(context.Background(), duplicateIndexTranslator{}, cues, 1, false)
	if !errors.Is(err, ErrResultMismatch) {
		t.Errorf("expected ErrResultMismatch, got %v", err)
	}
}

func TestBuildPromptAdditionalInstructions(t *testing.T) {
	items := makeItems(1)

	plain := BuildPrompt(Options{TargetLanguage: "German"}, items)
	if strings.Contains(plain, "Additional instructions") {
		t.Errorf("unexpected instructions section:\n%s", plain)
	}

	custom := BuildPrompt(Options{TargetLanguage: "German", Prompt: "use formal address"}, items)
	if !strings.Contains(custom, "Additional instructions: use formal address") {
		t.Errorf("prompt missing instructions:\n%s", custom)
	}
}

type badIndexTranslator struct{}

func (badIndexTranslator) Translate(
	ctx context.Context,
	items []TranslationItem,
) ([]TranslationResult, error) {
	return []TranslationResult{{Index: 7, Text: "x"}}, nil
}

func TestTranslateCuesRejectsUnknownIndex(t *testing.T) {
	cues := []subtitle.Cue{{Index: 1, Text: "a"}}
	if _, err := TranslateCues(context.Background(), badIndexTranslator{}, cues, 1, false); err == nil {
		t.Error("expected error for out of range index")
	}
}

// Integration test: only runs if OPENAI_API_KEY is set
func TestOpenAITranslatorIntegration(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set; skipping integration test")
	}

	ctx := context.Background()
	translator, err := NewOpenAITranslator(ctx, apiKey, Options{TargetLanguage: "Spanish"})
	if err != nil {
		t.Fatalf("NewOpenAITranslator error: %v", err)
	}

	results, err := translator.Translate(ctx, []TranslationItem{
		{Index: 0, Text: "Hello"},
		{Index: 1, Text: "Goodbye"},
	})
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}
