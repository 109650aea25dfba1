package validate

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/jomei/notionapi"

	"github.com/adamancini/sn2n/internal/notion"
)

func TestCanonicalizeSource_DropsChrome(t *testing.T) {
	raw := `<html><body>
		<nav>Home / Docs / Install</nav>
		<div class="zDocsBreadcrumb">Products &gt; ITSM</div>
		<article><p>Install the  plugin.</p><p>Activate &amp; verify.</p></article>
		<footer>Copyright</footer>
	</body></html>`

	got := CanonicalizeSource(raw)
	if strings.Contains(got, "Home") || strings.Contains(got, "Copyright") || strings.Contains(got, "ITSM") {
		t.Errorf("chrome text survived canonicalization: %q", got)
	}
	if !strings.Contains(got, "Install the plugin.") {
		t.Errorf("expected collapsed content text, got %q", got)
	}
	if !strings.Contains(got, "Activate & verify.") {
		t.Errorf("expected decoded entity, got %q", got)
	}
}

func TestCanonicalizeSource_SeparatesBlocks(t *testing.T) {
	got := CanonicalizeSource(`<p>First.</p><p>Second.</p>`)
	if got != "First.\nSecond." {
		t.Errorf("expected newline between paragraphs, got %q", got)
	}
}

func TestCanonicalizePage_JoinsRunsInOrder(t *testing.T) {
	refs := []notion.BlockRef{
		{ID: "1", RichText: textRuns("Install the plugin.")},
		{ID: "2", RichText: textRuns("   ")},
		{ID: "3", RichText: textRuns("Activate & verify.")},
	}

	got := CanonicalizePage(refs)
	if got != "Install the plugin.\nActivate & verify." {
		t.Errorf("unexpected page text: %q", got)
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize(`Set "sys_id" to the Record, then SAVE.`)
	want := []string{"set", "sys_id", "to", "the", "record", "then", "save"}
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestCompare_IdenticalText(t *testing.T) {
	text := "Install the plugin. Activate the plugin. Verify the record."

	rep := Compare(text, text, MethodLCS)
	if rep.Coverage != 1 {
		t.Errorf("expected full coverage, got %f", rep.Coverage)
	}
	if rep.MissingCount != 0 {
		t.Errorf("expected no missing spans, got %d", rep.MissingCount)
	}
	if rep.Status != StatusComplete {
		t.Errorf("expected Complete, got %q", rep.Status)
	}
}

func TestCompare_MissingSentence(t *testing.T) {
	source := "Install the plugin. Restart the instance before continuing with setup. Verify the record."
	page := "Install the plugin. Verify the record."

	rep := Compare(source, page, MethodLCS)
	if rep.Coverage >= 0.97 {
		t.Errorf("expected degraded coverage, got %f", rep.Coverage)
	}
	if rep.MissingCount != 1 {
		t.Fatalf("expected one missing span, got %d (%v)", rep.MissingCount, rep.MissingSpans)
	}
	if !strings.Contains(rep.MissingSpans[0], "restart the instance") {
		t.Errorf("unexpected span content: %q", rep.MissingSpans[0])
	}
	if rep.Status != StatusAttention {
		t.Errorf("expected Attention, got %q", rep.Status)
	}
}

func TestCompare_ShortGapIsNotASpan(t *testing.T) {
	var words []string
	for i := 0; i < 100; i++ {
		words = append(words, fmt.Sprintf("word%d", i))
	}
	source := strings.Join(words, " ")
	// Drop two adjacent tokens, below the span threshold.
	page := strings.Join(append(append([]string{}, words[:40]...), words[42:]...), " ")

	rep := Compare(source, page, MethodLCS)
	if rep.MissingCount != 0 {
		t.Errorf("expected short gap ignored, got %d spans", rep.MissingCount)
	}
	if rep.Coverage != 0.98 {
		t.Errorf("expected coverage 0.98, got %f", rep.Coverage)
	}
	if rep.Status != StatusComplete {
		t.Errorf("expected Complete, got %q", rep.Status)
	}
}

func TestCompare_EmptySource(t *testing.T) {
	rep := Compare("", "whatever the page says", MethodLCS)
	if rep.Coverage != 1 || rep.Status != StatusComplete {
		t.Errorf("empty source should be vacuously complete, got %f %q", rep.Coverage, rep.Status)
	}
}

func TestCompare_Jaccard(t *testing.T) {
	text := "install the plugin then verify the record status"

	rep := Compare(text, text, MethodJaccard)
	if rep.Coverage != 1 {
		t.Errorf("expected full shingle coverage, got %f", rep.Coverage)
	}

	rep = Compare(text, "completely unrelated words about nothing here", MethodJaccard)
	if rep.Coverage != 0 {
		t.Errorf("expected zero shingle coverage, got %f", rep.Coverage)
	}
	if rep.Status != StatusAttention {
		t.Errorf("expected Attention, got %q", rep.Status)
	}
}

func TestGreedyCoverage_NeverOverstates(t *testing.T) {
	source := []string{"a", "b", "c", "d"}
	page := []string{"x", "a", "y", "c", "d"}

	coverage, matched := greedyCoverage(source, page)
	if coverage != 0.75 {
		t.Errorf("expected 0.75, got %f", coverage)
	}
	if matched[1] {
		t.Error("expected b unmatched")
	}
}

type fakeValidateAPI struct {
	refs     []notion.BlockRef
	propsFor map[string]notionapi.Properties
}

func (f *fakeValidateAPI) Descendants(_ context.Context, _ string) ([]notion.BlockRef, error) {
	return f.refs, nil
}

func (f *fakeValidateAPI) UpdatePageProperties(_ context.Context, pageID string, props notionapi.Properties) error {
	if f.propsFor == nil {
		f.propsFor = make(map[string]notionapi.Properties)
	}
	f.propsFor[pageID] = props
	return nil
}

func TestComparePage_WritesProperties(t *testing.T) {
	api := &fakeValidateAPI{refs: []notion.BlockRef{
		{ID: "1", RichText: textRuns("Install the plugin and verify the record.")},
	}}
	c := New(api, Options{})

	rep, err := c.ComparePage(context.Background(), "page-1",
		`<article><p>Install the plugin and verify the record.</p></article>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Status != StatusComplete {
		t.Errorf("expected Complete, got %q", rep.Status)
	}
	if rep.RunID == "" {
		t.Error("expected a run id")
	}

	props := api.propsFor["page-1"]
	if props == nil {
		t.Fatal("expected properties written to page-1")
	}
	coverage, ok := props["Coverage"].(notionapi.NumberProperty)
	if !ok {
		t.Fatal("expected a Coverage number property")
	}
	if coverage.Number != 1 {
		t.Errorf("expected coverage 1, got %f", coverage.Number)
	}
	status, ok := props["Status"].(notionapi.SelectProperty)
	if !ok || status.Select.Name != StatusComplete {
		t.Errorf("expected Status select Complete, got %+v", props["Status"])
	}
	if _, ok := props["LastChecked"].(notionapi.DateProperty); !ok {
		t.Error("expected a LastChecked date property")
	}
}

func TestComparator_ThresholdOverride(t *testing.T) {
	api := &fakeValidateAPI{refs: []notion.BlockRef{
		{ID: "1", RichText: textRuns("Install the plugin.")},
	}}
	c := New(api, Options{CoverageThreshold: 0.3, MaxMissing: 5})

	rep, err := c.Validate(context.Background(), "page-1",
		`<article><p>Install the plugin.</p><p>Restart the instance before continuing.</p></article>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Status != StatusComplete {
		t.Errorf("expected relaxed thresholds to pass, got %q with coverage %f", rep.Status, rep.Coverage)
	}
}

func textRuns(s string) []notionapi.RichText {
	return []notionapi.RichText{{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}}
}
