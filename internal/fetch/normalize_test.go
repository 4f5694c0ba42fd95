package fetch

import (
	"strings"
	"testing"
)

func TestToPlainText_StripsNonContentTags(t *testing.T) {
	n := NewNormalizer()

	in := `<html><head><style>.x{color:red}</style></head><body>
		<script>alert("tracking")</script>
		<h1>Rhodes Scholarship 2026</h1>
		<p>Fully funded postgraduate study at Oxford.</p>
		<iframe src="https://ads.example.com"></iframe>
	</body></html>`

	out := n.ToPlainText(in)

	if strings.Contains(out, "alert") || strings.Contains(out, "color:red") {
		t.Errorf("script/style content leaked into output:\n%s", out)
	}
	if !strings.Contains(out, "Rhodes Scholarship 2026") {
		t.Errorf("heading text missing from output:\n%s", out)
	}
	if !strings.Contains(out, "Fully funded postgraduate study") {
		t.Errorf("paragraph text missing from output:\n%s", out)
	}
}

func TestToPlainText_KeepsStructure(t *testing.T) {
	n := NewNormalizer()

	out := n.ToPlainText(`<h2>Eligibility</h2><ul><li>Under 30</li><li>Any nationality</li></ul>`)

	if !strings.Contains(out, "## Eligibility") {
		t.Errorf("heading should become markdown:\n%s", out)
	}
	if !strings.Contains(out, "Under 30") || !strings.Contains(out, "Any nationality") {
		t.Errorf("list items missing:\n%s", out)
	}
}

func TestToPlainText_PlainInputPassesThrough(t *testing.T) {
	n := NewNormalizer()

	if out := n.ToPlainText("just some text"); out != "just some text" {
		t.Errorf("ToPlainText = %q", out)
	}
}
