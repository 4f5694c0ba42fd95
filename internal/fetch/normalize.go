package fetch

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// Normalizer converts raw markup into plain hierarchical markdown suitable
// for LLM extraction. Pure and synchronous.
type Normalizer struct {
	converter *md.Converter
}

// NewNormalizer builds a converter that drops non-content tags before
// converting the remaining structure.
func NewNormalizer() *Normalizer {
	converter := md.NewConverter("", true, nil)
	converter.Remove("script", "style", "noscript", "iframe", "svg", "video", "audio", "canvas")
	return &Normalizer{converter: converter}
}

// ToPlainText converts rawMarkup to markdown. Input the converter cannot
// make sense of passes through unchanged.
func (n *Normalizer) ToPlainText(rawMarkup string) string {
	text, err := n.converter.ConvertString(rawMarkup)
	if err != nil {
		return rawMarkup
	}
	return strings.TrimSpace(text)
}
