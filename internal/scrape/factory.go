package scrape

import "fmt"

// Factory resolves scraper implementations. Built once at startup into a
// type-keyed lookup; URL matching is only the fallback path for sources with
// no declared type.
type Factory struct {
	byType  map[string]Scraper
	ordered []Scraper
}

// NewFactory registers the default scrapers over the shared deps.
func NewFactory(deps Deps) *Factory {
	f := &Factory{byType: make(map[string]Scraper)}
	f.register(NewOpportunityDeskScraper(deps))
	f.register(NewYouthOpportunitiesScraper(deps))
	return f
}

func (f *Factory) register(s Scraper) {
	f.byType[s.Type()] = s
	f.ordered = append(f.ordered, s)
}

// ForType resolves by declared scraper type. Unknown type is a configuration
// error, surfaced immediately and never retried.
func (f *Factory) ForType(scraperType string) (Scraper, error) {
	if s, ok := f.byType[scraperType]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: type %q", ErrUnknownType, scraperType)
}

// ForURL returns the first registered scraper compatible with url.
func (f *Factory) ForURL(url string) (Scraper, error) {
	for _, s := range f.ordered {
		if s.CompatibleWith(url) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: url %q", ErrUnknownType, url)
}

// Resolve prefers the declared type and falls back to URL matching when no
// type is configured.
func (f *Factory) Resolve(scraperType, url string) (Scraper, error) {
	if scraperType != "" {
		return f.ForType(scraperType)
	}
	return f.ForURL(url)
}
