package ports

// Matcher is the fuzzy text matcher used for template search. Search returns
// indices into corpus ranked best-first; entries too dissimilar from the query
// are omitted. Implementations SHOULD tolerate typos up to a fixed similarity
// threshold.
type Matcher interface {
	Search(corpus []string, query string) []int
}
