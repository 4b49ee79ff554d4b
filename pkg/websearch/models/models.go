package models

// Result is one ranked search hit, in provider relevance order.
type Result struct {
	Title   string
	URL     string
	Snippet string
	Source  string
}
