package types

// SearchBook is a book summary produced by search or discovery.
type SearchBook struct {
	Name    string `json:"name"`
	Author  string `json:"author,omitempty"`
	Intro   string `json:"intro,omitempty"`
	BookURL string `json:"bookUrl"`
	TocURL  string `json:"tocUrl,omitempty"`
	Origin  string `json:"origin"`
}

// ToBook builds a Book from the summary.
func (b SearchBook) ToBook() *Book {
	return &Book{
		Name:           b.Name,
		Author:         b.Author,
		Intro:          b.Intro,
		BookURL:        b.BookURL,
		TocURL:         b.TocURL,
		Origin:         b.Origin,
		UseReplaceRule: true,
	}
}

// Book is the full detail record of a book.
type Book struct {
	Name           string `json:"name"`
	Author         string `json:"author,omitempty"`
	Intro          string `json:"intro,omitempty"`
	BookURL        string `json:"bookUrl"`
	TocURL         string `json:"tocUrl,omitempty"`
	Origin         string `json:"origin"`
	ReSegment      bool   `json:"reSegment"`
	UseReplaceRule bool   `json:"useReplaceRule"`
}

// Chapter is one table-of-contents entry.
type Chapter struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Index int    `json:"index"`
}
