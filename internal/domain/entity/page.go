package entity

type Screenshot struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// PageSnapshot is the raw DOM of the chat page at a given moment.
type PageSnapshot struct {
	URL  string
	HTML string
}
