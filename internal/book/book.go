package book

// Chapter is one narrative section carved out of the source document.
type Chapter struct {
	Title   string // heading text as discovered (may be empty)
	Content string // serialized HTML fragment
}

// TOCEntry pairs an emitted chapter file with its resolved title. The
// sequence order is the reading order of the final book.
type TOCEntry struct {
	Filename string
	Title    string
}
