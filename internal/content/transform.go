// Package content turns a document's marked-up text, as served by the DTS
// text service, into the plain text stored in the index.
package content

import "regexp"

var (
	// bodyPattern matches the first <body ...>...</body> region. The opening
	// tag's attributes end at the first '>'; both parts may span lines.
	bodyPattern = regexp.MustCompile(`<body(?s:.*?)>((?s:.*?))</body>`)

	// tagPattern matches one markup tag, shortest first.
	tagPattern = regexp.MustCompile(`<(?s:.*?)>`)
)

// ExtractBody returns the text between the first <body> opening tag and
// its closing tag, or raw unchanged when there is no body region.
func ExtractBody(raw string) string {
	m := bodyPattern.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	return m[1]
}

// StripTags replaces every tag with a single space. Whitespace runs are
// kept and entities are not decoded.
func StripTags(text string) string {
	return tagPattern.ReplaceAllLiteralString(text, " ")
}

// Transform extracts the body region of raw and strips its markup.
func Transform(raw string) string {
	return StripTags(ExtractBody(raw))
}
