package rss

import "strings"

const cdataEnd = "]]>"

// Escape makes s safe to place inside a CDATA section.
//
// Every CDATA terminator is deleted, repeatedly, until none is left: removing
// one can join its neighbours into a new one ("]]]]>>" -> "]]>"). Ampersands
// are then replaced by "&amp;". Angle brackets and quotes are left alone, they
// are literal inside CDATA.
func Escape(s string) string {
	for strings.Contains(s, cdataEnd) {
		s = strings.ReplaceAll(s, cdataEnd, "")
	}
	return strings.ReplaceAll(s, "&", "&amp;")
}

// cdata writes s, escaped, wrapped in a CDATA section.
func cdata(b *strings.Builder, s string) {
	b.WriteString("<![CDATA[")
	b.WriteString(Escape(s))
	b.WriteString("]]>")
}
