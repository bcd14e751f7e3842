// Package message defines the values exchanged through a keystream session:
// encoding-tagged payloads, the typed codec over them, and the samples
// delivered to subscribers.
package message

import "strings"

// KnownEncoding is the discriminator describing how to interpret a value's
// raw payload.
type KnownEncoding uint8

// Known encoding prefixes
const (
	Empty KnownEncoding = iota
	AppOctetStream
	AppCustom
	TextPlain
	AppProperties
	AppJSON
	AppSQL
	AppInteger
	AppFloat
	AppXML
	AppXHTMLXML
	AppXWWWFormURLEncoded
	TextJSON
	TextHTML
	TextXML
	TextCSS
	TextCSV
	TextJavascript
	ImageJPEG
	ImagePNG
	ImageGIF
)

// knownEncodingNames maps each known prefix to its display name. Ordered so
// that ParseEncoding can match the longest known prefix first.
var knownEncodingNames = map[KnownEncoding]string{
	Empty:                 "",
	AppOctetStream:        "application/octet-stream",
	AppCustom:             "application/custom",
	TextPlain:             "text/plain",
	AppProperties:         "application/properties",
	AppJSON:               "application/json",
	AppSQL:                "application/sql",
	AppInteger:            "application/integer",
	AppFloat:              "application/float",
	AppXML:                "application/xml",
	AppXHTMLXML:           "application/xhtml+xml",
	AppXWWWFormURLEncoded: "application/x-www-form-urlencoded",
	TextJSON:              "text/json",
	TextHTML:              "text/html",
	TextXML:               "text/xml",
	TextCSS:               "text/css",
	TextCSV:               "text/csv",
	TextJavascript:        "text/javascript",
	ImageJPEG:             "image/jpeg",
	ImagePNG:              "image/png",
	ImageGIF:              "image/gif",
}

// String returns the display name of the known encoding prefix.
func (k KnownEncoding) String() string {
	if name, ok := knownEncodingNames[k]; ok {
		return name
	}
	return "unknown"
}

// Encoding tags a payload with its interpretation: a known prefix plus an
// optional free-form suffix (e.g. application/custom;my_encoding).
type Encoding struct {
	Prefix KnownEncoding
	Suffix string
}

// NewEncoding creates an Encoding with the given known prefix and no suffix.
func NewEncoding(prefix KnownEncoding) Encoding {
	return Encoding{Prefix: prefix}
}

// WithSuffix returns a copy of the encoding with the suffix appended.
func (e Encoding) WithSuffix(suffix string) Encoding {
	return Encoding{Prefix: e.Prefix, Suffix: e.Suffix + suffix}
}

// String returns the full display name, prefix and suffix concatenated.
func (e Encoding) String() string {
	return e.Prefix.String() + e.Suffix
}

// Equals reports prefix and suffix equality.
func (e Encoding) Equals(other Encoding) bool {
	return e.Prefix == other.Prefix && e.Suffix == other.Suffix
}

// ParseEncoding parses a display name back into an Encoding, matching the
// longest known prefix and keeping the remainder as suffix. Strings that
// match no known prefix become an Empty-prefixed encoding whose suffix is
// the whole input.
func ParseEncoding(s string) Encoding {
	best := Encoding{Prefix: Empty, Suffix: s}
	bestLen := -1
	for prefix, name := range knownEncodingNames {
		if name == "" {
			continue
		}
		if strings.HasPrefix(s, name) && len(name) > bestLen {
			best = Encoding{Prefix: prefix, Suffix: s[len(name):]}
			bestLen = len(name)
		}
	}
	return best
}
