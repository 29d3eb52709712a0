package wsdiscovery

import (
	"strings"
)

// probeMatchResult holds the fields extracted from a single
// wsd:ProbeMatches/wsd:ProbeMatch element.
type probeMatchResult struct {
	endpoint string
	types    string
	scopes   []string
	xaddrs   []string
}

// parseProbeMatch extracts EndpointReference, Types, Scopes, and XAddrs
// from a ProbeMatch SOAP body without a full XML parse, since WS-Discovery
// responders vary too much in namespace prefixing to rely on one. A match
// is valid iff EndpointReference, Types, and at least one XAddr are present.
func parseProbeMatch(payload []byte) (probeMatchResult, bool) {
	body := payload

	res := probeMatchResult{
		endpoint: firstTagContent(body, "Address"),
		types:    strings.TrimSpace(firstTagContent(body, "Types")),
	}

	scopesRaw := strings.TrimSpace(firstTagContent(body, "Scopes"))
	if scopesRaw != "" {
		res.scopes = strings.Fields(scopesRaw)
	}

	xaddrsRaw := strings.TrimSpace(firstTagContent(body, "XAddrs"))
	if xaddrsRaw != "" {
		res.xaddrs = strings.Fields(xaddrsRaw)
	}

	if res.endpoint == "" || res.types == "" || len(res.xaddrs) == 0 {
		return probeMatchResult{}, false
	}
	return res, true
}

// firstTagContent returns the text between the first <...tag> and
// </...tag> pair, tolerating an XML namespace prefix on the tag name.
func firstTagContent(body []byte, tag string) string {
	return extractBetween(string(body), tag)
}

// extractBetween locates a tag (optionally namespace-prefixed) in s and
// returns the text between its opening and closing forms.
func extractBetween(s, tag string) string {
	lower := strings.ToLower(s)
	tagLower := strings.ToLower(tag)

	openIdx := findTagOpen(lower, tagLower)
	if openIdx < 0 {
		return ""
	}
	gt := strings.IndexByte(s[openIdx:], '>')
	if gt < 0 {
		return ""
	}
	contentStart := openIdx + gt + 1

	closeMarker := "</"
	closeIdx := -1
	for i := contentStart; i < len(lower); i++ {
		if strings.HasPrefix(lower[i:], closeMarker) && strings.Contains(lower[i:min(i+64, len(lower))], tagLower) {
			closeIdx = i
			break
		}
	}
	if closeIdx < 0 {
		return ""
	}
	return strings.TrimSpace(s[contentStart:closeIdx])
}

// findTagOpen locates the start of an opening tag matching name, allowing
// for an arbitrary namespace prefix before the colon.
func findTagOpen(lower, name string) int {
	search := 0
	for {
		idx := strings.IndexByte(lower[search:], '<')
		if idx < 0 {
			return -1
		}
		pos := search + idx
		rest := lower[pos+1:]
		if strings.HasPrefix(rest, "/") {
			search = pos + 1
			continue
		}
		end := strings.IndexAny(rest, " \t\r\n>")
		if end < 0 {
			return -1
		}
		tagName := rest[:end]
		if colon := strings.IndexByte(tagName, ':'); colon >= 0 {
			tagName = tagName[colon+1:]
		}
		if tagName == name {
			return pos
		}
		search = pos + 1
	}
}
