package ssdp

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
)

// enrichFromLocation fetches the device descriptor XML at loc and
// substring-extracts friendlyName, manufacturer, modelName, serialNumber
// and firmwareVersion. friendlyName is used only when the device has no
// name yet; the other values overwrite the device's fields whenever they
// are present. Malformed or unreachable
// descriptors are tolerated: enrichment is best-effort and never fails
// the scan.
func (s *Scanner) enrichFromLocation(ctx context.Context, d *discovery.Device, loc string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
	if err != nil {
		return
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return
	}
	xml := string(body)

	if v := extractTag(xml, "friendlyName"); v != "" && d.Name() == "" {
		d.SetName(v)
	}
	if v := extractTag(xml, "manufacturer"); v != "" {
		d.SetManufacturer(v)
	}
	if v := extractTag(xml, "modelName"); v != "" {
		d.SetModel(v)
	}
	if v := extractTag(xml, "serialNumber"); v != "" {
		d.SetSerialNumber(v)
	}
	if v := extractTag(xml, "firmwareVersion"); v != "" {
		d.SetFirmware(v)
	}
}

// extractTag returns the text between <tag> and </tag> (case-insensitive
// on the tag name), or "" if the tag is absent. This deliberately avoids a
// full XML parser: UPnP device descriptors vary too much in namespace
// prefixing and well-formedness to rely on one.
func extractTag(xml, tag string) string {
	lower := strings.ToLower(xml)
	open := "<" + strings.ToLower(tag) + ">"
	idx := strings.Index(lower, open)
	if idx == -1 {
		return ""
	}
	start := idx + len(open)
	closeTag := "</" + strings.ToLower(tag) + ">"
	end := strings.Index(lower[start:], closeTag)
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(xml[start : start+end])
}
