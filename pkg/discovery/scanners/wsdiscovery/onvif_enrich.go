package wsdiscovery

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
)

const getDeviceInformationEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope" xmlns:tds="http://www.onvif.org/ver10/device/wsdl">
<soap:Body>
<tds:GetDeviceInformation/>
</soap:Body>
</soap:Envelope>`

const maxONVIFBody = 1 << 20

// enrichFromONVIF POSTs an anonymous GetDeviceInformation request to
// xaddr and, on a 2xx response, fills only d's empty Manufacturer,
// Model, Firmware, and SerialNumber fields. Reports whether the probe
// succeeded.
func (s *Scanner) enrichFromONVIF(ctx context.Context, d *discovery.Device, xaddr string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, xaddr, strings.NewReader(getDeviceInformationEnvelope))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", `application/soap+xml; charset=utf-8`)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxONVIFBody))
	if err != nil {
		return false
	}
	if !bytes.Contains(body, []byte("GetDeviceInformationResponse")) {
		return false
	}

	if d.Manufacturer() == "" {
		if v := extractBetween(string(body), "Manufacturer"); v != "" {
			d.SetManufacturer(v)
		}
	}
	if d.Model() == "" {
		if v := extractBetween(string(body), "Model"); v != "" {
			d.SetModel(v)
		}
	}
	if d.Firmware() == "" {
		if v := extractBetween(string(body), "FirmwareVersion"); v != "" {
			d.SetFirmware(v)
		}
	}
	if d.SerialNumber() == "" {
		if v := extractBetween(string(body), "SerialNumber"); v != "" {
			d.SetSerialNumber(v)
		}
	}

	return true
}
