package influxdb

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement is the measurement element values are written to.
const Measurement = "erd_values"

// maxIntegerBytes is the longest payload also recorded as an integer field.
const maxIntegerBytes = 8

// WriteElementValue records the new payload of an element. A nil payload
// (value not known yet) is skipped. The write is non-blocking.
//
// Parameters:
//   - device: Appliance name
//   - erd: Element identifier
//   - payload: Raw element bytes
//
// Example:
//
//	client.WriteElementValue("fridge", 0x0092, []byte{0x00, 0x24})
func (c *Client) WriteElementValue(device string, erd uint16, payload []byte) {
	if !c.IsConnected() || payload == nil {
		return
	}
	c.writeAPI.WritePoint(elementPoint(device, erd, payload, time.Now()))
}

// elementPoint builds the point for one element value.
func elementPoint(device string, erd uint16, payload []byte, ts time.Time) *write.Point {
	fields := map[string]interface{}{
		"raw":  hex.EncodeToString(payload),
		"size": int64(len(payload)),
	}
	if len(payload) > 0 && len(payload) <= maxIntegerBytes {
		var v uint64
		for _, b := range payload {
			v = v<<8 | uint64(b)
		}
		fields["value"] = v
	}

	return write.NewPoint(
		Measurement,
		map[string]string{
			"device": device,
			"erd":    fmt.Sprintf("0x%04x", erd),
		},
		fields,
		ts,
	)
}
