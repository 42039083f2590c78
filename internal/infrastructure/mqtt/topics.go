package mqtt

import "fmt"

// StatusTopicRoot is the base of the bridge's own status topic. It sits
// outside the appliance prefix so it never reaches the message router.
const StatusTopicRoot = "geabridge"

// Topics builds appliance bus topics under Prefix.
//
//	topics := mqtt.Topics{Prefix: "geappliances"}
//	topics.ElementWrite("fridge", 0x0001)
//	// Returns: "geappliances/fridge/erd/0x0001/write"
type Topics struct {
	Prefix string
}

// All returns the wildcard covering every appliance topic.
//
// Example: geappliances/#
func (t Topics) All() string {
	return t.Prefix + "/#"
}

// Device returns the appliance announcement topic.
//
// Example: geappliances/fridge
func (t Topics) Device(device string) string {
	return fmt.Sprintf("%s/%s", t.Prefix, device)
}

// ElementValue returns the topic an appliance reports an element value on.
//
// Example: geappliances/fridge/erd/0x0092/value
func (t Topics) ElementValue(device string, erd uint16) string {
	return fmt.Sprintf("%s/%s/erd/0x%04x/value", t.Prefix, device, erd)
}

// ElementWrite returns the topic element writes are sent to.
//
// Example: geappliances/fridge/erd/0x0001/write
func (t Topics) ElementWrite(device string, erd uint16) string {
	return fmt.Sprintf("%s/%s/erd/0x%04x/write", t.Prefix, device, erd)
}

// Status returns the retained bridge status topic for a client.
//
// Example: geabridge/geabridge-01/status
func Status(clientID string) string {
	return fmt.Sprintf("%s/%s/status", StatusTopicRoot, clientID)
}
