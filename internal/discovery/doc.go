// Package discovery routes appliance bus messages into the element store.
//
// Topics have one of two shapes:
//
//	<prefix>/<device>
//	<prefix>/<device>/erd/<element hex>/value|write
//
// Any other shape is rejected with ErrMalformedTopic and changes nothing.
// A well-formed topic makes sure the device exists. A "value" message for
// an element the device does not support yet is cached; if it is a
// capability manifest it is also negotiated, which may activate elements.
// A "value" message for a supported element updates it and, when the
// element is a meta element, propagates its transforms.
//
// Messages for the same device are processed one at a time.
package discovery
