// Package capability decides which elements an appliance supports.
//
// Appliances announce their capabilities through manifest elements:
//
//	common manifest (0x0092):   version u32 BE | features u32 BE
//	feature manifest:           type u16 BE | version u16 BE | features u32 BE
//
// A Catalog maps each announced (category, version) pair to the elements
// it requires and to feature groups gated by a bitmask. The Negotiator
// applies a decoded manifest to an appliance: every supported element of
// the manifest's category is demoted, then the required elements and each
// feature group whose mask intersects the announced features are activated.
// Reprocessing the same manifest therefore always converges on the same
// supported set.
package capability
