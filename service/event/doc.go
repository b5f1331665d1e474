// Package event implements the internal publish/subscribe bus that decouples
// producers of domain events from consumers. Delivery backends are pluggable;
// the bus notifies in-process subscribers after backend delivery, isolating
// failures on both sides.
package event
