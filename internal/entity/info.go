// Package entity provides the visual factories for the Kafka actors a
// lesson composes: producers, topics with partition lanes, brokers,
// consumers and message tokens. Each factory builds an element group at
// fixed coordinates and exposes attachment-point accessors plus a
// descriptive info record for the info panel.
package entity

// Attr is one human-readable label/value pair. Info attributes keep
// insertion order, which a Go map would not, so they are a slice.
type Attr struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Info is the descriptive record published when an entity is selected.
type Info struct {
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Attributes  []Attr `json:"attributes"`
}
