// Package lesson provides the concrete lesson scenes, their tunable
// descriptors and the catalog/registry the application shell draws from.
package lesson

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Descriptor carries one lesson's metadata and tuning constants. Defaults
// are compiled in; a YAML file in the lessons directory overrides them.
type Descriptor struct {
	Slug        string `yaml:"slug"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`

	Partitions int `yaml:"partitions"`
	Consumers  int `yaml:"consumers"`
	BatchSize  int `yaml:"batchSize"`

	// KeyTable maps record keys to partitions for the key-routing lesson.
	KeyTable map[string]int `yaml:"keyTable,omitempty"`

	// Timing, all in seconds of timeline time.
	SpawnInterval  float64 `yaml:"spawnInterval"`
	SpawnsPerCycle int     `yaml:"spawnsPerCycle"`
	TravelTime     float64 `yaml:"travelTime"`
	BeatTime       float64 `yaml:"beatTime"`
	FadeTime       float64 `yaml:"fadeTime"`
	RepeatDelay    float64 `yaml:"repeatDelay"`

	// Jitter is the maximum random extra delay added to spawn offsets in
	// the partitions lesson; zero disables it.
	Jitter float64 `yaml:"jitter"`

	// RebalancePause is the visual pause a rebalance takes, in wall-clock
	// seconds.
	RebalancePause float64 `yaml:"rebalancePause"`

	HistoryLimit int `yaml:"historyLimit"`
}

// CycleLength is the timeline cycle: all spawns plus enough tail for the
// last token to complete its flight.
func (d Descriptor) CycleLength() float64 {
	return float64(d.SpawnsPerCycle)*d.SpawnInterval + d.FlightTime()
}

// FlightTime is one token's full journey: two travel legs, the in-lane
// beat and the fade-out.
func (d Descriptor) FlightTime() float64 {
	return 2*d.TravelTime + d.BeatTime + d.FadeTime
}

// normalize fills zero-valued tuning fields with workable values so a
// sparse YAML override cannot produce a degenerate timeline.
func (d *Descriptor) normalize() {
	if d.Partitions < 1 {
		d.Partitions = 1
	}
	if d.Consumers < 1 {
		d.Consumers = 1
	}
	if d.BatchSize < 1 {
		d.BatchSize = 1
	}
	if d.SpawnInterval <= 0 {
		d.SpawnInterval = 1.2
	}
	if d.SpawnsPerCycle < 1 {
		d.SpawnsPerCycle = 6
	}
	if d.TravelTime <= 0 {
		d.TravelTime = 0.8
	}
	if d.BeatTime <= 0 {
		d.BeatTime = 0.3
	}
	if d.FadeTime <= 0 {
		d.FadeTime = 0.25
	}
	if d.HistoryLimit < 1 {
		d.HistoryLimit = 5
	}
	if d.RebalancePause < 0 {
		d.RebalancePause = 0
	}
}

// ReadDescriptor loads one descriptor from a YAML file.
func ReadDescriptor(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("read descriptor: %w", err)
	}
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Descriptor{}, fmt.Errorf("parse descriptor %s: %w", path, err)
	}
	if d.Slug == "" {
		return Descriptor{}, fmt.Errorf("descriptor %s: missing slug", path)
	}
	d.normalize()
	return d, nil
}

// WriteDescriptor saves a descriptor as YAML, used by the catalog export
// helper and tests.
func WriteDescriptor(d Descriptor, path string) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal descriptor: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write descriptor: %w", err)
	}
	return nil
}

// Lesson slugs, in teaching order.
const (
	SlugProducerConsumer = "producer-consumer"
	SlugTopicsPartitions = "topics-partitions"
	SlugMessageKeys      = "message-keys"
	SlugStickyBatching   = "sticky-batching"
	SlugConsumerGroups   = "consumer-groups"
	SlugOffsetsLag       = "offsets-lag"
	SlugReplication      = "brokers-replication"
)

// Order lists the slugs in teaching order.
var Order = []string{
	SlugProducerConsumer,
	SlugTopicsPartitions,
	SlugMessageKeys,
	SlugStickyBatching,
	SlugConsumerGroups,
	SlugOffsetsLag,
	SlugReplication,
}

// Defaults returns the built-in descriptor set keyed by slug.
func Defaults() map[string]Descriptor {
	list := []Descriptor{
		{
			Slug:        SlugProducerConsumer,
			Title:       "Producers & Consumers",
			Description: "One producer publishes records to a topic; one consumer reads them in order.",
			Partitions:  1,
			Consumers:   1,
		},
		{
			Slug:           SlugTopicsPartitions,
			Title:          "Topics & Partitions",
			Description:    "Records without keys are spread round-robin across the topic's partitions.",
			Partitions:     3,
			Consumers:      1,
			Jitter:         0.2,
			SpawnsPerCycle: 6,
		},
		{
			Slug:        SlugMessageKeys,
			Title:       "Message Keys",
			Description: "Records with the same key always land on the same partition, preserving per-key order.",
			Partitions:  3,
			Consumers:   1,
			KeyTable: map[string]int{
				"user-a": 0,
				"user-b": 1,
				"user-c": 2,
				"user-d": 1,
			},
		},
		{
			Slug:           SlugStickyBatching,
			Title:          "Sticky Batching",
			Description:    "The sticky partitioner fills a batch on one partition before moving to the next, trading spread for throughput.",
			Partitions:     3,
			Consumers:      1,
			BatchSize:      3,
			SpawnsPerCycle: 9,
			SpawnInterval:  0.8,
		},
		{
			Slug:           SlugConsumerGroups,
			Title:          "Consumer Groups & Rebalancing",
			Description:    "Partitions are divided among a group's consumers; changing the group size triggers a rebalance that pauses new deliveries.",
			Partitions:     3,
			Consumers:      3,
			RebalancePause: 1.5,
		},
		{
			Slug:           SlugOffsetsLag,
			Title:          "Offsets & Consumer Lag",
			Description:    "Each record gets the partition's next offset; lag is how far the committed offset trails the latest.",
			Partitions:     1,
			Consumers:      1,
			SpawnInterval:  2.0,
			TravelTime:     0.6,
			BeatTime:       0.2,
			FadeTime:       0.2,
			SpawnsPerCycle: 5,
		},
		{
			Slug:        SlugReplication,
			Title:       "Brokers & Replication",
			Description: "The partition leader appends each record and replicates it to followers; the high watermark advances once the ISR has it.",
			Partitions:  1,
			Consumers:   1,
		},
	}

	out := make(map[string]Descriptor, len(list))
	for _, d := range list {
		d.normalize()
		out[d.Slug] = d
	}
	return out
}
