package config

import "time"

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Canvas constraints
	MaxNodesPerCanvas int
	MaxEdgesPerCanvas int

	// Node defaults
	DefaultNodeWidth  float64
	DefaultNodeHeight float64

	// Placement policy
	PasteOffset    float64
	SiblingGap     float64
	MaxContentSize int

	// Culling
	CullBuffer float64
	CullFrame  time.Duration

	// History
	MaxHistoryDepth int

	// Persistence
	SaveDebounce    time.Duration
	SaveMaxAttempts int
	SaveBackoffBase time.Duration

	// Validation settings
	AllowSelfEdges      bool
	AllowDuplicateEdges bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxNodesPerCanvas: 10000,
		MaxEdgesPerCanvas: 50000,

		DefaultNodeWidth:  300,
		DefaultNodeHeight: 200,

		PasteOffset:    25,
		SiblingGap:     80,
		MaxContentSize: 200_000,

		CullBuffer: 200,
		CullFrame:  16 * time.Millisecond,

		MaxHistoryDepth: 100,

		SaveDebounce:    500 * time.Millisecond,
		SaveMaxAttempts: 3,
		SaveBackoffBase: 250 * time.Millisecond,

		AllowSelfEdges:      false,
		AllowDuplicateEdges: true,
	}
}
