package ports

import "go.trai.ch/forge/internal/core/domain"

// RuleCache tracks the source fingerprints and declared outputs of rules
// across builds, so unchanged rules can be skipped.
//
//go:generate go run go.uber.org/mock/mockgen -source=rule_cache.go -destination=mocks/mock_rule_cache.go -package=mocks
type RuleCache interface {
	// ComputeDelta compares the rule's current source files against the
	// fingerprints recorded by the last Commit and classifies each file as
	// added, removed, modified, or unchanged. A rule that was never
	// committed reports every file as added.
	ComputeDelta(rulePath string, srcPaths []string) (*domain.FileDelta, error)

	// KnownOutputs returns the output paths recorded for the rule by the
	// last Commit, or nil if the rule was never committed.
	KnownOutputs(rulePath string) []string

	// Commit records the rule's source fingerprints and outputs after a
	// successful run.
	Commit(rulePath string, srcPaths, outputs []string) error
}
