package llm

// LLMRegistry defines the interface for LLM provider registry operations
// used by the daemon handlers
type LLMRegistry interface {
	// List returns all registered provider names
	List() []string

	// Default returns the default provider
	Default() (Provider, error)

	// Get retrieves a provider by name
	Get(name string) (Provider, error)

	// DefaultName returns the configured default name
	DefaultName() string
}

// Ensure Registry implements LLMRegistry
var _ LLMRegistry = (*Registry)(nil)
