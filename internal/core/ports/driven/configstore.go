package driven

// ConfigStore persists flat, dot-separated settings keys such as
// "retrieval.top_k". Values come back with the type the backing format
// decoded, so callers convert. The settings service owns defaults and
// validation; a store only remembers what was set.
type ConfigStore interface {
	// Get returns the raw value for key and whether it is set.
	Get(key string) (any, bool)

	// Set stores value and persists it. A failed write leaves the
	// previous value in place.
	Set(key string, value any) error

	// Path returns where the configuration is persisted.
	Path() string
}
