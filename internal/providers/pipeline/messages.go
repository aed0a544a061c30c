package pipeline

// Schema announces a layout to the type registry.
type Schema struct {
	Name   string   `yaml:"name"`
	Fields []string `yaml:"fields"`
}

// Lookup asks the index for the schemas containing a field.
type Lookup struct {
	Field string
}

// Types asks the type registry for every known schema.
type Types struct{}
