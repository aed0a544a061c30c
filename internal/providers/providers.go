package providers

import (
	"sort"

	"github.com/GriffinCanCode/telenode/internal/domain/component"
	"github.com/GriffinCanCode/telenode/internal/providers/accountant"
	"github.com/GriffinCanCode/telenode/internal/providers/archive"
	"github.com/GriffinCanCode/telenode/internal/providers/filesystem"
	"github.com/GriffinCanCode/telenode/internal/providers/pipeline"
	"github.com/GriffinCanCode/telenode/internal/providers/sink"
	"github.com/GriffinCanCode/telenode/internal/providers/source"
)

// Filesystem is the factory the node uses for its file system.
var Filesystem component.Factory = filesystem.Factory

// Stages are the query stages without dedicated behavior.
var Stages = []string{"counter", "eraser", "explorer", "exporter", "pivoter"}

// SourceFormats returns the supported import formats.
func SourceFormats() []string {
	formats := []string{"test"}
	for f := range source.Formats {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// SinkFormats returns the supported export formats.
func SinkFormats() []string {
	formats := make([]string, 0, len(sink.Formats))
	for f := range sink.Formats {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// Components returns the built-in component factory table.
func Components() component.Table {
	t := component.Table{
		"spawn accountant":    accountant.Factory,
		"spawn archive":       archive.Factory,
		"spawn importer":      pipeline.ImporterFactory,
		"spawn index":         pipeline.IndexFactory,
		"spawn type-registry": pipeline.TypeRegistryFactory,
	}
	for _, name := range Stages {
		t["spawn "+name] = pipeline.GenericFactory(name)
	}
	for _, f := range SourceFormats() {
		t["spawn source "+f] = source.Factory(f)
	}
	for _, f := range SinkFormats() {
		t["spawn sink "+f] = sink.Factory(f)
	}
	return t
}
