package node

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/telenode/internal/domain/component"
	"github.com/GriffinCanCode/telenode/internal/domain/registry"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

// Option keys read by the spawn pipeline.
const (
	LabelOption  = "spawn.label"
	SourceOption = "spawn.source"
	ImportOption = "import"
)

// spawn runs the spawn pipeline for inv. It executes on the node goroutine,
// which makes label selection and registration atomic.
func (c *Control) spawn(ctx context.Context, inv types.Invocation) (*actor.Actor, error) {
	typ := component.TypeOf(inv.FullName)
	if typ == "" {
		return nil, types.Errorf(types.CodeSyntax, "cannot derive a component type from %q", inv.FullName)
	}

	a, label, err := c.construct(ctx, typ, inv)
	if err != nil {
		c.metrics.RecordSpawnFailure(typ, string(types.CodeOf(err)))
		c.logger.Warn("Spawn failed",
			zap.String("command", inv.FullName),
			zap.Error(err),
		)
		return nil, err
	}

	c.monitor(a)
	if !c.registry.Add(a, typ, label) {
		// Labels were checked above; this only happens if a factory
		// registered something behind our back.
		c.demonitor(a)
		a.Stop(nil)
		c.logger.Error("Failed to register spawned component",
			zap.String("label", label),
			zap.String("type", typ),
		)
		c.metrics.RecordSpawnFailure(typ, string(types.CodeUnspecified))
		return nil, types.Errorf(types.CodeUnspecified, "failed to register component %s", label)
	}

	c.componentsChanged()
	c.metrics.RecordSpawn(typ)
	c.logger.Info("Component spawned",
		zap.String("label", label),
		zap.String("type", typ),
		zap.Stringer("actor", a),
	)
	c.emit(EventSpawned, label, typ, nil)
	return a, nil
}

func (c *Control) construct(ctx context.Context, typ string, inv types.Invocation) (*actor.Actor, string, error) {
	label, err := c.label(typ, inv.Options)
	if err != nil {
		return nil, "", err
	}

	opts := inv.Options.Clone()
	if opts == nil {
		opts = types.Settings{}
	}
	if typ == "source" {
		overlaySourceOptions(opts)
	}

	factory, ok := c.components[inv.FullName]
	if !ok {
		return nil, "", types.Errorf(types.CodeInvalidComponent, "no factory for %q", inv.FullName)
	}

	args := component.SpawnArguments{
		Invocation: types.Invocation{
			FullName:  inv.FullName,
			Options:   opts,
			Arguments: append([]string(nil), inv.Arguments...),
		},
		Dir:   c.dir,
		Label: label,
	}
	a, err := factory(ctx, c, args)
	if err != nil {
		var coded *types.Error
		if errors.As(err, &coded) {
			return nil, "", err
		}
		return nil, "", types.Wrap(types.CodeConstructionFailed, err)
	}
	if a == nil {
		return nil, "", types.Errorf(types.CodeConstructionFailed, "factory for %q returned no component", inv.FullName)
	}
	return a, label, nil
}

// label picks the label for a new component of typ.
func (c *Control) label(typ string, opts types.Settings) (string, error) {
	if registry.IsSingleton(typ) && len(c.registry.FindByType(typ)) > 0 {
		return "", types.Errorf(types.CodeDuplicateLabel, "%s is a singleton and already running", typ)
	}
	if explicit := opts.GetString(LabelOption, ""); explicit != "" {
		if explicit == SystemEntry {
			return "", types.Errorf(types.CodeDuplicateLabel, "label %s is reserved", explicit)
		}
		if c.registry.FindByLabel(explicit) != nil {
			return "", types.Errorf(types.CodeDuplicateLabel, "label %s is taken", explicit)
		}
		return explicit, nil
	}
	return c.registry.NextLabel(typ), nil
}

// overlaySourceOptions merges the source-scoped options over the import
// options, so sources inherit import settings but may override them.
func overlaySourceOptions(opts types.Settings) {
	src := opts.Dict(SourceOption)
	if len(src) == 0 {
		return
	}
	merged := opts.Dict(ImportOption).Clone()
	if merged == nil {
		merged = types.Settings{}
	}
	merged.Merge(src)
	opts.Put(ImportOption, merged)
}
