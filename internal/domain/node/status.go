package node

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/telenode/internal/domain/registry"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/shared/promise"
	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

// FormatOption selects the status document encoding ("json" or "yaml").
const FormatOption = "status.format"

// SystemEntry is the status key holding the runtime counters.
const SystemEntry = registry.SystemLabel

// pendingStatus accumulates the replies of one status aggregation.
type pendingStatus struct {
	mu        sync.Mutex
	remaining int
	result    map[string]any
	deliver   func(map[string]any)
}

func (p *pendingStatus) record(label string, v any, err error) {
	p.mu.Lock()
	if err != nil {
		p.result[label] = err.Error()
	} else {
		p.result[label] = v
	}
	p.remaining--
	done := p.remaining == 0
	p.mu.Unlock()

	if done {
		p.deliver(p.result)
	}
}

func statusCommand(ctx context.Context, c *Control, inv types.Invocation, rp *promise.Promise) {
	format := inv.Options.GetString(FormatOption, "json")
	if format != "json" && format != "yaml" {
		rp.Fail(types.Errorf(types.CodeSyntax, "unsupported status format %q", format))
		return
	}
	encode := func(result map[string]any) {
		doc := map[string]any{c.name: result}
		out, err := encodeStatus(doc, format)
		if err != nil {
			rp.Fail(types.Wrap(types.CodeUnspecified, err))
			return
		}
		rp.Deliver(out)
	}

	result := map[string]any{SystemEntry: c.systemStatus()}
	comps := c.registry.Components()
	if len(comps) == 0 {
		encode(result)
		return
	}

	pending := &pendingStatus{
		remaining: len(comps),
		result:    result,
		deliver:   encode,
	}
	for _, comp := range comps {
		comp := comp
		go func() {
			v, err := c.requestStatus(ctx, comp.Actor)
			if err != nil {
				c.metrics.RecordStatusFailure()
				c.logger.Debug("Status request failed", zap.String("label", comp.Label), zap.Error(err))
			}
			pending.record(comp.Label, v, err)
		}()
	}
}

func (c *Control) requestStatus(ctx context.Context, a *actor.Actor) (any, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	v, err := a.Request(reqCtx, actor.StatusRequest{})
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, types.Errorf(types.CodeRequestTimeout, "%s did not answer within %s", a, c.timeout)
	}
	return v, err
}

func (c *Control) systemStatus() map[string]any {
	return map[string]any{
		"running-actors":  c.sys.Running(),
		"detached-actors": c.sys.Detached(),
		"worker-threads":  c.sys.Workers(),
		"table-slices":    types.BatchInstances(),
	}
}

func encodeStatus(doc map[string]any, format string) (string, error) {
	switch format {
	case "json":
		out, err := sonic.ConfigStd.MarshalIndent(doc, "", "  ")
		return string(out), err
	case "yaml":
		out, err := yaml.Marshal(doc)
		return string(out), err
	default:
		return "", fmt.Errorf("unsupported status format %q", format)
	}
}
