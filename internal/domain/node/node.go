package node

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/telenode/internal/domain/component"
	"github.com/GriffinCanCode/telenode/internal/domain/registry"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/actor"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/logging"
	"github.com/GriffinCanCode/telenode/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

// DefaultRequestTimeout bounds each status round trip when Options leaves
// it unset.
const DefaultRequestTimeout = 10 * time.Second

// Options configures a node.
type Options struct {
	Name                  string
	Dir                   string
	InitialRequestTimeout time.Duration

	// Components is the built-in factory table; ExtraComponents may add
	// plugin factories without overriding built-ins.
	Components      component.Table
	ExtraComponents func() component.Table
	ExtraCommands   func() Commands

	// Filesystem spawns the node-owned filesystem. Nil runs without one.
	Filesystem component.Factory

	Logger   *logging.Logger
	Metrics  *monitoring.Metrics
	Observer func(Event)
}

// Node is the goroutine-safe handle to a running node.
type Node struct {
	id       string
	name     string
	self     *actor.Actor
	commands []string
}

// Start resolves the factory tables, spawns the node filesystem and starts
// the node actor.
func Start(ctx context.Context, sys *actor.System, opts Options) (*Node, error) {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.InitialRequestTimeout <= 0 {
		opts.InitialRequestTimeout = DefaultRequestTimeout
	}

	components := component.Resolve(opts.Components, opts.ExtraComponents)
	commands := ResolveCommands(Builtins(components), opts.ExtraCommands)

	n := &Node{
		id:       uuid.New().String(),
		name:     opts.Name,
		commands: commands.Names(),
	}
	c := &Control{
		name:       opts.Name,
		dir:        opts.Dir,
		timeout:    opts.InitialRequestTimeout,
		sys:        sys,
		locator:    n,
		registry:   registry.New(),
		components: components,
		commands:   commands,
		monitors:   make(map[*actor.Actor]actor.MonitorRef),
		logger:     opts.Logger.Named("node"),
		metrics:    opts.Metrics,
		observer:   opts.Observer,
	}

	if opts.Filesystem != nil {
		fs, err := opts.Filesystem(ctx, c, component.SpawnArguments{
			Invocation: types.Invocation{FullName: "spawn " + component.FilesystemName, Options: types.Settings{}},
			Dir:        opts.Dir,
			Label:      component.FilesystemName,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to spawn filesystem: %w", err)
		}
		c.filesystem = fs
		sys.Put(component.FilesystemName, fs)
	}

	n.self = sys.Spawn("node:"+opts.Name, c)
	c.logger.Info("Node started",
		zap.String("name", opts.Name),
		zap.String("id", n.id),
		zap.String("dir", opts.Dir),
		zap.Int("commands", len(n.commands)),
	)
	return n, nil
}

// ID returns the node instance id.
func (n *Node) ID() string {
	return n.id
}

// Name returns the node name.
func (n *Node) Name() string {
	return n.name
}

// Actor returns the node actor handle.
func (n *Node) Actor() *actor.Actor {
	return n.self
}

// CommandNames returns the resolved command names, sorted.
func (n *Node) CommandNames() []string {
	out := append([]string(nil), n.commands...)
	sort.Strings(out)
	return out
}

// Invoke dispatches inv to its command handler and waits for the result.
func (n *Node) Invoke(ctx context.Context, inv types.Invocation) (any, error) {
	return n.self.Request(ctx, invokeMsg{inv: inv})
}

// Put registers an externally constructed component.
func (n *Node) Put(ctx context.Context, a *actor.Actor, typ string) error {
	_, err := n.self.Request(ctx, putMsg{actor: a, typ: typ})
	return err
}

// GetByType returns the components of typ in registration order.
func (n *Node) GetByType(ctx context.Context, typ string) ([]*actor.Actor, error) {
	v, err := n.self.Request(ctx, getByTypeMsg{typ: typ})
	if err != nil {
		return nil, err
	}
	return v.([]*actor.Actor), nil
}

// GetByLabel returns the component registered under label, or nil.
func (n *Node) GetByLabel(ctx context.Context, label string) (*actor.Actor, error) {
	v, err := n.self.Request(ctx, getByLabelMsg{label: label})
	if err != nil {
		return nil, err
	}
	return v.(*actor.Actor), nil
}

// GetByLabels resolves labels positionally; unknown labels yield nil.
func (n *Node) GetByLabels(ctx context.Context, labels []string) ([]*actor.Actor, error) {
	v, err := n.self.Request(ctx, getByLabelsMsg{labels: labels})
	if err != nil {
		return nil, err
	}
	return v.([]*actor.Actor), nil
}

// Components returns a registry snapshot.
func (n *Node) Components(ctx context.Context) ([]types.Component, error) {
	v, err := n.self.Request(ctx, componentsMsg{})
	if err != nil {
		return nil, err
	}
	return v.([]types.Component), nil
}

// Signal reports an out-of-band process signal to the node.
func (n *Node) Signal(code int) {
	n.self.Send(signalMsg{code: code})
}

// Stop runs the shutdown sequence and waits for the node to exit.
func (n *Node) Stop(ctx context.Context) error {
	return n.self.Terminate(ctx)
}

// Done is closed once the node has exited.
func (n *Node) Done() <-chan struct{} {
	return n.self.Done()
}
