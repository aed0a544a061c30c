package types

import "github.com/GriffinCanCode/telenode/internal/infrastructure/actor"

// Component is a registered actor with its type tag and unique label.
type Component struct {
	Actor *actor.Actor
	Type  string
	Label string
}

// ComponentInfo is the wire view of a Component.
type ComponentInfo struct {
	Label string `json:"label"`
	Type  string `json:"type"`
	Actor string `json:"actor"`
}

// Info renders c for API responses.
func (c Component) Info() ComponentInfo {
	return ComponentInfo{Label: c.Label, Type: c.Type, Actor: c.Actor.String()}
}
