package types

import (
	"sort"
	"strings"
)

// Invocation is a parsed command request. Handlers treat it as immutable.
type Invocation struct {
	FullName  string   `json:"name" yaml:"name"`
	Options   Settings `json:"options,omitempty" yaml:"options,omitempty"`
	Arguments []string `json:"arguments,omitempty" yaml:"arguments,omitempty"`
}

// Tokens splits the full command name into words.
func (inv Invocation) Tokens() []string {
	return strings.Fields(inv.FullName)
}

// Name returns the last word of the command name.
func (inv Invocation) Name() string {
	tokens := inv.Tokens()
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}

// ParseInvocation maps a word list onto the longest command in known that
// prefixes it. The remaining words become positional arguments.
func ParseInvocation(words []string, options Settings, known []string) (Invocation, error) {
	names := append([]string(nil), known...)
	sort.Slice(names, func(i, j int) bool {
		return len(strings.Fields(names[i])) > len(strings.Fields(names[j]))
	})

	for _, name := range names {
		tokens := strings.Fields(name)
		if len(tokens) == 0 || len(tokens) > len(words) {
			continue
		}
		if strings.Join(words[:len(tokens)], " ") != strings.Join(tokens, " ") {
			continue
		}
		if options == nil {
			options = Settings{}
		}
		return Invocation{
			FullName:  strings.Join(tokens, " "),
			Options:   options,
			Arguments: append([]string(nil), words[len(tokens):]...),
		}, nil
	}
	return Invocation{}, Errorf(CodeSyntax, "unknown command %q", strings.Join(words, " "))
}
