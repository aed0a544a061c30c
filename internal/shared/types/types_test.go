package types

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsGet(t *testing.T) {
	s := Settings{
		"import": map[string]any{
			"read":       "conn.log",
			"batch-size": float64(512),
			"follow":     "true",
		},
		"status": Settings{"format": "yaml", "timeout": "2s"},
	}

	assert.Equal(t, "conn.log", s.GetString("import.read", "-"))
	assert.Equal(t, 512, s.GetInt("import.batch-size", 0))
	assert.True(t, s.GetBool("import.follow", false))
	assert.Equal(t, "yaml", s.GetString("status.format", "json"))
	assert.Equal(t, 2*time.Second, s.GetDuration("status.timeout", 0))

	assert.Equal(t, "-", s.GetString("import.missing", "-"))
	assert.Equal(t, 7, s.GetInt("import.read", 7))
	_, ok := s.Get("import.read.deeper")
	assert.False(t, ok)
}

func TestSettingsPutAndDict(t *testing.T) {
	s := Settings{}
	s.Put("spawn.label", "foo")
	s.Put("spawn.source.read", "x.csv")

	assert.Equal(t, "foo", s.GetString("spawn.label", ""))
	assert.Equal(t, Settings{"read": "x.csv"}, s.Dict("spawn.source"))
	assert.Nil(t, s.Dict("spawn.label"))
}

func TestSettingsMergeSourceWins(t *testing.T) {
	dst := Settings{"read": "-", "batch-size": 100, "nested": Settings{"a": 1, "b": 2}}
	src := Settings{"read": "in.csv", "nested": map[string]any{"b": 3}}

	dst.Merge(src)

	assert.Equal(t, "in.csv", dst["read"])
	assert.Equal(t, 100, dst["batch-size"])
	assert.Equal(t, 1, dst.GetInt("nested.a", 0))
	assert.Equal(t, 3, dst.GetInt("nested.b", 0))
}

func TestSettingsCloneIsDeep(t *testing.T) {
	orig := Settings{"import": Settings{"read": "a"}}
	clone := orig.Clone()
	clone.Put("import.read", "b")

	assert.Equal(t, "a", orig.GetString("import.read", ""))
	assert.Equal(t, "b", clone.GetString("import.read", ""))
}

func TestParseInvocation(t *testing.T) {
	known := []string{"kill", "send", "status", "spawn source", "spawn source csv", "spawn importer"}

	tests := []struct {
		name  string
		words []string
		want  string
		args  []string
		code  Code
	}{
		{name: "longest prefix", words: []string{"spawn", "source", "csv"}, want: "spawn source csv"},
		{name: "arguments", words: []string{"send", "importer", "status"}, want: "send", args: []string{"importer", "status"}},
		{name: "single word", words: []string{"status"}, want: "status"},
		{name: "unknown", words: []string{"frobnicate"}, code: CodeSyntax},
		{name: "empty", words: nil, code: CodeSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := ParseInvocation(tt.words, nil, known)
			if tt.code != "" {
				require.Error(t, err)
				assert.Equal(t, tt.code, CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, inv.FullName)
			assert.Equal(t, len(tt.args), len(inv.Arguments))
			if len(tt.args) > 0 {
				assert.Equal(t, tt.args, inv.Arguments)
			}
			assert.NotNil(t, inv.Options)
		})
	}
}

func TestInvocationName(t *testing.T) {
	inv := Invocation{FullName: "spawn  sink json"}
	assert.Equal(t, []string{"spawn", "sink", "json"}, inv.Tokens())
	assert.Equal(t, "json", inv.Name())
	assert.Equal(t, "", Invocation{}.Name())
}

func TestErrorCodes(t *testing.T) {
	cause := errors.New("disk full")
	err := Errorf(CodeConstructionFailed, "spawn archive: %w", cause)

	assert.ErrorIs(t, err, ErrConstructionFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrSyntax)
	assert.Equal(t, "construction_failed: spawn archive: disk full", err.Error())

	wrapped := fmt.Errorf("node: %w", err)
	assert.Equal(t, CodeConstructionFailed, CodeOf(wrapped))
	assert.Equal(t, CodeUnspecified, CodeOf(cause))

	assert.Nil(t, Wrap(CodeRequestTimeout, nil))
	assert.ErrorIs(t, Wrap(CodeRequestTimeout, cause), ErrRequestTimeout)
	assert.Equal(t, "unknown_component", ErrUnknownComponent.Error())
}

func TestBatchInstances(t *testing.T) {
	before := BatchInstances()
	b := NewBatch("zeek.conn", []string{"ts", "uid"}, []Event{{1, "a"}, {2, "b"}})
	assert.Equal(t, before+1, BatchInstances())
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, map[string]any{"ts": 2, "uid": "b"}, b.Record(1))

	b.Retain(2)
	b.Release()
	b.Release()
	assert.Equal(t, before+1, BatchInstances())
	b.Release()
	assert.Equal(t, before, BatchInstances())
	b.Release()
	assert.Equal(t, before, BatchInstances())
}
