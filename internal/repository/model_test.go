package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func act(id string, start time.Time) Activation {
	return Activation{ActivationID: id, Action: "hello.js", Kind: "local file", Status: StatusSuccess, Start: start}
}

func TestApplyDefaults(t *testing.T) {
	doc := HistoryDocument{Activations: []Activation{{ActivationID: "a"}}}
	doc.ApplyDefaults()
	assert.Equal(t, map[string]any{}, doc.Activations[0].Parameters)

	empty := HistoryDocument{}
	empty.ApplyDefaults()
	assert.NotNil(t, empty.Activations)
}

func TestMergeActivations(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := []Activation{act("1", base), act("3", base.Add(2*time.Second))}
	b := []Activation{act("2", base.Add(time.Second)), act("3", base.Add(2*time.Second))}
	b[1].Error = "updated"

	merged := MergeActivations(a, b, 0)
	assert.Len(t, merged, 3)
	assert.Equal(t, []string{"1", "2", "3"}, ids(merged))
	assert.Equal(t, "updated", merged[2].Error)

	trimmed := MergeActivations(a, b, 2)
	assert.Equal(t, []string{"2", "3"}, ids(trimmed))
}

func TestMergeActivations_SameStartOrderedByID(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	merged := MergeActivations([]Activation{act("b", ts)}, []Activation{act("a", ts)}, 0)
	assert.Equal(t, []string{"a", "b"}, ids(merged))
}

func TestNewest(t *testing.T) {
	base := time.Now()
	list := []Activation{act("1", base), act("2", base), act("3", base)}

	assert.Equal(t, []string{"3", "2", "1"}, ids(Newest(list, 0)))
	assert.Equal(t, []string{"3", "2"}, ids(Newest(list, 2)))
	assert.Equal(t, []string{"3", "2", "1"}, ids(Newest(list, 10)))
	assert.Empty(t, Newest(nil, 5))
}

func TestFind(t *testing.T) {
	list := []Activation{act("1", time.Now())}
	found := Find(list, "1")
	if assert.NotNil(t, found) {
		found.Action = "changed"
		assert.Equal(t, "hello.js", list[0].Action, "Find must return a copy")
	}
	assert.Nil(t, Find(list, "2"))
}

func ids(list []Activation) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.ActivationID)
	}
	return out
}
