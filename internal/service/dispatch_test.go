package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/mirror-notify/internal/demos"
	"github.com/telhawk-systems/mirror-notify/internal/models"
)

func TestDispatch_IsolatesDemoFaults(t *testing.T) {
	panicking := &stubDemo{name: "panicking", panics: true}
	failing := &stubDemo{name: "failing", err: errors.New("bad input")}
	producing := &stubDemo{name: "producing", out: models.Resource{"text": "ok"}}
	timeline := newFakeCollection()

	d := NewDispatcher([]demos.Module{panicking, failing, producing}, nil)
	results, err := d.Dispatch(context.Background(), timeline, models.Resource{"id": "i1"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.ErrorIs(t, results[0].Err, ErrDemoPanicked)
	assert.False(t, results[0].InsertFailed)
	assert.EqualError(t, results[1].Err, "bad input")
	assert.NoError(t, results[2].Err)
	assert.Equal(t, "inserted-1", results[2].Inserted.ID())

	require.Len(t, timeline.inserts, 1)
	assert.Len(t, producing.seen, 1)
}

func TestDispatch_SkipsModulesWithoutHandler(t *testing.T) {
	d := NewDispatcher([]demos.Module{passiveDemo{}}, nil)
	results, err := d.Dispatch(context.Background(), newFakeCollection(), models.Resource{})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, []string{"passive"}, d.Modules())
}

func TestDispatch_EachDemoSeesOriginalItem(t *testing.T) {
	observer := &stubDemo{name: "observer"}
	item := models.Resource{
		"id":           "i1",
		"text":         "original",
		"notification": map[string]any{"level": "DEFAULT"},
	}

	d := NewDispatcher([]demos.Module{mutatingDemo{}, observer}, nil)
	_, err := d.Dispatch(context.Background(), newFakeCollection(), item)
	require.NoError(t, err)

	require.Len(t, observer.seen, 1)
	assert.Equal(t, "original", observer.seen[0].String("text"))
	assert.Equal(t, "DEFAULT", observer.seen[0]["notification"].(map[string]any)["level"])
	assert.Equal(t, "original", item.String("text"))
}

func TestDispatch_InsertFailureDoesNotStopSiblings(t *testing.T) {
	first := &stubDemo{name: "first", out: models.Resource{"text": "a"}}
	second := &stubDemo{name: "second", out: models.Resource{"text": "b"}}
	timeline := newFakeCollection()
	timeline.insertErr = errors.New("upstream 503")

	d := NewDispatcher([]demos.Module{first, second}, nil)
	results, err := d.Dispatch(context.Background(), timeline, models.Resource{"id": "i1"})
	require.Error(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].InsertFailed)
	assert.True(t, results[1].InsertFailed)
	assert.Len(t, second.seen, 1)
}

func TestDispatcher_ModuleListIsCopied(t *testing.T) {
	modules := []demos.Module{&stubDemo{name: "a"}}
	d := NewDispatcher(modules, nil)
	modules[0] = &stubDemo{name: "b"}

	assert.Equal(t, []string{"a"}, d.Modules())
}
