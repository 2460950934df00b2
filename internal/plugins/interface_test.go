package plugins

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockResolver is a test resolver for exercising the registry
type mockResolver struct {
	name      string
	priority  int
	canHandle func(string) bool
	resolve   func(context.Context, string) (*Target, error)
}

func (m *mockResolver) Name() string { return m.name }

func (m *mockResolver) Priority() int { return m.priority }

func (m *mockResolver) CanHandle(url string) bool {
	if m.canHandle != nil {
		return m.canHandle(url)
	}
	return false
}

func (m *mockResolver) Resolve(ctx context.Context, url string) (*Target, error) {
	if m.resolve != nil {
		return m.resolve(ctx, url)
	}
	return &Target{URL: url, NovelID: m.name}, nil
}

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()

	assert.NotNil(t, registry)
	assert.Empty(t, registry.List())
}

func TestRegistry_FindByPriority(t *testing.T) {
	registry := NewRegistry()
	all := func(string) bool { return true }

	low := &mockResolver{name: "low", priority: 10, canHandle: all}
	high := &mockResolver{name: "high", priority: 100, canHandle: all}
	picky := &mockResolver{name: "picky", priority: 1000, canHandle: func(u string) bool { return u == "special" }}

	registry.Register(low)
	registry.Register(picky)
	registry.Register(high)

	assert.Equal(t, high, registry.Find("anything"))
	assert.Equal(t, picky, registry.Find("special"))

	names := []string{}
	for _, r := range registry.List() {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{"picky", "high", "low"}, names)
}

func TestRegistry_Resolve(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Resolve(context.Background(), "https://nowhere")
	assert.ErrorIs(t, err, ErrNoResolver)

	boom := errors.New("boom")
	registry.Register(&mockResolver{
		name:      "failing",
		priority:  5,
		canHandle: func(u string) bool { return u == "bad" },
		resolve:   func(context.Context, string) (*Target, error) { return nil, boom },
	})
	registry.Register(&mockResolver{
		name:      "ok",
		priority:  1,
		canHandle: func(string) bool { return true },
	})

	_, err = registry.Resolve(context.Background(), "bad")
	assert.ErrorIs(t, err, boom)

	target, err := registry.Resolve(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "ok", target.Resolver)
	assert.Equal(t, "good", target.URL)
}

func TestTargetIsChapter(t *testing.T) {
	var nilTarget *Target
	assert.False(t, nilTarget.IsChapter())
	assert.False(t, (&Target{NovelID: "n"}).IsChapter())
	assert.True(t, (&Target{NovelID: "n", ChapterID: "c"}).IsChapter())
}
