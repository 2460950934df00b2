package search

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/ranobe/internal/catalog"
	"github.com/pders01/ranobe/internal/storage"
)

func seededStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "search.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	slime := "A salaryman is stabbed and reborn in another world as a slime."
	novels := []*catalog.NovelDetail{
		{ID: "1", Title: "Tensei Shitara Slime Datta Ken", Authors: []string{"Fuse"}, Tags: []string{"Isekai", "Fantasy"}, Description: &slime},
		{ID: "2", Title: "Overlord", Authors: []string{"Maruyama Kugane"}, Tags: []string{"Isekai", "Dark Fantasy"}},
		{ID: "3", Title: "Đại Quản Gia Là Ma Hoàng", OtherTitles: []string{"The Butler Is a Demon King"}},
	}
	for _, n := range novels {
		require.NoError(t, store.SaveNovel(n))
	}
	return store
}

func TestSearchMinLength(t *testing.T) {
	engine := NewEngine(&storage.Store{})

	tests := []struct {
		name  string
		query string
	}{
		{"Empty query", ""},
		{"Single character query", "a"},
		{"Whitespace only", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := engine.Search(tt.query, 10)
			assert.NoError(t, err)
			assert.NotNil(t, results)
			assert.Equal(t, 0, len(results), "short queries should return empty results")
		})
	}
}

func TestEngine_Search(t *testing.T) {
	engine := NewEngine(seededStore(t))

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"title match", "slime", []string{"1"}},
		{"tag shared by two", "isekai", []string{"1", "2"}},
		{"author", "maruyama", []string{"2"}},
		{"folded vietnamese", "dai quan gia", []string{"3"}},
		{"other title", "demon king", []string{"3"}},
		{"no match", "gundam", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := engine.Search(tt.query, 10)
			require.NoError(t, err)
			var ids []string
			for _, r := range res {
				ids = append(ids, r.Novel.ID)
			}
			assert.ElementsMatch(t, tt.wantIDs, ids)
		})
	}
}

func TestEngine_TitleOutranksDescription(t *testing.T) {
	store := seededStore(t)
	desc := "Nothing about gel creatures, only a slime cameo."
	require.NoError(t, store.SaveNovel(&catalog.NovelDetail{ID: "4", Title: "Other Story", Description: &desc}))

	res, err := NewEngine(store).Search("slime", 10)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "1", res[0].Novel.ID)
	assert.Equal(t, "title", res[0].Matches[0].Field)

	res, err = NewEngine(store).Search("slime", 1)
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Tiếng Việt", "tieng viet"},
		{"Đại Quản Gia", "dai quan gia"},
		{"Café", "cafe"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fold(tt.in))
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"hello world", []string{"hello", "world"}},
		{"Hello, World!", []string{"hello", "world"}},
		{"a b cd", []string{"cd"}},
		{"Ma Hoàng", []string{"ma", "hoang"}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, tokenize(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "Tiế…", truncate("Tiếng Việt", 4))
}

func TestScoreField(t *testing.T) {
	assert.Equal(t, 0.0, scoreField("", []string{"slime"}, 1))
	exact := scoreField("slime", []string{"slime"}, 1)
	partial := scoreField("slimes everywhere", []string{"slime"}, 1)
	assert.Greater(t, exact, partial)
	assert.Greater(t, scoreField("slime", []string{"slime"}, 4), exact)
}

func TestFindBestSnippet(t *testing.T) {
	long := "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty slime twentyone"
	tests := []struct {
		name      string
		text      string
		terms     []string
		maxLength int
		want      string
		prefix    bool
		suffix    bool
	}{
		{"match past the first window", long, []string{"slime"}, 80, "slime", true, false},
		{"match at the start", long, []string{"one"}, 40, "one two", false, true},
		{"match on the last word", long + " dragon", []string{"dragon"}, 40, "dragon", true, false},
		{"folded match", "a b c d e f g h i j k l m n o p q r s t u v w x y z Tiếng Việt", []string{"tieng"}, 20, "Tiếng", true, false},
		{"short text kept whole", "a slime story", []string{"slime"}, 80, "a slime story", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snippet := findBestSnippet(tt.text, tt.terms, tt.maxLength)
			assert.Contains(t, snippet, tt.want)
			assert.LessOrEqual(t, len([]rune(snippet)), tt.maxLength)
			assert.Equal(t, tt.prefix, strings.HasPrefix(snippet, "…"))
			assert.Equal(t, tt.suffix, strings.HasSuffix(snippet, "…"))
		})
	}

	assert.Equal(t, "", findBestSnippet("", []string{"x"}, 10))
}
