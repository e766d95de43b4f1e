package synonym

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpand(t *testing.T) {
	e := NewExpander(DefaultTable())

	tests := []struct {
		name         string
		input        string
		cookingState string
		want         []string
	}{
		{
			name:  "rice prefers freshly cooked and never raw",
			input: "ご飯",
			want:  []string{"白米（炊飯直後）", "白米（温め直し）", "白米", "ご飯"},
		},
		{
			name:  "katakana key matches",
			input: "ライス",
			want:  []string{"白米（炊飯直後）", "白米（温め直し）", "白米", "ライス"},
		},
		{
			name:  "egg without size becomes M",
			input: "卵",
			want:  []string{CanonicalEgg},
		},
		{
			name:  "half width paren egg term",
			input: "鶏卵(全卵)",
			want:  []string{CanonicalEgg},
		},
		{
			name:  "explicit size is kept",
			input: "鶏卵 L（64g）",
			want:  []string{"鶏卵 L（64g）"},
		},
		{
			name:  "yolk is not rewritten",
			input: "卵黄",
			want:  []string{"卵黄"},
		},
		{
			name:         "cooking state combinations come last",
			input:        "サーモン",
			cookingState: "焼き",
			want:         []string{"鮭（生）", "鮭", "サーモン", "鮭（焼き）", "サーモン（焼き）"},
		},
		{
			name:         "unknown name with cooking state",
			input:        "ししゃも",
			cookingState: "焼き",
			want:         []string{"ししゃも", "ししゃも（焼き）"},
		},
		{
			name:  "empty name",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Expand(tt.input, tt.cookingState))
		})
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	table := DefaultTable()
	names := table.Lookup("ご飯")
	names[0] = "changed"
	assert.Equal(t, "白米（炊飯直後）", table.Lookup("ご飯")[0])
}

func TestIsEggTerm(t *testing.T) {
	e := NewExpander(DefaultTable())
	assert.True(t, e.IsEggTerm("たまご"))
	assert.True(t, e.IsEggTerm("タマゴ"))
	assert.False(t, e.IsEggTerm("卵白"))
	assert.False(t, e.IsEggTerm("ゆで卵"))
}
