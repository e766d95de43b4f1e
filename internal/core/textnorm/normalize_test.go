package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"白米(炊飯直後)", "白米（炊飯直後）"},
		{" 鶏卵 M（58g） ", "鶏卵 M（58g）"},
		{"ご飯", "ご飯"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "normalize must be idempotent")
		})
	}
}

func TestSearchForm(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"サーモン", "さーもん"},
		{"ﾄﾏﾄ", "とまと"},
		{"鶏むね肉（皮なし生）", "鶏むね肉"},
		{"白米 (炊飯直後)", "白米"},
		{"Ｙｏｇｕｒｔ", "yogurt"},
		{"鶏卵 M（58g）（ゆで）", "鶏卵m"},
		{"（生）", "(生)"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := SearchForm(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, SearchForm(got), "search form must be idempotent")
		})
	}
}

func TestFoldKeepsQualifier(t *testing.T) {
	assert.Equal(t, "鶏むね肉(生)", Fold("鶏むね肉（生）"))
	assert.Equal(t, "白米(炊飯直後)", Fold("白米 (炊飯直後)"))
	assert.Equal(t, "さーもん", Fold("ｻｰﾓﾝ"))
	assert.NotEqual(t, Fold("鶏むね肉（生）"), Fold("鶏むね肉（揚げ）"))
	assert.Equal(t, SearchForm("鶏むね肉（生）"), SearchForm("鶏むね肉（揚げ）"))
}

func TestSplitAndWithQualifier(t *testing.T) {
	base, q := SplitQualifier("白米(炊飯直後)")
	assert.Equal(t, "白米", base)
	assert.Equal(t, "炊飯直後", q)

	base, q = SplitQualifier("ご飯")
	assert.Equal(t, "ご飯", base)
	assert.Empty(t, q)

	assert.Equal(t, "鮭（焼き）", WithQualifier("鮭", "焼き"))
	assert.Equal(t, "鮭（焼き）", WithQualifier("鮭(焼き)", "焼き"))
	assert.Equal(t, "鮭", WithQualifier("鮭", ""))
}
