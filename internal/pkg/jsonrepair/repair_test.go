package jsonrepair

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence with prose", "結果です:\n```\n{\"a\": 1}\n```\nどうぞ", `{"a": 1}`},
		{"unclosed fence", "```json\n{\"a\": 1", `{"a": 1}`},
		{"prose around object", `Here you go: {"a": 1} thanks!`, `{"a": 1}`},
		{"trailing commas", `{"a":[1,2,],}`, `{"a":[1,2]}`},
		{"nan and infinity", `{"a": NaN, "b": -Infinity, "c": Infinity}`, `{"a": null, "b": null, "c": null}`},
		{"truncated number", `{"foods":[{"name":"ご飯","amount":18`, `{"foods":[{"name":"ご飯","amount":18}]}`},
		{"truncated string", `{"foods":[{"name":"ご`, `{"foods":[{"name":"ご"}]}`},
		{"truncated after key", `{"a":1,"b"`, `{"a":1,"b":null}`},
		{"truncated after colon", `{"a":`, `{"a":null}`},
		{"truncated after comma", `{"a":1,`, `{"a":1}`},
		{"truncated decimal", `{"a":1.`, `{"a":1}`},
		{"truncated literal", `{"a": tr`, `{"a": true}`},
		{"unquoted keys", `{name: "x", amount: 5}`, `{"name": "x", "amount": 5}`},
		{"number with unit", `{"amount": 180g}`, `{"amount": "180g"}`},
		{"exponent", `{"a": 1e-3}`, `{"a": 1e-3}`},
		{"empty value", `{"a": , "b": 2}`, `{"a": null, "b": 2}`},
		{"raw newline in string", "{\"a\": \"x\ny\"}", `{"a": "x\ny"}`},
		{"mismatched closer", `{"a": [1, 2}`, `{"a": [1, 2]}`},
		{"array root", `[{"a":1},]`, `[{"a":1}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractFailures(t *testing.T) {
	for _, in := range []string{
		"",
		"no json here",
		"```\nsorry\n```",
		`{カロリー: 100}`,
	} {
		_, err := Extract(in)
		assert.ErrorIs(t, err, ErrUnrepairable, in)
	}
}

func TestUnmarshal(t *testing.T) {
	var out struct {
		HasPackageInfo bool `json:"hasPackageInfo"`
		Foods          []struct {
			Name   string  `json:"name"`
			Amount float64 `json:"amount"`
		} `json:"foods"`
	}
	err := Unmarshal("```json\n{\"hasPackageInfo\": false, \"foods\": [{\"name\": \"ご飯\", \"amount\": 180,},]}\n```", &out)
	require.NoError(t, err)
	require.Len(t, out.Foods, 1)
	assert.Equal(t, "ご飯", out.Foods[0].Name)
	assert.Equal(t, 180.0, out.Foods[0].Amount)

	var bad struct {
		Amount float64 `json:"amount"`
	}
	assert.ErrorIs(t, Unmarshal(`{"amount": "many"}`, &bad), ErrUnrepairable)
}
