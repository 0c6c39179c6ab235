package keywords

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"Hello, World!", []string{"hello", "world"}},
		{"the 3 cats on 42nd street", []string{"the", "cats", "on", "street"}},
		{"speaker's turn -- 'quoted'", []string{"speaker", "turn", "quoted"}},
		{"   ", []string{}},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, tokenize(tc.in), tc.in)
	}
}

func TestKeywords(t *testing.T) {
	e := New()
	require.Equal(t, []string{"run", "cat", "run", "dog"}, e.Keywords("Running cats, and running DOGS!"))
	require.Equal(t, []string{"cat", "street"}, e.Keywords("The 3 cats on 42nd street"))
	require.Empty(t, e.Keywords("I was there, wasn't I?"))
}

func TestKeywords_ExtraStopwords(t *testing.T) {
	e := New(" Um ", "uh")
	require.Equal(t, []string{"dog"}, e.Keywords("um uh dogs"))
}

func TestTop(t *testing.T) {
	freq := map[string]int{"b": 2, "a": 2, "c": 5, "d": 1}
	require.Equal(t, []Count{{"c", 5}, {"a", 2}, {"b", 2}}, Top(freq, 3))
	require.Len(t, Top(freq, 0), 4)
	require.Empty(t, Top(nil, 3))
}
