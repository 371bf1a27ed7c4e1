package sets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet(t *testing.T) {
	s := Make[string]()
	s.Insert("dog", "cat", "dog")
	require.Len(t, s, 2)
	assert.Equal(t, []string{"cat", "dog"}, Sorted(s))
}

func TestOrdered(t *testing.T) {
	o := MakeOrdered("wt", "ko", "wt", "het")
	assert.Equal(t, 3, o.Len())
	assert.Equal(t, []string{"wt", "ko", "het"}, o.Elements())
	idx, found := o.Index("ko")
	assert.True(t, found)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 0, o.Insert("wt"))
	assert.Equal(t, 3, o.Insert("new"))
	_, found = o.Index("missing")
	assert.False(t, found)
}
