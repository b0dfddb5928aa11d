package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPage(t *testing.T) {
	t.Run("computes total pages", func(t *testing.T) {
		page := NewPage([]string{"a", "b"}, 21, PageRequest{Page: 1, Size: 10})

		assert.Equal(t, int64(21), page.TotalElements)
		assert.Equal(t, 3, page.TotalPages)
		assert.Equal(t, 1, page.Number)
		assert.Equal(t, 10, page.Size)
	})

	t.Run("exact multiple", func(t *testing.T) {
		page := NewPage([]string{}, 20, PageRequest{Size: 10})
		assert.Equal(t, 2, page.TotalPages)
	})

	t.Run("nil content serializes as empty array", func(t *testing.T) {
		page := NewPage[string](nil, 0, PageRequest{Size: 10})

		data, err := json.Marshal(page)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"content":[]`)
		assert.Equal(t, 0, page.TotalPages)
	})
}

func TestPageRequest(t *testing.T) {
	req := PageRequest{Page: 3, Size: 25, Descending: true}
	assert.Equal(t, 75, req.Offset())
	assert.Equal(t, "DESC", req.Direction())

	req.Descending = false
	assert.Equal(t, "ASC", req.Direction())
}
