package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPaginationClamps(t *testing.T) {
	p := NewPagination(0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
	assert.Equal(t, 0, p.Offset())

	p = NewPagination(3, 500)
	assert.Equal(t, 100, p.Limit())
	assert.Equal(t, 200, p.Offset())
}

func TestNewPagedResultTotalPages(t *testing.T) {
	res := NewPagedResult([]string{"a", "b"}, 41, NewPagination(1, 20))
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, int64(41), res.Total)

	empty := NewPagedResult([]string{}, 0, NewPagination(1, 20))
	assert.Equal(t, 0, empty.TotalPages)
}

func TestPagedResultHasNext(t *testing.T) {
	assert.True(t, NewPagedResult([]int{1}, 25, NewPagination(1, 20)).HasNext())
	assert.False(t, NewPagedResult([]int{1}, 25, NewPagination(2, 20)).HasNext())
}
