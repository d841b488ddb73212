package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func ctxWithQuery(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return c
}

func TestPageParams(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		page     int
		pageSize int
	}{
		{"по умолчанию", "", 1, DefaultPageSize},
		{"обычный запрос", "page=3&pageSize=50", 3, 50},
		{"нулевая страница", "page=0&pageSize=10", 1, 10},
		{"отрицательные значения", "page=-2&pageSize=-5", 1, DefaultPageSize},
		{"превышение лимита", "pageSize=10000", 1, MaxPageSize},
		{"мусор в параметрах", "page=abc&pageSize=xyz", 1, DefaultPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, pageSize := pageParams(ctxWithQuery(tt.query))
			assert.Equal(t, tt.page, page)
			assert.Equal(t, tt.pageSize, pageSize)
		})
	}
}

func TestCreatePaginatedResponse(t *testing.T) {
	c := ctxWithQuery("page=2&pageSize=10")
	data := []string{"a", "b"}

	resp := CreatePaginatedResponse(c, data, 25)
	assert.Equal(t, int64(25), resp.TotalRows)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Equal(t, 2, resp.CurrentPage)
	assert.Equal(t, 10, resp.PageSize)
	assert.Equal(t, data, resp.Data)
}

func TestCreatePaginatedResponseEmpty(t *testing.T) {
	resp := CreatePaginatedResponse(ctxWithQuery(""), []string{}, 0)
	assert.Equal(t, 0, resp.TotalPages)
	assert.Equal(t, 1, resp.CurrentPage)
}

func TestWantAll(t *testing.T) {
	assert.True(t, wantAll(ctxWithQuery("all=true")))
	assert.False(t, wantAll(ctxWithQuery("all=1")))
	assert.False(t, wantAll(ctxWithQuery("")))
}
