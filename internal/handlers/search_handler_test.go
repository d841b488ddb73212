package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"reportcard-crm/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalSearchShortQuery(t *testing.T) {
	setupSyncDB(t)
	school := uint(1)

	for _, q := range []string{"", "a", "+я+"} {
		c, w := syncContext(t, http.MethodGet, "/api/search?q="+q, nil, models.RoleAdmin, &school)
		GlobalSearchHandler(c)

		require.Equal(t, http.StatusOK, w.Code, "q=%q", q)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, float64(0), body["count"])
		assert.Equal(t, []interface{}{}, body["results"])
	}
}

func TestGlobalSearchScopedResults(t *testing.T) {
	db := setupSyncDB(t)
	school := uint(1)

	require.NoError(t, db.Create(&models.Subject{Name: "Algebra", Code: "ALG", SchoolID: 1}).Error)
	require.NoError(t, db.Create(&models.Subject{Name: "Algebra", Code: "ALG", SchoolID: 2}).Error)

	c, w := syncContext(t, http.MethodGet, "/api/search?q=alg", nil, models.RoleAdmin, &school)
	GlobalSearchHandler(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Count   int            `json:"count"`
		Results []SearchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "subject", body.Results[0].Type)
	assert.Equal(t, "Algebra", body.Results[0].Title)
}
