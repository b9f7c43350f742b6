package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listingJSON struct {
	Coins []struct {
		ID          int    `json:"id"`
		Image       string `json:"image"`
		Label       string `json:"label"`
		AIGenerated bool   `json:"ai_generated"`
	} `json:"coins"`
	Filters struct {
		Countries []string          `json:"countries"`
		Years     []string          `json:"years"`
		Selected  map[string]string `json:"selected"`
	} `json:"filters"`
}

func TestListCoins(t *testing.T) {
	env := newTestEnv(t, testMetadata)

	var got listingJSON
	require.Equal(t, http.StatusOK, env.getJSON(t, "/api/coins", &got))
	require.Len(t, got.Coins, 3)

	assert.Equal(t, "France - 1 Euro", got.Coins[0].Label)
	assert.True(t, got.Coins[0].AIGenerated)
	assert.Equal(t, "/pictures/IMG_001.jpg", got.Coins[0].Image)
	assert.Equal(t, "Italy - 100 Lire (1995)", got.Coins[1].Label)
	assert.False(t, got.Coins[1].AIGenerated)
	assert.Equal(t, "/pictures/IMG_003.JPG", got.Coins[1].Image)
	assert.Equal(t, "Coin #3", got.Coins[2].Label)

	assert.Equal(t, []string{"France", "Italy"}, got.Filters.Countries)
	assert.Equal(t, []string{"1995"}, got.Filters.Years)
}

func TestListCoinsFilters(t *testing.T) {
	env := newTestEnv(t, testMetadata)

	var got listingJSON
	require.Equal(t, http.StatusOK, env.getJSON(t, "/api/coins?country=Italy", &got))
	require.Len(t, got.Coins, 1)
	assert.Equal(t, 1, got.Coins[0].ID)
	assert.Equal(t, "Italy", got.Filters.Selected["country"])

	got = listingJSON{}
	require.Equal(t, http.StatusOK, env.getJSON(t, "/api/coins?country=Atlantis&year=%3Cscript%3E", &got))
	assert.Len(t, got.Coins, 3, "unknown filter values are ignored")
	assert.Empty(t, got.Filters.Selected)
}

func TestListCoinsWithoutMetadata(t *testing.T) {
	env := newTestEnv(t, "")

	var got listingJSON
	require.Equal(t, http.StatusOK, env.getJSON(t, "/api/coins", &got))
	require.Len(t, got.Coins, 3)
	for i, c := range got.Coins {
		assert.Equal(t, i, c.ID)
		assert.Contains(t, c.Label, "Coin #")
	}
}

func TestListCoinsCorruptMetadata(t *testing.T) {
	env := newTestEnv(t, "{broken")

	var got map[string]string
	assert.Equal(t, http.StatusInternalServerError, env.getJSON(t, "/api/coins", &got))
	assert.Equal(t, "corrupt_store", got["error"])

	resp, body := env.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "pages stay browsable")
	assert.Contains(t, body, "Coin #1")
}

func TestGetCoin(t *testing.T) {
	env := newTestEnv(t, testMetadata)

	var got map[string]any
	require.Equal(t, http.StatusOK, env.getJSON(t, "/api/coins/0", &got))
	assert.Equal(t, "France", got["country"])
	assert.Equal(t, PlaceholderField, got["year"])
	assert.Equal(t, PlaceholderNotes, got["notes"])
	assert.Equal(t, true, got["ai_generated"])
	assert.Nil(t, got["prev"])
	assert.EqualValues(t, 1, got["next"])
	assert.Len(t, got["photos"], 2)

	got = nil
	require.Equal(t, http.StatusOK, env.getJSON(t, "/api/coins/1", &got))
	assert.Equal(t, "1995", got["year"])
	assert.Equal(t, "worn", got["notes"])
	assert.Equal(t, "Numista", got["valuation"].(map[string]any)["source_name"])

	got = nil
	require.Equal(t, http.StatusOK, env.getJSON(t, "/api/coins/2", &got))
	assert.Equal(t, false, got["has_metadata"])
	assert.Equal(t, PlaceholderField, got["country"])
	assert.Equal(t, "Coin #3", got["title"])
	assert.Len(t, got["photos"], 1)
	assert.Nil(t, got["next"])
}

func TestGetCoinUnknownID(t *testing.T) {
	env := newTestEnv(t, testMetadata)
	for _, id := range []string{"3", "-1", "abc"} {
		var got map[string]any
		assert.Equal(t, http.StatusNotFound, env.getJSON(t, "/api/coins/"+id, &got), id)
	}
}

func TestIndexPage(t *testing.T) {
	env := newTestEnv(t, `[{"id":0,"country":"<script>alert(1)</script>","currency":"Euro","value":"1 Euro"}]`)

	resp, body := env.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, `href="/coins/2"`)
	assert.Contains(t, body, "&lt;script&gt;alert(1)&lt;/script&gt; - 1 Euro")
	assert.NotContains(t, body, "<script>alert(1)</script>")
}

func TestCoinPage(t *testing.T) {
	env := newTestEnv(t, testMetadata)

	resp, body := env.get(t, "/coins/1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Italy - 100 Lire (1995)")
	assert.Contains(t, body, `href="/coins/1/photos/0"`)
	assert.Contains(t, body, `href="/coins/0"`)
	assert.NotContains(t, body, "generated automatically by AI")
	assert.Contains(t, body, ".then(() => post({action: 'check_auth'}))", "auth check waits for the token request")

	_, body = env.get(t, "/coins/0")
	assert.Contains(t, body, "generated automatically by AI")
	assert.Contains(t, body, PlaceholderField)
}

func TestCoinPageRedirectsUnknownID(t *testing.T) {
	env := newTestEnv(t, testMetadata)
	for _, id := range []string{"3", "-1", "x"} {
		resp, _ := env.get(t, "/coins/"+id)
		assert.Equal(t, http.StatusFound, resp.StatusCode, id)
		assert.Equal(t, "/", resp.Header.Get("Location"), id)
	}
}

func TestLightbox(t *testing.T) {
	env := newTestEnv(t, testMetadata)

	resp, body := env.get(t, "/coins/0/photos/1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `src="/pictures/IMG_002.jpg"`)
	assert.Contains(t, body, `href="/coins/0/photos/0"`)
	assert.Contains(t, body, `href="/coins/1/photos/0"`)
	assert.Contains(t, body, "Coin 1 / 3 - Back")

	_, body = env.get(t, "/coins/2/photos/0")
	assert.Contains(t, body, `href="/coins/1/photos/1"`)
	assert.NotContains(t, body, `class="nav-arrow next"`)

	resp, _ = env.get(t, "/coins/2/photos/1")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/coins/2", resp.Header.Get("Location"))

	resp, _ = env.get(t, "/coins/9/photos/0")
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestPictures(t *testing.T) {
	env := newTestEnv(t, "")

	resp, body := env.get(t, "/pictures/IMG_001.jpg")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "img", body)

	resp, _ = env.get(t, "/pictures/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.get(t, "/pictures/../sessions.db")
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}
