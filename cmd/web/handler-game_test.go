package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/saferroad/internal/e2etest"
	"github.com/myrjola/saferroad/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func text(doc *goquery.Document, selector string) string {
	return strings.Join(strings.Fields(doc.Find(selector).First().Text()), " ")
}

func csrfToken(t *testing.T, doc *goquery.Document, formAction string) string {
	t.Helper()
	token, ok := doc.Find(fmt.Sprintf("form[action='%s'] input[name=csrf_token]", formAction)).Attr("value")
	require.True(t, ok, "csrf_token not found in form %s", formAction)
	return token
}

func TestGame_firstRound(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t, "testdata/single.csv")

	doc, err := server.Client().GetDoc(ctx, "/")
	require.NoError(t, err)

	assert.Equal(t, "Round 1 of 5", text(doc, ".round h2"))
	assert.Equal(t, "0", text(doc, "#score"))
	cards := doc.Find(".road-card")
	require.Equal(t, 2, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		assert.Equal(t, "Urban", card.Find("[data-field=road-type]").Text())
		assert.Equal(t, "0.46", card.Find("[data-field=curvature]").Text())
		assert.Equal(t, "60 km/h", card.Find("[data-field=speed-limit]").Text())
		assert.Equal(t, "Night", card.Find("[data-field=lighting]").Text())
		assert.Equal(t, "Rainy", card.Find("[data-field=weather]").Text())
		assert.Equal(t, "Evening", card.Find("[data-field=time-of-day]").Text())
	})
	assert.Equal(t, 2, doc.Find("form[action='/round/choose'] button[name=road]").Length())
	assert.Equal(t, 0, doc.Find("#result").Length())
}

// TestGame_perfectGame plays on a dataset with a single road. Every pair is a tie, so road 2 is always safer.
func TestGame_perfectGame(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t, "testdata/single.csv")
	client := server.Client()

	for round := 1; round <= 5; round++ {
		doc, err := client.SubmitForm(ctx, "/", "/round/choose", url.Values{"road": {"2"}})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("Round %d of 5", round), text(doc, ".round h2"))
		assert.Contains(t, text(doc, "#result"), "Correct! The model agrees: Road 2 was safer.")
		assert.Contains(t, text(doc, "#result"), "(Predicted risks: Road 1 = 0.390, Road 2 = 0.390)")
		assert.Equal(t, strconv.Itoa(round), text(doc, "#score"))
		assert.Equal(t, 0, doc.Find("form[action='/round/choose']").Length())

		wantButton := "Next Round"
		if round == 5 {
			wantButton = "See Final Score"
		}
		assert.Equal(t, wantButton, text(doc, "form[action='/round/next'] button"))

		doc, err = client.SubmitForm(ctx, "/", "/round/next", nil)
		require.NoError(t, err)
		if round < 5 {
			assert.Equal(t, fmt.Sprintf("Round %d of 5", round+1), text(doc, ".round h2"))
		}
	}

	doc, err := client.GetDoc(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, "Game Over!", text(doc, ".game-over h2"))
	assert.Equal(t, "5/5", text(doc, "#final-score"))
	assert.Equal(t, "Perfect! You're a road safety expert!", text(doc, ".verdict"))
	assert.Equal(t, 0, doc.Find(".round").Length())

	// Advancing past the final score is ignored.
	resp, err := client.PostForm(ctx, "/round/next", url.Values{"csrf_token": {csrfToken(t, doc, "/game/replay")}})
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	doc, err = client.GetDoc(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, "5/5", text(doc, "#final-score"))

	doc, err = client.SubmitForm(ctx, "/", "/game/replay", nil)
	require.NoError(t, err)
	assert.Equal(t, "Round 1 of 5", text(doc, ".round h2"))
	assert.Equal(t, "0", text(doc, "#score"))
}

func TestGame_wrongChoices(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t, "testdata/single.csv")
	client := server.Client()

	for range 5 {
		doc, err := client.SubmitForm(ctx, "/", "/round/choose", url.Values{"road": {"1"}})
		require.NoError(t, err)
		assert.Contains(t, text(doc, "#result"), "Not quite! The model predicted Road 2 as safer.")
		assert.Equal(t, "0", text(doc, "#score"))
		_, err = client.SubmitForm(ctx, "/", "/round/next", nil)
		require.NoError(t, err)
	}

	doc, err := client.GetDoc(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, "0/5", text(doc, "#final-score"))
	assert.Equal(t, "Better luck next time. Stay alert on the road!", text(doc, ".verdict"))
}

func TestGame_doubleSubmitScoresOnce(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t, "testdata/single.csv")
	client := server.Client()

	doc, err := client.GetDoc(ctx, "/")
	require.NoError(t, err)
	form := url.Values{"csrf_token": {csrfToken(t, doc, "/round/choose")}, "road": {"2"}}

	for range 2 {
		var resp *http.Response
		resp, err = client.PostForm(ctx, "/round/choose", form)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	doc, err = client.GetDoc(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, "Round 1 of 5", text(doc, ".round h2"))
	assert.Equal(t, "1", text(doc, "#score"))
}

func TestGame_nextBeforeChoosingIsIgnored(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t, "testdata/roads.csv")
	client := server.Client()

	doc, err := client.GetDoc(ctx, "/")
	require.NoError(t, err)
	before := text(doc, ".roads")

	resp, err := client.PostForm(ctx, "/round/next", url.Values{"csrf_token": {csrfToken(t, doc, "/round/choose")}})
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	doc, err = client.GetDoc(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, "Round 1 of 5", text(doc, ".round h2"))
	assert.Equal(t, before, text(doc, ".roads"), "reloading must show the same roads")
}

func TestGame_invalidRoad(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t, "testdata/roads.csv")
	client := server.Client()

	doc, err := client.GetDoc(ctx, "/")
	require.NoError(t, err)
	token := csrfToken(t, doc, "/round/choose")

	for _, road := range []string{"", "0", "3", "road"} {
		t.Run(road, func(t *testing.T) {
			resp, postErr := client.PostForm(ctx, "/round/choose", url.Values{"csrf_token": {token}, "road": {road}})
			require.NoError(t, postErr)
			require.NoError(t, resp.Body.Close())
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestGame_rejectsMissingCSRFToken(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t, "testdata/roads.csv")
	client := server.Client()

	_, err := client.GetDoc(ctx, "/")
	require.NoError(t, err)

	resp, err := client.PostForm(ctx, "/round/choose", url.Values{"road": {"1"}})
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGame_sessionsArePerPlayer(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t, "testdata/single.csv")

	_, err := server.Client().SubmitForm(ctx, "/", "/round/choose", url.Values{"road": {"2"}})
	require.NoError(t, err)

	other, err := server.NewClient()
	require.NoError(t, err)
	doc, err := other.GetDoc(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, "0", text(doc, "#score"))
	assert.Equal(t, 0, doc.Find("#result").Length())
}

func TestGame_htmxFragment(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t, "testdata/roads.csv")
	client := server.Client()

	tests := []struct {
		name       string
		headers    map[string]string
		wantLayout bool
	}{
		{name: "full page", headers: nil, wantLayout: true},
		{name: "htmx request", headers: map[string]string{"HX-Request": "true"}, wantLayout: false},
		{name: "boosted navigation", headers: map[string]string{"HX-Request": "true", "HX-Boosted": "true"}, wantLayout: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := client.NewRequest(ctx, http.MethodGet, "/", nil)
			require.NoError(t, err)
			for key, value := range tt.headers {
				req.Header.Set(key, value)
			}
			resp, err := client.Do(req)
			require.NoError(t, err)
			defer func() {
				_ = resp.Body.Close()
			}()
			require.Equal(t, http.StatusOK, resp.StatusCode)
			doc, err := goquery.NewDocumentFromReader(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, 1, doc.Find(".round").Length())
			assert.Equal(t, tt.wantLayout, doc.Find("main#game").Length() == 1)
			assert.Equal(t, tt.wantLayout, doc.Find("header h1").Length() == 1)
		})
	}
}

func TestGame_securityHeaders(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t, "testdata/roads.csv")

	resp, err := server.Client().Get(ctx, "/")
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)

	nonce, ok := doc.Find("script").Attr("nonce")
	require.True(t, ok, "script nonce missing")
	require.NotEmpty(t, nonce)
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), fmt.Sprintf("'nonce-%s'", nonce))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "deny", resp.Header.Get("X-Frame-Options"))
}

func TestRun_missingDataset(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := run(ctx, testhelpers.NewLogger(io.Discard), testLookupEnv("testdata/missing.csv"))
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestGame_replayAfterFullGame(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t, "testdata/pair.csv")
	client := server.Client()

	doc, err := client.PlayGame(ctx, func(round int) string { return strconv.Itoa(1 + round%2) })
	require.NoError(t, err)
	assert.Regexp(t, `^[0-5]/5$`, e2etest.FinalScore(doc))

	doc, err = client.SubmitForm(ctx, "/", "/game/replay", nil)
	require.NoError(t, err)
	assert.Equal(t, "Round 1 of 5", text(doc, ".round h2"))

	doc, err = client.PlayGame(ctx, func(int) string { return "2" })
	require.NoError(t, err)
	assert.Regexp(t, `^[0-5]/5$`, e2etest.FinalScore(doc))
}

func TestGame_replayInProgressIsIgnored(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t, "testdata/single.csv")
	client := server.Client()

	_, err := client.SubmitForm(ctx, "/", "/round/choose", url.Values{"road": {"2"}})
	require.NoError(t, err)
	doc, err := client.SubmitForm(ctx, "/", "/round/next", nil)
	require.NoError(t, err)
	require.Equal(t, "Round 2 of 5", text(doc, ".round h2"))

	resp, err := client.PostForm(ctx, "/game/replay", url.Values{"csrf_token": {csrfToken(t, doc, "/round/choose")}})
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc, err = client.GetDoc(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, "Round 2 of 5", text(doc, ".round h2"))
	assert.Equal(t, "1", text(doc, "#score"))
}

func TestGame_doubleReplayStartsOneGame(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t, "testdata/single.csv")
	client := server.Client()

	doc, err := client.PlayGame(ctx, func(int) string { return "2" })
	require.NoError(t, err)
	require.Equal(t, "5/5", e2etest.FinalScore(doc))
	form := url.Values{"csrf_token": {csrfToken(t, doc, "/game/replay")}}

	resp, err := client.PostForm(ctx, "/game/replay", form)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	_, err = client.SubmitForm(ctx, "/", "/round/choose", url.Values{"road": {"2"}})
	require.NoError(t, err)

	// The second submit of the same form arrives after play resumed.
	resp, err = client.PostForm(ctx, "/game/replay", form)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	doc, err = client.GetDoc(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, "Round 1 of 5", text(doc, ".round h2"))
	assert.Equal(t, "1", text(doc, "#score"))
}

func TestGame_greatVerdict(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t, "testdata/single.csv")

	doc, err := server.Client().PlayGame(ctx, func(round int) string {
		if round <= 3 {
			return "2"
		}
		return "1"
	})
	require.NoError(t, err)
	assert.Equal(t, "3/5", e2etest.FinalScore(doc))
	assert.Equal(t, "Great job! You have a good sense of safe roads.", text(doc, ".verdict"))
	assert.Equal(t, "great", doc.Find(".game-over").AttrOr("data-verdict", ""))
}
