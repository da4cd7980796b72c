package e2etest

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/saferroad/internal/errors"
)

// Rounds is the number of rounds the client expects to play before the final score.
const Rounds = 5

// PlayGame plays a complete game from the current round, picking road "1" or "2" as returned by pick, and returns
// the final score document.
func (c *Client) PlayGame(ctx context.Context, pick func(round int) string) (*goquery.Document, error) {
	var (
		doc *goquery.Document
		err error
	)
	for round := 1; round <= Rounds; round++ {
		if doc, err = c.SubmitForm(ctx, "/", "/round/choose", url.Values{"road": {pick(round)}}); err != nil {
			return nil, errors.Wrap(err, "choose road", slog.Int("round", round))
		}
		if doc.Find("#result").Length() == 0 {
			return nil, errors.New("result missing after choice", slog.Int("round", round))
		}
		if doc, err = c.SubmitForm(ctx, "/", "/round/next", nil); err != nil {
			return nil, errors.Wrap(err, "advance", slog.Int("round", round))
		}
	}
	if doc.Find("#final-score").Length() == 0 {
		return nil, errors.New("final score missing after last round")
	}
	return doc, nil
}

// FinalScore returns the "score/rounds" text of the game over page.
func FinalScore(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("#final-score").Text())
}
