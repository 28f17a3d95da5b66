package discord

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"discord-archive/models"
)

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r), nil
}

// stubSession routes a real session's REST calls into handler instead of
// the network.
func stubSession(t *testing.T, handler func(*http.Request) *http.Response) *discordgo.Session {
	t.Helper()
	s, err := discordgo.New("Bot test-token")
	require.NoError(t, err)
	s.Client = &http.Client{Transport: roundTripFunc(handler)}
	return s
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func noLimit() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 0)
}

func TestHistoryFetcherClampsPageLimit(t *testing.T) {
	gotLimit := ""
	s := stubSession(t, func(r *http.Request) *http.Response {
		gotLimit = r.URL.Query().Get("limit")
		return jsonResponse(http.StatusOK, "[]")
	})

	fetch := HistoryFetcher(s, noLimit(), 12345)
	msgs, err := fetch(context.Background(), 0, 500)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, "100", gotLimit, "history pages are capped at 100 items")
}

func TestReactionUserFetcherRetriesUnicodeNotFoundOnce(t *testing.T) {
	calls := 0
	s := stubSession(t, func(r *http.Request) *http.Response {
		calls++
		switch calls {
		case 1:
			return jsonResponse(http.StatusNotFound, `{"message":"Unknown Emoji","code":10014}`)
		case 2:
			return jsonResponse(http.StatusOK, `[{"id":"5","username":"a"}]`)
		default:
			return jsonResponse(http.StatusNotFound, `{"message":"Unknown Emoji","code":10014}`)
		}
	})

	fetch := ReactionUserFetcher(s, noLimit(), 1, 2, &discordgo.Emoji{Name: "👍"})

	// The first page may 404 once mid-crawl for unicode emoji; the escaped
	// retry recovers it.
	users, err := fetch(context.Background(), 0, 100)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, 2, calls, "exactly one retry")

	// After a page has succeeded, a 404 is a real error, not the race.
	_, err = fetch(context.Background(), 5, 100)
	require.Error(t, err)
	assert.Equal(t, 3, calls, "no further retries once started")
}

func TestReactionUserFetcherCustomEmojiNotFoundPropagates(t *testing.T) {
	calls := 0
	s := stubSession(t, func(r *http.Request) *http.Response {
		calls++
		return jsonResponse(http.StatusNotFound, `{"message":"Unknown Emoji","code":10014}`)
	})

	fetch := ReactionUserFetcher(s, noLimit(), 1, 2, &discordgo.Emoji{ID: "99", Name: "party"})
	_, err := fetch(context.Background(), 0, 100)
	require.Error(t, err)
	assert.Equal(t, 1, calls, "custom emoji routes never hit the unicode escaping race")
}

func TestListVenuesDirectMessages(t *testing.T) {
	s := stubSession(t, func(r *http.Request) *http.Response {
		require.True(t, strings.HasSuffix(r.URL.Path, "/users/@me/channels"), r.URL.Path)
		return jsonResponse(http.StatusOK,
			`[{"id":"111","type":1,"recipients":[{"id":"7","username":"pal"}]},`+
				`{"id":"112","type":3,"recipients":[{"id":"8","username":"grp"}]}]`)
	})

	guild, venues, err := ListVenues(s, models.CrawlConf{Mode: "dm"})
	require.NoError(t, err)
	assert.Nil(t, guild)
	require.Len(t, venues, 2)
	assert.Equal(t, "pal", VenueName(venues[0]))
	assert.Equal(t, "group-grp", VenueName(venues[1]))
}
