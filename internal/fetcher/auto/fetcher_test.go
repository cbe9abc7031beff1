package auto

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/film-info-crawler/internal/film"
)

type stubFetcher struct {
	resp  film.FetchResponse
	err   error
	calls int
}

func (s *stubFetcher) Fetch(context.Context, film.FetchRequest) (film.FetchResponse, error) {
	s.calls++
	return s.resp, s.err
}

const renderedPage = `<html><div class="film_view_count">10</div></html>`

func TestFetchKeepsServerRenderedPage(t *testing.T) {
	t.Parallel()

	primary := &stubFetcher{resp: film.FetchResponse{StatusCode: http.StatusOK, Body: []byte(renderedPage)}}
	headless := &stubFetcher{}

	resp, err := New(primary, headless, nil, nil).Fetch(context.Background(), film.FetchRequest{URL: "u"})
	require.NoError(t, err)
	require.Equal(t, renderedPage, string(resp.Body))
	require.Zero(t, headless.calls)
}

func TestFetchPromotesShell(t *testing.T) {
	t.Parallel()

	primary := &stubFetcher{resp: film.FetchResponse{StatusCode: http.StatusOK, Body: []byte(`<div id="root"></div>`)}}
	headless := &stubFetcher{resp: film.FetchResponse{StatusCode: http.StatusOK, Body: []byte(renderedPage), UsedHeadless: true}}

	resp, err := New(primary, headless, nil, nil).Fetch(context.Background(), film.FetchRequest{URL: "u"})
	require.NoError(t, err)
	require.True(t, resp.UsedHeadless)
	require.Equal(t, 1, headless.calls)
}

func TestFetchErrors(t *testing.T) {
	t.Parallel()

	primary := &stubFetcher{err: errors.New("dial tcp: refused")}
	headless := &stubFetcher{}
	_, err := New(primary, headless, nil, nil).Fetch(context.Background(), film.FetchRequest{URL: "u"})
	require.ErrorContains(t, err, "refused")
	require.Zero(t, headless.calls)

	primary = &stubFetcher{resp: film.FetchResponse{StatusCode: http.StatusOK}}
	headless = &stubFetcher{err: errors.New("chrome not found")}
	_, err = New(primary, headless, nil, nil).Fetch(context.Background(), film.FetchRequest{URL: "u"})
	require.ErrorContains(t, err, "headless promotion")
}

func TestDetectorShouldPromote(t *testing.T) {
	t.Parallel()

	scripts := "<html><script>" + strings.Repeat("x", 400) + "</script><body></body></html>"

	tests := []struct {
		name string
		resp film.FetchResponse
		want bool
	}{
		{"not found", film.FetchResponse{StatusCode: http.StatusNotFound}, false},
		{"empty body", film.FetchResponse{StatusCode: http.StatusOK}, true},
		{"film markup", film.FetchResponse{StatusCode: http.StatusOK, Body: []byte(renderedPage)}, false},
		{"film markup beats spa marker", film.FetchResponse{
			StatusCode: http.StatusOK,
			Body:       []byte(`<div id="app"><img itemprop="image" src="x"></div>`),
		}, false},
		{"spa marker", film.FetchResponse{StatusCode: http.StatusOK, Body: []byte(`<div data-reactroot></div>`)}, true},
		{"script heavy", film.FetchResponse{StatusCode: http.StatusOK, Body: []byte(scripts)}, true},
		{"plain page", film.FetchResponse{StatusCode: http.StatusOK, Body: []byte("<html><p>gone</p></html>")}, false},
	}

	d := NewDetector(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, d.ShouldPromote(tt.resp))
		})
	}
}

func TestScriptHeavyUnclosedTag(t *testing.T) {
	t.Parallel()

	require.True(t, scriptHeavy([]byte("<p>a</p><script>never closed")))
	require.False(t, scriptHeavy([]byte("<p>"+strings.Repeat("text ", 50)+"</p><script></script>")))
}
