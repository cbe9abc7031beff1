package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/film-info-crawler/internal/tags"
)

const filmURL = "https://xonline.example/en/watch-caribpr-12-34"

const filmPage = `<!DOCTYPE html>
<html>
<head><title>Summer Story Vol.2</title></head>
<body>
  <div class="film_info">
    <img itemprop="image" src="https://cdn.example/caribpr-12-34.jpg" title="cover">
    <div class="film_view_count" data-x="1">1523</div>
    <ul>
      <li><span>Models:</span> <a href="/m/1">Jane Doe</a>, <a href="/m/2">Mary Roe</a></li>
      <li>Genre: <a href="/g/1">Amateur</a> <a href="/g/2">Outdoor</a></li>
    </ul>
  </div>
</body>
</html>`

func newExtractor() *Extractor {
	return New(tags.New(map[string]string{"Amateur": "素人"}))
}

func TestExtractFullPage(t *testing.T) {
	t.Parallel()

	fields, ok, err := newExtractor().Extract(filmURL, []byte(filmPage))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "CARIBPR-12-34", fields.Code)
	require.NotNil(t, fields.SearchCode)
	require.Equal(t, "12_34", *fields.SearchCode)
	require.Equal(t, 1523, fields.Count)
	require.Equal(t, "Jane Doe, Mary Roe", fields.Models)
	require.Equal(t, "Summer Story Vol.2", fields.Title)
	require.Equal(t, "https://cdn.example/caribpr-12-34.jpg", fields.ImgURL)
	require.Equal(t, []string{"素人", "Outdoor"}, fields.Tags)
}

func TestExtractModelsInlineLabel(t *testing.T) {
	t.Parallel()

	page := strings.Replace(filmPage,
		`<li><span>Models:</span> <a href="/m/1">Jane Doe</a>, <a href="/m/2">Mary Roe</a></li>`,
		`<p>Models: Solo Star</p>`, 1)
	fields, ok, err := newExtractor().Extract(filmURL, []byte(page))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Solo Star", fields.Models)
}

func TestExtractEmptyModels(t *testing.T) {
	t.Parallel()

	page := strings.Replace(filmPage,
		`<li><span>Models:</span> <a href="/m/1">Jane Doe</a>, <a href="/m/2">Mary Roe</a></li>`,
		`<li><span>Models:</span></li>`, 1)
	fields, ok, err := newExtractor().Extract(filmURL, []byte(page))
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, fields.Models)
}

func TestExtractModelsStopsAtNextLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		models string
		want   string
	}{
		{
			name:   "next label directly after",
			models: `<div class="meta"><span>Models:</span><span>Studio:</span> <a>Caribbeancom</a></div>`,
			want:   "",
		},
		{
			name:   "names before next label",
			models: `<div class="meta"><span>Models:</span> <a>Jane Doe</a> <span>Studio:</span> <a>Caribbeancom</a></div>`,
			want:   "Jane Doe",
		},
		{
			name:   "bare text names",
			models: `<div class="meta"><b>Models:</b> Solo Star</div>`,
			want:   "Solo Star",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			page := strings.Replace(filmPage,
				`<li><span>Models:</span> <a href="/m/1">Jane Doe</a>, <a href="/m/2">Mary Roe</a></li>`,
				tt.models, 1)
			fields, ok, err := newExtractor().Extract(filmURL, []byte(page))
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, tt.want, fields.Models)
		})
	}
}

func TestExtractNoResult(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		page []byte
	}{
		{name: "nil page", url: filmURL, page: nil},
		{name: "url without code", url: "https://xonline.example/en/models/jane", page: []byte(filmPage)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, ok, err := newExtractor().Extract(tt.url, tt.page)
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestExtractMalformedFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		old     string
		new     string
		wantErr string
	}{
		{name: "missing count", old: `<div class="film_view_count" data-x="1">1523</div>`, new: "", wantErr: "count"},
		{name: "empty count", old: `>1523</div>`, new: `></div>`, wantErr: "count"},
		{name: "missing models", old: `<span>Models:</span>`, new: `<span>Cast</span>`, wantErr: "models"},
		{name: "missing title", old: `<title>Summer Story Vol.2</title>`, new: "", wantErr: "title"},
		{name: "missing image", old: `itemprop="image"`, new: `itemprop="thumb"`, wantErr: "img_url"},
		{name: "missing genre", old: `Genre:`, new: `Tags:`, wantErr: "tags"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			page := strings.Replace(filmPage, tt.old, tt.new, 1)
			_, ok, err := newExtractor().Extract(filmURL, []byte(page))
			require.False(t, ok)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrMalformedPage))
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCodeFromURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url    string
		want   string
		wantOK bool
	}{
		{url: "https://x.example/watch-tokyo-hot-n1234", want: "TOKYO-HOT-N1234", wantOK: true},
		{url: "https://x.example/watch-carib-123-456", want: "CARIB-123-456", wantOK: true},
		{url: "https://x.example/watch-abp123", want: "ABP123", wantOK: true},
		{url: "https://x.example/watch-", wantOK: false},
		{url: "https://x.example/film/abp-123", wantOK: false},
	}
	for _, tt := range tests {
		got, ok := CodeFromURL(tt.url)
		require.Equal(t, tt.wantOK, ok, tt.url)
		if ok {
			require.Equal(t, tt.want, got, tt.url)
		}
	}
}
