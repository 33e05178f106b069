package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

var ErrNoDownloadLink = errors.New("no csv download link found")

const userAgent = "Mozilla/5.0"

// Fetcher downloads the supplier export. The portal page at URL either shows
// the download link directly or a login form that has to be submitted first.
type Fetcher struct {
	URL      string
	Email    string
	Password string
	Client   *http.Client
}

func NewFetcher(pageURL, email, password string) *Fetcher {
	jar, _ := cookiejar.New(nil)
	return &Fetcher{
		URL:      pageURL,
		Email:    email,
		Password: password,
		Client:   &http.Client{Timeout: 60 * time.Second, Jar: jar},
	}
}

// Download stores the feed under dir and returns the written path.
func (f *Fetcher) Download(ctx context.Context, dir string) (string, error) {
	doc, pageURL, err := f.get(ctx, f.URL)
	if err != nil {
		return "", err
	}

	if form := findLoginForm(doc); form != nil {
		log.Info().Str("url", pageURL.String()).Msg("login form found, signing in")
		doc, pageURL, err = f.submitLogin(ctx, pageURL, form)
		if err != nil {
			return "", err
		}
	}

	href, ok := findDownloadLink(doc)
	if !ok {
		return "", fmt.Errorf("%w on %s", ErrNoDownloadLink, pageURL)
	}
	link, err := pageURL.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid download link %q: %w", href, err)
	}

	return f.save(ctx, link, dir)
}

func (f *Fetcher) get(ctx context.Context, target string) (*goquery.Document, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request for %s: %w", target, err)
	}
	return f.page(req)
}

func (f *Fetcher) page(req *http.Request) (*goquery.Document, *url.URL, error) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("portal status %d for %s", resp.StatusCode, req.URL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", req.URL, err)
	}
	// resp.Request is the final request after redirects.
	return doc, resp.Request.URL, nil
}

func (f *Fetcher) submitLogin(ctx context.Context, pageURL *url.URL, form *goquery.Selection) (*goquery.Document, *url.URL, error) {
	action, _ := form.Attr("action")
	target, err := pageURL.Parse(action)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid login form action %q: %w", action, err)
	}

	values := url.Values{}
	form.Find("input[name]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		value, _ := s.Attr("value")
		values.Set(name, value)
	})
	if name := loginFieldName(form); name != "" {
		values.Set(name, f.Email)
	}
	if name, ok := form.Find("input[type=password]").First().Attr("name"); ok {
		values.Set(name, f.Password)
	}

	method := strings.ToUpper(strings.TrimSpace(form.AttrOr("method", http.MethodPost)))
	var req *http.Request
	if method == http.MethodGet {
		target.RawQuery = values.Encode()
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, target.String(), strings.NewReader(values.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create login request: %w", err)
	}

	doc, finalURL, err := f.page(req)
	if err != nil {
		return nil, nil, fmt.Errorf("login: %w", err)
	}
	if findLoginForm(doc) != nil {
		return nil, nil, fmt.Errorf("login rejected by %s", target)
	}
	return doc, finalURL, nil
}

func (f *Fetcher) save(ctx context.Context, link *url.URL, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request for %s: %w", link, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download status %d for %s", resp.StatusCode, link)
	}

	dest := filepath.Join(dir, downloadName(resp, link))
	tmp, err := os.CreateTemp(dir, ".feed-*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("move feed into place: %w", err)
	}

	log.Info().Str("path", dest).Int64("bytes", n).Msg("feed downloaded")
	return dest, nil
}

// findLoginForm returns the first form carrying a password input.
func findLoginForm(doc *goquery.Document) *goquery.Selection {
	form := doc.Find("form").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("input[type=password]").Length() > 0
	}).First()
	if form.Length() == 0 {
		return nil
	}
	return form
}

func loginFieldName(form *goquery.Selection) string {
	if name, ok := form.Find("input[type=email]").First().Attr("name"); ok {
		return name
	}
	var found string
	form.Find("input[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name := s.AttrOr("name", "")
		lower := strings.ToLower(name)
		if strings.Contains(lower, "email") || strings.Contains(lower, "user") || strings.Contains(lower, "login") {
			found = name
			return false
		}
		return true
	})
	return found
}

// findDownloadLink picks the first anchor pointing at a .csv file, falling
// back to the first anchor with a download attribute.
func findDownloadLink(doc *goquery.Document) (string, bool) {
	var href string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		h := strings.TrimSpace(s.AttrOr("href", ""))
		if u, err := url.Parse(h); err == nil && strings.HasSuffix(strings.ToLower(u.Path), ".csv") {
			href = h
			return false
		}
		return true
	})
	if href != "" {
		return href, true
	}
	if s := doc.Find("a[href][download]").First(); s.Length() > 0 {
		return strings.TrimSpace(s.AttrOr("href", "")), true
	}
	return "", false
}

// downloadName prefers the Content-Disposition filename, then the link path.
// Either way the result ends in .csv so FindCSV can discover it.
func downloadName(resp *http.Response, link *url.URL) string {
	name := path.Base(link.Path)
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		if base := filepath.Base(params["filename"]); base != "." && base != "/" && base != "" {
			name = base
		}
	}
	if name == "." || name == "/" || name == "" {
		name = "products"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".csv") {
		name = fmt.Sprintf("%s-%s.csv", strings.TrimSuffix(name, path.Ext(name)), time.Now().UTC().Format("20060102-150405"))
	}
	return name
}
