package headless

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/microcosm-cc/bluemonday"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"

	"github.com/GriffinCanCode/ProfileDeck/backend/internal/providers/proxycheck"
)

// Page is the result of a completed load
type Page struct {
	URL         string
	Status      int
	ContentType string
	Title       string
	Text        string
}

var textPolicy = bluemonday.StrictPolicy()

// fetch loads target through the partition and decodes the document
func (v *View) fetch(ctx context.Context, target string) (*Page, error) {
	req, err := http.NewRequestWithContext(withViewID(ctx, v.id), http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", target, err)
	}
	req.Header.Set("User-Agent", v.engine.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, zstd")

	// Plain http goes to the proxy as a regular request, not a tunnel
	if req.URL.Scheme == "http" && v.partition.Proxy() != nil {
		if creds, ok := v.engine.credentials(v.id); ok {
			req.Header.Set("Proxy-Authorization", proxycheck.BasicAuth(creds.Username, creds.Password))
		}
	}

	resp, err := v.partition.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp, v.engine.cfg.MaxBodySize)
	if err != nil {
		return nil, err
	}

	page := &Page{
		URL:         resp.Request.URL.String(),
		Status:      resp.StatusCode,
		ContentType: contentType(resp.Header.Get("Content-Type"), body),
	}
	page.Title, page.Text = extractDocument(page.ContentType, resp.Header.Get("Content-Type"), body, resp.Request.URL)
	return page, nil
}

// decodeBody reads at most limit bytes and undoes Content-Encoding
func decodeBody(resp *http.Response, limit int64) ([]byte, error) {
	var reader io.Reader = resp.Body

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	case "zstd":
		zr, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("zstd body: %w", err)
		}
		defer zr.Close()
		reader = zr
	}

	body, err := io.ReadAll(io.LimitReader(reader, limit))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// contentType prefers the declared media type and sniffs when it is missing
// or generic
func contentType(declared string, body []byte) string {
	if media, _, err := mime.ParseMediaType(declared); err == nil && media != "application/octet-stream" {
		return media
	}
	media, _, _ := mime.ParseMediaType(mimetype.Detect(body).String())
	return media
}

// extractDocument returns the title and visible text of a document. Non-HTML
// documents are titled after their file name.
func extractDocument(media, declared string, body []byte, u *url.URL) (string, string) {
	if media != "text/html" && media != "application/xhtml+xml" {
		title := path.Base(u.Path)
		if title == "/" || title == "." {
			title = u.Host
		}
		if strings.HasPrefix(media, "text/") {
			return title, strings.TrimSpace(string(body))
		}
		return title, ""
	}

	doc, err := goquery.NewDocumentFromReader(toUTF8(body, declared))
	if err != nil {
		return u.Host, ""
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = u.Host
	}

	doc.Find("script, style, noscript, template").Remove()
	html, err := doc.Find("body").Html()
	if err != nil {
		return title, ""
	}
	text := strings.Join(strings.Fields(textPolicy.Sanitize(html)), " ")
	return title, text
}

// toUTF8 converts body to UTF-8 using the declared or sniffed charset,
// falling back to statistical detection
func toUTF8(body []byte, declared string) io.Reader {
	label := ""
	if _, name, certain := charset.DetermineEncoding(body, declared); certain {
		label = name
	} else if result, err := chardet.NewHtmlDetector().DetectBest(body); err == nil && result.Confidence >= 50 {
		label = result.Charset
	}

	if label == "" {
		return bytes.NewReader(body)
	}
	reader, err := charset.NewReaderLabel(label, bytes.NewReader(body))
	if err != nil {
		return bytes.NewReader(body)
	}
	return reader
}

// internalPage resolves about: and data: URLs without touching the network
func internalPage(target string) (*Page, error) {
	lower := strings.ToLower(target)
	if strings.HasPrefix(lower, "about:") {
		return &Page{URL: target, Status: http.StatusOK, ContentType: "text/html"}, nil
	}

	media, data, err := parseDataURL(target)
	if err != nil {
		return nil, err
	}
	u := &url.URL{Scheme: "data"}
	title, text := extractDocument(media, media, data, u)
	if title == "." {
		title = ""
	}
	return &Page{URL: target, Status: http.StatusOK, ContentType: media, Title: title, Text: text}, nil
}

// parseDataURL decodes data:[<media type>][;base64],<payload>
func parseDataURL(target string) (string, []byte, error) {
	rest := target[len("data:"):]
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data url")
	}

	isBase64 := false
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		isBase64 = true
		meta = meta[:len(meta)-len(";base64")]
	}
	media := "text/plain"
	if meta != "" {
		if parsed, _, err := mime.ParseMediaType(meta); err == nil {
			media = parsed
		}
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, fmt.Errorf("data url payload: %w", err)
		}
		return media, data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("data url payload: %w", err)
	}
	return media, []byte(data), nil
}
