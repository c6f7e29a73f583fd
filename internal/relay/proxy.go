package relay

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"dayvpn-panel/internal/netutil"
)

// Proxy forwards browser requests to the upstream bot API, attaching only the
// incoming Authorization header. POST form fields are re-encoded as
// multipart/form-data; the upstream status code and body come back verbatim.
type Proxy struct {
	upstream string
	mount    string
	client   *http.Client
}

// NewProxy creates a proxy re-rooting paths under mount onto the upstream base.
func NewProxy(upstream, mount string) *Proxy {
	return &Proxy{
		upstream: netutil.NormalizeUpstreamBaseURL(upstream),
		mount:    strings.TrimRight(mount, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, p.mount)
	target := p.upstream + rel
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	var bodyReader io.Reader
	contentType := ""
	if r.Method == http.MethodPost {
		// Re-encode submitted form fields as multipart, whatever the
		// original encoding was.
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			_ = r.ParseForm()
		}
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		for key, values := range r.PostForm {
			for _, v := range values {
				_ = mw.WriteField(key, v)
			}
		}
		if err := mw.Close(); err != nil {
			proxyErr(w, err)
			return
		}
		bodyReader = &body
		contentType = mw.FormDataContentType()
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, bodyReader)
	if err != nil {
		proxyErr(w, err)
		return
	}
	// Forward only the Authorization header; everything else is dropped.
	if auth := r.Header.Get("Authorization"); auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		proxyErr(w, err)
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

func proxyErr(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "relay transport error",
		"message": err.Error(),
	})
}
