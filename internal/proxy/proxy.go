package proxy

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"

	"github.com/mbvlabs/linkpulse/internal/logger"
)

// Server is a reverse proxy in front of the message-triage dashboard. HTML pages
// get the connection widget injected so every page shows the live status.
type Server struct {
	target *url.URL
	proxy  *httputil.ReverseProxy
	log    logger.Logger
}

func NewServer(targetURL string, log logger.Logger) (*Server, error) {
	target, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("parse dashboard url: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("dashboard url %q must be absolute", targetURL)
	}
	if log == nil {
		log = logger.Noop()
	}

	proxy := httputil.NewSingleHostReverseProxy(target)

	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.Host = target.Host
	}

	ps := &Server{
		target: target,
		proxy:  proxy,
		log:    log,
	}

	proxy.ModifyResponse = ps.modifyResponse
	proxy.ErrorHandler = ps.handleError

	return ps, nil
}

func (ps *Server) Target() string {
	return ps.target.String()
}

func (ps *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	ps.log.Warn("dashboard unreachable for %s: %v", r.URL.Path, err)
	w.WriteHeader(http.StatusBadGateway)
}

func (ps *Server) modifyResponse(resp *http.Response) error {
	if isBodylessResponse(resp) {
		return nil
	}

	contentType := resp.Header.Get("Content-Type")
	if !IsHTMLResponse(contentType) {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return err
	}

	encoding := strings.ToLower(resp.Header.Get("Content-Encoding"))
	var decompressed []byte

	switch encoding {
	case "gzip":
		gr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return err
		}
		decompressed, err = io.ReadAll(gr)
		gr.Close()
		if err != nil {
			return err
		}
	case "br":
		decompressed, err = io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err != nil {
			return err
		}
	case "":
		decompressed = body
	default:
		// Unknown encoding, pass the page through untouched.
		resp.Body = io.NopCloser(bytes.NewReader(body))
		return nil
	}

	modified := InjectWidget(decompressed)

	var finalBody []byte
	switch encoding {
	case "gzip":
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		gw.Write(modified)
		gw.Close()
		finalBody = buf.Bytes()
	case "br":
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		bw.Write(modified)
		bw.Close()
		finalBody = buf.Bytes()
	default:
		finalBody = modified
	}

	resp.Body = io.NopCloser(bytes.NewReader(finalBody))
	resp.ContentLength = int64(len(finalBody))
	resp.Header.Set("Content-Length", strconv.Itoa(len(finalBody)))

	return nil
}

func isBodylessResponse(resp *http.Response) bool {
	if resp == nil {
		return false
	}
	if resp.Request != nil && resp.Request.Method == http.MethodHead {
		return true
	}
	return resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotModified
}

func (ps *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ps.proxy.ServeHTTP(w, r)
}

// Handler routes requests matched by isAPI to api and proxies the rest to
// the dashboard.
func (ps *Server) Handler(api http.Handler, isAPI func(*http.Request) bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAPI(r) {
			api.ServeHTTP(w, r)
			return
		}
		ps.proxy.ServeHTTP(w, r)
	})
}
