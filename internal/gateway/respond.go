package gateway

import (
	"html"
	"html/template"
	"net/http"
	"strconv"

	"github.com/IceFireDB/IceFireDB-Gateway/pkg/dag"
	"github.com/IceFireDB/IceFireDB-Gateway/pkg/monitor"
)

const (
	contentCSP = "default-src 'self' ipfs:; img-src 'self' data:; object-src 'none';"
	errorCSP   = "default-src 'none'; style-src 'unsafe-inline';"
)

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.}}</title>
<style>body{font-family:sans-serif;margin:3em;color:#333}</style>
</head>
<body>
<h1>{{.}}</h1>
</body>
</html>
`))

var listingPage = template.Must(template.New("listing").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>File listing for {{.Path}}</title>
</head>
<body>
<h1>File listing for {{.Path}}</h1>
{{- if .Up}}
<p><a href="..">..</a></p>
{{- end}}
{{- range .Names}}
<p><a href="./{{.}}">{{.}}</a></p>
{{- end}}
</body>
</html>
`))

func count(code int) {
	monitor.Responses.WithLabelValues(strconv.Itoa(code)).Inc()
}

func writeError(w http.ResponseWriter, code int, status string) {
	count(code)
	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Content-Security-Policy", errorCSP)
	w.WriteHeader(code)
	_ = errorPage.Execute(w, strconv.Itoa(code)+" "+status)
}

// writeRedirect points the host runtime at target with a meta refresh.
func writeRedirect(w http.ResponseWriter, target string) {
	count(http.StatusOK)
	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Content-Security-Policy", contentCSP)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<!DOCTYPE html><html><head><meta http-equiv="refresh" content="0;URL=` +
		html.EscapeString(target) + `"></head></html>`))
}

func writeListing(w http.ResponseWriter, reqPath string, links []dag.Link) {
	names := make([]string, 0, len(links))
	for _, l := range links {
		if l.Name != "" {
			names = append(names, l.Name)
		}
	}

	count(http.StatusOK)
	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Content-Security-Policy", contentCSP)
	w.WriteHeader(http.StatusOK)
	_ = listingPage.Execute(w, struct {
		Path  string
		Up    bool
		Names []string
	}{Path: reqPath, Up: reqPath != "/", Names: names})
}

func writeContent(w http.ResponseWriter, contentType string, body []byte, head bool) {
	count(http.StatusOK)
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Security-Policy", contentCSP)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if !head {
		_, _ = w.Write(body)
	}
}
