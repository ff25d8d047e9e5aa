package api

import "net/http"

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>docqa</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; display: flex; align-items: center; justify-content: center; }
  .card { max-width: 640px; width: 90%; background: #1e293b; border-radius: 12px; padding: 2.5rem; box-shadow: 0 25px 50px rgba(0,0,0,0.4); }
  h1 { font-size: 1.75rem; margin-bottom: 0.5rem; color: #f8fafc; }
  .subtitle { color: #94a3b8; margin-bottom: 1.75rem; }
  .section { margin-bottom: 1.5rem; }
  .section-title { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.1em; color: #64748b; margin-bottom: 0.5rem; }
  pre { background: #0f172a; border: 1px solid #334155; border-radius: 8px; padding: 1rem; overflow-x: auto; font-size: 0.85rem; line-height: 1.5; color: #e2e8f0; }
  code, .endpoint { font-family: "SF Mono", "Fira Code", Menlo, monospace; }
  .endpoint { font-size: 0.9rem; color: #a5b4fc; }
  p { margin-bottom: 0.25rem; }
</style>
</head>
<body>
<div class="card">
  <h1>docqa</h1>
  <p class="subtitle">Index a document, then ask questions answered from its most relevant passages.</p>

  <div class="section">
    <div class="section-title">Try it</div>
    <pre><code>curl -F file=@policy.pdf localhost:8080/api/documents/upload
curl -d '{"query":"What is the grace period?"}' localhost:8080/api/query</code></pre>
  </div>

  <div class="section">
    <div class="section-title">Endpoints</div>
    <p><span class="endpoint">POST /api/documents</span> index raw text</p>
    <p><span class="endpoint">POST /api/documents/upload</span> index a txt, md, html, pdf or docx file</p>
    <p><span class="endpoint">POST /api/query</span> ask a question</p>
    <p><span class="endpoint">GET /api/status</span> index status</p>
    <p><span class="endpoint">/mcp</span> MCP Streamable HTTP</p>
    <p><span class="endpoint">GET /health</span> health check</p>
  </div>
</div>
</body>
</html>`

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(landingHTML))
	}
}
