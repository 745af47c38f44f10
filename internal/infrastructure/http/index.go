package http

import "net/http"

// handleIndex renders the chat and upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Agentic RAG</title>
    <style>
        body { font-family: system-ui, sans-serif; max-width: 760px; margin: 2rem auto; padding: 0 1rem; }
        #messages { border: 1px solid #ddd; border-radius: 8px; padding: 1rem; min-height: 300px; overflow-y: auto; }
        .message { margin: .5rem 0; padding: .5rem .75rem; border-radius: 6px; white-space: pre-wrap; }
        .user { background: #eef4ff; }
        .assistant { background: #f4f4f4; }
        .meta { color: #777; font-size: .8rem; }
        .error { color: #b00020; }
        form { display: flex; gap: .5rem; margin-top: 1rem; }
        input[type=text] { flex: 1; padding: .5rem; }
    </style>
</head>
<body>
    <h1>Agentic RAG</h1>
    <form id="upload-form">
        <input type="file" id="files" name="file" accept=".pdf,.txt,.md" multiple>
        <button type="submit">Ingest</button>
        <span id="upload-status" class="meta"></span>
    </form>
    <div id="messages"></div>
    <form id="ask-form">
        <input type="text" id="question" placeholder="Ask about your documents..." autocomplete="off" required>
        <button type="submit">Ask</button>
    </form>
    <script>
        const messages = document.getElementById('messages');

        function add(cls, text, meta) {
            const div = document.createElement('div');
            div.className = 'message ' + cls;
            div.textContent = text;
            if (meta) {
                const m = document.createElement('div');
                m.className = 'meta';
                m.textContent = meta;
                div.appendChild(m);
            }
            messages.appendChild(div);
            messages.scrollTop = messages.scrollHeight;
        }

        document.getElementById('ask-form').addEventListener('submit', async (e) => {
            e.preventDefault();
            const input = document.getElementById('question');
            const question = input.value.trim();
            if (!question) return;
            input.value = '';
            add('user', question);
            try {
                const res = await fetch('/api/ask', {
                    method: 'POST',
                    headers: {'Content-Type': 'application/json'},
                    body: JSON.stringify({question}),
                });
                const data = await res.json();
                const meta = 'attempts: ' + data.attempts + ', validated: ' + data.validated +
                    (data.sources && data.sources.length ? ', sources: ' + data.sources.join(', ') : '');
                add(data.error ? 'assistant error' : 'assistant', data.answer, meta);
            } catch (err) {
                add('assistant error', 'Connection error');
            }
        });

        document.getElementById('upload-form').addEventListener('submit', async (e) => {
            e.preventDefault();
            const files = document.getElementById('files').files;
            const status = document.getElementById('upload-status');
            if (!files.length) return;
            const body = new FormData();
            for (const f of files) body.append('file', f);
            status.textContent = 'Ingesting...';
            const res = await fetch('/api/ingest', {method: 'POST', body});
            const data = await res.json();
            status.textContent = data.error ? data.error : data.documents + ' documents, ' + data.chunks + ' chunks';
        });
    </script>
</body>
</html>`
