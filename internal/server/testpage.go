// Package server serves the built-in editor page used to exercise the
// synchronization protocol from a browser.
package server

import (
	"fmt"
	"log"
	"net/http"
)

// TestPageHandler serves an HTML page with a shared text editor. It connects
// to the WebSocket endpoint, displays the live user count and document
// version, and sends content_update envelopes as the text changes.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	html := `<!DOCTYPE html>
<html>
<head>
    <title>Coscribe Shared Editor</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #editor {
            width: 100%;
            height: 300px;
            padding: 10px;
            font-family: monospace;
            box-sizing: border-box;
        }
        .status {
            margin: 10px 0;
            padding: 5px;
            border-radius: 3px;
        }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
        #meta { color: gray; margin: 10px 0; }
    </style>
</head>
<body>
    <h1>Coscribe Shared Editor</h1>

    <div id="status" class="status disconnected">Disconnected</div>
    <div id="meta">version: &ndash; &middot; users: &ndash;</div>

    <textarea id="editor" placeholder="Start typing; everyone sees your edits..." disabled></textarea>

    <script>
        let ws = null;
        let version = 0;
        let users = 0;
        const editor = document.getElementById('editor');
        const statusDiv = document.getElementById('status');
        const metaDiv = document.getElementById('meta');

        function updateMeta() {
            metaDiv.textContent = 'version: ' + version + ' · users: ' + users;
        }

        function updateStatus(connected) {
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            editor.disabled = !connected;
        }

        function connect() {
            ws = new WebSocket('ws://' + location.host + '/ws');

            ws.onopen = function() {
                updateStatus(true);
            };

            ws.onmessage = function(event) {
                const msg = JSON.parse(event.data);
                if (msg.type === 'content_update') {
                    version = msg.payload.version;
                    if (document.activeElement !== editor) {
                        editor.value = msg.payload.content;
                    } else if (editor.value !== msg.payload.content) {
                        editor.value = msg.payload.content;
                    }
                } else if (msg.type === 'user_count_update') {
                    users = msg.payload.count;
                }
                updateMeta();
            };

            ws.onclose = function() {
                updateStatus(false);
                ws = null;
                setTimeout(connect, 1000);
            };
        }

        editor.addEventListener('input', function() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({
                    type: 'content_update',
                    payload: { content: editor.value }
                }));
            }
        });

        connect();
    </script>
</body>
</html>`
	if _, err := fmt.Fprint(w, html); err != nil {
		log.Printf("Error writing HTML response: %v", err)
	}
}
