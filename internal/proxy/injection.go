package proxy

import (
	"bytes"
	"strings"
)

const widgetMarker = `data-linkpulse-widget`

// WidgetScript renders the header badge pushed over the events socket and
// offers Reconnect Now while the connection is down.
const WidgetScript = `<script data-linkpulse-widget>
(function() {
  var protocol = window.location.protocol === 'https:' ? 'wss:' : 'ws:';
  var wsUrl = protocol + '//' + window.location.host + '/__linkpulse/events';
  var retryDelay = 1000;
  var maxRetryDelay = 5000;
  var tones = { green: '#16a34a', amber: '#d97706', red: '#dc2626', blue: '#2563eb' };
  var socket = null;

  var root = document.createElement('div');
  root.id = 'linkpulse-status';
  root.style.cssText = 'position:fixed;top:12px;right:12px;z-index:2147483647;font:12px system-ui,sans-serif;background:#fff;border:1px solid #e5e7eb;border-radius:9999px;padding:4px 10px;display:flex;gap:6px;align-items:center;box-shadow:0 1px 2px rgba(0,0,0,.08)';
  var dot = document.createElement('span');
  dot.style.cssText = 'width:8px;height:8px;border-radius:9999px;display:inline-block';
  var label = document.createElement('span');
  var latency = document.createElement('span');
  latency.style.color = '#6b7280';
  var button = document.createElement('button');
  button.textContent = 'Reconnect Now';
  button.style.cssText = 'display:none;border:0;background:#dc2626;color:#fff;border-radius:9999px;padding:2px 8px;cursor:pointer';
  button.onclick = function() {
    if (socket && socket.readyState === WebSocket.OPEN) {
      socket.send(JSON.stringify({ action: 'reconnect' }));
    } else {
      fetch('/api/connection/reconnect', { method: 'POST' });
    }
  };
  root.appendChild(dot);
  root.appendChild(label);
  root.appendChild(latency);
  root.appendChild(button);

  function mount() {
    if (!document.getElementById('linkpulse-status')) {
      document.body.appendChild(root);
    }
  }

  function render(payload) {
    var header = payload.view.header;
    dot.style.background = tones[header.tone] || '#6b7280';
    dot.style.opacity = header.animate ? '0.6' : '1';
    label.textContent = header.label;
    latency.textContent = header.latency || '';
    button.style.display = header.show_reconnect ? 'inline-block' : 'none';
    root.title = header.details.map(function(row) { return row.label + ': ' + row.value; }).join('\n');
  }

  function connect() {
    socket = new WebSocket(wsUrl);

    socket.onopen = function() {
      retryDelay = 1000;
    };

    socket.onmessage = function(event) {
      try {
        render(JSON.parse(event.data));
      } catch (err) {
        console.log('[linkpulse] bad status payload:', err);
      }
    };

    socket.onclose = function() {
      setTimeout(function() {
        retryDelay = Math.min(retryDelay * 1.5, maxRetryDelay);
        connect();
      }, retryDelay);
    };

    socket.onerror = function() {
      socket.close();
    };
  }

  if (document.readyState === 'loading') {
    document.addEventListener('DOMContentLoaded', mount);
  } else {
    mount();
  }
  connect();
})();
</script>`

// InjectWidget places WidgetScript before </head>, falling back to </body>
// and then to the end of the document. Pages that already carry the widget
// are returned unchanged.
func InjectWidget(content []byte) []byte {
	if bytes.Contains(content, []byte(widgetMarker)) {
		return content
	}

	script := []byte(WidgetScript)
	lower := lowerASCII(content)

	for _, tag := range [][]byte{[]byte("</head>"), []byte("</body>")} {
		idx := bytes.Index(lower, tag)
		if idx == -1 {
			continue
		}
		result := make([]byte, len(content)+len(script))
		copy(result, content[:idx])
		copy(result[idx:], script)
		copy(result[idx+len(script):], content[idx:])
		return result
	}

	return append(content, script...)
}

// lowerASCII lowercases A-Z only, so offsets in the result match content
// byte for byte whatever the page encoding is.
func lowerASCII(content []byte) []byte {
	out := make([]byte, len(content))
	for i, c := range content {
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}

func IsHTMLResponse(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html")
}
