package http

import (
	"encoding/json"
	"fmt"
	"homehub/internal/domain/model"
	"homehub/internal/ports"
	"net/http"
)

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, model.CatalogFile{Devices: s.hub.Catalog().Specs()})
	case http.MethodPost:
		if s.catalogs == nil {
			http.Error(w, "Catalog editing disabled", http.StatusNotImplemented)
			return
		}
		var file model.CatalogFile
		if err := json.NewDecoder(r.Body).Decode(&file); err != nil {
			writeError(w, fmt.Errorf("%w: invalid JSON", ports.ErrMalformedMessage))
			return
		}
		if err := s.catalogs.Save(r.Context(), &file); err != nil {
			writeError(w, err)
			return
		}
		s.log.Info().Int("devices", len(file.Devices)).Msg("catalog saved")
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "restartRequired": true})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, adminPage)
}

const adminPage = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Home Hub</title>
    <style>
        body { font-family: sans-serif; max-width: 1200px; margin: 40px auto; padding: 20px; line-height: 1.6; background-color: #f4f4f9; }
        .tabs { display: flex; border-bottom: 2px solid #007bff; margin-bottom: 20px; }
        .tab { padding: 10px 20px; cursor: pointer; border: 1px solid transparent; border-bottom: none; }
        .tab.active { border-color: #007bff; border-radius: 4px 4px 0 0; background: white; font-weight: bold; color: #007bff; }
        .content { display: none; padding: 20px; background: white; border: 1px solid #ccc; border-radius: 0 0 4px 4px; }
        .content.active { display: block; }
        textarea, input[type="text"] { width: 100%; padding: 8px; margin-bottom: 10px; box-sizing: border-box; border: 1px solid #ccc; border-radius: 4px; font-family: monospace; }
        textarea { height: 360px; }
        button { padding: 10px 15px; background: #007bff; color: white; border: none; cursor: pointer; border-radius: 4px; }
        button:hover { background: #0056b3; }
        button.off { background: #6c757d; }
        table { width: 100%; border-collapse: collapse; margin-bottom: 20px; }
        th, td { border: 1px solid #ddd; padding: 12px; text-align: left; }
        th { background-color: #f8f9fa; }
        #status { margin-top: 20px; padding: 10px; border-radius: 4px; display: none; position: fixed; bottom: 20px; right: 20px; z-index: 1000; }
        .success { background: #d4edda; color: #155724; border: 1px solid #c3e6cb; }
        .error { background: #f8d7da; color: #721c24; border: 1px solid #f5c6cb; }
    </style>
</head>
<body>
    <h1>Home Hub</h1>
    <div class="tabs">
        <div class="tab active" onclick="showTab('devices')">Devices</div>
        <div class="tab" onclick="showTab('command')">Command</div>
        <div class="tab" onclick="showTab('catalog')">Catalog</div>
    </div>

    <div id="devices" class="content active">
        <table id="devicesTable">
            <thead>
                <tr><th>ID</th><th>Name</th><th>Category</th><th>State</th><th>Last change</th><th>Actions</th></tr>
            </thead>
            <tbody></tbody>
        </table>
        <button onclick="setAll(false)" class="off">Turn everything off</button>
        <button onclick="setAll(true)">Turn everything on</button>
    </div>

    <div id="command" class="content">
        <form id="commandForm">
            <input type="text" id="command_text" placeholder="turn on the bedroom light">
            <button type="submit">Send</button>
        </form>
        <p id="command_reply"></p>
    </div>

    <div id="catalog" class="content">
        <p>Device catalog. Changes apply after a restart.</p>
        <textarea id="catalog_json"></textarea>
        <button onclick="saveCatalog()">Save Catalog</button>
    </div>

    <div id="status"></div>

    <script>
        let devices = {};

        function showTab(id) {
            document.querySelectorAll('.tab').forEach(t => t.classList.remove('active'));
            document.querySelectorAll('.content').forEach(c => c.classList.remove('active'));
            const tab = document.querySelector('.tab[onclick="showTab(\''+id+'\')"]');
            if (tab) tab.classList.add('active');
            document.getElementById(id).classList.add('active');
        }

        function connect() {
            const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
            ws.onmessage = (e) => {
                const msg = JSON.parse(e.data);
                if (msg.type === 'initial_state') {
                    devices = msg.devices;
                } else if (msg.type === 'device_update' && devices[msg.deviceId]) {
                    devices[msg.deviceId].state = msg.state;
                    devices[msg.deviceId].lastUpdated = msg.timestamp;
                    devices[msg.deviceId].lastControlledBy = msg.source;
                } else if (msg.type === 'error') {
                    showStatus('Error: ' + msg.error);
                }
                renderDevices();
            };
            ws.onclose = () => setTimeout(connect, 2000);
            window.hubSocket = ws;
        }

        function renderDevices() {
            const tbody = document.querySelector('#devicesTable tbody');
            tbody.innerHTML = '';
            Object.values(devices).forEach(d => {
                const tr = document.createElement('tr');
                tr.innerHTML =
                    '<td>' + d.deviceId + '</td>' +
                    '<td>' + d.name + '</td>' +
                    '<td>' + d.category + '</td>' +
                    '<td>' + (d.state ? 'ON' : 'OFF') + '</td>' +
                    '<td>' + new Date(d.lastUpdated).toLocaleTimeString() + ' (' + d.lastControlledBy + ')</td>' +
                    '<td><button class="' + (d.state ? 'off' : '') + '" onclick="toggle(\'' + d.deviceId + '\')">' +
                        (d.state ? 'Turn off' : 'Turn on') + '</button></td>';
                tbody.appendChild(tr);
            });
        }

        function toggle(id) {
            window.hubSocket.send(JSON.stringify({ deviceId: id, action: 'toggle' }));
        }

        async function setAll(on) {
            const res = await fetch('/api/devices/all', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify({ state: on })
            });
            if (!res.ok) showStatus('Error updating devices');
        }

        document.getElementById('commandForm').onsubmit = async (e) => {
            e.preventDefault();
            const res = await fetch('/api/command', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify({ text: document.getElementById('command_text').value })
            });
            const out = await res.json();
            document.getElementById('command_reply').textContent = out.response_text || out.error || '';
        };

        async function loadCatalog() {
            const res = await fetch('/admin/catalog');
            const catalog = await res.json();
            document.getElementById('catalog_json').value = JSON.stringify(catalog, null, 2);
        }

        async function saveCatalog() {
            let body;
            try {
                body = JSON.parse(document.getElementById('catalog_json').value);
            } catch (e) {
                alert('Invalid catalog JSON: ' + e.message);
                return;
            }
            const res = await fetch('/admin/catalog', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify(body)
            });
            if (res.ok) {
                showStatus('Catalog saved. Restart the hub to apply it.');
            } else {
                const out = await res.json().catch(() => ({}));
                showStatus('Error saving catalog: ' + (out.error || res.status));
            }
        }

        function showStatus(msg) {
            const s = document.getElementById('status');
            s.textContent = msg;
            s.style.display = 'block';
            s.className = msg.includes('Error') ? 'error' : 'success';
            setTimeout(() => { s.style.display = 'none'; }, 3000);
        }

        connect();
        loadCatalog();
    </script>
</body>
</html>
`
