package webmonitor

const indexHTML = `
<!DOCTYPE html>
<html>
<head>
    <title>Zoning Monitor</title>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: sans-serif; background: #111; color: #eee; margin: 20px; }
        table { border-collapse: collapse; margin-top: 12px; }
        th, td { border: 1px solid #444; padding: 4px 10px; text-align: right; }
        th:first-child, td:first-child { text-align: left; }
        .badge { padding: 2px 8px; border-radius: 4px; background: #333; }
        .entered { color: #4c4; }
        .exited { color: #c84; }
    </style>
</head>
<body>
    <h2>Zoning Monitor <span class="badge" id="status">Waiting for frames...</span></h2>
    <table>
        <thead><tr><th>Zone</th><th>Class</th><th>Present</th><th>Entered</th><th>Exited</th></tr></thead>
        <tbody id="counts"></tbody>
    </table>
    <script>
        const tbody = document.getElementById('counts');
        const status = document.getElementById('status');

        function render(ev) {
            status.textContent = 'Frame ' + ev.frame_number;
            const rows = [];
            const zoning = ev.zoning || {};
            for (const zone of Object.keys(zoning).sort()) {
                if (zone.endsWith('_ids')) continue;
                const rec = zoning[zone];
                const entered = rec.objects_entered || {};
                const exited = rec.objects_exited || {};
                for (const key of Object.keys(rec).sort()) {
                    if (!key.endsWith('_count')) continue;
                    const cls = key.slice(0, -'_count'.length);
                    rows.push('<tr><td>' + zone + '</td><td>' + cls + '</td><td>' + rec[key] +
                        '</td><td class="entered">' + (entered[key] ?? '') +
                        '</td><td class="exited">' + (exited[key] ?? '') + '</td></tr>');
                }
            }
            tbody.innerHTML = rows.join('');
        }

        const source = new EventSource('/api/zoning/stream');
        source.onmessage = (msg) => render(JSON.parse(msg.data));
        source.onerror = () => { status.textContent = 'Disconnected'; };
    </script>
</body>
</html>
`
