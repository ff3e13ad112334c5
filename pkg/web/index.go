package web

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>face-emotion</title>
<style>
body { font-family: sans-serif; margin: 2em; }
#stage { position: relative; width: 640px; height: 480px; border: 1px solid #ccc; }
#stage img { position: absolute; left: 0; top: 0; }
</style>
</head>
<body>
<button id="toggle">Start</button>
<span id="status"></span>
<div id="stage"><img id="canvas" alt=""></div>
<script>
const btn = document.getElementById('toggle');
const status = document.getElementById('status');
const img = document.getElementById('canvas');

function show(s) {
  btn.textContent = s.enabled ? 'Stop' : 'Start';
  status.textContent = s.faces.length + ' face(s), ' + s.fired + ' capture(s)';
}

btn.onclick = () => fetch('/api/toggle', {method: 'POST'}).then(r => r.json()).then(show);
setInterval(() => fetch('/api/status').then(r => r.json()).then(show), 1000);
fetch('/api/status').then(r => r.json()).then(show);

const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws/canvas');
ws.binaryType = 'blob';
ws.onmessage = (e) => {
  const url = URL.createObjectURL(e.data);
  img.onload = () => URL.revokeObjectURL(url);
  img.src = url;
};
</script>
</body>
</html>
`
