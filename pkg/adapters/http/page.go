package http

const panelHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
<title>figflow</title>
<style>
  body { font-family: sans-serif; margin: 0; display: flex; flex-direction: column; height: 100vh; }
  #chat { flex: 1; overflow-y: auto; padding: 1rem; }
  .entry { margin: .5rem 0; padding: .5rem .75rem; border-radius: 6px; white-space: pre-wrap; }
  .user { background: #e8f0fe; align-self: flex-end; }
  .bot { background: #f1f3f4; font-family: monospace; }
  .error { background: #fce8e6; color: #a50e0e; }
  .image { font-size: .8em; color: #555; }
  form { display: flex; gap: .5rem; padding: .75rem; border-top: 1px solid #ddd; }
  #prompt { flex: 1; }
  #status { font-size: .8em; color: #555; padding: 0 .75rem .5rem; }
</style>
</head>
<body>
<div id="chat"></div>
<div id="status"></div>
<form id="form">
  <input id="prompt" name="prompt" placeholder="Ask for a change..." autocomplete="off" />
  <input id="image" name="image" type="file" accept="image/*" />
  <button type="submit">Send</button>
</form>
<script>
  const chat = document.getElementById('chat');
  const status = document.getElementById('status');
  const form = document.getElementById('form');

  function show(entry) {
    const div = document.createElement('div');
    div.className = 'entry ' + entry.role;
    div.textContent = entry.text;
    if (entry.image) {
      const img = document.createElement('div');
      img.className = 'image';
      img.textContent = 'attached: ' + entry.image;
      div.appendChild(img);
    }
    chat.appendChild(div);
    chat.scrollTop = chat.scrollHeight;
  }

  function connect() {
    const events = new EventSource('/panel/events');
    events.addEventListener('entry', e => show(JSON.parse(e.data).entry));
    events.addEventListener('setCode', e => { status.textContent = 'document: ' + JSON.parse(e.data).code.length + ' chars'; });
    events.addEventListener('state', e => { form.querySelector('button').disabled = JSON.parse(e.data).state === 'awaiting'; });
    events.addEventListener('closed', () => { status.textContent = 'panel closed'; events.close(); });
    events.onerror = () => { events.close(); setTimeout(() => fetch('/host/open', {method: 'POST'}).then(connect), 1000); };
  }

  form.addEventListener('submit', async e => {
    e.preventDefault();
    const data = new FormData(form);
    form.reset();
    await fetch('/panel/prompt', {method: 'POST', body: data});
  });

  fetch('/host/open', {method: 'POST'}).then(connect);
</script>
</body>
</html>
`
