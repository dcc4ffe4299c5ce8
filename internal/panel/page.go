package panel

// pageHTML polls /api/state and posts button clicks to /api/messages. Inline
// style and script carry the per-request nonce.
const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Team Sync</title>
<style nonce="{{.Nonce}}">
  body { font-family: system-ui, sans-serif; margin: 16px; max-width: 420px; }
  button { display: block; width: 100%; margin: 4px 0; padding: 6px; }
  .member { padding: 6px 0; border-bottom: 1px solid #ddd; }
  .member img { width: 18px; height: 18px; border-radius: 50%; vertical-align: middle; }
  .file { color: #777; font-size: 90%; }
  .status { font-style: italic; font-size: 90%; }
  .hidden { display: none; }
</style>
</head>
<body>
<h3 id="title">Team Sync</h3>
<div id="view-login" class="hidden">
  <p>Sign in with GitHub to share what you are working on.</p>
  <button data-type="login">Sign in</button>
</div>
<div id="view-team" class="hidden">
  <input id="team-name" placeholder="Team name">
  <button data-type="createTeam">Create team</button>
  <input id="invite-code" placeholder="XXXX-XXXX">
  <button data-type="joinTeam">Join team</button>
  <button data-type="logout">Sign out</button>
</div>
<div id="view-main" class="hidden">
  <div id="members"></div>
  <input id="status" maxlength="500" placeholder="What are you working on?">
  <button data-type="saveStatus">Save status</button>
  <h4>Invite teammates</h4>
  <p>Share this code: <code id="code"></code></p>
  <button data-type="copyInviteCode">Copy invite code</button>
  <button data-type="leaveTeam">Leave team</button>
  <button data-type="logout">Sign out</button>
</div>
<script nonce="{{.Nonce}}">
  let version = -1;

  function post(msg) {
    return fetch('/api/messages', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify(msg),
    });
  }

  function show(id, on) {
    document.getElementById(id).classList.toggle('hidden', !on);
  }

  function render(s) {
    document.getElementById('title').textContent = s.title;
    show('view-login', !s.isLoggedIn);
    show('view-team', s.isLoggedIn && !s.teamName);
    show('view-main', s.isLoggedIn && !!s.teamName);
    document.getElementById('code').textContent = s.inviteCode || '';

    const list = document.getElementById('members');
    list.replaceChildren();
    for (const m of s.members) {
      const row = document.createElement('div');
      row.className = 'member';
      if (m.avatarUrl) {
        const img = document.createElement('img');
        img.src = m.avatarUrl;
        row.appendChild(img);
      }
      const name = document.createElement('strong');
      name.textContent = ' ' + m.githubUsername + (m.id === s.currentMemberId ? ' (you)' : '');
      row.appendChild(name);
      const file = document.createElement('div');
      file.className = 'file';
      file.textContent = m.activity && m.activity.filePath ? 'editing ' + m.activity.filePath : 'idle';
      row.appendChild(file);
      if (m.activity && m.activity.statusMessage) {
        const status = document.createElement('div');
        status.className = 'status';
        status.textContent = m.activity.statusMessage;
        row.appendChild(status);
      }
      list.appendChild(row);
    }
  }

  document.querySelectorAll('button[data-type]').forEach((btn) => {
    btn.addEventListener('click', () => {
      const type = btn.dataset.type;
      const msg = { type };
      if (type === 'createTeam') msg.name = document.getElementById('team-name').value;
      if (type === 'joinTeam') msg.code = document.getElementById('invite-code').value;
      if (type === 'saveStatus') msg.status = document.getElementById('status').value;
      post(msg);
    });
  });

  async function poll() {
    try {
      const res = await fetch('/api/state');
      const s = await res.json();
      if (s.version !== version) {
        version = s.version;
        render(s);
      }
    } catch (e) {}
    setTimeout(poll, 1000);
  }

  post({ type: 'ready' }).then((res) => res.json()).then((s) => { version = s.version; render(s); }).finally(poll);
</script>
</body>
</html>
`
