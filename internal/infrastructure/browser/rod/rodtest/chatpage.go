// Package rodtest serves a stand-in for the chat site that the default
// selectors match, for tests that drive a real browser.
package rodtest

import (
	"fmt"
	"net/http"
)

// Handler serves ChatHTML on every path.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, ChatHTML)
	})
}

// ChatHTML imitates the chat site. Replies arrive after a short delay and
// echo the query plus the name of any attached file.
const ChatHTML = `<!DOCTYPE html>
<html>
<head><title>Chat</title></head>
<body>
	<div id="popup"><span id="dismiss">No thanks</span></div>
	<div id="chat"></div>
	<div class="text-input-field">
		<div id="prompt" role="textbox" aria-label="Enter a prompt here" contenteditable="true"></div>
		<button id="menu" aria-label="Open upload file menu" class="upload-card-button open">+</button>
		<div id="menu-items" style="display:none"><div class="menu-text" id="upload-item">Upload files</div></div>
		<input id="file" type="file" style="display:none">
		<uploader-file-preview id="preview"></uploader-file-preview>
	</div>
	<script>
		const chat = document.getElementById('chat');
		const prompt = document.getElementById('prompt');
		const file = document.getElementById('file');
		const preview = document.getElementById('preview');

		document.getElementById('dismiss').addEventListener('click', () => {
			document.getElementById('popup').remove();
		});
		document.getElementById('menu').addEventListener('click', () => {
			document.getElementById('menu-items').style.display = 'block';
		});
		document.getElementById('upload-item').addEventListener('click', () => file.click());
		file.addEventListener('change', () => {
			setTimeout(() => {
				preview.innerHTML = '<img src="data:image/gif;base64,R0lGODlhAQABAAAAACw=">';
			}, 200);
		});

		prompt.addEventListener('keydown', (e) => {
			if (e.key !== 'Enter') return;
			e.preventDefault();
			const query = prompt.innerText.trim();
			const attached = file.files.length ? ' [' + file.files[0].name + ']' : '';
			prompt.innerText = '';
			preview.innerHTML = '';

			const turn = document.createElement('div');
			const bubble = document.createElement('span');
			bubble.className = 'user-query-bubble-with-background';
			bubble.textContent = query;
			const status = document.createElement('div');
			status.setAttribute('data-test-lottie-animation-status', 'playing');
			turn.append(bubble, status);
			chat.append(turn);

			setTimeout(() => {
				const reply = document.createElement('message-content');
				reply.textContent = 'echo: ' + query + attached;
				turn.append(reply);
				status.setAttribute('data-test-lottie-animation-status', 'completed');
			}, 300);
		});
	</script>
</body>
</html>`
