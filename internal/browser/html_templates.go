package browser

import (
	"html"
	"strings"
)

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{TITLE}}</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Ubuntu, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            min-height: 100vh;
            margin: 0;
            background: #1f2a1f;
            padding: 1rem;
        }
        .container {
            text-align: center;
            background: white;
            padding: 2.5rem;
            border-radius: 12px;
            max-width: 480px;
            width: 100%;
        }
        h1 {
            color: {{ACCENT}};
            font-size: 1.5rem;
            margin-bottom: 0.75rem;
        }
        p {
            color: #4b5563;
            line-height: 1.5;
        }
        .detail {
            font-family: monospace;
            font-size: 0.85rem;
            color: #6b7280;
            word-break: break-word;
        }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{TITLE}}</h1>
        <p>{{MESSAGE}}</p>
        {{DETAIL}}
    </div>
</body>
</html>`

// renderPage fills the shared page layout. detail is escaped before it is inserted.
func renderPage(title, accent, message, detail string) string {
	page := strings.Replace(pageTemplate, "{{TITLE}}", title, -1)
	page = strings.Replace(page, "{{ACCENT}}", accent, 1)
	page = strings.Replace(page, "{{MESSAGE}}", message, 1)
	if detail != "" {
		detail = `<p class="detail">` + html.EscapeString(detail) + `</p>`
	}
	return strings.Replace(page, "{{DETAIL}}", detail, 1)
}

func loginSuccessPage() string {
	return renderPage("Signed in", "#10b981", "You may close this tab and return to the launcher.", "")
}

func loginFailedPage(reason string) string {
	return renderPage("Sign-in did not complete", "#dc2626", "Return to the launcher for details. You may close this tab.", reason)
}

func waitingPage() string {
	return renderPage("Waiting for sign-in", "#6b7280", "This page is used by the launcher to finish signing in.", "")
}
