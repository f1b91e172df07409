// Package pages holds the server-rendered pages shown to shoppers.
package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const baseStyle = `body{font-family:system-ui,sans-serif;background:#f5f6f8;margin:0;color:#1f2933}
main{max-width:420px;margin:48px auto;background:#fff;border-radius:12px;padding:32px;box-shadow:0 2px 12px rgba(0,0,0,.08)}
h1{font-size:1.25rem;margin:0 0 16px}
.amount{font-size:2rem;font-weight:600;margin:8px 0}
.status{display:inline-block;padding:4px 10px;border-radius:999px;font-size:.8rem;font-weight:600}
.status-PENDING{background:#fff4d6;color:#8a5a00}
.status-SUCCESS{background:#dcf5e4;color:#1d6b38}
.status-FAILED{background:#fde2e1;color:#9b1c1c}
.qr{word-break:break-all;font-family:monospace;background:#f0f2f5;padding:12px;border-radius:8px;font-size:.8rem}
.btn{display:block;text-align:center;background:#3b5bdb;color:#fff;padding:12px;border-radius:8px;text-decoration:none;margin-top:16px}
.muted{color:#6b7785;font-size:.85rem}`

// publicLayout wraps body in the minimal page shell used by public pages.
func publicLayout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\"><meta name=\"viewport\" content=\"width=device-width, initial-scale=1\"><title>"+
			templ.EscapeString(title)+"</title><style>"+baseStyle+"</style></head><body><main>"); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</main></body></html>")
		return err
	})
}
