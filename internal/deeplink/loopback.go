package deeplink

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fitproapp/fitlink/internal/observability/logger"
)

const closePage = `<!doctype html><html><body style="font-family:sans-serif">
<p>Account linking finished. You can close this window and return to the app.</p>
</body></html>`

// Loopback is the desktop stand-in for the mobile deep-link channel: a
// localhost HTTP listener whose callback route feeds redirects into a
// Dispatcher. The backend (or provider) redirect URI points at it.
type Loopback struct {
	dispatcher *Dispatcher
	addr       string
	path       string

	srv *http.Server
	ln  net.Listener
}

// NewLoopback creates a loopback listener. addr defaults to
// "127.0.0.1:8457" and path to "/callback".
func NewLoopback(d *Dispatcher, addr, path string) *Loopback {
	if addr == "" {
		addr = "127.0.0.1:8457"
	}
	if path == "" {
		path = "/callback"
	}
	return &Loopback{dispatcher: d, addr: addr, path: path}
}

// RedirectURL returns the URL the backend should redirect to.
func (l *Loopback) RedirectURL() string {
	return "http://" + l.addr + l.path
}

// Start binds the listener and serves in the background.
func (l *Loopback) Start() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("deeplink: listen %s: %w", l.addr, err)
	}
	l.ln = ln

	r := chi.NewRouter()
	r.Get(l.path, func(w http.ResponseWriter, req *http.Request) {
		full := "http://" + l.addr + req.URL.String()
		logger.From(req.Context()).Debug("loopback callback received")
		l.dispatcher.Dispatch(full)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(closePage))
	})

	l.srv = &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := l.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.L().Warn("loopback listener stopped", logger.Err(err))
		}
	}()
	return nil
}

// Stop shuts the listener down.
func (l *Loopback) Stop(ctx context.Context) error {
	if l.srv == nil {
		return nil
	}
	return l.srv.Shutdown(ctx)
}
