// Package crashlog persists panics and unexpected errors to the error_logs
// table so they survive the console scrollback.
package crashlog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/neboloop/turbo/internal/db"
	"github.com/neboloop/turbo/internal/httputil"
	"github.com/neboloop/turbo/internal/logging"
)

// writeTimeout bounds the insert so a wedged database cannot stall a
// recovering goroutine.
const writeTimeout = 2 * time.Second

var (
	store   *db.Store
	storeMu sync.RWMutex
)

// Init sets the store entries are written to. Call once at startup; nil
// turns persistence off.
func Init(s *db.Store) {
	storeMu.Lock()
	defer storeMu.Unlock()
	store = s
}

// LogPanic records a recovered panic with a stack trace.
// Safe to call even if Init() was never called (logs only).
func LogPanic(module string, r any, ctx map[string]string) {
	msg := fmt.Sprintf("%v", r)
	stack := make([]byte, 8192)
	stack = stack[:runtime.Stack(stack, false)]

	logging.Errorf("[PANIC] %s: %s\n%s", module, msg, stack)
	insert("panic", module, msg, string(stack), ctx)
}

// LogError records an error with optional context.
func LogError(module string, err error, ctx map[string]string) {
	if err == nil {
		return
	}
	logging.Errorf("[%s] %v", module, err)
	insert("error", module, err.Error(), "", ctx)
}

// LogWarn records a warning.
func LogWarn(module, msg string, ctx map[string]string) {
	logging.Warnf("[%s] %s", module, msg)
	insert("warn", module, msg, "", ctx)
}

func insert(level, module, message, stacktrace string, ctx map[string]string) {
	storeMu.RLock()
	s := store
	storeMu.RUnlock()
	if s == nil {
		return
	}

	var ctxJSON string
	if len(ctx) > 0 {
		if b, err := json.Marshal(ctx); err == nil {
			ctxJSON = string(b)
		}
	}

	c, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.InsertErrorLog(c, db.ErrorLog{
		Level:      level,
		Module:     module,
		Message:    message,
		Stacktrace: stacktrace,
		Context:    ctxJSON,
	}); err != nil {
		logging.Debugf("[crashlog] %v", err)
	}
}

// Recoverer turns handler panics into a 500 and records them.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			LogPanic("http", rec, map[string]string{"method": r.Method, "path": r.URL.Path})
			httputil.InternalError(w, "")
		}()
		next.ServeHTTP(w, r)
	})
}
