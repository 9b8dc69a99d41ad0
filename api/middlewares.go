package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/harlequingg/project-tracker/internal/model"
)

// requireAuthenticatedUser resolves the bearer token to a user and stores
// it on the request context. Handlers read it back with
// getUserFromRequest and pass it explicitly to the service.
func (app *application) requireAuthenticatedUser(next http.HandlerFunc) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Authorization")
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, errors.New("invalid Authorization header"), http.StatusUnauthorized)
			return
		}
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, errors.New("invalid Authorization header"), http.StatusUnauthorized)
			return
		}

		u, err := app.service.Authenticate(r.Context(), parts[1])
		if err != nil {
			app.serviceError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientLimiters hands out one token bucket per client IP. Clients idle
// for longer than idleAfter are dropped by a sweep that runs from allow at
// most once per sweepEvery.
type clientLimiters struct {
	mu         sync.Mutex
	rps        rate.Limit
	burst      int
	idleAfter  time.Duration
	sweepEvery time.Duration
	lastSweep  time.Time
	clients    map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiters(rps float64, burst int) *clientLimiters {
	return &clientLimiters{
		rps:        rate.Limit(rps),
		burst:      burst,
		idleAfter:  3 * time.Minute,
		sweepEvery: time.Minute,
		clients:    make(map[string]*clientLimiter),
	}
}

func (l *clientLimiters) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lastSweep.IsZero() {
		l.lastSweep = now
	} else if now.Sub(l.lastSweep) >= l.sweepEvery {
		l.sweepLocked(now)
	}
	c, ok := l.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (l *clientLimiters) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked(now)
}

func (l *clientLimiters) sweepLocked(now time.Time) {
	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) >= l.idleAfter {
			delete(l.clients, ip)
		}
	}
	l.lastSweep = now
}

func (app *application) rateLimit(next http.Handler) http.HandlerFunc {
	limiters := newClientLimiters(app.config.Limiter.RPS, app.config.Limiter.Burst)
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			app.serverError(w, err)
			return
		}
		if !limiters.allow(ip, time.Now()) {
			writeError(w, errors.New("rate limit exceeded"), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	}
}

func (app *application) enableCORS(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")
		w.Header().Add("Vary", "Access-Control-Request-Method")

		origin := r.Header.Get("Origin")
		if origin != "" {
			for _, o := range app.config.CORS.TrustedOrigins {
				if origin == o || o == "*" {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					// preflight request
					if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
						w.Header().Set("Access-Control-Allow-Methods", "OPTIONS, GET, POST, PATCH, DELETE")
						w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
						w.WriteHeader(http.StatusOK)
						return
					}
					break
				}
			}
		}
		next.ServeHTTP(w, r)
	}
}

func (app *application) recoverPanic(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverError(w, fmt.Errorf("panic: %v", err))
			}
		}()
		next.ServeHTTP(w, r)
	}
}

type userContext string

const userContextKey userContext = "userContextKey"

func getUserFromRequest(r *http.Request) *model.User {
	u, ok := r.Context().Value(userContextKey).(*model.User)
	if !ok {
		panic("missing user value in request context")
	}
	return u
}
