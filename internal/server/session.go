package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"stockdesk/internal/ai"
	"stockdesk/internal/chart"
	"stockdesk/internal/finance"
)

const sessionCookie = "sd_session"

// session is the state behind one browser tab: the loaded ticker, its
// indicators, the annotation history and the last output of each analysis.
type session struct {
	mu sync.Mutex

	id         string
	series     *finance.PriceSeries
	indicators finance.IndicatorSet
	history    *chart.History
	results    map[ai.Kind]*ai.Result
	lastSeen   time.Time
}

func (s *session) analysisContext() (ai.AnalysisContext, bool) {
	if s.series == nil {
		return ai.AnalysisContext{}, false
	}
	return ai.AnalysisContext{Series: s.series, Indicators: s.indicators}, true
}

type sessionStore struct {
	mu        sync.Mutex
	items     map[string]*session
	idle      time.Duration
	maxDepth  int
	lastSweep time.Time
	now       func() time.Time
}

func newSessionStore(idle time.Duration, maxDepth int) *sessionStore {
	if idle <= 0 {
		idle = 2 * time.Hour
	}
	return &sessionStore{items: map[string]*session{}, idle: idle, maxDepth: maxDepth, now: time.Now}
}

// lookup returns the caller's session, starting a new one (and setting the
// cookie) when there is none or it has gone idle.
func (st *sessionStore) lookup(w http.ResponseWriter, r *http.Request) *session {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	if now.Sub(st.lastSweep) > time.Minute {
		st.sweep(now)
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		if s, ok := st.items[c.Value]; ok && now.Sub(s.lastSeen) <= st.idle {
			s.lastSeen = now
			return s
		}
	}

	s := &session{
		id:       uuid.NewString(),
		history:  chart.NewHistory(st.maxDepth),
		results:  map[ai.Kind]*ai.Result{},
		lastSeen: now,
	}
	st.items[s.id] = s
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return s
}

func (st *sessionStore) sweep(now time.Time) {
	for id, s := range st.items {
		if now.Sub(s.lastSeen) > st.idle {
			delete(st.items, id)
		}
	}
	st.lastSweep = now
}

func (st *sessionStore) len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.items)
}
