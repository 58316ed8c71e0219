package business

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BrowserRegistry keeps the browsing session of every visitor
type BrowserRegistry struct {
	catalog ListCataloger
	opts    BrowserOptions

	mu       sync.Mutex
	browsers map[string]*Browser
}

func NewBrowserRegistry(catalog ListCataloger, opts BrowserOptions) *BrowserRegistry {
	return &BrowserRegistry{
		catalog:  catalog,
		opts:     opts,
		browsers: make(map[string]*Browser),
	}
}

// Get returns the session of a visitor, starting it if needed.
// The session counts as active from then on so that a sweep cannot close it under the caller.
func (br *BrowserRegistry) Get(visitor string) *Browser {
	br.mu.Lock()
	defer br.mu.Unlock()

	b, ok := br.browsers[visitor]
	if !ok {
		b = NewBrowser(visitor, br.catalog, br.opts)
		br.browsers[visitor] = b
		log.Debug().Str("visitor", visitor).Msg("New browsing session")
	}
	b.Touch()
	return b
}

// Len returns the number of sessions
func (br *BrowserRegistry) Len() int {
	br.mu.Lock()
	defer br.mu.Unlock()
	return len(br.browsers)
}

// Sweep closes the sessions without activity since idle, and returns how many were closed
func (br *BrowserRegistry) Sweep(idle time.Duration) int {
	br.mu.Lock()
	defer br.mu.Unlock()

	limit := time.Now().Add(-idle)
	closed := 0
	for visitor, b := range br.browsers {
		if b.LastSeen().Before(limit) {
			b.Close()
			delete(br.browsers, visitor)
			closed++
		}
	}
	if closed > 0 {
		log.Debug().Int("closed", closed).Int("left", len(br.browsers)).Msg("Swept idle browsing sessions")
	}
	return closed
}

// Close closes every session
func (br *BrowserRegistry) Close() {
	br.mu.Lock()
	defer br.mu.Unlock()
	for visitor, b := range br.browsers {
		b.Close()
		delete(br.browsers, visitor)
	}
}
