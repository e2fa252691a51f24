package zerodha

import (
	"sync"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

// instrumentMapper maps exchange:symbol keys to Kite instrument tokens,
// loaded one exchange at a time.
type instrumentMapper struct {
	symbolToToken map[string]int
	loaded        map[string]bool
	mu            sync.RWMutex
}

func newInstrumentMapper() *instrumentMapper {
	return &instrumentMapper{
		symbolToToken: make(map[string]int),
		loaded:        make(map[string]bool),
	}
}

func instrumentKey(exchange, symbol string) string { return exchange + ":" + symbol }

// load registers every instrument of an exchange dump.
func (im *instrumentMapper) load(exchange string, instruments kiteconnect.Instruments) {
	im.mu.Lock()
	defer im.mu.Unlock()

	for _, in := range instruments {
		im.symbolToToken[instrumentKey(exchange, in.Tradingsymbol)] = in.InstrumentToken
	}
	im.loaded[exchange] = true
}

func (im *instrumentMapper) isLoaded(exchange string) bool {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return im.loaded[exchange]
}

func (im *instrumentMapper) getToken(exchange, symbol string) (int, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	token, exists := im.symbolToToken[instrumentKey(exchange, symbol)]
	return token, exists
}
