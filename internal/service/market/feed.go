package market

import (
	"math/rand"
	"sync"
	"time"
)

// Tick is one live-grid update for a single symbol.
type Tick struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        int64   `json:"volume"`
}

// Row is a seed row for the initial live-grid table load.
type Row struct {
	Date string `json:"date"`
	Tick
	MarketCap int64 `json:"market_cap"`
}

type quote struct {
	price     float64
	prevClose float64
	volume    int64
}

// Feed generates random-walk prices over a fixed symbol table. The last
// generated price seeds the next step, so consecutive ticks drift rather
// than jump.
type Feed struct {
	mu     sync.Mutex
	quotes map[string]*quote
	rng    *rand.Rand
}

// NewFeed returns a feed seeded with the demo symbol table.
func NewFeed() *Feed {
	return &Feed{
		quotes: map[string]*quote{
			"AAPL":  {price: 150.0, prevClose: 145.54, volume: 1_000_000},
			"GOOGL": {price: 140.0, prevClose: 138.20, volume: 800_000},
			"MSFT":  {price: 350.0, prevClose: 345.00, volume: 1_200_000},
			"AMZN":  {price: 178.0, prevClose: 175.50, volume: 900_000},
			"TSLA":  {price: 245.0, prevClose: 240.00, volume: 1_500_000},
		},
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Symbols lists every symbol the feed knows about.
func (f *Feed) Symbols() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.quotes))
	for sym := range f.quotes {
		out = append(out, sym)
	}
	return out
}

// Next advances the random walk for symbol and returns the resulting tick.
// Unknown symbols start from a neutral quote.
func (f *Feed) Next(symbol string) Tick {
	f.mu.Lock()
	defer f.mu.Unlock()

	q, ok := f.quotes[symbol]
	if !ok {
		q = &quote{price: 100.0, prevClose: 100.0, volume: 1_000_000}
		f.quotes[symbol] = q
	}

	q.price += f.rng.Float64()*20 - 10
	if q.price < 1 {
		q.price = 1
	}
	q.volume += int64(f.rng.Intn(900) + 100)

	change := q.price - q.prevClose
	return Tick{
		Symbol:        symbol,
		Price:         q.price,
		Change:        change,
		ChangePercent: change / q.prevClose,
		Volume:        q.volume,
	}
}

// SeedRows builds the initial table rows for the requested symbols.
func (f *Feed) SeedRows(symbols []string) []Row {
	rows := make([]Row, 0, len(symbols))
	date := time.Now().Format("2006-01-02")
	for _, sym := range symbols {
		tick := f.Next(sym)

		f.mu.Lock()
		cap := int64(f.rng.Intn(1_000_000_000)) + 1_000_000_000
		f.mu.Unlock()

		rows = append(rows, Row{Date: date, Tick: tick, MarketCap: cap})
	}
	return rows
}
