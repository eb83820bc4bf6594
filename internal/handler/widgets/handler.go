// Package widgets serves the demo widget catalog: the widgets.json /
// apps.json configuration pair and the mock data endpoints behind them.
package widgets

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okonst/widgetbridge/internal/model/widget"
	"github.com/okonst/widgetbridge/pkg/utils"
)

// Handler serves widget configuration and mock widget data.
type Handler struct {
	registry *widget.Registry
	apps     *widget.AppsFile
}

// New creates the widgets handler.
func New(registry *widget.Registry, apps *widget.AppsFile) *Handler {
	return &Handler{registry: registry, apps: apps}
}

// RegisterRoutes mounts the configuration and data endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/widgets.json", h.handleWidgetsJSON)
	r.Get("/apps.json", h.handleAppsJSON)

	r.Get("/markdown_note", h.handleMarkdownNote)
	r.Get("/stock_table", h.handleStockTable)
	r.Get("/price_chart", h.handlePriceChart)
	r.Get("/portfolio_metric", h.handlePortfolioMetric)
	r.Get("/watchlist_form", h.handleWatchlistOptions)
	r.Post("/watchlist_form", h.handleWatchlistSubmit)
}

func (h *Handler) handleWidgetsJSON(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.registry.All())
}

func (h *Handler) handleAppsJSON(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.apps.Content())
}

func (h *Handler) handleMarkdownNote(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK,
		"### Widget Bridge\n\nDemo backend for the dashboard workspace. "+
			"Pick a symbol on the table widget or ask the copilot to build a new app.")
}

// stockRows is the fixed demo dataset behind the table widget.
var stockRows = []map[string]any{
	{"symbol": "AAPL", "name": "Apple Inc.", "sector": "Technology", "price": 150.00, "pe": 28.4, "dividend_yield": 0.0055},
	{"symbol": "GOOGL", "name": "Alphabet Inc.", "sector": "Communication Services", "price": 140.00, "pe": 24.1, "dividend_yield": 0.0},
	{"symbol": "MSFT", "name": "Microsoft Corp.", "sector": "Technology", "price": 350.00, "pe": 32.7, "dividend_yield": 0.0082},
	{"symbol": "AMZN", "name": "Amazon.com Inc.", "sector": "Consumer Discretionary", "price": 178.00, "pe": 41.9, "dividend_yield": 0.0},
	{"symbol": "TSLA", "name": "Tesla Inc.", "sector": "Consumer Discretionary", "price": 245.00, "pe": 68.2, "dividend_yield": 0.0},
}

// handleStockTable returns the demo table rows, optionally filtered by a
// comma-separated symbol list.
func (h *Handler) handleStockTable(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if raw == "" {
		utils.RespondJSON(w, http.StatusOK, stockRows)
		return
	}

	wanted := make(map[string]struct{})
	for _, sym := range strings.Split(raw, ",") {
		wanted[strings.ToUpper(strings.TrimSpace(sym))] = struct{}{}
	}

	filtered := make([]map[string]any, 0, len(stockRows))
	for _, row := range stockRows {
		if _, ok := wanted[row["symbol"].(string)]; ok {
			filtered = append(filtered, row)
		}
	}
	utils.RespondJSON(w, http.StatusOK, filtered)
}

// handlePriceChart returns a chart config the dashboard's charting widget
// renders directly.
func (h *Handler) handlePriceChart(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		symbol = "TSLA"
	}

	base := 240.0
	points := make([][2]any, 0, 30)
	day := time.Now().AddDate(0, 0, -30)
	for i := 0; i < 30; i++ {
		// Deterministic wave so the chart is stable across reloads.
		base += float64((i%7)-3) * 1.5
		points = append(points, [2]any{day.Format("2006-01-02"), base})
		day = day.AddDate(0, 0, 1)
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"title":  map[string]any{"text": symbol + " 30-day price"},
		"xAxis":  map[string]any{"type": "category"},
		"yAxis":  map[string]any{"title": map[string]any{"text": "Price (USD)"}},
		"series": []map[string]any{{"name": symbol, "type": "line", "data": points}},
	})
}

func (h *Handler) handlePortfolioMetric(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, []map[string]any{
		{"label": "Portfolio Value", "value": "1,245,300 USD", "delta": "+1.8%"},
		{"label": "Day P&L", "value": "22,040 USD", "delta": "+0.9%"},
		{"label": "Open Positions", "value": "14", "delta": "0"},
	})
}

func (h *Handler) handleWatchlistOptions(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, []map[string]string{
		{"label": "Apple", "value": "AAPL"},
		{"label": "Alphabet", "value": "GOOGL"},
		{"label": "Microsoft", "value": "MSFT"},
		{"label": "Amazon", "value": "AMZN"},
		{"label": "Tesla", "value": "TSLA"},
	})
}

// handleWatchlistSubmit echoes the submitted form back, the contract the
// dashboard's form widget expects from a demo backend.
func (h *Handler) handleWatchlistSubmit(w http.ResponseWriter, r *http.Request) {
	var form map[string]any
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid form payload")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"status":    "accepted",
		"submitted": form,
	})
}

// Seed returns the widget catalog registered at startup.
func Seed() []widget.Config {
	return []widget.Config{
		{
			Name:        "Markdown Note",
			Description: "Static markdown describing the backend",
			Type:        "markdown",
			Endpoint:    "markdown_note",
			GridData:    &widget.GridData{W: 12, H: 6},
		},
		{
			Name:        "Stock Table",
			Description: "Demo equity table with symbol filtering",
			Type:        "table",
			Endpoint:    "stock_table",
			GridData:    &widget.GridData{W: 20, H: 9},
			Params: []widget.Param{{
				ParamName:   "symbol",
				Description: "Symbols to include",
				Value:       "AAPL,MSFT",
				Label:       "Symbol",
				Type:        "text",
				MultiSelect: true,
				Options: []widget.Option{
					{Label: "AAPL", Value: "AAPL"},
					{Label: "GOOGL", Value: "GOOGL"},
					{Label: "MSFT", Value: "MSFT"},
					{Label: "AMZN", Value: "AMZN"},
					{Label: "TSLA", Value: "TSLA"},
				},
			}},
		},
		{
			Name:        "Price Chart",
			Description: "30-day line chart for a symbol",
			Type:        "chart",
			Endpoint:    "price_chart",
			GridData:    &widget.GridData{W: 20, H: 12},
			Params: []widget.Param{{
				ParamName: "symbol",
				Value:     "TSLA",
				Label:     "Symbol",
				Type:      "text",
			}},
		},
		{
			Name:        "Portfolio Metrics",
			Description: "Headline portfolio figures",
			Type:        "metric",
			Endpoint:    "portfolio_metric",
			GridData:    &widget.GridData{W: 12, H: 4},
		},
		{
			Name:        "Watchlist Form",
			Description: "Add symbols to the demo watchlist",
			Type:        "form",
			Endpoint:    "watchlist_form",
			GridData:    &widget.GridData{W: 12, H: 8},
		},
		{
			Name:        "Live Grid",
			Description: "Live grid with real-time WebSocket updates",
			Type:        "live_grid",
			Endpoint:    "live_grid_data",
			WSEndpoint:  "live_grid_ws",
			GridData:    &widget.GridData{W: 20, H: 9},
			Data: map[string]any{
				"wsRowIdColumn": "symbol",
				"table": map[string]any{
					"showAll": true,
					"columnsDefs": []map[string]any{
						{"field": "symbol", "headerName": "Symbol"},
						{"field": "price", "headerName": "Price", "renderFn": "showCellChange",
							"renderFnParams": map[string]any{"colorValueKey": "change"}},
						{"field": "change_percent", "headerName": "Change %", "renderFn": "greenRed"},
						{"field": "volume", "headerName": "Volume", "enableCellChangeWs": false},
					},
				},
			},
			Params: []widget.Param{{
				ParamName:   "symbol",
				Description: "The symbols to track",
				Value:       "TSLA",
				Label:       "Symbol",
				Type:        "text",
				MultiSelect: true,
				Options: []widget.Option{
					{Label: "AAPL", Value: "AAPL"},
					{Label: "GOOGL", Value: "GOOGL"},
					{Label: "MSFT", Value: "MSFT"},
					{Label: "AMZN", Value: "AMZN"},
					{Label: "TSLA", Value: "TSLA"},
				},
			}},
		},
	}
}
