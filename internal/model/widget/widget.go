package widget

// Config describes one widget the dashboard can render. The field set
// mirrors the dashboard's widgets.json schema; anything chart- or
// table-specific rides along in Data.
type Config struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category,omitempty"`
	Type        string         `json:"type,omitempty"`
	Endpoint    string         `json:"endpoint"`
	WidgetID    string         `json:"widgetId"`
	WSEndpoint  string         `json:"wsEndpoint,omitempty"`
	GridData    *GridData      `json:"gridData,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Params      []Param        `json:"params,omitempty"`
}

// GridData is the widget's default placement size on the dashboard grid.
type GridData struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Param declares a user-facing widget input.
type Param struct {
	ParamName   string   `json:"paramName"`
	Description string   `json:"description,omitempty"`
	Value       any      `json:"value,omitempty"`
	Label       string   `json:"label,omitempty"`
	Type        string   `json:"type,omitempty"`
	MultiSelect bool     `json:"multiSelect,omitempty"`
	Options     []Option `json:"options,omitempty"`
}

// Option is one selectable value for a parameter.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Registry collects widget configs keyed by widget id, in the shape the
// dashboard expects from widgets.json. Widgets are registered at startup
// and the registry is read-only afterwards.
type Registry struct {
	items map[string]Config
}

// NewRegistry returns a registry preloaded with the supplied widgets.
func NewRegistry(items ...Config) *Registry {
	r := &Registry{items: make(map[string]Config, len(items))}
	for _, item := range items {
		r.Register(item)
	}
	return r
}

// Register adds a widget config. A missing widget id defaults to the
// endpoint name, matching how the dashboard derives ids.
func (r *Registry) Register(cfg Config) {
	if cfg.WidgetID == "" {
		cfg.WidgetID = cfg.Endpoint
	}
	if cfg.WidgetID == "" {
		return
	}
	r.items[cfg.WidgetID] = cfg
}

// All returns the widgets.json object keyed by widget id.
func (r *Registry) All() map[string]Config {
	out := make(map[string]Config, len(r.items))
	for id, cfg := range r.items {
		out[id] = cfg
	}
	return out
}

// FindByID looks up a widget config by identifier.
func (r *Registry) FindByID(id string) (Config, bool) {
	cfg, ok := r.items[id]
	return cfg, ok
}

// Len reports the number of registered widgets.
func (r *Registry) Len() int {
	return len(r.items)
}
