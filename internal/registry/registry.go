package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrModelNotFound       = errors.New("model not found")
	ErrSettingsUnavailable = errors.New("model settings unavailable")
)

// Definition describes one generation model known to the process.
type Definition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Family      string `json:"family"`
	IsI2V       bool   `json:"is_i2v"`
	IsT2V       bool   `json:"is_t2v"`
	Visible     bool   `json:"visible"`
}

// Settings are the per-model generation defaults, applied at admission when
// the request asks for model defaults. Missing settings for a registered
// model are reported, never silently treated as empty.
type Settings struct {
	NegativePrompt        string  `json:"negative_prompt"`
	Resolution            string  `json:"resolution"`
	VideoLength           int     `json:"video_length"`
	Steps                 int     `json:"num_inference_steps"`
	GuidanceScale         float64 `json:"guidance_scale"`
	FlowShift             float64 `json:"flow_shift"`
	EmbeddedGuidanceScale float64 `json:"embedded_guidance_scale"`
}

type Registry struct {
	mu       sync.RWMutex
	defs     map[string]Definition
	settings map[string]Settings
}

func New() *Registry {
	return &Registry{
		defs:     make(map[string]Definition),
		settings: make(map[string]Settings),
	}
}

// NewDefault returns a registry preloaded with the stock model catalog.
func NewDefault() *Registry {
	r := New()
	r.Register(Definition{
		ID: "t2v", Name: "Wan2.1 Text2Video 14B", Family: "wan",
		Description: "Text to video, 14B", IsT2V: true, Visible: true,
	}, Settings{
		Resolution: "832x480", VideoLength: 81, Steps: 30,
		GuidanceScale: 5.0, FlowShift: 5.0,
	})
	r.Register(Definition{
		ID: "i2v", Name: "Wan2.1 Image2Video 14B", Family: "wan",
		Description: "Image to video, 14B", IsI2V: true, Visible: true,
	}, Settings{
		Resolution: "832x480", VideoLength: 81, Steps: 30,
		GuidanceScale: 5.0, FlowShift: 5.0,
	})
	r.Register(Definition{
		ID: "hunyuan", Name: "Hunyuan Video 720p", Family: "hunyuan",
		Description: "Text to video, 13B", IsT2V: true, Visible: true,
	}, Settings{
		Resolution: "1280x720", VideoLength: 97, Steps: 30,
		GuidanceScale: 7.0, FlowShift: 7.0, EmbeddedGuidanceScale: 6.0,
	})
	r.Register(Definition{
		ID: "ltxv", Name: "LTX Video 13B", Family: "ltxv",
		Description: "Fast text to video, 13B", IsT2V: true, Visible: true,
	}, Settings{
		Resolution: "1280x720", VideoLength: 121, Steps: 30,
		GuidanceScale: 3.0, FlowShift: 2.0,
	})
	return r
}

func (r *Registry) Register(def Definition, s Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.ID] = def
	r.settings[def.ID] = s
}

func (r *Registry) Definition(id string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[id]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrModelNotFound, id)
	}
	return def, nil
}

func (r *Registry) DefaultSettings(id string) (Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.defs[id]; !ok {
		return Settings{}, fmt.Errorf("%w: %q", ErrModelNotFound, id)
	}
	s, ok := r.settings[id]
	if !ok {
		return Settings{}, fmt.Errorf("%w: %q", ErrSettingsUnavailable, id)
	}
	return s, nil
}

func (r *Registry) DisplayName(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if def, ok := r.defs[id]; ok {
		return def.Name
	}
	return id
}

// List returns all definitions ordered by id.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
