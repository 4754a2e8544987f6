package admission

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/videogen/genqueue/internal/queue"
	"github.com/videogen/genqueue/internal/registry"
	"github.com/videogen/genqueue/internal/task"
)

var (
	ErrNoModelSpecified = errors.New("no model specified and no default model configured")
	ErrInvalidImage     = errors.New("invalid image payload")
)

// Request is the wire shape of a generation submission. Optional fields are
// pointers so a request-supplied value can be told apart from an omitted one
// when model defaults are overlaid.
type Request struct {
	Prompt                string   `json:"prompt"                  validate:"required"`
	NegativePrompt        *string  `json:"negative_prompt"`
	Model                 string   `json:"model_type"`
	Resolution            *string  `json:"resolution"              validate:"omitempty,resolution"`
	VideoLength           *int     `json:"video_length"            validate:"omitempty,min=1,max=1000"`
	Steps                 *int     `json:"num_inference_steps"     validate:"omitempty,min=1,max=100"`
	GuidanceScale         *float64 `json:"guidance_scale"          validate:"omitempty,min=0,max=20"`
	Seed                  *int64   `json:"seed"`
	BatchSize             *int     `json:"batch_size"              validate:"omitempty,min=1,max=10"`
	RepeatCount           *int     `json:"repeat_generation"       validate:"omitempty,min=1,max=10"`
	FlowShift             *float64 `json:"flow_shift"`
	EmbeddedGuidanceScale *float64 `json:"embedded_guidance_scale"`
	ImageStart            *string  `json:"image_start"`
	ImageEnd              *string  `json:"image_end"`
	ImageRefs             []string `json:"image_refs"`
	UseModelDefaults      *bool    `json:"use_model_defaults"`
}

// Receipt is returned for an accepted submission.
type Receipt struct {
	TaskID   int64 `json:"task_id"`
	Position int   `json:"position"`
}

// ImageCodec decodes embedded base64 reference images.
type ImageCodec interface {
	DecodeBase64(payload string) ([]byte, error)
}

// Controller validates and normalizes submissions into tasks and appends
// them to the queue store. It holds no mutable state of its own.
type Controller struct {
	store        *queue.Store
	registry     *registry.Registry
	codec        ImageCodec
	defaultModel string
	validate     *validator.Validate
}

func NewController(store *queue.Store, reg *registry.Registry, codec ImageCodec, defaultModel string) *Controller {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("resolution", func(fl validator.FieldLevel) bool {
		_, _, err := ParseResolution(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}

	return &Controller{
		store:        store,
		registry:     reg,
		codec:        codec,
		defaultModel: defaultModel,
		validate:     v,
	}
}

// Submit admits one generation request. The submission is atomic: any
// validation or image decode failure leaves the queue untouched.
func (c *Controller) Submit(req *Request) (*Receipt, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	if model == "" {
		return nil, ErrNoModelSpecified
	}
	if _, err := c.registry.Definition(model); err != nil {
		return nil, err
	}

	params, err := c.resolveParams(req, model)
	if err != nil {
		return nil, err
	}

	if err := c.decodeImages(req, &params); err != nil {
		return nil, err
	}

	repeat := 1
	if req.RepeatCount != nil {
		repeat = *req.RepeatCount
	}

	t := &task.Task{
		Params:      params,
		RepeatCount: repeat,
	}
	id, pos := c.store.Append(t)
	return &Receipt{TaskID: id, Position: pos}, nil
}

// resolveParams layers process defaults, model defaults and request values,
// in that order. Request-supplied fields always win.
func (c *Controller) resolveParams(req *Request, model string) (task.Params, error) {
	p := task.Params{
		Model:         model,
		Prompt:        req.Prompt,
		Resolution:    "832x480",
		VideoLength:   81,
		Steps:         30,
		GuidanceScale: 5.0,
		Seed:          -1,
		BatchSize:     1,
		FlowShift:     5.0,
	}

	if req.UseModelDefaults == nil || *req.UseModelDefaults {
		s, err := c.registry.DefaultSettings(model)
		if err != nil {
			return task.Params{}, err
		}
		p.NegativePrompt = s.NegativePrompt
		if s.Resolution != "" {
			p.Resolution = s.Resolution
		}
		if s.VideoLength > 0 {
			p.VideoLength = s.VideoLength
		}
		if s.Steps > 0 {
			p.Steps = s.Steps
		}
		p.GuidanceScale = s.GuidanceScale
		p.FlowShift = s.FlowShift
		p.EmbeddedGuidanceScale = s.EmbeddedGuidanceScale
	}

	if req.NegativePrompt != nil {
		p.NegativePrompt = *req.NegativePrompt
	}
	if req.Resolution != nil {
		p.Resolution = *req.Resolution
	}
	if req.VideoLength != nil {
		p.VideoLength = *req.VideoLength
	}
	if req.Steps != nil {
		p.Steps = *req.Steps
	}
	if req.GuidanceScale != nil {
		p.GuidanceScale = *req.GuidanceScale
	}
	if req.Seed != nil {
		p.Seed = *req.Seed
	}
	if req.BatchSize != nil {
		p.BatchSize = *req.BatchSize
	}
	if req.FlowShift != nil {
		p.FlowShift = *req.FlowShift
	}
	if req.EmbeddedGuidanceScale != nil {
		p.EmbeddedGuidanceScale = *req.EmbeddedGuidanceScale
	}

	w, h, err := ParseResolution(p.Resolution)
	if err != nil {
		return task.Params{}, err
	}
	p.Width, p.Height = w, h
	return p, nil
}

// decodeImages decodes every embedded image before anything is enqueued, so
// a bad payload rejects the whole submission.
func (c *Controller) decodeImages(req *Request, p *task.Params) error {
	if req.ImageStart != nil {
		raw, err := c.codec.DecodeBase64(*req.ImageStart)
		if err != nil {
			return fmt.Errorf("%w: image_start: %v", ErrInvalidImage, err)
		}
		p.ImageStart = raw
	}
	if req.ImageEnd != nil {
		raw, err := c.codec.DecodeBase64(*req.ImageEnd)
		if err != nil {
			return fmt.Errorf("%w: image_end: %v", ErrInvalidImage, err)
		}
		p.ImageEnd = raw
	}
	for i, img := range req.ImageRefs {
		raw, err := c.codec.DecodeBase64(img)
		if err != nil {
			return fmt.Errorf("%w: image_refs[%d]: %v", ErrInvalidImage, i, err)
		}
		p.ImageRefs = append(p.ImageRefs, raw)
	}
	return nil
}

// ParseResolution splits a "WxH" string into positive pixel dimensions.
func ParseResolution(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid resolution %q: expected WxH", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution width %q", ws)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution height %q", hs)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution %q: dimensions must be positive", s)
	}
	return w, h, nil
}
