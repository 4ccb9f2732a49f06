package domain

type ElementType string

const (
	ElementText    ElementType = "text"
	ElementImage   ElementType = "image"
	ElementVideo   ElementType = "video"
	ElementAudio   ElementType = "audio"
	ElementShape   ElementType = "shape"
	ElementSticker ElementType = "sticker"
)

// MinElementSize is the smallest width/height an element may settle at.
// Elements below it when a creation gesture ends snap to the defaults.
const MinElementSize = 10.0

// Default sizes applied by the too-small repair at gesture end.
const (
	DefaultElementSize = 150.0
	DefaultTextHeight  = 50.0
)

// Element is one transformable item on a page. Content is an opaque string:
// text body for text elements, an embeddable payload (data URL) for media
// that must survive replication to other sessions.
type Element struct {
	ID       string      `json:"id"`
	Type     ElementType `json:"type"`
	Content  string      `json:"content"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	Width    float64     `json:"width"`
	Height   float64     `json:"height"`
	Rotation float64     `json:"rotation"` // degrees
	ZIndex   int         `json:"zIndex"`   // paint order within the page, not unique

	// Style bag — which fields matter depends on Type.
	StyleType       string  `json:"styleType,omitempty"`  // normal | polaroid | tape
	FontFamily      string  `json:"fontFamily,omitempty"` // hand | serif | sans
	FontSize        float64 `json:"fontSize,omitempty"`
	FontWeight      string  `json:"fontWeight,omitempty"`
	FontStyle       string  `json:"fontStyle,omitempty"`
	TextDecoration  string  `json:"textDecoration,omitempty"`
	TextAlign       string  `json:"textAlign,omitempty"`
	Color           string  `json:"color,omitempty"`
	BackgroundColor string  `json:"backgroundColor,omitempty"`

	// Shape fields.
	ShapeKind   string  `json:"shapeKind,omitempty"` // rectangle | circle | triangle | star | line | table
	StrokeColor string  `json:"strokeColor,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	FillColor   string  `json:"fillColor,omitempty"`
}

// ElementPatch is a partial element update keyed by JSON field name.
// Unknown keys are ignored; numeric values accept any JSON number type.
type ElementPatch map[string]any

// ApplyPatch merges the patch into the element. Width and height are clamped
// at zero; ID and Type are immutable and cannot be patched.
func (e *Element) ApplyPatch(p ElementPatch) {
	for k, v := range p {
		switch k {
		case "content":
			if s, ok := toString(v); ok {
				e.Content = s
			}
		case "x":
			if f, ok := toFloat(v); ok {
				e.X = f
			}
		case "y":
			if f, ok := toFloat(v); ok {
				e.Y = f
			}
		case "width":
			if f, ok := toFloat(v); ok {
				e.Width = max(f, 0)
			}
		case "height":
			if f, ok := toFloat(v); ok {
				e.Height = max(f, 0)
			}
		case "rotation":
			if f, ok := toFloat(v); ok {
				e.Rotation = f
			}
		case "zIndex":
			if f, ok := toFloat(v); ok {
				e.ZIndex = int(f)
			}
		case "styleType":
			if s, ok := toString(v); ok {
				e.StyleType = s
			}
		case "fontFamily":
			if s, ok := toString(v); ok {
				e.FontFamily = s
			}
		case "fontSize":
			if f, ok := toFloat(v); ok {
				e.FontSize = f
			}
		case "fontWeight":
			if s, ok := toString(v); ok {
				e.FontWeight = s
			}
		case "fontStyle":
			if s, ok := toString(v); ok {
				e.FontStyle = s
			}
		case "textDecoration":
			if s, ok := toString(v); ok {
				e.TextDecoration = s
			}
		case "textAlign":
			if s, ok := toString(v); ok {
				e.TextAlign = s
			}
		case "color":
			if s, ok := toString(v); ok {
				e.Color = s
			}
		case "backgroundColor":
			if s, ok := toString(v); ok {
				e.BackgroundColor = s
			}
		case "shapeKind":
			if s, ok := toString(v); ok {
				e.ShapeKind = s
			}
		case "strokeColor":
			if s, ok := toString(v); ok {
				e.StrokeColor = s
			}
		case "strokeWidth":
			if f, ok := toFloat(v); ok {
				e.StrokeWidth = f
			}
		case "fillColor":
			if s, ok := toString(v); ok {
				e.FillColor = s
			}
		}
	}
}

// CurrentValues returns the element's current value for every key named in
// the patch. Used to build the inverse of an update before applying it.
func (e *Element) CurrentValues(p ElementPatch) ElementPatch {
	out := make(ElementPatch, len(p))
	for k := range p {
		switch k {
		case "content":
			out[k] = e.Content
		case "x":
			out[k] = e.X
		case "y":
			out[k] = e.Y
		case "width":
			out[k] = e.Width
		case "height":
			out[k] = e.Height
		case "rotation":
			out[k] = e.Rotation
		case "zIndex":
			out[k] = e.ZIndex
		case "styleType":
			out[k] = e.StyleType
		case "fontFamily":
			out[k] = e.FontFamily
		case "fontSize":
			out[k] = e.FontSize
		case "fontWeight":
			out[k] = e.FontWeight
		case "fontStyle":
			out[k] = e.FontStyle
		case "textDecoration":
			out[k] = e.TextDecoration
		case "textAlign":
			out[k] = e.TextAlign
		case "color":
			out[k] = e.Color
		case "backgroundColor":
			out[k] = e.BackgroundColor
		case "shapeKind":
			out[k] = e.ShapeKind
		case "strokeColor":
			out[k] = e.StrokeColor
		case "strokeWidth":
			out[k] = e.StrokeWidth
		case "fillColor":
			out[k] = e.FillColor
		}
	}
	return out
}

// Clone returns a copy of the patch.
func (p ElementPatch) Clone() ElementPatch {
	out := make(ElementPatch, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// DefaultSize returns the snap-to size for a too-small element of this type.
func DefaultSize(t ElementType) (width, height float64) {
	if t == ElementText {
		return DefaultElementSize, DefaultTextHeight
	}
	return DefaultElementSize, DefaultElementSize
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}
