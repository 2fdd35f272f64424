package annotation

// StyleEditable lists which style properties a kind exposes.
type StyleEditable struct {
	Color       bool `json:"color"`
	Opacity     bool `json:"opacity"`
	StrokeWidth bool `json:"strokeWidth"`
}

// Definition describes one annotation tool.
type Definition struct {
	Name          string        `json:"name"`
	Type          Type          `json:"type"`
	Subtype       Subtype       `json:"subtype"`
	IsOnce        bool          `json:"isOnce"`
	StyleEditable StyleEditable `json:"styleEditable"`
	Style         Style         `json:"style"`
}

var DefaultColors = []string{
	"#ff0000", "#ffbe00", "#ffff00", "#83d33c", "#00b445",
	"#00b2f4", "#1677ff", "#001f63", "#7828a4", "#ff00ff",
}

var Definitions = []Definition{
	{Name: "select", Type: Select},
	{
		Name: "highlight", Type: Highlight, Subtype: SubtypeHighlight,
		StyleEditable: StyleEditable{Color: true, Opacity: true},
		Style:         Style{Color: "#ffff00", Opacity: Float(0.5)},
	},
	{
		Name: "strikeout", Type: Strikeout, Subtype: SubtypeStrikeOut,
		StyleEditable: StyleEditable{Color: true, Opacity: true},
		Style:         Style{Color: "#ff0000", Opacity: Float(1)},
	},
	{
		Name: "underline", Type: Underline, Subtype: SubtypeUnderline,
		StyleEditable: StyleEditable{Color: true, Opacity: true},
		Style:         Style{Color: "#ff0000", Opacity: Float(1)},
	},
	{
		Name: "freeText", Type: FreeText, Subtype: SubtypeFreeText,
		StyleEditable: StyleEditable{Color: true},
		Style:         Style{Color: "#ff0000"},
	},
	{
		Name: "rectangle", Type: Rectangle, Subtype: SubtypeSquare,
		StyleEditable: StyleEditable{Color: true, Opacity: true, StrokeWidth: true},
		Style:         Style{Color: "#ff0000", Opacity: Float(1), StrokeWidth: Float(2)},
	},
	{
		Name: "circle", Type: Circle, Subtype: SubtypeCircle,
		StyleEditable: StyleEditable{Color: true, Opacity: true, StrokeWidth: true},
		Style:         Style{Color: "#ff0000", Opacity: Float(1), StrokeWidth: Float(2)},
	},
	{
		Name: "freehand", Type: FreeHand, Subtype: SubtypeInk,
		StyleEditable: StyleEditable{Color: true, Opacity: true, StrokeWidth: true},
		Style:         Style{Color: "#ff0000", Opacity: Float(1), StrokeWidth: Float(2)},
	},
	{
		Name: "freeHighlight", Type: FreeHighlight, Subtype: SubtypeHighlight,
		StyleEditable: StyleEditable{Color: true, Opacity: true},
		Style:         Style{Color: "#ffff00", Opacity: Float(0.5), StrokeWidth: Float(10)},
	},
	{
		Name: "signature", Type: Signature, Subtype: SubtypeStamp, IsOnce: true,
	},
	{
		Name: "stamp", Type: Stamp, Subtype: SubtypeStamp, IsOnce: true,
	},
	{
		Name: "note", Type: Note, Subtype: SubtypeText, IsOnce: true,
		StyleEditable: StyleEditable{Color: true},
		Style:         Style{Color: "#ffbe00"},
	},
	{
		Name: "arrow", Type: Arrow, Subtype: SubtypeLine,
		StyleEditable: StyleEditable{Color: true, Opacity: true, StrokeWidth: true},
		Style:         Style{Color: "#ff0000", Opacity: Float(1), StrokeWidth: Float(2)},
	},
	{
		Name: "cloud", Type: Cloud, Subtype: SubtypePolygon,
		StyleEditable: StyleEditable{Color: true, Opacity: true, StrokeWidth: true},
		Style:         Style{Color: "#ff0000", Opacity: Float(1), StrokeWidth: Float(2)},
	},
}

// DefinitionFor returns the definition of t.
func DefinitionFor(t Type) (Definition, bool) {
	for _, d := range Definitions {
		if d.Type == t {
			return d, true
		}
	}
	return Definition{}, false
}

// DefaultDefinition is the tool the painter falls back to after a one-shot
// kind commits.
func DefaultDefinition() Definition {
	return Definitions[0]
}

// DefinitionForSubtype returns the first definition authored with subtype s.
func DefinitionForSubtype(s Subtype) (Definition, bool) {
	for _, d := range Definitions {
		if d.Subtype == s && d.Type != Select {
			return d, true
		}
	}
	return Definition{}, false
}
