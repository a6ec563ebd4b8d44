package cell

// FontStyle is the emphasis of a cell.
type FontStyle string

const (
	FontNormal FontStyle = "normal"
	FontBold   FontStyle = "bold"
	FontItalic FontStyle = "italic"
)

// Style is the visual hint exporters apply to a cell. Colors are #RRGGBB;
// an empty BackgroundColor means no fill.
type Style struct {
	Color           string    `json:"color"`
	BackgroundColor string    `json:"background_color"`
	FontStyle       FontStyle `json:"font_style"`
}

var (
	neutralStyle = Style{Color: "#000000", FontStyle: FontNormal}

	bandRed    = Style{Color: "#9C0006", BackgroundColor: "#FFC7CE", FontStyle: FontNormal}
	bandOrange = Style{Color: "#9C5700", BackgroundColor: "#FFEB9C", FontStyle: FontNormal}
	bandGreen  = Style{Color: "#006100", BackgroundColor: "#C6EFCE", FontStyle: FontNormal}
	bandTop    = Style{Color: "#006100", BackgroundColor: "#C6EFCE", FontStyle: FontBold}
)

// labelStyles are fixed and take precedence over numeric bands.
var labelStyles = map[string]Style{
	LabelNotGraded:    {Color: "#595959", BackgroundColor: "#EDEDED", FontStyle: FontItalic},
	LabelAbsent:       {Color: "#7F6000", BackgroundColor: "#FFF2CC", FontStyle: FontNormal},
	LabelNotSubmitted: {Color: "#C00000", BackgroundColor: "#F8CBAD", FontStyle: FontBold},
	LabelDeactivated:  {Color: "#808080", BackgroundColor: "#D9D9D9", FontStyle: FontItalic},
	LabelNA:           {Color: "#A6A6A6", BackgroundColor: "", FontStyle: FontItalic},
}

// StyleFor returns the style of a display string: the fixed style of a
// status label, else the band of its leading number, else neutral.
func StyleFor(display string) Style {
	if s, ok := labelStyles[display]; ok {
		return s
	}
	v, ok := leadingNumber(display)
	if !ok {
		return neutralStyle
	}
	return band(v)
}

func band(v float64) Style {
	switch {
	case v < 5:
		return bandRed
	case v < 10:
		return bandOrange
	case v < 15:
		return bandGreen
	default:
		return bandTop
	}
}
