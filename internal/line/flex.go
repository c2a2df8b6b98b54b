package line

// Flex message containers for the LINE Messaging API. Only the subset used
// by the verdict card is modeled; FlexComponent is a flattened union of the
// box, text, separator and filler component types.

type FlexBubble struct {
	Type   string         `json:"type"`
	Size   string         `json:"size,omitempty"`
	Header *FlexComponent `json:"header,omitempty"`
	Hero   *FlexComponent `json:"hero,omitempty"`
	Body   *FlexComponent `json:"body,omitempty"`
}

type FlexComponent struct {
	Type            string           `json:"type"`
	Layout          string           `json:"layout,omitempty"`
	Contents        []*FlexComponent `json:"contents,omitempty"`
	Text            string           `json:"text,omitempty"`
	Size            string           `json:"size,omitempty"`
	Weight          string           `json:"weight,omitempty"`
	Color           string           `json:"color,omitempty"`
	Align           string           `json:"align,omitempty"`
	Wrap            bool             `json:"wrap,omitempty"`
	Margin          string           `json:"margin,omitempty"`
	Spacing         string           `json:"spacing,omitempty"`
	Flex            *int             `json:"flex,omitempty"`
	Width           string           `json:"width,omitempty"`
	Height          string           `json:"height,omitempty"`
	CornerRadius    string           `json:"cornerRadius,omitempty"`
	BackgroundColor string           `json:"backgroundColor,omitempty"`
	PaddingAll      string           `json:"paddingAll,omitempty"`
}

func NewBubble() *FlexBubble {
	return &FlexBubble{Type: "bubble"}
}

func Box(layout string, contents ...*FlexComponent) *FlexComponent {
	return &FlexComponent{Type: "box", Layout: layout, Contents: contents}
}

func Text(text string) *FlexComponent {
	return &FlexComponent{Type: "text", Text: text}
}

func Separator() *FlexComponent {
	return &FlexComponent{Type: "separator"}
}

func Filler() *FlexComponent {
	return &FlexComponent{Type: "filler"}
}
