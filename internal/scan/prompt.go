package scan

// Choice is a follow-up action offered by the decision prompt.
type Choice string

const (
	ChoiceOpen      Choice = "open"
	ChoiceScanAgain Choice = "scan_again"
	ChoiceBack      Choice = "back"
)

// Label is the button text for c.
func (c Choice) Label() string {
	switch c {
	case ChoiceOpen:
		return "Open link"
	case ChoiceScanAgain:
		return "Scan again"
	case ChoiceBack:
		return "Back"
	default:
		return string(c)
	}
}

// Titles are the prompt titles per payload kind.
type Titles struct {
	Link string `yaml:"link"`
	Code string `yaml:"code"`
}

// DefaultTitles are used when a scanner profile sets none.
var DefaultTitles = Titles{Link: "Link detected!", Code: "Code read!"}

// Prompt is the decision shown for a locked payload.
type Prompt struct {
	Title   string
	Message string
	Choices []Choice
	Payload Payload
}

// Offers reports whether c is one of the prompt's choices.
func (p Prompt) Offers(c Choice) bool {
	for _, o := range p.Choices {
		if o == c {
			return true
		}
	}
	return false
}

// BuildPrompt constructs the prompt for p. "scan again" and "back" are
// always offered; "open" only for URLs.
func BuildPrompt(p Payload, titles Titles) Prompt {
	if titles.Link == "" {
		titles.Link = DefaultTitles.Link
	}
	if titles.Code == "" {
		titles.Code = DefaultTitles.Code
	}

	prompt := Prompt{
		Title:   titles.Code,
		Message: p.Text,
		Payload: p,
	}
	if p.Kind == KindURL {
		prompt.Title = titles.Link
		prompt.Choices = append(prompt.Choices, ChoiceOpen)
	}
	prompt.Choices = append(prompt.Choices, ChoiceScanAgain, ChoiceBack)
	return prompt
}
