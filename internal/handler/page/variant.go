package page

// Variant selects which of the two chat front-ends a page handler renders.
type Variant struct {
	Name      string
	PageTitle string
	Heading   string
	Template  string
	// Stream requests the reply as a stream of fragments instead of one message.
	Stream bool
}

var (
	// Chatbot is the styled transcript page whose input clears after every turn.
	Chatbot = Variant{
		Name:      "chatbot",
		PageTitle: "Gemini Chatbot",
		Heading:   "Gemini LLM Chatbot",
		Template:  "chatbot.html",
		Stream:    false,
	}

	// QA is the question/answer page that shows the latest reply above the history.
	QA = Variant{
		Name:      "qa",
		PageTitle: "Q&A Demo",
		Heading:   "Gemini LLM Application",
		Template:  "qa.html",
		Stream:    true,
	}
)
