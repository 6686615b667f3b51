package answer

var suggestions = map[string][]string{
	"general": {
		"What is Aven and how does it work?",
		"How can I apply for an Aven credit card?",
		"What are the fees associated with Aven?",
		"How does the balance transfer work?",
		"What cashback rewards does Aven offer?",
	},
	"account": {
		"How do I check my balance?",
		"How can I make a payment?",
		"Can I increase my credit limit?",
		"How do I update my personal information?",
		"Where can I find my statements?",
	},
	"support": {
		"How do I report a lost or stolen card?",
		"How can I dispute a charge?",
		"What should I do if I'm having financial difficulties?",
		"How do I contact customer support?",
		"Is my information secure with Aven?",
	},
	"features": {
		"What debt management tools does Aven offer?",
		"How does the mobile app work?",
		"Can I set up automatic payments?",
		"What security features protect my account?",
		"How do I earn and redeem cashback?",
	},
}

// SuggestedQuestions returns starter questions for category. Unknown
// categories get the general set.
func SuggestedQuestions(category string) []string {
	qs, ok := suggestions[category]
	if !ok {
		qs = suggestions["general"]
	}
	return append([]string(nil), qs...)
}
