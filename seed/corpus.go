package seed

var entries = Corpus{
	{
		ID:       "company-overview",
		Category: "general",
		Topic:    "about aven",
		Content:  "Aven is a financial technology company that offers a home equity backed credit card. Homeowners can access the equity in their home through a card with rates that are usually lower than traditional unsecured credit cards.",
	},
	{
		ID:       "card-how-it-works",
		Category: "features",
		Topic:    "home equity credit card",
		Content:  "The Aven card is a Visa card secured by a home equity line of credit. Purchases draw on the line, and the balance can be repaid over time. Credit limits depend on available home equity and income.",
	},
	{
		ID:       "interest-rates",
		Category: "features",
		Topic:    "interest rates",
		Content:  "Aven card rates are variable and tied to the prime rate. Because the line is secured by home equity, rates are typically lower than those of unsecured credit cards. The exact rate is shown during the application.",
	},
	{
		ID:       "cashback-rewards",
		Category: "features",
		Topic:    "rewards",
		Content:  "Cardholders earn unlimited cashback on eligible purchases. Rewards are credited automatically to the account and can be applied to the balance.",
	},
	{
		ID:       "annual-fee",
		Category: "account",
		Topic:    "fees",
		Content:  "There is no annual fee for the Aven card. Some transactions, such as cash advances or balance transfers, may carry a fee that is disclosed before you confirm them.",
	},
	{
		ID:       "balance-transfer",
		Category: "features",
		Topic:    "balance transfer",
		Content:  "You can move balances from higher rate credit cards onto your Aven card with a balance transfer. The transfer fee and any promotional rate are shown in the app before you submit the request.",
	},
	{
		ID:       "application-process",
		Category: "account",
		Topic:    "applying",
		Content:  "Applying takes a few minutes online. The application checks your identity, income and home value, and a soft credit pull lets you see offers without affecting your credit score.",
	},
	{
		ID:       "eligibility",
		Category: "account",
		Topic:    "eligibility",
		Content:  "To qualify you must own a home with sufficient equity, have verifiable income and meet credit requirements. The home must be in a state where Aven offers the card.",
	},
	{
		ID:       "making-payments",
		Category: "account",
		Topic:    "payments",
		Content:  "Monthly payments can be made in the Aven app or website by linking a bank account. Autopay is available so the minimum payment or full statement balance is paid on the due date.",
	},
	{
		ID:       "mobile-app",
		Category: "features",
		Topic:    "mobile app",
		Content:  "The Aven app lets you check your balance, review transactions, make payments, request balance transfers and lock your card if it is lost.",
	},
	{
		ID:       "lost-card",
		Category: "support",
		Topic:    "lost or stolen card",
		Content:  "If your card is lost or stolen, lock it immediately in the app and contact customer support to request a replacement card.",
	},
	{
		ID:       "disputes",
		Category: "support",
		Topic:    "disputes",
		Content:  "To dispute a charge, open the transaction in the app and choose report a problem, or contact customer support. Disputes should be filed within 60 days of the statement date.",
	},
	{
		ID:       "security",
		Category: "support",
		Topic:    "security",
		Content:  "Aven uses encryption and fraud monitoring to protect accounts. Aven will never ask for your full password or one-time passcode by phone or email.",
	},
	{
		ID:       "customer-support",
		Category: "support",
		Topic:    "contact support",
		Content:  "Customer support is available by phone and email. You can also reach support through the help center in the Aven app.",
	},
}
