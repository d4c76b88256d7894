package eval

// Category describes how much of a question's answer exists in the corpus.
type Category string

const (
	// Answerable questions have a clear answer in the policy documents.
	Answerable Category = "ANSWERABLE"
	// PartiallyAnswerable questions are only partly covered by the documents.
	PartiallyAnswerable Category = "PARTIALLY_ANSWERABLE"
	// Unanswerable questions have no relevant information at all; the only
	// passing answer is a decline.
	Unanswerable Category = "UNANSWERABLE"
)

// Question is one entry of the fixed evaluation set.
type Question struct {
	ID             int      `json:"id"`
	Question       string   `json:"question"`
	Category       Category `json:"category"`
	Keywords       []string `json:"expected_keywords"`
	GroundTruth    string   `json:"ground_truth"`
	ExpectedSource string   `json:"expected_source,omitempty"`
}

// DefaultQuestions returns the standard evaluation set covering all three
// categories. Keywords are matched as case-insensitive substrings of the
// answer.
func DefaultQuestions() []Question {
	return []Question{
		{
			ID:       1,
			Question: "How long does it take to process a refund?",
			Category: Answerable,
			Keywords: []string{"7-10", "business days", "refund", "original payment method"},
			GroundTruth: "Approved refunds are typically processed within 7-10 business days. " +
				"Refunds are issued to the original payment method where possible; otherwise, " +
				"a credit note or service credit may be provided.",
			ExpectedSource: "refund_policy.md",
		},
		{
			ID:       2,
			Question: "What is the refund policy for annual subscriptions and what discounts are available?",
			Category: PartiallyAnswerable,
			Keywords: []string{"non-refundable", "billing period", "subscription", "not available"},
			GroundTruth: "Monthly and annual subscription fees are generally non-refundable once a " +
				"billing period has started. No information about discounts is available in the " +
				"policy documents.",
			ExpectedSource: "refund_policy.md",
		},
		{
			ID:       3,
			Question: "Can I get a refund if I cancel after the project starts, and who is my account manager?",
			Category: PartiallyAnswerable,
			Keywords: []string{"work completed", "third-party", "credit", "not available"},
			GroundTruth: "After project start, you pay for all work completed and committed third-party " +
				"costs. Prepaid unused phases may be partially refunded or credited per contract. " +
				"Account manager information is not available in the policy documents.",
			ExpectedSource: "cancellation_policy.md",
		},
		{
			ID:       4,
			Question: "Does Neura Dynamics offer a free trial period?",
			Category: Unanswerable,
			Keywords: []string{"not available", "not mentioned"},
			GroundTruth: "This information is not available in the provided policy documents. " +
				"Free trials are never mentioned.",
		},
		{
			ID:       5,
			Question: "What programming languages and tech stack does Neura Dynamics use internally?",
			Category: Unanswerable,
			Keywords: []string{"not available", "not covered"},
			GroundTruth: "This information is not available in the provided policy documents. " +
				"Internal tech stack details are not covered.",
		},
	}
}
