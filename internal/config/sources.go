package config

import "SignalPipeline/internal/domain"

// DefaultInstructions is the stock scoring policy handed verbatim to the
// reasoning service. Override it with scoring.instructions or
// scoring.instructionsFile; no code change is needed.
const DefaultInstructions = `Score the article from 0 to 100 using these criteria:
- Novelty: a new finding or announcement rather than known information (30 points)
- Reliability: primary source, peer reviewed or official announcement (25 points)
- Impact: affects the AI field as a whole (25 points)
- Usefulness: valuable to developers, researchers or business readers (20 points)

Score bands:
90+   = critical: major news that deserves immediate attention
75-89 = high: important update worth sharing widely
60-74 = normal: useful reference information
<60   = skip: do not publish`

// DefaultSources is the curated registry used when the config file lists none.
func DefaultSources() []domain.Source {
	return []domain.Source{
		// research and papers
		{URL: "https://arxiv.org/rss/cs.AI", Name: "arXiv AI", Category: domain.CategoryResearch, Trust: 95},
		{URL: "https://arxiv.org/rss/cs.LG", Name: "arXiv ML", Category: domain.CategoryResearch, Trust: 95},
		{URL: "https://deepmind.google/blog/rss.xml", Name: "DeepMind", Category: domain.CategoryResearch, Trust: 98},

		// official blogs
		{URL: "https://openai.com/blog/rss.xml", Name: "OpenAI", Category: domain.CategoryProduct, Trust: 99},
		{URL: "https://www.anthropic.com/rss.xml", Name: "Anthropic", Category: domain.CategoryProduct, Trust: 99},
		{URL: "https://ai.google/blog/rss", Name: "Google AI", Category: domain.CategoryProduct, Trust: 97},
		{URL: "https://ai.meta.com/blog/rss", Name: "Meta AI", Category: domain.CategoryProduct, Trust: 96},
		{URL: "https://mistral.ai/news/rss.xml", Name: "Mistral AI", Category: domain.CategoryProduct, Trust: 92},

		// tech press
		{URL: "https://techcrunch.com/tag/artificial-intelligence/feed/", Name: "TechCrunch", Category: domain.CategoryBusiness, Trust: 80},
		{URL: "https://www.technologyreview.com/feed/", Name: "MIT Tech Review", Category: domain.CategoryResearch, Trust: 90},
		{URL: "https://www.theverge.com/ai-artificial-intelligence/rss/index.xml", Name: "The Verge", Category: domain.CategoryProduct, Trust: 78},

		// policy and regulation
		{URL: "https://artificialintelligenceact.eu/feed/", Name: "EU AI Act", Category: domain.CategoryPolicy, Trust: 95},
		{URL: "https://www.nist.gov/artificial-intelligence/rss.xml", Name: "NIST", Category: domain.CategoryPolicy, Trust: 97},
	}
}
