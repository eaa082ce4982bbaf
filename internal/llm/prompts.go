package llm

const categorizePrompt = `You are a memory categorization system. Classify the following text.

Determine:
- primary: the main category (e.g. "technical", "question", "issue", "education", "general")
- secondary: a more specific subcategory, or omit
- tags: up to 5 short topical tags
- confidence: 0.0-1.0 self-assessment of the classification

Respond ONLY with JSON, no markdown fences:
{"primary":"technical","secondary":"infrastructure","tags":["database","performance"],"confidence":0.85}

Text:
%s`

const extractBeliefsPrompt = `You are a belief extraction system. Analyze the following text and extract distinct beliefs the agent should hold.

For each belief:
- statement: a single declarative sentence, at most 300 characters
- confidence: 0.0-1.0 based on how directly the text supports it
- polarity: "positive" if the statement asserts something, "negative" if it denies or negates

The text was categorized as "%s".

Respond ONLY with a JSON array. No markdown, no explanation. Example:
[{"statement":"The sky is blue","confidence":0.9,"polarity":"positive"}]

If no beliefs can be extracted, respond with an empty array: []

Text:
%s`

const mergePrompt = `These two statements conflict but should be merged into a single belief that captures what is most likely true of both.

Old belief: %s
New statement: %s

Respond with ONLY the merged declarative sentence, at most 300 characters. No explanation.`
