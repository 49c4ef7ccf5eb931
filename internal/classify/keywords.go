package classify

// defaultKeywordLists returns the reference multilingual keyword lists.
// Keyword-match dimensions operate by case-insensitive substring inclusion
// against a normalized (lowercased) haystack; see matchCount in classifier.go.
func defaultKeywordLists() KeywordLists {
	return KeywordLists{
		ReasoningMarkers: []string{
			"step by step", "step-by-step", "prove", "proof", "explain why",
			"reasoning", "why does", "why is", "how does", "walk me through",
			"分析", "证明", "解释", "步骤", "推理",
		},
		TechnicalTerms: []string{
			"algorithm", "complexity", "architecture", "concurrency",
			"api", "database", "protocol", "framework", "runtime",
			"compiler", "kernel", "asynchronous", "distributed",
			"encryption", "regex", "pointer", "recursion",
		},
		CreativeMarkers: []string{
			"story", "poem", "creative", "imagine", "fictional",
			"narrative", "character", "metaphor", "compose a song",
		},
		SimpleIndicators: []string{
			"what is 2+2", "what's the capital", "what time is it",
			"hello", "hi there", "thanks", "thank you", "yes or no",
			"quick question", "simple question",
		},
		QuestionWords: []string{
			"怎么", "如何", "怎样",
		},
		ImperativeVerbs: []string{
			"write", "create", "build", "implement", "generate", "make",
			"add", "remove", "delete", "update", "fix", "configure",
		},
		ConstraintWords: []string{
			"must", "should not", "cannot", "requires", "limited to",
			"no more than", "at least", "within", "constraint",
		},
		OutputFormatWords: []string{
			"json", "yaml", "table", "markdown", "csv", "xml", "bullet points",
			"numbered list", "code block",
		},
		ReferenceWords: []string{
			"as mentioned", "referring to", "as above", "the previous",
			"that file", "this function", "aforementioned",
		},
		NegationWords: []string{
			"not", "never", "without", "except", "neither", "nor",
		},
		DomainWords: []string{
			"kubernetes", "blockchain", "cryptography", "quantum",
			"genomics", "thermodynamics", "embeddings", "tokenizer",
		},
		AgenticVerbs: []string{
			"search the web", "browse", "run the command", "execute",
			"use the tool", "call the api", "click", "navigate to",
			"open the file", "install", "deploy", "schedule",
		},
		TechnicalCodeKeywords: []string{
			"function", "class", "import", "package", "def ", "return ",
			"variable", "compile", "stack trace", "exception",
		},
	}
}
