package features

// Canonical feature names produced by the linguistic extraction service.
const (
	WordCount               = "wordCount"
	SentenceCount           = "sentenceCount"
	AverageWordsPerSentence = "averageWordsPerSentence"
	TypeTokenRatio          = "typeTokenRatio"
	VocabularySize          = "vocabularySize"
	LexicalDiversity        = "lexicalDiversity"
	ComplexWordRatio        = "complexWordRatio"
	AverageWordLength       = "averageWordLength"
	CognitiveHealthScore    = "cognitiveHealthScore"
	SyntacticComplexity     = "syntacticComplexity"
	InformationDensity      = "informationDensity"
	HesitationRatio         = "hesitationRatio"
)

// Neutral is substituted for any missing or non-finite measurement.
const Neutral = 0.5

var names = []string{
	WordCount,
	SentenceCount,
	AverageWordsPerSentence,
	TypeTokenRatio,
	VocabularySize,
	LexicalDiversity,
	ComplexWordRatio,
	AverageWordLength,
	CognitiveHealthScore,
	SyntacticComplexity,
	InformationDensity,
	HesitationRatio,
}

// Names returns the enumerated feature names in canonical order. The returned slice is a copy.
func Names() []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Known reports whether name belongs to the enumeration.
func Known(name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
