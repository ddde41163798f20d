package translate

import (
	"context"
	"fmt"
	"log"
	"strings"

	"astrolynx-be/pkg/llm"
)

const toEnglishPrompt = `Translate the following text from %s to English. Provide only the translated text, without any additional comments or formatting:

%s`

const toTargetPrompt = `Translate the following English text to %s. Provide only the translated text, without any additional comments or formatting:

%s`

const toHinglishPrompt = `Translate the following English text into Hinglish (a natural mix of Hindi and English, using latin script for Hindi words and English words both). Maintain the original meaning and tone. Provide only the translated text, without any additional comments or formatting:

%s`

// Translator converts turn text between English and the requested target
// language with single model calls. "en" is always the identity.
type Translator struct {
	llmProvider llm.Provider
	logger      *log.Logger
}

func NewTranslator(llmProvider llm.Provider, logger *log.Logger) *Translator {
	return &Translator{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// ToEnglish translates user input into English. On any failure the original
// text passes through so the turn can proceed.
func (t *Translator) ToEnglish(ctx context.Context, text, sourceLang string) string {
	if sourceLang == "en" || text == "" {
		return text
	}

	translated, err := t.llmProvider.Generate(ctx, fmt.Sprintf(toEnglishPrompt, sourceLang, text))
	if err != nil {
		t.logger.Printf("[TRANSLATE] to-English translation failed, keeping original: %v", err)
		return text
	}
	return strings.TrimSpace(translated)
}

// ToTarget translates the English answer into the target language. "hi-en"
// gets a Hinglish-specific prompt. Failures pass the English text through.
func (t *Translator) ToTarget(ctx context.Context, text, targetLang string) string {
	if targetLang == "en" || text == "" {
		return text
	}

	var prompt string
	if targetLang == "hi-en" {
		prompt = fmt.Sprintf(toHinglishPrompt, text)
	} else {
		prompt = fmt.Sprintf(toTargetPrompt, targetLang, text)
	}

	translated, err := t.llmProvider.Generate(ctx, prompt)
	if err != nil {
		t.logger.Printf("[TRANSLATE] to-%s translation failed, keeping English: %v", targetLang, err)
		return text
	}
	return strings.TrimSpace(translated)
}
