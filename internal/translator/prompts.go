package translator

import (
	"fmt"

	"newsrelay/internal/language"
)

func alertTranslationPrompt(text string, src, target language.Code) string {
	return fmt.Sprintf(`You are an emergency alert translator. Your job is to translate urgent security alerts immediately and accurately while preserving ALL critical information.

CRITICAL REQUIREMENTS:
1. Preserve ALL location names, area names, and geographic references EXACTLY
2. Preserve ALL times, dates, and duration information EXACTLY
3. Preserve ALL security terminology and alert types
4. Maintain the URGENT tone and formatting
5. Keep ALL emojis and warning symbols
6. Do NOT add explanations or commentary
7. Translate quickly and accurately

TRANSLATE FROM %s TO %s:

---
%s
---

TRANSLATED ALERT:`, src.Name(), target.Name(), text)
}

func summaryPrompt(text string, src language.Code) string {
	return fmt.Sprintf(`You are a professional news summarizer. Take a %[1]s news message and create a clear, concise summary that captures the essential information.

CRITICAL REQUIREMENTS:
1. Create a clear, factual summary of the news content
2. Preserve all important names, places, dates, and numbers
3. Remove any channel branding, promotional text, or non-news content
4. Keep the tone professional and neutral
5. Focus on the key facts: WHO, WHAT, WHEN, WHERE, WHY
6. Maximum length: 2-3 sentences for short news, 4-5 sentences for longer articles
7. Write in %[1]s (same language as source)
8. Do NOT translate - only summarize

Respond ONLY with a JSON object of the form {"summary": "..."} and nothing else.

NEWS CONTENT TO SUMMARIZE:
---
%[2]s
---`, src.Name(), text)
}

func structuredTranslationPrompt(text string, src, target language.Code) string {
	return fmt.Sprintf(`Translate the following text from %s to %s.
Keep the meaning, tone and journalistic style of the original.
Respond ONLY with a JSON object of the form {"translation": "..."} and nothing else.

---
%s
---`, src.Name(), target.Name(), text)
}
