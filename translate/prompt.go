package translate

import (
	"fmt"
	"strings"
)

const promptTemplate = "You are an expert translator, translating items in a `.po` file to localize a software application.\n" +
	"- You must always choose the most likely translation based on limited context, or if you have doubts, return the original English text.\n" +
	"- Do not wrap your translation in quotes or other formatting.\n" +
	"- Ensure that variable names, links etc are preserved verbatim.\n" +
	"- All items in braces must be preserved verbatim.\n" +
	"- Don't include any context on how you arrived at your translation\n" +
	"- If you can't translate with confidence, set the `failed` key in your response to `true`\n" +
	"- For context, the surrounding texts in the file are %s. Don't translate these; just use them as hints as to meaning of ambiguous words.%s\n" +
	"- Put the finished translation into the key `translation` in your JSON response\n" +
	"- Make sure that the JSON you produce is correct; in particular you must make sure that newlines are formatted as \\n not as actual newlines.\n" +
	"- If the text you are translating begins and/or ends with a newline, make sure that the translation does too.\n" +
	"\n" +
	"Please translate the following text from English into language with ISO-code `%s`:\n" +
	"\n" +
	"%s"

const contextLine = "\n- The msgctx of the string you have been asked to translate is \"%s\". Remember, you shouldn't translate this but it might help with ambiguity of the text."

// SurroundingTexts returns the source texts of the work items before and
// after index, each wrapped in double quotes. Missing or empty neighbours
// are left out.
func SurroundingTexts(items []WorkItem, index int) []string {
	var out []string
	if index > 0 && items[index-1].MsgID != "" {
		out = append(out, `"`+items[index-1].MsgID+`"`)
	}
	if index+1 < len(items) && items[index+1].MsgID != "" {
		out = append(out, `"`+items[index+1].MsgID+`"`)
	}
	return out
}

// BuildPrompt renders the full user turn for one work item. The output
// depends only on its arguments.
func BuildPrompt(text, msgctxt string, surrounding []string, targetLang string) string {
	context := ""
	if msgctxt != "" {
		context = fmt.Sprintf(contextLine, msgctxt)
	}
	return fmt.Sprintf(promptTemplate, strings.Join(surrounding, ", "), context, targetLang, text)
}
