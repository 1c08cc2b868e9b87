package rag

import (
	"fmt"
	"strings"

	"github.com/cartableai/cartable/pkg/vector"
)

// historyWindow is how many trailing history messages are rendered into the
// prompt. Older messages are dropped.
const historyWindow = 6

// System prompts for the three answer modes. The assistant speaks French;
// these are user-facing behavior, not code.
const (
	// systemAttributed grounds the answer strictly in retrieved context and
	// demands an explicit source listing at the end.
	systemAttributed = "Tu es un assistant précis basé sur des documents. " +
		"Réponds à la question en utilisant UNIQUEMENT les informations du CONTEXTE DOCUMENTAIRE ci-dessous. " +
		"À la fin de ta réponse, tu DOIS lister explicitement les fichiers sources utilisés sous la forme : " +
		"'Sources : nom_du_fichier.pdf'. " +
		"Si l'information n'est pas dans le contexte, dis simplement que tu ne trouves pas l'information dans les documents."

	// systemNatural uses retrieved context silently; the answer must not
	// reveal that documents were consulted.
	systemNatural = "Tu es un assistant pédagogique expert. " +
		"Utilise les informations du CONTEXTE DOCUMENTAIRE pour construire ta réponse, " +
		"MAIS réponds de manière totalement naturelle et fluide, comme un humain. " +
		"Ne mentionne PAS 'selon le document' ou 'dans le contexte'. " +
		"Ne cite PAS les noms de fichiers ou les sources. Donne juste la réponse directe. " +
		"Si l'information n'est pas dans le contexte, réponds avec tes connaissances générales."

	// systemFallback answers from general knowledge when retrieval found
	// nothing relevant.
	systemFallback = "Tu es un assistant qui aide les éléves ingénieurs . " +
		"Réponds clairement, de façon utile et structurée."
)

// UnknownSource labels context chunks whose source metadata is missing.
const UnknownSource = "Inconnu"

// renderHistory formats the last historyWindow messages as a bullet list.
func renderHistory(history []string) string {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	lines := make([]string, len(history))
	for i, msg := range history {
		lines[i] = "- " + msg
	}
	return strings.Join(lines, "\n")
}

// renderContext formats retrieved chunks as labeled blocks so the model can
// attribute content to its source file.
func renderContext(matches []vector.ScoredMatch) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		source := m.Source
		if source == "" {
			source = UnknownSource
		}
		parts[i] = fmt.Sprintf("--- SOURCE: %s ---\nCONTENU: %s", source, m.Text)
	}
	return strings.Join(parts, "\n\n")
}

// groundedPrompts builds the system and user prompts for a context-grounded
// answer. attributed selects the mode that cites sources.
func groundedPrompts(question string, history []string, matches []vector.ScoredMatch, attributed bool) (string, string) {
	system := systemNatural
	if attributed {
		system = systemAttributed
	}

	user := strings.TrimSpace(fmt.Sprintf(`
[HISTORIQUE]
%s

[CONTEXTE DOCUMENTAIRE]
%s

[QUESTION]
%s
`, renderHistory(history), renderContext(matches), question))

	return system, user
}

// fallbackPrompts builds the system and user prompts for an answer without
// document context.
func fallbackPrompts(question string, history []string) (string, string) {
	user := strings.TrimSpace(fmt.Sprintf(`
[HISTORIQUE RÉCENT]
%s

[QUESTION]
%s
`, renderHistory(history), question))

	return systemFallback, user
}
