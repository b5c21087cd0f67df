package app

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/HelpRelance/helprelance/app/models"
)

// DraftCount is the number of labeled drafts every generation must yield.
// Fewer parsed drafts means the whole generation failed.
const DraftCount = 3

// Draft is one parsed subject+body pair.
type Draft struct {
	Label   string
	Subject string
	Body    string
}

var draftLabels = [DraftCount]string{"COURT", "STANDARD", "DÉTAILLÉ"}

// BuildPrompt renders the chase-email form into the fixed textual
// template the collaborator must follow.
func BuildPrompt(form models.GenerateRequest) string {
	parts := []string{
		"Tu es un expert en communication freelance. Génère 3 emails de relance professionnels basés sur ces informations :",
		"",
		"- Service proposé : " + form.ServiceType,
		"- Type de relance : " + form.RelanceType,
		"- Délai sans réponse : " + form.DelayTime,
		"- Nombre de relances déjà faites : " + form.PreviousFollowups,
		"- Ton souhaité : " + form.Tone,
	}

	if form.ClientName != "" {
		parts = append(parts, "- Prénom du client : "+form.ClientName)
	}
	if form.Detail != "" {
		parts = append(parts, "- Détail à mentionner : "+form.Detail)
	}

	parts = append(parts,
		"",
		"INSTRUCTIONS IMPORTANTES :",
		"1. Génère exactement 3 emails : un court (3-4 lignes), un standard (6-8 lignes), et un détaillé (10-12 lignes)",
		"2. Pour chaque email, fournis OBLIGATOIREMENT :",
		"   - Un objet d'email accrocheur et personnalisé",
		"   - Le corps du message",
		"3. Utilise ce format EXACT (respecte bien les balises) :",
		"",
	)
	for i, label := range draftLabels {
		parts = append(parts,
			fmt.Sprintf("EMAIL %d - %s", i+1, label),
			"OBJET: [ton objet ici]",
			"CORPS:",
			"[ton message ici]",
			"",
		)
	}
	parts = append(parts,
		"RÈGLES POUR LES EMAILS :",
		"- Sois poli mais confiant, jamais suppliant",
		"- Crée un léger sentiment d'urgence sans être agressif",
		"- Offre une porte de sortie au client (\"Si ce n'est plus d'actualité...\")",
		"- Reste professionnel même avec un ton amical",
		"- Utilise le prénom du client si fourni",
		"- Mentionne le détail spécifique si fourni",
		"- Adapte le niveau d'insistance selon le nombre de relances précédentes",
		"- Pour les factures impayées, reste ferme mais courtois",
		"",
		"Génère maintenant les 3 emails en respectant strictement le format ci-dessus.",
	)

	return strings.Join(parts, "\n")
}

var (
	reDraftHeader = regexp.MustCompile(`(?m)^\s*EMAIL\s+(\d)\s*(?:-\s*(\S+))?\s*$`)
	reSubject     = regexp.MustCompile(`(?m)^\s*OBJET:\s*(.*)$`)
	reBodyMarker  = regexp.MustCompile(`(?m)^\s*CORPS:\s*$|^\s*CORPS:\s*`)
)

// ParseDrafts recovers exactly three subject+body pairs from the
// collaborator's raw text. All three or none: any shortfall is an error
// and the caller must not charge or return partial results.
func ParseDrafts(text string) ([]Draft, error) {
	headers := reDraftHeader.FindAllStringSubmatchIndex(text, -1)
	if len(headers) < DraftCount {
		return nil, fmt.Errorf("expected %d drafts, found %d headers", DraftCount, len(headers))
	}

	drafts := make([]Draft, 0, DraftCount)
	for i := 0; i < DraftCount; i++ {
		start := headers[i][1]
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		block := text[start:end]

		subjMatch := reSubject.FindStringSubmatchIndex(block)
		if subjMatch == nil {
			return nil, fmt.Errorf("draft %d: missing OBJET line", i+1)
		}
		subject := strings.TrimSpace(block[subjMatch[2]:subjMatch[3]])

		bodyMarker := reBodyMarker.FindStringIndex(block[subjMatch[1]:])
		if bodyMarker == nil {
			return nil, fmt.Errorf("draft %d: missing CORPS marker", i+1)
		}
		body := strings.TrimSpace(block[subjMatch[1]+bodyMarker[1]:])

		if subject == "" || body == "" {
			return nil, fmt.Errorf("draft %d: empty subject or body", i+1)
		}

		label := ""
		if headers[i][4] != -1 {
			label = text[headers[i][4]:headers[i][5]]
		}
		drafts = append(drafts, Draft{Label: label, Subject: subject, Body: body})
	}

	return drafts, nil
}
