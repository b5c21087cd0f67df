package app

import (
	"strings"
	"testing"

	"github.com/HelpRelance/helprelance/app/models"
)

func sampleForm() models.GenerateRequest {
	return models.GenerateRequest{
		ServiceType:       "Création de site web",
		RelanceType:       "Facture impayée",
		DelayTime:         "2 semaines",
		PreviousFollowups: "1",
		Tone:              "professionnel",
		ClientName:        "Marie",
		Detail:            "facture n°42",
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(sampleForm())

	for _, want := range []string{
		"Création de site web",
		"Facture impayée",
		"Prénom du client : Marie",
		"Détail à mentionner : facture n°42",
		"EMAIL 1 - COURT",
		"EMAIL 2 - STANDARD",
		"EMAIL 3 - DÉTAILLÉ",
		"OBJET:",
		"CORPS:",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestBuildPromptOptionalFieldsOmitted(t *testing.T) {
	form := sampleForm()
	form.ClientName = ""
	form.Detail = ""
	prompt := BuildPrompt(form)

	if strings.Contains(prompt, "Prénom du client") {
		t.Fatalf("prompt should omit client name line")
	}
	if strings.Contains(prompt, "Détail à mentionner") {
		t.Fatalf("prompt should omit detail line")
	}
}

func validDrafts() string {
	return `EMAIL 1 - COURT
OBJET: Petit rappel concernant la facture n°42
CORPS:
Bonjour Marie, un petit rappel concernant la facture en attente.

EMAIL 2 - STANDARD
OBJET: Suivi de notre collaboration
CORPS:
Bonjour Marie,

Je me permets de revenir vers vous au sujet de la facture n°42.
Bien cordialement.

EMAIL 3 - DÉTAILLÉ
OBJET: Point sur la facture n°42 en attente de règlement
CORPS:
Bonjour Marie,

Je reviens vers vous concernant la facture n°42 émise il y a deux semaines.
Si ce n'est plus d'actualité, dites-le moi simplement.
Bien cordialement.
`
}

func TestParseDrafts(t *testing.T) {
	drafts, err := ParseDrafts(validDrafts())
	if err != nil {
		t.Fatalf("ParseDrafts error = %v", err)
	}
	if len(drafts) != DraftCount {
		t.Fatalf("got %d drafts, want %d", len(drafts), DraftCount)
	}
	if drafts[0].Subject != "Petit rappel concernant la facture n°42" {
		t.Fatalf("draft 1 subject = %q", drafts[0].Subject)
	}
	if !strings.HasPrefix(drafts[1].Body, "Bonjour Marie,") {
		t.Fatalf("draft 2 body = %q", drafts[1].Body)
	}
	if drafts[2].Label != "DÉTAILLÉ" {
		t.Fatalf("draft 3 label = %q", drafts[2].Label)
	}
}

func TestParseDraftsAllOrNothing(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"prose", "Voici vos emails de relance, bonne journée."},
		{"two drafts only", `EMAIL 1 - COURT
OBJET: Rappel
CORPS:
Bonjour.

EMAIL 2 - STANDARD
OBJET: Suivi
CORPS:
Bonjour, je reviens vers vous.
`},
		{"missing subject", `EMAIL 1 - COURT
CORPS:
Bonjour.

EMAIL 2 - STANDARD
OBJET: Suivi
CORPS:
Bonjour.

EMAIL 3 - DÉTAILLÉ
OBJET: Point
CORPS:
Bonjour.
`},
		{"empty body", `EMAIL 1 - COURT
OBJET: Rappel
CORPS:

EMAIL 2 - STANDARD
OBJET: Suivi
CORPS:
Bonjour.

EMAIL 3 - DÉTAILLÉ
OBJET: Point
CORPS:
Bonjour.
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseDrafts(tc.text); err == nil {
				t.Fatalf("expected parse failure")
			}
		})
	}
}
