package demo

import (
	"fmt"
	"regexp"
	"strings"
)

type specialtyRule struct {
	specialty string
	pattern   *regexp.Regexp
}

func keywordRule(specialty string, keywords ...string) specialtyRule {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return specialtyRule{
		specialty: specialty,
		pattern:   regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)`),
	}
}

// Ordered: "chest pain" must reach Cardiology before the generic "pain".
var specialtyRules = []specialtyRule{
	keywordRule("Dermatology", "skin", "rash", "itch", "acne", "eczema", "psoriasis", "dermat"),
	keywordRule("Cardiology", "heart", "chest pain", "palpitation", "cardio", "blood pressure", "bp"),
	keywordRule("Ophthalmology", "eye", "vision", "blurry"),
	keywordRule("Dentistry", "tooth", "teeth", "dental", "toothache", "cavity", "gum"),
	keywordRule("General Medicine", "fever", "cough", "cold", "headache", "pain", "sick", "ill", "general physician", "gp", "physician"),
}

var bookIntent = regexp.MustCompile(`(?i)\b(book|appointment|reserve|schedule|need (?:a )?doctor|confirm)\b`)

// reply is the demo's answer to one turn.
type reply struct {
	text      string
	expect    string
	doctorIDs []int
}

func detectSpecialty(text string) (string, bool) {
	for _, r := range specialtyRules {
		if r.pattern.MatchString(text) {
			return r.specialty, true
		}
	}
	return "", false
}

func (s *Server) decide(text string) reply {
	wantsBooking := bookIntent.MatchString(text)
	if wantsBooking {
		if d, ok := s.store.DoctorMentionedIn(text); ok {
			return reply{
				text:      fmt.Sprintf("Okay, I'll prepare a booking with %s (%s). May I have the patient's name, please?", d.Name, d.Specialization),
				expect:    "ask_patient_info",
				doctorIDs: []int{d.ID},
			}
		}
	}
	if specialty, ok := detectSpecialty(text); ok {
		return reply{text: fmt.Sprintf("Based on that, I suggest %s.", specialty)}
	}
	if wantsBooking {
		return reply{
			text:   "Sure, let's get you booked. Please fill in the patient details.",
			expect: "ask_patient_info",
		}
	}
	return reply{
		text:   "Could you describe your symptoms so I can find the right specialist?",
		expect: "ask_complaint",
	}
}
