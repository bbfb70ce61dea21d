// Package persona selects and orders the response-behavior contracts sent to
// the generation model. Each persona is a tagged template record; assembling
// a profile is a pure fold over the classified task list, so it can be tested
// without calling any model.
package persona

import (
	"strings"

	"codeassist/internal/segregate"
)

// ID names a persona.
type ID string

const (
	Modify  ID = "modify"
	Debug   ID = "debug"
	Explain ID = "explain"
	General ID = "general"
)

// Persona is one response-behavior contract.
type Persona struct {
	ID   ID
	Body string
}

var byID = map[ID]Persona{
	Modify:  {ID: Modify, Body: modifyBody},
	Debug:   {ID: Debug, Body: debugBody},
	Explain: {ID: Explain, Body: explainBody},
	General: {ID: General, Body: generalBody},
}

// Assemble derives the ordered, de-duplicated persona set required to answer
// every task. A debug task always pulls in the modification persona first, so
// the fix can be expressed as a code edit; every persona appears at most once,
// in first-triggered order.
func Assemble(tasks []segregate.Task) []Persona {
	var out []Persona
	added := map[ID]bool{}
	add := func(id ID) {
		if added[id] {
			return
		}
		added[id] = true
		out = append(out, byID[id])
	}
	for _, t := range tasks {
		switch t.Type {
		case segregate.TypeModify:
			add(Modify)
		case segregate.TypeDebug:
			add(Modify)
			add(Debug)
		case segregate.TypeExplain:
			add(Explain)
		case segregate.TypeGeneral:
			add(General)
		}
	}
	return out
}

// Profile concatenates the orchestration preamble and the selected persona
// bodies into the system instruction for the generation call.
func Profile(personas []Persona) string {
	var b strings.Builder
	b.WriteString(preamble)
	for _, p := range personas {
		b.WriteString("\n\n")
		b.WriteString(p.Body)
	}
	return b.String()
}
