package service

import (
	"sync"

	"spothire/internal/codegen"
	"spothire/internal/logging"
	"spothire/internal/repository/repotest"
	"spothire/internal/seed"
)

type emitted struct {
	event   string
	payload interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []emitted
}

func (n *recordingNotifier) Emit(event string, payload interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, emitted{event: event, payload: payload})
	return nil
}

func (n *recordingNotifier) byName(event string) []interface{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []interface{}
	for _, e := range n.events {
		if e.event == event {
			out = append(out, e.payload)
		}
	}
	return out
}

// fixedCodes yields the given codes in order, then repeats the last one.
func fixedCodes(codes ...string) codegen.Generator {
	var mu sync.Mutex
	i := 0
	return codegen.GeneratorFunc(func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return c, nil
	})
}

type harness struct {
	sessions   *repotest.Sessions
	candidates *repotest.Candidates
	templates  *repotest.Templates
	notifier   *recordingNotifier

	candidateSvc *CandidateService
	sessionSvc   *SessionService
	templateSvc  *TemplateService
	matchingSvc  *MatchingService
}

func newHarness(codes codegen.Generator) *harness {
	log := logging.Nop()
	h := &harness{
		sessions:   repotest.NewSessions(),
		candidates: repotest.NewCandidates(),
		templates:  repotest.NewTemplates(),
		notifier:   &recordingNotifier{},
	}
	if codes == nil {
		codes = codegen.NewRandom()
	}

	src := seed.NewSource()
	h.candidateSvc = NewCandidateService(h.candidates, src, "JP Nagar", log)
	h.templateSvc = NewTemplateService(h.templates, src, log)
	h.matchingSvc = NewMatchingService(h.candidateSvc, h.templateSvc, log)
	h.sessionSvc = NewSessionService(h.sessions, h.candidateSvc, codes, log)
	h.sessionSvc.SetNotifier(h.notifier)
	return h
}
