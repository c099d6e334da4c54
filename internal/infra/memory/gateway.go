package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"survey-runner/internal/app"
	"survey-runner/internal/domain"
)

// Gateway is an in-memory implementation of app.SubmissionGateway for tests
// and demos. Error fields inject failures; revisions follow the document
// store's "<n>-<suffix>" convention.
type Gateway struct {
	FindErr     error
	SaveErr     error
	RevisionErr error

	mu        sync.Mutex
	revisions map[string]string            // questionnaire id -> current revision
	docs      map[string]domain.Submission // submission id -> last saved doc
	saveCalls int
}

func NewGateway() *Gateway {
	return &Gateway{
		revisions: make(map[string]string),
		docs:      make(map[string]domain.Submission),
	}
}

// SetQuestionnaireRevision pins the current revision for a questionnaire id.
func (g *Gateway) SetQuestionnaireRevision(questionnaireID, rev string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.revisions[questionnaireID] = rev
}

func (g *Gateway) FindSubmission(_ context.Context, parentID, userID string) (app.DocRef, bool, error) {
	if g.FindErr != nil {
		return app.DocRef{}, false, g.FindErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, doc := range g.docs {
		if doc.ParentID == parentID && doc.User.ID == userID {
			return app.DocRef{ID: id, Rev: doc.Rev}, true, nil
		}
	}
	return app.DocRef{}, false, nil
}

func (g *Gateway) QuestionnaireRevision(_ context.Context, questionnaireID string) (string, error) {
	if g.RevisionErr != nil {
		return "", g.RevisionErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	rev, ok := g.revisions[questionnaireID]
	if !ok {
		return "", domain.ErrQuestionnaireNotFound
	}
	return rev, nil
}

func (g *Gateway) Save(_ context.Context, sub domain.Submission) (app.DocRef, error) {
	if g.SaveErr != nil {
		return app.DocRef{}, g.SaveErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saveCalls++

	if existing, ok := g.docs[sub.ID]; ok && existing.Rev != sub.Rev {
		return app.DocRef{}, fmt.Errorf("%w: %s", domain.ErrRevisionConflict, sub.ID)
	}
	sub.Rev = nextRev(sub.Rev)
	g.docs[sub.ID] = sub
	return app.DocRef{ID: sub.ID, Rev: sub.Rev}, nil
}

// SaveCalls reports how many saves were attempted.
func (g *Gateway) SaveCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.saveCalls
}

// Doc returns the last saved document for a submission id.
func (g *Gateway) Doc(id string) (domain.Submission, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	doc, ok := g.docs[id]
	return doc, ok
}

func nextRev(rev string) string {
	if rev == "" {
		return "1-local"
	}
	gen := 0
	if i := strings.IndexByte(rev, '-'); i > 0 {
		gen, _ = strconv.Atoi(rev[:i])
	}
	return strconv.Itoa(gen+1) + "-local"
}
