package progress

import "fmt"

// Registry selects the store for a content type.
type Registry struct {
	stores     map[ContentType]ProgressStore
	assessment *AssessmentStore
}

// NewRegistry wires one store per content type.
func NewRegistry() *Registry {
	r := &Registry{stores: map[ContentType]ProgressStore{}}
	r.Register(NewVideoStore())
	r.Register(NewAudioStore())
	r.Register(NewDocumentStore())
	r.Register(NewImageStore())
	r.Register(NewExternalStore())
	r.Register(NewInteractiveStore())
	r.Register(NewScormStore())
	r.Register(NewActivityStore(Survey))
	r.Register(NewActivityStore(Feedback))
	r.Register(NewActivityStore(Assignment))
	r.assessment = NewAssessmentStore()
	r.Register(r.assessment)
	return r
}

// Register adds or replaces the store for its type.
func (r *Registry) Register(s ProgressStore) {
	r.stores[s.Type()] = s
}

func (r *Registry) Store(t ContentType) (ProgressStore, error) {
	s, ok := r.stores[t]
	if !ok {
		return nil, fmt.Errorf("no progress store for content type %q", t)
	}
	return s, nil
}

func (r *Registry) Assessment() *AssessmentStore { return r.assessment }
