package image

import (
	"fmt"
	"path"

	"github.com/distribution/reference"
)

// Reference is the derived addressing value of a run: the local
// name:tag form and the fully-qualified registry/name:tag form used for
// probe, pull, tag and push. Purely computed, no lifecycle of its own.
type Reference struct {
	Registry string
	Name     string
	Tag      string
}

func New(registry, name, tag string) Reference {
	return Reference{
		Registry: registry,
		Name:     name,
		Tag:      tag,
	}
}

func (r Reference) String() string {
	return r.FullRef()
}

// Local is the engine-local name:tag form the build produces.
func (r Reference) Local() string {
	return fmt.Sprintf("%s:%s", r.Name, r.Tag)
}

// FullRef is the fully-qualified registry/name:tag address.
func (r Reference) FullRef() string {
	return fmt.Sprintf("%s:%s", path.Join(r.Registry, r.Name), r.Tag)
}

// WithTag returns the same repository under a different tag.
func (r Reference) WithTag(tag string) Reference {
	r.Tag = tag
	return r
}

// Latest is the floating alias of the same repository.
func (r Reference) Latest() Reference {
	return r.WithTag("latest")
}

// Validate checks that the fully-qualified form is a well-formed,
// tagged image reference.
func (r Reference) Validate() error {
	named, err := reference.ParseNormalizedNamed(r.FullRef())
	if err != nil {
		return fmt.Errorf("invalid image reference %q: %w", r.FullRef(), err)
	}
	if _, ok := named.(reference.Tagged); !ok {
		return fmt.Errorf("image reference %q has no tag", r.FullRef())
	}
	return nil
}
