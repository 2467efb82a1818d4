package app

import (
	"fmt"

	"github.com/taigrr/glbview/pkg/engine"
)

// Selection is the controller's selection state: NoSelection or Selected.
type Selection interface {
	fmt.Stringer
	isSelection()
}

// NoSelection means nothing is highlighted.
type NoSelection struct{}

// Selected holds the highlighted entity.
type Selected struct {
	Entity engine.Entity
}

func (NoSelection) isSelection() {}
func (Selected) isSelection()    {}

func (NoSelection) String() string { return "none" }
func (s Selected) String() string  { return fmt.Sprintf("entity %d", s.Entity) }
