package builtin

import (
	"fmt"

	"github.com/cmjava/cmjava/pkg/class"
)

func errNotSelf(c class.Class) error {
	return fmt.Errorf("NewInstance: self must be identity-equal to %s", c.ClassIdentifier())
}
