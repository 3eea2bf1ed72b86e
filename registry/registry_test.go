package registry

import (
	"testing"

	"go.viam.com/test"

	"github.com/mosim-go/mmuadapter/mmu"
	"github.com/mosim-go/mmuadapter/testutils/inject"
)

func TestRegistry(t *testing.T) {
	constructor := func() mmu.MMU { return &inject.MMU{} }

	RegisterMMU("walk", constructor)
	defer DeregisterMMU("walk")
	RegisterMMU("reach", constructor)
	defer DeregisterMMU("reach")

	found, ok := MMULookup("walk")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, found(), test.ShouldNotBeNil)

	_, ok = MMULookup("idle")
	test.That(t, ok, test.ShouldBeFalse)

	test.That(t, RegisteredMMUs(), test.ShouldResemble, []string{"reach", "walk"})

	test.That(t, func() { RegisterMMU("walk", constructor) }, test.ShouldPanic)
	test.That(t, func() { RegisterMMU("", constructor) }, test.ShouldPanic)
	test.That(t, func() { RegisterMMU("carry", nil) }, test.ShouldPanic)
}
