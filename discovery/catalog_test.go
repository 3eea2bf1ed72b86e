package discovery

import (
	"testing"

	"go.viam.com/test"

	"github.com/mosim-go/mmuadapter/mmi"
)

func TestCatalog(t *testing.T) {
	catalog := NewCatalog()
	test.That(t, catalog.Add(mmi.MMUDescription{ID: "walk", Name: "Walk"}), test.ShouldBeTrue)
	test.That(t, catalog.Add(mmi.MMUDescription{ID: "reach", Name: "Reach"}), test.ShouldBeTrue)
	test.That(t, catalog.Add(mmi.MMUDescription{ID: "walk", Name: "Other"}), test.ShouldBeFalse)

	test.That(t, catalog.Len(), test.ShouldEqual, 2)
	list := catalog.List()
	test.That(t, list[0].ID, test.ShouldEqual, "walk")
	test.That(t, list[0].Name, test.ShouldEqual, "Walk")
	test.That(t, list[1].ID, test.ShouldEqual, "reach")

	found, ok := catalog.FindByName("Reach")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, found.ID, test.ShouldEqual, "reach")
	_, ok = catalog.FindByName("Other")
	test.That(t, ok, test.ShouldBeFalse)

	filtered := catalog.Filter(func(d mmi.MMUDescription) bool { return d.ID == "reach" })
	test.That(t, filtered, test.ShouldHaveLength, 1)
	test.That(t, catalog.Has("walk"), test.ShouldBeTrue)
	test.That(t, catalog.Has("idle"), test.ShouldBeFalse)
}
