package mmi

import (
	"testing"

	"go.viam.com/test"
)

func TestRootPosition(t *testing.T) {
	var posture *AvatarPostureValues
	_, ok := posture.RootPosition()
	test.That(t, ok, test.ShouldBeFalse)

	posture = &AvatarPostureValues{PostureData: []float64{1, 2}}
	_, ok = posture.RootPosition()
	test.That(t, ok, test.ShouldBeFalse)

	posture.PostureData = []float64{1, 2, 3, 0, 0, 0, 1}
	pos, ok := posture.RootPosition()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pos, test.ShouldResemble, Vector3{1, 2, 3})
	test.That(t, pos.Distance(Vector3{1, 2, 0}), test.ShouldEqual, 3.0)
}

func TestBoolResponse(t *testing.T) {
	resp := Success()
	test.That(t, resp.Successful, test.ShouldBeTrue)
	resp.Fail("first")
	resp.Fail("second")
	test.That(t, resp.Successful, test.ShouldBeFalse)
	test.That(t, resp.LogData, test.ShouldResemble, []string{"first", "second"})
	test.That(t, Failure("x").Successful, test.ShouldBeFalse)
}

func TestIPAddress(t *testing.T) {
	addr, err := ParseIPAddress("127.0.0.1:9013")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, addr, test.ShouldResemble, IPAddress{Address: "127.0.0.1", Port: 9013})
	test.That(t, addr.String(), test.ShouldEqual, "127.0.0.1:9013")

	_, err = ParseIPAddress("localhost")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = ParseIPAddress("localhost:http")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestEmptiness(t *testing.T) {
	var update *SceneUpdate
	test.That(t, update.IsEmpty(), test.ShouldBeTrue)
	test.That(t, (&SceneUpdate{RemovedAvatars: []string{"a"}}).IsEmpty(), test.ShouldBeFalse)

	var result SimulationResult
	test.That(t, result.IsEmpty(), test.ShouldBeTrue)
	result.Events = []SimulationEvent{{Name: "done"}}
	test.That(t, result.IsEmpty(), test.ShouldBeFalse)
}
