package session

import (
	"testing"

	"go.viam.com/test"
)

func TestParseKey(t *testing.T) {
	for _, tc := range []struct {
		input    string
		expected Key
	}{
		{"a:b", Key{SceneID: "a", AvatarID: "b"}},
		{"a", Key{SceneID: "a", AvatarID: "0"}},
		{"a::b", Key{SceneID: "a::b", AvatarID: "0"}},
		{"a:b:c", Key{SceneID: "a:b:c", AvatarID: "0"}},
		{"a:", Key{SceneID: "a:", AvatarID: "0"}},
		{":b", Key{SceneID: ":b", AvatarID: "0"}},
		{":", Key{SceneID: ":", AvatarID: "0"}},
	} {
		t.Run(tc.input, func(t *testing.T) {
			key, err := ParseKey(tc.input)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, key, test.ShouldResemble, tc.expected)
			test.That(t, key.SceneID, test.ShouldNotBeEmpty)
		})
	}

	_, err := ParseKey("")
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, Key{SceneID: "s", AvatarID: "a"}.String(), test.ShouldEqual, "s:a")
}
