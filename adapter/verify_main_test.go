package adapter

import (
	"testing"

	"github.com/mosim-go/mmuadapter/testutils"
)

func TestMain(m *testing.M) {
	testutils.VerifyTestMain(m)
}
